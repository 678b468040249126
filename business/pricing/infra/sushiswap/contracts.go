package sushiswap

// RouterABI is the subset of the SushiSwap V2 router ABI used for
// quoting. getAmountsOut walks the pair reserves along the path.
const RouterABI = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
			{"internalType": "address[]", "name": "path", "type": "address[]"}
		],
		"name": "getAmountsOut",
		"outputs": [
			{"internalType": "uint256[]", "name": "amounts", "type": "uint256[]"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// Gas cost of a single-hop V2 swap, used as the quote's estimate since
// getAmountsOut is a view call and reports none.
const swapGasEstimate = 120000
