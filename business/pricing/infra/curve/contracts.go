package curve

// PoolABI is the subset of the Curve pool ABI used for quoting.
// get_dy returns the amount of coin j received for dx of coin i.
const PoolABI = `[
	{
		"name": "get_dy",
		"inputs": [
			{"name": "i", "type": "int128"},
			{"name": "j", "type": "int128"},
			{"name": "dx", "type": "uint256"}
		],
		"outputs": [
			{"name": "", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// Curve exchanges cost more gas than constant-product swaps.
const swapGasEstimate = 250000
