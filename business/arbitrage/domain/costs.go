// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// weiPerETH is 10^18 as a decimal exponent.
const weiExponent = 18

// GasCost is the cost of one on-chain transaction, carried both in ETH
// and converted into the pair's quote currency.
type GasCost struct {
	GasLimit uint64
	GasPrice *big.Int // in wei
	TotalWei *big.Int // gasLimit * gasPrice
	ETH      decimal.Decimal
	Quote    decimal.Decimal // converted using the current ETH price in quote currency
}

// NewGasCost creates a GasCost from gas parameters. ethPriceQuote is
// the ETH price expressed in the pair's quote currency.
func NewGasCost(gasLimit uint64, gasPriceWei *big.Int, ethPriceQuote decimal.Decimal) *GasCost {
	totalWei := new(big.Int).Mul(gasPriceWei, new(big.Int).SetUint64(gasLimit))
	eth := decimal.NewFromBigInt(totalWei, 0).Shift(-weiExponent)

	return &GasCost{
		GasLimit: gasLimit,
		GasPrice: gasPriceWei,
		TotalWei: totalWei,
		ETH:      eth,
		Quote:    eth.Mul(ethPriceQuote),
	}
}

// FlatGasCostQuote converts a flat ETH gas estimate into quote
// currency at the given ETH price.
func FlatGasCostQuote(gasCostETH, ethPriceQuote decimal.Decimal) decimal.Decimal {
	return gasCostETH.Mul(ethPriceQuote)
}
