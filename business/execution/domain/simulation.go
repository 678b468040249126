package domain

import "github.com/shopspring/decimal"

// AssetChange is one balance movement a simulation predicts.
type AssetChange struct {
	AssetType       string // "NATIVE", "ERC20", ...
	Symbol          string
	ContractAddress string
	From            string
	To              string
	Amount          decimal.Decimal
	Decimals        int
}

// Simulation is the outcome of simulating a draft without submitting
// it. A failed simulation is data for the correctness criterion, not an
// error.
type Simulation struct {
	Success      bool
	Changes      []AssetChange
	GasUsed      uint64
	RevertReason string
}

// ChangeFor returns the predicted change for a symbol, if any.
func (s *Simulation) ChangeFor(symbol string) (AssetChange, bool) {
	if s == nil {
		return AssetChange{}, false
	}
	for _, c := range s.Changes {
		if c.Symbol == symbol {
			return c, true
		}
	}
	return AssetChange{}, false
}
