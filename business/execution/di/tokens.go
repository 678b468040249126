// Package di contains dependency injection tokens for the execution context.
package di

import (
	"github.com/dexter-bot/dexter/business/execution/app"
	executionEthereum "github.com/dexter-bot/dexter/business/execution/infra/ethereum"
	"github.com/dexter-bot/dexter/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Drafter   = di.NewToken[*app.Drafter]("execution.Drafter")
	Optimizer = di.NewToken[*app.Optimizer]("execution.Optimizer")
	Submitter = di.NewToken[*executionEthereum.Submitter]("execution.Submitter")
)

// Private dependency tokens - internal to execution module
var (
	Evaluator      = di.NewToken[*app.Evaluator]("execution:evaluator")
	WalletResolver = di.NewToken[*executionEthereum.WalletResolver]("execution:walletResolver")
	Encoder        = di.NewToken[app.SwapEncoder]("execution:encoder")
	Simulator      = di.NewToken[app.Simulator]("execution:simulator")
	BalanceReader  = di.NewToken[*executionEthereum.BalanceReader]("execution:balanceReader")
)

// Helper functions for type-safe access
func GetDrafter(c di.ServiceRegistry) *app.Drafter {
	return di.GetToken(c, Drafter)
}

func GetOptimizer(c di.ServiceRegistry) *app.Optimizer {
	return di.GetToken(c, Optimizer)
}

func GetSubmitter(c di.ServiceRegistry) *executionEthereum.Submitter {
	return di.GetToken(c, Submitter)
}

func GetEvaluator(c di.ServiceRegistry) *app.Evaluator {
	return di.GetToken(c, Evaluator)
}

func GetWalletResolver(c di.ServiceRegistry) *executionEthereum.WalletResolver {
	return di.GetToken(c, WalletResolver)
}

func GetEncoder(c di.ServiceRegistry) app.SwapEncoder {
	return di.GetToken(c, Encoder)
}

func GetSimulator(c di.ServiceRegistry) app.Simulator {
	return di.GetToken(c, Simulator)
}

func GetBalanceReader(c di.ServiceRegistry) *executionEthereum.BalanceReader {
	return di.GetToken(c, BalanceReader)
}
