// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/dexter-bot/dexter/business/arbitrage/app"
	"github.com/dexter-bot/dexter/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Scanner = di.NewToken[*app.Scanner]("arbitrage.Scanner")
)

// Private dependency tokens - internal to arbitrage module
var (
	Detector = di.NewToken[*app.Detector]("arbitrage:detector")
	Reporter = di.NewToken[app.Reporter]("arbitrage:reporter")
)

// Helper functions for type-safe access
func GetScanner(c di.ServiceRegistry) *app.Scanner {
	return di.GetToken(c, Scanner)
}

func GetDetector(c di.ServiceRegistry) *app.Detector {
	return di.GetToken(c, Detector)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
