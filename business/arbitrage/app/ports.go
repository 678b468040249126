// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"math/big"

	"github.com/dexter-bot/dexter/business/arbitrage/domain"
	executionDomain "github.com/dexter-bot/dexter/business/execution/domain"
	pricingDomain "github.com/dexter-bot/dexter/business/pricing/domain"
)

// Reporter defines the interface for reporting detection results.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// Report sends a detected opportunity to be displayed/logged.
	Report(opp *domain.Opportunity)

	// UpdateQuotes updates the current per-venue quote display.
	UpdateQuotes(pair pricingDomain.Pair, quotes []pricingDomain.Quote)

	// UpdateConnectionStatus updates a connection status display.
	UpdateConnectionStatus(name string, connected bool)

	// ReportValidation sends the evaluation-loop outcome for an
	// opportunity that was drafted automatically.
	ReportValidation(opp *domain.Opportunity, outcome executionDomain.Outcome)

	// Stop gracefully shuts down the reporter.
	Stop() error
}

// OpportunityDrafter turns a detected opportunity into an unsigned
// draft transaction. Satisfied by the execution context's Drafter.
type OpportunityDrafter interface {
	DraftFromOpportunity(ctx context.Context, opp *domain.Opportunity, amountIn *big.Int) (executionDomain.Draft, error)
}

// DraftValidator runs a draft through the evaluation loop until it is
// finalized or rejected. Satisfied by the execution context's Optimizer.
type DraftValidator interface {
	RunLoop(ctx context.Context, draft executionDomain.Draft) (executionDomain.Outcome, error)
}
