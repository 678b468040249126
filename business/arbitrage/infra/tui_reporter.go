package infra

import (
	"context"

	"github.com/dexter-bot/dexter/business/arbitrage/domain"
	executionDomain "github.com/dexter-bot/dexter/business/execution/domain"
	pricingDomain "github.com/dexter-bot/dexter/business/pricing/domain"
	"github.com/dexter-bot/dexter/pkg/ui"
	"github.com/dexter-bot/dexter/pkg/ui/components"
)

// TUIReporter forwards scanner events to the Bubble Tea dashboard.
type TUIReporter struct{}

// NewTUIReporter creates a reporter backed by the running TUI program.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{}
}

// Start implements Reporter. The TUI program lifecycle is owned by main,
// so there is nothing to do here.
func (r *TUIReporter) Start(_ context.Context) error {
	return nil
}

// Report sends an opportunity to the dashboard.
func (r *TUIReporter) Report(opp *domain.Opportunity) {
	ui.Send(ui.OpportunityMsg{
		Row: components.OpportunityRow{
			Timestamp: opp.Timestamp,
			Pair:      opp.Pair.String(),
			Route:     opp.Route(),
			TradeSize: opp.TradeSize.String(),
			GrossPct:  opp.GrossProfitPct.StringFixed(3),
			NetPct:    opp.NetProfitPct.StringFixed(3),
			NetQuote:  opp.NetProfitQuote().StringFixed(2),
			Positive:  opp.NetProfitPct.IsPositive(),
		},
	})
}

// UpdateQuotes sends the latest per-venue quotes for a pair.
func (r *TUIReporter) UpdateQuotes(pair pricingDomain.Pair, quotes []pricingDomain.Quote) {
	rows := make([]components.VenueQuoteRow, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, components.VenueQuoteRow{
			Venue:     q.Venue,
			Pair:      q.Pair.String(),
			Price:     q.Price.Rate().StringFixed(4),
			AmountOut: q.AmountOut.String(),
			Gas:       q.GasEstimate,
			Latency:   q.Latency,
			UpdatedAt: q.Timestamp,
		})
	}
	ui.Send(ui.QuotesMsg{Pair: pair.String(), Rows: rows})
}

// UpdateConnectionStatus sends a connection state change.
func (r *TUIReporter) UpdateConnectionStatus(name string, connected bool) {
	ui.Send(ui.ConnectionStatusMsg{Name: name, Connected: connected})
}

// ReportValidation sends the evaluation-loop outcome for an
// auto-drafted opportunity.
func (r *TUIReporter) ReportValidation(opp *domain.Opportunity, outcome executionDomain.Outcome) {
	ui.Send(ui.ValidationMsg{
		Route:     opp.Route(),
		Finalized: outcome.Finalized(),
		Rounds:    outcome.Rounds,
		Reasons:   outcome.Reasons,
	})
}

// Stop implements Reporter. The TUI owns its own lifecycle.
func (r *TUIReporter) Stop() error { return nil }
