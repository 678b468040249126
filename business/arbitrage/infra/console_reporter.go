// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dexter-bot/dexter/business/arbitrage/domain"
	executionDomain "github.com/dexter-bot/dexter/business/execution/domain"
	pricingDomain "github.com/dexter-bot/dexter/business/pricing/domain"
)

// ConsoleReporter implements Reporter for plain CLI output.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a new ConsoleReporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{
		out: os.Stdout,
	}
}

// NewConsoleReporterTo creates a ConsoleReporter writing to w.
func NewConsoleReporterTo(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Dexter Scanner Started")
	fmt.Fprintln(r.out, "======================")
	return nil
}

// Report outputs a detected opportunity to the console.
func (r *ConsoleReporter) Report(opp *domain.Opportunity) {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintln(r.out, "ARBITRAGE OPPORTUNITY DETECTED")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Timestamp:      %s\n", opp.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Pair:           %s\n", opp.Pair.String())
	fmt.Fprintf(r.out, "Route:          %s\n", opp.Route())
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "PRICES")
	fmt.Fprintf(r.out, "  Buy  (%s):  %s\n", opp.BuyVenue, opp.BuyPrice.StringFixed(2))
	fmt.Fprintf(r.out, "  Sell (%s):  %s\n", opp.SellVenue, opp.SellPrice.StringFixed(2))
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "TRADE DETAILS")
	fmt.Fprintf(r.out, "  Size:           %s %s\n", opp.TradeSize.StringFixed(4), opp.Pair.Base.Symbol())
	fmt.Fprintf(r.out, "  Gas Cost:       %s%% of notional\n", opp.GasCostPct.StringFixed(4))
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "PROFIT")
	fmt.Fprintf(r.out, "  Gross:          %s%% (%s %s)\n",
		opp.GrossProfitPct.StringFixed(4), opp.GrossProfitQuote().StringFixed(2), opp.Pair.Quote.Symbol())
	fmt.Fprintf(r.out, "  Net:            %s%% (%s %s)\n",
		opp.NetProfitPct.StringFixed(4), opp.NetProfitQuote().StringFixed(2), opp.Pair.Quote.Symbol())
	fmt.Fprintln(r.out, "================================================================================")
}

// ReportValidation outputs the evaluation-loop outcome for an
// auto-drafted opportunity.
func (r *ConsoleReporter) ReportValidation(opp *domain.Opportunity, outcome executionDomain.Outcome) {
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintf(r.out, "DRAFT VALIDATION: %s\n", outcome.State)
	fmt.Fprintf(r.out, "  Route:          %s\n", opp.Route())
	fmt.Fprintf(r.out, "  Rounds:         %d\n", outcome.Rounds)
	if outcome.Finalized() {
		fmt.Fprintf(r.out, "  Gas Limit:      %d (estimated: %t)\n",
			outcome.Draft.GasLimit, outcome.Draft.GasEstimated)
	}
	for _, reason := range outcome.Reasons {
		fmt.Fprintf(r.out, "  Reason:         %s\n", reason)
	}
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
}

// UpdateQuotes is a no-op in detection mode; the console reporter only
// outputs opportunities, not continuous quote updates.
func (r *ConsoleReporter) UpdateQuotes(pair pricingDomain.Pair, quotes []pricingDomain.Quote) {
}

// UpdateConnectionStatus outputs connection status changes.
func (r *ConsoleReporter) UpdateConnectionStatus(name string, connected bool) {
	status := "disconnected"
	if connected {
		status = "connected"
	}
	fmt.Fprintf(r.out, "[%s] %s: %s\n", time.Now().Format("15:04:05"), name, status)
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Dexter Scanner Stopped")
	return nil
}
