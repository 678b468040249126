package ui

import (
	"time"

	"github.com/dexter-bot/dexter/pkg/ui/components"
)

// OpportunityMsg carries a newly detected arbitrage opportunity.
type OpportunityMsg struct {
	Row components.OpportunityRow
}

// QuotesMsg carries the latest per-venue quotes for a scanned pair.
type QuotesMsg struct {
	Pair string
	Rows []components.VenueQuoteRow
}

// ScanMsg signals that a full scan cycle completed.
type ScanMsg struct {
	Pair     string
	Venues   int
	Duration time.Duration
}

// ConnectionStatusMsg carries a connection state change.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// BlockMsg carries a new chain head.
type BlockMsg struct {
	Number    uint64
	Hash      string
	Timestamp time.Time
}

// GasPriceMsg carries the current gas price in gwei.
type GasPriceMsg struct {
	Gwei string
}

// ValidationMsg carries the evaluation-loop outcome for an auto-drafted
// opportunity.
type ValidationMsg struct {
	Route     string
	Finalized bool
	Rounds    int
	Reasons   []string
}

// ErrorMsg carries a non-fatal error for display.
type ErrorMsg struct {
	Component string
	Err       error
}

// LogMsg carries a log line for the activity feed.
type LogMsg struct {
	Level   string
	Message string
	Time    time.Time
}

// StartupMsg reports progress of a named startup step.
type StartupMsg struct {
	Step    string
	Status  string // "pending", "running", "done", "failed"
	Message string
}

// StartModulesMsg is emitted once the welcome screen is dismissed and
// the runtime modules should begin starting.
type StartModulesMsg struct{}

// TickMsg drives periodic UI refresh.
type TickMsg time.Time
