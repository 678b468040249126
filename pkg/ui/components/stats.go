package components

import (
	"fmt"
	"time"
)

// StatsComponent tracks and renders session counters.
type StatsComponent struct {
	startTime     time.Time
	blocksSeen    uint64
	scans         uint64
	opportunities uint64
	errors        uint64
	bestNetPct    string
	gasPriceGwei  string
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{startTime: time.Now()}
}

// RecordBlock increments the processed block counter.
func (s *StatsComponent) RecordBlock() {
	s.blocksSeen++
}

// RecordScan increments the completed scan counter.
func (s *StatsComponent) RecordScan() {
	s.scans++
}

// RecordOpportunity increments the opportunity counter and tracks the best net margin.
func (s *StatsComponent) RecordOpportunity(netPct string) {
	s.opportunities++
	if s.bestNetPct == "" || netPct > s.bestNetPct {
		s.bestNetPct = netPct
	}
}

// RecordError increments the error counter.
func (s *StatsComponent) RecordError() {
	s.errors++
}

// SetGasPrice updates the displayed gas price in gwei.
func (s *StatsComponent) SetGasPrice(gwei string) {
	s.gasPriceGwei = gwei
}

// View renders the stats panel.
func (s *StatsComponent) View() string {
	uptime := time.Since(s.startTime).Round(time.Second)
	best := s.bestNetPct
	if best == "" {
		best = "-"
	}
	gas := s.gasPriceGwei
	if gas == "" {
		gas = "-"
	}
	return fmt.Sprintf(
		"Uptime: %s\nBlocks: %d\nScans: %d\nOpportunities: %d\nBest net: %s%%\nGas: %s gwei\nErrors: %d",
		uptime, s.blocksSeen, s.scans, s.opportunities, best, gas, s.errors,
	)
}
