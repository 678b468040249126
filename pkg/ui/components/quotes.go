// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// VenueQuoteRow is one venue's quote for the currently scanned pair.
type VenueQuoteRow struct {
	Venue     string
	Pair      string
	Price     string
	AmountOut string
	Gas       uint64
	Latency   time.Duration
	UpdatedAt time.Time
}

// QuotesComponent renders the per-venue quote table for the active pair.
type QuotesComponent struct {
	pair string
	rows map[string]VenueQuoteRow
}

// NewQuotesComponent creates a new quotes component.
func NewQuotesComponent() *QuotesComponent {
	return &QuotesComponent{
		rows: make(map[string]VenueQuoteRow),
	}
}

// SetQuotes replaces the table with the latest scan results for a pair.
func (q *QuotesComponent) SetQuotes(pair string, rows []VenueQuoteRow) {
	if pair != q.pair {
		q.pair = pair
		q.rows = make(map[string]VenueQuoteRow)
	}
	for _, row := range rows {
		q.rows[row.Venue] = row
	}
}

// View renders the quotes table.
func (q *QuotesComponent) View() string {
	if len(q.rows) == 0 {
		return mutedStyle.Render("Waiting for venue quotes...")
	}

	venues := make([]string, 0, len(q.rows))
	for venue := range q.rows {
		venues = append(venues, venue)
	}
	sort.Strings(venues)

	var b strings.Builder
	header := fmt.Sprintf("%-14s %14s %10s %9s", "VENUE", "PRICE", "GAS", "LATENCY")
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	best := ""
	for _, venue := range venues {
		if best == "" || q.rows[venue].Price > q.rows[best].Price {
			best = venue
		}
	}

	for _, venue := range venues {
		row := q.rows[venue]
		line := fmt.Sprintf("%-14s %14s %10d %9s",
			row.Venue,
			row.Price,
			row.Gas,
			row.Latency.Round(time.Millisecond),
		)
		if venue == best && len(venues) > 1 {
			b.WriteString(bestQuoteStyle.Render(line))
		} else {
			b.WriteString(line)
		}
		b.WriteString("\n")
	}

	if q.pair != "" {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("pair: %s", q.pair)))
	}
	return b.String()
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	bestQuoteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)
