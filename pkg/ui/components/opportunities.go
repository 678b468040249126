package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// OpportunityRow is a single detected arbitrage opportunity.
type OpportunityRow struct {
	Timestamp time.Time
	Pair      string
	Route     string
	TradeSize string
	GrossPct  string
	NetPct    string
	NetQuote  string
	Positive  bool
}

// OpportunitiesComponent renders the rolling list of detected opportunities.
type OpportunitiesComponent struct {
	rows    []OpportunityRow
	maxRows int
	offset  int
}

// NewOpportunitiesComponent creates a new opportunities component.
func NewOpportunitiesComponent(maxRows int) *OpportunitiesComponent {
	if maxRows <= 0 {
		maxRows = 50
	}
	return &OpportunitiesComponent{
		rows:    make([]OpportunityRow, 0, maxRows),
		maxRows: maxRows,
	}
}

// Add prepends an opportunity, evicting the oldest beyond maxRows.
func (o *OpportunitiesComponent) Add(row OpportunityRow) {
	o.rows = append([]OpportunityRow{row}, o.rows...)
	if len(o.rows) > o.maxRows {
		o.rows = o.rows[:o.maxRows]
	}
	o.offset = 0
}

// Clear removes all rows.
func (o *OpportunitiesComponent) Clear() {
	o.rows = o.rows[:0]
	o.offset = 0
}

// Count returns the number of retained rows.
func (o *OpportunitiesComponent) Count() int {
	return len(o.rows)
}

// ScrollUp moves the viewport toward newer rows.
func (o *OpportunitiesComponent) ScrollUp() {
	if o.offset > 0 {
		o.offset--
	}
}

// ScrollDown moves the viewport toward older rows.
func (o *OpportunitiesComponent) ScrollDown(visible int) {
	if o.offset < len(o.rows)-visible {
		o.offset++
	}
}

// View renders up to visible rows starting at the scroll offset.
func (o *OpportunitiesComponent) View(visible int) string {
	if len(o.rows) == 0 {
		return mutedStyle.Render("No opportunities detected yet")
	}
	if visible <= 0 {
		visible = 10
	}

	var b strings.Builder
	header := fmt.Sprintf("%-8s %-10s %-30s %8s %8s %8s", "TIME", "PAIR", "ROUTE", "SIZE", "GROSS%", "NET%")
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	end := o.offset + visible
	if end > len(o.rows) {
		end = len(o.rows)
	}
	for _, row := range o.rows[o.offset:end] {
		line := fmt.Sprintf("%-8s %-10s %-30s %8s %8s %8s",
			row.Timestamp.Format("15:04:05"),
			row.Pair,
			truncate(row.Route, 30),
			row.TradeSize,
			row.GrossPct,
			row.NetPct,
		)
		if row.Positive {
			b.WriteString(profitStyle.Render(line))
		} else {
			b.WriteString(line)
		}
		b.WriteString("\n")
	}

	if len(o.rows) > visible {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("showing %d-%d of %d", o.offset+1, end, len(o.rows))))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

var profitStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#10B981")).
	Bold(true)
