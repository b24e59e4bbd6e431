package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/okian/arena/internal/domain/rating"
	"github.com/okian/arena/internal/simulate"
)

var (
	colorHeader = lipgloss.Color("62")  // Purple
	colorMuted  = lipgloss.Color("241") // Gray
	colorUp     = lipgloss.Color("78")  // Green
	colorDown   = lipgloss.Color("203") // Red
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorHeader)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	rankCol     = lipgloss.NewStyle().Width(6)
	nameCol     = lipgloss.NewStyle().Width(28)
	numCol      = lipgloss.NewStyle().Width(10).Align(lipgloss.Right)
)

func row(cells ...string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		rankCol.Render(cells[0]),
		nameCol.Render(cells[1]),
		numCol.Render(cells[2]),
		numCol.Render(cells[3]),
	)
}

func changeCell(d int) string {
	s := fmt.Sprintf("%+d", d)
	switch {
	case d > 0:
		return lipgloss.NewStyle().Foreground(colorUp).Render(s)
	case d < 0:
		return lipgloss.NewStyle().Foreground(colorDown).Render(s)
	default:
		return mutedStyle.Render("0")
	}
}

// renderRankings lays out standings as an aligned table.
func renderRankings(rows []rating.Standing, votes int) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(row("RANK", "MODEL", "SCORE", "CHANGE")))
	b.WriteByte('\n')
	for _, s := range rows {
		b.WriteString(row(
			fmt.Sprintf("%d", s.Rank),
			s.Name,
			fmt.Sprintf("%d", rating.RoundDelta(s.Rating)),
			changeCell(s.Change),
		))
		b.WriteByte('\n')
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d items, %d votes replayed", len(rows), votes)))
	b.WriteByte('\n')
	return b.String()
}

// renderReport summarizes a simulation next to the hidden strengths.
func renderReport(r *simulate.Report) string {
	var b strings.Builder
	st := r.Stats
	fmt.Fprintf(&b, "%s submitted=%d applied=%d duplicate=%d throttled=%d failed=%d in %s\n",
		headerStyle.Render("votes"),
		st.Submitted, st.Applied, st.Duplicate, st.Throttled, st.Failed, st.Duration)

	b.WriteString(headerStyle.Render(row("RANK", "MODEL", "SCORE", "HIDDEN")))
	b.WriteByte('\n')
	rows := append([]simulate.Standing(nil), r.Rankings...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Rank < rows[j].Rank })
	for _, s := range rows {
		b.WriteString(row(
			fmt.Sprintf("%d", s.Rank),
			s.Name,
			fmt.Sprintf("%d", s.Score),
			mutedStyle.Render(fmt.Sprintf("%.0f", r.Strengths[s.Name])),
		))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%s %.3f\n", headerStyle.Render("concordance"), r.Concordance)
	return b.String()
}
