package sushigo

import (
	"fmt"
	"strings"
)

// String renders the position for terminal display: the turn counter
// and, per seat, the played cards with the pending wasabi count.
func (s State) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "turn %d/%d\n", s.Turn, s.Turn+len(s.Hands[0]))

	for i, tableau := range s.Tableaus {
		names := make([]string, len(tableau))
		for j, c := range tableau {
			names[j] = c.String()
		}
		fmt.Fprintf(&b, "  player %d: [%s]", i, strings.Join(names, " "))

		if pending := PendingWasabi(tableau); pending > 0 {
			fmt.Fprintf(&b, " (wasabi waiting: %d)", pending)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderBreakdown formats one player's score breakdown as a small table.
func RenderBreakdown(b Breakdown) string {
	rows := []struct {
		label string
		card  Card
	}{
		{"tempura", Tempura},
		{"sashimi", Sashimi},
		{"dumpling", Dumpling},
		{"maki", Maki1},
		{"nigiri", SalmonNigiri},
		{"pudding", Pudding},
		{"wasabi", Wasabi},
	}

	var sb strings.Builder
	for _, row := range rows {
		e := b[row.card]
		fmt.Fprintf(&sb, "  %-8s x%-2d %3dpts  %s\n", row.label, e.Count, e.Points, e.Detail)
	}
	fmt.Fprintf(&sb, "  %-8s     %3dpts\n", "total", b.Total())
	return sb.String()
}
