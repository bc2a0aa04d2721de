package sushigo

import (
	"fmt"
)

// dumplingScores[n]は、餃子n枚の得点。5枚以上は15点で頭打ち。
var dumplingScores = [6]int{0, 1, 3, 6, 10, 15}

// MakiIcons counts the total maki icons in a tableau.
func MakiIcons(tableau []Card) int {
	total := 0
	for _, c := range tableau {
		total += c.MakiIcons()
	}
	return total
}

// NigiriWasabiPoints scores nigiri and wasabi in play order. A wasabi
// waits for the next nigiri and triples its base value; a nigiri played
// with no wasabi pending scores its base value. Returns the points and
// the number of wasabi consumed.
//
// NigiriWasabiPointsは、握りとわさびをプレイ順に採点します。
// わさびは次に出された握りを3倍にします。
func NigiriWasabiPoints(tableau []Card) (int, int) {
	points := 0
	pending := 0
	used := 0

	for _, c := range tableau {
		if c == Wasabi {
			pending++
			continue
		}

		if c.IsNigiri() {
			base := c.NigiriValue()
			if pending > 0 {
				points += base * 3
				pending--
				used++
			} else {
				points += base
			}
		}
	}
	return points, used
}

// PendingWasabi counts wasabi still waiting for a nigiri. Never negative.
func PendingWasabi(tableau []Card) int {
	pending := 0
	for _, c := range tableau {
		if c == Wasabi {
			pending++
		} else if c.IsNigiri() && pending > 0 {
			pending--
		}
	}
	return pending
}

// SimpleScore scores a single tableau without the competitive maki
// points: tempura pairs, sashimi trios, dumplings, nigiri and wasabi.
// Pudding scores nothing in a single-round game.
//
// SimpleScoreは、競争的な巻き寿司の点を除いた単独の得点を計算します。
// プリンは1ラウンドの対局では得点になりません。
func SimpleScore(tableau []Card) int {
	counts := map[Card]int{}
	for _, c := range tableau {
		counts[c]++
	}

	score := (counts[Tempura] / 2) * 5
	score += (counts[Sashimi] / 3) * 10

	d := counts[Dumpling]
	if d > 5 {
		d = 5
	}
	score += dumplingScores[d]

	nigiri, _ := NigiriWasabiPoints(tableau)
	score += nigiri
	return score
}

// MakiPoints awards 6 points to the player with the most maki icons.
// Ties split the 6 points evenly, rounded down. If nobody played maki,
// everyone gets 0.
//
// MakiPointsは、巻き寿司のアイコンが最も多いプレイヤーに6点を与えます。
// 同点の場合は6点を等分（切り捨て）します。
func MakiPoints(tableaus [][]Card) []int {
	n := len(tableaus)
	icons := make([]int, n)
	max := 0
	for i, t := range tableaus {
		icons[i] = MakiIcons(t)
		if icons[i] > max {
			max = icons[i]
		}
	}

	points := make([]int, n)
	if max == 0 {
		return points
	}

	winners := 0
	for _, ic := range icons {
		if ic == max {
			winners++
		}
	}

	for i, ic := range icons {
		if ic == max {
			points[i] = 6 / winners
		}
	}
	return points
}

// CompetitiveScores returns every player's final score, simple score
// plus competitive maki points.
func CompetitiveScores(tableaus [][]Card) []int {
	maki := MakiPoints(tableaus)
	scores := make([]int, len(tableaus))
	for i, t := range tableaus {
		scores[i] = SimpleScore(t) + maki[i]
	}
	return scores
}

// BreakdownEntry is one scoring category of a tableau.
type BreakdownEntry struct {
	Count  int
	Points int
	Detail string
}

// Breakdown is a per-category score breakdown for display.
type Breakdown map[Card]BreakdownEntry

// Total sums the points of all categories.
func (b Breakdown) Total() int {
	total := 0
	for _, e := range b {
		total += e.Points
	}
	return total
}

// NewBreakdown builds the detailed breakdown of one player's tableau.
// The maki entry needs all tableaus because maki points are competitive.
//
// NewBreakdownは、あるプレイヤーの得点内訳を作ります。
// 巻き寿司は競争的なので、全プレイヤーの場が必要です。
func NewBreakdown(tableaus [][]Card, playerIdx int) (Breakdown, error) {
	n := len(tableaus)
	if playerIdx < 0 || playerIdx >= n {
		return nil, fmt.Errorf("player index %d out of range [0, %d)", playerIdx, n)
	}

	tableau := tableaus[playerIdx]
	counts := map[Card]int{}
	for _, c := range tableau {
		counts[c]++
	}

	b := Breakdown{}

	pairs := counts[Tempura] / 2
	b[Tempura] = BreakdownEntry{
		Count:  counts[Tempura],
		Points: pairs * 5,
		Detail: fmt.Sprintf("%d pair(s) x 5", pairs),
	}

	trios := counts[Sashimi] / 3
	b[Sashimi] = BreakdownEntry{
		Count:  counts[Sashimi],
		Points: trios * 10,
		Detail: fmt.Sprintf("%d trio(s) x 10", trios),
	}

	d := counts[Dumpling]
	capped := d
	if capped > 5 {
		capped = 5
	}
	b[Dumpling] = BreakdownEntry{
		Count:  d,
		Points: dumplingScores[capped],
		Detail: fmt.Sprintf("%d dumpling(s)", d),
	}

	makiCount := counts[Maki1] + counts[Maki2] + counts[Maki3]
	makiPoints := MakiPoints(tableaus)[playerIdx]
	b[Maki1] = BreakdownEntry{
		Count:  makiCount,
		Points: makiPoints,
		Detail: fmt.Sprintf("%d icon(s)", MakiIcons(tableau)),
	}

	nigiriCount := counts[SalmonNigiri] + counts[SquidNigiri] + counts[EggNigiri]
	nigiriPoints, wasabiUsed := NigiriWasabiPoints(tableau)
	b[SalmonNigiri] = BreakdownEntry{
		Count:  nigiriCount,
		Points: nigiriPoints,
		Detail: fmt.Sprintf("%d wasabi boost(s)", wasabiUsed),
	}

	// 1ラウンド制ではプリンは0点
	b[Pudding] = BreakdownEntry{
		Count:  counts[Pudding],
		Points: 0,
		Detail: "no points in a single round",
	}

	b[Wasabi] = BreakdownEntry{
		Count:  counts[Wasabi],
		Points: 0,
		Detail: fmt.Sprintf("%d unused", PendingWasabi(tableau)),
	}
	return b, nil
}
