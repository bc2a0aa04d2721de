package sushigo_test

import (
	"testing"

	"github.com/sw965/sushigo"
)

func TestNigiriWasabiPoints(t *testing.T) {
	tests := []struct {
		name       string
		tableau    []sushigo.Card
		wantPoints int
		wantUsed   int
	}{
		{
			name:       "正常_わさびの後の玉子は3倍",
			tableau:    []sushigo.Card{sushigo.Wasabi, sushigo.EggNigiri},
			wantPoints: 3,
			wantUsed:   1,
		},
		{
			name:       "正常_玉子の後のわさびは無効",
			tableau:    []sushigo.Card{sushigo.EggNigiri, sushigo.Wasabi},
			wantPoints: 1,
			wantUsed:   0,
		},
		{
			name:       "正常_わさびサーモンは9点",
			tableau:    []sushigo.Card{sushigo.Wasabi, sushigo.SalmonNigiri},
			wantPoints: 9,
			wantUsed:   1,
		},
		{
			name: "正常_わさびは次の握りにのみ作用",
			tableau: []sushigo.Card{
				sushigo.Wasabi, sushigo.SquidNigiri, sushigo.SalmonNigiri,
			},
			wantPoints: 9,
			wantUsed:   1,
		},
		{
			name: "正常_わさび2枚が順番に消費される",
			tableau: []sushigo.Card{
				sushigo.Wasabi, sushigo.Wasabi, sushigo.EggNigiri, sushigo.SquidNigiri,
			},
			wantPoints: 9,
			wantUsed:   2,
		},
		{
			name:       "準正常_空の場",
			tableau:    []sushigo.Card{},
			wantPoints: 0,
			wantUsed:   0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gotPoints, gotUsed := sushigo.NigiriWasabiPoints(tc.tableau)
			if gotPoints != tc.wantPoints {
				t.Errorf("wantPoints: %d, gotPoints: %d", tc.wantPoints, gotPoints)
			}
			if gotUsed != tc.wantUsed {
				t.Errorf("wantUsed: %d, gotUsed: %d", tc.wantUsed, gotUsed)
			}
		})
	}
}

func TestPendingWasabi(t *testing.T) {
	tests := []struct {
		name    string
		tableau []sushigo.Card
		want    int
	}{
		{
			name:    "正常_未使用のわさび",
			tableau: []sushigo.Card{sushigo.Wasabi, sushigo.Wasabi, sushigo.EggNigiri},
			want:    1,
		},
		{
			name:    "正常_握りが先ならわさびは残る",
			tableau: []sushigo.Card{sushigo.EggNigiri, sushigo.Wasabi},
			want:    1,
		},
		{
			// 握りの方が多くても負の値にはならない
			name:    "準正常_握り過多",
			tableau: []sushigo.Card{sushigo.EggNigiri, sushigo.SalmonNigiri},
			want:    0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := sushigo.PendingWasabi(tc.tableau)
			if got != tc.want {
				t.Errorf("want: %d, got: %d", tc.want, got)
			}
		})
	}
}

func TestSimpleScore(t *testing.T) {
	tests := []struct {
		name    string
		tableau []sushigo.Card
		want    int
	}{
		{
			name:    "正常_天ぷら2枚で5点",
			tableau: []sushigo.Card{sushigo.Tempura, sushigo.Tempura},
			want:    5,
		},
		{
			name:    "正常_天ぷら3枚でも5点",
			tableau: []sushigo.Card{sushigo.Tempura, sushigo.Tempura, sushigo.Tempura},
			want:    5,
		},
		{
			name:    "正常_刺身3枚で10点",
			tableau: []sushigo.Card{sushigo.Sashimi, sushigo.Sashimi, sushigo.Sashimi},
			want:    10,
		},
		{
			name:    "正常_刺身2枚は0点",
			tableau: []sushigo.Card{sushigo.Sashimi, sushigo.Sashimi},
			want:    0,
		},
		{
			name: "正常_餃子5枚で15点",
			tableau: []sushigo.Card{
				sushigo.Dumpling, sushigo.Dumpling, sushigo.Dumpling,
				sushigo.Dumpling, sushigo.Dumpling,
			},
			want: 15,
		},
		{
			name: "正常_餃子6枚でも15点",
			tableau: []sushigo.Card{
				sushigo.Dumpling, sushigo.Dumpling, sushigo.Dumpling,
				sushigo.Dumpling, sushigo.Dumpling, sushigo.Dumpling,
			},
			want: 15,
		},
		{
			name:    "正常_巻き寿司は単独採点では0点",
			tableau: []sushigo.Card{sushigo.Maki3, sushigo.Maki3},
			want:    0,
		},
		{
			name:    "正常_プリンは1ラウンドでは0点",
			tableau: []sushigo.Card{sushigo.Pudding, sushigo.Pudding},
			want:    0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := sushigo.SimpleScore(tc.tableau)
			if got != tc.want {
				t.Errorf("want: %d, got: %d", tc.want, got)
			}
		})
	}
}

func TestMakiPoints(t *testing.T) {
	tests := []struct {
		name     string
		tableaus [][]sushigo.Card
		want     []int
	}{
		{
			name: "正常_単独勝者は6点",
			tableaus: [][]sushigo.Card{
				{sushigo.Maki3, sushigo.Maki3},
				{sushigo.Maki1},
			},
			want: []int{6, 0},
		},
		{
			name: "正常_2人同点なら3点ずつ",
			tableaus: [][]sushigo.Card{
				{sushigo.Maki2},
				{sushigo.Maki2},
			},
			want: []int{3, 3},
		},
		{
			name: "正常_3人同点なら2点ずつ",
			tableaus: [][]sushigo.Card{
				{sushigo.Maki1},
				{sushigo.Maki1},
				{sushigo.Maki1},
			},
			want: []int{2, 2, 2},
		},
		{
			name: "準正常_誰も巻き寿司を出していない",
			tableaus: [][]sushigo.Card{
				{sushigo.Tempura},
				{sushigo.Pudding},
			},
			want: []int{0, 0},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := sushigo.MakiPoints(tc.tableaus)
			if len(got) != len(tc.want) {
				t.Fatalf("want length: %d, got length: %d", len(tc.want), len(got))
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("player %d: want: %d, got: %d", i, tc.want[i], got[i])
				}
			}
		})
	}
}

func TestCompetitiveScores(t *testing.T) {
	// 天ぷら1組(5点) + わさびサーモン(9点) + 巻き寿司単独勝利(6点) = 20点
	tableaus := [][]sushigo.Card{
		{
			sushigo.Tempura, sushigo.Tempura,
			sushigo.Wasabi, sushigo.SalmonNigiri,
			sushigo.Maki3, sushigo.Maki3,
		},
		{
			sushigo.Pudding, sushigo.Wasabi, sushigo.Sashimi,
		},
	}

	got := sushigo.CompetitiveScores(tableaus)
	want := []int{20, 0}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("player %d: want: %d, got: %d", i, want[i], got[i])
		}
	}
}

func TestNewBreakdownTotal(t *testing.T) {
	tableaus := [][]sushigo.Card{
		{
			sushigo.Tempura, sushigo.Tempura,
			sushigo.Wasabi, sushigo.SalmonNigiri,
			sushigo.Maki3, sushigo.Maki3,
			sushigo.Dumpling, sushigo.Dumpling,
		},
		{
			sushigo.Sashimi, sushigo.Sashimi, sushigo.Sashimi,
			sushigo.Maki1,
			sushigo.EggNigiri,
		},
	}

	scores := sushigo.CompetitiveScores(tableaus)
	for i := range tableaus {
		breakdown, err := sushigo.NewBreakdown(tableaus, i)
		if err != nil {
			t.Fatal(err)
		}

		if got := breakdown.Total(); got != scores[i] {
			t.Errorf("player %d: breakdown total %d does not match score %d", i, got, scores[i])
		}
	}

	if _, err := sushigo.NewBreakdown(tableaus, 2); err == nil {
		t.Errorf("out-of-range player index should be an error")
	}
}
