package game_test

import (
	"maps"
	"math"
	"strings"
	"testing"

	"github.com/sw965/omw/mathx/randx"
	"github.com/sw965/sushigo/game"
)

func TestNewRankByAgent(t *testing.T) {
	tests := []struct {
		name           string
		agentsPerRank  [][]string
		want           game.RankByAgent[string]
		wantErr        bool
		wantErrMsgSubs []string
	}{
		//正常
		{
			name: "正常_同順なし",
			agentsPerRank: [][]string{
				{"チームA"},
				{"チームB"},
				{"チームC"},
			},
			want: game.RankByAgent[string]{
				"チームA": 1,
				"チームB": 2,
				"チームC": 3,
			},
		},
		{
			name: "正常_同順あり",
			agentsPerRank: [][]string{
				{"チームB"},
				{"チームA", "チームC"},
				{"チームD"},
			},
			want: game.RankByAgent[string]{
				"チームB": 1,
				"チームA": 2,
				"チームC": 2,
				"チームD": 4,
			},
		},
		//異常系
		{
			name: "異常_エージェント重複",
			// チームCが重複
			agentsPerRank: [][]string{
				{"チームC"},
				{"チームA", "チームB"},
				{"チームD", "チームC"},
			},
			wantErr: true,
			wantErrMsgSubs: []string{
				"duplicate",
			},
		},
		{
			name: "異常_空の順位",
			agentsPerRank: [][]string{
				{"チームA"},
				{},
				{"チームB"},
			},
			wantErr: true,
			wantErrMsgSubs: []string{
				"empty",
			},
		},
		//準正常系
		{
			name:          "準正常_nil入力",
			agentsPerRank: nil,
			want:          game.RankByAgent[string]{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Helper()
			got, err := game.NewRankByAgent(tc.agentsPerRank)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("エラーを期待したが、nilが返された")
				}

				errMsg := err.Error()
				for _, sub := range tc.wantErrMsgSubs {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("errMsg = %s, sub = %s", errMsg, sub)
					}
				}
				return
			}

			if err != nil {
				t.Fatalf("予期せぬエラーが発生した: %v", err)
			}

			if !maps.Equal(got, tc.want) {
				t.Errorf("want: %v, got: %v", tc.want, got)
			}
		})
	}
}

func TestStandardResultScoreByAgentFunc(t *testing.T) {
	tests := []struct {
		name        string
		rankByAgent game.RankByAgent[string]
		want        map[string]float32
	}{
		{
			name: "二人用ゲーム_同順なし",
			rankByAgent: game.RankByAgent[string]{
				"黒": 1,
				"白": 2,
			},
			want: map[string]float32{
				"黒": 1.0,
				"白": 0.0,
			},
		},
		{
			name: "二人用ゲーム_引き分け",
			rankByAgent: game.RankByAgent[string]{
				"黒": 1,
				"白": 1,
			},
			want: map[string]float32{
				"黒": 0.5,
				"白": 0.5,
			},
		},
		{
			name: "三人用ゲーム_同順なし",
			rankByAgent: game.RankByAgent[string]{
				"A": 1,
				"C": 2,
				"B": 3,
			},
			want: map[string]float32{
				"A": 1.0,
				"C": 0.5,
				"B": 0.0,
			},
		},
		{
			name: "三人用ゲーム_同順あり_1位1人_2位2人",
			rankByAgent: game.RankByAgent[string]{
				"A": 1,
				"B": 2,
				"C": 2,
			},
			want: map[string]float32{
				"A": 1.0,
				"B": 0.25,
				"C": 0.25,
			},
		},
		{
			name: "三人用ゲーム_同順あり_1位2人_3位1人",
			rankByAgent: game.RankByAgent[string]{
				"A": 1,
				"B": 1,
				"C": 3,
			},
			want: map[string]float32{
				"A": 0.75,
				"B": 0.75,
				"C": 0.0,
			},
		},
	}

	eps := 0.0001
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Helper()
			got, err := game.StandardResultScoreByAgentFunc(tc.rankByAgent)
			if err != nil {
				t.Fatalf("予期せぬエラーが発生した: %v", err)
			}

			for k, gv := range got {
				wv := tc.want[k]
				diff := math.Abs(float64(gv - wv))
				if diff > eps {
					t.Errorf("want: %f(±%f), got: %f, key: %s", wv, eps, gv, k)
				}
			}
		})
	}
}

// カウントアップするだけの終わらないゲームと、rounds手で終わるゲーム。
func newCounterEngine(rounds int) *game.Engine[int, int, string] {
	logic := game.Logic[int, int, string]{
		LegalMovesByAgentFunc: func(state int) game.LegalMovesByAgent[int, string] {
			return game.LegalMovesByAgent[int, string]{
				"先手": {0, 1},
				"後手": {0, 1},
			}
		},
		MoveFunc: func(state int, jointMove map[string]int) (int, error) {
			return state + 1, nil
		},
		EqualFunc: func(a, b int) bool { return a == b },
	}

	rankByAgentFunc := func(state int) (game.RankByAgent[string], error) {
		if rounds >= 0 && state >= rounds {
			return game.NewRankByAgent([][]string{{"先手"}, {"後手"}})
		}
		return nil, nil
	}

	return &game.Engine[int, int, string]{
		Logic:           logic,
		RankByAgentFunc: rankByAgentFunc,
		Agents:          []string{"先手", "後手"},
	}
}

func TestEngineDefaultResultScore(t *testing.T) {
	// ResultScoreByAgentFuncがnilでも標準のスコア変換が使われる
	engine := newCounterEngine(3)

	scores, err := engine.EvaluateResultScoreByAgent(3)
	if err != nil {
		t.Fatalf("予期せぬエラーが発生した: %v", err)
	}

	want := game.ResultScoreByAgent[string]{"先手": 1.0, "後手": 0.0}
	if !maps.Equal(scores, want) {
		t.Errorf("want: %v, got: %v", want, scores)
	}
}

func TestRecordPlayoutsStepCap(t *testing.T) {
	rngs, err := randx.NewPCGs(1)
	if err != nil {
		t.Fatal(err)
	}
	ac := game.NewRandomActorCritic[int, int, string]()

	t.Run("異常_上限超過", func(t *testing.T) {
		// 終わらないゲームは上限でエラーになる
		engine := newCounterEngine(-1)
		_, err := engine.RecordPlayouts([]int{0}, ac, rngs, 5)
		if err == nil {
			t.Fatalf("エラーを期待したが、nilが返された")
		}
		if !strings.Contains(err.Error(), "ステップ上限") {
			t.Errorf("errMsg = %s", err.Error())
		}
	})

	t.Run("正常_上限ちょうどで終局", func(t *testing.T) {
		// ちょうどstepCap手で終わるゲームはエラーにならない
		engine := newCounterEngine(5)
		records, err := engine.RecordPlayouts([]int{0}, ac, rngs, 5)
		if err != nil {
			t.Fatalf("予期せぬエラーが発生した: %v", err)
		}
		if len(records[0].Steps) != 5 {
			t.Errorf("ステップ数 want: 5, got: %d", len(records[0].Steps))
		}
	})
}

func TestMaxSelectFunc(t *testing.T) {
	rngs, err := randx.NewPCGs(1)
	if err != nil {
		t.Fatal(err)
	}
	policy := game.Policy[string]{"グー": 0.2, "チョキ": 0.5, "パー": 0.3}

	for i := 0; i < 10; i++ {
		got, err := game.MaxSelectFunc(policy, "先手", rngs[0])
		if err != nil {
			t.Fatalf("予期せぬエラーが発生した: %v", err)
		}
		if got != "チョキ" {
			t.Errorf("want: チョキ, got: %s", got)
		}
	}
}

func TestUniformPolicyNoValueFunc(t *testing.T) {
	legalMovesByAgent := game.LegalMovesByAgent[string, string]{
		"先手": {"グー", "チョキ", "パー"},
		"後手": {"グー", "チョキ"},
	}

	jp, jv, err := game.UniformPolicyNoValueFunc[int](0, legalMovesByAgent)
	if err != nil {
		t.Fatalf("予期せぬエラーが発生した: %v", err)
	}

	wantJP := game.PolicyByAgent[string, string]{
		"先手": {"グー": 1.0 / 3.0, "チョキ": 1.0 / 3.0, "パー": 1.0 / 3.0},
		"後手": {"グー": 0.5, "チョキ": 0.5},
	}

	for agent, want := range wantJP {
		if !maps.Equal(jp[agent], want) {
			t.Errorf("agent %s: want: %v, got: %v", agent, want, jp[agent])
		}
		if jv[agent] != 0.0 {
			t.Errorf("agent %s: 価値は0.0であるべき", agent)
		}
	}
}

func TestRecordElmoSteps(t *testing.T) {
	record := game.Record[int, int, string]{
		Steps: []game.Step[int, int, string]{
			{
				State:        0,
				ValueByAgent: game.ValueByAgent[string]{"A": 0.8, "B": 0.2},
			},
			{
				State:        1,
				ValueByAgent: game.ValueByAgent[string]{"A": 0.6, "B": 0.4},
			},
		},
		ResultScoreByAgent: game.ResultScoreByAgent[string]{"A": 1.0, "B": 0.0},
	}

	elmoSteps := record.ElmoSteps(0.5)

	wants := []game.ValueByAgent[string]{
		{"A": 0.9, "B": 0.1},
		{"A": 0.8, "B": 0.2},
	}

	eps := 0.0001
	for i, want := range wants {
		got := elmoSteps[i].ValueByAgent
		for agent, wv := range want {
			diff := math.Abs(float64(got[agent] - wv))
			if diff > eps {
				t.Errorf("step %d agent %s: want: %f, got: %f", i, agent, wv, got[agent])
			}
		}
	}

	// 元のRecordは変更されない
	if record.Steps[0].ValueByAgent["A"] != 0.8 {
		t.Errorf("ElmoStepsは元のRecordを変更してはならない")
	}
}
