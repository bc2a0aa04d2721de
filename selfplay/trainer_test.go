package selfplay_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sw965/omw/mathx/randx"
	"github.com/sw965/sushigo"
	"github.com/sw965/sushigo/game"
	"github.com/sw965/sushigo/selfplay"
)

func newTestTrainer(t *testing.T, players int, strategy selfplay.Strategy) *selfplay.Trainer {
	t.Helper()
	rngs, err := randx.NewPCGs(1)
	if err != nil {
		t.Fatal(err)
	}
	trainer, err := selfplay.NewTrainer(players, 16, 2, strategy, rngs[0])
	if err != nil {
		t.Fatal(err)
	}
	return trainer
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    selfplay.Strategy
		wantErr bool
	}{
		{name: "正常_sequential", input: "sequential", want: selfplay.Sequential},
		{name: "正常_historical", input: "historical", want: selfplay.Historical},
		{name: "異常_未知の戦略", input: "league", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := selfplay.ParseStrategy(tc.input)
			if tc.wantErr {
				if !errors.Is(err, selfplay.ErrUnknownStrategy) {
					t.Fatalf("want ErrUnknownStrategy, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("want: %v, got: %v", tc.want, got)
			}
		})
	}
}

func TestCollect(t *testing.T) {
	trainer := newTestTrainer(t, 2, selfplay.Sequential)

	records, err := trainer.Collect(3)
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != 3 {
		t.Fatalf("want 3 records, got %d", len(records))
	}

	for i, record := range records {
		if len(record.Steps) != 10 {
			t.Errorf("record %d: a 2-player round lasts 10 turns, got %d", i, len(record.Steps))
		}
		if !record.FinalState.IsEnd() {
			t.Errorf("record %d: final state must have empty hands", i)
		}
	}

	// 1ジョイントターン = 席数ステップ
	if got := trainer.Steps(); got != 3*10*2 {
		t.Errorf("want 60 steps, got %d", got)
	}
}

func TestCollectHistorical(t *testing.T) {
	trainer := newTestTrainer(t, 2, selfplay.Historical)
	trainer.SnapshotInterval = 20
	trainer.SnapshotPoolCap = 2

	// スナップショットが無くても動く
	if _, err := trainer.Collect(2); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 4; i++ {
		if _, err := trainer.Collect(2); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCollectHistoricalMarksLearnerSeat(t *testing.T) {
	trainer := newTestTrainer(t, 2, selfplay.Historical)
	trainer.SnapshotInterval = 1

	// 1回目の収集でスナップショットが1つ作られる
	records, err := trainer.Collect(1)
	if err != nil {
		t.Fatal(err)
	}
	for agent, name := range records[0].ActorCriticNameByAgent {
		if name != selfplay.CurrentName {
			t.Errorf("プールが空の間は全席が現行モデル: 席%d = %s", agent, name)
		}
	}

	// 2回目の収集では席0が現行モデル、席1がスナップショット
	records, err = trainer.Collect(1)
	if err != nil {
		t.Fatal(err)
	}
	for _, record := range records {
		if got := record.ActorCriticNameByAgent[sushigo.Agent(0)]; got != selfplay.CurrentName {
			t.Errorf("席0 want: %s, got: %s", selfplay.CurrentName, got)
		}
		if got := record.ActorCriticNameByAgent[sushigo.Agent(1)]; got != selfplay.SnapshotName {
			t.Errorf("席1 want: %s, got: %s", selfplay.SnapshotName, got)
		}
	}
}

func TestUpdateSkipsSnapshotSeats(t *testing.T) {
	trainer := newTestTrainer(t, 2, selfplay.Historical)

	// 席1の着手の記録確率は0。席1が学習対象に含まれると
	// Updateは必ずエラーになるので、スキップの検証に使える。
	state := sushigo.State{
		Hands:    [][]sushigo.Card{{sushigo.Tempura}, {sushigo.Sashimi}},
		Tableaus: [][]sushigo.Card{{}, {}},
	}
	record := selfplay.Record{
		Steps: []game.Step[sushigo.State, sushigo.Card, sushigo.Agent]{
			{
				State: state,
				JointMove: map[sushigo.Agent]sushigo.Card{
					0: sushigo.Tempura,
					1: sushigo.Sashimi,
				},
				PolicyByAgent: game.PolicyByAgent[sushigo.Card, sushigo.Agent]{
					0: {sushigo.Tempura: 1.0},
					1: {sushigo.Sashimi: 0.0},
				},
				ValueByAgent: game.ValueByAgent[sushigo.Agent]{0: 0.5, 1: 0.5},
			},
		},
		ResultScoreByAgent: game.ResultScoreByAgent[sushigo.Agent]{0: 1.0, 1: 0.0},
		ActorCriticNameByAgent: map[sushigo.Agent]game.ActorCriticName{
			0: selfplay.CurrentName,
			1: selfplay.SnapshotName,
		},
	}

	if err := trainer.Update([]selfplay.Record{record}); err != nil {
		t.Fatalf("スナップショットの席は学習から除外されるべき: %v", err)
	}

	record.ActorCriticNameByAgent[sushigo.Agent(1)] = selfplay.CurrentName
	if err := trainer.Update([]selfplay.Record{record}); err == nil {
		t.Fatalf("記録確率0の着手を学習しようとした場合はエラーになるべき")
	}
}

func TestUpdateChangesParameters(t *testing.T) {
	trainer := newTestTrainer(t, 2, selfplay.Sequential)

	records, err := trainer.Collect(2)
	if err != nil {
		t.Fatal(err)
	}

	before := trainer.Models.Policy.Parameters.Clone()
	beforeValue := trainer.Models.Value.Parameters.Clone()

	if err := trainer.Update(records); err != nil {
		t.Fatal(err)
	}

	changed := false
	for i := range before {
		for j := range before[i].Weight.Data {
			if before[i].Weight.Data[j] != trainer.Models.Policy.Parameters[i].Weight.Data[j] {
				changed = true
			}
		}
	}
	if !changed {
		t.Errorf("policy parameters did not change after an update")
	}

	changed = false
	for i := range beforeValue {
		for j := range beforeValue[i].Weight.Data {
			if beforeValue[i].Weight.Data[j] != trainer.Models.Value.Parameters[i].Weight.Data[j] {
				changed = true
			}
		}
	}
	if !changed {
		t.Errorf("value parameters did not change after an update")
	}
}

func TestEvaluateVsRandom(t *testing.T) {
	trainer := newTestTrainer(t, 2, selfplay.Sequential)

	result, err := trainer.EvaluateVsRandom(4)
	if err != nil {
		t.Fatal(err)
	}

	// 2席なら席順の入れ替えで2倍のゲームが行われる
	if result.Games != 8 {
		t.Errorf("want 8 model games, got %d", result.Games)
	}

	if result.WinRate < 0.0 || result.WinRate > 1.0 {
		t.Errorf("win rate %f out of [0, 1]", result.WinRate)
	}
}

func TestRunWritesCheckpointsAndResults(t *testing.T) {
	trainer := newTestTrainer(t, 2, selfplay.Sequential)

	dir := t.TempDir()
	results, err := trainer.Run(selfplay.RunConfig{
		Experiment:        "smoke",
		Dir:               dir,
		TotalSteps:        120,
		EvalInterval:      60,
		EvalGames:         2,
		FinalEvalGames:    2,
		GamesPerIteration: 2,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(results.History) == 0 {
		t.Errorf("evaluation history must not be empty")
	}
	if results.FinalEval == nil {
		t.Errorf("final evaluation must be recorded")
	}

	for _, path := range []string{
		filepath.Join(dir, "smoke", "results.json"),
		filepath.Join(dir, "smoke", "final_model", "policy.gob"),
		filepath.Join(dir, "smoke", "final_model", "value.gob"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing artifact: %v", err)
		}
	}

	loaded, err := selfplay.LoadResults(filepath.Join(dir, "smoke", "results.json"))
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Experiment != "smoke" || loaded.Players != 2 {
		t.Errorf("unexpected results metadata: %+v", loaded)
	}
}
