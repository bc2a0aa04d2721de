package selfplay

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunConfig configures a whole training run.
type RunConfig struct {
	Experiment        string
	Dir               string
	TotalSteps        int
	EvalInterval      int
	EvalGames         int
	FinalEvalGames    int
	GamesPerIteration int
}

func (c *RunConfig) setDefaults() {
	if c.TotalSteps == 0 {
		c.TotalSteps = 500000
	}
	if c.EvalInterval == 0 {
		c.EvalInterval = 25000
	}
	if c.EvalGames == 0 {
		c.EvalGames = 50
	}
	if c.FinalEvalGames == 0 {
		c.FinalEvalGames = 200
	}
	if c.GamesPerIteration == 0 {
		c.GamesPerIteration = 32
	}
}

// Run trains until the step budget is spent, evaluating against the
// random actor at every interval and checkpointing the best and final
// models under <dir>/<experiment>/.
//
// Runは、ステップ予算を使い切るまで学習し、インターバル毎にランダム
// アクターと対戦評価し、ベストと最終のモデルを保存します。
func (t *Trainer) Run(cfg RunConfig) (Results, error) {
	cfg.setDefaults()

	expDir := filepath.Join(cfg.Dir, cfg.Experiment)
	bestDir := filepath.Join(expDir, "best_model")
	finalDir := filepath.Join(expDir, "final_model")
	resultsPath := filepath.Join(expDir, "results.json")

	for _, dir := range []string{expDir, bestDir, finalDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Results{}, err
		}
	}

	results := Results{
		Experiment: cfg.Experiment,
		Players:    t.Players,
		Strategy:   string(t.Strategy),
		StartTime:  time.Now().Format(time.RFC3339),
		TotalSteps: cfg.TotalSteps,
		History:    []EvalEntry{},
	}

	nextEval := cfg.EvalInterval

	for t.Steps() < cfg.TotalSteps {
		records, err := t.Collect(cfg.GamesPerIteration)
		if err != nil {
			return results, err
		}

		if err := t.Update(records); err != nil {
			return results, err
		}

		if t.Steps() < nextEval {
			continue
		}

		eval, err := t.EvaluateVsRandom(cfg.EvalGames)
		if err != nil {
			return results, err
		}

		entry := EvalEntry{
			Timesteps:    t.Steps(),
			WinRate:      eval.WinRate,
			AvgScoreDiff: eval.AvgScoreDiff,
		}
		results.History = append(results.History, entry)

		fmt.Printf("steps=%d win_rate=%.3f avg_score_diff=%.2f\n", t.Steps(), eval.WinRate, eval.AvgScoreDiff)

		if eval.WinRate > results.BestWinRate {
			results.BestWinRate = eval.WinRate
			if err := t.Models.Save(bestDir); err != nil {
				return results, err
			}
			fmt.Printf("new best model: win_rate=%.3f\n", eval.WinRate)
		}

		if err := results.Save(resultsPath); err != nil {
			return results, err
		}

		for t.Steps() >= nextEval {
			nextEval += cfg.EvalInterval
		}
	}

	if err := t.Models.Save(finalDir); err != nil {
		return results, err
	}

	finalEval, err := t.EvaluateVsRandom(cfg.FinalEvalGames)
	if err != nil {
		return results, err
	}
	results.FinalEval = &EvalEntry{
		Timesteps:    t.Steps(),
		WinRate:      finalEval.WinRate,
		AvgScoreDiff: finalEval.AvgScoreDiff,
	}

	fmt.Printf("final: win_rate=%.3f avg_score_diff=%.2f\n", finalEval.WinRate, finalEval.AvgScoreDiff)

	if err := results.Save(resultsPath); err != nil {
		return results, err
	}
	return results, nil
}
