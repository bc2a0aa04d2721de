package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"

	"github.com/sw965/omw/mathx/randx"
	"github.com/sw965/sushigo"
	"github.com/sw965/sushigo/selfplay"
)

func main() {
	experiment := flag.String("experiment", "sushigo_selfplay", "実験名（チェックポイントの保存先ディレクトリ名）")
	dir := flag.String("dir", "experiments", "実験ディレクトリのルート")
	players := flag.Int("players", 2, "プレイヤー数 (2-5)")
	steps := flag.Int("steps", 500000, "総環境ステップ数")
	evalInterval := flag.Int("eval-interval", 25000, "評価を行うステップ間隔")
	evalGames := flag.Int("eval-games", 50, "途中評価のゲーム数")
	finalEvalGames := flag.Int("final-eval-games", 200, "最終評価のゲーム数")
	gamesPerIter := flag.Int("games-per-iter", 32, "1回の更新で収集するゲーム数")
	strategy := flag.String("strategy", "sequential", "自己対局戦略 (sequential|historical)")
	parallel := flag.Int("parallel", 4, "並列プレイアウト数")
	hidden := flag.Int("hidden", 128, "隠れ層のユニット数")
	seed := flag.Uint64("seed", 1, "モデル初期化のシード")
	demoGames := flag.Int("demo-games", 5, "学習後のデモゲーム数")
	flag.Parse()

	strat, err := selfplay.ParseStrategy(*strategy)
	if err != nil {
		log.Fatalf("戦略の指定が不正です: %v", err)
	}

	initRng := rand.New(rand.NewPCG(*seed, 0))
	trainer, err := selfplay.NewTrainer(*players, *hidden, *parallel, strat, initRng)
	if err != nil {
		log.Fatalf("トレーナーの初期化に失敗しました: %v", err)
	}

	log.Printf("学習を開始します: experiment=%s players=%d steps=%d strategy=%s", *experiment, *players, *steps, strat)

	results, err := trainer.Run(selfplay.RunConfig{
		Experiment:        *experiment,
		Dir:               *dir,
		TotalSteps:        *steps,
		EvalInterval:      *evalInterval,
		EvalGames:         *evalGames,
		FinalEvalGames:    *finalEvalGames,
		GamesPerIteration: *gamesPerIter,
	})
	if err != nil {
		log.Fatalf("学習に失敗しました: %v", err)
	}

	log.Printf("学習が完了しました: best_win_rate=%.3f", results.BestWinRate)

	if err := runDemo(trainer, *demoGames); err != nil {
		log.Fatalf("デモゲームに失敗しました: %v", err)
	}
}

// runDemo plays a few self-play games with the trained model and
// renders every turn.
func runDemo(trainer *selfplay.Trainer, games int) error {
	engine, err := sushigo.NewEngine(trainer.Players)
	if err != nil {
		return err
	}

	handSize, err := sushigo.HandSize(trainer.Players)
	if err != nil {
		return err
	}

	rngs, err := randx.NewPCGs(1)
	if err != nil {
		return err
	}
	ac := trainer.Models.NewGreedyActorCritic(selfplay.CurrentName)

	for g := 0; g < games; g++ {
		init, err := sushigo.NewInitState(trainer.Players, rngs[0])
		if err != nil {
			return err
		}

		records, err := engine.RecordPlayouts([]sushigo.State{init}, ac, rngs, handSize)
		if err != nil {
			return err
		}
		record := records[0]

		fmt.Printf("=== demo game %d ===\n", g+1)
		for _, step := range record.Steps {
			fmt.Print(step.State)
			for _, agent := range engine.Agents {
				fmt.Printf("  player %d picks %v\n", agent, step.JointMove[agent])
			}
		}

		final := record.FinalState
		fmt.Print(final)

		scores := final.Scores()
		for i := range final.Tableaus {
			breakdown, err := sushigo.NewBreakdown(final.Tableaus, i)
			if err != nil {
				return err
			}
			fmt.Printf("player %d: %d points\n", i, scores[i])
			fmt.Print(sushigo.RenderBreakdown(breakdown))
		}
	}
	return nil
}
