package selfplay

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/sw965/omw/mathx/randx"
	"github.com/sw965/sushigo"
	"github.com/sw965/sushigo/game"
	"github.com/sw965/sushigo/model/mlp"
	"gonum.org/v1/gonum/blas/blas32"
)

type Strategy string

const (
	// Sequential lets every seat play the current model.
	Sequential Strategy = "sequential"
	// Historical plays the current model against snapshots of itself.
	Historical Strategy = "historical"
)

var ErrUnknownStrategy = errors.New("unknown self-play strategy")

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case Sequential:
		return Sequential, nil
	case Historical:
		return Historical, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

type Record = game.Record[sushigo.State, sushigo.Card, sushigo.Agent]

const (
	CurrentName  game.ActorCriticName = "current"
	SnapshotName game.ActorCriticName = "snapshot"
	RandomName   game.ActorCriticName = "random"
)

// Trainer runs PPO-style self-play training of the policy and value
// heads over whole Sushi Go rounds.
//
// Trainerは、すしごーの1ラウンド全体を単位として、方策ヘッドと
// 価値ヘッドをPPO風に自己対局で学習させます。
type Trainer struct {
	Models  Models
	Players int

	Strategy         Strategy
	SnapshotInterval int
	SnapshotPoolCap  int

	ClipEpsilon float32
	ElmoAlpha   float32

	engine     game.Engine[sushigo.State, sushigo.Card, sushigo.Agent]
	policyAdam *mlp.Adam
	valueAdam  *mlp.Adam
	rngs       []*rand.Rand

	snapshots      []Models
	steps          int
	lastSnapshotAt int
}

func NewTrainer(players, hidden, parallel int, strategy Strategy, rng *rand.Rand) (*Trainer, error) {
	if parallel <= 0 {
		return nil, fmt.Errorf("parallel must be > 0, got %d", parallel)
	}

	engine, err := sushigo.NewEngine(players)
	if err != nil {
		return nil, err
	}

	models, err := NewModels(players, hidden, rng)
	if err != nil {
		return nil, err
	}

	rngs, err := randx.NewPCGs(parallel)
	if err != nil {
		return nil, err
	}

	return &Trainer{
		Models:  models,
		Players: players,

		Strategy:         strategy,
		SnapshotInterval: 10000,
		SnapshotPoolCap:  5,

		ClipEpsilon: 0.2,
		ElmoAlpha:   0.5,

		engine:     engine,
		policyAdam: mlp.NewAdam(models.Policy.Parameters),
		valueAdam:  mlp.NewAdam(models.Value.Parameters),
		rngs:       rngs,
	}, nil
}

// Steps is the number of environment steps consumed so far.
// One joint turn counts as one step per seat.
func (t *Trainer) Steps() int {
	return t.steps
}

// historicalActorCritic drives seat 0 with the current model and every
// other seat with a random snapshot from the pool. With an empty pool
// every seat plays the current model. The second return value records
// which model drove which seat.
func (t *Trainer) historicalActorCritic(rng *rand.Rand) (game.ActorCritic[sushigo.State, sushigo.Card, sushigo.Agent], map[sushigo.Agent]game.ActorCriticName) {
	current := t.Models.NewActorCritic(CurrentName)

	nameByAgent := make(map[sushigo.Agent]game.ActorCriticName, t.Players)
	for i := 0; i < t.Players; i++ {
		nameByAgent[sushigo.Agent(i)] = CurrentName
	}

	if len(t.snapshots) == 0 {
		return current, nameByAgent
	}

	opponents := make([]game.ActorCritic[sushigo.State, sushigo.Card, sushigo.Agent], t.Players)
	opponents[0] = current
	for i := 1; i < t.Players; i++ {
		snapshot := t.snapshots[rng.IntN(len(t.snapshots))]
		opponents[i] = snapshot.NewActorCritic(SnapshotName)
		nameByAgent[sushigo.Agent(i)] = SnapshotName
	}

	pvFunc := func(state sushigo.State, legalMovesByAgent game.LegalMovesByAgent[sushigo.Card, sushigo.Agent]) (game.PolicyByAgent[sushigo.Card, sushigo.Agent], game.ValueByAgent[sushigo.Agent], error) {
		jp := game.PolicyByAgent[sushigo.Card, sushigo.Agent]{}
		jv := game.ValueByAgent[sushigo.Agent]{}

		for agent := range legalMovesByAgent {
			acJP, acJV, err := opponents[int(agent)].PolicyValueFunc(state, legalMovesByAgent)
			if err != nil {
				return nil, nil, err
			}
			jp[agent] = acJP[agent]
			jv[agent] = acJV[agent]
		}
		return jp, jv, nil
	}

	return game.ActorCritic[sushigo.State, sushigo.Card, sushigo.Agent]{
		Name:            CurrentName,
		PolicyValueFunc: pvFunc,
		SelectFunc:      game.WeightedRandomSelectFunc[sushigo.Card, sushigo.Agent],
	}, nameByAgent
}

// Collect plays n self-play games and returns their records. It also
// advances the step counter and maintains the snapshot pool.
func (t *Trainer) Collect(n int) ([]Record, error) {
	inits := make([]sushigo.State, n)
	for i := range inits {
		state, err := sushigo.NewInitState(t.Players, t.rngs[0])
		if err != nil {
			return nil, err
		}
		inits[i] = state
	}

	var ac game.ActorCritic[sushigo.State, sushigo.Card, sushigo.Agent]
	var nameByAgent map[sushigo.Agent]game.ActorCriticName
	switch t.Strategy {
	case Historical:
		ac, nameByAgent = t.historicalActorCritic(t.rngs[0])
	case Sequential:
		ac = t.Models.NewActorCritic(CurrentName)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, t.Strategy)
	}

	handSize, err := sushigo.HandSize(t.Players)
	if err != nil {
		return nil, err
	}

	records, err := t.engine.RecordPlayouts(inits, ac, t.rngs, handSize)
	if err != nil {
		return nil, err
	}

	for i, record := range records {
		records[i].ActorCriticNameByAgent = nameByAgent
		t.steps += len(record.Steps) * t.Players
	}

	if t.Strategy == Historical && t.steps-t.lastSnapshotAt >= t.SnapshotInterval {
		t.snapshots = append(t.snapshots, t.Models.Clone())
		if len(t.snapshots) > t.SnapshotPoolCap {
			t.snapshots = t.snapshots[1:]
		}
		t.lastSnapshotAt = t.steps
	}

	return records, nil
}

func oneHotCard(card sushigo.Card) blas32.Vector {
	data := make([]float32, sushigo.NumCardTypes)
	data[int(card)] = 1.0
	return blas32.Vector{N: sushigo.NumCardTypes, Inc: 1, Data: data}
}

// Update performs one PPO-style update from the records: a clipped
// surrogate step on the policy head and an Elmo-blended regression step
// on the value head.
//
// Updateは、記録から1回のPPO風更新を行います。方策ヘッドには
// クリップ付き代理目的、価値ヘッドにはElmoブレンドした回帰を使います。
func (t *Trainer) Update(records []Record) error {
	policyGrads := t.Models.Policy.Parameters.NewGradsZerosLike()
	valueGrads := t.Models.Value.Parameters.NewGradsZerosLike()
	samples := 0

	for _, record := range records {
		elmoSteps := record.ElmoSteps(t.ElmoAlpha)

		for stepIdx, step := range record.Steps {
			for agent, move := range step.JointMove {
				// スナップショットが着手した席は学習しない
				if name, ok := record.ActorCriticNameByAgent[agent]; ok && name != CurrentName {
					continue
				}

				x, err := sushigo.Feature(step.State, agent)
				if err != nil {
					return err
				}

				z := record.ResultScoreByAgent[agent]
				oldValue := step.ValueByAgent[agent]
				advantage := z - oldValue

				oldProb := step.PolicyByAgent[agent][move]
				if oldProb <= 0.0 {
					return fmt.Errorf("recorded probability for move %v must be > 0", move)
				}

				legalMoves := make([]sushigo.Card, 0, len(step.PolicyByAgent[agent]))
				for m := range step.PolicyByAgent[agent] {
					legalMoves = append(legalMoves, m)
				}

				policy, _, err := t.Models.PolicyValue(step.State, agent, legalMoves)
				if err != nil {
					return err
				}
				ratio := policy[move] / oldProb

				// クリップされた側が有効な場合、勾配は0になる
				clippedActive := (advantage >= 0 && ratio > 1.0+t.ClipEpsilon) ||
					(advantage < 0 && ratio < 1.0-t.ClipEpsilon)

				if !clippedActive {
					y, backwards, err := t.Models.Policy.Forwards.Propagate(x, t.Models.Policy.Parameters)
					if err != nil {
						return err
					}

					// -min(ρA, clip(ρ)A) のロジットに関する勾配は A·ρ·(π - onehot)
					target := oneHotCard(move)
					chain := blas32.Vector{N: y.N, Inc: 1, Data: make([]float32, y.N)}
					blas32.Copy(y, chain)
					blas32.Axpy(-1.0, target, chain)
					blas32.Scal(advantage*ratio, chain)

					_, grads, err := backwards.Propagate(chain)
					if err != nil {
						return err
					}
					policyGrads.Axpy(1.0, grads)
				}

				// 価値ヘッドの教師: α·z + (1-α)·v
				valueTarget := elmoSteps[stepIdx].ValueByAgent[agent]
				tVec := blas32.Vector{N: 1, Inc: 1, Data: []float32{valueTarget}}
				_, vGrads, err := t.Models.Value.BackPropagateByTeacher(x, tVec)
				if err != nil {
					return err
				}
				valueGrads.Axpy(1.0, vGrads)

				samples++
			}
		}
	}

	if samples == 0 {
		return fmt.Errorf("no samples to update from")
	}

	policyGrads.Scal(1.0 / float32(samples))
	valueGrads.Scal(1.0 / float32(samples))

	if err := t.policyAdam.Optimizer(&t.Models.Policy, policyGrads); err != nil {
		return err
	}
	return t.valueAdam.Optimizer(&t.Models.Value, valueGrads)
}

// EvalResult summarizes an evaluation against the uniform random actor.
type EvalResult struct {
	Games        int     `json:"games"`
	WinRate      float32 `json:"win_rate"`
	AvgScoreDiff float32 `json:"avg_score_diff"`
}

// EvaluateVsRandom cross-plays the greedy current model against the
// uniform random actor over every seat permutation. A result score
// above 0.5 counts as a win, an exact tie as half a win. The score diff
// is in raw game points against the mean of the opponents.
func (t *Trainer) EvaluateVsRandom(games int) (EvalResult, error) {
	inits := make([]sushigo.State, games)
	for i := range inits {
		state, err := sushigo.NewInitState(t.Players, t.rngs[0])
		if err != nil {
			return EvalResult{}, err
		}
		inits[i] = state
	}

	acs := make([]game.ActorCritic[sushigo.State, sushigo.Card, sushigo.Agent], t.Players)
	acs[0] = t.Models.NewGreedyActorCritic(CurrentName)
	for i := 1; i < t.Players; i++ {
		random := game.NewRandomActorCritic[sushigo.State, sushigo.Card, sushigo.Agent]()
		random.Name = RandomName
		acs[i] = random
	}

	recorder, err := t.engine.NewCrossPlayoutRecorder(inits, acs, len(t.rngs))
	if err != nil {
		return EvalResult{}, err
	}

	handSize, err := sushigo.HandSize(t.Players)
	if err != nil {
		return EvalResult{}, err
	}
	recorder.SetStepCap(handSize)

	records, err := recorder.Collect()
	if err != nil {
		return EvalResult{}, err
	}

	var wins float32
	var scoreDiffSum float32
	modelGames := 0

	for _, record := range records {
		rawScores := record.FinalState.Scores()

		for agent, name := range record.ActorCriticNameByAgent {
			if name != CurrentName {
				continue
			}

			result := record.ResultScoreByAgent[agent]
			if result > 0.5 {
				wins += 1.0
			} else if result == 0.5 {
				wins += 0.5
			}

			var opponentSum int
			for other := range record.ActorCriticNameByAgent {
				if other != agent {
					opponentSum += rawScores[int(other)]
				}
			}
			opponentMean := float32(opponentSum) / float32(t.Players-1)
			scoreDiffSum += float32(rawScores[int(agent)]) - opponentMean
			modelGames++
		}
	}

	if modelGames == 0 {
		return EvalResult{}, fmt.Errorf("no games were played by the current model")
	}

	return EvalResult{
		Games:        modelGames,
		WinRate:      wins / float32(modelGames),
		AvgScoreDiff: scoreDiffSum / float32(modelGames),
	}, nil
}
