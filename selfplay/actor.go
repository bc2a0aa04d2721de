package selfplay

import (
	"fmt"
	"math/rand/v2"

	"github.com/sw965/sushigo"
	"github.com/sw965/sushigo/game"
	"github.com/sw965/sushigo/model/mlp"
)

// Models is a policy head and a value head over the same feature vector.
// The policy head outputs a distribution over the 12 card types; the
// value head outputs the expected result score in [0, 1].
//
// Modelsは、同じ特徴ベクトルを入力とする方策ヘッドと価値ヘッドです。
type Models struct {
	Policy mlp.Model
	Value  mlp.Model
}

// NewModels builds both heads for the given player count: two hidden
// leaky-ReLU layers, softmax policy output, sigmoid value output.
func NewModels(players, hidden int, rng *rand.Rand) (Models, error) {
	featureLen, err := sushigo.FeatureLen(players)
	if err != nil {
		return Models{}, err
	}

	policy := mlp.Model{}
	policy.AppendAffine(featureLen, hidden, rng)
	policy.AppendLeakyReLU(0.1)
	policy.AppendAffine(hidden, hidden, rng)
	policy.AppendLeakyReLU(0.1)
	policy.AppendAffine(hidden, sushigo.NumCardTypes, rng)
	policy.AppendOutputSoftmaxAndSetCrossEntropyLoss()

	value := mlp.Model{}
	value.AppendAffine(featureLen, hidden, rng)
	value.AppendLeakyReLU(0.1)
	value.AppendAffine(hidden, hidden, rng)
	value.AppendLeakyReLU(0.1)
	value.AppendAffine(hidden, 1, rng)
	value.AppendOutputSigmoidAndSetSumSquaredLoss()

	return Models{Policy: policy, Value: value}, nil
}

func (ms Models) Clone() Models {
	return Models{
		Policy: ms.Policy.Clone(),
		Value:  ms.Value.Clone(),
	}
}

// Save writes both heads' parameters under dir as policy.gob / value.gob.
func (ms Models) Save(dir string) error {
	if err := ms.Policy.Parameters.Save(dir + "/policy.gob"); err != nil {
		return err
	}
	return ms.Value.Parameters.Save(dir + "/value.gob")
}

// LoadParameters replaces both heads' parameters with ones saved by Save.
func (ms *Models) LoadParameters(dir string) error {
	policyParams, err := mlp.LoadParameters(dir + "/policy.gob")
	if err != nil {
		return err
	}
	valueParams, err := mlp.LoadParameters(dir + "/value.gob")
	if err != nil {
		return err
	}
	ms.Policy.Parameters = policyParams
	ms.Value.Parameters = valueParams
	return nil
}

// PolicyValue evaluates one seat: the policy head's distribution masked
// to the legal moves and renormalized, and the value head's scalar.
//
// PolicyValueは1つの席を評価します。方策ヘッドの分布を合法手に
// マスクして正規化し直します。
func (ms *Models) PolicyValue(state sushigo.State, agent sushigo.Agent, legalMoves []sushigo.Card) (game.Policy[sushigo.Card], float32, error) {
	feature, err := sushigo.Feature(state, agent)
	if err != nil {
		return nil, 0.0, err
	}

	y, err := ms.Policy.Predict(feature)
	if err != nil {
		return nil, 0.0, err
	}

	if len(legalMoves) == 0 {
		return nil, 0.0, fmt.Errorf("agent %d has no legal moves", agent)
	}

	policy := game.Policy[sushigo.Card]{}
	var sum float32
	for _, m := range legalMoves {
		p := y.Data[int(m)]
		policy[m] = p
		sum += p
	}

	// 合法手の確率が全て潰れている場合は一様にフォールバック
	if sum <= 0.0 {
		uniform := 1.0 / float32(len(legalMoves))
		for _, m := range legalMoves {
			policy[m] = uniform
		}
	} else {
		for m, p := range policy {
			policy[m] = p / sum
		}
	}

	v, err := ms.Value.Predict(feature)
	if err != nil {
		return nil, 0.0, err
	}
	return policy, v.Data[0], nil
}

// NewActorCritic wraps the models as a stochastic actor-critic.
func (ms *Models) NewActorCritic(name game.ActorCriticName) game.ActorCritic[sushigo.State, sushigo.Card, sushigo.Agent] {
	pvFunc := func(state sushigo.State, legalMovesByAgent game.LegalMovesByAgent[sushigo.Card, sushigo.Agent]) (game.PolicyByAgent[sushigo.Card, sushigo.Agent], game.ValueByAgent[sushigo.Agent], error) {
		jp := game.PolicyByAgent[sushigo.Card, sushigo.Agent]{}
		jv := game.ValueByAgent[sushigo.Agent]{}

		for agent, legalMoves := range legalMovesByAgent {
			policy, v, err := ms.PolicyValue(state, agent, legalMoves)
			if err != nil {
				return nil, nil, err
			}
			jp[agent] = policy
			jv[agent] = v
		}
		return jp, jv, nil
	}

	return game.ActorCritic[sushigo.State, sushigo.Card, sushigo.Agent]{
		Name:            name,
		PolicyValueFunc: pvFunc,
		SelectFunc:      game.WeightedRandomSelectFunc[sushigo.Card, sushigo.Agent],
	}
}

// NewGreedyActorCritic is NewActorCritic with argmax move selection,
// for evaluation and interactive play.
func (ms *Models) NewGreedyActorCritic(name game.ActorCriticName) game.ActorCritic[sushigo.State, sushigo.Card, sushigo.Agent] {
	ac := ms.NewActorCritic(name)
	ac.SelectFunc = game.MaxSelectFunc[sushigo.Card, sushigo.Agent]
	return ac
}
