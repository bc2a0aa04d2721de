package game

import (
	"fmt"
)

type PolicyByAgent[M, A comparable] map[A]Policy[M]
type ValueByAgent[A comparable] map[A]float32

// PolicyValueFunc returns every agent's policy and state value at once.
//
// PolicyValueFuncは、全エージェント分の方策と局面評価をまとめて返します。
type PolicyValueFunc[S any, M, A comparable] func(S, LegalMovesByAgent[M, A]) (PolicyByAgent[M, A], ValueByAgent[A], error)

// UniformPolicy assigns equal weight to every legal move.
func UniformPolicy[M comparable](legalMoves []M) (Policy[M], error) {
	n := len(legalMoves)
	if n == 0 {
		return nil, fmt.Errorf("合法手が空の為、一様なPolicyを作れません。")
	}

	policy := make(Policy[M], n)
	p := 1.0 / float32(n)
	for _, m := range legalMoves {
		policy[m] = p
	}
	return policy, nil
}

func UniformPolicyNoValueFunc[S any, M, A comparable](state S, legalMovesByAgent LegalMovesByAgent[M, A]) (PolicyByAgent[M, A], ValueByAgent[A], error) {
	jp := make(PolicyByAgent[M, A], len(legalMovesByAgent))
	jv := make(ValueByAgent[A], len(legalMovesByAgent))

	for agent, moves := range legalMovesByAgent {
		policy, err := UniformPolicy(moves)
		if err != nil {
			return nil, nil, fmt.Errorf("エージェント %v: %w", agent, err)
		}
		jp[agent] = policy
		jv[agent] = 0.0
	}
	return jp, jv, nil
}

// ActorCritic is a named pair of a joint policy-value function and a
// move selector.
type ActorCritic[S any, M, A comparable] struct {
	Name            ActorCriticName
	PolicyValueFunc PolicyValueFunc[S, M, A]
	SelectFunc      SelectFunc[M, A]
}

func (a ActorCritic[S, M, A]) Validate() error {
	if a.PolicyValueFunc == nil {
		return fmt.Errorf("PolicyValueFuncがnilです。")
	}
	if a.SelectFunc == nil {
		return fmt.Errorf("SelectFuncがnilです。")
	}
	return nil
}

// NewRandomActorCritic plays uniformly at random and values every
// state as 0.
func NewRandomActorCritic[S any, M, A comparable]() ActorCritic[S, M, A] {
	return ActorCritic[S, M, A]{
		Name:            "rand",
		PolicyValueFunc: UniformPolicyNoValueFunc[S, M, A],
		SelectFunc:      WeightedRandomSelectFunc[M, A],
	}
}
