// Package duct implements decoupled UCT for simultaneous-move games:
// each agent keeps its own PUCB statistics per node and selects its move
// independently of the other agents.
//
// Package ductは、同時手番ゲームのためのDecoupled UCTを実装します。
// 各エージェントはノード毎に独立したPUCB統計を持ちます。
//
// https://www.terry-u16.net/entry/decoupled-uct
package duct

import (
	"fmt"
	"math/rand/v2"

	"github.com/sw965/sushigo/game"
	"github.com/sw965/sushigo/pucb"
)

type LeafNodeEvaluator[S any, A comparable] func(S) (game.ValueByAgent[A], error)

type Node[S any, M, A comparable] struct {
	State           S
	SelectorByAgent map[A]pucb.Selector[M]
	NextNodes       Nodes[S, M, A]
}

type Nodes[S any, M, A comparable] []*Node[S, M, A]

func (nodes Nodes[S, M, A]) FindByState(state S, eq game.EqualFunc[S]) (*Node[S, M, A], bool) {
	for _, node := range nodes {
		if eq(node.State, state) {
			return node, true
		}
	}
	return nil, false
}

type selectionInfo[S any, M, A comparable] struct {
	node      *Node[S, M, A]
	jointMove map[A]M
}

type selectionInfoSlice[S any, M, A comparable] []selectionInfo[S, M, A]

func (ss selectionInfoSlice[S, M, A]) backward(evals game.ValueByAgent[A]) error {
	for _, s := range ss {
		for agent, move := range s.jointMove {
			calc := s.node.SelectorByAgent[agent][move]
			if err := calc.AddW(evals[agent]); err != nil {
				return err
			}
			calc.IncrementVisits()
		}
	}
	return nil
}

type Engine[S any, M, A comparable] struct {
	GameEngine        *game.Engine[S, M, A]
	PucbFunc          pucb.Func
	PolicyValueFunc   game.PolicyValueFunc[S, M, A]
	LeafNodeEvaluator LeafNodeEvaluator[S, A]
	NextNodesCap      int
}

func (e *Engine[S, M, A]) Validate() error {
	if e.GameEngine == nil {
		return fmt.Errorf("GameEngine must not be nil")
	}
	if e.PucbFunc == nil {
		return fmt.Errorf("PucbFunc must not be nil")
	}
	if e.PolicyValueFunc == nil {
		return fmt.Errorf("PolicyValueFunc must not be nil")
	}
	if e.LeafNodeEvaluator == nil {
		return fmt.Errorf("LeafNodeEvaluator must not be nil")
	}
	if e.NextNodesCap <= 0 {
		return fmt.Errorf("NextNodesCap must be > 0")
	}
	return nil
}

// SetUniformPolicyValueFunc uses uniform priors for expansion.
func (e *Engine[S, M, A]) SetUniformPolicyValueFunc() {
	e.PolicyValueFunc = game.UniformPolicyNoValueFunc[S, M, A]
}

// SetPlayoutLeafNodeEvaluator evaluates leaves by finishing the game
// with the given actor-critic and scoring the final state.
//
// SetPlayoutLeafNodeEvaluatorは、与えられたアクターでゲームを最後まで
// 進め、最終局面のスコアで葉を評価します。
func (e *Engine[S, M, A]) SetPlayoutLeafNodeEvaluator(ac game.ActorCritic[S, M, A], rng *rand.Rand) {
	e.LeafNodeEvaluator = func(state S) (game.ValueByAgent[A], error) {
		finals, err := e.GameEngine.Playouts([]S{state}, ac, []*rand.Rand{rng})
		if err != nil {
			return nil, err
		}
		scores, err := e.GameEngine.EvaluateResultScoreByAgent(finals[0])
		if err != nil {
			return nil, err
		}
		return game.ValueByAgent[A](scores), nil
	}
}

func (e *Engine[S, M, A]) NewNode(state S) (*Node[S, M, A], error) {
	legalMovesByAgent := e.GameEngine.Logic.LegalMovesByAgentFunc(state)
	if len(legalMovesByAgent) == 0 {
		return nil, fmt.Errorf("合法手が無い為、新しくNodeを生成出来ません。")
	}

	policyByAgent, _, err := e.PolicyValueFunc(state, legalMovesByAgent)
	if err != nil {
		return nil, err
	}

	selectorByAgent := make(map[A]pucb.Selector[M], len(policyByAgent))
	for agent, policy := range policyByAgent {
		if len(policy) == 0 {
			return nil, fmt.Errorf("エージェント %v のPolicyが空である為、新しくNodeを生成出来ません。", agent)
		}
		selector := pucb.Selector[M]{}
		for m, p := range policy {
			selector[m] = &pucb.Calculator{Func: e.PucbFunc, P: p}
		}
		selectorByAgent[agent] = selector
	}

	return &Node[S, M, A]{
		State:           state,
		SelectorByAgent: selectorByAgent,
		NextNodes:       make(Nodes[S, M, A], 0, e.NextNodesCap),
	}, nil
}

func (e *Engine[S, M, A]) SelectExpansionBackward(node *Node[S, M, A], rng *rand.Rand, capacity int) (int, error) {
	state := node.State
	selections := make(selectionInfoSlice[S, M, A], 0, capacity)
	var err error
	var isEnd bool

	for {
		jointMove := make(map[A]M, len(node.SelectorByAgent))
		for agent, selector := range node.SelectorByAgent {
			move, err := selector.Select(rng)
			if err != nil {
				return 0, err
			}
			jointMove[agent] = move
		}
		selections = append(selections, selectionInfo[S, M, A]{node: node, jointMove: jointMove})

		state, err = e.GameEngine.Logic.MoveFunc(state, jointMove)
		if err != nil {
			return 0, err
		}

		isEnd, err = e.GameEngine.IsEnd(state)
		if err != nil {
			return 0, err
		}

		if isEnd {
			break
		}

		nextNode, ok := node.NextNodes.FindByState(state, e.GameEngine.Logic.EqualFunc)
		if !ok {
			// expansion
			nextNode, err = e.NewNode(state)
			if err != nil {
				return 0, err
			}
			node.NextNodes = append(node.NextNodes, nextNode)
			// 新しくノードを作成したら、selectを終了する
			break
		}
		node = nextNode
	}

	var evals game.ValueByAgent[A]
	if isEnd {
		scores, err := e.GameEngine.EvaluateResultScoreByAgent(state)
		if err != nil {
			return 0, err
		}
		evals = game.ValueByAgent[A](scores)
	} else {
		evals, err = e.LeafNodeEvaluator(state)
		if err != nil {
			return 0, err
		}
	}

	if err := selections.backward(evals); err != nil {
		return 0, err
	}
	return len(selections), nil
}

func (e *Engine[S, M, A]) Search(rootNode *Node[S, M, A], simulations int, rng *rand.Rand) error {
	if err := e.Validate(); err != nil {
		return err
	}

	depth := 0
	var err error
	for i := 0; i < simulations; i++ {
		capacity := depth + 1
		depth, err = e.SelectExpansionBackward(rootNode, rng, capacity)
		if err != nil {
			return err
		}
	}
	return nil
}

// NewActorCritic wraps the search as an actor-critic: the policy is the
// root visit distribution, the value is each agent's root Q, and moves
// are picked greedily from the policy.
//
// NewActorCriticは、探索をアクタークリティックとして包みます。
// 方策はルートの訪問回数の分布、価値は各エージェントのルートQ値です。
func (e *Engine[S, M, A]) NewActorCritic(name game.ActorCriticName, simulations int, rng *rand.Rand) game.ActorCritic[S, M, A] {
	pvFunc := func(state S, _ game.LegalMovesByAgent[M, A]) (game.PolicyByAgent[M, A], game.ValueByAgent[A], error) {
		rootNode, err := e.NewNode(state)
		if err != nil {
			return nil, nil, err
		}

		if err := e.Search(rootNode, simulations, rng); err != nil {
			return nil, nil, err
		}

		jp := make(game.PolicyByAgent[M, A], len(rootNode.SelectorByAgent))
		jv := make(game.ValueByAgent[A], len(rootNode.SelectorByAgent))
		for agent, selector := range rootNode.SelectorByAgent {
			policy := game.Policy[M]{}
			for m, percent := range selector.VisitPercentByKey() {
				policy[m] = percent
			}
			jp[agent] = policy

			var value float32
			var sum int
			for _, calc := range selector {
				value += calc.W()
				sum += calc.Visits()
			}
			if sum > 0 {
				value /= float32(sum)
			}
			jv[agent] = value
		}
		return jp, jv, nil
	}

	return game.ActorCritic[S, M, A]{
		Name:            name,
		PolicyValueFunc: pvFunc,
		SelectFunc:      game.MaxSelectFunc[M, A],
	}
}
