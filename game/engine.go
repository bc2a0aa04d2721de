package game

import (
	"fmt"
)

type LegalMovesByAgent[M, A comparable] map[A][]M
type LegalMovesByAgentFunc[S any, M, A comparable] func(S) LegalMovesByAgent[M, A]
type MoveFunc[S any, M, A comparable] func(S, map[A]M) (S, error)
type EqualFunc[S any] func(S, S) bool

// Logic bundles the progression rules of a simultaneous-move game.
// Scoring is the Engine's concern.
//
// Logicは、同時手番ゲームの進行規則だけを束ねます。採点はEngineが担います。
type Logic[S any, M, A comparable] struct {
	LegalMovesByAgentFunc LegalMovesByAgentFunc[S, M, A]
	MoveFunc              MoveFunc[S, M, A]
	EqualFunc             EqualFunc[S]
}

func (l Logic[S, M, A]) Validate() error {
	switch {
	case l.LegalMovesByAgentFunc == nil:
		return fmt.Errorf("LegalMovesByAgentFuncがnilです。")
	case l.MoveFunc == nil:
		return fmt.Errorf("MoveFuncがnilです。")
	case l.EqualFunc == nil:
		return fmt.Errorf("EqualFuncがnilです。")
	}
	return nil
}

// Engine combines game logic with ranking and result scoring.
// When ResultScoreByAgentFunc is nil, StandardResultScoreByAgentFunc
// is used.
//
// Engineは、ゲームの進行規則と順位付け・結果スコアを組み合わせます。
// ResultScoreByAgentFuncがnilの場合、StandardResultScoreByAgentFuncが使われます。
type Engine[S any, M, A comparable] struct {
	Logic                  Logic[S, M, A]
	RankByAgentFunc        RankByAgentFunc[S, A]
	ResultScoreByAgentFunc ResultScoreByAgentFunc[A]
	Agents                 []A
}

func (e Engine[S, M, A]) Validate() error {
	if err := e.Logic.Validate(); err != nil {
		return err
	}
	if e.RankByAgentFunc == nil {
		return fmt.Errorf("RankByAgentFuncがnilです。")
	}
	if len(e.Agents) == 0 {
		return fmt.Errorf("Agentsが空です。")
	}
	return nil
}

// IsEnd reports whether the game is over: a non-empty rank map means a
// finished game.
func (e Engine[S, M, A]) IsEnd(state S) (bool, error) {
	rankByAgent, err := e.RankByAgentFunc(state)
	return len(rankByAgent) != 0, err
}

func (e Engine[S, M, A]) resultScoreByAgentFunc() ResultScoreByAgentFunc[A] {
	if e.ResultScoreByAgentFunc != nil {
		return e.ResultScoreByAgentFunc
	}
	return StandardResultScoreByAgentFunc[A]
}

func (e Engine[S, M, A]) EvaluateResultScoreByAgent(state S) (ResultScoreByAgent[A], error) {
	rankByAgent, err := e.RankByAgentFunc(state)
	if err != nil {
		return nil, err
	}
	return e.resultScoreByAgentFunc()(rankByAgent)
}
