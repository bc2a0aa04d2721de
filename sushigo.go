package sushigo

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/sw965/sushigo/game"
)

var (
	ErrInvalidPlayerCount = errors.New("player count must be between 2 and 5")
	ErrCardNotInHand      = errors.New("the chosen card is not in the hand")
	ErrMissingMove        = errors.New("a joint move must contain a move for every agent")
	ErrGameEnded          = errors.New("the game has already ended")
)

// Agent is a player's seat index (0-based). Hands rotate between seats,
// tableaus stay put.
//
// Agentは、プレイヤーの席番号です（0始まり）。
// 手札は席の間を回りますが、場のカードは動きません。
type Agent int

// handSizeByPlayers[n]は、n人プレイ時の初期手札枚数。
var handSizeByPlayers = map[int]int{
	2: 10,
	3: 9,
	4: 8,
	5: 7,
}

// HandSize returns the initial hand size for a player count.
func HandSize(players int) (int, error) {
	size, ok := handSizeByPlayers[players]
	if !ok {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidPlayerCount, players)
	}
	return size, nil
}

// State is a single-round Sushi Go position. Hands[i] is the hand
// currently held by seat i; Tableaus[i] is the cards seat i has played,
// in play order. Play order matters for wasabi scoring.
//
// Stateは、1ラウンドのすしごーの局面です。
// Tableaus[i]はプレイ順を保持します。わさびの採点に順序が必要だからです。
type State struct {
	Hands    [][]Card
	Tableaus [][]Card
	Turn     int
}

// NewInitState deals a fresh game for the given number of players,
// drawing hands from a full shuffled deck.
//
// NewInitStateは、指定人数の新しいゲームを配ります。
func NewInitState(players int, rng *rand.Rand) (State, error) {
	handSize, err := HandSize(players)
	if err != nil {
		return State{}, err
	}

	deck := NewShuffledDeck(rng)
	hands := make([][]Card, players)
	tableaus := make([][]Card, players)

	for i := 0; i < players; i++ {
		hand := make([]Card, handSize)
		copy(hand, deck[i*handSize:(i+1)*handSize])
		hands[i] = hand
		tableaus[i] = make([]Card, 0, handSize)
	}

	return State{
		Hands:    hands,
		Tableaus: tableaus,
		Turn:     0,
	}, nil
}

// NumPlayers returns the number of seats.
func (s State) NumPlayers() int {
	return len(s.Hands)
}

// IsEnd reports whether all hands are empty.
func (s State) IsEnd() bool {
	for _, hand := range s.Hands {
		if len(hand) != 0 {
			return false
		}
	}
	return true
}

// Clone deep-copies the state.
func (s State) Clone() State {
	hands := make([][]Card, len(s.Hands))
	for i, hand := range s.Hands {
		hands[i] = slices.Clone(hand)
	}
	tableaus := make([][]Card, len(s.Tableaus))
	for i, tableau := range s.Tableaus {
		tableaus[i] = slices.Clone(tableau)
	}
	return State{Hands: hands, Tableaus: tableaus, Turn: s.Turn}
}

// Equal reports whether two states are identical.
func Equal(s1, s2 State) bool {
	if s1.Turn != s2.Turn {
		return false
	}
	eq := func(xs, ys [][]Card) bool {
		if len(xs) != len(ys) {
			return false
		}
		for i := range xs {
			if !slices.Equal(xs[i], ys[i]) {
				return false
			}
		}
		return true
	}
	return eq(s1.Hands, s2.Hands) && eq(s1.Tableaus, s2.Tableaus)
}

// Scores returns every seat's final competitive score.
func (s State) Scores() []int {
	return CompetitiveScores(s.Tableaus)
}

// LegalMoves returns the distinct cards in a seat's hand. Copies of the
// same card are interchangeable, so a move is the card itself.
//
// LegalMovesは、席の手札に含まれる異なるカードを返します。
// 同じカードの複製は交換可能なので、手はカードそのものです。
func LegalMoves(state State, agent Agent) []Card {
	hand := state.Hands[agent]
	moves := make([]Card, 0, len(hand))
	for _, c := range hand {
		if !slices.Contains(moves, c) {
			moves = append(moves, c)
		}
	}
	return moves
}

// LegalMovesByAgentFunc lists the distinct cards each seat may pick.
// Returns an empty map when the game is over.
func LegalMovesByAgentFunc(state State) game.LegalMovesByAgent[Card, Agent] {
	if state.IsEnd() {
		return game.LegalMovesByAgent[Card, Agent]{}
	}

	legal := game.LegalMovesByAgent[Card, Agent]{}
	for i := range state.Hands {
		agent := Agent(i)
		legal[agent] = LegalMoves(state, agent)
	}
	return legal
}

// MoveFunc applies one simultaneous pick: every seat moves its chosen
// card from hand to tableau, then all hands rotate one seat forward.
//
// MoveFuncは、同時の1ピックを適用します。
// 各席が選んだカードを手札から場に移し、その後全ての手札が1つ隣へ回ります。
func MoveFunc(state State, jointMove map[Agent]Card) (State, error) {
	if state.IsEnd() {
		return State{}, ErrGameEnded
	}

	next := state.Clone()
	players := next.NumPlayers()

	for i := 0; i < players; i++ {
		agent := Agent(i)
		card, ok := jointMove[agent]
		if !ok {
			return State{}, fmt.Errorf("%w: seat %d", ErrMissingMove, i)
		}

		idx := slices.Index(next.Hands[i], card)
		if idx == -1 {
			return State{}, fmt.Errorf("%w: seat %d, card %v", ErrCardNotInHand, i, card)
		}

		next.Hands[i] = slices.Delete(next.Hands[i], idx, idx+1)
		next.Tableaus[i] = append(next.Tableaus[i], card)
	}

	// 手札のローテーション: 最後の席の手札が先頭に回る
	rotated := make([][]Card, players)
	rotated[0] = next.Hands[players-1]
	copy(rotated[1:], next.Hands[:players-1])
	next.Hands = rotated

	next.Turn++
	return next, nil
}

// RankByAgentFunc ranks seats by final score once all hands are empty.
// Higher score ranks first; tied seats share a rank. While the game is
// ongoing it returns an empty map.
//
// RankByAgentFuncは、全手札が空になった時点で最終得点の順位を返します。
// ゲームが継続中の場合は、空のマップを返します。
func RankByAgentFunc(state State) (game.RankByAgent[Agent], error) {
	if !state.IsEnd() {
		return game.RankByAgent[Agent]{}, nil
	}

	scores := state.Scores()
	order := make([]Agent, len(scores))
	for i := range order {
		order[i] = Agent(i)
	}
	slices.SortFunc(order, func(a, b Agent) int {
		return scores[b] - scores[a]
	})

	agentsPerRank := make([][]Agent, 0, len(order))
	for _, agent := range order {
		n := len(agentsPerRank)
		if n > 0 {
			lastGroup := agentsPerRank[n-1]
			if scores[lastGroup[0]] == scores[agent] {
				agentsPerRank[n-1] = append(lastGroup, agent)
				continue
			}
		}
		agentsPerRank = append(agentsPerRank, []Agent{agent})
	}

	return game.NewRankByAgent(agentsPerRank)
}

// NewLogic creates the game logic for a Sushi Go round.
//
// NewLogicは、すしごーの1ラウンドのためのLogicを作成します。
func NewLogic() game.Logic[State, Card, Agent] {
	return game.Logic[State, Card, Agent]{
		LegalMovesByAgentFunc: LegalMovesByAgentFunc,
		MoveFunc:              MoveFunc,
		EqualFunc:             Equal,
	}
}

// NewEngine creates a ready-to-play engine for the given player count.
func NewEngine(players int) (game.Engine[State, Card, Agent], error) {
	if _, err := HandSize(players); err != nil {
		return game.Engine[State, Card, Agent]{}, err
	}

	agents := make([]Agent, players)
	for i := range agents {
		agents[i] = Agent(i)
	}

	return game.Engine[State, Card, Agent]{
		Logic:           NewLogic(),
		RankByAgentFunc: RankByAgentFunc,
		Agents:          agents,
	}, nil
}
