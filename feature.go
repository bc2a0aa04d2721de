package sushigo

import (
	"fmt"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/sw965/sushigo/blas32/vector"
)

// FeatureLen returns the length of the observation vector for a player
// count: one-hot hand slots, per-seat played-card counts, turn, current
// hand size, seat index, and per-seat pending wasabi.
func FeatureLen(players int) (int, error) {
	handSize, err := HandSize(players)
	if err != nil {
		return 0, err
	}
	return handSize*NumCardTypes + players*NumCardTypes + 3 + players, nil
}

// Feature encodes the state from one seat's point of view as a dense
// vector for the policy-value network.
//
// Featureは、ある席から見た局面をニューラルネットワーク用の
// 密ベクトルに符号化します。
func Feature(state State, agent Agent) (blas32.Vector, error) {
	players := state.NumPlayers()
	handSize, err := HandSize(players)
	if err != nil {
		return blas32.Vector{}, err
	}

	if int(agent) < 0 || int(agent) >= players {
		return blas32.Vector{}, fmt.Errorf("agent %d out of range [0, %d)", agent, players)
	}

	n, err := FeatureLen(players)
	if err != nil {
		return blas32.Vector{}, err
	}

	feature := vector.NewZeros(n)
	data := feature.Data
	offset := 0

	// 手札のone-hot。空のスロットは全て0のまま。
	hand := state.Hands[agent]
	for slot := 0; slot < handSize; slot++ {
		if slot < len(hand) {
			data[offset+int(hand[slot])] = 1.0
		}
		offset += NumCardTypes
	}

	// 各席の場に出たカードの枚数
	for _, tableau := range state.Tableaus {
		for _, c := range tableau {
			data[offset+int(c)] += 1.0
		}
		offset += NumCardTypes
	}

	data[offset] = float32(state.Turn)
	data[offset+1] = float32(len(hand))
	data[offset+2] = float32(agent)
	offset += 3

	// 各席の、握りを待っているわさびの枚数
	for _, tableau := range state.Tableaus {
		data[offset] = float32(PendingWasabi(tableau))
		offset++
	}

	return feature, nil
}
