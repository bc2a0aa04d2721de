package game

import (
	"fmt"
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/sw965/omw/mathx/randx"
)

type ActorCriticName string

// Policy is a weight per legal move. It does not have to be normalized;
// selection treats the weights as ratios.
//
// Policyは、合法手毎の重みです。正規化されている必要はなく、
// 選択時には重みの比率として扱われます。
type Policy[M comparable] map[M]float32

// ValidateForLegalMoves checks that the policy covers exactly the legal
// moves with finite, non-negative weights that do not all vanish.
func (p Policy[M]) ValidateForLegalMoves(legalMoves []M, checkUnique bool) error {
	if len(legalMoves) == 0 {
		return fmt.Errorf("合法手が空です。")
	}

	if len(p) != len(legalMoves) {
		return fmt.Errorf("Policyの要素数(%d)と合法手の数(%d)が一致しません。", len(p), len(legalMoves))
	}

	seen := make(map[M]struct{}, len(legalMoves))
	var sum float32
	for _, m := range legalMoves {
		if checkUnique {
			if _, ok := seen[m]; ok {
				return fmt.Errorf("合法手が重複しています: %v", m)
			}
			seen[m] = struct{}{}
		}

		v, ok := p[m]
		if !ok {
			return fmt.Errorf("合法手 %v の確率がPolicyにありません。", m)
		}
		if v < 0 || math32.IsNaN(v) || math32.IsInf(v, 0) {
			return fmt.Errorf("合法手 %v の確率が不正です: %f", m, v)
		}
		sum += v
	}

	if sum == 0 {
		return fmt.Errorf("Policyの確率の合計が0です。")
	}
	return nil
}

type SelectFunc[M, A comparable] func(Policy[M], A, *rand.Rand) (M, error)

// MaxSelectFunc picks the move with the highest weight, breaking exact
// ties at random.
func MaxSelectFunc[M, A comparable](policy Policy[M], _ A, rng *rand.Rand) (M, error) {
	var max float32
	best := make([]M, 0, len(policy))

	for m, v := range policy {
		switch {
		case len(best) == 0 || v > max:
			max = v
			best = append(best[:0], m)
		case v == max:
			best = append(best, m)
		}
	}
	return randx.Choice(best, rng)
}

// WeightedRandomSelectFunc samples a move in proportion to its weight.
func WeightedRandomSelectFunc[M, A comparable](policy Policy[M], _ A, rng *rand.Rand) (M, error) {
	moves := make([]M, 0, len(policy))
	ws := make([]float32, 0, len(policy))
	for m, w := range policy {
		moves = append(moves, m)
		ws = append(ws, w)
	}

	idx, err := randx.IndexByWeights(ws, rng)
	if err != nil {
		var zero M
		return zero, err
	}
	return moves[idx], nil
}
