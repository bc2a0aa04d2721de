// Package pucb provides PUCB (PUCT-like) utilities for action selection.
// Input validation for PUCB calculations is centralized in Calculator.U.
//
// Package pucb は PUCB（PUCT系）選択のためのユーティリティを提供します。
// PUCB 計算の入力バリデーションは Calculator.U に集約されています。
//
// https://arxiv.org/abs/1810.11755

package pucb

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/sw965/omw/mathx/randx"
)

type Func func(float32, float32, int, int) float32

func NewAlphaGoFunc(c float32) Func {
	return func(q, p float32, sumVisits, selfVisits int) float32 {
		n := float32(1 + selfVisits)
		exploration := c * p * math32.Sqrt(float32(sumVisits)) / n
		return q + exploration
	}
}

func NewAlphaZeroFunc(cinit, cbase float32) (Func, error) {
	if math32.IsNaN(cinit) || math32.IsInf(cinit, 0) {
		return nil, fmt.Errorf("cinitが不正(NaN/Inf): cinit=%.6g", cinit)
	}

	if cbase <= 0 || math32.IsNaN(cbase) || math32.IsInf(cbase, 0) {
		return nil, fmt.Errorf("cbaseが不正(<=0/NaN/Inf): cbase=%.6g", cbase)
	}

	return func(q, p float32, sumVisits, selfVisits int) float32 {
		n := float32(1 + selfVisits)
		c := cinit + math32.Log((float32(sumVisits)+cbase+1.0)/cbase)
		exploration := c * p * math32.Sqrt(float32(sumVisits)) / n
		return q + exploration
	}, nil
}

type Calculator struct {
	Func   Func
	P      float32
	w      float32
	visits int
}

func (c *Calculator) AddW(v float32) error {
	if math32.IsNaN(v) || math32.IsInf(v, 0) {
		return fmt.Errorf("vが不正(NaN/Inf): v=%.6g", v)
	}
	c.w += v
	return nil
}

func (c *Calculator) IncrementVisits() {
	c.visits += 1
}

func (c *Calculator) Visits() int {
	return c.visits
}

func (c *Calculator) W() float32 {
	return c.w
}

func (c *Calculator) Q() float32 {
	if c.visits == 0 {
		return 0.0
	}
	return c.w / float32(c.visits)
}

func (c *Calculator) validateForSumVisits(sumVisits int) error {
	if sumVisits < 0 {
		return fmt.Errorf("sumVisitsが不正(<0): sumVisits=%d", sumVisits)
	}

	if sumVisits < c.visits {
		return fmt.Errorf("sumVisits=%d < visits=%d", sumVisits, c.visits)
	}

	if p := float64(c.P); c.P < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
		return fmt.Errorf("Pが不正(負/NaN/Inf): P=%.6g", c.P)
	}

	if c.Func == nil {
		return fmt.Errorf("Funcが未初期化(nil)")
	}
	return nil
}

func (c *Calculator) U(sumVisits int) (float32, error) {
	if err := c.validateForSumVisits(sumVisits); err != nil {
		return 0.0, err
	}

	q := c.Q()
	u := c.Func(q, c.P, sumVisits, c.visits)

	if v := float64(u); math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.0, fmt.Errorf(
			"Funcの戻り値が不正(NaN/Inf): q=%.6g P=%.6g sumVisits=%d visits=%d u=%.6g",
			q, c.P, sumVisits, c.visits, u,
		)
	}
	return u, nil
}

type Selector[K comparable] map[K]*Calculator

func (s Selector[K]) SumVisits() int {
	sum := 0
	for _, c := range s {
		sum += c.Visits()
	}
	return sum
}

func (s Selector[K]) VisitPercentByKey() map[K]float32 {
	n := len(s)
	if n == 0 {
		return map[K]float32{}
	}

	sum := s.SumVisits()
	m := map[K]float32{}

	if sum == 0 {
		p := 1.0 / float32(n)
		for k := range s {
			m[k] = p
		}
		return m
	}

	for k, c := range s {
		m[k] = float32(c.Visits()) / float32(sum)
	}
	return m
}

const eps float32 = 0.0001

func (s Selector[K]) MaxKeys() ([]K, error) {
	sum := s.SumVisits()
	ks := make([]K, 0, len(s))
	var max float32
	first := true

	for k, c := range s {
		u, err := c.U(sum)
		if err != nil {
			return nil, err
		}

		if first {
			max = u
			ks = append(ks, k)
			first = false
			continue
		}

		// 「明確に」最大更新（eps以上 上なら max 更新して候補を入れ替え）
		if u > max+eps {
			max = u
			ks = ks[:0]
			ks = append(ks, k)
			continue
		}

		// 誤差 eps 以内なら同率扱い
		if float32(math.Abs(float64(u-max))) <= eps {
			ks = append(ks, k)
		}
	}
	return ks, nil
}

func (s Selector[K]) Select(rng *rand.Rand) (K, error) {
	ks, err := s.MaxKeys()
	if err != nil {
		var zero K
		return zero, err
	}
	return randx.Choice(ks, rng)
}
