package mlp

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/chewxy/math32"
	ogob "github.com/sw965/omw/encoding/gobx"
	"github.com/sw965/omw/parallel"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	tensor2d "github.com/sw965/sushigo/blas32/tensor/2d"
	"github.com/sw965/sushigo/blas32/vector"
)

type GradBuffer struct {
	Weight blas32.General
	Bias   blas32.Vector
}

func (g *GradBuffer) NewZerosLike() GradBuffer {
	return GradBuffer{
		Weight: tensor2d.NewZerosLike(g.Weight),
		Bias:   vector.NewZerosLike(g.Bias),
	}
}

func (g GradBuffer) Clone() GradBuffer {
	return GradBuffer{
		Weight: tensor2d.Clone(g.Weight),
		Bias:   vector.Clone(g.Bias),
	}
}

func (g *GradBuffer) Axpy(alpha float32, x *GradBuffer) {
	if x.Weight.Rows != 0 {
		tensor2d.Axpy(alpha, x.Weight, g.Weight)
	}

	if x.Bias.N != 0 {
		blas32.Axpy(alpha, x.Bias, g.Bias)
	}
}

func (g *GradBuffer) Scal(alpha float32) {
	if g.Weight.Rows != 0 {
		tensor2d.Scal(alpha, g.Weight)
	}

	if g.Bias.N != 0 {
		blas32.Scal(alpha, g.Bias)
	}
}

type GradBuffers []GradBuffer

func (gs GradBuffers) NewZerosLike() GradBuffers {
	zeros := make(GradBuffers, len(gs))
	for i, g := range gs {
		zeros[i] = g.NewZerosLike()
	}
	return zeros
}

func (gs GradBuffers) Clone() GradBuffers {
	clone := make(GradBuffers, len(gs))
	for i, g := range gs {
		clone[i] = g.Clone()
	}
	return clone
}

func (gs GradBuffers) Axpy(alpha float32, xs GradBuffers) {
	for i, g := range gs {
		g.Axpy(alpha, &xs[i])
	}
}

func (gs GradBuffers) Scal(alpha float32) {
	for _, g := range gs {
		g.Scal(alpha)
	}
}

type Parameter struct {
	Weight blas32.General
	Bias   blas32.Vector
}

func (p *Parameter) NewGradRademacherLike(rng *rand.Rand) GradBuffer {
	return GradBuffer{
		Weight: tensor2d.NewRademacherLike(p.Weight, rng),
		Bias:   vector.NewRademacherLike(p.Bias, rng),
	}
}

func (p *Parameter) NewGradZerosLike() GradBuffer {
	return GradBuffer{
		Weight: tensor2d.NewZerosLike(p.Weight),
		Bias:   vector.NewZerosLike(p.Bias),
	}
}

func (p *Parameter) Clone() Parameter {
	return Parameter{
		Weight: tensor2d.Clone(p.Weight),
		Bias:   vector.Clone(p.Bias),
	}
}

func (p *Parameter) AxpyGrad(alpha float32, grad *GradBuffer) {
	if p.Weight.Rows != 0 {
		tensor2d.Axpy(alpha, grad.Weight, p.Weight)
	}

	if p.Bias.N != 0 {
		blas32.Axpy(alpha, grad.Bias, p.Bias)
	}
}

type Parameters []Parameter

func (ps Parameters) NewGradsRademacherLike(rng *rand.Rand) GradBuffers {
	grads := make(GradBuffers, len(ps))
	for i, p := range ps {
		grads[i] = p.NewGradRademacherLike(rng)
	}
	return grads
}

func (ps Parameters) NewGradsZerosLike() GradBuffers {
	grads := make(GradBuffers, len(ps))
	for i, p := range ps {
		grads[i] = p.NewGradZerosLike()
	}
	return grads
}

func (ps Parameters) Clone() Parameters {
	clone := make(Parameters, len(ps))
	for i, p := range ps {
		clone[i] = p.Clone()
	}
	return clone
}

func (ps Parameters) AxpyGrads(alpha float32, grads GradBuffers) {
	for i, p := range ps {
		p.AxpyGrad(alpha, &grads[i])
	}
}

// Save writes the parameters to path with gob.
func (ps Parameters) Save(path string) error {
	return ogob.Save(&ps, path)
}

// LoadParameters reads parameters written by Save.
func LoadParameters(path string) (Parameters, error) {
	return ogob.Load[Parameters](path)
}

type Forward func(blas32.Vector, *Parameter) (blas32.Vector, Backward, error)
type Forwards []Forward

func (fs Forwards) Propagate(x blas32.Vector, params Parameters) (blas32.Vector, Backwards, error) {
	var err error
	var backward Backward
	backwards := make(Backwards, len(fs))
	for i, f := range fs {
		x, backward, err = f(x, &params[i])
		if err != nil {
			return blas32.Vector{}, nil, err
		}
		backwards[i] = backward
	}
	y := x
	slices.Reverse(backwards)
	return y, backwards, nil
}

type Backward func(blas32.Vector) (blas32.Vector, GradBuffer, error)
type Backwards []Backward

func (bs Backwards) Propagate(chain blas32.Vector) (blas32.Vector, GradBuffers, error) {
	grads := make(GradBuffers, len(bs))
	var grad GradBuffer
	var err error
	for i, b := range bs {
		chain, grad, err = b(chain)
		if err != nil {
			return blas32.Vector{}, nil, err
		}
		grads[i] = grad
	}
	dx := chain
	slices.Reverse(grads)
	return dx, grads, nil
}

func AffineForward(x blas32.Vector, param *Parameter) (blas32.Vector, Backward, error) {
	yn := param.Weight.Cols
	y := blas32.Vector{N: yn, Inc: 1, Data: make([]float32, yn)}
	blas32.Copy(param.Bias, y)
	blas32.Gemv(blas.Trans, 1.0, param.Weight, x, 1.0, y)

	var backward Backward
	backward = func(chain blas32.Vector) (blas32.Vector, GradBuffer, error) {
		wRows := param.Weight.Rows
		wCols := param.Weight.Cols

		dx := blas32.Vector{
			N:    wRows,
			Inc:  1,
			Data: make([]float32, wRows),
		}
		blas32.Gemv(blas.NoTrans, 1.0, param.Weight, chain, 1.0, dx)

		dw := blas32.General{
			Rows:   wRows,
			Cols:   wCols,
			Stride: wCols,
			Data:   make([]float32, wRows*wCols),
		}
		blas32.Ger(1.0, x, chain, dw)

		db := blas32.Vector{
			N:    chain.N,
			Inc:  1,
			Data: make([]float32, chain.N),
		}
		blas32.Copy(chain, db)

		grad := GradBuffer{
			Weight: dw,
			Bias:   db,
		}
		return dx, grad, nil
	}
	return y, backward, nil
}

func NewLeakyReLUForward(alpha float32) Forward {
	return func(x blas32.Vector, _ *Parameter) (blas32.Vector, Backward, error) {
		xData := x.Data
		yData := make([]float32, x.N)
		for i := range yData {
			e := xData[i]
			if e > 0 {
				yData[i] = e
			} else {
				yData[i] = alpha * e
			}
		}

		y := blas32.Vector{
			N:    x.N,
			Inc:  x.Inc,
			Data: yData,
		}

		var backward Backward
		backward = func(chain blas32.Vector) (blas32.Vector, GradBuffer, error) {
			chainData := chain.Data
			dxData := make([]float32, chain.N)
			for i, e := range xData {
				if e > 0 {
					dxData[i] = chainData[i]
				} else {
					dxData[i] = alpha * chainData[i]
				}
			}
			dx := blas32.Vector{
				N:    chain.N,
				Inc:  chain.Inc,
				Data: dxData,
			}
			return dx, GradBuffer{}, nil
		}

		return y, backward, nil
	}
}

func SoftmaxForOutputForward(x blas32.Vector, _ *Parameter) (blas32.Vector, Backward, error) {
	xData := x.Data
	// オーバーフロー対策
	maxX := slices.Max(xData)
	expX := make([]float32, x.N)
	sumExpX := float32(0.0)
	for i, e := range xData {
		expX[i] = math32.Exp(e - maxX)
		sumExpX += expX[i]
	}

	yData := make([]float32, x.N)
	for i := range expX {
		yData[i] = expX[i] / sumExpX
	}

	y := blas32.Vector{
		N:    x.N,
		Inc:  x.Inc,
		Data: yData,
	}

	var backward Backward
	backward = func(chain blas32.Vector) (blas32.Vector, GradBuffer, error) {
		// クロスエントロピーが損失関数である事を前提
		dx := chain
		return dx, GradBuffer{}, nil
	}
	return y, backward, nil
}

func SigmoidForward(x blas32.Vector, _ *Parameter) (blas32.Vector, Backward, error) {
	yData := make([]float32, x.N)
	for i, e := range x.Data {
		yData[i] = 1.0 / (1.0 + math32.Exp(-e))
	}

	y := blas32.Vector{
		N:    x.N,
		Inc:  x.Inc,
		Data: yData,
	}

	var backward Backward
	backward = func(chain blas32.Vector) (blas32.Vector, GradBuffer, error) {
		dxData := make([]float32, chain.N)
		for i, c := range chain.Data {
			dxData[i] = c * yData[i] * (1.0 - yData[i])
		}
		dx := blas32.Vector{
			N:    chain.N,
			Inc:  chain.Inc,
			Data: dxData,
		}
		return dx, GradBuffer{}, nil
	}
	return y, backward, nil
}

type PredictLoss struct {
	Func       func(blas32.Vector, blas32.Vector) (float32, error)
	Derivative func(blas32.Vector, blas32.Vector) (blas32.Vector, error)
}

func NewCrossEntropyLossForSoftmax() PredictLoss {
	f := func(y, t blas32.Vector) (float32, error) {
		loss := float32(0.0)
		e := float32(0.0001)
		for i := range y.Data {
			ye := y.Data[i]
			if ye < e {
				ye = e
			}
			te := t.Data[i]
			loss += -te * math32.Log(ye)
		}
		return loss, nil
	}

	d := func(y, t blas32.Vector) (blas32.Vector, error) {
		dx := blas32.Vector{
			N:    y.N,
			Inc:  y.Inc,
			Data: make([]float32, y.N),
		}
		blas32.Copy(y, dx)
		blas32.Axpy(-1.0, t, dx)
		return dx, nil
	}

	return PredictLoss{
		Func:       f,
		Derivative: d,
	}
}

func NewSumSquaredLoss() PredictLoss {
	f := func(y, t blas32.Vector) (float32, error) {
		loss := float32(0.0)
		for i := range y.Data {
			diff := y.Data[i] - t.Data[i]
			loss += 0.5 * diff * diff
		}
		return loss, nil
	}

	d := func(y, t blas32.Vector) (blas32.Vector, error) {
		dx := blas32.Vector{
			N:    y.N,
			Inc:  y.Inc,
			Data: make([]float32, y.N),
		}
		blas32.Copy(y, dx)
		blas32.Axpy(-1.0, t, dx)
		return dx, nil
	}

	return PredictLoss{
		Func:       f,
		Derivative: d,
	}
}

type Model struct {
	Parameters  Parameters
	Forwards    Forwards
	PredictLoss PredictLoss
	LossFunc    func(*Model, int) (float32, error)
}

func (m *Model) AppendAffine(xn, yn int, rng *rand.Rand) {
	param := Parameter{
		Weight: tensor2d.NewHe(xn, yn, rng),
		Bias:   vector.NewZeros(yn),
	}
	m.Parameters = append(m.Parameters, param)
	m.Forwards = append(m.Forwards, AffineForward)
}

func (m *Model) appendParamFree(f Forward) {
	param := Parameter{
		Weight: blas32.General{Rows: 0, Cols: 0, Stride: 0, Data: []float32{}},
		Bias:   blas32.Vector{N: 0, Inc: 0, Data: []float32{}},
	}
	m.Parameters = append(m.Parameters, param)
	m.Forwards = append(m.Forwards, f)
}

func (m *Model) AppendLeakyReLU(alpha float32) {
	m.appendParamFree(NewLeakyReLUForward(alpha))
}

func (m *Model) AppendOutputSoftmaxAndSetCrossEntropyLoss() {
	m.appendParamFree(SoftmaxForOutputForward)
	m.PredictLoss = NewCrossEntropyLossForSoftmax()
}

func (m *Model) AppendOutputSigmoidAndSetSumSquaredLoss() {
	m.appendParamFree(SigmoidForward)
	m.PredictLoss = NewSumSquaredLoss()
}

func (m Model) Clone() Model {
	return Model{
		Parameters:  m.Parameters.Clone(),
		Forwards:    m.Forwards,
		PredictLoss: m.PredictLoss,
		LossFunc:    m.LossFunc,
	}
}

func (m *Model) Predict(x blas32.Vector) (blas32.Vector, error) {
	y, _, err := m.Forwards.Propagate(x, m.Parameters)
	return y, err
}

func (m *Model) BackPropagateByTeacher(x, t blas32.Vector) (blas32.Vector, GradBuffers, error) {
	y, backwards, err := m.Forwards.Propagate(x, m.Parameters)
	if err != nil {
		return blas32.Vector{}, nil, err
	}
	firstChain, err := m.PredictLoss.Derivative(y, t)
	if err != nil {
		return blas32.Vector{}, nil, err
	}
	return backwards.Propagate(firstChain)
}

// ComputeGradByTeacher averages the backprop gradients over a batch,
// splitting the batch across p workers.
//
// ComputeGradByTeacherは、バッチをp個のワーカーに分割し、
// 誤差逆伝播による勾配の平均を計算します。
func (m *Model) ComputeGradByTeacher(xs, ts []blas32.Vector, p int) (GradBuffers, error) {
	n := len(xs)
	if n != len(ts) {
		return nil, fmt.Errorf("バッチサイズが一致しません。")
	}

	if n == 0 {
		return nil, fmt.Errorf("バッチが空です。")
	}

	gradBuffersByWorker := make([]GradBuffers, p)
	for i := range gradBuffersByWorker {
		gradBuffersByWorker[i] = m.Parameters.NewGradsZerosLike()
	}

	err := parallel.For(n, p, func(workerId, idx int) error {
		_, grads, err := m.BackPropagateByTeacher(xs[idx], ts[idx])
		if err != nil {
			return err
		}
		gradBuffersByWorker[workerId].Axpy(1.0, grads)
		return nil
	})
	if err != nil {
		return nil, err
	}

	total := gradBuffersByWorker[0]
	for _, g := range gradBuffersByWorker[1:] {
		total.Axpy(1.0, g)
	}
	total.Scal(1.0 / float32(n))
	return total, nil
}

// EstimateGradsBySPSA estimates gradients with simultaneous perturbation:
// one Rademacher delta per worker, losses at ±c, central difference.
func (m *Model) EstimateGradsBySPSA(c float32, rngs []*rand.Rand) (GradBuffers, error) {
	p := len(rngs)
	gradsByWorker := make([]GradBuffers, p)
	errCh := make(chan error, p)

	worker := func(workerIdx int) {
		rng := rngs[workerIdx]
		deltas := m.Parameters.NewGradsRademacherLike(rng)

		plusModel := m.Clone()
		plusModel.Parameters.AxpyGrads(c, deltas)

		minusModel := m.Clone()
		minusModel.Parameters.AxpyGrads(-c, deltas)

		plusLoss, err := m.LossFunc(&plusModel, workerIdx)
		if err != nil {
			errCh <- err
			return
		}

		minusLoss, err := m.LossFunc(&minusModel, workerIdx)
		if err != nil {
			errCh <- err
			return
		}

		grads := m.Parameters.NewGradsZerosLike()
		for i, delta := range deltas {
			for j, d := range delta.Weight.Data {
				grads[i].Weight.Data[j] = (plusLoss - minusLoss) / (2.0 * c * d)
			}

			for j, d := range delta.Bias.Data {
				grads[i].Bias.Data[j] = (plusLoss - minusLoss) / (2.0 * c * d)
			}
		}

		gradsByWorker[workerIdx] = grads
		errCh <- nil
	}

	for i := 0; i < p; i++ {
		go worker(i)
	}

	for i := 0; i < p; i++ {
		if err := <-errCh; err != nil {
			return nil, err
		}
	}

	firstGrads := gradsByWorker[0]
	firstGrads.Scal(1.0 / float32(p))
	for _, grads := range gradsByWorker[1:] {
		firstGrads.Axpy(1.0/float32(p), grads)
	}
	return firstGrads, nil
}

type Adam struct {
	LearningRate float32
	Beta1        float32
	Beta2        float32
	Epsilon      float32

	iter int
	m    GradBuffers
	v    GradBuffers
}

// NewAdam creates an Adam optimizer whose moment buffers are zero
// initialized with the same shapes as params.
//
// NewAdamは、paramsと同じ形状で0初期化されたモーメントバッファを持つ
// Adamオプティマイザを作成します。
func NewAdam(params Parameters) *Adam {
	return &Adam{
		LearningRate: 0.001,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-7,
		iter:         0,
		m:            params.NewGradsZerosLike(),
		v:            params.NewGradsZerosLike(),
	}
}

// Optimizer updates model.Parameters in place by the Adam rule.
func (a *Adam) Optimizer(model *Model, grads GradBuffers) error {
	if len(model.Parameters) != len(grads) {
		return fmt.Errorf("Adam: parameters/grads size mismatch")
	}

	if len(a.m) == 0 {
		a.m = model.Parameters.NewGradsZerosLike()
		a.v = model.Parameters.NewGradsZerosLike()
	}

	a.iter++
	beta1, beta2 := a.Beta1, a.Beta2
	lrt := a.LearningRate *
		math32.Sqrt(1-math32.Pow(beta2, float32(a.iter))) /
		(1 - math32.Pow(beta1, float32(a.iter)))

	for i := range grads {
		for j, g := range grads[i].Weight.Data {
			a.m[i].Weight.Data[j] += (1 - beta1) * (g - a.m[i].Weight.Data[j])
			a.v[i].Weight.Data[j] += (1 - beta2) * (g*g - a.v[i].Weight.Data[j])

			update := lrt * a.m[i].Weight.Data[j] /
				(math32.Sqrt(a.v[i].Weight.Data[j]) + a.Epsilon)
			model.Parameters[i].Weight.Data[j] -= update
		}

		for j, g := range grads[i].Bias.Data {
			a.m[i].Bias.Data[j] += (1 - beta1) * (g - a.m[i].Bias.Data[j])
			a.v[i].Bias.Data[j] += (1 - beta2) * (g*g - a.v[i].Bias.Data[j])

			update := lrt * a.m[i].Bias.Data[j] /
				(math32.Sqrt(a.v[i].Bias.Data[j]) + a.Epsilon)
			model.Parameters[i].Bias.Data[j] -= update
		}
	}
	return nil
}
