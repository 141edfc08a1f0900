package sequence

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// lstmLayer holds the weights of one LSTM layer. Gate rows are ordered input, forget, cell, output.
type lstmLayer struct {
	in     int
	hidden int
	wx     *mat.Dense    // 4H × in
	wh     *mat.Dense    // 4H × H
	b      *mat.VecDense // 4H
}

type lstmGrads struct {
	wx *mat.Dense
	wh *mat.Dense
	b  *mat.VecDense
}

// lstmStep caches the activations of one timestep for backpropagation.
type lstmStep struct {
	x, hPrev, cPrev *mat.VecDense
	i, f, g, o      []float64
	c, tanhC        []float64
	h               *mat.VecDense
}

func newLSTMLayer(in, hidden int, init func(fanIn, fanOut int) distuv.Uniform) *lstmLayer {
	l := &lstmLayer{
		in:     in,
		hidden: hidden,
		wx:     mat.NewDense(4*hidden, in, nil),
		wh:     mat.NewDense(4*hidden, hidden, nil),
		b:      mat.NewVecDense(4*hidden, nil),
	}

	fill(l.wx.RawMatrix().Data, init(in, 4*hidden))
	fill(l.wh.RawMatrix().Data, init(hidden, 4*hidden))
	for j := hidden; j < 2*hidden; j++ {
		l.b.SetVec(j, 1) // forget-gate bias
	}
	return l
}

func fill(dst []float64, dist distuv.Uniform) {
	for i := range dst {
		dst[i] = dist.Rand()
	}
}

func (l *lstmLayer) newGrads() *lstmGrads {
	return &lstmGrads{
		wx: mat.NewDense(4*l.hidden, l.in, nil),
		wh: mat.NewDense(4*l.hidden, l.hidden, nil),
		b:  mat.NewVecDense(4*l.hidden, nil),
	}
}

func (g *lstmGrads) zero() {
	g.wx.Zero()
	g.wh.Zero()
	g.b.Zero()
}

func (l *lstmLayer) params() [][]float64 {
	return [][]float64{l.wx.RawMatrix().Data, l.wh.RawMatrix().Data, l.b.RawVector().Data}
}

func (g *lstmGrads) slices() [][]float64 {
	return [][]float64{g.wx.RawMatrix().Data, g.wh.RawMatrix().Data, g.b.RawVector().Data}
}

// forward runs the layer over xs from a zero state and returns the per-step caches.
func (l *lstmLayer) forward(xs []*mat.VecDense) []lstmStep {
	h := l.hidden
	steps := make([]lstmStep, len(xs))
	hPrev := mat.NewVecDense(h, nil)
	cPrev := mat.NewVecDense(h, nil)

	z := mat.NewVecDense(4*h, nil)
	rec := mat.NewVecDense(4*h, nil)

	for t, x := range xs {
		z.MulVec(l.wx, x)
		rec.MulVec(l.wh, hPrev)
		z.AddVec(z, rec)
		z.AddVec(z, l.b)

		s := lstmStep{
			x:     x,
			hPrev: hPrev,
			cPrev: cPrev,
			i:     make([]float64, h),
			f:     make([]float64, h),
			g:     make([]float64, h),
			o:     make([]float64, h),
			c:     make([]float64, h),
			tanhC: make([]float64, h),
		}
		hNext := mat.NewVecDense(h, nil)
		for j := 0; j < h; j++ {
			s.i[j] = sigmoid(z.AtVec(j))
			s.f[j] = sigmoid(z.AtVec(h + j))
			s.g[j] = math.Tanh(z.AtVec(2*h + j))
			s.o[j] = sigmoid(z.AtVec(3*h + j))
			s.c[j] = s.f[j]*cPrev.AtVec(j) + s.i[j]*s.g[j]
			s.tanhC[j] = math.Tanh(s.c[j])
			hNext.SetVec(j, s.o[j]*s.tanhC[j])
		}
		s.h = hNext
		steps[t] = s

		hPrev = hNext
		cPrev = mat.NewVecDense(h, s.c)
	}
	return steps
}

// backward accumulates parameter gradients into grads given dL/dh for each step
// (nil entries mean no direct gradient) and returns dL/dx for each step.
func (l *lstmLayer) backward(steps []lstmStep, dhOut []*mat.VecDense, grads *lstmGrads) []*mat.VecDense {
	h := l.hidden
	dxs := make([]*mat.VecDense, len(steps))
	dhNext := mat.NewVecDense(h, nil)
	dcNext := make([]float64, h)
	dz := mat.NewVecDense(4*h, nil)

	for t := len(steps) - 1; t >= 0; t-- {
		s := steps[t]
		dh := mat.VecDenseCopyOf(dhNext)
		if dhOut[t] != nil {
			dh.AddVec(dh, dhOut[t])
		}

		for j := 0; j < h; j++ {
			dhj := dh.AtVec(j)
			do := dhj * s.tanhC[j]
			dc := dcNext[j] + dhj*s.o[j]*(1-s.tanhC[j]*s.tanhC[j])

			di := dc * s.g[j]
			dg := dc * s.i[j]
			df := dc * s.cPrev.AtVec(j)
			dcNext[j] = dc * s.f[j]

			dz.SetVec(j, di*s.i[j]*(1-s.i[j]))
			dz.SetVec(h+j, df*s.f[j]*(1-s.f[j]))
			dz.SetVec(2*h+j, dg*(1-s.g[j]*s.g[j]))
			dz.SetVec(3*h+j, do*s.o[j]*(1-s.o[j]))
		}

		grads.wx.RankOne(grads.wx, 1, dz, s.x)
		grads.wh.RankOne(grads.wh, 1, dz, s.hPrev)
		grads.b.AddVec(grads.b, dz)

		dx := mat.NewVecDense(l.in, nil)
		dx.MulVec(l.wx.T(), dz)
		dxs[t] = dx

		dhNext = mat.NewVecDense(h, nil)
		dhNext.MulVec(l.wh.T(), dz)
	}
	return dxs
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
