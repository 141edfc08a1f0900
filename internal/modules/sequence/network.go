package sequence

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// network is LSTM(1→H1, full sequence) → LSTM(H1→H2, last state) → Linear(H2→1).
type network struct {
	l1 *lstmLayer
	l2 *lstmLayer
	wy *mat.VecDense // H2
	by []float64     // single output bias, a slice so it can be optimised in place
}

type networkGrads struct {
	l1 *lstmGrads
	l2 *lstmGrads
	wy *mat.VecDense
	by []float64
}

func newNetwork(h1, h2 int, rng *rand.Rand) *network {
	glorot := func(fanIn, fanOut int) distuv.Uniform {
		limit := math.Sqrt(6 / float64(fanIn+fanOut))
		return distuv.Uniform{Min: -limit, Max: limit, Src: rng}
	}

	n := &network{
		l1: newLSTMLayer(1, h1, glorot),
		l2: newLSTMLayer(h1, h2, glorot),
		wy: mat.NewVecDense(h2, nil),
		by: []float64{0},
	}
	fill(n.wy.RawVector().Data, glorot(h2, 1))
	return n
}

func (n *network) newGrads() *networkGrads {
	return &networkGrads{
		l1: n.l1.newGrads(),
		l2: n.l2.newGrads(),
		wy: mat.NewVecDense(n.wy.Len(), nil),
		by: []float64{0},
	}
}

func (g *networkGrads) zero() {
	g.l1.zero()
	g.l2.zero()
	g.wy.Zero()
	g.by[0] = 0
}

// params and slices return parameter and gradient storage in matching order.
func (n *network) params() [][]float64 {
	p := append(n.l1.params(), n.l2.params()...)
	return append(p, n.wy.RawVector().Data, n.by)
}

func (g *networkGrads) slices() [][]float64 {
	s := append(g.l1.slices(), g.l2.slices()...)
	return append(s, g.wy.RawVector().Data, g.by)
}

// scale multiplies every gradient by alpha.
func (g *networkGrads) scale(alpha float64) {
	for _, s := range g.slices() {
		floats.Scale(alpha, s)
	}
}

// norm returns the global L2 norm across all gradients.
func (g *networkGrads) norm() float64 {
	var sum float64
	for _, s := range g.slices() {
		sum += floats.Dot(s, s)
	}
	return math.Sqrt(sum)
}

type trace struct {
	s1 []lstmStep
	s2 []lstmStep
}

func toInputs(window []float64) []*mat.VecDense {
	xs := make([]*mat.VecDense, len(window))
	for i, v := range window {
		xs[i] = mat.NewVecDense(1, []float64{v})
	}
	return xs
}

// forward returns the scaled next-value prediction for window.
func (n *network) forward(window []float64) (float64, trace) {
	s1 := n.l1.forward(toInputs(window))
	h1 := make([]*mat.VecDense, len(s1))
	for i := range s1 {
		h1[i] = s1[i].h
	}
	s2 := n.l2.forward(h1)
	last := s2[len(s2)-1].h
	return mat.Dot(n.wy, last) + n.by[0], trace{s1: s1, s2: s2}
}

func (n *network) predict(window []float64) float64 {
	y, _ := n.forward(window)
	return y
}

// backward accumulates gradients for one example given dL/dŷ.
func (n *network) backward(tr trace, dy float64, grads *networkGrads) {
	last := tr.s2[len(tr.s2)-1].h
	grads.wy.AddScaledVec(grads.wy, dy, last)
	grads.by[0] += dy

	dh2 := make([]*mat.VecDense, len(tr.s2))
	dhLast := mat.NewVecDense(n.wy.Len(), nil)
	dhLast.ScaleVec(dy, n.wy)
	dh2[len(dh2)-1] = dhLast

	dh1 := n.l2.backward(tr.s2, dh2, grads.l2)
	n.l1.backward(tr.s1, dh1, grads.l1)
}
