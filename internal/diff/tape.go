// Package diff implements reverse-mode automatic differentiation over dense
// float64 vectors, specialized to the fixed operation set the forward chainer
// needs: softmax, clause evaluation (gather, min, max), weighted mixture,
// fuzzy disjunction, elementwise floor, and clipped binary cross-entropy.
//
// Operations are recorded on a Tape in construction order; Backward seeds the
// output gradient and replays the tape in reverse, each node propagating its
// gradient into its inputs through a hand-derived adjoint. The design follows
// the usual gradient-tape shape of tensor libraries, stripped down to vectors
// and the operations above.
package diff

import (
	"fmt"
	"math"
)

// Vec is one node of the computation graph: a dense vector value and, after
// Backward, the gradient of the tape's loss with respect to it.
type Vec struct {
	Data []float64

	grad []float64
	back func()
}

// Grad returns the accumulated gradient. It is all zeros before Backward.
func (v *Vec) Grad() []float64 { return v.grad }

// Tape records operations for reverse-mode differentiation. A tape is built
// fresh for every forward pass and is not safe for concurrent use.
type Tape struct {
	nodes []*Vec
}

// NewTape returns an empty tape.
func NewTape() *Tape { return &Tape{} }

func (t *Tape) node(data []float64, back func()) *Vec {
	v := &Vec{Data: data, grad: make([]float64, len(data)), back: back}
	t.nodes = append(t.nodes, v)
	return v
}

// Leaf records a parameter vector. The data slice is referenced, not copied;
// the caller must not mutate it while the tape is live.
func (t *Tape) Leaf(data []float64) *Vec {
	return t.node(data, nil)
}

// Backward runs backpropagation from the given scalar output. The output must
// be a length-1 vector produced by this tape.
func (t *Tape) Backward(out *Vec) error {
	if len(out.Data) != 1 {
		return fmt.Errorf("backward requires a scalar output, got length %d", len(out.Data))
	}
	found := false
	for _, n := range t.nodes {
		if n == out {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("output vector was not produced by this tape")
	}
	out.grad[0] = 1
	for i := len(t.nodes) - 1; i >= 0; i-- {
		if t.nodes[i].back != nil {
			t.nodes[i].back()
		}
	}
	return nil
}

// Softmax turns a weight vector into a categorical distribution.
func (t *Tape) Softmax(w *Vec) *Vec {
	n := len(w.Data)
	out := make([]float64, n)
	hi := math.Inf(-1)
	for _, x := range w.Data {
		if x > hi {
			hi = x
		}
	}
	var sum float64
	for i, x := range w.Data {
		out[i] = math.Exp(x - hi)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}

	v := t.node(out, nil)
	v.back = func() {
		var dot float64
		for i := range out {
			dot += v.grad[i] * out[i]
		}
		for i := range out {
			w.grad[i] += out[i] * (v.grad[i] - dot)
		}
	}
	return v
}

// ClauseEval computes the per-clause inference function over a valuation of
// length n: for each ground head atom, the max over the clause's groundings
// of the min over that grounding's body atoms. Heads must be nondecreasing
// with bodyLen body indices per grounding, as produced by the satisfaction
// index. Heads with no grounding stay at zero.
//
// The subgradient flows through the first winning grounding and, within it,
// the first minimal body atom, so a fixed input always yields the same
// gradient.
func (t *Tape) ClauseEval(v *Vec, heads, bodies []int32, bodyLen int, n int) *Vec {
	out := make([]float64, n)
	winner := make([]int32, n)
	for i := range winner {
		winner[i] = -1
	}
	for g := 0; g < len(heads); g++ {
		lo := math.Inf(1)
		loPos := 0
		for k := 0; k < bodyLen; k++ {
			x := v.Data[bodies[g*bodyLen+k]]
			if x < lo {
				lo = x
				loPos = k
			}
		}
		h := heads[g]
		if lo > out[h] {
			out[h] = lo
			winner[h] = int32(g*bodyLen + loPos)
		}
	}

	o := t.node(out, nil)
	o.back = func() {
		for _, h := range heads {
			w := winner[h]
			if w >= 0 {
				v.grad[bodies[w]] += o.grad[h]
				winner[h] = -1 // each head propagates once
			}
		}
	}
	return o
}

// Mix computes the weighted sum of the clause evaluations of one template
// slot: out = sum_j p[j] * fs[j].
func (t *Tape) Mix(p *Vec, fs []*Vec) *Vec {
	if len(p.Data) != len(fs) {
		panic(fmt.Sprintf("mix: %d weights for %d clause evaluations", len(p.Data), len(fs)))
	}
	n := len(fs[0].Data)
	out := make([]float64, n)
	for j, f := range fs {
		pj := p.Data[j]
		for i, x := range f.Data {
			out[i] += pj * x
		}
	}

	o := t.node(out, nil)
	o.back = func() {
		for j, f := range fs {
			var dot float64
			for i := range o.grad {
				dot += o.grad[i] * f.Data[i]
			}
			p.grad[j] += dot
			pj := p.Data[j]
			for i := range o.grad {
				f.grad[i] += pj * o.grad[i]
			}
		}
	}
	return o
}

// FuzzyOr computes the probabilistic sum a + b - a*b elementwise. For inputs
// in [0,1] the result stays in [0,1].
func (t *Tape) FuzzyOr(a, b *Vec) *Vec {
	n := len(a.Data)
	out := make([]float64, n)
	for i := range out {
		out[i] = a.Data[i] + b.Data[i] - a.Data[i]*b.Data[i]
	}

	o := t.node(out, nil)
	o.back = func() {
		for i := range o.grad {
			a.grad[i] += o.grad[i] * (1 - b.Data[i])
			b.grad[i] += o.grad[i] * (1 - a.Data[i])
		}
	}
	return o
}

// Floor re-asserts a lower bound: out[i] = max(v[i], floor[i]). The gradient
// flows to v wherever v is at or above the floor.
func (t *Tape) Floor(v *Vec, floor []float64) *Vec {
	n := len(v.Data)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Max(v.Data[i], floor[i])
	}

	o := t.node(out, nil)
	o.back = func() {
		for i := range o.grad {
			if v.Data[i] >= floor[i] {
				v.grad[i] += o.grad[i]
			}
		}
	}
	return o
}

// BCE computes the clipped binary cross-entropy over the labeled entries of a
// valuation: -mean(y*log(v) + (1-y)*log(1-v)) with log arguments clipped to
// [eps, 1]. The clip keeps the loss finite for saturated entries; since the
// operands already lie in [0,1] the clip is treated as identity for the
// gradient.
func (t *Tape) BCE(v *Vec, idx []int, labels []float64, eps float64) *Vec {
	if len(idx) != len(labels) {
		panic(fmt.Sprintf("bce: %d indices for %d labels", len(idx), len(labels)))
	}
	n := float64(len(idx))
	var sum float64
	for i, ix := range idx {
		x := v.Data[ix]
		y := labels[i]
		sum += y*math.Log(clip(x, eps)) + (1-y)*math.Log(clip(1-x, eps))
	}
	out := []float64{-sum / n}

	o := t.node(out, nil)
	o.back = func() {
		g := o.grad[0]
		for i, ix := range idx {
			x := v.Data[ix]
			y := labels[i]
			v.grad[ix] += g * -(y/clip(x, eps) - (1-y)/clip(1-x, eps)) / n
		}
	}
	return o
}

func clip(x, eps float64) float64 {
	if x < eps {
		return eps
	}
	if x > 1 {
		return 1
	}
	return x
}
