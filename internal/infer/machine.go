// Package infer implements the differentiable forward chainer: T fixed steps
// of weighted clause mixtures folded into a valuation over the ground-atom
// universe by fuzzy disjunction.
package infer

import (
	"fmt"

	"difflog/internal/diff"
	"difflog/internal/ilp"
	"difflog/internal/logic"
	"difflog/internal/universe"
)

// Slot is one clause slot of one learned predicate: the candidate clauses in
// generator order, their satisfaction indexes, and the trainable weight
// vector with one entry per candidate. The weights are owned by the
// optimizer; the machine only reads them during a forward pass.
type Slot struct {
	Pred    logic.Predicate
	Clauses []logic.Clause
	Index   []universe.ClauseIndex
	Weights []float64
}

// Machine bundles everything a forward pass needs: the universe, the
// background valuation, and the clause slots of every learned predicate. It
// is immutable after construction apart from the weight vectors.
type Machine struct {
	Uni   *universe.Universe
	Steps int

	slots  []*Slot
	groups [][]*Slot // slots grouped per learned predicate, in learned order
	v0     []float64
}

// NewMachine validates the problem, enumerates the candidate clauses of every
// template slot, precomputes their satisfaction indexes (in parallel across
// clauses), and assembles the initial valuation from the background atoms.
// All configuration and lookup errors surface here, before any training.
func NewMachine(prob ilp.Problem, tmpl ilp.ProgramTemplate) (*Machine, error) {
	if err := prob.Validate(tmpl); err != nil {
		return nil, err
	}

	uni, err := universe.New(ilp.Scope(prob.Lang, tmpl), prob.Lang.Constants)
	if err != nil {
		return nil, err
	}

	m := &Machine{Uni: uni, Steps: tmpl.Steps}

	var allClauses []logic.Clause
	var spans [][2]int
	for _, pred := range ilp.Learned(prob.Lang, tmpl) {
		pair := tmpl.Rules[pred]
		var group []*Slot
		for _, rt := range pair.Slots() {
			clauses, err := ilp.Generate(prob.Lang, tmpl, pred, rt)
			if err != nil {
				return nil, err
			}
			slot := &Slot{
				Pred:    pred,
				Clauses: clauses,
				Weights: make([]float64, len(clauses)),
			}
			spans = append(spans, [2]int{len(allClauses), len(allClauses) + len(clauses)})
			allClauses = append(allClauses, clauses...)
			group = append(group, slot)
			m.slots = append(m.slots, slot)
		}
		m.groups = append(m.groups, group)
	}

	indexes, err := uni.BuildClauseIndexes(allClauses)
	if err != nil {
		return nil, err
	}
	for i, slot := range m.slots {
		slot.Index = indexes[spans[i][0]:spans[i][1]]
	}

	m.v0 = make([]float64, uni.Size())
	for _, g := range prob.Background {
		ix, err := uni.Index(g)
		if err != nil {
			return nil, fmt.Errorf("background: %w", err)
		}
		m.v0[ix] = 1
	}
	return m, nil
}

// Slots returns the machine's slots in deterministic order (auxiliary
// predicates before the target, first slot before second). The weight
// vectors inside are the live trainable parameters.
func (m *Machine) Slots() []*Slot { return m.slots }

// Initial returns a copy of the background valuation v0.
func (m *Machine) Initial() []float64 {
	return append([]float64(nil), m.v0...)
}

// Forward records a full T-step forward pass on the tape and returns the
// final valuation node along with the parameter leaves, one per slot and
// aligned with Slots(). With Steps == 0 the background valuation is returned
// unchanged.
func (m *Machine) Forward(tape *diff.Tape) (*diff.Vec, []*diff.Vec) {
	params := make([]*diff.Vec, len(m.slots))
	probs := make([]*diff.Vec, len(m.slots))
	for i, slot := range m.slots {
		params[i] = tape.Leaf(slot.Weights)
		probs[i] = tape.Softmax(params[i])
	}

	n := m.Uni.Size()
	v := tape.Leaf(m.Initial())
	for step := 0; step < m.Steps; step++ {
		var combined *diff.Vec
		si := 0
		for _, group := range m.groups {
			var predOut *diff.Vec
			for _, slot := range group {
				fs := make([]*diff.Vec, len(slot.Clauses))
				for j := range slot.Clauses {
					ci := slot.Index[j]
					fs[j] = tape.ClauseEval(v, ci.Heads, ci.Bodies, ci.BodyLen, n)
				}
				mixed := tape.Mix(probs[si], fs)
				si++
				if predOut == nil {
					predOut = mixed
				} else {
					predOut = tape.FuzzyOr(predOut, mixed)
				}
			}
			if combined == nil {
				combined = predOut
			} else {
				combined = tape.FuzzyOr(combined, predOut)
			}
		}
		v = tape.FuzzyOr(v, combined)
		v = tape.Floor(v, m.v0)
	}
	return v, params
}

// Valuations maps every ground atom's canonical string to its probability in
// the given valuation, dropping entries below min.
func (m *Machine) Valuations(v []float64, min float64) map[string]float64 {
	out := make(map[string]float64)
	for i, p := range v {
		if p >= min {
			out[m.Uni.Atom(i).String()] = p
		}
	}
	return out
}
