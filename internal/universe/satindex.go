package universe

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"difflog/internal/logic"
)

// ClauseIndex is the precomputed satisfaction index of one candidate clause:
// for every grounding of the clause's variables, the ground head atom index
// it produces and the body atom indices that must hold for it. Groundings
// with the same head are contiguous and heads are nondecreasing, so the
// chainer's max-over-groundings is a single linear scan.
//
// The index carries no gradient information; it is integer bookkeeping
// computed exactly once per clause.
type ClauseIndex struct {
	BodyLen int
	Heads   []int32 // one entry per grounding
	Bodies  []int32 // BodyLen entries per grounding, flattened
}

// Groundings returns the number of groundings in the index.
func (ci ClauseIndex) Groundings() int { return len(ci.Heads) }

// BuildClauseIndex enumerates every grounding of the clause's variables over
// the constant set and records the resulting head and body indices. Cost is
// |C|^(arity+extra); this is the expensive one-time step of setup.
func (u *Universe) BuildClauseIndex(c logic.Clause) (ClauseIndex, error) {
	if _, ok := u.offsets[c.Head.Pred]; !ok {
		return ClauseIndex{}, fmt.Errorf("clause %s: head predicate %s is not in scope", c, c.Head.Pred)
	}
	for _, a := range c.Body {
		if _, ok := u.offsets[a.Pred]; !ok {
			return ClauseIndex{}, fmt.Errorf("clause %s: body predicate %s is not in scope", c, a.Pred)
		}
	}

	vars := c.Variables()
	varPos := make(map[logic.Variable]int, len(vars))
	for i, v := range vars {
		varPos[v] = i
	}
	// Head arguments must be the leading variables in order; the generator
	// guarantees this, and the head-major enumeration below relies on it to
	// keep Heads nondecreasing.
	for i, t := range c.Head.Args {
		v, ok := t.(logic.Variable)
		if !ok || varPos[v] != i {
			return ClauseIndex{}, fmt.Errorf("clause %s: head is not in canonical variable form", c)
		}
	}

	type bodyRef struct {
		pred logic.Predicate
		args []int // positions into the variable assignment
	}
	body := make([]bodyRef, len(c.Body))
	for i, a := range c.Body {
		ref := bodyRef{pred: a.Pred, args: make([]int, len(a.Args))}
		for k, t := range a.Args {
			v, ok := t.(logic.Variable)
			if !ok {
				return ClauseIndex{}, fmt.Errorf("clause %s: body atom %s contains a constant", c, a)
			}
			ref.args[k] = varPos[v]
		}
		body[i] = ref
	}

	nc := len(u.constants)
	ci := ClauseIndex{BodyLen: len(c.Body)}
	assign := make([]int, len(vars))
	headDigits := make([]int, len(c.Head.Args))
	bodyDigits := make([]int, 0, 4)
	for {
		copy(headDigits, assign[:len(c.Head.Args)])
		ci.Heads = append(ci.Heads, int32(u.indexAt(c.Head.Pred, headDigits)))
		for _, ref := range body {
			bodyDigits = bodyDigits[:0]
			for _, p := range ref.args {
				bodyDigits = append(bodyDigits, assign[p])
			}
			ci.Bodies = append(ci.Bodies, int32(u.indexAt(ref.pred, bodyDigits)))
		}
		if !advance(assign, nc) {
			break
		}
	}
	return ci, nil
}

// BuildClauseIndexes builds the satisfaction index of every clause. The work
// is independent per clause and side-effect free, so it runs in parallel
// bounded by GOMAXPROCS.
func (u *Universe) BuildClauseIndexes(clauses []logic.Clause) ([]ClauseIndex, error) {
	out := make([]ClauseIndex, len(clauses))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, c := range clauses {
		g.Go(func() error {
			ci, err := u.BuildClauseIndex(c)
			if err != nil {
				return err
			}
			out[i] = ci
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// advance steps the assignment through base-nc counting, rightmost position
// fastest, returning false after the last assignment.
func advance(assign []int, nc int) bool {
	for pos := len(assign) - 1; pos >= 0; pos-- {
		assign[pos]++
		if assign[pos] < nc {
			return true
		}
		assign[pos] = 0
	}
	return false
}
