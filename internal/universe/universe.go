// Package universe assigns a stable dense index to every ground atom over the
// predicates in scope and the problem constant set, and precomputes the
// clause-satisfaction index consumed by the forward chainer.
package universe

import (
	"fmt"
	"sort"

	"difflog/internal/logic"
)

// Universe is the total ordering of ground atoms. Indexes are assigned
// predicate block by predicate block in scope order; within a block the
// constant tuples enumerate in odometer order (rightmost argument fastest)
// over the constants in declared order. The assignment is deterministic for
// identical inputs and never changes once built.
type Universe struct {
	preds      []logic.Predicate
	constants  []logic.Constant
	constIdx   map[logic.Constant]int
	blockStart []int // aligned with preds; blockStart[len(preds)] == total
	offsets    map[logic.Predicate]int
	total      int
}

// New builds the universe for the given predicate scope and constant set.
func New(scope []logic.Predicate, constants []logic.Constant) (*Universe, error) {
	if len(scope) == 0 {
		return nil, fmt.Errorf("empty predicate scope")
	}
	if len(constants) == 0 {
		return nil, fmt.Errorf("empty constant set")
	}

	u := &Universe{
		preds:     append([]logic.Predicate(nil), scope...),
		constants: append([]logic.Constant(nil), constants...),
		constIdx:  make(map[logic.Constant]int, len(constants)),
		offsets:   make(map[logic.Predicate]int, len(scope)),
	}
	for i, c := range constants {
		if _, dup := u.constIdx[c]; dup {
			return nil, fmt.Errorf("duplicate constant %q", c)
		}
		u.constIdx[c] = i
	}

	u.blockStart = make([]int, len(scope)+1)
	for i, pred := range scope {
		if pred.Arity <= 0 {
			return nil, fmt.Errorf("predicate %s: arity must be positive", pred)
		}
		if _, dup := u.offsets[pred]; dup {
			return nil, fmt.Errorf("predicate %s declared twice in scope", pred)
		}
		u.blockStart[i] = u.total
		u.offsets[pred] = u.total
		size := 1
		for k := 0; k < pred.Arity; k++ {
			size *= len(constants)
		}
		u.total += size
	}
	u.blockStart[len(scope)] = u.total
	return u, nil
}

// Size returns the number of ground atoms in the universe.
func (u *Universe) Size() int { return u.total }

// Constants returns the declared constant set in order.
func (u *Universe) Constants() []logic.Constant { return u.constants }

// Predicates returns the predicate scope in order.
func (u *Universe) Predicates() []logic.Predicate { return u.preds }

// Index returns the dense index of a ground atom. It fails for atoms outside
// the declared universe; an unknown atom is never silently mapped.
func (u *Universe) Index(g logic.GroundAtom) (int, error) {
	off, ok := u.offsets[g.Pred]
	if !ok {
		return 0, fmt.Errorf("unknown ground atom %s: predicate %s is not in scope", g, g.Pred)
	}
	if len(g.Args) != g.Pred.Arity {
		return 0, fmt.Errorf("unknown ground atom %s: expected %d args, got %d", g, g.Pred.Arity, len(g.Args))
	}
	pos := 0
	for _, c := range g.Args {
		d, ok := u.constIdx[c]
		if !ok {
			return 0, fmt.Errorf("unknown ground atom %s: constant %q is not in the constant set", g, c)
		}
		pos = pos*len(u.constants) + d
	}
	return off + pos, nil
}

// Atom is the O(1)-amortized reverse lookup: it reconstructs the ground atom
// at the given index. It panics on an out-of-range index, which is a
// programming error rather than an input error.
func (u *Universe) Atom(i int) logic.GroundAtom {
	if i < 0 || i >= u.total {
		panic(fmt.Sprintf("universe index %d out of range [0,%d)", i, u.total))
	}
	p := sort.Search(len(u.preds), func(k int) bool { return u.blockStart[k+1] > i }) // predicate block containing i
	pred := u.preds[p]
	pos := i - u.blockStart[p]
	args := make([]logic.Constant, pred.Arity)
	for k := pred.Arity - 1; k >= 0; k-- {
		args[k] = u.constants[pos%len(u.constants)]
		pos /= len(u.constants)
	}
	return logic.GroundAtom{Pred: pred, Args: args}
}

// indexAt computes the index of pred applied to the constants at the given
// digit positions. Used by the satisfaction index builder, which works in
// digit space throughout.
func (u *Universe) indexAt(pred logic.Predicate, digits []int) int {
	pos := 0
	for _, d := range digits {
		pos = pos*len(u.constants) + d
	}
	return u.offsets[pred] + pos
}
