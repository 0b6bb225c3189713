package ilp

import (
	"fmt"
	"sort"

	"difflog/internal/logic"
)

// Generate enumerates the admissible candidate clauses for one template slot
// of one learned predicate. The head is head(A,B,...) with arity-many
// distinct variables; bodies have one or two atoms drawn from the extensional
// predicates (plus the learned ones when the template is intensional), over
// the head variables and up to ExtraVars fresh ones.
//
// The output ordering is the lexicographic order of the canonical clause
// serialization, so a weight vector indexed by it has a fixed, reproducible
// meaning across runs.
func Generate(lm LanguageModel, tmpl ProgramTemplate, head logic.Predicate, rt RuleTemplate) ([]logic.Clause, error) {
	pool := make([]logic.Predicate, 0, len(lm.Extensional)+len(tmpl.Auxiliary)+1)
	pool = append(pool, lm.Extensional...)
	if rt.Intensional {
		pool = append(pool, Learned(lm, tmpl)...)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("template for %s: no predicates in scope for body atoms (intensional=%v, no extensional predicates declared)", head, rt.Intensional)
	}

	nhead := head.Arity
	nvars := nhead + rt.ExtraVars
	headArgs := make([]logic.Term, nhead)
	for i := range headArgs {
		headArgs[i] = logic.Variable(i)
	}
	headAtom := logic.Atom{Pred: head, Args: headArgs}

	atoms := bodyAtoms(pool, nvars)

	seen := make(map[string]bool)
	var out []logic.Clause
	admit := func(body ...logic.Atom) {
		if !freshVarsCanonical(body, nhead) {
			return
		}
		c := logic.Clause{Head: headAtom, Body: body}
		key := c.String()
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, c)
	}

	for i := range atoms {
		admit(atoms[i])
	}
	// Both orderings of a two-atom body are kept: forward chaining treats
	// argument and atom order as significant.
	for i := range atoms {
		for j := range atoms {
			if i == j {
				continue
			}
			admit(atoms[i], atoms[j])
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("template for %s yields zero candidate clauses", head)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// bodyAtoms enumerates every atom over the predicate pool whose arguments are
// drawn from the first nvars variables, in odometer order.
func bodyAtoms(pool []logic.Predicate, nvars int) []logic.Atom {
	var atoms []logic.Atom
	for _, pred := range pool {
		if pred.Arity > 0 && nvars == 0 {
			continue
		}
		idx := make([]int, pred.Arity)
		for {
			args := make([]logic.Term, pred.Arity)
			for k, v := range idx {
				args[k] = logic.Variable(v)
			}
			atoms = append(atoms, logic.Atom{Pred: pred, Args: args})
			if !odometer(idx, nvars) {
				break
			}
		}
	}
	return atoms
}

// odometer advances idx through base-n counting, rightmost digit fastest.
// It returns false once the count wraps around.
func odometer(idx []int, base int) bool {
	for pos := len(idx) - 1; pos >= 0; pos-- {
		idx[pos]++
		if idx[pos] < base {
			return true
		}
		idx[pos] = 0
	}
	return false
}

// freshVarsCanonical rejects bodies whose fresh variables are not numbered in
// order of first appearance, contiguously after the head variables. A body
// using D but not C, or introducing D before C, is a variable renaming of a
// body the enumeration already produces, and an existential variable that
// appears nowhere would make the satisfaction index count spurious
// groundings.
func freshVarsCanonical(body []logic.Atom, nhead int) bool {
	next := logic.Variable(nhead)
	for _, a := range body {
		for _, t := range a.Args {
			v, ok := t.(logic.Variable)
			if !ok || v < next {
				continue
			}
			if v != next {
				return false
			}
			next++
		}
	}
	return true
}
