// Package verify checks an extracted program discretely: the learned clauses
// and the background facts are rendered to Mangle (Datalog) source, evaluated
// to a fixed point, and the derived target atoms compared against the labeled
// examples. It is the boolean counterpart of the fuzzy training result.
package verify

import (
	"fmt"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"difflog/internal/ilp"
	"difflog/internal/logic"
)

// Report summarizes how the discrete program relates to the labeled examples.
type Report struct {
	Entailed int // positive examples the program derives
	Rejected int // negative examples it does not derive

	Missing  []logic.GroundAtom // positives not derived
	Spurious []logic.GroundAtom // negatives derived
}

// Consistent reports whether the program entails every positive example and
// no negative one.
func (r *Report) Consistent() bool {
	return len(r.Missing) == 0 && len(r.Spurious) == 0
}

// Run evaluates the given clauses over the problem's background facts and
// compares the derived target atoms with the examples. Clauses whose head
// variables are not all bound in the body are not valid Datalog; Mangle
// rejects them and the error is returned as a verification failure.
func Run(prob ilp.Problem, clauses []logic.Clause) (*Report, error) {
	names := constantNames(prob.Lang.Constants)

	var src strings.Builder
	for _, g := range prob.Background {
		src.WriteString(renderGround(g, names))
		src.WriteString(".\n")
	}
	for _, c := range clauses {
		src.WriteString(renderClause(c))
		src.WriteString(".\n")
	}

	unit, err := parse.Unit(strings.NewReader(src.String()))
	if err != nil {
		return nil, fmt.Errorf("render program for verification: %w", err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("program failed Datalog analysis: %w", err)
	}

	store := factstore.NewSimpleInMemoryStore()
	for _, g := range prob.Background {
		atom, err := groundToMangle(g, names)
		if err != nil {
			return nil, err
		}
		store.Add(atom)
	}
	if _, err := mengine.EvalProgramWithStats(info, store); err != nil {
		return nil, fmt.Errorf("evaluate program: %w", err)
	}

	target := ast.PredicateSym{Symbol: prob.Lang.Target.Name, Arity: prob.Lang.Target.Arity}
	derived := make(map[string]bool)
	err = store.GetFacts(ast.NewQuery(target), func(atom ast.Atom) error {
		derived[atom.String()] = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read derived facts: %w", err)
	}

	rep := &Report{}
	for _, g := range prob.Positive {
		atom, err := groundToMangle(g, names)
		if err != nil {
			return nil, err
		}
		if derived[atom.String()] {
			rep.Entailed++
		} else {
			rep.Missing = append(rep.Missing, g)
		}
	}
	for _, g := range prob.Negative {
		atom, err := groundToMangle(g, names)
		if err != nil {
			return nil, err
		}
		if derived[atom.String()] {
			rep.Spurious = append(rep.Spurious, g)
		} else {
			rep.Rejected++
		}
	}
	return rep, nil
}

// constantNames assigns each constant a Mangle name constant. Positional
// numbering keeps the mapping collision-free regardless of what characters
// the constants contain.
func constantNames(constants []logic.Constant) map[logic.Constant]string {
	out := make(map[logic.Constant]string, len(constants))
	for i, c := range constants {
		out[c] = fmt.Sprintf("/c%d", i)
	}
	return out
}

func renderGround(g logic.GroundAtom, names map[logic.Constant]string) string {
	args := make([]string, len(g.Args))
	for i, c := range g.Args {
		args[i] = names[c]
	}
	return fmt.Sprintf("%s(%s)", g.Pred.Name, strings.Join(args, ", "))
}

func renderClause(c logic.Clause) string {
	var body []string
	for _, a := range c.Body {
		body = append(body, renderAtom(a))
	}
	return fmt.Sprintf("%s :- %s", renderAtom(c.Head), strings.Join(body, ", "))
}

func renderAtom(a logic.Atom) string {
	args := make([]string, len(a.Args))
	for i, t := range a.Args {
		args[i] = t.String()
	}
	return fmt.Sprintf("%s(%s)", a.Pred.Name, strings.Join(args, ", "))
}

func groundToMangle(g logic.GroundAtom, names map[logic.Constant]string) (ast.Atom, error) {
	sym := ast.PredicateSym{Symbol: g.Pred.Name, Arity: g.Pred.Arity}
	args := make([]ast.BaseTerm, len(g.Args))
	for i, c := range g.Args {
		name, err := ast.Name(names[c])
		if err != nil {
			return ast.Atom{}, fmt.Errorf("constant %q: %w", c, err)
		}
		args[i] = name
	}
	return ast.Atom{Predicate: sym, Args: args}, nil
}
