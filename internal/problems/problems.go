// Package problems supplies learning tasks: the built-in scenarios used by
// the CLI and tests, and a YAML loader for user-defined problems.
package problems

import (
	"fmt"
	"sort"

	"difflog/internal/ilp"
	"difflog/internal/logic"
)

// Builtin returns the named built-in problem, or an error listing the known
// names.
func Builtin(name string) (ilp.Problem, ilp.ProgramTemplate, error) {
	switch name {
	case "predecessor":
		prob, tmpl := Predecessor()
		return prob, tmpl, nil
	case "even":
		prob, tmpl := Even()
		return prob, tmpl, nil
	}
	return ilp.Problem{}, ilp.ProgramTemplate{}, fmt.Errorf("unknown built-in problem %q (known: %v)", name, Names())
}

// Names lists the built-in problems.
func Names() []string {
	names := []string{"predecessor", "even"}
	sort.Strings(names)
	return names
}

func numerals(n int) []logic.Constant {
	out := make([]logic.Constant, n)
	for i := range out {
		out[i] = logic.Constant(fmt.Sprintf("%d", i))
	}
	return out
}

func num(i int) logic.Constant {
	return logic.Constant(fmt.Sprintf("%d", i))
}

// Predecessor is the single-clause task: learn predecessor/2 from zero/1 and
// succ/2 over the constants 0..9. The expected program is
// predecessor(A,B)<-succ(B,A).
func Predecessor() (ilp.Problem, ilp.ProgramTemplate) {
	zero := logic.Predicate{Name: "zero", Arity: 1}
	succ := logic.Predicate{Name: "succ", Arity: 2}
	target := logic.Predicate{Name: "predecessor", Arity: 2}

	prob := ilp.Problem{
		Name: "predecessor",
		Lang: ilp.LanguageModel{
			Target:      target,
			Extensional: []logic.Predicate{zero, succ},
			Constants:   numerals(10),
		},
	}
	prob.Background = append(prob.Background, logic.GroundAtom{Pred: zero, Args: []logic.Constant{"0"}})
	for i := 0; i < 9; i++ {
		prob.Background = append(prob.Background, logic.GroundAtom{Pred: succ, Args: []logic.Constant{num(i), num(i + 1)}})
	}
	for a := 0; a < 10; a++ {
		for b := 0; b < 10; b++ {
			g := logic.GroundAtom{Pred: target, Args: []logic.Constant{num(a), num(b)}}
			if a == b+1 {
				prob.Positive = append(prob.Positive, g)
			} else {
				prob.Negative = append(prob.Negative, g)
			}
		}
	}

	tmpl := ilp.ProgramTemplate{
		Rules: map[logic.Predicate]ilp.TemplatePair{
			target: {First: ilp.RuleTemplate{ExtraVars: 0, Intensional: false}},
		},
		Steps: 1,
	}
	return prob, tmpl
}

// Even is the recursive task with an invented predicate: learn even/1 over
// 0..10 from zero/1 and succ/2, with auxiliary pred/2 available to express
// "plus two". The expected program is
//
//	even(A)<-zero(A)
//	even(A)<-even(B), pred(B,A)
//	pred(A,B)<-succ(A,C), succ(C,B)
func Even() (ilp.Problem, ilp.ProgramTemplate) {
	zero := logic.Predicate{Name: "zero", Arity: 1}
	succ := logic.Predicate{Name: "succ", Arity: 2}
	target := logic.Predicate{Name: "even", Arity: 1}
	aux := logic.Predicate{Name: "pred", Arity: 2}

	prob := ilp.Problem{
		Name: "even",
		Lang: ilp.LanguageModel{
			Target:      target,
			Extensional: []logic.Predicate{zero, succ},
			Constants:   numerals(11),
		},
	}
	prob.Background = append(prob.Background, logic.GroundAtom{Pred: zero, Args: []logic.Constant{"0"}})
	for i := 0; i < 10; i++ {
		prob.Background = append(prob.Background, logic.GroundAtom{Pred: succ, Args: []logic.Constant{num(i), num(i + 1)}})
	}
	for i := 0; i <= 10; i++ {
		g := logic.GroundAtom{Pred: target, Args: []logic.Constant{num(i)}}
		if i%2 == 0 {
			prob.Positive = append(prob.Positive, g)
		} else {
			prob.Negative = append(prob.Negative, g)
		}
	}

	recursive := ilp.RuleTemplate{ExtraVars: 1, Intensional: true}
	tmpl := ilp.ProgramTemplate{
		Auxiliary: []logic.Predicate{aux},
		Rules: map[logic.Predicate]ilp.TemplatePair{
			target: {First: ilp.RuleTemplate{ExtraVars: 0, Intensional: false}, Second: &recursive},
			aux:    {First: ilp.RuleTemplate{ExtraVars: 1, Intensional: false}},
		},
		Steps: 6,
	}
	return prob, tmpl
}
