// Package ilp declares the inputs of a learning task (language model, rule
// templates, program template, problem) and the candidate-clause generator
// constrained by them.
package ilp

import (
	"fmt"

	"difflog/internal/logic"
)

// RuleTemplate bounds the shape of the clauses searched for one slot of one
// learned predicate.
type RuleTemplate struct {
	// ExtraVars is how many fresh existentially quantified variables may
	// appear in the body beyond the head variables.
	ExtraVars int
	// Intensional allows body atoms over predicates still being learned,
	// not only the background extensional ones.
	Intensional bool
}

// TemplatePair holds the one or two clause slots of a learned predicate.
// Second == nil means the predicate is defined by exactly one clause.
type TemplatePair struct {
	First  RuleTemplate
	Second *RuleTemplate
}

// Slots returns the pair as a slice of one or two templates.
func (tp TemplatePair) Slots() []RuleTemplate {
	if tp.Second == nil {
		return []RuleTemplate{tp.First}
	}
	return []RuleTemplate{tp.First, *tp.Second}
}

// LanguageModel declares the target predicate, the background extensional
// predicates and the problem-wide constant set.
type LanguageModel struct {
	Target      logic.Predicate
	Extensional []logic.Predicate
	Constants   []logic.Constant
}

// ProgramTemplate declares the invented auxiliary predicates, the template
// pair of every learned predicate, and the number of forward-chaining steps.
type ProgramTemplate struct {
	Auxiliary []logic.Predicate
	Rules     map[logic.Predicate]TemplatePair
	Steps     int
}

// Learned returns the predicates to be learned: auxiliary predicates in
// declared order, then the target.
func Learned(lm LanguageModel, tmpl ProgramTemplate) []logic.Predicate {
	out := make([]logic.Predicate, 0, len(tmpl.Auxiliary)+1)
	out = append(out, tmpl.Auxiliary...)
	out = append(out, lm.Target)
	return out
}

// Scope returns every predicate with ground atoms in the universe, in the
// canonical order that fixes index assignment: extensional predicates in
// declared order, then auxiliary, then the target.
func Scope(lm LanguageModel, tmpl ProgramTemplate) []logic.Predicate {
	out := make([]logic.Predicate, 0, len(lm.Extensional)+len(tmpl.Auxiliary)+1)
	out = append(out, lm.Extensional...)
	out = append(out, tmpl.Auxiliary...)
	out = append(out, lm.Target)
	return out
}

// Problem is a complete learning task: a language model plus labeled ground
// atoms. Background atoms are assumed true, positive atoms carry label 1,
// negative atoms label 0.
type Problem struct {
	Name       string
	Lang       LanguageModel
	Background []logic.GroundAtom
	Positive   []logic.GroundAtom
	Negative   []logic.GroundAtom
}

// Validate checks the problem and template for the configuration errors that
// must fail before any index or tensor work: inconsistent arities, examples
// off the target predicate, atoms outside the declared universe, missing or
// superfluous template entries.
func (p Problem) Validate(tmpl ProgramTemplate) error {
	if len(p.Lang.Constants) == 0 {
		return fmt.Errorf("problem %s: empty constant set", p.Name)
	}
	consts := make(map[logic.Constant]bool, len(p.Lang.Constants))
	for _, c := range p.Lang.Constants {
		if consts[c] {
			return fmt.Errorf("problem %s: duplicate constant %q", p.Name, c)
		}
		consts[c] = true
	}

	arities := make(map[string]int)
	for _, pred := range Scope(p.Lang, tmpl) {
		if pred.Arity <= 0 {
			return fmt.Errorf("predicate %s: arity must be positive", pred)
		}
		if prev, ok := arities[pred.Name]; ok && prev != pred.Arity {
			return fmt.Errorf("predicate name %q declared with arities %d and %d", pred.Name, prev, pred.Arity)
		}
		arities[pred.Name] = pred.Arity
	}

	learned := Learned(p.Lang, tmpl)
	learnedSet := make(map[logic.Predicate]bool, len(learned))
	for _, pred := range learned {
		if _, ok := tmpl.Rules[pred]; !ok {
			return fmt.Errorf("no rule template declared for learned predicate %s", pred)
		}
		learnedSet[pred] = true
	}
	for pred, pair := range tmpl.Rules {
		if !learnedSet[pred] {
			return fmt.Errorf("rule template declared for %s, which is not a learned predicate", pred)
		}
		for _, rt := range pair.Slots() {
			if rt.ExtraVars < 0 {
				return fmt.Errorf("template for %s: negative extra variable count %d", pred, rt.ExtraVars)
			}
		}
	}
	if tmpl.Steps < 0 {
		return fmt.Errorf("negative forward-chaining step count %d", tmpl.Steps)
	}

	extensional := make(map[logic.Predicate]bool, len(p.Lang.Extensional))
	for _, pred := range p.Lang.Extensional {
		extensional[pred] = true
	}
	for _, g := range p.Background {
		if !extensional[g.Pred] {
			return fmt.Errorf("background atom %s: predicate %s is not extensional", g, g.Pred)
		}
		if err := checkConstants(g, consts); err != nil {
			return err
		}
	}
	for _, g := range p.Positive {
		if g.Pred != p.Lang.Target {
			return fmt.Errorf("positive example %s: predicate %s differs from target %s", g, g.Pred, p.Lang.Target)
		}
		if err := checkConstants(g, consts); err != nil {
			return err
		}
	}
	for _, g := range p.Negative {
		if g.Pred != p.Lang.Target {
			return fmt.Errorf("negative example %s: predicate %s differs from target %s", g, g.Pred, p.Lang.Target)
		}
		if err := checkConstants(g, consts); err != nil {
			return err
		}
	}
	return nil
}

func checkConstants(g logic.GroundAtom, consts map[logic.Constant]bool) error {
	for _, c := range g.Args {
		if !consts[c] {
			return fmt.Errorf("atom %s: constant %q is not in the declared constant set", g, c)
		}
	}
	return nil
}
