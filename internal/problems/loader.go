package problems

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"difflog/internal/ilp"
	"difflog/internal/logic"
)

// problemFile is the YAML schema of a user-defined problem. Predicates are
// written "name/arity", atoms in canonical form ("succ(0,1)").
type problemFile struct {
	Name        string                    `yaml:"name"`
	Target      string                    `yaml:"target"`
	Extensional []string                  `yaml:"extensional"`
	Auxiliary   []string                  `yaml:"auxiliary"`
	Constants   []string                  `yaml:"constants"`
	Steps       int                       `yaml:"steps"`
	Templates   map[string][]templateFile `yaml:"templates"`
	Background  []string                  `yaml:"background"`
	Positive    []string                  `yaml:"positive"`
	Negative    []string                  `yaml:"negative"`
}

type templateFile struct {
	ExtraVars   int  `yaml:"extra_vars"`
	Intensional bool `yaml:"intensional"`
}

// Load reads a problem and its program template from a YAML file. The result
// still goes through Problem.Validate at machine construction; this only
// reports syntactic problems.
func Load(path string) (ilp.Problem, ilp.ProgramTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ilp.Problem{}, ilp.ProgramTemplate{}, fmt.Errorf("read problem file %s: %w", path, err)
	}
	var pf problemFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return ilp.Problem{}, ilp.ProgramTemplate{}, fmt.Errorf("parse problem file %s: %w", path, err)
	}
	prob, tmpl, err := pf.build()
	if err != nil {
		return ilp.Problem{}, ilp.ProgramTemplate{}, fmt.Errorf("problem file %s: %w", path, err)
	}
	return prob, tmpl, nil
}

func (pf problemFile) build() (ilp.Problem, ilp.ProgramTemplate, error) {
	target, err := parsePredicate(pf.Target)
	if err != nil {
		return ilp.Problem{}, ilp.ProgramTemplate{}, fmt.Errorf("target: %w", err)
	}

	prob := ilp.Problem{Name: pf.Name, Lang: ilp.LanguageModel{Target: target}}
	for _, s := range pf.Extensional {
		p, err := parsePredicate(s)
		if err != nil {
			return ilp.Problem{}, ilp.ProgramTemplate{}, fmt.Errorf("extensional: %w", err)
		}
		prob.Lang.Extensional = append(prob.Lang.Extensional, p)
	}
	for _, c := range pf.Constants {
		prob.Lang.Constants = append(prob.Lang.Constants, logic.Constant(c))
	}

	tmpl := ilp.ProgramTemplate{Steps: pf.Steps, Rules: make(map[logic.Predicate]ilp.TemplatePair)}
	for _, s := range pf.Auxiliary {
		p, err := parsePredicate(s)
		if err != nil {
			return ilp.Problem{}, ilp.ProgramTemplate{}, fmt.Errorf("auxiliary: %w", err)
		}
		tmpl.Auxiliary = append(tmpl.Auxiliary, p)
	}
	for name, slots := range pf.Templates {
		p, err := parsePredicate(name)
		if err != nil {
			return ilp.Problem{}, ilp.ProgramTemplate{}, fmt.Errorf("templates: %w", err)
		}
		var pair ilp.TemplatePair
		switch len(slots) {
		case 1:
			pair.First = ilp.RuleTemplate{ExtraVars: slots[0].ExtraVars, Intensional: slots[0].Intensional}
		case 2:
			pair.First = ilp.RuleTemplate{ExtraVars: slots[0].ExtraVars, Intensional: slots[0].Intensional}
			second := ilp.RuleTemplate{ExtraVars: slots[1].ExtraVars, Intensional: slots[1].Intensional}
			pair.Second = &second
		default:
			return ilp.Problem{}, ilp.ProgramTemplate{}, fmt.Errorf("templates for %s: want 1 or 2 slots, got %d", p, len(slots))
		}
		tmpl.Rules[p] = pair
	}

	if prob.Background, err = parseAtoms(pf.Background); err != nil {
		return ilp.Problem{}, ilp.ProgramTemplate{}, fmt.Errorf("background: %w", err)
	}
	if prob.Positive, err = parseAtoms(pf.Positive); err != nil {
		return ilp.Problem{}, ilp.ProgramTemplate{}, fmt.Errorf("positive: %w", err)
	}
	if prob.Negative, err = parseAtoms(pf.Negative); err != nil {
		return ilp.Problem{}, ilp.ProgramTemplate{}, fmt.Errorf("negative: %w", err)
	}
	return prob, tmpl, nil
}

func parseAtoms(in []string) ([]logic.GroundAtom, error) {
	out := make([]logic.GroundAtom, 0, len(in))
	for _, s := range in {
		g, err := logic.ParseGroundAtom(s)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// parsePredicate reads the "name/arity" form.
func parsePredicate(s string) (logic.Predicate, error) {
	name, arity, ok := strings.Cut(s, "/")
	if !ok || name == "" {
		return logic.Predicate{}, fmt.Errorf("predicate %q: want name/arity", s)
	}
	n, err := strconv.Atoi(arity)
	if err != nil || n <= 0 {
		return logic.Predicate{}, fmt.Errorf("predicate %q: bad arity", s)
	}
	return logic.Predicate{Name: name, Arity: n}, nil
}
