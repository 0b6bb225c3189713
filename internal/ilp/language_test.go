package ilp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"difflog/internal/logic"
)

func validProblem() (Problem, ProgramTemplate) {
	lm := LanguageModel{
		Target:      pre,
		Extensional: []logic.Predicate{zero, succ},
		Constants:   []logic.Constant{"0", "1", "2"},
	}
	tmpl := ProgramTemplate{
		Rules: map[logic.Predicate]TemplatePair{pre: {First: RuleTemplate{}}},
		Steps: 1,
	}
	prob := Problem{
		Name: "predecessor",
		Lang: lm,
		Background: []logic.GroundAtom{
			{Pred: zero, Args: []logic.Constant{"0"}},
			{Pred: succ, Args: []logic.Constant{"0", "1"}},
		},
		Positive: []logic.GroundAtom{{Pred: pre, Args: []logic.Constant{"1", "0"}}},
		Negative: []logic.GroundAtom{{Pred: pre, Args: []logic.Constant{"0", "1"}}},
	}
	return prob, tmpl
}

func TestValidateAccepts(t *testing.T) {
	prob, tmpl := validProblem()
	require.NoError(t, prob.Validate(tmpl))
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Problem, *ProgramTemplate)
		want   string
	}{
		{
			name:   "example off target predicate",
			mutate: func(p *Problem, _ *ProgramTemplate) { p.Positive[0].Pred = succ },
			want:   "differs from target",
		},
		{
			name: "constant outside set",
			mutate: func(p *Problem, _ *ProgramTemplate) {
				p.Background[1].Args = []logic.Constant{"0", "9"}
			},
			want: "not in the declared constant set",
		},
		{
			name: "background off extensional predicates",
			mutate: func(p *Problem, _ *ProgramTemplate) {
				p.Background[0].Pred = pre
				p.Background[0].Args = []logic.Constant{"0", "1"}
			},
			want: "not extensional",
		},
		{
			name: "duplicate predicate name with different arity",
			mutate: func(p *Problem, _ *ProgramTemplate) {
				p.Lang.Extensional = append(p.Lang.Extensional, logic.Predicate{Name: "succ", Arity: 1})
			},
			want: "declared with arities",
		},
		{
			name:   "missing template for learned predicate",
			mutate: func(_ *Problem, tm *ProgramTemplate) { delete(tm.Rules, pre) },
			want:   "no rule template",
		},
		{
			name: "template for non-learned predicate",
			mutate: func(_ *Problem, tm *ProgramTemplate) {
				tm.Rules[succ] = TemplatePair{First: RuleTemplate{}}
			},
			want: "not a learned predicate",
		},
		{
			name:   "negative step count",
			mutate: func(_ *Problem, tm *ProgramTemplate) { tm.Steps = -1 },
			want:   "negative forward-chaining step count",
		},
		{
			name:   "duplicate constants",
			mutate: func(p *Problem, _ *ProgramTemplate) { p.Lang.Constants = []logic.Constant{"0", "0"} },
			want:   "duplicate constant",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			prob, tmpl := validProblem()
			tc.mutate(&prob, &tmpl)
			err := prob.Validate(tmpl)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestScopeOrder(t *testing.T) {
	lm := LanguageModel{
		Target:      even,
		Extensional: []logic.Predicate{zero, succ},
		Constants:   []logic.Constant{"0"},
	}
	tmpl := ProgramTemplate{Auxiliary: []logic.Predicate{aux}}
	assert.Equal(t, []logic.Predicate{zero, succ, aux, even}, Scope(lm, tmpl))
	assert.Equal(t, []logic.Predicate{aux, even}, Learned(lm, tmpl))
}
