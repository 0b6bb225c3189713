package ilp

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"difflog/internal/logic"
)

var (
	zero = logic.Predicate{Name: "zero", Arity: 1}
	succ = logic.Predicate{Name: "succ", Arity: 2}
	pre  = logic.Predicate{Name: "predecessor", Arity: 2}
	even = logic.Predicate{Name: "even", Arity: 1}
	aux  = logic.Predicate{Name: "pred", Arity: 2}
)

func predecessorLang() LanguageModel {
	return LanguageModel{
		Target:      pre,
		Extensional: []logic.Predicate{zero, succ},
		Constants:   []logic.Constant{"0", "1", "2"},
	}
}

func TestGeneratePredecessorSlot(t *testing.T) {
	lm := predecessorLang()
	tmpl := ProgramTemplate{Rules: map[logic.Predicate]TemplatePair{pre: {First: RuleTemplate{}}}, Steps: 1}

	clauses, err := Generate(lm, tmpl, pre, RuleTemplate{ExtraVars: 0, Intensional: false})
	require.NoError(t, err)

	// Body atoms over {zero/1, succ/2} and variables {A,B}: 2 + 4 = 6
	// atoms, so 6 one-atom bodies and 6*5 ordered two-atom bodies.
	assert.Len(t, clauses, 36)

	rendered := make([]string, len(clauses))
	for i, c := range clauses {
		rendered[i] = c.String()
	}
	assert.True(t, sort.StringsAreSorted(rendered), "generator output must be in canonical order")
	assert.Contains(t, rendered, "predecessor(A,B)<-succ(B,A)")

	// No duplicates.
	seen := map[string]bool{}
	for _, s := range rendered {
		assert.False(t, seen[s], "duplicate candidate %s", s)
		seen[s] = true
	}
}

func TestGenerateDeterminism(t *testing.T) {
	lm := predecessorLang()
	tmpl := ProgramTemplate{Rules: map[logic.Predicate]TemplatePair{pre: {First: RuleTemplate{}}}, Steps: 1}

	a, err := Generate(lm, tmpl, pre, RuleTemplate{ExtraVars: 1})
	require.NoError(t, err)
	b, err := Generate(lm, tmpl, pre, RuleTemplate{ExtraVars: 1})
	require.NoError(t, err)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("two generator runs differ:\n%s", diff)
	}
}

func TestGenerateIntensionalIncludesLearned(t *testing.T) {
	lm := LanguageModel{
		Target:      even,
		Extensional: []logic.Predicate{zero, succ},
		Constants:   []logic.Constant{"0", "1"},
	}
	second := RuleTemplate{ExtraVars: 1, Intensional: true}
	tmpl := ProgramTemplate{
		Auxiliary: []logic.Predicate{aux},
		Rules: map[logic.Predicate]TemplatePair{
			even: {First: RuleTemplate{}, Second: &second},
			aux:  {First: RuleTemplate{ExtraVars: 1}},
		},
		Steps: 6,
	}

	clauses, err := Generate(lm, tmpl, even, second)
	require.NoError(t, err)
	var rendered []string
	for _, c := range clauses {
		rendered = append(rendered, c.String())
	}
	assert.Contains(t, rendered, "even(A)<-even(B), pred(B,A)")

	auxClauses, err := Generate(lm, tmpl, aux, RuleTemplate{ExtraVars: 1})
	require.NoError(t, err)
	rendered = rendered[:0]
	for _, c := range auxClauses {
		rendered = append(rendered, c.String())
	}
	assert.Contains(t, rendered, "pred(A,B)<-succ(A,C), succ(C,B)")
}

func TestGenerateFreshVariablePrefix(t *testing.T) {
	lm := predecessorLang()
	tmpl := ProgramTemplate{Rules: map[logic.Predicate]TemplatePair{pre: {First: RuleTemplate{}}}, Steps: 1}

	clauses, err := Generate(lm, tmpl, pre, RuleTemplate{ExtraVars: 2})
	require.NoError(t, err)
	for _, c := range clauses {
		vars := c.Variables()
		// Fresh variables beyond the head must be a contiguous block
		// C, D, ... with no gaps.
		for i, v := range vars {
			assert.Equal(t, logic.Variable(i), v, "clause %s uses non-contiguous variables", c)
		}
	}
}

func TestGenerateNoBodyPredicates(t *testing.T) {
	lm := LanguageModel{Target: pre, Constants: []logic.Constant{"0"}}
	tmpl := ProgramTemplate{Rules: map[logic.Predicate]TemplatePair{pre: {First: RuleTemplate{}}}, Steps: 1}

	_, err := Generate(lm, tmpl, pre, RuleTemplate{Intensional: false})
	assert.ErrorContains(t, err, "no predicates in scope")
}
