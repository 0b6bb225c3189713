package infer

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"difflog/internal/diff"
	"difflog/internal/ilp"
	"difflog/internal/logic"
)

var (
	zero = logic.Predicate{Name: "zero", Arity: 1}
	succ = logic.Predicate{Name: "succ", Arity: 2}
	pre  = logic.Predicate{Name: "predecessor", Arity: 2}
)

// predecessorProblem builds scenario: predecessor/2 over 0..n-1 with
// background zero(0) and the successor chain.
func predecessorProblem(n int) (ilp.Problem, ilp.ProgramTemplate) {
	lm := ilp.LanguageModel{
		Target:      pre,
		Extensional: []logic.Predicate{zero, succ},
	}
	for i := 0; i < n; i++ {
		lm.Constants = append(lm.Constants, logic.Constant(fmt.Sprintf("%d", i)))
	}
	prob := ilp.Problem{Name: "predecessor", Lang: lm}
	prob.Background = append(prob.Background, logic.GroundAtom{Pred: zero, Args: []logic.Constant{"0"}})
	for i := 0; i < n-1; i++ {
		prob.Background = append(prob.Background, logic.GroundAtom{
			Pred: succ,
			Args: []logic.Constant{logic.Constant(fmt.Sprintf("%d", i)), logic.Constant(fmt.Sprintf("%d", i+1))},
		})
	}
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			g := logic.GroundAtom{
				Pred: pre,
				Args: []logic.Constant{logic.Constant(fmt.Sprintf("%d", a)), logic.Constant(fmt.Sprintf("%d", b))},
			}
			if a == b+1 {
				prob.Positive = append(prob.Positive, g)
			} else {
				prob.Negative = append(prob.Negative, g)
			}
		}
	}
	tmpl := ilp.ProgramTemplate{
		Rules: map[logic.Predicate]ilp.TemplatePair{pre: {First: ilp.RuleTemplate{}}},
		Steps: 1,
	}
	return prob, tmpl
}

func TestZeroStepIdentity(t *testing.T) {
	prob, tmpl := predecessorProblem(4)
	tmpl.Steps = 0
	m, err := NewMachine(prob, tmpl)
	require.NoError(t, err)

	tape := diff.NewTape()
	v, _ := m.Forward(tape)
	assert.Equal(t, m.Initial(), v.Data, "T=0 must return v0 unchanged")
}

func TestRangeAndMonotonicityInvariants(t *testing.T) {
	prob, tmpl := predecessorProblem(4)
	rng := rand.New(rand.NewSource(7))

	for _, steps := range []int{1, 2, 4} {
		tmpl.Steps = steps
		m, err := NewMachine(prob, tmpl)
		require.NoError(t, err)
		for _, slot := range m.Slots() {
			for j := range slot.Weights {
				slot.Weights[j] = rng.NormFloat64() * 3
			}
		}

		tape := diff.NewTape()
		v, _ := m.Forward(tape)
		v0 := m.Initial()
		for i, x := range v.Data {
			assert.GreaterOrEqual(t, x, 0.0, "steps=%d atom %s", steps, m.Uni.Atom(i))
			assert.LessOrEqual(t, x, 1.0, "steps=%d atom %s", steps, m.Uni.Atom(i))
			assert.GreaterOrEqual(t, x, v0[i], "background atom %s must stay asserted", m.Uni.Atom(i))
		}
	}
}

func TestForwardSelectsWeightedClause(t *testing.T) {
	prob, tmpl := predecessorProblem(4)
	m, err := NewMachine(prob, tmpl)
	require.NoError(t, err)

	slots := m.Slots()
	require.Len(t, slots, 1)
	want := "predecessor(A,B)<-succ(B,A)"
	found := -1
	for j, c := range slots[0].Clauses {
		if c.String() == want {
			found = j
		}
	}
	require.GreaterOrEqual(t, found, 0, "candidate %s missing", want)

	// A large weight makes the softmax effectively one-hot on the clause.
	slots[0].Weights[found] = 30

	tape := diff.NewTape()
	v, _ := m.Forward(tape)

	good, err := m.Uni.Index(mustGround(t, "predecessor(1,0)"))
	require.NoError(t, err)
	bad, err := m.Uni.Index(mustGround(t, "predecessor(0,1)"))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v.Data[good], 1e-6)
	assert.InDelta(t, 0.0, v.Data[bad], 1e-6)
}

// TestRecursiveChainingDerivesEvens pins the expected program for the even
// scenario with near-one-hot weights and checks that six chaining steps
// derive exactly the even numbers.
func TestRecursiveChainingDerivesEvens(t *testing.T) {
	prob, tmpl := evenProblem()
	m, err := NewMachine(prob, tmpl)
	require.NoError(t, err)

	evenPred := logic.Predicate{Name: "even", Arity: 1}
	auxPred := logic.Predicate{Name: "pred", Arity: 2}
	evenSeen := 0
	for _, slot := range m.Slots() {
		var want string
		switch {
		case slot.Pred == auxPred:
			want = "pred(A,B)<-succ(A,C), succ(C,B)"
		case slot.Pred == evenPred && evenSeen == 0:
			want, evenSeen = "even(A)<-zero(A)", 1
		default:
			want = "even(A)<-even(B), pred(B,A)"
		}
		found := -1
		for j, c := range slot.Clauses {
			if c.String() == want {
				found = j
			}
		}
		require.GreaterOrEqual(t, found, 0, "candidate %s missing from slot for %s", want, slot.Pred)
		slot.Weights[found] = 30
	}

	tape := diff.NewTape()
	v, _ := m.Forward(tape)
	for i := 0; i <= 10; i++ {
		ix, err := m.Uni.Index(mustGround(t, fmt.Sprintf("even(%d)", i)))
		require.NoError(t, err)
		if i%2 == 0 {
			assert.InDelta(t, 1.0, v.Data[ix], 1e-6, "even(%d)", i)
		} else {
			assert.InDelta(t, 0.0, v.Data[ix], 1e-6, "even(%d)", i)
		}
	}
}

// evenProblem mirrors the built-in even scenario without importing it.
func evenProblem() (ilp.Problem, ilp.ProgramTemplate) {
	target := logic.Predicate{Name: "even", Arity: 1}
	aux := logic.Predicate{Name: "pred", Arity: 2}
	lm := ilp.LanguageModel{Target: target, Extensional: []logic.Predicate{zero, succ}}
	for i := 0; i <= 10; i++ {
		lm.Constants = append(lm.Constants, logic.Constant(fmt.Sprintf("%d", i)))
	}
	prob := ilp.Problem{Name: "even", Lang: lm}
	prob.Background = append(prob.Background, logic.GroundAtom{Pred: zero, Args: []logic.Constant{"0"}})
	for i := 0; i < 10; i++ {
		prob.Background = append(prob.Background, logic.GroundAtom{
			Pred: succ,
			Args: []logic.Constant{logic.Constant(fmt.Sprintf("%d", i)), logic.Constant(fmt.Sprintf("%d", i+1))},
		})
	}
	for i := 0; i <= 10; i++ {
		g := logic.GroundAtom{Pred: target, Args: []logic.Constant{logic.Constant(fmt.Sprintf("%d", i))}}
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
			target: {First: ilp.RuleTemplate{}, Second: &recursive},
			aux:    {First: ilp.RuleTemplate{ExtraVars: 1}},
		},
		Steps: 6,
	}
	return prob, tmpl
}

func TestValuationsThreshold(t *testing.T) {
	prob, tmpl := predecessorProblem(3)
	m, err := NewMachine(prob, tmpl)
	require.NoError(t, err)

	tape := diff.NewTape()
	v, _ := m.Forward(tape)
	all := m.Valuations(v.Data, 0)
	assert.Len(t, all, m.Uni.Size())

	high := m.Valuations(v.Data, 0.99)
	for name, p := range high {
		assert.GreaterOrEqual(t, p, 0.99, "atom %s", name)
	}
	assert.Contains(t, high, "zero(0)")
}

func mustGround(t *testing.T, s string) logic.GroundAtom {
	t.Helper()
	g, err := logic.ParseGroundAtom(s)
	require.NoError(t, err)
	return g
}
