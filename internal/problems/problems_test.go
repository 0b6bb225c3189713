package problems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinsValidate(t *testing.T) {
	for _, name := range Names() {
		prob, tmpl, err := Builtin(name)
		require.NoError(t, err)
		assert.NoError(t, prob.Validate(tmpl), "built-in %s", name)
	}
}

func TestBuiltinUnknownName(t *testing.T) {
	_, _, err := Builtin("oddish")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "predecessor")
}

func TestPredecessorShape(t *testing.T) {
	prob, tmpl := Predecessor()
	assert.Len(t, prob.Background, 10)
	assert.Len(t, prob.Positive, 9)
	assert.Len(t, prob.Negative, 91)
	assert.Equal(t, 1, tmpl.Steps)
	assert.Empty(t, tmpl.Auxiliary)
}

func TestEvenShape(t *testing.T) {
	prob, tmpl := Even()
	assert.Len(t, prob.Background, 11)
	assert.Len(t, prob.Positive, 6)
	assert.Len(t, prob.Negative, 5)
	assert.Equal(t, 6, tmpl.Steps)
	require.Len(t, tmpl.Auxiliary, 1)
	assert.Equal(t, "pred/2", tmpl.Auxiliary[0].String())

	pair := tmpl.Rules[prob.Lang.Target]
	require.NotNil(t, pair.Second)
	assert.True(t, pair.Second.Intensional)
}
