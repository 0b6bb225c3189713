package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "training.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps: 100\nlearning_rate: 0.1\nseed: 42\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Steps)
	assert.Equal(t, 0.1, cfg.LearningRate)
	assert.Equal(t, int64(42), cfg.Seed)

	// Untouched fields keep their defaults.
	assert.Equal(t, Default().Decay, cfg.Decay)
	assert.Equal(t, Default().MiniBatchFraction, cfg.MiniBatchFraction)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Training)
	}{
		{"negative steps", func(c *Training) { c.Steps = -1 }},
		{"zero learning rate", func(c *Training) { c.LearningRate = 0 }},
		{"decay at one", func(c *Training) { c.Decay = 1 }},
		{"zero epsilon", func(c *Training) { c.Epsilon = 0 }},
		{"zero batch fraction", func(c *Training) { c.MiniBatchFraction = 0 }},
		{"batch fraction above one", func(c *Training) { c.MiniBatchFraction = 1.5 }},
		{"threshold above one", func(c *Training) { c.ClauseProbThreshold = 1.1 }},
		{"negative init std dev", func(c *Training) { c.InitStdDev = -0.5 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
