// Package config holds the training configuration: optimizer settings,
// mini-batching, extraction threshold. Values come from defaults, optionally
// overridden by a YAML file and CLI flags.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Training configures one training run. The engine itself never computes
// these; they are external inputs.
type Training struct {
	// Steps is the number of (gradient, update) pairs to run.
	Steps int `yaml:"steps"`

	// LearningRate, Decay and Epsilon parameterize the RMSProp update.
	LearningRate float64 `yaml:"learning_rate"`
	Decay        float64 `yaml:"decay"`
	Epsilon      float64 `yaml:"epsilon"`

	// MiniBatchFraction in (0,1] is the fraction of the labeled examples
	// sampled (without replacement) for each gradient step.
	MiniBatchFraction float64 `yaml:"mini_batch_fraction"`

	// ClauseProbThreshold is the minimum softmax probability for an
	// extracted clause to count as confidently learned.
	ClauseProbThreshold float64 `yaml:"clause_prob_threshold"`

	// InitStdDev scales the normal initialization of the clause weights.
	InitStdDev float64 `yaml:"init_std_dev"`

	// Seed fixes weight initialization and mini-batch sampling, making a
	// run reproducible.
	Seed int64 `yaml:"seed"`

	// StopLoss, when positive, stops training early once the full-set
	// loss falls below it.
	StopLoss float64 `yaml:"stop_loss"`

	// LogEvery is the step interval for progress logging; 0 disables.
	LogEvery int `yaml:"log_every"`
}

// Default returns the production defaults.
func Default() Training {
	return Training{
		Steps:               500,
		LearningRate:        0.5,
		Decay:               0.9,
		Epsilon:             1e-8,
		MiniBatchFraction:   1.0,
		ClauseProbThreshold: 0.1,
		InitStdDev:          1.0,
		Seed:                1,
		LogEvery:            25,
	}
}

// Load reads a YAML training config, applying file values over the defaults.
func Load(path string) (Training, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read training config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse training config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations that cannot drive a training run.
func (c Training) Validate() error {
	if c.Steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", c.Steps)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be positive, got %g", c.LearningRate)
	}
	if c.Decay <= 0 || c.Decay >= 1 {
		return fmt.Errorf("decay must be in (0,1), got %g", c.Decay)
	}
	if c.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %g", c.Epsilon)
	}
	if c.MiniBatchFraction <= 0 || c.MiniBatchFraction > 1 {
		return fmt.Errorf("mini_batch_fraction must be in (0,1], got %g", c.MiniBatchFraction)
	}
	if c.ClauseProbThreshold < 0 || c.ClauseProbThreshold > 1 {
		return fmt.Errorf("clause_prob_threshold must be in [0,1], got %g", c.ClauseProbThreshold)
	}
	if c.InitStdDev < 0 {
		return fmt.Errorf("init_std_dev must be non-negative, got %g", c.InitStdDev)
	}
	return nil
}
