// Package train drives gradient descent over the clause weights: RMSProp
// updates on mini-batched cross-entropy, progress logging, early stopping,
// and extraction of the learned program from the trained weights.
package train

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"difflog/internal/config"
	"difflog/internal/diff"
	"difflog/internal/ilp"
	"difflog/internal/infer"
)

// clipEps bounds the arguments of log in the loss. Clipping is part of the
// numeric contract: training must never propagate NaN or Inf.
const clipEps = 1e-4

// Result is the outcome of one training run.
type Result struct {
	RunID string
	// Steps is the number of update steps actually executed.
	Steps int
	// Losses holds the full-set monitoring loss recorded at every step.
	Losses []float64
	// FinalLoss is the full-set loss of the final weights.
	FinalLoss float64
	// Stopped reports whether the run ended early on StopLoss.
	Stopped bool
	// Valuation is the final v_T under the trained weights.
	Valuation []float64
	// Program is the extracted discrete program.
	Program []Definition
}

// Trainer owns the strictly sequential optimization loop. The weight vectors
// inside the machine's slots are its only mutable state; they are read-only
// during each forward pass and updated only between passes.
type Trainer struct {
	cfg    config.Training
	m      *infer.Machine
	logger *zap.Logger
	rng    *rand.Rand

	idx    []int
	labels []float64
	cache  [][]float64 // RMSProp second-moment accumulator, per slot
}

// New prepares a trainer for the given machine and labeled examples. Weights
// are initialized from a seeded normal distribution, so a (problem, config)
// pair fully determines the run.
func New(m *infer.Machine, prob ilp.Problem, cfg config.Training, logger *zap.Logger) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	tr := &Trainer{
		cfg:    cfg,
		m:      m,
		logger: logger,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
	for _, g := range prob.Positive {
		ix, err := m.Uni.Index(g)
		if err != nil {
			return nil, fmt.Errorf("positive example: %w", err)
		}
		tr.idx = append(tr.idx, ix)
		tr.labels = append(tr.labels, 1)
	}
	for _, g := range prob.Negative {
		ix, err := m.Uni.Index(g)
		if err != nil {
			return nil, fmt.Errorf("negative example: %w", err)
		}
		tr.idx = append(tr.idx, ix)
		tr.labels = append(tr.labels, 0)
	}
	if len(tr.idx) == 0 {
		return nil, fmt.Errorf("problem %s has no labeled examples", prob.Name)
	}

	for _, slot := range m.Slots() {
		for j := range slot.Weights {
			slot.Weights[j] = tr.rng.NormFloat64() * cfg.InitStdDev
		}
		tr.cache = append(tr.cache, make([]float64, len(slot.Weights)))
	}
	return tr, nil
}

// Run executes the training loop: forward pass, mini-batch loss, backward
// pass, RMSProp update, repeated cfg.Steps times or until StopLoss. The
// context is only consulted between steps; there is no mid-step cancellation.
func (tr *Trainer) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	nparams := 0
	for _, slot := range tr.m.Slots() {
		nparams += len(slot.Weights)
	}
	tr.logger.Info("training started",
		zap.String("run_id", res.RunID),
		zap.Int("steps", tr.cfg.Steps),
		zap.Int("universe_size", tr.m.Uni.Size()),
		zap.Int("examples", len(tr.idx)),
		zap.Int("parameters", nparams),
	)

	for step := 0; step < tr.cfg.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("training interrupted at step %d: %w", step, err)
		}

		tape := diff.NewTape()
		vT, params := tr.m.Forward(tape)

		batchIdx, batchLabels := tr.sample()
		batchLoss := tape.BCE(vT, batchIdx, batchLabels, clipEps)
		if err := tape.Backward(batchLoss); err != nil {
			return nil, err
		}

		// The monitoring loss is a second scalar over the same v_T, not
		// a second forward pass.
		full := fullLoss(vT.Data, tr.idx, tr.labels)
		res.Losses = append(res.Losses, full)
		res.Steps = step + 1

		tr.update(params)

		if tr.cfg.LogEvery > 0 && step%tr.cfg.LogEvery == 0 {
			tr.logger.Info("training step",
				zap.Int("step", step),
				zap.Float64("batch_loss", batchLoss.Data[0]),
				zap.Float64("full_loss", full),
			)
		}
		if tr.cfg.StopLoss > 0 && full < tr.cfg.StopLoss {
			tr.logger.Info("early stop on converged loss",
				zap.Int("step", step),
				zap.Float64("full_loss", full),
			)
			res.Stopped = true
			break
		}
	}

	// Final forward pass under the trained weights.
	tape := diff.NewTape()
	vT, _ := tr.m.Forward(tape)
	res.Valuation = append([]float64(nil), vT.Data...)
	res.FinalLoss = fullLoss(vT.Data, tr.idx, tr.labels)
	res.Program = Extract(tr.m.Slots(), tr.cfg.ClauseProbThreshold)

	tr.logger.Info("training finished",
		zap.String("run_id", res.RunID),
		zap.Int("steps", res.Steps),
		zap.Float64("final_loss", res.FinalLoss),
		zap.Bool("early_stop", res.Stopped),
	)
	return res, nil
}

// sample draws the mini-batch for one step: the whole labeled set when the
// fraction is 1, otherwise ceil(r*N) examples without replacement.
func (tr *Trainer) sample() ([]int, []float64) {
	if tr.cfg.MiniBatchFraction >= 1 {
		return tr.idx, tr.labels
	}
	n := len(tr.idx)
	k := int(math.Ceil(tr.cfg.MiniBatchFraction * float64(n)))
	perm := tr.rng.Perm(n)[:k]
	idx := make([]int, k)
	labels := make([]float64, k)
	for i, p := range perm {
		idx[i] = tr.idx[p]
		labels[i] = tr.labels[p]
	}
	return idx, labels
}

// update applies one RMSProp step to every slot's weights.
func (tr *Trainer) update(params []*diff.Vec) {
	slots := tr.m.Slots()
	for s, p := range params {
		grad := p.Grad()
		cache := tr.cache[s]
		w := slots[s].Weights
		for j := range w {
			cache[j] = tr.cfg.Decay*cache[j] + (1-tr.cfg.Decay)*grad[j]*grad[j]
			w[j] -= tr.cfg.LearningRate * grad[j] / (math.Sqrt(cache[j]) + tr.cfg.Epsilon)
		}
	}
}

// fullLoss computes the clipped cross-entropy over the whole labeled set,
// without recording anything on a tape.
func fullLoss(v []float64, idx []int, labels []float64) float64 {
	var sum float64
	for i, ix := range idx {
		x := v[ix]
		y := labels[i]
		sum += y*math.Log(clipVal(x)) + (1-y)*math.Log(clipVal(1-x))
	}
	return -sum / float64(len(idx))
}

func clipVal(x float64) float64 {
	if x < clipEps {
		return clipEps
	}
	if x > 1 {
		return 1
	}
	return x
}
