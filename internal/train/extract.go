package train

import (
	"fmt"
	"math"

	"difflog/internal/infer"
	"difflog/internal/logic"
)

// Definition is one extracted slot clause: the argmax candidate under the
// slot's softmax together with its probability. Extraction always returns the
// argmax clause; LowConfidence flags slots whose best probability falls below
// the configured threshold instead of omitting them.
type Definition struct {
	Pred          logic.Predicate
	Clause        logic.Clause
	Confidence    float64
	LowConfidence bool
}

// String renders the definition for display.
func (d Definition) String() string {
	s := fmt.Sprintf("%s (confidence %.3f)", d.Clause, d.Confidence)
	if d.LowConfidence {
		s += " [below threshold]"
	}
	return s
}

// Extract converts trained weights back into a discrete program: one
// definition per slot, auxiliary predicates before the target. It is pure
// and idempotent; repeated calls on unchanged weights return identical
// output.
func Extract(slots []*infer.Slot, threshold float64) []Definition {
	out := make([]Definition, 0, len(slots))
	for _, slot := range slots {
		p := softmax(slot.Weights)
		best := 0
		for j := range p {
			if p[j] > p[best] {
				best = j
			}
		}
		out = append(out, Definition{
			Pred:          slot.Pred,
			Clause:        slot.Clauses[best],
			Confidence:    p[best],
			LowConfidence: p[best] < threshold,
		})
	}
	return out
}

func softmax(w []float64) []float64 {
	out := make([]float64, len(w))
	hi := math.Inf(-1)
	for _, x := range w {
		if x > hi {
			hi = x
		}
	}
	var sum float64
	for i, x := range w {
		out[i] = math.Exp(x - hi)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
