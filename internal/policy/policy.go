// Package policy implements the scaling decision rules.
package policy

import (
	"fmt"
	"time"
)

// Action is a scaling action.
type Action string

const (
	ActionScaleUp   Action = "scale_up"
	ActionScaleDown Action = "scale_down"
	ActionNoop      Action = "noop"
)

// Decision is the immutable outcome of one policy evaluation.
type Decision struct {
	Action Action `json:"action"`
	Reason string `json:"reason"`
}

// Policy converts a predicted load and its confidence into a scaling
// decision. It is pure: cooldown state is passed in as the remaining
// duration and committed separately via CooldownTracker.Record.
type Policy struct {
	ScaleUpThreshold   float64
	ScaleDownThreshold float64
	MinConfidence      float64
}

// New returns a Policy with the given thresholds.
func New(up, down, minConfidence float64) *Policy {
	return &Policy{
		ScaleUpThreshold:   up,
		ScaleDownThreshold: down,
		MinConfidence:      minConfidence,
	}
}

// Decide evaluates the rules in order and returns the first match. The
// cooldown rule is checked before confidence so a low-confidence reading
// during cooldown still reports the cooldown, not the confidence.
func (p *Policy) Decide(predictedCPU, confidence float64, cooldownRemaining time.Duration) Decision {
	if cooldownRemaining > 0 {
		return Decision{
			Action: ActionNoop,
			Reason: fmt.Sprintf("cooldown active: %ds remaining", int(cooldownRemaining.Seconds())),
		}
	}

	if confidence < p.MinConfidence {
		return Decision{
			Action: ActionNoop,
			Reason: fmt.Sprintf("low confidence: %.3f < %.2f", confidence, p.MinConfidence),
		}
	}

	if predictedCPU > p.ScaleUpThreshold {
		return Decision{
			Action: ActionScaleUp,
			Reason: fmt.Sprintf("predicted CPU %.2f%% > %.2f%% (confidence: %.3f)", predictedCPU, p.ScaleUpThreshold, confidence),
		}
	}

	if predictedCPU < p.ScaleDownThreshold {
		return Decision{
			Action: ActionScaleDown,
			Reason: fmt.Sprintf("predicted CPU %.2f%% < %.2f%% (confidence: %.3f)", predictedCPU, p.ScaleDownThreshold, confidence),
		}
	}

	return Decision{
		Action: ActionNoop,
		Reason: fmt.Sprintf("predicted CPU %.2f%% within safe range [%.2f%%, %.2f%%]", predictedCPU, p.ScaleDownThreshold, p.ScaleUpThreshold),
	}
}
