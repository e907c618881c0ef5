// Package autoscale composes prediction, policy and lifecycle into one
// autoscaling cycle.
package autoscale

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Atharva0045/cloud-autoscaler/internal/cloud"
	"github.com/Atharva0045/cloud-autoscaler/internal/lifecycle"
	"github.com/Atharva0045/cloud-autoscaler/internal/metrics"
	"github.com/Atharva0045/cloud-autoscaler/internal/metricsource"
	"github.com/Atharva0045/cloud-autoscaler/internal/policy"
	"github.com/Atharva0045/cloud-autoscaler/internal/prediction"
)

// UnknownInstanceType is reported when the fresh state read fails; the
// cycle never falls back to stale cached data.
const UnknownInstanceType = "unknown"

// ActionNone is reported when no scaling action was executed.
const ActionNone = "none"

// MetricsSource fetches the recent metric window.
type MetricsSource interface {
	FetchRecentWindow(ctx context.Context, window time.Duration) ([]metricsource.Sample, error)
}

// Predictor produces the load prediction for a metric window.
type Predictor interface {
	Predict(samples []metricsource.Sample) (prediction.Signal, error)
}

// Scaler executes scaling transitions.
type Scaler interface {
	ScaleUp(ctx context.Context) (lifecycle.Result, error)
	ScaleDown(ctx context.Context) (lifecycle.Result, error)
	DryRun() bool
}

// InstanceReader reads fresh instance state for reporting.
type InstanceReader interface {
	DescribeInstance(ctx context.Context, id string) (cloud.InstanceInfo, error)
}

// CycleResult is the structured outcome of one autoscaling cycle.
type CycleResult struct {
	CycleID             string             `json:"cycle_id"`
	Timestamp           time.Time          `json:"timestamp"`
	PredictedCPU        float64            `json:"predicted_cpu"`
	Confidence          float64            `json:"confidence"`
	Decision            policy.Action      `json:"decision"`
	Reason              string             `json:"reason"`
	CurrentInstanceType string             `json:"current_instance_type"`
	ActionTaken         string             `json:"action_taken"`
	DryRun              bool               `json:"dry_run"`
	ScalingResult       *lifecycle.Result  `json:"scaling_result,omitempty"`
	Error               string             `json:"error,omitempty"`
}

// Config holds engine settings.
type Config struct {
	InstanceID string
	Window     time.Duration
	BufferPath string
}

// Engine runs autoscaling cycles. It owns the cooldown tracker: the tracker
// is mutated only here, after a confirmed live action.
type Engine struct {
	source    MetricsSource
	predictor Predictor
	scaler    Scaler
	instances InstanceReader
	pol       *policy.Policy
	tracker   *policy.CooldownTracker
	stats     *metrics.Metrics
	cfg       Config
	logger    zerolog.Logger

	// mu serializes cycles so the daemon and the HTTP endpoint can never
	// overlap decisions.
	mu sync.Mutex
}

// New creates an Engine. stats may be nil.
func New(source MetricsSource, predictor Predictor, scaler Scaler, instances InstanceReader,
	pol *policy.Policy, tracker *policy.CooldownTracker, stats *metrics.Metrics,
	cfg Config, logger zerolog.Logger) *Engine {
	if cfg.Window <= 0 {
		cfg.Window = 5 * time.Minute
	}
	return &Engine{
		source:    source,
		predictor: predictor,
		scaler:    scaler,
		instances: instances,
		pol:       pol,
		tracker:   tracker,
		stats:     stats,
		cfg:       cfg,
		logger:    logger.With().Str("component", "autoscale").Logger(),
	}
}

// CooldownRemaining reports the active cooldown, for the status surface.
func (e *Engine) CooldownRemaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Remaining()
}

// CurrentInstance reads the fresh state of the managed instance.
func (e *Engine) CurrentInstance(ctx context.Context) (cloud.InstanceInfo, error) {
	return e.instances.DescribeInstance(ctx, e.cfg.InstanceID)
}

// RunCycle executes one fetch-predict-decide-execute pass. Prediction and
// metric failures abort the cycle with an error; execution failures are
// absorbed into the result, because a failed action must never crash the
// cycle or start a cooldown.
func (e *Engine) RunCycle(ctx context.Context) (*CycleResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := time.Now()
	result := &CycleResult{
		CycleID:             uuid.NewString(),
		Timestamp:           started.UTC(),
		CurrentInstanceType: UnknownInstanceType,
		ActionTaken:         ActionNone,
		DryRun:              e.scaler.DryRun(),
	}
	log := e.logger.With().Str("cycle_id", result.CycleID).Logger()

	samples, err := e.source.FetchRecentWindow(ctx, e.cfg.Window)
	if err != nil {
		e.recordCycle("fetch_error", started)
		return result, err
	}

	if e.cfg.BufferPath != "" {
		if err := metricsource.WriteBuffer(e.cfg.BufferPath, samples); err != nil {
			log.Warn().Err(err).Str("path", e.cfg.BufferPath).Msg("Failed to persist live buffer")
		}
	}

	signal, err := e.predictor.Predict(samples)
	if err != nil {
		e.recordCycle("predict_error", started)
		return result, err
	}
	result.PredictedCPU = signal.PredictedCPU
	result.Confidence = signal.Confidence
	if e.stats != nil {
		e.stats.RecordPrediction(signal.PredictedCPU, signal.Confidence)
	}

	decision := e.pol.Decide(signal.PredictedCPU, signal.Confidence, e.tracker.Remaining())
	result.Decision = decision.Action
	result.Reason = decision.Reason
	if e.stats != nil {
		e.stats.RecordDecision(string(decision.Action))
		e.stats.CooldownRemaining.Set(e.tracker.Remaining().Seconds())
	}

	// State is read fresh every cycle; the instance may have been changed
	// out-of-band since the last one.
	if info, err := e.instances.DescribeInstance(ctx, e.cfg.InstanceID); err != nil {
		log.Error().Err(err).Msg("Failed to read instance state")
	} else {
		result.CurrentInstanceType = info.Type
	}

	log.Info().
		Float64("predicted_cpu", signal.PredictedCPU).
		Float64("confidence", signal.Confidence).
		Str("decision", string(decision.Action)).
		Str("reason", decision.Reason).
		Str("current_instance_type", result.CurrentInstanceType).
		Msg("Decision made")

	switch decision.Action {
	case policy.ActionScaleUp:
		e.execute(ctx, log, result, decision.Action, e.scaler.ScaleUp)
	case policy.ActionScaleDown:
		e.execute(ctx, log, result, decision.Action, e.scaler.ScaleDown)
	}

	e.recordCycle("ok", started)
	return result, nil
}

// execute runs a scaling operation and folds its outcome into the result.
// Cooldown is committed only for a confirmed live action: dry-run rehearsal
// stays side-effect free, and skipped or failed actions never start one.
func (e *Engine) execute(ctx context.Context, log zerolog.Logger, result *CycleResult,
	action policy.Action, op func(context.Context) (lifecycle.Result, error)) {

	// The stop/modify/start transaction must run to completion once started:
	// a caller timeout or disconnect cancelling it mid-flight could leave the
	// instance stopped with its type changed but never restarted. Cancellation
	// applies up through the decide step only.
	res, err := op(context.WithoutCancel(ctx))
	if err != nil {
		log.Error().Err(err).Str("action", string(action)).Msg("Scaling action failed")
		result.Error = err.Error()
		if e.stats != nil {
			e.stats.RecordScaling(string(action), "error")
		}
		return
	}

	result.ScalingResult = &res
	if !res.Success {
		log.Warn().
			Str("action", string(action)).
			Str("reason", res.Reason).
			Msg("Scaling action skipped")
		if e.stats != nil {
			e.stats.RecordScaling(string(action), "skipped")
		}
		return
	}

	result.ActionTaken = string(action)
	if !res.DryRun {
		e.tracker.Record(action)
	}
	if e.stats != nil {
		e.stats.RecordScaling(string(action), "success")
	}
	log.Info().
		Str("action", string(action)).
		Str("old_type", res.OldType).
		Str("new_type", res.NewType).
		Bool("dry_run", res.DryRun).
		Msg("Scaling action completed")
}

func (e *Engine) recordCycle(status string, started time.Time) {
	if e.stats != nil {
		e.stats.RecordCycle(status, time.Since(started).Seconds())
	}
}
