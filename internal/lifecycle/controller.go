// Package lifecycle executes stop/modify/start transitions on the managed
// instance.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Atharva0045/cloud-autoscaler/internal/cloud"
	"github.com/Atharva0045/cloud-autoscaler/internal/sequence"
)

// Common errors.
var (
	// ErrInvalidState means a resize was attempted while the instance was
	// not stopped.
	ErrInvalidState = errors.New("instance must be stopped before resizing")

	// ErrStopTimeout means the instance did not reach stopped within the
	// configured wait bound.
	ErrStopTimeout = errors.New("timed out waiting for instance to stop")

	// ErrStartTimeout means the instance did not reach running within the
	// configured wait bound after a resize.
	ErrStartTimeout = errors.New("timed out waiting for instance to start")
)

// CloudAPI is the slice of the provider the controller drives.
type CloudAPI interface {
	DescribeInstance(ctx context.Context, id string) (cloud.InstanceInfo, error)
	ModifyInstanceType(ctx context.Context, id, instanceType string) error
	StopInstance(ctx context.Context, id string) error
	StartInstance(ctx context.Context, id string) error
	WaitUntilStopped(ctx context.Context, id string, timeout time.Duration) error
	WaitUntilRunning(ctx context.Context, id string, timeout time.Duration) error
}

// MonitoringReconfigurer triggers the best-effort monitoring setup after a
// successful live resize.
type MonitoringReconfigurer interface {
	Reconfigure(ctx context.Context, instanceID string) error
}

// Result reports the outcome of one lifecycle operation. Success=false with
// a reason is a routine outcome (already at bound, already at target), not a
// failure of the controller.
type Result struct {
	Success bool   `json:"success"`
	DryRun  bool   `json:"dry_run"`
	OldType string `json:"old_type"`
	NewType string `json:"new_type"`
	Reason  string `json:"reason,omitempty"`
}

// Config holds controller settings.
type Config struct {
	InstanceID  string
	DryRun      bool
	WaitTimeout time.Duration
}

// Controller performs scaling transitions on a single managed instance.
type Controller struct {
	api         CloudAPI
	monitor     MonitoringReconfigurer
	seq         *sequence.Sequence
	instanceID  string
	dryRun      bool
	waitTimeout time.Duration
	logger      zerolog.Logger
}

// New creates a Controller. monitor may be nil, in which case the
// post-resize monitoring step is skipped.
func New(api CloudAPI, monitor MonitoringReconfigurer, seq *sequence.Sequence, cfg Config, logger zerolog.Logger) *Controller {
	timeout := cfg.WaitTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Controller{
		api:         api,
		monitor:     monitor,
		seq:         seq,
		instanceID:  cfg.InstanceID,
		dryRun:      cfg.DryRun,
		waitTimeout: timeout,
		logger:      logger.With().Str("component", "lifecycle").Logger(),
	}
}

// DryRun reports whether the controller is in dry-run mode.
func (c *Controller) DryRun() bool {
	return c.dryRun
}

// ResizeTo changes the instance to targetType. The instance must already be
// stopped. Same-type calls return Success=false without touching the
// provider. In dry-run mode no provider mutation is issued.
func (c *Controller) ResizeTo(ctx context.Context, targetType string) (Result, error) {
	info, err := c.api.DescribeInstance(ctx, c.instanceID)
	if err != nil {
		return Result{}, err
	}
	return c.resize(ctx, info, targetType)
}

// resize performs the modify/start transaction against a known snapshot.
func (c *Controller) resize(ctx context.Context, info cloud.InstanceInfo, targetType string) (Result, error) {
	if info.State != cloud.StateStopped {
		return Result{}, fmt.Errorf("%w: state is %q", ErrInvalidState, info.State)
	}

	if info.Type == targetType {
		c.logger.Warn().Str("type", targetType).Msg("Instance already at target type, skipping")
		return Result{
			Success: false,
			OldType: info.Type,
			NewType: targetType,
			Reason:  fmt.Sprintf("instance already at %s", targetType),
		}, nil
	}

	if c.dryRun {
		c.logger.Info().
			Str("old_type", info.Type).
			Str("new_type", targetType).
			Msg("[dry run] Would resize instance")
		return Result{Success: true, DryRun: true, OldType: info.Type, NewType: targetType}, nil
	}

	c.logger.Info().
		Str("old_type", info.Type).
		Str("new_type", targetType).
		Msg("Resizing instance")

	if err := c.api.ModifyInstanceType(ctx, c.instanceID, targetType); err != nil {
		return Result{}, err
	}

	if err := c.api.StartInstance(ctx, c.instanceID); err != nil {
		return Result{}, err
	}
	if err := c.api.WaitUntilRunning(ctx, c.instanceID, c.waitTimeout); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrStartTimeout, err)
	}

	c.logger.Info().Str("new_type", targetType).Msg("Instance started with new type")

	// Monitoring is decoupled from the scaling transaction: a failure here
	// is logged and the resize still counts as successful.
	if c.monitor != nil {
		if err := c.monitor.Reconfigure(ctx, c.instanceID); err != nil {
			c.logger.Error().Err(err).Msg("Monitoring reconfiguration failed after resize")
		}
	}

	return Result{Success: true, OldType: info.Type, NewType: targetType}, nil
}

// ScaleUp moves the instance one position up the type sequence.
func (c *Controller) ScaleUp(ctx context.Context) (Result, error) {
	return c.step(ctx, c.seq.NextLarger, sequence.ErrAtMaximum, "already at maximum instance type")
}

// ScaleDown moves the instance one position down the type sequence.
func (c *Controller) ScaleDown(ctx context.Context) (Result, error) {
	return c.step(ctx, c.seq.NextSmaller, sequence.ErrAtMinimum, "already at minimum instance type")
}

func (c *Controller) step(ctx context.Context, next func(string) (string, error), boundErr error, boundReason string) (Result, error) {
	info, err := c.api.DescribeInstance(ctx, c.instanceID)
	if err != nil {
		return Result{}, err
	}

	target, err := next(info.Type)
	if errors.Is(err, boundErr) {
		return Result{
			Success: false,
			OldType: info.Type,
			NewType: info.Type,
			Reason:  fmt.Sprintf("%s: %s", boundReason, info.Type),
		}, nil
	}
	if err != nil {
		// ErrUnknownType: the instance drifted outside the supported
		// range. Propagate as a hard error.
		return Result{}, err
	}

	// Dry run short-circuits before any stop call so the reported result
	// reflects the pre-stop state.
	if c.dryRun {
		c.logger.Info().
			Str("old_type", info.Type).
			Str("new_type", target).
			Msg("[dry run] Would resize instance")
		return Result{Success: true, DryRun: true, OldType: info.Type, NewType: target}, nil
	}

	if info.State == cloud.StateRunning {
		c.logger.Info().Str("instance_id", c.instanceID).Msg("Stopping instance before resize")
		if err := c.api.StopInstance(ctx, c.instanceID); err != nil {
			return Result{}, err
		}
		if err := c.api.WaitUntilStopped(ctx, c.instanceID, c.waitTimeout); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrStopTimeout, err)
		}
	}

	// Re-read state before the modify so the transaction never trusts a
	// snapshot taken before the stop settled.
	return c.ResizeTo(ctx, target)
}
