// Package daemon schedules autoscaling cycles on a fixed interval.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Atharva0045/cloud-autoscaler/internal/autoscale"
	"github.com/Atharva0045/cloud-autoscaler/pkg/clock"
)

// ErrEndpointUnavailable means the control endpoint could not be reached at
// all. The daemon retries sooner on this than on an ordinary cycle failure.
var ErrEndpointUnavailable = errors.New("autoscaler endpoint unavailable")

// CycleRunner triggers one autoscaling cycle.
type CycleRunner interface {
	Run(ctx context.Context) error
}

// LocalRunner drives the engine in-process.
type LocalRunner struct {
	Engine *autoscale.Engine
}

// Run executes one engine cycle, discarding the result. The engine logs it.
func (r LocalRunner) Run(ctx context.Context) error {
	_, err := r.Engine.RunCycle(ctx)
	return err
}

// EndpointRunner triggers cycles on a remote control server, for deployments
// where the scheduler and the control surface run as separate processes.
type EndpointRunner struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
	Logger  zerolog.Logger
}

// Run calls GET {URL}/autoscale and reports the cycle outcome. Connection
// failures map to ErrEndpointUnavailable.
func (r EndpointRunner) Run(ctx context.Context) error {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, r.URL+"/autoscale", nil)
	if err != nil {
		return fmt.Errorf("building cycle request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		// Any transport-level failure, refused connections and deadline
		// expiries included, means the server is not answering.
		return fmt.Errorf("%w: %v", ErrEndpointUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading cycle response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cycle request failed: status %d: %s", resp.StatusCode, body)
	}

	var result autoscale.CycleResult
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("decoding cycle response: %w", err)
	}
	r.Logger.Info().
		Str("decision", string(result.Decision)).
		Str("reason", result.Reason).
		Str("action_taken", result.ActionTaken).
		Msg("Remote cycle completed")
	return nil
}

// Config controls daemon pacing.
type Config struct {
	Interval   time.Duration // delay after a completed cycle
	RetryDelay time.Duration // delay after an unreachable endpoint
}

// Daemon runs cycles forever until its context is cancelled.
type Daemon struct {
	runner CycleRunner
	cfg    Config
	clk    clock.Clock
	logger zerolog.Logger
}

// New creates a Daemon. clk may be nil, in which case real time is used.
func New(runner CycleRunner, cfg Config, clk clock.Clock, logger zerolog.Logger) *Daemon {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 30 * time.Second
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Daemon{
		runner: runner,
		cfg:    cfg,
		clk:    clk,
		logger: logger.With().Str("component", "daemon").Logger(),
	}
}

// Run loops until ctx is cancelled. Cancellation is honored only between
// cycles: an in-flight cycle may be mid-resize, and interrupting it would
// strand the instance, so each cycle runs on its own context.
func (d *Daemon) Run(ctx context.Context) {
	d.logger.Info().
		Dur("interval", d.cfg.Interval).
		Dur("retry_delay", d.cfg.RetryDelay).
		Msg("Daemon started")

	for {
		delay := d.cfg.Interval
		if err := d.runner.Run(context.Background()); err != nil {
			if errors.Is(err, ErrEndpointUnavailable) {
				delay = d.cfg.RetryDelay
				d.logger.Warn().Err(err).Dur("retry_in", delay).Msg("Endpoint unreachable")
			} else {
				d.logger.Error().Err(err).Msg("Cycle failed")
			}
		}

		select {
		case <-ctx.Done():
			d.logger.Info().Msg("Daemon stopped")
			return
		case <-d.clk.After(delay):
		}
	}
}
