package lifecycle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Atharva0045/cloud-autoscaler/internal/cloud"
	"github.com/Atharva0045/cloud-autoscaler/internal/sequence"
)

// fakeCloud is a scripted provider. It records every call and mutates its
// instance the way EC2 would.
type fakeCloud struct {
	info  cloud.InstanceInfo
	calls []string

	describeErr error
	modifyErr   error
	startErr    error
	stopErr     error
	waitRunErr  error
	waitStopErr error
}

func (f *fakeCloud) DescribeInstance(ctx context.Context, id string) (cloud.InstanceInfo, error) {
	f.calls = append(f.calls, "describe")
	if f.describeErr != nil {
		return cloud.InstanceInfo{}, f.describeErr
	}
	return f.info, nil
}

func (f *fakeCloud) ModifyInstanceType(ctx context.Context, id, t string) error {
	f.calls = append(f.calls, "modify:"+t)
	if f.modifyErr != nil {
		return f.modifyErr
	}
	f.info.Type = t
	return nil
}

func (f *fakeCloud) StopInstance(ctx context.Context, id string) error {
	f.calls = append(f.calls, "stop")
	return f.stopErr
}

func (f *fakeCloud) StartInstance(ctx context.Context, id string) error {
	f.calls = append(f.calls, "start")
	return f.startErr
}

func (f *fakeCloud) WaitUntilStopped(ctx context.Context, id string, timeout time.Duration) error {
	f.calls = append(f.calls, "wait-stopped")
	if f.waitStopErr != nil {
		return f.waitStopErr
	}
	f.info.State = cloud.StateStopped
	return nil
}

func (f *fakeCloud) WaitUntilRunning(ctx context.Context, id string, timeout time.Duration) error {
	f.calls = append(f.calls, "wait-running")
	if f.waitRunErr != nil {
		return f.waitRunErr
	}
	f.info.State = cloud.StateRunning
	return nil
}

type fakeMonitor struct {
	calls int
	err   error
}

func (f *fakeMonitor) Reconfigure(ctx context.Context, id string) error {
	f.calls++
	return f.err
}

func newController(t *testing.T, fc *fakeCloud, monitor MonitoringReconfigurer, dryRun bool) *Controller {
	t.Helper()
	seq, err := sequence.New([]string{"t3.micro", "t3.small", "t3.medium", "t3.large"})
	if err != nil {
		t.Fatalf("sequence: %v", err)
	}
	return New(fc, monitor, seq, Config{
		InstanceID:  "i-0abc",
		DryRun:      dryRun,
		WaitTimeout: time.Minute,
	}, zerolog.Nop())
}

func TestResizeTo_RequiresStoppedState(t *testing.T) {
	fc := &fakeCloud{info: cloud.InstanceInfo{ID: "i-0abc", Type: "t3.small", State: cloud.StateRunning}}
	c := newController(t, fc, nil, false)

	_, err := c.ResizeTo(context.Background(), "t3.medium")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("error = %v, want ErrInvalidState", err)
	}
	if len(fc.calls) != 1 || fc.calls[0] != "describe" {
		t.Errorf("calls = %v, want only describe", fc.calls)
	}
}

func TestResizeTo_SameTypeIsSkippedNotError(t *testing.T) {
	fc := &fakeCloud{info: cloud.InstanceInfo{ID: "i-0abc", Type: "t3.small", State: cloud.StateStopped}}
	c := newController(t, fc, nil, false)

	res, err := c.ResizeTo(context.Background(), "t3.small")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("same-type resize must not report success")
	}
	if len(fc.calls) != 1 {
		t.Errorf("calls = %v, want no mutation after describe", fc.calls)
	}
}

func TestResizeTo_FullTransaction(t *testing.T) {
	fc := &fakeCloud{info: cloud.InstanceInfo{ID: "i-0abc", Type: "t3.small", State: cloud.StateStopped}}
	mon := &fakeMonitor{}
	c := newController(t, fc, mon, false)

	res, err := c.ResizeTo(context.Background(), "t3.medium")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.DryRun {
		t.Errorf("result = %+v, want live success", res)
	}
	if res.OldType != "t3.small" || res.NewType != "t3.medium" {
		t.Errorf("types = %s -> %s, want t3.small -> t3.medium", res.OldType, res.NewType)
	}

	want := []string{"describe", "modify:t3.medium", "start", "wait-running"}
	if strings.Join(fc.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", fc.calls, want)
	}
	if mon.calls != 1 {
		t.Errorf("monitor calls = %d, want 1", mon.calls)
	}
}

func TestResizeTo_MonitoringFailureDoesNotFailResize(t *testing.T) {
	fc := &fakeCloud{info: cloud.InstanceInfo{ID: "i-0abc", Type: "t3.small", State: cloud.StateStopped}}
	mon := &fakeMonitor{err: errors.New("ssm unavailable")}
	c := newController(t, fc, mon, false)

	res, err := c.ResizeTo(context.Background(), "t3.medium")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Error("resize must succeed even when monitoring reconfiguration fails")
	}
}

func TestResizeTo_StartTimeout(t *testing.T) {
	fc := &fakeCloud{
		info:       cloud.InstanceInfo{ID: "i-0abc", Type: "t3.small", State: cloud.StateStopped},
		waitRunErr: errors.New("exceeded max wait time"),
	}
	c := newController(t, fc, nil, false)

	_, err := c.ResizeTo(context.Background(), "t3.medium")
	if !errors.Is(err, ErrStartTimeout) {
		t.Fatalf("error = %v, want ErrStartTimeout", err)
	}
}

func TestScaleUp_StopsRunningInstanceFirst(t *testing.T) {
	fc := &fakeCloud{info: cloud.InstanceInfo{ID: "i-0abc", Type: "t3.small", State: cloud.StateRunning}}
	c := newController(t, fc, nil, false)

	res, err := c.ScaleUp(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.NewType != "t3.medium" {
		t.Errorf("result = %+v, want success to t3.medium", res)
	}

	want := []string{"describe", "stop", "wait-stopped", "describe", "modify:t3.medium", "start", "wait-running"}
	if strings.Join(fc.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", fc.calls, want)
	}
}

func TestScaleUp_AlreadyAtMaximum(t *testing.T) {
	fc := &fakeCloud{info: cloud.InstanceInfo{ID: "i-0abc", Type: "t3.large", State: cloud.StateRunning}}
	c := newController(t, fc, nil, false)

	res, err := c.ScaleUp(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Error("at-maximum must report success=false")
	}
	if !strings.Contains(res.Reason, "already at maximum") {
		t.Errorf("reason = %q, want already-at-maximum", res.Reason)
	}
	if res.OldType != "t3.large" || res.NewType != "t3.large" {
		t.Errorf("types = %s -> %s, want unchanged", res.OldType, res.NewType)
	}
	if len(fc.calls) != 1 {
		t.Errorf("calls = %v, instance must not be touched at the bound", fc.calls)
	}
}

func TestScaleDown_AlreadyAtMinimum(t *testing.T) {
	fc := &fakeCloud{info: cloud.InstanceInfo{ID: "i-0abc", Type: "t3.micro", State: cloud.StateRunning}}
	c := newController(t, fc, nil, false)

	res, err := c.ScaleDown(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || !strings.Contains(res.Reason, "already at minimum") {
		t.Errorf("result = %+v, want at-minimum skip", res)
	}
}

func TestScaleDown_UnknownTypeIsHardError(t *testing.T) {
	fc := &fakeCloud{info: cloud.InstanceInfo{ID: "i-0abc", Type: "m5.24xlarge", State: cloud.StateRunning}}
	c := newController(t, fc, nil, false)

	_, err := c.ScaleDown(context.Background())
	if !errors.Is(err, sequence.ErrUnknownType) {
		t.Fatalf("error = %v, want ErrUnknownType", err)
	}
}

func TestScaleUp_DryRunIssuesNoProviderCalls(t *testing.T) {
	fc := &fakeCloud{info: cloud.InstanceInfo{ID: "i-0abc", Type: "t3.small", State: cloud.StateRunning}}
	mon := &fakeMonitor{}
	c := newController(t, fc, mon, true)

	res, err := c.ScaleUp(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || !res.DryRun {
		t.Errorf("result = %+v, want dry-run success", res)
	}
	// Old/new types must match what a live run would do from the pre-stop
	// state.
	if res.OldType != "t3.small" || res.NewType != "t3.medium" {
		t.Errorf("types = %s -> %s, want t3.small -> t3.medium", res.OldType, res.NewType)
	}
	if len(fc.calls) != 1 || fc.calls[0] != "describe" {
		t.Errorf("calls = %v, dry run must not stop/modify/start", fc.calls)
	}
	if mon.calls != 0 {
		t.Errorf("monitor calls = %d, dry run must not reconfigure monitoring", mon.calls)
	}
}

func TestScaleDown_StopTimeout(t *testing.T) {
	fc := &fakeCloud{
		info:        cloud.InstanceInfo{ID: "i-0abc", Type: "t3.medium", State: cloud.StateRunning},
		waitStopErr: errors.New("exceeded max wait time"),
	}
	c := newController(t, fc, nil, false)

	_, err := c.ScaleDown(context.Background())
	if !errors.Is(err, ErrStopTimeout) {
		t.Fatalf("error = %v, want ErrStopTimeout", err)
	}
}
