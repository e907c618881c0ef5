package prediction

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Atharva0045/cloud-autoscaler/internal/metricsource"
)

// flatSamples returns n samples at a 5s step with constant values.
func flatSamples(n int, cpu, ram, disk float64) []metricsource.Sample {
	base := time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)
	out := make([]metricsource.Sample, n)
	for i := range out {
		out[i] = metricsource.Sample{
			Timestamp: base.Add(time.Duration(i) * 5 * time.Second),
			CPU:       cpu,
			Memory:    ram,
			DiskIO:    disk,
		}
	}
	return out
}

func TestBuildFeatures_InsufficientData(t *testing.T) {
	_, err := BuildFeatures(flatSamples(MinSamples-1, 50, 60, 10))
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("error = %v, want ErrInsufficientData", err)
	}
}

func TestBuildFeatures_FlatSeries(t *testing.T) {
	f, err := BuildFeatures(flatSamples(120, 50, 60, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f["cpu"] != 50 || f["ram"] != 60 || f["disk"] != 10 {
		t.Errorf("raw features = %v/%v/%v, want 50/60/10", f["cpu"], f["ram"], f["disk"])
	}
	for _, name := range []string{"cpu_lag_1", "cpu_lag_12", "cpu_roll_mean_short", "cpu_roll_mean_long", "cpu_ewm_30", "cpu_roll_median_past"} {
		if f[name] != 50 {
			t.Errorf("%s = %v, want 50 for a flat series", name, f[name])
		}
	}
	// A flat series has zero deviation; the anomaly std floor keeps the
	// z-score finite and zero.
	if f["cpu_roll_std_past"] != 1e-6 {
		t.Errorf("cpu_roll_std_past = %v, want floor 1e-6", f["cpu_roll_std_past"])
	}
	if f["cpu_zscore_past"] != 0 || f["is_anomaly_z"] != 0 || f["anomaly_severity"] != 0 {
		t.Errorf("flat series flagged anomalous: z=%v flag=%v severity=%v",
			f["cpu_zscore_past"], f["is_anomaly_z"], f["anomaly_severity"])
	}
	if f["cpu_x_ram"] != 3000 {
		t.Errorf("cpu_x_ram = %v, want 3000", f["cpu_x_ram"])
	}
}

func TestBuildFeatures_TimeEncoding(t *testing.T) {
	samples := flatSamples(MinSamples, 50, 60, 10)
	last := samples[len(samples)-1].Timestamp

	f, err := BuildFeatures(samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if int(f["hour"]) != last.Hour() {
		t.Errorf("hour = %v, want %d", f["hour"], last.Hour())
	}
	if int(f["dayofweek"]) != int(last.Weekday()) {
		t.Errorf("dayofweek = %v, want %d", f["dayofweek"], int(last.Weekday()))
	}
	wantSin := math.Sin(2 * math.Pi * float64(last.Hour()) / 24)
	if math.Abs(f["hour_sin"]-wantSin) > 1e-9 {
		t.Errorf("hour_sin = %v, want %v", f["hour_sin"], wantSin)
	}
}

func TestBuildFeatures_SpikeIsAnomalous(t *testing.T) {
	samples := flatSamples(120, 50, 60, 10)
	// Mild noise so the rolling std is small but real, then a large spike
	// at the end.
	for i := range samples {
		samples[i].CPU += float64(i%2) * 0.5
	}
	samples[len(samples)-1].CPU = 95

	f, err := BuildFeatures(samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f["is_anomaly_z"] != 1 {
		t.Errorf("spike not flagged: z=%v", f["cpu_zscore_past"])
	}
	if f["anomaly_severity"] <= 0 {
		t.Errorf("anomaly_severity = %v, want > 0", f["anomaly_severity"])
	}
}

func TestBuildFeatures_LagsArePastOnly(t *testing.T) {
	samples := flatSamples(MinSamples, 0, 0, 0)
	for i := range samples {
		samples[i].CPU = float64(i)
	}

	f, err := BuildFeatures(samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := float64(len(samples) - 1)
	for lag, name := range map[int]string{1: "cpu_lag_1", 6: "cpu_lag_6", 12: "cpu_lag_12"} {
		if f[name] != last-float64(lag) {
			t.Errorf("%s = %v, want %v", name, f[name], last-float64(lag))
		}
	}
	// The long rolling mean excludes the current value.
	if f["cpu_roll_mean_long"] >= last {
		t.Errorf("cpu_roll_mean_long = %v includes the current sample", f["cpu_roll_mean_long"])
	}
}

func TestStdOf_SampleVariance(t *testing.T) {
	got := stdOf([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	want := math.Sqrt(32.0 / 7.0)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("stdOf = %v, want %v", got, want)
	}
}

func TestMedianOf(t *testing.T) {
	if got := medianOf([]float64{3, 1, 2}); got != 2 {
		t.Errorf("odd median = %v, want 2", got)
	}
	if got := medianOf([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("even median = %v, want 2.5", got)
	}
}
