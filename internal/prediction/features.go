package prediction

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Atharva0045/cloud-autoscaler/internal/metricsource"
)

// ErrInsufficientData means the metric window is too short to build the
// feature row the model was trained on.
var ErrInsufficientData = errors.New("insufficient samples for feature engineering")

const (
	// rollWindow is the long rolling window used for the anomaly baseline.
	rollWindow = 60
	// maxLag is the deepest lag feature.
	maxLag = 12
	// ewmSpan is the span of the exponentially weighted CPU mean.
	ewmSpan = 30
)

// MinSamples is the minimum number of samples BuildFeatures accepts.
const MinSamples = rollWindow + 1

// Features is one engineered feature row, keyed by feature name. The names
// match the training pipeline so scaler artifacts can reference them.
type Features map[string]float64

// BuildFeatures computes the feature row for the most recent sample.
// Rolling and lag features are past-only: they are computed over the window
// ending at the previous sample, so the row never leaks its own target.
func BuildFeatures(samples []metricsource.Sample) (Features, error) {
	n := len(samples)
	if n < MinSamples {
		return nil, fmt.Errorf("%w: got %d, need at least %d", ErrInsufficientData, n, MinSamples)
	}

	cpu := make([]float64, n)
	ram := make([]float64, n)
	disk := make([]float64, n)
	for i, s := range samples {
		cpu[i] = s.CPU
		ram[i] = s.Memory
		disk[i] = s.DiskIO
	}

	last := n - 1
	f := Features{
		"cpu":  cpu[last],
		"ram":  ram[last],
		"disk": disk[last],
	}

	// Anomaly baseline over the long window ending at the previous sample.
	base := window(cpu, last, rollWindow)
	median := medianOf(base)
	std := stdOf(base)
	if std == 0 || math.IsNaN(std) {
		std = 1e-6
	}
	z := (cpu[last] - median) / std

	f["cpu_roll_median_past"] = median
	f["cpu_roll_std_past"] = std
	f["cpu_zscore_past"] = z
	anomaly := 0.0
	if math.Abs(z) > 3 {
		anomaly = 1
	}
	f["is_anomaly_z"] = anomaly
	f["anomaly_severity"] = anomaly * math.Abs(z)

	// Time-of-day features.
	ts := samples[last].Timestamp
	hour := float64(ts.Hour())
	f["hour"] = hour
	f["minute"] = float64(ts.Minute())
	f["dayofweek"] = float64(int(ts.Weekday()))
	f["hour_sin"] = math.Sin(2 * math.Pi * hour / 24)
	f["hour_cos"] = math.Cos(2 * math.Pi * hour / 24)

	// Lag features.
	for _, lag := range []int{1, 2, 3, 6, 12} {
		f[fmt.Sprintf("cpu_lag_%d", lag)] = cpu[last-lag]
		f[fmt.Sprintf("ram_lag_%d", lag)] = ram[last-lag]
		f[fmt.Sprintf("disk_lag_%d", lag)] = disk[last-lag]
	}

	// Rolling windows, shifted by one.
	for name, w := range map[string]int{"short": 3, "med": 12, "long": 60} {
		cw := window(cpu, last, w)
		f["cpu_roll_mean_"+name] = meanOf(cw)
		s := stdOf(cw)
		if math.IsNaN(s) {
			s = 0
		}
		f["cpu_roll_std_"+name] = s
		f["ram_roll_mean_"+name] = meanOf(window(ram, last, w))
		f["disk_roll_mean_"+name] = meanOf(window(disk, last, w))
	}

	f["cpu_ewm_30"] = ewm(cpu[:last], ewmSpan)
	f["cpu_x_ram"] = cpu[last] * ram[last]

	for name, v := range f {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("feature %q is not finite", name)
		}
	}
	return f, nil
}

// window returns up to size values ending just before index end.
func window(values []float64, end, size int) []float64 {
	lo := end - size
	if lo < 0 {
		lo = 0
	}
	return values[lo:end]
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdOf is the sample standard deviation (ddof=1), NaN for fewer than two
// values.
func stdOf(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	m := meanOf(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

func medianOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// ewm is the exponentially weighted mean with alpha = 2/(span+1), seeded at
// the first value.
func ewm(values []float64, span int) float64 {
	if len(values) == 0 {
		return 0
	}
	alpha := 2.0 / float64(span+1)
	y := values[0]
	for _, v := range values[1:] {
		y = (1-alpha)*y + alpha*v
	}
	return y
}
