// Package metricsource fetches recent load metrics for the managed instance
// from its Prometheus endpoint.
package metricsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Atharva0045/cloud-autoscaler/internal/cloud"
)

// ErrNoMetrics means the window query produced no usable samples.
var ErrNoMetrics = errors.New("no metrics fetched from prometheus")

// Metric queries. CPU is percent busy, memory is percent used, disk is
// bytes/s of combined read+write throughput.
var queries = map[string]string{
	"cpu":    `100 - (avg by(instance)(rate(node_cpu_seconds_total{mode='idle'}[1m])) * 100)`,
	"memory": `(node_memory_MemTotal_bytes - node_memory_MemAvailable_bytes) / node_memory_MemTotal_bytes * 100`,
	"disk":   `rate(node_disk_read_bytes_total[1m]) + rate(node_disk_written_bytes_total[1m])`,
}

// Sample is one time-aligned row of instance metrics.
type Sample struct {
	Timestamp time.Time
	CPU       float64
	Memory    float64
	DiskIO    float64
}

// InstanceLocator resolves the monitored instance so queries always target
// its current address, even after the instance is replaced or restarted.
type InstanceLocator interface {
	DescribeInstance(ctx context.Context, id string) (cloud.InstanceInfo, error)
}

// Config configures the metrics client.
type Config struct {
	// URL pins the Prometheus base URL. When empty the client resolves the
	// instance IP through the locator and uses http://<ip>:<Port>.
	URL string

	// Port is the Prometheus port on the instance.
	Port int

	// Step is the query resolution.
	Step time.Duration

	// InstanceID identifies the monitored instance for IP resolution.
	InstanceID string

	// RequestTimeout bounds each outbound query.
	RequestTimeout time.Duration
}

// Client fetches metric windows from Prometheus.
type Client struct {
	cfg     Config
	locator InstanceLocator
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a metrics client. locator may be nil when cfg.URL is set.
func NewClient(cfg Config, locator InstanceLocator, logger zerolog.Logger) *Client {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
	if cfg.Step <= 0 {
		cfg.Step = 5 * time.Second
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:     cfg,
		locator: locator,
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "metricsource").Logger(),
	}
}

// FetchRecentWindow returns the last `window` of samples, time-ordered and
// gap-filled. An empty result is a hard failure.
func (c *Client) FetchRecentWindow(ctx context.Context, window time.Duration) ([]Sample, error) {
	base, err := c.baseURL(ctx)
	if err != nil {
		return nil, err
	}

	end := time.Now().Unix()
	start := end - int64(window.Seconds())

	rows := make(map[int64]map[string]float64)
	counts := make(map[string]int)
	for name, query := range queries {
		series, err := c.fetchSeries(ctx, base, query, start, end)
		if err != nil {
			// Missing memory or disk degrades the window; CPU is checked
			// below because the prediction cannot run without it.
			c.logger.Error().Err(err).Str("metric", name).Msg("Failed to fetch metric")
			continue
		}
		counts[name] = len(series)
		for ts, v := range series {
			row, ok := rows[ts]
			if !ok {
				row = make(map[string]float64)
				rows[ts] = row
			}
			row[name] = v
		}
	}

	if len(rows) == 0 {
		return nil, ErrNoMetrics
	}
	// A wholly absent CPU series must never be zero-filled into a window:
	// flat fabricated CPU would read as a confident scale-down signal.
	if counts["cpu"] == 0 {
		return nil, fmt.Errorf("%w: cpu series is empty", ErrNoMetrics)
	}

	return mergeRows(rows), nil
}

func (c *Client) baseURL(ctx context.Context) (string, error) {
	if c.cfg.URL != "" {
		return c.cfg.URL, nil
	}
	if c.locator == nil {
		return "", errors.New("metricsource: no prometheus URL and no instance locator")
	}
	info, err := c.locator.DescribeInstance(ctx, c.cfg.InstanceID)
	if err != nil {
		return "", fmt.Errorf("resolve instance address: %w", err)
	}
	ip := info.IP()
	if ip == "" {
		return "", fmt.Errorf("no IP address found for instance %s", c.cfg.InstanceID)
	}
	return fmt.Sprintf("http://%s:%d", ip, c.cfg.Port), nil
}

func (c *Client) fetchSeries(ctx context.Context, base, query string, start, end int64) (map[int64]float64, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("start", strconv.FormatInt(start, 10))
	params.Set("end", strconv.FormatInt(end, 10))
	params.Set("step", strconv.Itoa(int(c.cfg.Step.Seconds()))+"s")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/v1/query_range?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prometheus returned %s", resp.Status)
	}

	var body struct {
		Status string `json:"status"`
		Data   struct {
			Result []struct {
				Values [][]interface{} `json:"values"`
			} `json:"result"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode prometheus response: %w", err)
	}
	if len(body.Data.Result) == 0 {
		return nil, errors.New("empty result set")
	}

	series := make(map[int64]float64)
	for _, pair := range body.Data.Result[0].Values {
		if len(pair) != 2 {
			continue
		}
		ts, ok := pair[0].(float64)
		if !ok {
			continue
		}
		str, ok := pair[1].(string)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			continue
		}
		series[int64(ts)] = v
	}
	return series, nil
}

// mergeRows aligns the per-metric series on timestamp and forward/backward
// fills gaps column by column.
func mergeRows(rows map[int64]map[string]float64) []Sample {
	stamps := make([]int64, 0, len(rows))
	for ts := range rows {
		stamps = append(stamps, ts)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })

	cols := map[string][]float64{
		"cpu":    make([]float64, len(stamps)),
		"memory": make([]float64, len(stamps)),
		"disk":   make([]float64, len(stamps)),
	}
	for name, col := range cols {
		for i, ts := range stamps {
			if v, ok := rows[ts][name]; ok {
				col[i] = v
			} else {
				col[i] = math.NaN()
			}
		}
		fillGaps(col)
	}

	samples := make([]Sample, len(stamps))
	for i, ts := range stamps {
		samples[i] = Sample{
			Timestamp: time.Unix(ts, 0).UTC(),
			CPU:       cols["cpu"][i],
			Memory:    cols["memory"][i],
			DiskIO:    cols["disk"][i],
		}
	}
	return samples
}

// fillGaps forward-fills NaN entries, then backward-fills any leading gap.
// A column with no values at all is zeroed.
func fillGaps(col []float64) {
	last := math.NaN()
	for i, v := range col {
		if math.IsNaN(v) {
			col[i] = last
		} else {
			last = v
		}
	}
	next := math.NaN()
	for i := len(col) - 1; i >= 0; i-- {
		if math.IsNaN(col[i]) {
			col[i] = next
		} else {
			next = col[i]
		}
	}
	for i := range col {
		if math.IsNaN(col[i]) {
			col[i] = 0
		}
	}
}
