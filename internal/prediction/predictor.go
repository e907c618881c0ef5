// Package prediction turns a recent metric window into a near-future CPU
// load estimate with a confidence score.
package prediction

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Atharva0045/cloud-autoscaler/internal/metricsource"
)

// ErrMissingFeature means the engineered feature row lacks a column the
// scaler was trained with. This is a configuration error, not an upstream
// outage.
var ErrMissingFeature = errors.New("feature expected by scaler is missing")

// Signal is the prediction consumed by the decision policy. It is produced
// once per cycle and not persisted.
type Signal struct {
	PredictedCPU float64 `json:"predicted_cpu"`
	Confidence   float64 `json:"confidence"`
}

// Predictor applies the trained model to engineered features. Artifacts are
// loaded once at construction so there is no hidden first-call latency.
type Predictor struct {
	model  *Model
	scaler *Scaler
	logger zerolog.Logger
}

// New builds a Predictor from the artifact paths.
func New(modelPath, scalerPath string, logger zerolog.Logger) (*Predictor, error) {
	model, err := LoadModel(modelPath)
	if err != nil {
		return nil, err
	}
	scaler, err := LoadScaler(scalerPath)
	if err != nil {
		return nil, err
	}
	return &Predictor{
		model:  model,
		scaler: scaler,
		logger: logger.With().Str("component", "prediction").Logger(),
	}, nil
}

// Predict estimates the CPU load one horizon ahead of the newest sample.
// Confidence is derived from recent CPU volatility: 1 / (1 + rolling std),
// clamped to [0, 1].
func (p *Predictor) Predict(samples []metricsource.Sample) (Signal, error) {
	feats, err := BuildFeatures(samples)
	if err != nil {
		return Signal{}, err
	}

	predicted := p.model.Bias
	for i, name := range p.scaler.Features {
		raw, ok := feats[name]
		if !ok {
			return Signal{}, fmt.Errorf("%w: %q", ErrMissingFeature, name)
		}
		scaled := (raw - p.scaler.Mean[i]) / p.scaler.Scale[i]
		predicted += p.model.Weights[name] * scaled
	}

	confidence := 1.0 / (1.0 + feats["cpu_roll_std_past"])
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	p.logger.Debug().
		Float64("predicted_cpu", predicted).
		Float64("confidence", confidence).
		Int("samples", len(samples)).
		Msg("Prediction computed")

	return Signal{PredictedCPU: predicted, Confidence: confidence}, nil
}
