package prediction

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrMissingArtifact means a model or scaler file could not be found.
var ErrMissingArtifact = errors.New("model artifact not found")

// Scaler standardizes a feature row the way the training pipeline did:
// x' = (x - mean) / scale, per feature, in the trained feature order.
type Scaler struct {
	Features []string  `json:"features"`
	Mean     []float64 `json:"mean"`
	Scale    []float64 `json:"scale"`
}

// Model is a trained linear regressor over scaled features, exported from
// the training pipeline as a JSON artifact.
type Model struct {
	Bias    float64            `json:"bias"`
	Weights map[string]float64 `json:"weights"`
}

// LoadScaler reads a scaler artifact from disk.
func LoadScaler(path string) (*Scaler, error) {
	var s Scaler
	if err := loadJSON(path, &s); err != nil {
		return nil, err
	}
	if len(s.Features) == 0 {
		return nil, fmt.Errorf("scaler %s lists no features", path)
	}
	if len(s.Mean) != len(s.Features) || len(s.Scale) != len(s.Features) {
		return nil, fmt.Errorf("scaler %s: mean/scale length does not match features", path)
	}
	for i, v := range s.Scale {
		if v == 0 {
			return nil, fmt.Errorf("scaler %s: zero scale for feature %q", path, s.Features[i])
		}
	}
	return &s, nil
}

// LoadModel reads a model artifact from disk.
func LoadModel(path string) (*Model, error) {
	var m Model
	if err := loadJSON(path, &m); err != nil {
		return nil, err
	}
	if len(m.Weights) == 0 {
		return nil, fmt.Errorf("model %s has no weights", path)
	}
	return &m, nil
}

func loadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMissingArtifact, path)
		}
		return fmt.Errorf("read artifact %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse artifact %s: %w", path, err)
	}
	return nil
}
