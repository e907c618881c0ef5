package prediction

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func writeArtifacts(t *testing.T, scaler Scaler, model Model) (string, string) {
	t.Helper()
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.json")
	scalerPath := filepath.Join(dir, "scaler.json")

	for path, v := range map[string]interface{}{modelPath: model, scalerPath: scaler} {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal artifact: %v", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatalf("write artifact: %v", err)
		}
	}
	return modelPath, scalerPath
}

// identityArtifacts predict exactly the current CPU value.
func identityArtifacts(t *testing.T) (string, string) {
	return writeArtifacts(t,
		Scaler{Features: []string{"cpu"}, Mean: []float64{50}, Scale: []float64{10}},
		Model{Bias: 50, Weights: map[string]float64{"cpu": 10}},
	)
}

func TestNew_MissingArtifact(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent.json"), "also-absent.json", zerolog.Nop())
	if !errors.Is(err, ErrMissingArtifact) {
		t.Fatalf("error = %v, want ErrMissingArtifact", err)
	}
}

func TestNew_RejectsMalformedScaler(t *testing.T) {
	modelPath, scalerPath := writeArtifacts(t,
		Scaler{Features: []string{"cpu"}, Mean: []float64{1, 2}, Scale: []float64{1}},
		Model{Bias: 0, Weights: map[string]float64{"cpu": 1}},
	)
	if _, err := New(modelPath, scalerPath, zerolog.Nop()); err == nil {
		t.Fatal("expected error for mismatched scaler lengths")
	}
}

func TestPredict_LinearModel(t *testing.T) {
	modelPath, scalerPath := identityArtifacts(t)
	p, err := New(modelPath, scalerPath, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sig, err := p.Predict(flatSamples(120, 80, 60, 10))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if math.Abs(sig.PredictedCPU-80) > 1e-9 {
		t.Errorf("PredictedCPU = %v, want 80", sig.PredictedCPU)
	}
	// A flat series is maximally predictable.
	if sig.Confidence < 0.99 || sig.Confidence > 1 {
		t.Errorf("Confidence = %v, want ~1 for a flat series", sig.Confidence)
	}
}

func TestPredict_ConfidenceDropsWithVolatility(t *testing.T) {
	modelPath, scalerPath := identityArtifacts(t)
	p, err := New(modelPath, scalerPath, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	noisy := flatSamples(120, 50, 60, 10)
	for i := range noisy {
		noisy[i].CPU = 50 + 30*float64(i%2)
	}

	flat, _ := p.Predict(flatSamples(120, 50, 60, 10))
	volatile, err := p.Predict(noisy)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if volatile.Confidence >= flat.Confidence {
		t.Errorf("volatile confidence %v should be below flat confidence %v",
			volatile.Confidence, flat.Confidence)
	}
}

func TestPredict_InsufficientData(t *testing.T) {
	modelPath, scalerPath := identityArtifacts(t)
	p, _ := New(modelPath, scalerPath, zerolog.Nop())

	_, err := p.Predict(flatSamples(10, 50, 60, 10))
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("error = %v, want ErrInsufficientData", err)
	}
}

func TestPredict_MissingFeature(t *testing.T) {
	modelPath, scalerPath := writeArtifacts(t,
		Scaler{Features: []string{"not_a_feature"}, Mean: []float64{0}, Scale: []float64{1}},
		Model{Bias: 0, Weights: map[string]float64{"not_a_feature": 1}},
	)
	p, err := New(modelPath, scalerPath, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Predict(flatSamples(120, 50, 60, 10))
	if !errors.Is(err, ErrMissingFeature) {
		t.Fatalf("error = %v, want ErrMissingFeature", err)
	}
}
