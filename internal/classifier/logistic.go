package classifier

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"voltguard/internal/manifest"
	"voltguard/internal/reconcile"
)

//go:embed model.yaml
var defaultModelYAML []byte

// modelFile is the on-disk artifact layout: feature names plus the fitted
// standardizer and logistic coefficients, all in manifest order.
type modelFile struct {
	Features  []string  `yaml:"features"`
	Means     []float64 `yaml:"means"`
	Scales    []float64 `yaml:"scales"`
	Weights   []float64 `yaml:"weights"`
	Intercept float64   `yaml:"intercept"`
}

// LogisticModel scores vectors by standardizing each feature and applying
// fitted logistic-regression coefficients. Immutable after load, safe for
// concurrent use.
type LogisticModel struct {
	features  []string
	means     []float64
	scales    []float64
	weights   []float64
	intercept float64
}

// LoadModel reads a model artifact and validates it against the manifest.
// An empty path loads the embedded default model.
func LoadModel(path string, man *manifest.Manifest) (*LogisticModel, error) {
	data := defaultModelYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read model artifact: %w", err)
		}
	}
	var f modelFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	n := len(f.Features)
	if len(f.Means) != n || len(f.Scales) != n || len(f.Weights) != n {
		return nil, fmt.Errorf("model artifact: features/means/scales/weights lengths differ (%d/%d/%d/%d)",
			n, len(f.Means), len(f.Scales), len(f.Weights))
	}
	if man != nil {
		if man.Len() != n {
			return nil, fmt.Errorf("model expects %d features, manifest has %d", n, man.Len())
		}
		for i, name := range man.Names() {
			if f.Features[i] != name {
				return nil, fmt.Errorf("model feature %d is %q, manifest has %q", i, f.Features[i], name)
			}
		}
	}
	return &LogisticModel{
		features:  f.Features,
		means:     f.Means,
		scales:    f.Scales,
		weights:   f.Weights,
		intercept: f.Intercept,
	}, nil
}

// Score implements Scorer.
func (m *LogisticModel) Score(_ context.Context, batch []reconcile.Vector) ([]float64, error) {
	probs := make([]float64, len(batch))
	for i, vec := range batch {
		if vec.Len() != len(m.features) {
			return nil, fmt.Errorf("vector %d has %d features, model expects %d", i, vec.Len(), len(m.features))
		}
		z := m.intercept
		for j, x := range vec.Values {
			scale := m.scales[j]
			if scale == 0 {
				scale = 1
			}
			z += m.weights[j] * (x - m.means[j]) / scale
		}
		probs[i] = sigmoid(z)
	}
	return probs, nil
}

// NormalizationParams implements ParamsProvider.
func (m *LogisticModel) NormalizationParams() NormParams {
	return NormParams{
		Means:  append([]float64(nil), m.means...),
		Scales: append([]float64(nil), m.scales...),
	}
}

// Features returns the model's feature names in order.
func (m *LogisticModel) Features() []string {
	return append([]string(nil), m.features...)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
