package classifier

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/powerguard/internal/fsutil"
	"github.com/banshee-data/powerguard/internal/monitoring"
)

// LinearModel is a softmax classifier over per-axis window statistics. For a
// window of WindowSamples×Axes features it computes, for every axis, the mean
// and then the standard deviation across the window, giving a summary vector
// of length 2×Axes:
//
//	[mean_0 .. mean_{A-1}, std_0 .. std_{A-1}]
//
// Each label scores Weights[label]·summary + Bias[label]; the scores go
// through a softmax.
type LinearModel struct {
	Labels        []string    `json:"labels"`
	WindowSamples int         `json:"window_samples"`
	Axes          int         `json:"axes"`
	Weights       [][]float64 `json:"weights"`
	Bias          []float64   `json:"bias"`
}

// DefaultLinearModel flags current drawn while the relay is off (meter
// bypass) and a load far above nominal while it is on (tamper/overload).
// Axis order: voltage, current, power, relay.
func DefaultLinearModel(windowSamples, axes int) *LinearModel {
	summary := 2 * axes
	normal := make([]float64, summary)
	theft := make([]float64, summary)
	if axes > 1 {
		theft[1] = 20 // mean current
	}
	if axes > 3 {
		theft[3] = -15 // mean relay state
	}
	return &LinearModel{
		Labels:        []string{"normal", "theft"},
		WindowSamples: windowSamples,
		Axes:          axes,
		Weights:       [][]float64{normal, theft},
		Bias:          []float64{0, -3},
	}
}

// LoadLinearModel reads a LinearModel from a JSON file.
func LoadLinearModel(fsys fsutil.FileSystem, path string) (*LinearModel, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model %s: %w", path, err)
	}

	monitoring.Logf("loaded model from %s: labels=%v window=%d axes=%d", path, m.Labels, m.WindowSamples, m.Axes)
	return &m, nil
}

// Validate checks the model's shapes.
func (m *LinearModel) Validate() error {
	if len(m.Labels) == 0 {
		return fmt.Errorf("model has no labels")
	}
	if m.WindowSamples < 1 || m.Axes < 1 {
		return fmt.Errorf("window_samples and axes must be positive, got %d and %d", m.WindowSamples, m.Axes)
	}
	if len(m.Weights) != len(m.Labels) || len(m.Bias) != len(m.Labels) {
		return fmt.Errorf("need one weight row and one bias per label (%d labels, %d rows, %d biases)",
			len(m.Labels), len(m.Weights), len(m.Bias))
	}
	for i, row := range m.Weights {
		if len(row) != 2*m.Axes {
			return fmt.Errorf("weight row %q has %d entries, want %d", m.Labels[i], len(row), 2*m.Axes)
		}
	}
	return nil
}

// InputLength is the feature vector length the model accepts.
func (m *LinearModel) InputLength() int { return m.WindowSamples * m.Axes }

// Summarize reduces a window to per-axis means followed by per-axis standard
// deviations.
func (m *LinearModel) Summarize(features []float64) []float64 {
	summary := make([]float64, 2*m.Axes)
	column := make([]float64, m.WindowSamples)
	for axis := 0; axis < m.Axes; axis++ {
		for i := range column {
			column[i] = features[i*m.Axes+axis]
		}
		mean, std := stat.MeanStdDev(column, nil)
		if m.WindowSamples == 1 {
			std = 0
		}
		summary[axis] = mean
		summary[m.Axes+axis] = std
	}
	return summary
}

// Classify implements Classifier.
func (m *LinearModel) Classify(features []float64) (Result, error) {
	if len(features) != m.InputLength() {
		return Result{}, &StatusError{
			Code:   StatusShapesDontMatch,
			Detail: fmt.Sprintf("got %d features, want %d", len(features), m.InputLength()),
		}
	}
	for _, f := range features {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Result{}, &StatusError{Code: StatusDSPError, Detail: "non-finite feature"}
		}
	}

	summary := m.Summarize(features)
	scores := make([]float64, len(m.Labels))
	for i, row := range m.Weights {
		scores[i] = floats.Dot(row, summary) + m.Bias[i]
	}

	// softmax: exp(s_i - logsumexp(s))
	lse := floats.LogSumExp(scores)
	res := Result{Predictions: make([]Prediction, len(m.Labels))}
	for i, label := range m.Labels {
		res.Predictions[i] = Prediction{Label: label, Value: math.Exp(scores[i] - lse)}
	}
	return res, nil
}
