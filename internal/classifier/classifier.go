// Package classifier defines the contract between the sampling worker and the
// pretrained model: a fixed-length feature vector in, labelled probabilities
// or a status code out.
package classifier

import (
	"errors"
	"fmt"
)

// Status is the model runtime's result code. Zero is success.
type Status int

const (
	StatusOK              Status = 0
	StatusShapesDontMatch Status = -1
	StatusCanceled        Status = -2
	StatusDSPError        Status = -5
	StatusModelError      Status = -6
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusShapesDontMatch:
		return "shapes don't match"
	case StatusCanceled:
		return "canceled"
	case StatusDSPError:
		return "dsp error"
	case StatusModelError:
		return "model error"
	default:
		return fmt.Sprintf("status %d", int(s))
	}
}

// StatusError reports a non-success status from Classify.
type StatusError struct {
	Code   Status
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("classifier failed (%d): %s", int(e.Code), e.Code)
	}
	return fmt.Sprintf("classifier failed (%d): %s: %s", int(e.Code), e.Code, e.Detail)
}

// StatusOf extracts the status code carried by err. Errors that do not carry
// one map to StatusModelError; a nil error is StatusOK.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return StatusModelError
}

// Prediction is one labelled probability.
type Prediction struct {
	Label string
	Value float64
}

// Result is the ordered output of one classification.
type Result struct {
	Predictions []Prediction
}

// Classifier is a pretrained model treated as a black box.
type Classifier interface {
	// Classify runs the model over one window of packed features.
	Classify(features []float64) (Result, error)
}

// Func adapts a function to the Classifier interface.
type Func func(features []float64) (Result, error)

func (f Func) Classify(features []float64) (Result, error) { return f(features) }
