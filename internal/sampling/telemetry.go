package sampling

import (
	"fmt"

	"github.com/banshee-data/powerguard/internal/classifier"
)

// FormatTelemetry renders the per-window DATA line, without the newline.
func FormatTelemetry(voltage, current, power, theft float64, alert bool) string {
	a := 0
	if alert {
		a = 1
	}
	return fmt.Sprintf("DATA:V=%.3f,I=%.3f,P=%.3f,THEFT=%.2f,ALERT=%d", voltage, current, power, theft, a)
}

// FormatClassifierError renders the line sent when a window fails to classify.
func FormatClassifierError(code classifier.Status) string {
	return fmt.Sprintf("ERR:Classifier(%d)", int(code))
}
