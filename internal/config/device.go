package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/powerguard/internal/fsutil"
	"github.com/banshee-data/powerguard/internal/serialmux"
)

// DefaultConfigPath is the path to the canonical device defaults file.
const DefaultConfigPath = "config/device.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// DeviceConfig holds the device timing, windowing and decision parameters.
// Every field is optional: the Get* methods fall back to the built-in
// defaults, so partial files are safe.
type DeviceConfig struct {
	// Sampling and windowing
	SampleInterval *string `json:"sample_interval,omitempty"` // duration string like "100ms"
	WindowSamples  *int    `json:"window_samples,omitempty"`
	AxesPerSample  *int    `json:"axes_per_sample,omitempty"`

	// Worker periods
	CommandPollInterval *string `json:"command_poll_interval,omitempty"`
	RenderInterval      *string `json:"render_interval,omitempty"`
	BootFrames          *int    `json:"boot_frames,omitempty"`

	// Decision smoothing
	EWMAAlpha          *float64 `json:"ewma_alpha,omitempty"`
	EWMAAlertThreshold *float64 `json:"ewma_alert_threshold,omitempty"`
	VoteAlertCount     *int     `json:"vote_alert_count,omitempty"`
	DecisionThreshold  *float64 `json:"decision_threshold,omitempty"`

	// Host link
	Serial *serialmux.PortOptions `json:"serial,omitempty"`
}

// EmptyDeviceConfig returns a DeviceConfig with all fields unset.
func EmptyDeviceConfig() *DeviceConfig {
	return &DeviceConfig{}
}

// LoadDeviceConfig loads a DeviceConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadDeviceConfig(fsys fsutil.FileSystem, path string) (*DeviceConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyDeviceConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func validDuration(name string, v *string) error {
	if v == nil || *v == "" {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", name, d)
	}
	return nil
}

func validUnit(name string, v *float64) error {
	if v != nil && (*v < 0 || *v > 1) {
		return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
	}
	return nil
}

// Validate checks that the configuration values are valid.
func (c *DeviceConfig) Validate() error {
	for name, v := range map[string]*string{
		"sample_interval":       c.SampleInterval,
		"command_poll_interval": c.CommandPollInterval,
		"render_interval":       c.RenderInterval,
	} {
		if err := validDuration(name, v); err != nil {
			return err
		}
	}

	if c.WindowSamples != nil && *c.WindowSamples < 1 {
		return fmt.Errorf("window_samples must be at least 1, got %d", *c.WindowSamples)
	}
	if c.AxesPerSample != nil && *c.AxesPerSample < 1 {
		return fmt.Errorf("axes_per_sample must be at least 1, got %d", *c.AxesPerSample)
	}
	if c.BootFrames != nil && *c.BootFrames < 0 {
		return fmt.Errorf("boot_frames must be non-negative, got %d", *c.BootFrames)
	}

	if c.EWMAAlpha != nil && (*c.EWMAAlpha <= 0 || *c.EWMAAlpha > 1) {
		return fmt.Errorf("ewma_alpha must be in (0, 1], got %f", *c.EWMAAlpha)
	}
	if err := validUnit("ewma_alert_threshold", c.EWMAAlertThreshold); err != nil {
		return err
	}
	if err := validUnit("decision_threshold", c.DecisionThreshold); err != nil {
		return err
	}
	if c.VoteAlertCount != nil && (*c.VoteAlertCount < 1 || *c.VoteAlertCount > 3) {
		return fmt.Errorf("vote_alert_count must be between 1 and 3, got %d", *c.VoteAlertCount)
	}

	if c.Serial != nil {
		if _, err := c.Serial.Normalize(); err != nil {
			return fmt.Errorf("invalid serial options: %w", err)
		}
	}

	return nil
}

func durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def // default on parse error
	}
	return d
}

// GetSampleInterval returns the period between sensor samples.
func (c *DeviceConfig) GetSampleInterval() time.Duration {
	return durationOr(c.SampleInterval, 100*time.Millisecond)
}

// GetWindowSamples returns the number of samples per classification window.
func (c *DeviceConfig) GetWindowSamples() int {
	if c.WindowSamples == nil {
		return 20
	}
	return *c.WindowSamples
}

// GetAxesPerSample returns the number of feature axes per sample.
func (c *DeviceConfig) GetAxesPerSample() int {
	if c.AxesPerSample == nil {
		return 4
	}
	return *c.AxesPerSample
}

// GetCommandPollInterval returns the command worker's poll period.
func (c *DeviceConfig) GetCommandPollInterval() time.Duration {
	return durationOr(c.CommandPollInterval, 10*time.Millisecond)
}

// GetRenderInterval returns the display worker's frame period.
func (c *DeviceConfig) GetRenderInterval() time.Duration {
	return durationOr(c.RenderInterval, 50*time.Millisecond)
}

// GetBootFrames returns the number of frames the boot animation may use.
func (c *DeviceConfig) GetBootFrames() int {
	if c.BootFrames == nil {
		return 40
	}
	return *c.BootFrames
}

// GetEWMAAlpha returns the smoothing factor of the theft probability.
func (c *DeviceConfig) GetEWMAAlpha() float64 {
	if c.EWMAAlpha == nil {
		return 0.5
	}
	return *c.EWMAAlpha
}

// GetEWMAAlertThreshold returns the smoothed probability that raises an alert
// on its own.
func (c *DeviceConfig) GetEWMAAlertThreshold() float64 {
	if c.EWMAAlertThreshold == nil {
		return 0.6
	}
	return *c.EWMAAlertThreshold
}

// GetVoteAlertCount returns how many of the last three window votes raise an
// alert.
func (c *DeviceConfig) GetVoteAlertCount() int {
	if c.VoteAlertCount == nil {
		return 2
	}
	return *c.VoteAlertCount
}

// GetDecisionThreshold returns the per-window probability that counts as a
// theft vote.
func (c *DeviceConfig) GetDecisionThreshold() float64 {
	if c.DecisionThreshold == nil {
		return 0.5
	}
	return *c.DecisionThreshold
}

// GetSerial returns the normalized host link options.
func (c *DeviceConfig) GetSerial() serialmux.PortOptions {
	var opts serialmux.PortOptions
	if c.Serial != nil {
		opts = *c.Serial
	}
	normalized, err := opts.Normalize()
	if err != nil {
		normalized, _ = serialmux.PortOptions{}.Normalize()
	}
	return normalized
}
