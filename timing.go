package xmem

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Default thresholds, in milliseconds.
const (
	DefaultShowBarAfterMs     = 80
	DefaultShowLoadingAfterMs = 250
	DefaultMinBarMs           = 200
	DefaultMinLoadingMs       = 500
)

// validate is the shared validator instance.
var validate = validator.New()

// Timing holds the thresholds a Controller uses to escalate and hold
// visual state. All values are milliseconds.
type Timing struct {
	// ShowBarAfterMs is how long a navigation must be pending before the
	// progress bar appears.
	ShowBarAfterMs int `json:"show_bar_after_ms" yaml:"show_bar_after_ms" toml:"show_bar_after_ms" validate:"gte=0"`

	// ShowLoadingAfterMs is how long a navigation must be pending before the
	// loading overlay appears. Must not precede the bar threshold.
	ShowLoadingAfterMs int `json:"show_loading_after_ms" yaml:"show_loading_after_ms" toml:"show_loading_after_ms" validate:"gte=0,gtefield=ShowBarAfterMs"`

	// MinBarMs is the minimum time the bar stays visible, measured from the
	// start of the navigation.
	MinBarMs int `json:"min_bar_ms" yaml:"min_bar_ms" toml:"min_bar_ms" validate:"gte=0"`

	// MinLoadingMs is the minimum time the overlay stays visible, measured
	// from when it appeared.
	MinLoadingMs int `json:"min_loading_ms" yaml:"min_loading_ms" toml:"min_loading_ms" validate:"gte=0"`
}

// DefaultTiming returns the stock thresholds.
func DefaultTiming() Timing {
	return Timing{
		ShowBarAfterMs:     DefaultShowBarAfterMs,
		ShowLoadingAfterMs: DefaultShowLoadingAfterMs,
		MinBarMs:           DefaultMinBarMs,
		MinLoadingMs:       DefaultMinLoadingMs,
	}
}

// Validate checks the thresholds.
func (t Timing) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid timing: %w", err)
	}
	return nil
}

func (t Timing) showBarAfter() time.Duration     { return ms(t.ShowBarAfterMs) }
func (t Timing) showLoadingAfter() time.Duration { return ms(t.ShowLoadingAfterMs) }
func (t Timing) minBar() time.Duration           { return ms(t.MinBarMs) }
func (t Timing) minLoading() time.Duration       { return ms(t.MinLoadingMs) }

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// clampMs coerces a millisecond value to a non-negative integer.
func clampMs(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
