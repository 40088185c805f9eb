package timeline

import "fmt"

// Config tunes the placement policy. The duration constants are operational
// heuristics carried from dispatch practice, not physical limits.
type Config struct {
	// BufferMin is the turnaround buffer in minutes required between trips
	// sharing a lane.
	BufferMin int `json:"bufferMin"`

	// MinDurationMin floors distance-derived duration estimates.
	MinDurationMin int `json:"minDurationMin"`

	// DefaultDurationMin applies when a booking has no duration estimate.
	DefaultDurationMin int `json:"defaultDurationMin"`

	// MinVisibleRatio is the minimum placement width as a fraction of the
	// day, keeping short trips visible.
	MinVisibleRatio float64 `json:"minVisibleRatio"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.BufferMin == 0 {
		c.BufferMin = 30
	}
	if c.MinDurationMin == 0 {
		c.MinDurationMin = 45
	}
	if c.DefaultDurationMin == 0 {
		c.DefaultDurationMin = 75
	}
	if c.MinVisibleRatio == 0 {
		c.MinVisibleRatio = 0.02
	}
}

// Validate rejects nonsensical policy values.
func (c Config) Validate() error {
	if c.BufferMin < 0 {
		return fmt.Errorf("timeline: buffer must not be negative")
	}
	if c.MinDurationMin <= 0 || c.DefaultDurationMin <= 0 {
		return fmt.Errorf("timeline: durations must be positive")
	}
	if c.MinVisibleRatio < 0 || c.MinVisibleRatio > 1 {
		return fmt.Errorf("timeline: min visible ratio must be within [0,1]")
	}
	return nil
}
