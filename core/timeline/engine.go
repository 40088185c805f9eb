// Package timeline converts one driver's bookings for one day into
// lane-assigned, time-scaled placements with conflict annotations.
package timeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/shuttleops/dispatchboard/core/model"
)

// Placement positions one booking on one driver's timeline for one day.
// It is recomputed from the booking set on every snapshot and never stored.
type Placement struct {
	Booking model.Booking

	// Lane is the 0-based track index; placements sharing a lane never
	// overlap once the turnaround buffer is honoured.
	Lane int

	// StartMin and DurationMin describe the occupied interval in minutes
	// since the start of the day.
	StartMin    int
	DurationMin int

	// Left and Width are fractions of the day used for layout. Width is
	// clamped to a minimum so short trips stay visible, and Left+Width
	// never exceeds 1.
	Left  float64
	Width float64

	// Conflict marks an overlap with the preceding trip on this driver.
	Conflict bool

	// GapMin is the gap to the previous trip's end; GapKnown is false for
	// the driver's first trip of the day.
	GapMin   int
	GapKnown bool

	Warnings []string
}

// Engine computes placements using tunable duration and buffer policy.
type Engine struct {
	cfg Config
	loc *time.Location
}

// NewEngine returns an engine for the given policy and local timezone.
// A nil location falls back to time.Local.
func NewEngine(cfg Config, loc *time.Location) Engine {
	cfg.SetDefaults()
	if loc == nil {
		loc = time.Local
	}
	return Engine{cfg: cfg, loc: loc}
}

// estimateDuration picks the trip duration in minutes. Distance-derived
// estimates are floored; bookings without an estimate get the default.
func (e Engine) estimateDuration(b model.Booking) int {
	if d := b.Schedule.DurationMin; d > 0 {
		if d < e.cfg.MinDurationMin {
			return e.cfg.MinDurationMin
		}
		return d
	}
	return e.cfg.DefaultDurationMin
}

// Place computes the placements for one driver's bookings within the day
// [dayStart, dayEnd). Bookings without a resolvable pickup, or whose pickup
// falls outside the day, are skipped. The returned lane count is the number
// of lanes used, never less than 1 so an empty row keeps its height.
func (e Engine) Place(bookings []model.Booking, dayStart, dayEnd time.Time) ([]Placement, int) {
	dayMin := dayEnd.Sub(dayStart).Minutes()
	if dayMin <= 0 {
		return nil, 1
	}

	placements := make([]Placement, 0, len(bookings))
	for _, b := range bookings {
		pickup, ok := b.PickupInstant(e.loc)
		if !ok {
			continue
		}
		if pickup.Before(dayStart) || !pickup.Before(dayEnd) {
			continue
		}
		placements = append(placements, Placement{
			Booking:     b,
			StartMin:    int(pickup.Sub(dayStart).Minutes()),
			DurationMin: e.estimateDuration(b),
		})
	}
	if len(placements) == 0 {
		return nil, 1
	}

	// Identical pickups keep their original feed order.
	sort.SliceStable(placements, func(i, j int) bool {
		return placements[i].StartMin < placements[j].StartMin
	})

	// Greedy interval partitioning: a booking joins the first lane whose
	// last trip ends at least a buffer before this pickup, otherwise a new
	// lane opens. The buffer intentionally yields more lanes than the pure
	// interval minimum; that margin is the operational turnaround.
	var laneEnds []int
	for i := range placements {
		p := &placements[i]
		end := p.StartMin + p.DurationMin
		lane := -1
		for l, laneEnd := range laneEnds {
			if laneEnd <= p.StartMin-e.cfg.BufferMin {
				lane = l
				break
			}
		}
		if lane == -1 {
			lane = len(laneEnds)
			laneEnds = append(laneEnds, end)
		} else if end > laneEnds[lane] {
			laneEnds[lane] = end
		}
		p.Lane = lane
	}

	// Conflict detection runs against a single occupied-horizon cursor for
	// the whole driver, independent of lane packing.
	prevEnd := -1
	for i := range placements {
		p := &placements[i]
		end := p.StartMin + p.DurationMin
		if prevEnd >= 0 {
			gap := p.StartMin - prevEnd
			p.GapMin = gap
			p.GapKnown = true
			if gap < 0 {
				p.Conflict = true
				p.Warnings = append(p.Warnings, "Overlaps with previous trip")
			} else if gap < e.cfg.BufferMin {
				p.Warnings = append(p.Warnings, fmt.Sprintf("Tight turnaround (%dm)", gap))
			}
		}
		if end > prevEnd {
			prevEnd = end
		}
	}

	for i := range placements {
		p := &placements[i]
		p.Left = float64(p.StartMin) / dayMin
		p.Width = float64(p.DurationMin) / dayMin
		if p.Width < e.cfg.MinVisibleRatio {
			p.Width = e.cfg.MinVisibleRatio
		}
		if p.Left+p.Width > 1 {
			p.Width = 1 - p.Left
		}
	}

	return placements, len(laneEnds)
}
