// Package board composes classification, views and timeline placement into
// the dispatcher-facing board: the unassigned queue, per-driver columns and
// the status summary. Computation is pure; identical inputs always yield a
// structurally identical board.
package board

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/shuttleops/dispatchboard/core/model"
	"github.com/shuttleops/dispatchboard/core/timeline"
)

// DriverColumn is one driver's row on the board.
type DriverColumn struct {
	Driver     model.Driver
	Placements []timeline.Placement
	LaneCount  int
}

// Utilization summarizes how loaded the roster is.
type Utilization struct {
	MeanBusyMin   float64
	StdDevBusyMin float64
}

// Summary is the board header data.
type Summary struct {
	StatusCounts map[string]int
	Conflicts    int
	Utilization  Utilization
}

// Snapshot is the complete derived board for one day.
type Snapshot struct {
	UnassignedQueue []model.Booking
	DriverColumns   []DriverColumn
	Summary         Summary
}

// Engine computes board snapshots. The clock is injected so recomputation
// stays deterministic.
type Engine struct {
	timeline timeline.Engine
	loc      *time.Location
	now      func() time.Time
}

// NewEngine builds a board engine. A nil location falls back to time.Local;
// a nil clock falls back to time.Now.
func NewEngine(cfg timeline.Config, loc *time.Location, now func() time.Time) Engine {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return Engine{timeline: timeline.NewEngine(cfg, loc), loc: loc, now: now}
}

// roster merges the driver directory with stand-ins synthesized from
// bookings referencing unknown driver ids, so no trip is silently dropped.
// Known drivers keep directory order; stand-ins follow sorted by id.
func roster(bookings []model.Booking, drivers []model.Driver) []model.Driver {
	known := make(map[string]bool, len(drivers))
	for _, d := range drivers {
		known[d.ID] = true
	}
	synth := make(map[string]model.Driver)
	for _, b := range bookings {
		if id := b.DriverID(); id != "" && !known[id] {
			if _, ok := synth[id]; !ok {
				synth[id] = model.SynthesizeDriver(*b.Assignment)
			}
		}
	}
	merged := append([]model.Driver(nil), drivers...)
	ids := make([]string, 0, len(synth))
	for id := range synth {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		merged = append(merged, synth[id])
	}
	return merged
}

// ComputeBoard derives the full board for the given day. day is the local
// start of the displayed calendar day; the board covers [day, day+24h).
func (e Engine) ComputeBoard(bookings []model.Booking, drivers []model.Driver, day time.Time, filters Filters, view View) Snapshot {
	dayStart := day
	dayEnd := day.Add(24 * time.Hour)
	now := e.now()

	var visible []model.Booking
	for _, b := range bookings {
		if !view.Match(b) {
			continue
		}
		visible = append(visible, b)
	}

	// The queue holds today's unassigned bookings passing the active
	// filters and search.
	var queue []model.Booking
	inDay := func(b model.Booking) bool {
		pickup, ok := b.PickupInstant(e.loc)
		return ok && !pickup.Before(dayStart) && pickup.Before(dayEnd)
	}
	for _, b := range visible {
		if b.Assigned() || !inDay(b) {
			continue
		}
		if filters.Match(b, now, e.loc) {
			queue = append(queue, b)
		}
	}

	byDriver := make(map[string][]model.Booking)
	for _, b := range visible {
		if id := b.DriverID(); id != "" {
			byDriver[id] = append(byDriver[id], b)
		}
	}

	columns := make([]DriverColumn, 0, len(drivers))
	conflicts := 0
	var busy []float64
	for _, d := range roster(visible, drivers) {
		placements, lanes := e.timeline.Place(byDriver[d.ID], dayStart, dayEnd)
		minutes := 0.0
		for _, p := range placements {
			if p.Conflict {
				conflicts++
			}
			minutes += float64(p.DurationMin)
		}
		busy = append(busy, minutes)
		columns = append(columns, DriverColumn{Driver: d, Placements: placements, LaneCount: lanes})
	}

	counts := make(map[string]int)
	for _, b := range visible {
		if inDay(b) {
			counts[b.Status.String()]++
		}
	}

	util := Utilization{}
	if len(busy) > 0 {
		util.MeanBusyMin = stat.Mean(busy, nil)
		if len(busy) > 1 {
			util.StdDevBusyMin = stat.StdDev(busy, nil)
		}
	}

	return Snapshot{
		UnassignedQueue: queue,
		DriverColumns:   columns,
		Summary:         Summary{StatusCounts: counts, Conflicts: conflicts, Utilization: util},
	}
}
