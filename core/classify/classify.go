// Package classify derives the bucket labels that feed the dispatcher
// queue filters. Every function is pure and total: malformed input maps to
// a bucket, never an error.
package classify

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shuttleops/dispatchboard/core/model"
)

// PickupWindow buckets a pickup instant relative to now.
type PickupWindow string

const (
	WindowNext2h    PickupWindow = "next2h"
	WindowMorning   PickupWindow = "morning"
	WindowAfternoon PickupWindow = "afternoon"
	WindowEvening   PickupWindow = "evening"
	WindowOvernight PickupWindow = "overnight"
)

// PaxBucket groups bookings by passenger count.
type PaxBucket string

const (
	PaxSmall PaxBucket = "1-2"
	PaxMid   PaxBucket = "3-4"
	PaxLarge PaxBucket = "5+"
)

// LuggageBucket groups bookings by the free-text baggage descriptor.
type LuggageBucket string

const (
	LuggageNone     LuggageBucket = "none"
	LuggageStandard LuggageBucket = "standard"
	LuggageHeavy    LuggageBucket = "heavy"
)

// Window classifies the pickup instant. Anything within the next two hours
// is urgent regardless of the clock; otherwise the local hour decides.
func Window(pickup, now time.Time) PickupWindow {
	if !pickup.After(now.Add(2 * time.Hour)) {
		return WindowNext2h
	}
	switch h := pickup.Hour(); {
	case h >= 5 && h < 12:
		return WindowMorning
	case h >= 12 && h < 17:
		return WindowAfternoon
	case h >= 17 && h < 22:
		return WindowEvening
	default:
		return WindowOvernight
	}
}

// Pax classifies a passenger count.
func Pax(count int) PaxBucket {
	switch {
	case count >= 5:
		return PaxLarge
	case count >= 3:
		return PaxMid
	default:
		return PaxSmall
	}
}

var heavyKeywords = []string{"oversize", "oversized", "ski", "bike", "stroller", "heavy", "large"}

var digitRe = regexp.MustCompile(`\d+`)

// Luggage classifies a free-text baggage descriptor by keyword and digit
// heuristics. Empty text means no luggage; oversize items or four-plus
// pieces count as heavy.
func Luggage(baggage string) LuggageBucket {
	text := strings.ToLower(strings.TrimSpace(baggage))
	if text == "" {
		return LuggageNone
	}
	for _, kw := range heavyKeywords {
		if strings.Contains(text, kw) {
			return LuggageHeavy
		}
	}
	if strings.Contains(text, "extra large") {
		return LuggageHeavy
	}
	for _, m := range digitRe.FindAllString(text, -1) {
		if n, err := strconv.Atoi(m); err == nil && n >= 4 {
			return LuggageHeavy
		}
	}
	return LuggageStandard
}

var airportCodeRe = regexp.MustCompile(`\(([A-Za-z]{3,4})\)`)

// Airport extracts an airport code from a booking. The first bracketed
// three-or-four letter code in destination, origin or either address wins;
// failing that, the first comma-delimited segment of the first non-empty
// candidate field; failing that, the empty string.
func Airport(t model.Trip) string {
	candidates := []string{t.Destination, t.Origin, t.DestinationAddress, t.OriginAddress}
	for _, c := range candidates {
		if m := airportCodeRe.FindStringSubmatch(c); m != nil {
			return strings.ToUpper(m[1])
		}
	}
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			seg, _, _ := strings.Cut(c, ",")
			return strings.TrimSpace(seg)
		}
	}
	return ""
}
