// Package availability implements the slot grid math shared by the slot
// listing endpoint and its tests. It is pure: no storage, no clock.
package availability

import "time"

// Grid is the slot alignment used across the product.
const Grid = 30 * time.Minute

type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect. Touching
// boundaries do not conflict.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Slots returns the bookable intervals of the given duration within
// [windowStart, windowEnd], stepping on the grid from windowStart. A slot
// ending exactly at windowEnd is included. Slots overlapping a busy interval
// or not starting strictly after now are dropped.
//
// All times must share one location.
func Slots(windowStart, windowEnd time.Time, duration time.Duration, busy []Interval, now time.Time) []Interval {
	if duration <= 0 {
		return nil
	}
	if !windowEnd.After(windowStart) {
		return nil
	}

	var slots []Interval
	for t := windowStart; !t.Add(duration).After(windowEnd); t = t.Add(Grid) {
		if !t.After(now) {
			continue
		}
		if overlapsAny(t, t.Add(duration), busy) {
			continue
		}
		slots = append(slots, Interval{Start: t, End: t.Add(duration)})
	}
	return slots
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}
