package availability

import (
	"testing"
	"time"
)

func at(day time.Time, hour, min int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, day.Location())
}

func TestSlots_SkipsBusyInterval(t *testing.T) {
	// Monday 09:00-17:00, one booked appointment 10:00-10:30. The 09:30 and
	// 11:00 slots must be offered; 10:00 must not.
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday
	windowStart := at(day, 9, 0)
	windowEnd := at(day, 17, 0)
	busy := []Interval{{Start: at(day, 10, 0), End: at(day, 10, 30)}}
	now := at(day, 0, 0)

	slots := Slots(windowStart, windowEnd, 30*time.Minute, busy, now)

	want := map[time.Time]bool{}
	for _, s := range slots {
		want[s.Start] = true
	}
	if !want[at(day, 9, 30)] {
		t.Error("expected 09:30 slot to be offered")
	}
	if !want[at(day, 11, 0)] {
		t.Error("expected 11:00 slot to be offered")
	}
	if want[at(day, 10, 0)] {
		t.Error("10:00 slot overlaps an existing appointment and must be excluded")
	}
	// 16 half-hour slots minus the booked one.
	if len(slots) != 15 {
		t.Fatalf("expected 15 slots, got %d", len(slots))
	}
}

func TestSlots_BoundaryInclusive(t *testing.T) {
	// A slot that ends exactly at the window end is bookable.
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	slots := Slots(at(day, 16, 0), at(day, 17, 0), 60*time.Minute, nil, at(day, 0, 0))
	if len(slots) != 1 {
		t.Fatalf("expected exactly the 16:00-17:00 slot, got %d slots", len(slots))
	}
	if !slots[0].Start.Equal(at(day, 16, 0)) || !slots[0].End.Equal(at(day, 17, 0)) {
		t.Fatalf("unexpected slot %v", slots[0])
	}
}

func TestSlots_ExcludesPastAndCurrentInstant(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	now := at(day, 10, 0)
	slots := Slots(at(day, 9, 0), at(day, 12, 0), 30*time.Minute, nil, now)
	for _, s := range slots {
		if !s.Start.After(now) {
			t.Fatalf("slot %v does not start strictly after now", s.Start)
		}
	}
	// 09:00, 09:30 and the 10:00 slot equal to now are all gone.
	if len(slots) != 3 {
		t.Fatalf("expected 3 future slots, got %d", len(slots))
	}
}

func TestSlots_DurationLongerThanWindow(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if got := Slots(at(day, 9, 0), at(day, 10, 0), 2*time.Hour, nil, at(day, 0, 0)); got != nil {
		t.Fatalf("expected no slots, got %v", got)
	}
}

func TestSlots_RejectsNonPositiveDuration(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if got := Slots(at(day, 9, 0), at(day, 17, 0), 0, nil, at(day, 0, 0)); got != nil {
		t.Fatalf("expected no slots for zero duration, got %v", got)
	}
}

func TestOverlaps_HalfOpen(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	// Touching boundaries do not conflict.
	if Overlaps(at(day, 9, 0), at(day, 10, 0), at(day, 10, 0), at(day, 11, 0)) {
		t.Error("[09,10) and [10,11) must not overlap")
	}
	if !Overlaps(at(day, 9, 0), at(day, 10, 0), at(day, 9, 30), at(day, 11, 0)) {
		t.Error("[09,10) and [09:30,11) must overlap")
	}
}
