package schedule

import (
	"fmt"
	"math"
	"time"

	"github.com/nonsir1/Roomly/pkg/model"
)

// Timeline geometry shared with the rendering layer. One hour of the day
// timeline is HourHeight pixels tall, so one pixel is one minute.
const (
	HourHeight      = 60
	PixelsPerMinute = float64(HourHeight) / 60.0
	HoursPerDay     = 24
	SlotsPerDay     = 24

	minutesPerDay = HoursPerDay * 60
)

// Quantizer converts raw pointer and time-field input into candidate ranges
// under the active scheduling mode.
type Quantizer struct {
	snapMinutes int
}

func NewQuantizer(snapMinutes int) Quantizer {
	if snapMinutes <= 0 || 60%snapMinutes != 0 {
		snapMinutes = 15
	}
	return Quantizer{snapMinutes: snapMinutes}
}

func (q Quantizer) SnapMinutes() int {
	return q.snapMinutes
}

// DayStart returns midnight of the calendar day containing t.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayRange returns the half-open range covering the calendar day of t.
func DayRange(t time.Time) model.TimeRange {
	start := DayStart(t)
	return model.TimeRange{Start: start, End: start.Add(HoursPerDay * time.Hour)}
}

// ClampOffset limits a pointer offset to the drawable timeline span.
func ClampOffset(y float64) float64 {
	return math.Max(0, math.Min(y, float64(HoursPerDay*HourHeight)))
}

// snap rounds a raw minute offset to the nearest granularity step,
// round-half-up. Snapping is idempotent: already-snapped values map to
// themselves.
func (q Quantizer) snap(rawMinutes float64) int {
	return int(math.Round(rawMinutes/float64(q.snapMinutes))) * q.snapMinutes
}

// TimeForOffset maps a vertical pixel offset on the day timeline to a
// snapped instant within that day.
func (q Quantizer) TimeForOffset(day time.Time, y float64) time.Time {
	rawMinutes := ClampOffset(y) / PixelsPerMinute
	snapped := q.snap(rawMinutes)
	return DayStart(day).Add(time.Duration(snapped) * time.Minute)
}

// RangeForDrag converts a free-form drag spanning the two pixel offsets into
// a candidate range. A degenerate drag collapses to one granularity unit,
// shifted backward at the bottom of the timeline so the candidate stays
// inside the day.
func (q Quantizer) RangeForDrag(day time.Time, startY, currentY float64) model.TimeRange {
	topY := math.Min(startY, currentY)
	bottomY := math.Max(startY, currentY)

	start := q.TimeForOffset(day, topY)
	end := q.TimeForOffset(day, bottomY)

	if !end.After(start) {
		step := time.Duration(q.snapMinutes) * time.Minute
		dayEnd := DayStart(day).Add(HoursPerDay * time.Hour)
		end = start.Add(step)
		if end.After(dayEnd) {
			end = dayEnd
			start = dayEnd.Add(-step)
		}
	}

	return model.TimeRange{Start: start, End: end}
}

// SnapClock snaps a wall-clock minute-of-day to granularity, keeping it
// inside the day.
func (q Quantizer) SnapClock(minuteOfDay int) int {
	snapped := q.snap(float64(minuteOfDay))
	if snapped < 0 {
		return 0
	}
	if snapped > minutesPerDay {
		return minutesPerDay
	}
	return snapped
}

// ParseClock parses an "HH:MM" time-field value into a minute-of-day.
// "24:00" is accepted as the exclusive end of the day.
func ParseClock(value string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(value, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time value %q: %w", value, err)
	}
	if m < 0 || m > 59 || h < 0 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time value %q", value)
	}
	return h*60 + m, nil
}

// ClockTime places a minute-of-day on the given calendar day.
func ClockTime(day time.Time, minuteOfDay int) time.Time {
	return DayStart(day).Add(time.Duration(minuteOfDay) * time.Minute)
}

// SlotRange returns the fixed hourly bucket [hour, hour+1) on the given day.
func SlotRange(day time.Time, hour int) model.TimeRange {
	start := DayStart(day).Add(time.Duration(hour) * time.Hour)
	return model.TimeRange{Start: start, End: start.Add(time.Hour)}
}

// OccupiedSlots marks every hourly bucket intersected by an existing booking.
func OccupiedSlots(day time.Time, bookings []*model.Booking) [SlotsPerDay]bool {
	var occupied [SlotsPerDay]bool
	for hour := 0; hour < SlotsPerDay; hour++ {
		bucket := SlotRange(day, hour)
		for _, b := range bookings {
			if b.Range().Overlaps(bucket) {
				occupied[hour] = true
				break
			}
		}
	}
	return occupied
}

// RangeForSlots derives the candidate range spanned by a slot selection.
// The selection is coerced to the contiguous block between its extremes,
// so gaps inside a non-contiguous selection are implied as selected.
// ok is false when the selection is empty.
func RangeForSlots(day time.Time, slots []int) (model.TimeRange, bool) {
	if len(slots) == 0 {
		return model.TimeRange{}, false
	}

	minHour, maxHour := slots[0], slots[0]
	for _, h := range slots[1:] {
		if h < minHour {
			minHour = h
		}
		if h > maxHour {
			maxHour = h
		}
	}

	start := DayStart(day).Add(time.Duration(minHour) * time.Hour)
	end := DayStart(day).Add(time.Duration(maxHour+1) * time.Hour)
	return model.TimeRange{Start: start, End: end}, true
}

// SlotsForBounds expands a [startHour, endHour) pair into the covered slot
// indexes. An inverted or empty pair yields nil.
func SlotsForBounds(startHour, endHour int) []int {
	if endHour <= startHour {
		return nil
	}
	slots := make([]int, 0, endHour-startHour)
	for h := startHour; h < endHour; h++ {
		if h >= 0 && h < SlotsPerDay {
			slots = append(slots, h)
		}
	}
	if len(slots) == 0 {
		return nil
	}
	return slots
}

// toggleSlot flips the membership of hour in the selection, keeping it
// sorted ascending.
func toggleSlot(selected []int, hour int) []int {
	out := make([]int, 0, len(selected)+1)
	found := false
	for _, h := range selected {
		if h == hour {
			found = true
			continue
		}
		out = append(out, h)
	}
	if found {
		return out
	}

	inserted := false
	result := make([]int, 0, len(out)+1)
	for _, h := range out {
		if !inserted && hour < h {
			result = append(result, hour)
			inserted = true
		}
		result = append(result, h)
	}
	if !inserted {
		result = append(result, hour)
	}
	return result
}
