package model

import "time"

// TimeRange is a half-open interval [Start, End) on absolute instants.
type TimeRange struct {
	Start time.Time `json:"start_time" bson:"start_time"`
	End   time.Time `json:"end_time" bson:"end_time"`
}

func NewTimeRange(start, end time.Time) TimeRange {
	return TimeRange{Start: start, End: end}
}

// IsValid reports whether the range has positive duration.
func (r TimeRange) IsValid() bool {
	return r.End.After(r.Start)
}

func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Overlaps reports whether two ranges share at least one instant.
// Touching boundaries (one ends exactly when the other starts) do not overlap.
// Both ranges must satisfy IsValid; degenerate ranges are rejected upstream.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Truncated returns the range with both instants truncated to whole minutes.
// Comparisons against persisted bookings are minute-granular.
func (r TimeRange) Truncated() TimeRange {
	return TimeRange{
		Start: r.Start.Truncate(time.Minute),
		End:   r.End.Truncate(time.Minute),
	}
}
