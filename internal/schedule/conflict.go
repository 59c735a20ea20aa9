// Package schedule implements the reservation scheduling core: conflict
// detection, gesture quantization, the in-progress draft state machine and
// optimistic reconciliation against the bookings service.
//
// The core is an advisory layer. The bookings service re-validates overlap at
// commit time; everything here exists to give the user live feedback and to
// keep the local booking list consistent around submits.
package schedule

import (
	"github.com/nonsir1/Roomly/pkg/model"
)

// FindConflict returns the first booking whose range overlaps the candidate,
// or nil when the candidate is free. excludeID skips a booking being edited
// so it does not conflict with itself. Which conflicting booking is returned
// is unspecified when several overlap.
//
// Callers must not pass a degenerate candidate; validate with IsValid first.
func FindConflict(existing []*model.Booking, candidate model.TimeRange, excludeID string) *model.Booking {
	cand := candidate.Truncated()

	for _, b := range existing {
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		if b.Range().Truncated().Overlaps(cand) {
			return b
		}
	}
	return nil
}

// HasConflict reports whether any booking overlaps the candidate.
func HasConflict(existing []*model.Booking, candidate model.TimeRange, excludeID string) bool {
	return FindConflict(existing, candidate, excludeID) != nil
}
