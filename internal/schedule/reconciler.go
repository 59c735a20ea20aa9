package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nonsir1/Roomly/pkg/errors"
	"github.com/nonsir1/Roomly/pkg/model"
)

// Reconciler commits drafts with optimistic local effects. The caller sees
// the provisional booking immediately through OnApply; the authoritative
// result replaces it when the store call resolves, and a failure rolls the
// list back to the pre-commit snapshot.
type Reconciler struct {
	store BookingStore

	// OnApply receives every intermediate and final booking list. Optional.
	OnApply func(bookings []*model.Booking)
}

func NewReconciler(store BookingStore) *Reconciler {
	return &Reconciler{store: store}
}

func (r *Reconciler) apply(bookings []*model.Booking) {
	if r.OnApply != nil {
		r.OnApply(bookings)
	}
}

// provisionalID marks a booking that exists only locally.
func provisionalID() string {
	return "pending-" + uuid.New().String()
}

// Commit creates (or, when editingID is set, replaces) a booking. The
// returned list is authoritative on success and the restored snapshot on
// failure. A conflict failure triggers a best-effort refresh so the caller
// can surface the blocking booking; if that refresh also fails the snapshot
// stands.
func (r *Reconciler) Commit(ctx context.Context, roomID string, day model.TimeRange, current []*model.Booking, editingID string, booking *model.Booking) ([]*model.Booking, error) {
	snapshot := make([]*model.Booking, len(current))
	copy(snapshot, current)

	provisional := *booking
	provisional.ID = provisionalID()
	provisional.CreatedAt = time.Now()

	spliced := make([]*model.Booking, 0, len(current)+1)
	for _, b := range current {
		if editingID != "" && b.ID == editingID {
			continue
		}
		spliced = append(spliced, b)
	}
	spliced = append(spliced, &provisional)
	r.apply(spliced)

	var err error
	if editingID != "" {
		_, err = r.store.Update(ctx, editingID, booking)
	} else {
		_, err = r.store.Create(ctx, booking)
	}

	if err != nil {
		if errors.IsCode(err, errors.CodeConflict) {
			if fresh, refreshErr := r.store.FetchForRoom(ctx, roomID, day); refreshErr == nil {
				r.apply(fresh)
				return fresh, err
			}
		}
		r.apply(snapshot)
		return snapshot, err
	}

	fresh, fetchErr := r.store.FetchForRoom(ctx, roomID, day)
	if fetchErr != nil {
		// The write landed but the confirming read did not. The spliced
		// list is the best available approximation until the next refresh.
		return spliced, nil
	}
	r.apply(fresh)
	return fresh, nil
}

// Remove deletes a booking optimistically. The entry disappears at once and
// reappears if the store rejects the delete.
func (r *Reconciler) Remove(ctx context.Context, roomID string, day model.TimeRange, current []*model.Booking, id string) ([]*model.Booking, error) {
	snapshot := make([]*model.Booking, len(current))
	copy(snapshot, current)

	trimmed := make([]*model.Booking, 0, len(current))
	for _, b := range current {
		if b.ID == id {
			continue
		}
		trimmed = append(trimmed, b)
	}
	r.apply(trimmed)

	if err := r.store.Delete(ctx, id); err != nil {
		r.apply(snapshot)
		return snapshot, err
	}

	fresh, fetchErr := r.store.FetchForRoom(ctx, roomID, day)
	if fetchErr != nil {
		return trimmed, nil
	}
	r.apply(fresh)
	return fresh, nil
}
