package schedule

import (
	"context"
	"strings"
	"testing"

	"github.com/nonsir1/Roomly/pkg/errors"
	"github.com/nonsir1/Roomly/pkg/model"
)

type mockStore struct {
	fetchFunc  func(ctx context.Context, roomID string, day model.TimeRange) ([]*model.Booking, error)
	createFunc func(ctx context.Context, booking *model.Booking) (*model.Booking, error)
	updateFunc func(ctx context.Context, id string, booking *model.Booking) (*model.Booking, error)
	deleteFunc func(ctx context.Context, id string) error
}

func (m *mockStore) FetchForRoom(ctx context.Context, roomID string, day model.TimeRange) ([]*model.Booking, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, roomID, day)
	}
	return []*model.Booking{}, nil
}

func (m *mockStore) Create(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, booking)
	}
	return booking, nil
}

func (m *mockStore) Update(ctx context.Context, id string, booking *model.Booking) (*model.Booking, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, booking)
	}
	return booking, nil
}

func (m *mockStore) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

type mockModes struct {
	mode model.SchedulingMode
	err  error
}

func (m *mockModes) SchedulingMode(ctx context.Context) (model.SchedulingMode, error) {
	return m.mode, m.err
}

func newTestSession(t *testing.T, store *mockStore, mode model.SchedulingMode) *Session {
	t.Helper()
	s := NewSession(SessionConfig{
		Store:        store,
		Modes:        &mockModes{mode: mode},
		RoomID:       "room-1",
		Viewer:       model.Viewer{ID: "user-1", Role: "USER"},
		Day:          day(t),
		SnapMinutes:  15,
		DefaultTitle: "Meeting",
	})
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func TestSession_FreeFormGestureLifecycle(t *testing.T) {
	base := day(t)
	s := newTestSession(t, &mockStore{}, model.SchedulingMode{})

	if s.State() != StateIdle {
		t.Fatalf("expected idle, got %v", s.State())
	}

	s.GestureStart(600)
	if s.State() != StateComposing {
		t.Fatalf("expected composing after gesture start, got %v", s.State())
	}

	s.GestureMove(690)
	s.GestureEnd()

	draft := s.Draft()
	if !draft.Candidate.Start.Equal(at(base, 10, 0)) || !draft.Candidate.End.Equal(at(base, 11, 30)) {
		t.Errorf("expected [10:00, 11:30), got [%v, %v)", draft.Candidate.Start, draft.Candidate.End)
	}
	if draft.Title != "Meeting" {
		t.Errorf("expected default title, got %q", draft.Title)
	}
}

func TestSession_GestureIgnoredInSlotMode(t *testing.T) {
	s := newTestSession(t, &mockStore{}, model.SchedulingMode{SlotMode: true})

	s.GestureStart(600)
	if s.State() != StateIdle {
		t.Errorf("drag must be ignored in slot mode, state is %v", s.State())
	}
}

func TestSession_NewGestureDiscardsPriorDraft(t *testing.T) {
	base := day(t)
	s := newTestSession(t, &mockStore{}, model.SchedulingMode{})

	s.GestureStart(600)
	s.GestureMove(660)
	s.GestureEnd()
	s.SetTitle("First")

	s.GestureStart(900)
	s.GestureMove(960)
	s.GestureEnd()

	draft := s.Draft()
	if draft.Title != "Meeting" {
		t.Errorf("new gesture must reset the title, got %q", draft.Title)
	}
	if !draft.Candidate.Start.Equal(at(base, 15, 0)) {
		t.Errorf("expected new candidate start 15:00, got %v", draft.Candidate.Start)
	}
}

func TestSession_Refresh_AdoptsModeChange(t *testing.T) {
	base := day(t)
	modes := &mockModes{}
	s := NewSession(SessionConfig{
		Store:       &mockStore{},
		Modes:       modes,
		RoomID:      "room-1",
		Viewer:      model.Viewer{ID: "user-1"},
		Day:         base,
		SnapMinutes: 15,
	})
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	modes.mode = model.SchedulingMode{SlotMode: true}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !s.Mode().SlotMode {
		t.Fatal("refresh must pick up the mode change")
	}

	s.GestureStart(600)
	s.GestureMove(660)
	s.GestureEnd()
	if s.State() != StateIdle {
		t.Errorf("free-form drag must be ignored once slot mode is active, state is %v", s.State())
	}

	s.SlotClick(10)
	if s.State() != StateComposing {
		t.Errorf("slot click must compose under the new mode, state is %v", s.State())
	}
}

func TestSession_Refresh_ModeChangeReshapesDraft(t *testing.T) {
	base := day(t)
	modes := &mockModes{}
	s := NewSession(SessionConfig{
		Store:       &mockStore{},
		Modes:       modes,
		RoomID:      "room-1",
		Viewer:      model.Viewer{ID: "user-1"},
		Day:         base,
		SnapMinutes: 15,
	})
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	s.GestureStart(615)
	s.GestureMove(675)
	s.GestureEnd()

	modes.mode = model.SchedulingMode{SlotMode: true}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	draft := s.Draft()
	if len(draft.SelectedSlots) != 2 || draft.SelectedSlots[0] != 10 || draft.SelectedSlots[1] != 11 {
		t.Fatalf("expected slots [10 11] covering the free-form draft, got %v", draft.SelectedSlots)
	}
	if !draft.Candidate.Start.Equal(at(base, 10, 0)) || !draft.Candidate.End.Equal(at(base, 12, 0)) {
		t.Errorf("expected candidate expanded to [10:00, 12:00), got [%v, %v)", draft.Candidate.Start, draft.Candidate.End)
	}

	// Switching back keeps the bounds and drops the slot selection.
	modes.mode = model.SchedulingMode{}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	draft = s.Draft()
	if draft.SelectedSlots != nil {
		t.Errorf("expected slot selection cleared in free-form mode, got %v", draft.SelectedSlots)
	}
	if !draft.Candidate.Start.Equal(at(base, 10, 0)) || !draft.Candidate.End.Equal(at(base, 12, 0)) {
		t.Errorf("expected candidate preserved, got [%v, %v)", draft.Candidate.Start, draft.Candidate.End)
	}
}

func TestSession_SlotClick_SingleMode(t *testing.T) {
	base := day(t)
	s := newTestSession(t, &mockStore{}, model.SchedulingMode{SlotMode: true})

	s.SlotClick(10)
	draft := s.Draft()
	if len(draft.SelectedSlots) != 1 || draft.SelectedSlots[0] != 10 {
		t.Fatalf("expected [10], got %v", draft.SelectedSlots)
	}

	// A second click replaces the selection, it does not extend it.
	s.SlotClick(14)
	draft = s.Draft()
	if len(draft.SelectedSlots) != 1 || draft.SelectedSlots[0] != 14 {
		t.Fatalf("expected [14], got %v", draft.SelectedSlots)
	}
	if !draft.Candidate.Start.Equal(at(base, 14, 0)) || !draft.Candidate.End.Equal(at(base, 15, 0)) {
		t.Errorf("expected [14:00, 15:00), got [%v, %v)", draft.Candidate.Start, draft.Candidate.End)
	}
}

func TestSession_SlotClick_MultiMode(t *testing.T) {
	base := day(t)
	s := newTestSession(t, &mockStore{}, model.SchedulingMode{SlotMode: true, MultiSlot: true})

	s.SlotClick(10)
	s.SlotClick(12)

	draft := s.Draft()
	if len(draft.SelectedSlots) != 2 {
		t.Fatalf("expected two slots, got %v", draft.SelectedSlots)
	}
	// The candidate spans the envelope even though 11 was never clicked.
	if !draft.Candidate.Start.Equal(at(base, 10, 0)) || !draft.Candidate.End.Equal(at(base, 13, 0)) {
		t.Errorf("expected [10:00, 13:00), got [%v, %v)", draft.Candidate.Start, draft.Candidate.End)
	}

	// Toggling off one slot shrinks the selection.
	s.SlotClick(12)
	draft = s.Draft()
	if len(draft.SelectedSlots) != 1 || draft.SelectedSlots[0] != 10 {
		t.Fatalf("expected [10] after toggle, got %v", draft.SelectedSlots)
	}

	// Toggling off the last slot closes the draft.
	s.SlotClick(10)
	if s.State() != StateIdle {
		t.Errorf("expected idle after emptying the selection, got %v", s.State())
	}
}

func TestSession_SlotClick_OccupiedIsNoOp(t *testing.T) {
	base := day(t)
	store := &mockStore{
		fetchFunc: func(ctx context.Context, roomID string, day model.TimeRange) ([]*model.Booking, error) {
			return []*model.Booking{booking("b1", at(base, 10, 0), at(base, 11, 0))}, nil
		},
	}
	s := newTestSession(t, store, model.SchedulingMode{SlotMode: true})

	s.SlotClick(10)
	if s.State() != StateIdle {
		t.Errorf("clicking an occupied bucket must do nothing, state is %v", s.State())
	}
}

func TestSession_FieldEdit_FreeForm(t *testing.T) {
	base := day(t)
	s := newTestSession(t, &mockStore{}, model.SchedulingMode{})
	s.GestureStart(600)
	s.GestureEnd()

	if err := s.FieldEdit(FieldEnd, "11:07"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 11:07 snaps to 11:00 at 15-minute granularity.
	if got := s.Draft().Candidate.End; !got.Equal(at(base, 11, 0)) {
		t.Errorf("expected snapped end 11:00, got %v", got)
	}

	if err := s.FieldEdit(FieldStart, "12:00"); err == nil {
		t.Error("start after end must be rejected")
	}

	if err := s.FieldEdit(FieldStart, "nonsense"); err == nil {
		t.Error("unparseable value must be rejected")
	}
}

func TestSession_FieldEdit_SlotModeFloorsToHour(t *testing.T) {
	base := day(t)
	s := newTestSession(t, &mockStore{}, model.SchedulingMode{SlotMode: true})
	s.SlotClick(10)

	if err := s.FieldEdit(FieldEnd, "12:45"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	draft := s.Draft()
	if !draft.Candidate.End.Equal(at(base, 12, 0)) {
		t.Errorf("expected floored end 12:00, got %v", draft.Candidate.End)
	}
	if len(draft.SelectedSlots) != 2 || draft.SelectedSlots[0] != 10 || draft.SelectedSlots[1] != 11 {
		t.Errorf("expected recomputed slots [10 11], got %v", draft.SelectedSlots)
	}
}

func TestSession_Submit_Success(t *testing.T) {
	var created *model.Booking
	store := &mockStore{
		createFunc: func(ctx context.Context, b *model.Booking) (*model.Booking, error) {
			created = b
			return b, nil
		},
	}
	s := newTestSession(t, store, model.SchedulingMode{})
	s.GestureStart(600)
	s.GestureMove(660)
	s.GestureEnd()
	s.SetTitle("Standup")

	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.State() != StateIdle {
		t.Errorf("expected idle after submit, got %v", s.State())
	}
	if created == nil {
		t.Fatal("expected the store to receive the booking")
	}
	if created.Title != "Standup" || created.RoomID != "room-1" || created.UserID != "user-1" {
		t.Errorf("unexpected booking sent to store: %+v", created)
	}
}

func TestSession_Submit_ProvisionalVisibleDuringCommit(t *testing.T) {
	var s *Session
	sawProvisional := false
	store := &mockStore{
		createFunc: func(ctx context.Context, b *model.Booking) (*model.Booking, error) {
			for _, listed := range s.Bookings() {
				if strings.HasPrefix(listed.ID, "pending-") {
					sawProvisional = true
				}
			}
			return b, nil
		},
	}
	s = newTestSession(t, store, model.SchedulingMode{})
	s.GestureStart(600)
	s.GestureMove(660)
	s.GestureEnd()

	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sawProvisional {
		t.Error("the provisional booking must be in the list while the store call is in flight")
	}
	for _, listed := range s.Bookings() {
		if strings.HasPrefix(listed.ID, "pending-") {
			t.Error("the provisional booking must be replaced once the commit resolves")
		}
	}
}

func TestSession_Submit_EmptyTitleFallsBack(t *testing.T) {
	var created *model.Booking
	store := &mockStore{
		createFunc: func(ctx context.Context, b *model.Booking) (*model.Booking, error) {
			created = b
			return b, nil
		},
	}
	s := newTestSession(t, store, model.SchedulingMode{})
	s.GestureStart(600)
	s.GestureEnd()
	s.SetTitle("")

	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Title != "Meeting" {
		t.Errorf("expected default title, got %q", created.Title)
	}
}

func TestSession_Submit_LocalConflictBlocks(t *testing.T) {
	base := day(t)
	createCalled := false
	store := &mockStore{
		fetchFunc: func(ctx context.Context, roomID string, day model.TimeRange) ([]*model.Booking, error) {
			return []*model.Booking{booking("b1", at(base, 10, 0), at(base, 11, 0))}, nil
		},
		createFunc: func(ctx context.Context, b *model.Booking) (*model.Booking, error) {
			createCalled = true
			return b, nil
		},
	}
	s := newTestSession(t, store, model.SchedulingMode{})
	s.GestureStart(630)
	s.GestureMove(690)
	s.GestureEnd()

	err := s.Submit(context.Background())
	if !errors.IsCode(err, errors.CodeConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if createCalled {
		t.Error("the store must not be called when the conflict is visible locally")
	}
	if s.State() != StateComposing {
		t.Errorf("expected to stay composing, got %v", s.State())
	}
	if s.Conflict() == nil || s.Conflict().ID != "b1" {
		t.Errorf("expected blocking booking b1, got %v", s.Conflict())
	}
	if !s.Draft().Candidate.IsValid() {
		t.Error("candidate must be preserved after a blocked submit")
	}
}

func TestSession_Submit_RemoteConflictRefreshes(t *testing.T) {
	base := day(t)
	remote := booking("b9", at(base, 10, 0), at(base, 11, 0))
	fetches := 0
	store := &mockStore{
		fetchFunc: func(ctx context.Context, roomID string, day model.TimeRange) ([]*model.Booking, error) {
			fetches++
			if fetches == 1 {
				return []*model.Booking{}, nil
			}
			return []*model.Booking{remote}, nil
		},
		createFunc: func(ctx context.Context, b *model.Booking) (*model.Booking, error) {
			return nil, errors.Conflict("booking overlaps an existing reservation")
		},
	}
	s := newTestSession(t, store, model.SchedulingMode{})
	s.GestureStart(600)
	s.GestureMove(660)
	s.GestureEnd()

	err := s.Submit(context.Background())
	if !errors.IsCode(err, errors.CodeConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if s.State() != StateComposing {
		t.Errorf("expected to return to composing, got %v", s.State())
	}
	if s.Conflict() == nil || s.Conflict().ID != "b9" {
		t.Errorf("refresh should reveal the blocking booking, got %v", s.Conflict())
	}
}

func TestSession_Submit_StoreFailureKeepsDraft(t *testing.T) {
	store := &mockStore{
		createFunc: func(ctx context.Context, b *model.Booking) (*model.Booking, error) {
			return nil, errors.Internal("store unavailable", nil)
		},
	}
	s := newTestSession(t, store, model.SchedulingMode{})
	s.GestureStart(600)
	s.GestureEnd()

	if err := s.Submit(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if s.State() != StateComposing {
		t.Errorf("expected composing after failure, got %v", s.State())
	}
	if s.LastError() == nil {
		t.Error("expected the failure to be recorded")
	}
	if !s.Draft().Candidate.IsValid() {
		t.Error("candidate must survive a failed submit")
	}
	if len(s.Bookings()) != 0 {
		t.Errorf("failed submit must roll the list back to the snapshot, got %d entries", len(s.Bookings()))
	}
}

func TestSession_Delete_FailureRestoresList(t *testing.T) {
	base := day(t)
	mine := booking("b1", at(base, 10, 0), at(base, 11, 0))
	store := &mockStore{
		fetchFunc: func(ctx context.Context, roomID string, day model.TimeRange) ([]*model.Booking, error) {
			return []*model.Booking{mine}, nil
		},
		deleteFunc: func(ctx context.Context, id string) error {
			return errors.Internal("store unavailable", nil)
		},
	}
	s := newTestSession(t, store, model.SchedulingMode{})

	if err := s.Delete(context.Background(), "b1"); err == nil {
		t.Fatal("expected error")
	}
	if len(s.Bookings()) != 1 || s.Bookings()[0].ID != "b1" {
		t.Errorf("rejected delete must restore the entry, got %v", s.Bookings())
	}
}

func TestSession_OpenForEdit(t *testing.T) {
	base := day(t)
	mine := booking("b1", at(base, 10, 0), at(base, 11, 0))
	theirs := booking("b2", at(base, 12, 0), at(base, 13, 0))
	theirs.UserID = "user-2"

	store := &mockStore{
		fetchFunc: func(ctx context.Context, roomID string, day model.TimeRange) ([]*model.Booking, error) {
			return []*model.Booking{mine, theirs}, nil
		},
	}
	s := newTestSession(t, store, model.SchedulingMode{})

	if err := s.OpenForEdit("b1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	draft := s.Draft()
	if draft.EditingID != "b1" || draft.Title != "Meeting" {
		t.Errorf("unexpected draft: %+v", draft)
	}

	if err := s.OpenForEdit("b2"); !errors.IsCode(err, errors.CodeForbidden) {
		t.Errorf("expected forbidden for another user's booking, got %v", err)
	}
	if err := s.OpenForEdit("missing"); !errors.IsCode(err, errors.CodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestSession_OpenForEdit_AdminCanEditOthers(t *testing.T) {
	base := day(t)
	theirs := booking("b2", at(base, 12, 0), at(base, 13, 0))
	theirs.UserID = "user-2"

	store := &mockStore{
		fetchFunc: func(ctx context.Context, roomID string, day model.TimeRange) ([]*model.Booking, error) {
			return []*model.Booking{theirs}, nil
		},
	}
	s := NewSession(SessionConfig{
		Store:       store,
		Modes:       &mockModes{},
		RoomID:      "room-1",
		Viewer:      model.Viewer{ID: "admin-1", Role: model.RoleAdmin},
		Day:         day(t),
		SnapMinutes: 15,
	})
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := s.OpenForEdit("b2"); err != nil {
		t.Errorf("admin must be able to edit any booking, got %v", err)
	}
}

func TestSession_EditExcludesOwnRangeFromConflict(t *testing.T) {
	base := day(t)
	mine := booking("b1", at(base, 10, 0), at(base, 11, 0))
	var updatedID string
	store := &mockStore{
		fetchFunc: func(ctx context.Context, roomID string, day model.TimeRange) ([]*model.Booking, error) {
			return []*model.Booking{mine}, nil
		},
		updateFunc: func(ctx context.Context, id string, b *model.Booking) (*model.Booking, error) {
			updatedID = id
			return b, nil
		},
	}
	s := newTestSession(t, store, model.SchedulingMode{})

	if err := s.OpenForEdit("b1"); err != nil {
		t.Fatalf("open for edit: %v", err)
	}
	if err := s.FieldEdit(FieldEnd, "11:30"); err != nil {
		t.Fatalf("field edit: %v", err)
	}
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if updatedID != "b1" {
		t.Errorf("expected update of b1, got %q", updatedID)
	}
}

func TestSession_Cancel(t *testing.T) {
	s := newTestSession(t, &mockStore{}, model.SchedulingMode{})
	s.GestureStart(600)
	s.GestureEnd()

	s.Cancel()
	if s.State() != StateIdle {
		t.Errorf("expected idle after cancel, got %v", s.State())
	}
	if s.Draft().Candidate.IsValid() {
		t.Error("cancel must clear the candidate")
	}
}

func TestSession_Delete(t *testing.T) {
	base := day(t)
	mine := booking("b1", at(base, 10, 0), at(base, 11, 0))
	deleted := ""
	store := &mockStore{
		fetchFunc: func(ctx context.Context, roomID string, day model.TimeRange) ([]*model.Booking, error) {
			if deleted == "b1" {
				return []*model.Booking{}, nil
			}
			return []*model.Booking{mine}, nil
		},
		deleteFunc: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	s := newTestSession(t, store, model.SchedulingMode{})

	if err := s.Delete(context.Background(), "b1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != "b1" {
		t.Errorf("expected delete of b1, got %q", deleted)
	}
	if len(s.Bookings()) != 0 {
		t.Errorf("expected refreshed empty list, got %d bookings", len(s.Bookings()))
	}
}

func TestSession_StateString(t *testing.T) {
	if StateIdle.String() != "idle" || StateComposing.String() != "composing" || StateSubmitting.String() != "submitting" {
		t.Error("unexpected state names")
	}
	if State(99).String() != "unknown" {
		t.Error("out of range state must stringify as unknown")
	}
}
