package schedule

import (
	"context"
	"time"

	"github.com/nonsir1/Roomly/pkg/errors"
	"github.com/nonsir1/Roomly/pkg/model"
)

// State is the draft lifecycle phase of a scheduling session.
type State int

const (
	// StateIdle means no draft exists.
	StateIdle State = iota
	// StateComposing means a candidate range is being shaped.
	StateComposing
	// StateSubmitting means the draft has been handed to the store and no
	// further edits are accepted until the call resolves.
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateComposing:
		return "composing"
	case StateSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// BookingStore is the authoritative backend the session reads from and
// commits to. pkg/client.BookingClient implements it over HTTP.
type BookingStore interface {
	FetchForRoom(ctx context.Context, roomID string, day model.TimeRange) ([]*model.Booking, error)
	Create(ctx context.Context, booking *model.Booking) (*model.Booking, error)
	Update(ctx context.Context, id string, booking *model.Booking) (*model.Booking, error)
	Delete(ctx context.Context, id string) error
}

// ModeSource reports the active scheduling mode.
type ModeSource interface {
	SchedulingMode(ctx context.Context) (model.SchedulingMode, error)
}

// Draft is an in-flight reservation being composed.
type Draft struct {
	Candidate     model.TimeRange
	SelectedSlots []int
	Title         string

	// EditingID is set when the draft revises an existing booking instead
	// of creating a new one.
	EditingID string
}

// Session drives one user's scheduling interaction for a single room and
// day. It is not safe for concurrent use.
type Session struct {
	store      BookingStore
	modes      ModeSource
	quantizer  Quantizer
	reconciler *Reconciler

	roomID       string
	viewer       model.Viewer
	day          time.Time
	defaultTitle string

	mode     model.SchedulingMode
	bookings []*model.Booking

	state State
	draft Draft

	// conflict holds the booking that blocked the last submit attempt.
	conflict *model.Booking
	// lastErr holds the failure of the last submit attempt, preserved
	// while the session stays in the composing state.
	lastErr error

	dragging     bool
	dragStartY   float64
	dragCurrentY float64
}

// SessionConfig carries the collaborators and fixed parameters of a session.
type SessionConfig struct {
	Store        BookingStore
	Modes        ModeSource
	RoomID       string
	Viewer       model.Viewer
	Day          time.Time
	SnapMinutes  int
	DefaultTitle string
}

func NewSession(cfg SessionConfig) *Session {
	title := cfg.DefaultTitle
	if title == "" {
		title = "Meeting"
	}
	s := &Session{
		store:        cfg.Store,
		modes:        cfg.Modes,
		quantizer:    NewQuantizer(cfg.SnapMinutes),
		roomID:       cfg.RoomID,
		viewer:       cfg.Viewer,
		day:          DayStart(cfg.Day),
		defaultTitle: title,
		state:        StateIdle,
	}
	s.reconciler = NewReconciler(cfg.Store)
	s.reconciler.OnApply = func(bookings []*model.Booking) { s.bookings = bookings }
	return s
}

// Open loads the scheduling mode and the day's bookings. The session is
// unusable until Open succeeds.
func (s *Session) Open(ctx context.Context) error {
	return s.Refresh(ctx)
}

// Refresh re-reads the scheduling mode and the authoritative booking list.
// The mode is never cached across evaluations: a change picked up here
// re-derives the open draft for the new granularity.
func (s *Session) Refresh(ctx context.Context) error {
	mode, err := s.modes.SchedulingMode(ctx)
	if err != nil {
		return err
	}
	bookings, err := s.store.FetchForRoom(ctx, s.roomID, DayRange(s.day))
	if err != nil {
		return err
	}
	s.bookings = bookings
	s.applyMode(mode)
	return nil
}

// applyMode installs a freshly read mode. A draft composed under the old
// mode is reshaped: entering slot mode expands the candidate to the hour
// buckets covering it, leaving slot mode keeps the bounds and drops the
// slot selection.
func (s *Session) applyMode(mode model.SchedulingMode) {
	prev := s.mode
	s.mode = mode
	if mode == prev || s.state != StateComposing {
		return
	}

	switch {
	case mode.SlotMode && !prev.SlotMode:
		s.dragging = false
		startHour := int(s.draft.Candidate.Start.Sub(DayStart(s.day)) / time.Hour)
		endMinutes := int(s.draft.Candidate.End.Sub(DayStart(s.day)) / time.Minute)
		endHour := (endMinutes + 59) / 60
		s.draft.SelectedSlots = SlotsForBounds(startHour, endHour)
		candidate, ok := RangeForSlots(s.day, s.draft.SelectedSlots)
		if !ok {
			s.Cancel()
			return
		}
		s.draft.Candidate = candidate
	case !mode.SlotMode && prev.SlotMode:
		s.draft.SelectedSlots = nil
	}
}

func (s *Session) State() State                { return s.state }
func (s *Session) Mode() model.SchedulingMode  { return s.mode }
func (s *Session) Draft() Draft                { return s.draft }
func (s *Session) Conflict() *model.Booking    { return s.conflict }
func (s *Session) LastError() error            { return s.lastErr }
func (s *Session) Bookings() []*model.Booking  { return s.bookings }
func (s *Session) Day() time.Time              { return s.day }
func (s *Session) OccupiedSlots() [24]bool     { return OccupiedSlots(s.day, s.bookings) }

// Views renders the loaded bookings for the session's viewer.
func (s *Session) Views() []BookingView {
	return Views(s.bookings, s.viewer)
}

// HasDraftConflict reports whether the current candidate overlaps an
// existing booking. The check excludes the booking being edited.
func (s *Session) HasDraftConflict() bool {
	if s.state == StateIdle {
		return false
	}
	return HasConflict(s.bookings, s.draft.Candidate, s.draft.EditingID)
}

// beginDraft opens a fresh draft, silently discarding any prior one.
// A draft mid-submit cannot be replaced.
func (s *Session) beginDraft() bool {
	if s.state == StateSubmitting {
		return false
	}
	s.draft = Draft{Title: s.defaultTitle}
	s.conflict = nil
	s.lastErr = nil
	s.state = StateComposing
	return true
}

// GestureStart begins a free-form drag at the given timeline offset.
// Ignored when the hourly slot mode is active.
func (s *Session) GestureStart(y float64) {
	if s.mode.SlotMode {
		return
	}
	if !s.beginDraft() {
		return
	}
	s.dragging = true
	s.dragStartY = ClampOffset(y)
	s.dragCurrentY = s.dragStartY
	s.draft.Candidate = s.quantizer.RangeForDrag(s.day, s.dragStartY, s.dragCurrentY)
}

// GestureMove extends the active drag. Dragging upward past the anchor
// swaps the candidate's ends.
func (s *Session) GestureMove(y float64) {
	if !s.dragging {
		return
	}
	s.dragCurrentY = ClampOffset(y)
	s.draft.Candidate = s.quantizer.RangeForDrag(s.day, s.dragStartY, s.dragCurrentY)
}

// GestureEnd finishes the drag, leaving the draft composed and ready for
// title edits or submission.
func (s *Session) GestureEnd() {
	if !s.dragging {
		return
	}
	s.dragging = false
	s.draft.Candidate = s.quantizer.RangeForDrag(s.day, s.dragStartY, s.dragCurrentY)
}

// SlotClick reacts to a click on the hourly bucket at the given hour.
// Clicking an occupied bucket is a no-op. In single-slot mode the click
// replaces the selection; in multi-slot mode it toggles membership, and an
// empty result closes the draft.
func (s *Session) SlotClick(hour int) {
	if !s.mode.SlotMode || hour < 0 || hour >= SlotsPerDay {
		return
	}
	if s.state == StateSubmitting {
		return
	}
	occupied := OccupiedSlots(s.day, s.bookings)
	if occupied[hour] {
		return
	}

	if s.state == StateIdle || !s.mode.MultiSlot {
		if s.state == StateIdle {
			if !s.beginDraft() {
				return
			}
		} else if !s.mode.MultiSlot {
			s.draft.SelectedSlots = nil
		}
	}

	if s.mode.MultiSlot {
		s.draft.SelectedSlots = toggleSlot(s.draft.SelectedSlots, hour)
	} else {
		s.draft.SelectedSlots = []int{hour}
	}

	candidate, ok := RangeForSlots(s.day, s.draft.SelectedSlots)
	if !ok {
		s.Cancel()
		return
	}
	s.draft.Candidate = candidate
	s.conflict = nil
	s.lastErr = nil
}

// FieldEdit applies an explicit "HH:MM" value to one end of the candidate.
// In free-form mode the value snaps to granularity; in slot mode it floors
// to the hour and the slot selection is recomputed from the new bounds.
func (s *Session) FieldEdit(field Field, value string) error {
	if s.state != StateComposing {
		return errors.InvalidInput("no draft to edit")
	}

	minute, err := ParseClock(value)
	if err != nil {
		return errors.InvalidInput(err.Error())
	}

	if s.mode.SlotMode {
		minute = (minute / 60) * 60
	} else {
		minute = s.quantizer.SnapClock(minute)
	}

	start := s.draft.Candidate.Start
	end := s.draft.Candidate.End

	switch field {
	case FieldStart:
		start = ClockTime(s.day, minute)
	case FieldEnd:
		end = ClockTime(s.day, minute)
	default:
		return errors.InvalidInput("unknown field")
	}

	if !end.After(start) {
		return errors.Validation("end time must be after start time", nil)
	}

	s.draft.Candidate = model.TimeRange{Start: start, End: end}

	if s.mode.SlotMode {
		startHour := start.Sub(DayStart(s.day)) / time.Hour
		endHour := end.Sub(DayStart(s.day)) / time.Hour
		s.draft.SelectedSlots = SlotsForBounds(int(startHour), int(endHour))
	}

	s.conflict = nil
	s.lastErr = nil
	return nil
}

// Field names an editable end of the candidate range.
type Field int

const (
	FieldStart Field = iota
	FieldEnd
)

// SetTitle replaces the draft title. An empty title falls back to the
// default at submit time, not here.
func (s *Session) SetTitle(title string) {
	if s.state != StateComposing {
		return
	}
	s.draft.Title = title
}

// OpenForEdit loads an existing booking into the draft. Only bookings the
// viewer may edit are accepted.
func (s *Session) OpenForEdit(id string) error {
	if s.state == StateSubmitting {
		return errors.Conflict("a submission is in progress")
	}

	var target *model.Booking
	for _, b := range s.bookings {
		if b.ID == id {
			target = b
			break
		}
	}
	if target == nil {
		return errors.NotFoundWithID("booking", id)
	}
	if !s.viewer.CanEdit(target.UserID) {
		return errors.Forbidden("only the owner can edit this booking")
	}

	s.draft = Draft{
		Candidate: model.TimeRange{Start: target.StartTime, End: target.EndTime},
		Title:     target.Title,
		EditingID: target.ID,
	}
	if s.mode.SlotMode {
		startHour := target.StartTime.Sub(DayStart(s.day)) / time.Hour
		endHour := target.EndTime.Sub(DayStart(s.day)) / time.Hour
		s.draft.SelectedSlots = SlotsForBounds(int(startHour), int(endHour))
	}
	s.conflict = nil
	s.lastErr = nil
	s.state = StateComposing
	return nil
}

// Cancel discards the draft without side effects.
func (s *Session) Cancel() {
	if s.state == StateSubmitting {
		return
	}
	s.draft = Draft{}
	s.conflict = nil
	s.lastErr = nil
	s.dragging = false
	s.state = StateIdle
}

// Submit commits the draft. A locally detected conflict blocks the attempt
// and records the blocking booking. On store failure the session returns to
// composing with the candidate preserved so the user can retry or adjust.
func (s *Session) Submit(ctx context.Context) error {
	if s.state != StateComposing {
		return errors.InvalidInput("no draft to submit")
	}
	if !s.draft.Candidate.IsValid() {
		return errors.Validation("candidate range is empty", nil)
	}

	if blocking := FindConflict(s.bookings, s.draft.Candidate, s.draft.EditingID); blocking != nil {
		s.conflict = blocking
		err := errors.Conflict("the selected time overlaps an existing booking")
		s.lastErr = err
		return err
	}

	title := s.draft.Title
	if title == "" {
		title = s.defaultTitle
	}

	booking := &model.Booking{
		RoomID:    s.roomID,
		UserID:    s.viewer.ID,
		StartTime: s.draft.Candidate.Start,
		EndTime:   s.draft.Candidate.End,
		Title:     title,
	}

	editingID := s.draft.EditingID
	s.state = StateSubmitting

	// The reconciler splices a provisional booking into the list before the
	// store call resolves and rolls back to the snapshot on failure; every
	// intermediate list lands in s.bookings through OnApply.
	_, err := s.reconciler.Commit(ctx, s.roomID, DayRange(s.day), s.bookings, editingID, booking)
	if err != nil {
		s.state = StateComposing
		s.lastErr = err
		if errors.IsCode(err, errors.CodeConflict) {
			// The commit already refreshed the list, so the booking the
			// server saw first is visible now.
			s.conflict = FindConflict(s.bookings, s.draft.Candidate, editingID)
		}
		return err
	}

	s.draft = Draft{}
	s.conflict = nil
	s.lastErr = nil
	s.state = StateIdle
	return nil
}

// Delete removes a booking the viewer owns. The entry disappears from the
// list immediately and reappears if the store rejects the delete.
func (s *Session) Delete(ctx context.Context, id string) error {
	var target *model.Booking
	for _, b := range s.bookings {
		if b.ID == id {
			target = b
			break
		}
	}
	if target == nil {
		return errors.NotFoundWithID("booking", id)
	}
	if !s.viewer.CanEdit(target.UserID) {
		return errors.Forbidden("only the owner can delete this booking")
	}

	if _, err := s.reconciler.Remove(ctx, s.roomID, DayRange(s.day), s.bookings, id); err != nil {
		return err
	}
	if s.draft.EditingID == id {
		s.Cancel()
	}
	return nil
}
