package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	bookingserrors "github.com/nonsir1/Roomly/internal/bookings/errors"
	"github.com/nonsir1/Roomly/internal/bookings/events"
	"github.com/nonsir1/Roomly/internal/bookings/repository"
	"github.com/nonsir1/Roomly/internal/bookings/validator"
	"github.com/nonsir1/Roomly/internal/schedule"
	"github.com/nonsir1/Roomly/pkg/config"
	apperrors "github.com/nonsir1/Roomly/pkg/errors"
	"github.com/nonsir1/Roomly/pkg/model"
	"github.com/nonsir1/Roomly/pkg/sanitizer"
)

type BookingService interface {
	Create(ctx context.Context, viewer model.Viewer, booking *model.Booking) error
	GetByID(ctx context.Context, viewer model.Viewer, id string) (*model.Booking, error)
	GetAll(ctx context.Context, viewer model.Viewer, limit int, offset int64) ([]*model.Booking, int64, error)
	Update(ctx context.Context, viewer model.Viewer, id string, updates *model.BookingUpdate) error
	Delete(ctx context.Context, viewer model.Viewer, id string) error
	SearchByRoom(ctx context.Context, viewer model.Viewer, roomID string, startTime, endTime *time.Time, limit int, offset int64) ([]*model.Booking, int64, error)
	GetByUser(ctx context.Context, viewer model.Viewer, userID string, limit int, offset int64) ([]*model.Booking, int64, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	lockRepo  repository.BookingLockRepository
	validator *validator.BookingValidator
	publisher *events.Publisher
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.BookingLockRepository,
	validator *validator.BookingValidator,
	publisher *events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		lockRepo:  lockRepo,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *bookingService) Create(ctx context.Context, viewer model.Viewer, booking *model.Booking) error {
	if viewer.ID == "" {
		return apperrors.Forbidden("An authenticated user is required to create a booking")
	}

	// Identity comes from the trusted headers, never from the body.
	booking.UserID = viewer.ID
	booking.ID = ""

	s.applyDefaults(booking)
	s.sanitize(booking)
	if err := s.validate(booking); err != nil {
		return err
	}

	// Acquire advisory lock to prevent race conditions
	lockID, err := s.acquireSlotLock(ctx, booking.RoomID, booking.StartTime)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := s.releaseSlotLock(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release booking lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyOverlap(sessCtx, booking); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking", "error", err)
		return err
	}

	s.publisher.Publish(ctx, events.EventBookingCreated, booking)

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"room_id", booking.RoomID,
		"user_id", booking.UserID,
		"start_time", booking.StartTime,
	)
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, viewer model.Viewer, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	redactForViewer([]*model.Booking{booking}, viewer)
	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, viewer model.Viewer, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	redactForViewer(bookings, viewer)
	return bookings, count, nil
}

func (s *bookingService) Update(ctx context.Context, viewer model.Viewer, id string, updates *model.BookingUpdate) error {
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid booking ID format")
		}
		return apperrors.Internal("Failed to check booking existence", err)
	}

	if !viewer.CanEdit(existing.UserID) {
		return apperrors.Forbidden("Only the booking owner can modify it")
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Booking update validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}
	merged := s.mergeBookingUpdates(existing, updates)
	s.sanitize(merged)
	if err := s.validate(merged); err != nil {
		return err
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyOverlap(sessCtx, merged); err != nil {
			return err
		}
		if _, err := s.repo.Update(sessCtx, id, merged); err != nil {
			return apperrors.Internal("Failed to update booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update booking", "id", id, "error", err)
		return err
	}

	s.publisher.Publish(ctx, events.EventBookingUpdated, merged)

	s.cfg.Log.Info("Booking updated successfully", "id", id)
	return nil
}

func (s *bookingService) Delete(ctx context.Context, viewer model.Viewer, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid booking ID format")
		}
		return apperrors.Internal("Failed to check booking existence", err)
	}

	if !viewer.CanEdit(existing.UserID) {
		return apperrors.Forbidden("Only the booking owner can delete it")
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Delete(sessCtx, id); err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Booking", id)
			}
			return apperrors.Internal("Failed to delete booking", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publisher.Publish(ctx, events.EventBookingDeleted, existing)

	s.cfg.Log.Info("Booking deleted successfully", "id", id)
	return nil
}

func (s *bookingService) SearchByRoom(ctx context.Context, viewer model.Viewer, roomID string, startTime, endTime *time.Time, limit int, offset int64) ([]*model.Booking, int64, error) {
	if roomID == "" {
		return nil, 0, apperrors.InvalidInput("RoomID is required")
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.CountByRoomAndWindow(ctx, roomID, startTime, endTime)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings by room",
				"room_id", roomID,
				"error", err,
			)
			errCount = apperrors.Internal("Failed to count bookings", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		bookings, err = s.repo.FindByRoomAndWindow(ctx, roomID, startTime, endTime, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to search bookings",
				"room_id", roomID,
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to search bookings", err)
		}
	}()

	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	redactForViewer(bookings, viewer)

	s.cfg.Log.Debug("Booking search completed",
		"room_id", roomID,
		"count", len(bookings),
		"total_count", count,
	)
	return bookings, count, nil
}

func (s *bookingService) GetByUser(ctx context.Context, viewer model.Viewer, userID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if userID == "" {
		return nil, 0, apperrors.InvalidInput("UserID is required")
	}
	if !viewer.CanSee(userID) {
		return nil, 0, apperrors.Forbidden("Only the user or an administrator can list these bookings")
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.CountByUser(ctx, userID)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings by user", "user_id", userID, "error", err)
			errCount = apperrors.Internal("Failed to count bookings", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		bookings, err = s.repo.FindByUser(ctx, userID, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list bookings by user", "user_id", userID, "error", err)
			errFind = apperrors.Internal("Failed to retrieve bookings", err)
		}
	}()

	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

// --- Helpers ---

// redactForViewer strips title and owner identity from bookings the viewer
// may not inspect. Time extents always stay visible so occupied slots render.
func redactForViewer(bookings []*model.Booking, viewer model.Viewer) {
	for _, b := range bookings {
		if viewer.CanSee(b.UserID) {
			continue
		}
		b.Title = ""
		b.UserID = ""
	}
}

func (s *bookingService) sanitize(b *model.Booking) {
	b.Title = sanitizer.SanitizeTitle(b.Title)
}

func (s *bookingService) applyDefaults(b *model.Booking) {
	if b.Title == "" {
		b.Title = s.cfg.DefaultBookingTitle
	}
	// Sub-minute precision is never meaningful for reservations and breaks
	// adjacency checks, so it is dropped before persisting.
	b.StartTime = b.StartTime.Truncate(time.Minute)
	b.EndTime = b.EndTime.Truncate(time.Minute)
}

func (s *bookingService) mergeBookingUpdates(existing *model.Booking, updates *model.BookingUpdate) *model.Booking {
	merged := *existing

	if updates.StartTime != nil {
		merged.StartTime = updates.StartTime.Truncate(time.Minute)
	}
	if updates.EndTime != nil {
		merged.EndTime = updates.EndTime.Truncate(time.Minute)
	}
	if updates.Title != nil {
		merged.Title = *updates.Title
		if merged.Title == "" {
			merged.Title = s.cfg.DefaultBookingTitle
		}
	}

	return &merged
}

func (s *bookingService) validate(booking *model.Booking) error {
	if err := s.validator.Validate(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

// verifyOverlap re-checks the candidate against the room's bookings inside
// the commit transaction. The client-side check is advisory; this one is
// authoritative.
func (s *bookingService) verifyOverlap(ctx context.Context, booking *model.Booking) error {
	const maxOverlapCheck = 30
	existing, err := s.repo.FindByRoomAndWindow(ctx, booking.RoomID, &booking.StartTime, &booking.EndTime, maxOverlapCheck, 0)
	if err != nil {
		return apperrors.Internal("Failed to check existing bookings", err)
	}

	if blocking := schedule.FindConflict(existing, booking.Range(), booking.ID); blocking != nil {
		return apperrors.Conflict(fmt.Sprintf(
			"Booking time overlaps with existing booking (%s - %s)",
			blocking.StartTime.Format(time.RFC3339),
			blocking.EndTime.Format(time.RFC3339),
		))
	}
	return nil
}

// acquireSlotLock creates an advisory lock to prevent concurrent booking creation
// Returns the lock ID if successful, or conflict error if lock already exists
func (s *bookingService) acquireSlotLock(ctx context.Context, roomID string, startTime time.Time) (string, error) {
	lockID := fmt.Sprintf("booking_lock_%s_%d", roomID, startTime.Unix())

	lock := &model.BookingLock{
		ID:        lockID,
		ExpiresAt: time.Now().Add(s.cfg.LockTTL),
	}

	_, err := s.lockRepo.Create(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("This time slot is currently being booked by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire booking lock", err)
	}

	return lockID, nil
}

// releaseSlotLock removes the advisory lock
func (s *bookingService) releaseSlotLock(ctx context.Context, lockID string) error {
	return s.lockRepo.Delete(ctx, lockID)
}
