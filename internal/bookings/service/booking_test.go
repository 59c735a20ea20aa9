package service

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/nonsir1/Roomly/internal/bookings/validator"
	"github.com/nonsir1/Roomly/pkg/config"
	mongotx "github.com/nonsir1/Roomly/pkg/db/mongo"
	apperrors "github.com/nonsir1/Roomly/pkg/errors"
	"github.com/nonsir1/Roomly/pkg/logger"
	"github.com/nonsir1/Roomly/pkg/model"
)

type mockBookingRepository struct {
	createFunc          func(ctx context.Context, booking *model.Booking) error
	findByIDFunc        func(ctx context.Context, id string) (*model.Booking, error)
	findAllFunc         func(ctx context.Context, limit int, offset int64) ([]*model.Booking, error)
	updateFunc          func(ctx context.Context, id string, booking *model.Booking) (*mongo.UpdateResult, error)
	deleteFunc          func(ctx context.Context, id string) error
	findByRoomFunc      func(ctx context.Context, roomID string, startTime, endTime *time.Time, limit int, offset int64) ([]*model.Booking, error)
	countByRoomFunc     func(ctx context.Context, roomID string, startTime, endTime *time.Time) (int64, error)
	findByUserFunc      func(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error)
	countByUserFunc     func(ctx context.Context, userID string) (int64, error)
	countFunc           func(ctx context.Context) (int64, error)
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, booking)
	}
	booking.ID = "65f000000000000000000001"
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, limit, offset)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) Update(ctx context.Context, id string, booking *model.Booking) (*mongo.UpdateResult, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, booking)
	}
	return &mongo.UpdateResult{MatchedCount: 1}, nil
}

func (m *mockBookingRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockBookingRepository) FindByRoomAndWindow(ctx context.Context, roomID string, startTime, endTime *time.Time, limit int, offset int64) ([]*model.Booking, error) {
	if m.findByRoomFunc != nil {
		return m.findByRoomFunc(ctx, roomID, startTime, endTime, limit, offset)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) CountByRoomAndWindow(ctx context.Context, roomID string, startTime, endTime *time.Time) (int64, error) {
	if m.countByRoomFunc != nil {
		return m.countByRoomFunc(ctx, roomID, startTime, endTime)
	}
	return 0, nil
}

func (m *mockBookingRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	if m.findByUserFunc != nil {
		return m.findByUserFunc(ctx, userID, limit, offset)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	if m.countByUserFunc != nil {
		return m.countByUserFunc(ctx, userID)
	}
	return 0, nil
}

func (m *mockBookingRepository) Count(ctx context.Context) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return 0, nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockLockRepository struct {
	createFunc func(ctx context.Context, lock *model.BookingLock) (*model.BookingLock, error)
	deleteFunc func(ctx context.Context, lockID string) error
}

func (m *mockLockRepository) Create(ctx context.Context, lock *model.BookingLock) (*model.BookingLock, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, lock)
	}
	return lock, nil
}

func (m *mockLockRepository) Delete(ctx context.Context, lockID string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, lockID)
	}
	return nil
}

func testConfig() *config.Config {
	log := logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})

	return &config.Config{
		Log:                 log,
		ReadTimeout:         5 * time.Second,
		WriteTimeout:        5 * time.Second,
		DefaultBookingTitle: "Meeting",
		LockTTL:             10 * time.Second,
	}
}

func newTestService(repo *mockBookingRepository, lockRepo *mockLockRepository) BookingService {
	cfg := testConfig()
	return NewBookingService(repo, lockRepo, validator.NewBookingValidator(cfg.Log), nil, cfg)
}

func testTimes() (time.Time, time.Time) {
	start := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	return start, start.Add(time.Hour)
}

func TestCreate_Success(t *testing.T) {
	start, end := testTimes()
	var stored *model.Booking
	repo := &mockBookingRepository{
		createFunc: func(ctx context.Context, booking *model.Booking) error {
			stored = booking
			booking.ID = "65f000000000000000000001"
			return nil
		},
	}
	svc := newTestService(repo, &mockLockRepository{})

	viewer := model.Viewer{ID: "user-1", Role: "USER"}
	booking := &model.Booking{
		RoomID:    "room-1",
		UserID:    "someone-else",
		StartTime: start,
		EndTime:   end,
	}

	if err := svc.Create(context.Background(), viewer, booking); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored == nil {
		t.Fatal("expected booking to reach the repository")
	}
	if stored.UserID != "user-1" {
		t.Errorf("owner must come from the trusted identity, got %q", stored.UserID)
	}
	if stored.Title != "Meeting" {
		t.Errorf("empty title must fall back to the default, got %q", stored.Title)
	}
}

func TestCreate_TruncatesSubMinutePrecision(t *testing.T) {
	start, end := testTimes()
	var stored *model.Booking
	repo := &mockBookingRepository{
		createFunc: func(ctx context.Context, booking *model.Booking) error {
			stored = booking
			return nil
		},
	}
	svc := newTestService(repo, &mockLockRepository{})

	booking := &model.Booking{
		RoomID:    "room-1",
		StartTime: start.Add(23 * time.Second),
		EndTime:   end.Add(999 * time.Millisecond),
	}

	if err := svc.Create(context.Background(), model.Viewer{ID: "user-1"}, booking); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stored.StartTime.Equal(start) || !stored.EndTime.Equal(end) {
		t.Errorf("times must be truncated to the minute, got [%v, %v)", stored.StartTime, stored.EndTime)
	}
}

func TestCreate_RejectsOverlap(t *testing.T) {
	start, end := testTimes()
	repo := &mockBookingRepository{
		findByRoomFunc: func(ctx context.Context, roomID string, startTime, endTime *time.Time, limit int, offset int64) ([]*model.Booking, error) {
			return []*model.Booking{{
				ID:        "65f000000000000000000009",
				RoomID:    roomID,
				UserID:    "user-2",
				StartTime: start.Add(-30 * time.Minute),
				EndTime:   start.Add(30 * time.Minute),
			}}, nil
		},
	}
	svc := newTestService(repo, &mockLockRepository{})

	booking := &model.Booking{RoomID: "room-1", StartTime: start, EndTime: end}
	err := svc.Create(context.Background(), model.Viewer{ID: "user-1"}, booking)
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreate_AllowsAdjacentBooking(t *testing.T) {
	start, end := testTimes()
	repo := &mockBookingRepository{
		findByRoomFunc: func(ctx context.Context, roomID string, startTime, endTime *time.Time, limit int, offset int64) ([]*model.Booking, error) {
			return []*model.Booking{{
				ID:        "65f000000000000000000009",
				RoomID:    roomID,
				UserID:    "user-2",
				StartTime: start.Add(-time.Hour),
				EndTime:   start,
			}}, nil
		},
	}
	svc := newTestService(repo, &mockLockRepository{})

	booking := &model.Booking{RoomID: "room-1", StartTime: start, EndTime: end}
	if err := svc.Create(context.Background(), model.Viewer{ID: "user-1"}, booking); err != nil {
		t.Fatalf("back-to-back bookings must be accepted, got %v", err)
	}
}

func TestCreate_LockContention(t *testing.T) {
	start, end := testTimes()
	lockRepo := &mockLockRepository{
		createFunc: func(ctx context.Context, lock *model.BookingLock) (*model.BookingLock, error) {
			return nil, mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
		},
	}
	svc := newTestService(&mockBookingRepository{}, lockRepo)

	booking := &model.Booking{RoomID: "room-1", StartTime: start, EndTime: end}
	err := svc.Create(context.Background(), model.Viewer{ID: "user-1"}, booking)
	if !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict on lock contention, got %v", err)
	}
}

func TestCreate_RequiresIdentity(t *testing.T) {
	start, end := testTimes()
	svc := newTestService(&mockBookingRepository{}, &mockLockRepository{})

	booking := &model.Booking{RoomID: "room-1", StartTime: start, EndTime: end}
	err := svc.Create(context.Background(), model.Viewer{}, booking)
	if !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden without identity, got %v", err)
	}
}

func TestUpdate_OwnershipEnforced(t *testing.T) {
	start, end := testTimes()
	existing := &model.Booking{
		ID:        "65f000000000000000000001",
		RoomID:    "room-1",
		UserID:    "user-1",
		StartTime: start,
		EndTime:   end,
		Title:     "Meeting",
	}
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			copy := *existing
			return &copy, nil
		},
	}
	svc := newTestService(repo, &mockLockRepository{})

	newEnd := end.Add(30 * time.Minute)
	updates := &model.BookingUpdate{EndTime: &newEnd}

	err := svc.Update(context.Background(), model.Viewer{ID: "user-2", Role: "USER"}, existing.ID, updates)
	if !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}

	if err := svc.Update(context.Background(), model.Viewer{ID: "user-1", Role: "USER"}, existing.ID, updates); err != nil {
		t.Errorf("owner must be able to update, got %v", err)
	}

	if err := svc.Update(context.Background(), model.Viewer{ID: "admin-9", Role: model.RoleAdmin}, existing.ID, updates); err != nil {
		t.Errorf("admin must be able to update, got %v", err)
	}
}

func TestUpdate_RejectsInvertedRange(t *testing.T) {
	start, end := testTimes()
	existing := &model.Booking{
		ID:        "65f000000000000000000001",
		RoomID:    "room-1",
		UserID:    "user-1",
		StartTime: start,
		EndTime:   end,
	}
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			copy := *existing
			return &copy, nil
		},
	}
	svc := newTestService(repo, &mockLockRepository{})

	badStart := end.Add(time.Hour)
	badEnd := end
	updates := &model.BookingUpdate{StartTime: &badStart, EndTime: &badEnd}

	err := svc.Update(context.Background(), model.Viewer{ID: "user-1"}, existing.ID, updates)
	if !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDelete_OwnershipEnforced(t *testing.T) {
	start, end := testTimes()
	existing := &model.Booking{
		ID:        "65f000000000000000000001",
		RoomID:    "room-1",
		UserID:    "user-1",
		StartTime: start,
		EndTime:   end,
	}
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			copy := *existing
			return &copy, nil
		},
	}
	svc := newTestService(repo, &mockLockRepository{})

	err := svc.Delete(context.Background(), model.Viewer{ID: "user-2", Role: "USER"}, existing.ID)
	if !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden for non-owner, got %v", err)
	}

	if err := svc.Delete(context.Background(), model.Viewer{ID: "user-1", Role: "USER"}, existing.ID); err != nil {
		t.Errorf("owner must be able to delete, got %v", err)
	}
}

func TestSearchByRoom_RedactsOtherUsers(t *testing.T) {
	start, end := testTimes()
	repo := &mockBookingRepository{
		findByRoomFunc: func(ctx context.Context, roomID string, startTime, endTime *time.Time, limit int, offset int64) ([]*model.Booking, error) {
			return []*model.Booking{
				{ID: "a", RoomID: roomID, UserID: "user-1", StartTime: start, EndTime: end, Title: "Mine"},
				{ID: "b", RoomID: roomID, UserID: "user-2", StartTime: end, EndTime: end.Add(time.Hour), Title: "Theirs"},
			}, nil
		},
		countByRoomFunc: func(ctx context.Context, roomID string, startTime, endTime *time.Time) (int64, error) {
			return 2, nil
		},
	}
	svc := newTestService(repo, &mockLockRepository{})

	bookings, total, err := svc.SearchByRoom(context.Background(), model.Viewer{ID: "user-1", Role: "USER"}, "room-1", nil, nil, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(bookings) != 2 {
		t.Fatalf("expected 2 bookings, got %d (total %d)", len(bookings), total)
	}

	if bookings[0].Title != "Mine" || bookings[0].UserID != "user-1" {
		t.Errorf("own booking must keep full details: %+v", bookings[0])
	}
	if bookings[1].Title != "" || bookings[1].UserID != "" {
		t.Errorf("other user's booking must be redacted: %+v", bookings[1])
	}
	if bookings[1].StartTime.IsZero() {
		t.Error("redacted bookings must keep their time extent")
	}
}

func TestSearchByRoom_AdminSeesAll(t *testing.T) {
	start, end := testTimes()
	repo := &mockBookingRepository{
		findByRoomFunc: func(ctx context.Context, roomID string, startTime, endTime *time.Time, limit int, offset int64) ([]*model.Booking, error) {
			return []*model.Booking{
				{ID: "b", RoomID: roomID, UserID: "user-2", StartTime: start, EndTime: end, Title: "Theirs"},
			}, nil
		},
		countByRoomFunc: func(ctx context.Context, roomID string, startTime, endTime *time.Time) (int64, error) {
			return 1, nil
		},
	}
	svc := newTestService(repo, &mockLockRepository{})

	bookings, _, err := svc.SearchByRoom(context.Background(), model.Viewer{ID: "admin-1", Role: model.RoleAdmin}, "room-1", nil, nil, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bookings[0].Title != "Theirs" || bookings[0].UserID != "user-2" {
		t.Errorf("admin must see full details: %+v", bookings[0])
	}
}

func TestGetByUser_Authorization(t *testing.T) {
	svc := newTestService(&mockBookingRepository{}, &mockLockRepository{})

	_, _, err := svc.GetByUser(context.Background(), model.Viewer{ID: "user-2", Role: "USER"}, "user-1", 10, 0)
	if !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	if _, _, err := svc.GetByUser(context.Background(), model.Viewer{ID: "user-1", Role: "USER"}, "user-1", 10, 0); err != nil {
		t.Errorf("user must list their own bookings, got %v", err)
	}

	if _, _, err := svc.GetByUser(context.Background(), model.Viewer{ID: "admin-1", Role: model.RoleAdmin}, "user-1", 10, 0); err != nil {
		t.Errorf("admin must list any user's bookings, got %v", err)
	}
}
