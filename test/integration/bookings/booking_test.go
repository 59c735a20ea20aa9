package integrationtests

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nonsir1/Roomly/internal/schedule"
	"github.com/nonsir1/Roomly/pkg/client"
	apperrors "github.com/nonsir1/Roomly/pkg/errors"
	"github.com/nonsir1/Roomly/pkg/model"
)

// The suite runs against live services. Point TEST_BOOKINGS_URL (and
// TEST_SETTINGS_URL for the session tests) at running instances; without
// them every test skips.

func bookingsURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("TEST_BOOKINGS_URL")
	if url == "" {
		t.Skip("TEST_BOOKINGS_URL not set, skipping integration test")
	}
	return url
}

func settingsURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("TEST_SETTINGS_URL")
	if url == "" {
		t.Skip("TEST_SETTINGS_URL not set, skipping integration test")
	}
	return url
}

func testRoom() string {
	return "room-" + uuid.New().String()
}

func tomorrowAt(hour int) time.Time {
	return time.Now().UTC().AddDate(0, 0, 1).Truncate(24 * time.Hour).Add(time.Duration(hour) * time.Hour)
}

func newBooking(roomID string, startHour, endHour int) *model.Booking {
	return &model.Booking{
		RoomID:    roomID,
		StartTime: tomorrowAt(startHour),
		EndTime:   tomorrowAt(endHour),
		Title:     "Planning",
	}
}

func mustCreate(t *testing.T, c *client.BookingClient, booking *model.Booking) *model.Booking {
	t.Helper()
	created, err := c.Create(context.Background(), booking)
	if err != nil {
		t.Fatalf("failed to create booking: %v", err)
	}
	return created
}

func cleanup(t *testing.T, c *client.BookingClient, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if err := c.Delete(context.Background(), id); err != nil {
			t.Logf("warning: failed to clean up booking %s: %v", id, err)
		}
	}
}

func TestBookingLifecycle(t *testing.T) {
	c := client.NewBookingClient(bookingsURL(t)).As("alice", "")
	roomID := testRoom()

	created := mustCreate(t, c, newBooking(roomID, 9, 10))
	defer cleanup(t, c, created.ID)

	if created.ID == "" {
		t.Fatal("expected server-assigned booking ID")
	}
	if created.UserID != "alice" {
		t.Errorf("expected owner from identity header, got %q", created.UserID)
	}

	day := schedule.DayRange(tomorrowAt(0))
	listed, err := c.FetchForRoom(context.Background(), roomID, day)
	if err != nil {
		t.Fatalf("failed to fetch room bookings: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("expected the created booking in the room listing, got %d entries", len(listed))
	}

	created.EndTime = tomorrowAt(11)
	updated, err := c.Update(context.Background(), created.ID, created)
	if err != nil {
		t.Fatalf("failed to update booking: %v", err)
	}
	if !updated.EndTime.Equal(tomorrowAt(11)) {
		t.Errorf("expected extended end time, got %v", updated.EndTime)
	}

	if err := c.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("failed to delete booking: %v", err)
	}
	if err := c.Delete(context.Background(), created.ID); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected not found on double delete, got %v", err)
	}
}

func TestOverlapRejectedAdjacentAllowed(t *testing.T) {
	c := client.NewBookingClient(bookingsURL(t)).As("alice", "")
	roomID := testRoom()

	first := mustCreate(t, c, newBooking(roomID, 9, 11))
	defer cleanup(t, c, first.ID)

	if _, err := c.Create(context.Background(), newBooking(roomID, 10, 12)); !apperrors.IsCode(err, apperrors.CodeConflict) {
		t.Errorf("expected conflict for overlapping booking, got %v", err)
	}

	adjacent, err := c.Create(context.Background(), newBooking(roomID, 11, 12))
	if err != nil {
		t.Fatalf("expected adjacent booking to succeed: %v", err)
	}
	cleanup(t, c, adjacent.ID)
}

func TestStrangerSeesRedactedBooking(t *testing.T) {
	url := bookingsURL(t)
	owner := client.NewBookingClient(url).As("alice", "")
	stranger := client.NewBookingClient(url).As("bob", "")
	roomID := testRoom()

	created := mustCreate(t, owner, newBooking(roomID, 14, 15))
	defer cleanup(t, owner, created.ID)

	day := schedule.DayRange(tomorrowAt(0))
	listed, err := stranger.FetchForRoom(context.Background(), roomID, day)
	if err != nil {
		t.Fatalf("failed to fetch as stranger: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected the occupied range to stay visible, got %d entries", len(listed))
	}
	if listed[0].Title != "" || listed[0].UserID != "" {
		t.Errorf("expected title and owner redacted, got title=%q user=%q", listed[0].Title, listed[0].UserID)
	}
	if !listed[0].StartTime.Equal(created.StartTime) {
		t.Errorf("expected times preserved through redaction")
	}

	admin := client.NewBookingClient(url).As("carol", model.RoleAdmin)
	adminView, err := admin.FetchForRoom(context.Background(), roomID, day)
	if err != nil {
		t.Fatalf("failed to fetch as admin: %v", err)
	}
	if adminView[0].Title != "Planning" {
		t.Errorf("expected admin to see the title, got %q", adminView[0].Title)
	}
}

func TestAnonymousCreateRejected(t *testing.T) {
	c := client.NewBookingClient(bookingsURL(t))

	if _, err := c.Create(context.Background(), newBooking(testRoom(), 9, 10)); !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Errorf("expected forbidden for anonymous create, got %v", err)
	}
}

// TestSessionAgainstLiveServices drives the scheduling core end to end: the
// drag becomes a draft, the draft submits over HTTP, and the authoritative
// list comes back through the same services.
func TestSessionAgainstLiveServices(t *testing.T) {
	store := client.NewBookingClient(bookingsURL(t)).As("alice", "")
	modes := client.NewSettingsClient(settingsURL(t))

	session := schedule.NewSession(schedule.SessionConfig{
		Store:  store,
		Modes:  modes,
		RoomID: testRoom(),
		Viewer: model.Viewer{ID: "alice"},
		Day:    tomorrowAt(0),
	})

	ctx := context.Background()
	if err := session.Open(ctx); err != nil {
		t.Fatalf("failed to open session: %v", err)
	}

	session.GestureStart(600)
	session.GestureMove(720)
	session.GestureEnd()
	if session.State() != schedule.StateComposing {
		t.Fatalf("expected composing state, got %v", session.State())
	}

	session.SetTitle("Design review")
	if err := session.Submit(ctx); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	bookings := session.Bookings()
	if len(bookings) != 1 {
		t.Fatalf("expected one committed booking, got %d", len(bookings))
	}
	if bookings[0].Title != "Design review" {
		t.Errorf("expected submitted title, got %q", bookings[0].Title)
	}

	if err := session.Delete(ctx, bookings[0].ID); err != nil {
		t.Errorf("failed to delete committed booking: %v", err)
	}
}
