package schedule

import (
	"time"

	"github.com/nonsir1/Roomly/pkg/model"
)

// BookingView is a booking as one viewer is allowed to see it. Bookings of
// other users keep their time extent but lose title and owner identity,
// unless the viewer is an administrator.
type BookingView struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Title     string    `json:"title,omitempty"`
	OwnerID   string    `json:"owner_id,omitempty"`
	Own       bool      `json:"own"`
	Editable  bool      `json:"editable"`
}

// View renders a single booking for the viewer.
func View(b *model.Booking, viewer model.Viewer) BookingView {
	view := BookingView{
		ID:        b.ID,
		StartTime: b.StartTime,
		EndTime:   b.EndTime,
		Own:       b.UserID == viewer.ID,
		Editable:  viewer.CanEdit(b.UserID),
	}
	if viewer.CanSee(b.UserID) {
		view.Title = b.Title
		view.OwnerID = b.UserID
	}
	return view
}

// Views renders a booking list for the viewer, preserving order.
func Views(bookings []*model.Booking, viewer model.Viewer) []BookingView {
	views := make([]BookingView, 0, len(bookings))
	for _, b := range bookings {
		views = append(views, View(b, viewer))
	}
	return views
}
