package model

import "time"

// BookingLock is an advisory lock taken while a room/slot combination is being
// written, so two concurrent creates cannot both pass the overlap check.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
