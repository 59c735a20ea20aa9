package events

import (
	"context"
	"time"

	"github.com/nonsir1/Roomly/pkg/kafka"
	kafkaconfig "github.com/nonsir1/Roomly/pkg/kafka/config"
	"github.com/nonsir1/Roomly/pkg/logger"
	"github.com/nonsir1/Roomly/pkg/model"
)

const (
	Topic    = "roomly.bookings"
	DLQTopic = "roomly.bookings.dlq"

	EventBookingCreated = "booking.created"
	EventBookingUpdated = "booking.updated"
	EventBookingDeleted = "booking.deleted"

	schemaVersion = "1"
	source        = "bookings-service"
)

// BookingEvent is the payload published for every booking mutation.
type BookingEvent struct {
	BookingID string    `json:"booking_id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Title     string    `json:"title,omitempty"`
}

// Publisher emits booking lifecycle events. A nil Publisher is valid and
// publishes nothing, which is how the service runs without brokers.
type Publisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

// NewPublisher returns nil when no brokers are configured.
func NewPublisher(log *logger.Logger) (*Publisher, error) {
	cfg := kafkaconfig.Load()
	if !cfg.Enabled() {
		log.Info("Kafka brokers not configured, booking events disabled")
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	producer, err := kafka.NewProducer(cfg, Topic, DLQTopic)
	if err != nil {
		return nil, err
	}

	log.Info("Booking event publisher initialized", "topic", Topic)
	return &Publisher{producer: producer, log: log}, nil
}

// Publish sends one lifecycle event, keyed by room so consumers observe a
// room's mutations in order. Failures are logged, never propagated: event
// delivery must not fail the booking write that already committed.
func (p *Publisher) Publish(ctx context.Context, eventType string, booking *model.Booking) {
	if p == nil {
		return
	}

	msg := kafka.NewMessage().
		WithKey(booking.RoomID).
		WithEventType(eventType).
		WithSource(source).
		WithSchemaVersion(schemaVersion).
		WithValue(BookingEvent{
			BookingID: booking.ID,
			RoomID:    booking.RoomID,
			UserID:    booking.UserID,
			StartTime: booking.StartTime,
			EndTime:   booking.EndTime,
			Title:     booking.Title,
		}).
		Build()

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish booking event",
			"event_type", eventType,
			"booking_id", booking.ID,
			"room_id", booking.RoomID,
			"error", err,
		)
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}
