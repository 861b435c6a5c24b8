package kafka

import (
	"time"

	"github.com/rentloop/reservation-service/internal/service"
)

// Topic names
const (
	ReservationEventsTopic = "reservation-events"
	PaymentEventsTopic     = "payment-events"
)

// EventMetadata carries traceability fields attached to every published event
type EventMetadata struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	EventTime time.Time `json:"event_time"`
	Version   string    `json:"version"`
	Source    string    `json:"source"`
}

// ReservationCreatedMessage is the wire envelope for reservation.created
type ReservationCreatedMessage struct {
	service.ReservationCreatedEvent
	EventMetadata EventMetadata `json:"metadata"`
}

// PaymentEventMessage is the wire envelope for inbound payment events
type PaymentEventMessage struct {
	service.PaymentEvent
	EventMetadata EventMetadata `json:"metadata"`
}
