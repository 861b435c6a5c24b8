package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus represents the current status of a reservation
type ReservationStatus string

const (
	StatusPending    ReservationStatus = "PENDING"
	StatusConfirmed  ReservationStatus = "CONFIRMED"
	StatusProcessing ReservationStatus = "PROCESSING"
	StatusShipped    ReservationStatus = "SHIPPED"
	StatusDelivered  ReservationStatus = "DELIVERED"
	StatusReturned   ReservationStatus = "RETURNED"
	StatusCancelled  ReservationStatus = "CANCELLED"
	StatusRefunded   ReservationStatus = "REFUNDED"
)

// statusTransitions is the closed transition table. Cancellation and refund
// are only reachable while the rental has not yet been handed to fulfilment.
var statusTransitions = map[ReservationStatus][]ReservationStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled, StatusRefunded},
	StatusConfirmed:  {StatusProcessing, StatusCancelled, StatusRefunded},
	StatusProcessing: {StatusShipped},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {StatusReturned},
	StatusReturned:   {},
	StatusCancelled:  {},
	StatusRefunded:   {},
}

// ParseStatus converts a raw string into a ReservationStatus, rejecting
// values outside the closed set.
func ParseStatus(raw string) (ReservationStatus, bool) {
	status := ReservationStatus(raw)
	_, known := statusTransitions[status]
	return status, known
}

// CanTransitionTo reports whether the status may move to next
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible
func (s ReservationStatus) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

// RentableItem is the catalog view the reservation core reads: stock and
// price snapshot sources. The core never mutates it.
type RentableItem struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Stock        int       `json:"stock" db:"stock"`
	DailyPrice   float64   `json:"daily_price" db:"daily_price"`
	DepositPrice float64   `json:"deposit_price" db:"deposit_price"`
}

// ReservationLine is one (item, date range, quantity) unit within a
// reservation. Prices are snapshotted at reservation time; the range is
// half-open: [RentalFrom, RentalTo).
type ReservationLine struct {
	ID            uuid.UUID         `json:"id" db:"id"`
	ReservationID uuid.UUID         `json:"reservation_id" db:"reservation_id"`
	ItemID        uuid.UUID         `json:"item_id" db:"item_id"`
	Quantity      int               `json:"quantity" db:"quantity"`
	DailyPrice    float64           `json:"daily_price" db:"daily_price"`
	DepositPrice  float64           `json:"deposit_price" db:"deposit_price"`
	RentalFrom    time.Time         `json:"rental_from" db:"rental_from"`
	RentalTo      time.Time         `json:"rental_to" db:"rental_to"`
	Status        ReservationStatus `json:"status" db:"status"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
}

// Reservation aggregates one or more lines with computed totals. Once
// committed the line set is immutable; only Status transitions.
type Reservation struct {
	ID              uuid.UUID         `json:"id" db:"id"`
	UserID          uuid.UUID         `json:"user_id" db:"user_id"`
	Status          ReservationStatus `json:"status" db:"status"`
	Lines           []ReservationLine `json:"lines,omitempty"`
	Subtotal        float64           `json:"subtotal" db:"subtotal"`
	Tax             float64           `json:"tax" db:"tax"`
	Deposit         float64           `json:"deposit" db:"deposit"`
	Total           float64           `json:"total" db:"total"`
	DeliveryAddress string            `json:"delivery_address,omitempty" db:"delivery_address"`
	Notes           string            `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// CreateReservationRequest is the input to the reservation coordinator
type CreateReservationRequest struct {
	UserID          uuid.UUID               `json:"user_id"`
	Lines           []CreateReservationLine `json:"lines"`
	DeliveryAddress string                  `json:"delivery_address,omitempty"`
	Notes           string                  `json:"notes,omitempty"`
}

// CreateReservationLine is one requested line
type CreateReservationLine struct {
	ItemID     uuid.UUID `json:"item_id"`
	Quantity   int       `json:"quantity"`
	RentalFrom time.Time `json:"rental_from"`
	RentalTo   time.Time `json:"rental_to"`
}

// ReservationFilter represents filters for querying reservations
type ReservationFilter struct {
	UserID *uuid.UUID         `json:"user_id,omitempty"`
	Status *ReservationStatus `json:"status,omitempty"`
	Limit  int                `json:"limit,omitempty"`
	Offset int                `json:"offset,omitempty"`
}

// Page is a paginated list of reservations
type Page struct {
	Items      []*Reservation `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// Overlaps reports whether the half-open ranges [aFrom, aTo) and
// [bFrom, bTo) share at least one instant: aFrom < bTo AND bFrom < aTo.
func Overlaps(aFrom, aTo, bFrom, bTo time.Time) bool {
	return aFrom.Before(bTo) && bFrom.Before(aTo)
}

// Overlaps reports whether the line's rental range overlaps [from, to)
func (l ReservationLine) Overlaps(from, to time.Time) bool {
	return Overlaps(l.RentalFrom, l.RentalTo, from, to)
}
