package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rentloop/reservation-service/internal/domain"
)

// ReservationRepository is the authoritative ledger of committed
// reservations. Overlap queries and the transactional commit both go
// through here; the lock store only serializes access around them.
type ReservationRepository interface {
	// FindOverlapping returns a committed line on the item whose half-open
	// rental range overlaps [from, to), or nil when the range is free.
	FindOverlapping(ctx context.Context, itemID uuid.UUID, from, to time.Time) (*domain.ReservationLine, error)

	// GetItem returns the rentable item's stock and price snapshot.
	// Missing or soft-deleted items yield a not-found error.
	GetItem(ctx context.Context, itemID uuid.UUID) (*domain.RentableItem, error)

	// Create inserts the reservation and all its lines in one transaction
	Create(ctx context.Context, reservation *domain.Reservation) error

	// GetByID retrieves a reservation with its lines
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error)

	// GetByUserID retrieves a user's reservations with pagination
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Reservation, error)

	// Count returns the number of reservations matching the filter
	Count(ctx context.Context, filter domain.ReservationFilter) (int, error)

	// List retrieves reservations based on filter criteria
	List(ctx context.Context, filter domain.ReservationFilter) ([]*domain.Reservation, error)

	// UpdateStatus updates the reservation status and fans the same status
	// out to its lines
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ReservationStatus) error

	// GetMetrics returns aggregated reservation metrics
	GetMetrics(ctx context.Context) (*ReservationMetrics, error)
}

// ReservationMetrics contains aggregated data for monitoring and reporting
type ReservationMetrics struct {
	TotalReservations       int            `json:"total_reservations"`
	TotalRevenue            float64        `json:"total_revenue"`
	ReservationsByStatus    map[string]int `json:"reservations_by_status"`
	AverageReservationValue float64        `json:"average_reservation_value"`
	ReservationsToday       int            `json:"reservations_today"`
	RevenueToday            float64        `json:"revenue_today"`
}
