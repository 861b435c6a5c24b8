package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rentloop/reservation-service/internal/domain"
	"github.com/rentloop/reservation-service/internal/lock"
	"github.com/rentloop/reservation-service/internal/platform/errors"
	"github.com/rentloop/reservation-service/internal/platform/logging"
	"github.com/rentloop/reservation-service/internal/platform/metrics"
	"github.com/rentloop/reservation-service/internal/repository/interfaces"
)

// EventPublisher notifies the payment processor about committed reservations
type EventPublisher interface {
	PublishReservationCreated(ctx context.Context, event ReservationCreatedEvent) error
}

// ReservationCreatedEvent is the payment notification payload
type ReservationCreatedEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	UserID        uuid.UUID `json:"user_id"`
	Subtotal      float64   `json:"subtotal"`
	Tax           float64   `json:"tax"`
	Deposit       float64   `json:"deposit"`
	Total         float64   `json:"total"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"created_at"`
}

// PaymentEvent is an inbound event from the payment processor
type PaymentEvent struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	EventType     string    `json:"event_type"`
	TransactionID string    `json:"transaction_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Payment event types that drive reservation status transitions
const (
	PaymentSucceededEventType = "payment.succeeded"
	PaymentFailedEventType    = "payment.failed"
	PaymentRefundedEventType  = "payment.refunded"
)

// ReservationService coordinates the reservation workflow: per-line overlap
// verification and lock acquisition, stock verification, pricing, and the
// transactional ledger commit. It is safe for concurrent use; the only
// cross-invocation coordination happens through the lock store and the
// ledger's transactions.
type ReservationService struct {
	repo      interfaces.ReservationRepository
	locks     lock.Store
	publisher EventPublisher
	lockTTL   time.Duration
	logger    logging.Logger
	metrics   metrics.Metrics
	tracer    trace.Tracer
}

// NewReservationService creates a new reservation service
func NewReservationService(
	repo interfaces.ReservationRepository,
	locks lock.Store,
	publisher EventPublisher,
	lockTTL time.Duration,
	logger logging.Logger,
	m metrics.Metrics,
) *ReservationService {
	return &ReservationService{
		repo:      repo,
		locks:     locks,
		publisher: publisher,
		lockTTL:   lockTTL,
		logger:    logger,
		metrics:   m,
		tracer:    otel.Tracer("reservation-service"),
	}
}

// CreateReservation executes the reservation workflow as one logical unit.
// Any failure aborts the whole request: no line commits unless every line
// passes, and every lock acquired during the invocation is released on
// every exit path. A crash between acquire and release leaves the TTL as
// the only safety net, which is why the TTL must exceed the worst-case
// request duration.
func (s *ReservationService) CreateReservation(ctx context.Context, req domain.CreateReservationRequest) (*domain.Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "ReservationService.CreateReservation")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", req.UserID.String()),
		attribute.Int("lines_count", len(req.Lines)),
	)

	// Validation happens before any lock store or ledger call
	if err := s.validateCreateRequest(req); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info(ctx, "Starting reservation", map[string]interface{}{
		"user_id":     req.UserID,
		"lines_count": len(req.Lines),
	})

	// Every lock acquired below is released when this invocation exits,
	// commit or abort. The ledger write is the durable record; the lock's
	// job ends the moment the transaction commits.
	acquired := make([]string, 0, len(req.Lines))
	defer func() {
		s.releaseLocks(ctx, acquired)
	}()

	// Per line, in caller order: overlap check, then lock acquisition.
	// Acquisition never blocks, so no circular wait between requests that
	// reference the same items in different orders is possible.
	for _, line := range req.Lines {
		conflicting, err := s.repo.FindOverlapping(ctx, line.ItemID, line.RentalFrom, line.RentalTo)
		if err != nil {
			span.RecordError(err)
			return nil, errors.Wrap(err, "failed to check for overlapping reservations")
		}
		if conflicting != nil {
			s.metrics.IncrementCounter("reservation_conflicts_total", map[string]string{"reason": "overlap"})
			return nil, errors.NewConflict(fmt.Sprintf(
				"item %s is not available for the selected dates", line.ItemID))
		}

		key := lock.Key(line.ItemID, line.RentalFrom, line.RentalTo)
		ok, err := s.locks.TryAcquire(ctx, key, s.lockTTL)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if !ok {
			s.metrics.IncrementCounter("reservation_conflicts_total", map[string]string{"reason": "locked"})
			return nil, errors.NewConflict(fmt.Sprintf("unable to reserve item %s", line.ItemID))
		}
		acquired = append(acquired, key)
	}

	// All locks held: re-fetch items, verify existence and stock, snapshot
	// prices into the lines.
	reservation, err := s.buildReservation(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.repo.Create(ctx, reservation); err != nil {
		span.RecordError(err)
		s.logger.Error(ctx, "Failed to commit reservation", err, map[string]interface{}{
			"reservation_id": reservation.ID,
		})
		return nil, errors.Wrap(err, "failed to commit reservation")
	}

	// Best effort: the reservation is committed, a missed notification
	// must not undo it.
	s.notifyPaymentProcessor(ctx, reservation)

	s.metrics.IncrementCounter("reservations_created_total", map[string]string{
		"status": string(reservation.Status),
	})
	s.metrics.RecordValue("reservations_total_amount", reservation.Total, nil)

	s.logger.Info(ctx, "Reservation committed", map[string]interface{}{
		"reservation_id": reservation.ID,
		"user_id":        reservation.UserID,
		"lines_count":    len(reservation.Lines),
		"total":          reservation.Total,
	})

	return reservation, nil
}

// GetReservation retrieves a reservation scoped to its owner. A foreign
// reservation is reported as not found rather than forbidden, so the API
// does not leak which IDs exist.
func (s *ReservationService) GetReservation(ctx context.Context, id, requesterID uuid.UUID) (*domain.Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "ReservationService.GetReservation")
	defer span.End()

	span.SetAttributes(attribute.String("reservation_id", id.String()))

	reservation, err := s.repo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if reservation.UserID != requesterID {
		return nil, errors.NewNotFound("reservation not found")
	}

	return reservation, nil
}

// ListReservations retrieves a page of the requester's reservations
func (s *ReservationService) ListReservations(ctx context.Context, requesterID uuid.UUID, page, pageSize int) (*domain.Page, error) {
	ctx, span := s.tracer.Start(ctx, "ReservationService.ListReservations")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	reservations, err := s.repo.GetByUserID(ctx, requesterID, pageSize, offset)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	total, err := s.repo.Count(ctx, domain.ReservationFilter{UserID: &requesterID})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &domain.Page{
		Items:      reservations,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// ListAllReservations retrieves reservations across users (admin surface)
func (s *ReservationService) ListAllReservations(ctx context.Context, filter domain.ReservationFilter) ([]*domain.Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "ReservationService.ListAllReservations")
	defer span.End()

	reservations, err := s.repo.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	return reservations, nil
}

// UpdateReservationStatus applies a status transition after validating it
// against the transition table.
func (s *ReservationService) UpdateReservationStatus(ctx context.Context, id uuid.UUID, status domain.ReservationStatus) error {
	ctx, span := s.tracer.Start(ctx, "ReservationService.UpdateReservationStatus")
	defer span.End()

	span.SetAttributes(
		attribute.String("reservation_id", id.String()),
		attribute.String("status", string(status)),
	)

	if _, known := domain.ParseStatus(string(status)); !known {
		return errors.NewValidation(fmt.Sprintf("unknown reservation status %q", status))
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !current.Status.CanTransitionTo(status) {
		return errors.NewValidation(fmt.Sprintf(
			"cannot update reservation status from %s to %s", current.Status, status))
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	s.metrics.IncrementCounter("reservation_status_updates_total", map[string]string{
		"status": string(status),
	})

	s.logger.Info(ctx, "Reservation status updated", map[string]interface{}{
		"reservation_id": id,
		"status":         status,
	})

	return nil
}

// HandlePaymentEvent applies an inbound payment processor event to the
// reservation's status.
func (s *ReservationService) HandlePaymentEvent(ctx context.Context, event PaymentEvent) error {
	ctx, span := s.tracer.Start(ctx, "ReservationService.HandlePaymentEvent")
	defer span.End()

	span.SetAttributes(
		attribute.String("reservation_id", event.ReservationID.String()),
		attribute.String("event_type", event.EventType),
	)

	var status domain.ReservationStatus
	switch event.EventType {
	case PaymentSucceededEventType:
		status = domain.StatusConfirmed
	case PaymentFailedEventType:
		status = domain.StatusCancelled
	case PaymentRefundedEventType:
		status = domain.StatusRefunded
	default:
		s.logger.Warn(ctx, "Ignoring unknown payment event type", map[string]interface{}{
			"event_type":     event.EventType,
			"reservation_id": event.ReservationID,
		})
		return nil
	}

	return s.UpdateReservationStatus(ctx, event.ReservationID, status)
}

// GetReservationMetrics returns aggregate metrics for dashboards
func (s *ReservationService) GetReservationMetrics(ctx context.Context) (*interfaces.ReservationMetrics, error) {
	ctx, span := s.tracer.Start(ctx, "ReservationService.GetReservationMetrics")
	defer span.End()

	return s.repo.GetMetrics(ctx)
}

// Private helpers

func (s *ReservationService) validateCreateRequest(req domain.CreateReservationRequest) error {
	if req.UserID == uuid.Nil {
		return errors.NewValidation("user_id is required")
	}

	if len(req.Lines) == 0 {
		return errors.NewValidation("reservation must contain at least one line")
	}

	for i, line := range req.Lines {
		if line.ItemID == uuid.Nil {
			return errors.NewValidation(fmt.Sprintf("item_id is required for line %d", i))
		}
		if line.Quantity <= 0 {
			return errors.NewValidation(fmt.Sprintf("quantity must be positive for line %d", i))
		}
		if !line.RentalTo.After(line.RentalFrom) {
			return errors.NewValidation(fmt.Sprintf("rental end date must be after start date for line %d", i))
		}
	}

	return nil
}

// buildReservation verifies item existence and stock for every line and
// assembles the aggregate with prices snapshotted from the catalog.
func (s *ReservationService) buildReservation(ctx context.Context, req domain.CreateReservationRequest) (*domain.Reservation, error) {
	now := time.Now()
	reservation := &domain.Reservation{
		ID:              uuid.New(),
		UserID:          req.UserID,
		Status:          domain.StatusPending,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
		Lines:           make([]domain.ReservationLine, 0, len(req.Lines)),
	}

	for _, reqLine := range req.Lines {
		item, err := s.repo.GetItem(ctx, reqLine.ItemID)
		if err != nil {
			return nil, err
		}

		if item.Stock < reqLine.Quantity {
			s.metrics.IncrementCounter("reservation_conflicts_total", map[string]string{"reason": "stock"})
			return nil, errors.NewConflict(fmt.Sprintf(
				"insufficient stock for %s: available %d, requested %d",
				item.Title, item.Stock, reqLine.Quantity))
		}

		reservation.Lines = append(reservation.Lines, domain.ReservationLine{
			ID:            uuid.New(),
			ReservationID: reservation.ID,
			ItemID:        reqLine.ItemID,
			Quantity:      reqLine.Quantity,
			DailyPrice:    item.DailyPrice,
			DepositPrice:  item.DepositPrice,
			RentalFrom:    reqLine.RentalFrom,
			RentalTo:      reqLine.RentalTo,
			Status:        domain.StatusPending,
			CreatedAt:     now,
		})
	}

	reservation.ApplyTotals(domain.PriceLines(reservation.Lines))
	return reservation, nil
}

func (s *ReservationService) releaseLocks(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.locks.Release(ctx, key); err != nil {
			// The TTL reclaims the key if the delete itself failed
			s.logger.Error(ctx, "Failed to release lock", err, map[string]interface{}{
				"lock_key": key,
			})
		}
	}
}

func (s *ReservationService) notifyPaymentProcessor(ctx context.Context, reservation *domain.Reservation) {
	if s.publisher == nil {
		return
	}

	event := ReservationCreatedEvent{
		ReservationID: reservation.ID,
		UserID:        reservation.UserID,
		Subtotal:      reservation.Subtotal,
		Tax:           reservation.Tax,
		Deposit:       reservation.Deposit,
		Total:         reservation.Total,
		Currency:      "USD",
		CreatedAt:     reservation.CreatedAt,
	}

	if err := s.publisher.PublishReservationCreated(ctx, event); err != nil {
		s.logger.Error(ctx, "Failed to publish reservation created event", err, map[string]interface{}{
			"reservation_id": reservation.ID,
		})
	}
}
