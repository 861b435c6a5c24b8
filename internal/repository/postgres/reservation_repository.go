package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rentloop/reservation-service/internal/domain"
	platformError "github.com/rentloop/reservation-service/internal/platform/errors"
	"github.com/rentloop/reservation-service/internal/repository/interfaces"
)

// ReservationRepository implements the reservation ledger on PostgreSQL
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository creates a new PostgreSQL reservation repository
func NewReservationRepository(db *sqlx.DB) interfaces.ReservationRepository {
	return &ReservationRepository{
		db: db,
	}
}

// FindOverlapping looks for a committed line on the item whose half-open
// range intersects [from, to): rental_from < to AND rental_to > from.
// Cancelled and refunded lines no longer hold their dates.
func (r *ReservationRepository) FindOverlapping(ctx context.Context, itemID uuid.UUID, from, to time.Time) (*domain.ReservationLine, error) {
	query := `
		SELECT id, reservation_id, item_id, quantity, daily_price, deposit_price,
		       rental_from, rental_to, status, created_at
		FROM reservation_lines
		WHERE item_id = $1
		  AND rental_from < $3
		  AND rental_to > $2
		  AND status NOT IN ('CANCELLED', 'REFUNDED')
		LIMIT 1`

	line := &domain.ReservationLine{}
	err := r.db.GetContext(ctx, line, query, itemID, from, to)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, platformError.Wrap(err, "failed to query overlapping reservations")
	}

	return line, nil
}

// GetItem retrieves the rentable item's stock and price snapshot
func (r *ReservationRepository) GetItem(ctx context.Context, itemID uuid.UUID) (*domain.RentableItem, error) {
	query := `
		SELECT id, title, stock, daily_price, deposit_price
		FROM rental_items
		WHERE id = $1 AND deleted_at IS NULL`

	item := &domain.RentableItem{}
	err := r.db.GetContext(ctx, item, query, itemID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, platformError.NewNotFound(fmt.Sprintf("rental item %s not found", itemID))
		}
		return nil, platformError.Wrap(err, "failed to get rental item")
	}

	return item, nil
}

// Create inserts the reservation and all its lines in a single transaction
func (r *ReservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return platformError.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	reservationQuery := `
		INSERT INTO reservations (id, user_id, status, subtotal, tax, deposit, total,
		                          delivery_address, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = tx.ExecContext(ctx, reservationQuery,
		reservation.ID, reservation.UserID, reservation.Status,
		reservation.Subtotal, reservation.Tax, reservation.Deposit, reservation.Total,
		reservation.DeliveryAddress, reservation.Notes,
		reservation.CreatedAt, reservation.UpdatedAt)
	if err != nil {
		return platformError.Wrap(err, "failed to insert reservation")
	}

	lineQuery := `
		INSERT INTO reservation_lines (id, reservation_id, item_id, quantity,
		                               daily_price, deposit_price, rental_from, rental_to,
		                               status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	for _, line := range reservation.Lines {
		_, err = tx.ExecContext(ctx, lineQuery,
			line.ID, line.ReservationID, line.ItemID, line.Quantity,
			line.DailyPrice, line.DepositPrice, line.RentalFrom, line.RentalTo,
			line.Status, line.CreatedAt)
		if err != nil {
			return platformError.Wrap(err, "failed to insert reservation line")
		}
	}

	return tx.Commit()
}

// GetByID retrieves a reservation by its ID, including lines
func (r *ReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	query := `
		SELECT id, user_id, status, subtotal, tax, deposit, total,
		       delivery_address, notes, created_at, updated_at
		FROM reservations
		WHERE id = $1 AND deleted_at IS NULL`

	reservation := &domain.Reservation{}
	err := r.db.GetContext(ctx, reservation, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, platformError.NewNotFound("reservation not found")
		}
		return nil, platformError.Wrap(err, "failed to get reservation")
	}

	if err := r.loadLines(ctx, reservation); err != nil {
		return nil, err
	}

	return reservation, nil
}

// GetByUserID retrieves reservations for a user with pagination
func (r *ReservationRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Reservation, error) {
	query := `
		SELECT id, user_id, status, subtotal, tax, deposit, total,
		       delivery_address, notes, created_at, updated_at
		FROM reservations
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	reservations := []*domain.Reservation{}
	err := r.db.SelectContext(ctx, &reservations, query, userID, limit, offset)
	if err != nil {
		return nil, platformError.Wrap(err, "failed to get reservations by user ID")
	}

	for _, reservation := range reservations {
		if err := r.loadLines(ctx, reservation); err != nil {
			return nil, err
		}
	}

	return reservations, nil
}

// Count returns the total number of reservations matching the filter
func (r *ReservationRepository) Count(ctx context.Context, filter domain.ReservationFilter) (int, error) {
	whereClause, args := buildFilter(filter)

	query := fmt.Sprintf(`SELECT COUNT(*) FROM reservations WHERE %s`, whereClause)

	var count int
	err := r.db.GetContext(ctx, &count, query, args...)
	if err != nil {
		return 0, platformError.Wrap(err, "failed to count reservations")
	}

	return count, nil
}

// List retrieves reservations based on filter criteria with pagination
func (r *ReservationRepository) List(ctx context.Context, filter domain.ReservationFilter) ([]*domain.Reservation, error) {
	whereClause, args := buildFilter(filter)
	argIndex := len(args) + 1

	limit := 50
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	offset := 0
	if filter.Offset > 0 {
		offset = filter.Offset
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, status, subtotal, tax, deposit, total,
		       delivery_address, notes, created_at, updated_at
		FROM reservations
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1)

	args = append(args, limit, offset)

	reservations := []*domain.Reservation{}
	err := r.db.SelectContext(ctx, &reservations, query, args...)
	if err != nil {
		return nil, platformError.Wrap(err, "failed to list reservations")
	}

	for _, reservation := range reservations {
		if err := r.loadLines(ctx, reservation); err != nil {
			return nil, err
		}
	}

	return reservations, nil
}

// UpdateStatus updates the reservation status and mirrors it onto the lines
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ReservationStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return platformError.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	now := time.Now()

	result, err := tx.ExecContext(ctx, `
		UPDATE reservations
		SET status = $2, updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL`,
		id, status, now)
	if err != nil {
		return platformError.Wrap(err, "failed to update reservation status")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return platformError.Wrap(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return platformError.NewNotFound("reservation not found")
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE reservation_lines
		SET status = $2
		WHERE reservation_id = $1`,
		id, status)
	if err != nil {
		return platformError.Wrap(err, "failed to update reservation line status")
	}

	return tx.Commit()
}

// GetMetrics returns aggregated metrics for monitoring dashboards
func (r *ReservationRepository) GetMetrics(ctx context.Context) (*interfaces.ReservationMetrics, error) {
	metrics := &interfaces.ReservationMetrics{
		ReservationsByStatus: make(map[string]int),
	}

	totalQuery := `
		SELECT COUNT(*) as total_reservations,
		       COALESCE(SUM(total), 0) as total_revenue,
		       COALESCE(AVG(total), 0) as average_value
		FROM reservations
		WHERE deleted_at IS NULL`

	var totalData struct {
		TotalReservations int     `db:"total_reservations"`
		TotalRevenue      float64 `db:"total_revenue"`
		AverageValue      float64 `db:"average_value"`
	}

	if err := r.db.GetContext(ctx, &totalData, totalQuery); err != nil {
		return nil, platformError.Wrap(err, "failed to get reservation totals")
	}

	metrics.TotalReservations = totalData.TotalReservations
	metrics.TotalRevenue = totalData.TotalRevenue
	metrics.AverageReservationValue = totalData.AverageValue

	statusRows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) as count
		FROM reservations
		WHERE deleted_at IS NULL
		GROUP BY status`)
	if err != nil {
		return nil, platformError.Wrap(err, "failed to get reservations by status")
	}
	defer statusRows.Close()

	for statusRows.Next() {
		var status string
		var count int
		if err := statusRows.Scan(&status, &count); err != nil {
			return nil, platformError.Wrap(err, "failed to scan status row")
		}
		metrics.ReservationsByStatus[status] = count
	}

	todayQuery := `
		SELECT COUNT(*) as reservations_today,
		       COALESCE(SUM(total), 0) as revenue_today
		FROM reservations
		WHERE deleted_at IS NULL
		AND DATE(created_at) = CURRENT_DATE`

	var todayData struct {
		ReservationsToday int     `db:"reservations_today"`
		RevenueToday      float64 `db:"revenue_today"`
	}

	if err := r.db.GetContext(ctx, &todayData, todayQuery); err != nil {
		return nil, platformError.Wrap(err, "failed to get today's metrics")
	}

	metrics.ReservationsToday = todayData.ReservationsToday
	metrics.RevenueToday = todayData.RevenueToday

	return metrics, nil
}

// loadLines attaches all lines to a reservation
func (r *ReservationRepository) loadLines(ctx context.Context, reservation *domain.Reservation) error {
	query := `
		SELECT id, reservation_id, item_id, quantity, daily_price, deposit_price,
		       rental_from, rental_to, status, created_at
		FROM reservation_lines
		WHERE reservation_id = $1
		ORDER BY created_at`

	lines := []domain.ReservationLine{}
	if err := r.db.SelectContext(ctx, &lines, query, reservation.ID); err != nil {
		return platformError.Wrap(err, "failed to get reservation lines")
	}

	reservation.Lines = lines
	return nil
}

func buildFilter(filter domain.ReservationFilter) (string, []interface{}) {
	whereClause := []string{"deleted_at IS NULL"}
	args := []interface{}{}
	argIndex := 1

	if filter.UserID != nil {
		whereClause = append(whereClause, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}

	if filter.Status != nil {
		whereClause = append(whereClause, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	return strings.Join(whereClause, " AND "), args
}
