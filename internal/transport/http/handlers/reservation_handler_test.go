package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentloop/reservation-service/internal/domain"
	"github.com/rentloop/reservation-service/internal/identity"
	"github.com/rentloop/reservation-service/internal/platform/errors"
	"github.com/rentloop/reservation-service/internal/platform/logging"
	"github.com/rentloop/reservation-service/internal/platform/metrics"
	"github.com/rentloop/reservation-service/internal/repository/interfaces"
	"github.com/rentloop/reservation-service/internal/service"
	"github.com/rentloop/reservation-service/internal/transport/http/middleware"
)

// stubRepo is a minimal in-memory ledger for handler tests
type stubRepo struct {
	items        map[uuid.UUID]*domain.RentableItem
	reservations map[uuid.UUID]*domain.Reservation
	overlapping  []domain.ReservationLine
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		items:        make(map[uuid.UUID]*domain.RentableItem),
		reservations: make(map[uuid.UUID]*domain.Reservation),
	}
}

func (s *stubRepo) FindOverlapping(ctx context.Context, itemID uuid.UUID, from, to time.Time) (*domain.ReservationLine, error) {
	for _, line := range s.overlapping {
		if line.ItemID == itemID && line.Overlaps(from, to) {
			result := line
			return &result, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) GetItem(ctx context.Context, itemID uuid.UUID) (*domain.RentableItem, error) {
	item, ok := s.items[itemID]
	if !ok {
		return nil, errors.NewNotFound(fmt.Sprintf("item %s not found", itemID))
	}
	return item, nil
}

func (s *stubRepo) Create(ctx context.Context, reservation *domain.Reservation) error {
	s.reservations[reservation.ID] = reservation
	return nil
}

func (s *stubRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	reservation, ok := s.reservations[id]
	if !ok {
		return nil, errors.NewNotFound("reservation not found")
	}
	return reservation, nil
}

func (s *stubRepo) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Reservation, error) {
	var matched []*domain.Reservation
	for _, reservation := range s.reservations {
		if reservation.UserID == userID {
			matched = append(matched, reservation)
		}
	}
	return matched, nil
}

func (s *stubRepo) Count(ctx context.Context, filter domain.ReservationFilter) (int, error) {
	n := 0
	for _, reservation := range s.reservations {
		if filter.UserID == nil || reservation.UserID == *filter.UserID {
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) List(ctx context.Context, filter domain.ReservationFilter) ([]*domain.Reservation, error) {
	var all []*domain.Reservation
	for _, reservation := range s.reservations {
		all = append(all, reservation)
	}
	return all, nil
}

func (s *stubRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ReservationStatus) error {
	reservation, ok := s.reservations[id]
	if !ok {
		return errors.NewNotFound("reservation not found")
	}
	reservation.Status = status
	return nil
}

func (s *stubRepo) GetMetrics(ctx context.Context) (*interfaces.ReservationMetrics, error) {
	return &interfaces.ReservationMetrics{
		TotalReservations:    len(s.reservations),
		ReservationsByStatus: map[string]int{},
	}, nil
}

// stubLockStore always grants locks
type stubLockStore struct{}

func (s *stubLockStore) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (s *stubLockStore) Release(ctx context.Context, key string) error { return nil }

func newTestHandler(repo *stubRepo) *ReservationHandler {
	svc := service.NewReservationService(
		repo,
		&stubLockStore{},
		nil,
		5*time.Minute,
		logging.NewNoOpLogger(),
		metrics.NewNoOpMetrics(),
	)
	return NewReservationHandler(svc, logging.NewNoOpLogger())
}

func withSession(req *http.Request, userID uuid.UUID, role string) *http.Request {
	session := &identity.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Role:      role,
		Status:    identity.SessionStatusActive,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	ctx := context.WithValue(req.Context(), middleware.SessionContextKey, session)
	return req.WithContext(ctx)
}

func createBody(t *testing.T, itemID uuid.UUID) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(CreateReservationRequest{
		Lines: []CreateReservationLineRequest{
			{
				ItemID:     itemID,
				Quantity:   1,
				RentalFrom: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
				RentalTo:   time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC),
			},
		},
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestCreateReservationHandler(t *testing.T) {
	t.Run("success returns 201 with totals", func(t *testing.T) {
		repo := newStubRepo()
		itemID := uuid.New()
		repo.items[itemID] = &domain.RentableItem{ID: itemID, Title: "Generator", Stock: 2, DailyPrice: 100, DepositPrice: 40}
		handler := newTestHandler(repo)

		userID := uuid.New()
		req := withSession(httptest.NewRequest("POST", "/api/v1/reservations", createBody(t, itemID)), userID, "user")

		rec := httptest.NewRecorder()
		handler.CreateReservation(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp ReservationResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, userID, resp.UserID, "user comes from the session, not the body")
		assert.Equal(t, "PENDING", resp.Status)
		assert.InDelta(t, 580.0, resp.Total, 0.001)
		assert.Len(t, resp.Lines, 1)
	})

	t.Run("missing session returns 401", func(t *testing.T) {
		handler := newTestHandler(newStubRepo())

		req := httptest.NewRequest("POST", "/api/v1/reservations", createBody(t, uuid.New()))
		rec := httptest.NewRecorder()
		handler.CreateReservation(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		handler := newTestHandler(newStubRepo())

		req := withSession(httptest.NewRequest("POST", "/api/v1/reservations",
			bytes.NewBufferString("{not json")), uuid.New(), "user")
		rec := httptest.NewRecorder()
		handler.CreateReservation(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("overlap returns 409", func(t *testing.T) {
		repo := newStubRepo()
		itemID := uuid.New()
		repo.items[itemID] = &domain.RentableItem{ID: itemID, Title: "Generator", Stock: 2, DailyPrice: 100, DepositPrice: 40}
		repo.overlapping = []domain.ReservationLine{{
			ItemID:     itemID,
			RentalFrom: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
			RentalTo:   time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		}}
		handler := newTestHandler(repo)

		req := withSession(httptest.NewRequest("POST", "/api/v1/reservations", createBody(t, itemID)), uuid.New(), "user")
		rec := httptest.NewRecorder()
		handler.CreateReservation(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("insufficient stock returns 409", func(t *testing.T) {
		repo := newStubRepo()
		itemID := uuid.New()
		repo.items[itemID] = &domain.RentableItem{ID: itemID, Title: "Generator", Stock: 0, DailyPrice: 100, DepositPrice: 40}
		handler := newTestHandler(repo)

		req := withSession(httptest.NewRequest("POST", "/api/v1/reservations", createBody(t, itemID)), uuid.New(), "user")
		rec := httptest.NewRecorder()
		handler.CreateReservation(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestGetReservationHandler(t *testing.T) {
	repo := newStubRepo()
	owner := uuid.New()
	reservation := &domain.Reservation{ID: uuid.New(), UserID: owner, Status: domain.StatusPending}
	repo.reservations[reservation.ID] = reservation
	handler := newTestHandler(repo)

	get := func(id string, requester uuid.UUID) *httptest.ResponseRecorder {
		req := withSession(httptest.NewRequest("GET", "/api/v1/reservations/"+id, nil), requester, "user")

		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("id", id)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

		rec := httptest.NewRecorder()
		handler.GetReservation(rec, req)
		return rec
	}

	t.Run("owner sees reservation", func(t *testing.T) {
		rec := get(reservation.ID.String(), owner)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("foreign reservation is 404", func(t *testing.T) {
		rec := get(reservation.ID.String(), uuid.New())
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid id is 400", func(t *testing.T) {
		rec := get("not-a-uuid", owner)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateReservationStatusHandler(t *testing.T) {
	patch := func(handler *ReservationHandler, id, status string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(UpdateReservationStatusRequest{Status: status})
		req := withSession(httptest.NewRequest("PATCH", "/api/v1/reservations/"+id+"/status",
			bytes.NewBuffer(body)), uuid.New(), "admin")

		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("id", id)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

		rec := httptest.NewRecorder()
		handler.UpdateReservationStatus(rec, req)
		return rec
	}

	t.Run("valid transition succeeds", func(t *testing.T) {
		repo := newStubRepo()
		reservation := &domain.Reservation{ID: uuid.New(), UserID: uuid.New(), Status: domain.StatusPending}
		repo.reservations[reservation.ID] = reservation
		handler := newTestHandler(repo)

		rec := patch(handler, reservation.ID.String(), "CONFIRMED")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.StatusConfirmed, reservation.Status)
	})

	t.Run("unknown status is 400", func(t *testing.T) {
		repo := newStubRepo()
		reservation := &domain.Reservation{ID: uuid.New(), UserID: uuid.New(), Status: domain.StatusPending}
		repo.reservations[reservation.ID] = reservation
		handler := newTestHandler(repo)

		rec := patch(handler, reservation.ID.String(), "ARCHIVED")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, domain.StatusPending, reservation.Status)
	})

	t.Run("illegal transition is 400", func(t *testing.T) {
		repo := newStubRepo()
		reservation := &domain.Reservation{ID: uuid.New(), UserID: uuid.New(), Status: domain.StatusPending}
		repo.reservations[reservation.ID] = reservation
		handler := newTestHandler(repo)

		rec := patch(handler, reservation.ID.String(), "SHIPPED")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing reservation is 404", func(t *testing.T) {
		handler := newTestHandler(newStubRepo())

		rec := patch(handler, uuid.New().String(), "CONFIRMED")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListReservationsHandler(t *testing.T) {
	repo := newStubRepo()
	userID := uuid.New()
	for i := 0; i < 3; i++ {
		id := uuid.New()
		repo.reservations[id] = &domain.Reservation{ID: id, UserID: userID, Status: domain.StatusPending}
	}
	handler := newTestHandler(repo)

	req := withSession(httptest.NewRequest("GET", "/api/v1/reservations?page=1&pageSize=10", nil), userID, "user")
	rec := httptest.NewRecorder()
	handler.ListReservations(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ReservationPageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Len(t, resp.Items, 3)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 10, resp.PageSize)
}
