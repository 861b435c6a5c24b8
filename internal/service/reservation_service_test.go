package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentloop/reservation-service/internal/domain"
	"github.com/rentloop/reservation-service/internal/lock"
	"github.com/rentloop/reservation-service/internal/platform/errors"
	"github.com/rentloop/reservation-service/internal/platform/logging"
	"github.com/rentloop/reservation-service/internal/platform/metrics"
	"github.com/rentloop/reservation-service/internal/repository/interfaces"
)

// fakeLockStore is an in-memory lock.Store with TTL support driven by a
// controllable clock
type fakeLockStore struct {
	mu           sync.Mutex
	cond         *sync.Cond
	held         map[string]time.Time
	now          func() time.Time
	acquireCalls int
	releaseCalls int
	acquireErr   error
}

func newFakeLockStore() *fakeLockStore {
	f := &fakeLockStore{
		held: make(map[string]time.Time),
		now:  time.Now,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *fakeLockStore) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.acquireCalls++
	f.cond.Broadcast()
	if f.acquireErr != nil {
		return false, f.acquireErr
	}

	if expiry, ok := f.held[key]; ok && f.now().Before(expiry) {
		return false, nil
	}

	f.held[key] = f.now().Add(ttl)
	return true, nil
}

func (f *fakeLockStore) Release(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.releaseCalls++
	delete(f.held, key)
	return nil
}

// waitForAcquires blocks until at least n acquire attempts were made
func (f *fakeLockStore) waitForAcquires(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for f.acquireCalls < n {
		f.cond.Wait()
	}
}

func (f *fakeLockStore) heldCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, expiry := range f.held {
		if f.now().Before(expiry) {
			n++
		}
	}
	return n
}

// fakeRepo is an in-memory interfaces.ReservationRepository with call
// counters and injectable failures
type fakeRepo struct {
	mu                   sync.Mutex
	items                map[uuid.UUID]*domain.RentableItem
	committed            []*domain.Reservation
	overlapping          map[uuid.UUID][]domain.ReservationLine
	findOverlappingCalls int
	getItemCalls         int
	createCalls          int
	createErr            error
	beforeCreate         func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		items:       make(map[uuid.UUID]*domain.RentableItem),
		overlapping: make(map[uuid.UUID][]domain.ReservationLine),
	}
}

func (f *fakeRepo) addItem(item domain.RentableItem) {
	f.items[item.ID] = &item
}

func (f *fakeRepo) FindOverlapping(ctx context.Context, itemID uuid.UUID, from, to time.Time) (*domain.ReservationLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.findOverlappingCalls++
	for _, line := range f.overlapping[itemID] {
		if line.Overlaps(from, to) {
			result := line
			return &result, nil
		}
	}

	// Committed reservations also count as the ledger's truth
	for _, reservation := range f.committed {
		for _, line := range reservation.Lines {
			if line.ItemID == itemID && line.Overlaps(from, to) {
				result := line
				return &result, nil
			}
		}
	}

	return nil, nil
}

func (f *fakeRepo) GetItem(ctx context.Context, itemID uuid.UUID) (*domain.RentableItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.getItemCalls++
	item, ok := f.items[itemID]
	if !ok {
		return nil, errors.NewNotFound(fmt.Sprintf("item %s not found", itemID))
	}
	return item, nil
}

func (f *fakeRepo) Create(ctx context.Context, reservation *domain.Reservation) error {
	if f.beforeCreate != nil {
		f.beforeCreate()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	f.committed = append(f.committed, reservation)
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, reservation := range f.committed {
		if reservation.ID == id {
			return reservation, nil
		}
	}
	return nil, errors.NewNotFound("reservation not found")
}

func (f *fakeRepo) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []*domain.Reservation
	for _, reservation := range f.committed {
		if reservation.UserID == userID {
			matched = append(matched, reservation)
		}
	}

	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (f *fakeRepo) Count(ctx context.Context, filter domain.ReservationFilter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, reservation := range f.committed {
		if filter.UserID != nil && reservation.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && reservation.Status != *filter.Status {
			continue
		}
		n++
	}
	return n, nil
}

func (f *fakeRepo) List(ctx context.Context, filter domain.ReservationFilter) ([]*domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []*domain.Reservation
	for _, reservation := range f.committed {
		if filter.UserID != nil && reservation.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && reservation.Status != *filter.Status {
			continue
		}
		matched = append(matched, reservation)
	}
	return matched, nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ReservationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, reservation := range f.committed {
		if reservation.ID == id {
			reservation.Status = status
			for i := range reservation.Lines {
				reservation.Lines[i].Status = status
			}
			return nil
		}
	}
	return errors.NewNotFound("reservation not found")
}

func (f *fakeRepo) GetMetrics(ctx context.Context) (*interfaces.ReservationMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m := &interfaces.ReservationMetrics{
		TotalReservations:    len(f.committed),
		ReservationsByStatus: make(map[string]int),
	}
	for _, reservation := range f.committed {
		m.TotalRevenue += reservation.Total
		m.ReservationsByStatus[string(reservation.Status)]++
	}
	if m.TotalReservations > 0 {
		m.AverageReservationValue = m.TotalRevenue / float64(m.TotalReservations)
	}
	return m, nil
}

// fakePublisher records published reservation events
type fakePublisher struct {
	mu     sync.Mutex
	events []ReservationCreatedEvent
}

func (f *fakePublisher) PublishReservationCreated(ctx context.Context, event ReservationCreatedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

// Test helpers

func day(d int) time.Time {
	return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(repo *fakeRepo, locks *fakeLockStore) *ReservationService {
	return NewReservationService(
		repo,
		locks,
		nil,
		5*time.Minute,
		logging.NewNoOpLogger(),
		metrics.NewNoOpMetrics(),
	)
}

func singleLineRequest(itemID uuid.UUID, from, to time.Time) domain.CreateReservationRequest {
	return domain.CreateReservationRequest{
		UserID: uuid.New(),
		Lines: []domain.CreateReservationLine{
			{ItemID: itemID, Quantity: 1, RentalFrom: from, RentalTo: to},
		},
	}
}

func TestCreateReservation_Success(t *testing.T) {
	repo := newFakeRepo()
	locks := newFakeLockStore()
	svc := newTestService(repo, locks)

	itemID := uuid.New()
	repo.addItem(domain.RentableItem{ID: itemID, Title: "Excavator", Stock: 3, DailyPrice: 100, DepositPrice: 40})

	reservation, err := svc.CreateReservation(context.Background(), singleLineRequest(itemID, day(1), day(6)))

	require.NoError(t, err)
	require.NotNil(t, reservation)
	assert.Equal(t, domain.StatusPending, reservation.Status)
	assert.Len(t, reservation.Lines, 1)
	assert.Equal(t, 1, repo.createCalls)

	// 100/day x 1 qty x 5 days, 8% tax, 40 deposit
	assert.InDelta(t, 500.0, reservation.Subtotal, 0.001)
	assert.InDelta(t, 40.0, reservation.Tax, 0.001)
	assert.InDelta(t, 40.0, reservation.Deposit, 0.001)
	assert.InDelta(t, 580.0, reservation.Total, 0.001)
}

func TestCreateReservation_ValidationPrecedesIO(t *testing.T) {
	tests := []struct {
		name string
		req  domain.CreateReservationRequest
	}{
		{
			name: "missing user",
			req: domain.CreateReservationRequest{
				Lines: []domain.CreateReservationLine{
					{ItemID: uuid.New(), Quantity: 1, RentalFrom: day(1), RentalTo: day(2)},
				},
			},
		},
		{
			name: "no lines",
			req:  domain.CreateReservationRequest{UserID: uuid.New()},
		},
		{
			name: "zero quantity",
			req: domain.CreateReservationRequest{
				UserID: uuid.New(),
				Lines: []domain.CreateReservationLine{
					{ItemID: uuid.New(), Quantity: 0, RentalFrom: day(1), RentalTo: day(2)},
				},
			},
		},
		{
			name: "inverted range",
			req: domain.CreateReservationRequest{
				UserID: uuid.New(),
				Lines: []domain.CreateReservationLine{
					{ItemID: uuid.New(), Quantity: 1, RentalFrom: day(5), RentalTo: day(1)},
				},
			},
		},
		{
			name: "empty range",
			req: domain.CreateReservationRequest{
				UserID: uuid.New(),
				Lines: []domain.CreateReservationLine{
					{ItemID: uuid.New(), Quantity: 1, RentalFrom: day(3), RentalTo: day(3)},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			locks := newFakeLockStore()
			svc := newTestService(repo, locks)

			_, err := svc.CreateReservation(context.Background(), tt.req)

			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
			assert.Equal(t, 0, repo.findOverlappingCalls, "ledger must not be queried for invalid input")
			assert.Equal(t, 0, locks.acquireCalls, "lock store must not be touched for invalid input")
			assert.Equal(t, 0, repo.createCalls)
		})
	}
}

func TestCreateReservation_OverlapConflict(t *testing.T) {
	repo := newFakeRepo()
	locks := newFakeLockStore()
	svc := newTestService(repo, locks)

	itemID := uuid.New()
	repo.addItem(domain.RentableItem{ID: itemID, Title: "Camera", Stock: 1, DailyPrice: 50, DepositPrice: 20})
	repo.overlapping[itemID] = []domain.ReservationLine{
		{ItemID: itemID, RentalFrom: day(20), RentalTo: day(25), Status: domain.StatusConfirmed},
	}

	// [23, 28) overlaps [20, 25)
	_, err := svc.CreateReservation(context.Background(), singleLineRequest(itemID, day(23), day(28)))

	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
	assert.Equal(t, 0, locks.acquireCalls, "overlap is detected before any lock is taken")
	assert.Equal(t, 0, repo.createCalls)
}

func TestCreateReservation_AdjacentRangesBothSucceed(t *testing.T) {
	repo := newFakeRepo()
	locks := newFakeLockStore()
	svc := newTestService(repo, locks)

	itemID := uuid.New()
	repo.addItem(domain.RentableItem{ID: itemID, Title: "Drill", Stock: 1, DailyPrice: 10, DepositPrice: 5})

	first, err := svc.CreateReservation(context.Background(),
		singleLineRequest(itemID, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.NotNil(t, first)

	// [6/5, 6/10) touches [6/1, 6/5) only at the shared boundary instant;
	// half-open ranges make that a non-overlap
	second, err := svc.CreateReservation(context.Background(),
		singleLineRequest(itemID, time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC), time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.Equal(t, 2, repo.createCalls)
}

func TestCreateReservation_SingleWinnerUnderContention(t *testing.T) {
	repo := newFakeRepo()
	locks := newFakeLockStore()
	svc := newTestService(repo, locks)

	itemID := uuid.New()
	repo.addItem(domain.RentableItem{ID: itemID, Title: "Projector", Stock: 1, DailyPrice: 30, DepositPrice: 10})

	const n = 16
	// The winner stalls right before its commit until every competitor has
	// made its lock attempt, so each loser is guaranteed to observe either
	// the held lock or the committed ledger row
	repo.beforeCreate = func() { locks.waitForAcquires(n) }
	var wg sync.WaitGroup
	results := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.CreateReservation(context.Background(),
				singleLineRequest(itemID, day(10), day(15)))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.True(t, errors.IsConflict(err), "losers must observe a conflict, got %v", err)
		}
	}

	assert.Equal(t, 1, winners, "exactly one of %d identical concurrent requests may commit", n)
	assert.Equal(t, 1, repo.createCalls)
}

func TestCreateReservation_ReleasesLocksOnEveryPath(t *testing.T) {
	itemA := uuid.New()
	itemB := uuid.New()

	twoLineRequest := func() domain.CreateReservationRequest {
		return domain.CreateReservationRequest{
			UserID: uuid.New(),
			Lines: []domain.CreateReservationLine{
				{ItemID: itemA, Quantity: 1, RentalFrom: day(1), RentalTo: day(3)},
				{ItemID: itemB, Quantity: 1, RentalFrom: day(1), RentalTo: day(3)},
			},
		}
	}

	t.Run("success path", func(t *testing.T) {
		repo := newFakeRepo()
		locks := newFakeLockStore()
		svc := newTestService(repo, locks)
		repo.addItem(domain.RentableItem{ID: itemA, Title: "A", Stock: 1, DailyPrice: 10, DepositPrice: 1})
		repo.addItem(domain.RentableItem{ID: itemB, Title: "B", Stock: 1, DailyPrice: 10, DepositPrice: 1})

		_, err := svc.CreateReservation(context.Background(), twoLineRequest())

		require.NoError(t, err)
		assert.Equal(t, 2, locks.acquireCalls)
		assert.Equal(t, 2, locks.releaseCalls)
		assert.Equal(t, 0, locks.heldCount(), "no lock may outlive the invocation")
	})

	t.Run("stock failure on second line", func(t *testing.T) {
		repo := newFakeRepo()
		locks := newFakeLockStore()
		svc := newTestService(repo, locks)
		repo.addItem(domain.RentableItem{ID: itemA, Title: "A", Stock: 1, DailyPrice: 10, DepositPrice: 1})
		repo.addItem(domain.RentableItem{ID: itemB, Title: "B", Stock: 0, DailyPrice: 10, DepositPrice: 1})

		_, err := svc.CreateReservation(context.Background(), twoLineRequest())

		require.Error(t, err)
		assert.True(t, errors.IsConflict(err))
		assert.Equal(t, 0, repo.createCalls, "nothing commits when any line fails")
		assert.Equal(t, 2, locks.releaseCalls, "both acquired locks are released on abort")
		assert.Equal(t, 0, locks.heldCount())
	})

	t.Run("ledger commit failure", func(t *testing.T) {
		repo := newFakeRepo()
		locks := newFakeLockStore()
		svc := newTestService(repo, locks)
		repo.addItem(domain.RentableItem{ID: itemA, Title: "A", Stock: 1, DailyPrice: 10, DepositPrice: 1})
		repo.addItem(domain.RentableItem{ID: itemB, Title: "B", Stock: 1, DailyPrice: 10, DepositPrice: 1})
		repo.createErr = errors.NewInternal("connection reset")

		_, err := svc.CreateReservation(context.Background(), twoLineRequest())

		require.Error(t, err)
		assert.Equal(t, 0, locks.heldCount(), "locks are released even when the commit fails")
	})
}

func TestCreateReservation_LockStoreUnavailableFailsClosed(t *testing.T) {
	repo := newFakeRepo()
	locks := newFakeLockStore()
	locks.acquireErr = errors.NewInternal("lock store unavailable")
	svc := newTestService(repo, locks)

	itemID := uuid.New()
	repo.addItem(domain.RentableItem{ID: itemID, Title: "Ladder", Stock: 5, DailyPrice: 5, DepositPrice: 2})

	_, err := svc.CreateReservation(context.Background(), singleLineRequest(itemID, day(1), day(2)))

	require.Error(t, err)
	assert.False(t, errors.IsConflict(err), "store failure is an error, not a conflict")
	assert.Equal(t, 0, repo.createCalls)
}

func TestCreateReservation_LockExpiryAllowsRecovery(t *testing.T) {
	repo := newFakeRepo()
	locks := newFakeLockStore()

	// Controllable clock: the first attempt leaves a stale lock behind,
	// advancing past the TTL must free the fingerprint.
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	locks.now = func() time.Time { return current }

	itemID := uuid.New()
	key := lock.Key(itemID, day(10), day(12))

	ok, err := locks.TryAcquire(context.Background(), key, 5*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	svc := newTestService(repo, locks)
	repo.addItem(domain.RentableItem{ID: itemID, Title: "Sander", Stock: 1, DailyPrice: 8, DepositPrice: 3})

	// While the stale lock lives, the same fingerprint is refused
	_, err = svc.CreateReservation(context.Background(), singleLineRequest(itemID, day(10), day(12)))
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))

	// Past the TTL the item becomes reservable again
	current = current.Add(5*time.Minute + time.Second)

	reservation, err := svc.CreateReservation(context.Background(), singleLineRequest(itemID, day(10), day(12)))
	require.NoError(t, err)
	require.NotNil(t, reservation)
}

func TestGetReservation_OwnershipScoped(t *testing.T) {
	repo := newFakeRepo()
	locks := newFakeLockStore()
	svc := newTestService(repo, locks)

	owner := uuid.New()
	stranger := uuid.New()
	reservation := &domain.Reservation{ID: uuid.New(), UserID: owner, Status: domain.StatusPending}
	repo.committed = append(repo.committed, reservation)

	got, err := svc.GetReservation(context.Background(), reservation.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, reservation.ID, got.ID)

	// A foreign reservation is indistinguishable from a missing one
	_, err = svc.GetReservation(context.Background(), reservation.ID, stranger)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestListReservations_Paging(t *testing.T) {
	repo := newFakeRepo()
	locks := newFakeLockStore()
	svc := newTestService(repo, locks)

	userID := uuid.New()
	for i := 0; i < 5; i++ {
		repo.committed = append(repo.committed, &domain.Reservation{
			ID: uuid.New(), UserID: userID, Status: domain.StatusPending,
		})
	}

	page, err := svc.ListReservations(context.Background(), userID, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.PageSize)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Items, 2)

	// Out-of-range parameters fall back to defaults
	page, err = svc.ListReservations(context.Background(), userID, 0, -3)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
}

func TestUpdateReservationStatus_TransitionRules(t *testing.T) {
	repo := newFakeRepo()
	locks := newFakeLockStore()
	svc := newTestService(repo, locks)

	reservation := &domain.Reservation{ID: uuid.New(), UserID: uuid.New(), Status: domain.StatusPending}
	repo.committed = append(repo.committed, reservation)

	err := svc.UpdateReservationStatus(context.Background(), reservation.ID, domain.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, reservation.Status)

	// CONFIRMED cannot jump straight to SHIPPED
	err = svc.UpdateReservationStatus(context.Background(), reservation.ID, domain.StatusShipped)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, domain.StatusConfirmed, reservation.Status)

	err = svc.UpdateReservationStatus(context.Background(), reservation.ID, "SOMETHING_ELSE")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	err = svc.UpdateReservationStatus(context.Background(), uuid.New(), domain.StatusConfirmed)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestHandlePaymentEvent(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		from      domain.ReservationStatus
		want      domain.ReservationStatus
	}{
		{"payment succeeded confirms", PaymentSucceededEventType, domain.StatusPending, domain.StatusConfirmed},
		{"payment failed cancels", PaymentFailedEventType, domain.StatusPending, domain.StatusCancelled},
		{"refund from confirmed", PaymentRefundedEventType, domain.StatusConfirmed, domain.StatusRefunded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			locks := newFakeLockStore()
			svc := newTestService(repo, locks)

			reservation := &domain.Reservation{ID: uuid.New(), UserID: uuid.New(), Status: tt.from}
			repo.committed = append(repo.committed, reservation)

			err := svc.HandlePaymentEvent(context.Background(), PaymentEvent{
				ReservationID: reservation.ID,
				EventType:     tt.eventType,
				OccurredAt:    time.Now(),
			})

			require.NoError(t, err)
			assert.Equal(t, tt.want, reservation.Status)
		})
	}

	t.Run("unknown event type is ignored", func(t *testing.T) {
		repo := newFakeRepo()
		locks := newFakeLockStore()
		svc := newTestService(repo, locks)

		reservation := &domain.Reservation{ID: uuid.New(), UserID: uuid.New(), Status: domain.StatusPending}
		repo.committed = append(repo.committed, reservation)

		err := svc.HandlePaymentEvent(context.Background(), PaymentEvent{
			ReservationID: reservation.ID,
			EventType:     "payment.disputed",
		})

		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, reservation.Status)
	})
}

func TestCreateReservation_PublishesPaymentNotification(t *testing.T) {
	repo := newFakeRepo()
	locks := newFakeLockStore()
	publisher := &fakePublisher{}
	svc := NewReservationService(repo, locks, publisher, 5*time.Minute, logging.NewNoOpLogger(), metrics.NewNoOpMetrics())

	itemID := uuid.New()
	repo.addItem(domain.RentableItem{ID: itemID, Title: "Mixer", Stock: 2, DailyPrice: 25, DepositPrice: 10})

	reservation, err := svc.CreateReservation(context.Background(), singleLineRequest(itemID, day(1), day(3)))

	require.NoError(t, err)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, reservation.ID, publisher.events[0].ReservationID)
	assert.InDelta(t, reservation.Total, publisher.events[0].Total, 0.001)
	assert.Equal(t, "USD", publisher.events[0].Currency)
}
