package cron

import (
	"context"
	"testing"
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/google/uuid"
)

type stubExpiredLister struct {
	requests []models.AddressRequest
}

func (s *stubExpiredLister) ListExpiredUncollected(ctx context.Context, now time.Time, limit int) ([]models.AddressRequest, error) {
	return s.requests, nil
}

type stubFailer struct {
	failed map[uuid.UUID]string
}

func (s *stubFailer) Fail(ctx context.Context, executionID uuid.UUID, reason string) error {
	if s.failed == nil {
		s.failed = map[uuid.UUID]string{}
	}
	s.failed[executionID] = reason
	return nil
}

func TestAddressExpiryFailsLapsedExecutions(t *testing.T) {
	executionID := uuid.New()
	lister := &stubExpiredLister{requests: []models.AddressRequest{
		{ID: uuid.New(), ExecutionID: executionID},
	}}
	failer := &stubFailer{}

	job := NewAddressExpiryJob(lister, failer, cronTestLogger(), nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	reason, ok := failer.failed[executionID]
	if !ok {
		t.Fatal("execution was not failed")
	}
	if reason == "" {
		t.Fatal("expected a failure reason")
	}
}

type stubResetter struct {
	monthly int
	yearly  int
}

func (s *stubResetter) ResetMonthlySpend(ctx context.Context) (int64, error) {
	s.monthly++
	return 3, nil
}

func (s *stubResetter) ResetYearlySpend(ctx context.Context) (int64, error) {
	s.yearly++
	return 3, nil
}

func TestBudgetRolloverOnlyOnBoundaries(t *testing.T) {
	cases := []struct {
		name        string
		now         time.Time
		wantMonthly int
		wantYearly  int
	}{
		{"mid month", time.Date(2026, time.June, 15, 3, 0, 0, 0, time.UTC), 0, 0},
		{"first of month", time.Date(2026, time.June, 1, 3, 0, 0, 0, time.UTC), 1, 0},
		{"new year", time.Date(2027, time.January, 1, 3, 0, 0, 0, time.UTC), 1, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resetter := &stubResetter{}
			now := tc.now
			job := NewBudgetRolloverJob(resetter, cronTestLogger(), func() time.Time { return now })
			if err := job.Run(context.Background()); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if resetter.monthly != tc.wantMonthly || resetter.yearly != tc.wantYearly {
				t.Fatalf("monthly=%d yearly=%d, want %d/%d", resetter.monthly, resetter.yearly, tc.wantMonthly, tc.wantYearly)
			}
		})
	}
}

type memoryLockStore struct {
	values map[string]string
}

func newMemoryLockStore() *memoryLockStore {
	return &memoryLockStore{values: map[string]string{}}
}

func (m *memoryLockStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) Get(ctx context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *memoryLockStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func TestRedisLockMutualExclusion(t *testing.T) {
	store := newMemoryLockStore()
	ctx := context.Background()

	first, err := NewRedisLock(store, "gw:lock:cron", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	second, err := NewRedisLock(store, "gw:lock:cron", time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}

	ok, err := first.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	ok, err = second.Acquire(ctx)
	if err != nil || ok {
		t.Fatalf("second acquire should fail: ok=%v err=%v", ok, err)
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = second.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestRegistrySkipsNilJobs(t *testing.T) {
	registry := NewRegistry(nil, NewBudgetRolloverJob(&stubResetter{}, cronTestLogger(), nil))
	if got := len(registry.Jobs()); got != 1 {
		t.Fatalf("expected 1 job, got %d", got)
	}
}
