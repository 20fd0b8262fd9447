package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/infinite-echoes/echoes/pkg/adapters/memory"
	"github.com/infinite-echoes/echoes/pkg/domain"
	"github.com/infinite-echoes/echoes/pkg/ports"
	"github.com/infinite-echoes/echoes/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke races if locking is missing.
type SlowStore struct {
	ports.SessionStore
}

func newSlowStore() *SlowStore {
	return &SlowStore{SessionStore: memory.NewStore()}
}

func (s *SlowStore) Save(ctx context.Context, sess *domain.Session) error {
	time.Sleep(5 * time.Millisecond)
	return s.SessionStore.Save(ctx, sess)
}

func (s *SlowStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	time.Sleep(5 * time.Millisecond)
	return s.SessionStore.Load(ctx, id)
}

func TestManager_WithLockSerializes(t *testing.T) {
	mgr := session.NewManager(newSlowStore())
	ctx := context.Background()
	id := "race-test"
	_, err := mgr.LoadOrCreate(ctx, id)
	require.NoError(t, err)

	var wg sync.WaitGroup
	writers := 10
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mgr.WithLock(ctx, id, func(ctx context.Context) error {
				s, err := mgr.Store().Load(ctx, id)
				if err != nil {
					return err
				}
				s.Turns++
				return mgr.Store().Save(ctx, s)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := mgr.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, writers, s.Turns, "read-modify-write lost updates")
}

func TestManager_LoadOrCreate(t *testing.T) {
	store := newSlowStore()
	mgr := session.NewManager(store)
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := mgr.LoadOrCreate(ctx, id)
			assert.NoError(t, err)
			assert.NotNil(t, s)
		}()
	}
	wg.Wait()

	s, err := mgr.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, s.ID)
	assert.Empty(t, s.Messages)

	ids, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids)
}

func TestManager_LoadMissing(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	_, err := mgr.Load(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManager_SaveAndDelete(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	s := domain.NewSession("s1")
	s.ZoneID = "crypt"
	require.NoError(t, mgr.Save(ctx, s))

	loaded, err := mgr.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "crypt", loaded.ZoneID)

	require.NoError(t, mgr.Delete(ctx, "s1"))
	_, err = mgr.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

// MockLocker records lock traffic.
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	args := m.Called(key, ttl)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return func(context.Context) error {
		return m.MethodCalled("Unlock", key).Error(0)
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := new(MockLocker)
	locker.On("Lock", "s1", 5*time.Second).Return(nil, nil).Once()
	locker.On("Unlock", "s1").Return(nil).Once()

	mgr := session.NewManager(memory.NewStore(),
		session.WithLocker(locker),
		session.WithLockTTL(5*time.Second),
	)

	_, err := mgr.LoadOrCreate(context.Background(), "s1")
	require.NoError(t, err)

	locker.AssertExpectations(t)
}

func TestManager_DistributedLockFailure(t *testing.T) {
	locker := new(MockLocker)
	locker.On("Lock", "s1", session.DefaultLockTTL).Return(nil, errors.New("redis down"))
	mgr := session.NewManager(memory.NewStore(), session.WithLocker(locker))

	called := false
	err := mgr.WithLock(context.Background(), "s1", func(context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to acquire distributed lock")
	assert.False(t, called)
	locker.AssertExpectations(t)
}
