package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"rentdetail/internal/domain/listings"
)

type stubSource struct {
	calls atomic.Int32
	gate  chan struct{}
	err   error
	items []listings.Listing
}

func (s *stubSource) All(ctx context.Context) ([]listings.Listing, error) {
	s.calls.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

// sequenceSource blocks its first call until release is closed and serves stale data on it.
type sequenceSource struct {
	calls   atomic.Int32
	release chan struct{}
}

func (s *sequenceSource) All(ctx context.Context) ([]listings.Listing, error) {
	if s.calls.Add(1) == 1 {
		<-s.release
		return []listings.Listing{{ID: "1", Title: "old", Price: decimal.NewFromInt(900)}}, nil
	}
	return []listings.Listing{{ID: "1", Title: "new", Price: decimal.NewFromInt(950)}}, nil
}

type mapRemote struct {
	mu    sync.Mutex
	items map[string][]byte
}

func (m *mapRemote) Get(key string) (*memcache.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if !ok {
		return nil, memcache.ErrCacheMiss
	}
	return &memcache.Item{Key: key, Value: v}, nil
}

func (m *mapRemote) Set(item *memcache.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.Key] = item.Value
	return nil
}

func (m *mapRemote) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; !ok {
		return memcache.ErrCacheMiss
	}
	delete(m.items, key)
	return nil
}

type storeSuite struct {
	suite.Suite
	source *stubSource
	store  *Store
	ctx    context.Context
}

func TestStore(t *testing.T) {
	suite.Run(t, new(storeSuite))
}

func (ts *storeSuite) SetupTest() {
	ts.ctx = context.Background()
	ts.source = &stubSource{items: []listings.Listing{
		{ID: "1", Title: "Loft", Price: decimal.NewFromInt(900)},
		{ID: "2", Title: "Cabin", Price: decimal.NewFromInt(450), Commission: decimal.NewNullDecimal(decimal.NewFromInt(50))},
	}}
	ts.store = NewStore(ts.source, Options{TTL: time.Minute})
}

func (ts *storeSuite) TearDownTest() {
	ts.store.Close()
}

func (ts *storeSuite) TestSelectAllBeforeFetch() {
	ts.Nil(ts.store.SelectAll())
	ts.ErrorIs(ts.store.Ready(), ErrNotWarm)
}

func (ts *storeSuite) TestFetchAllIsReadThrough() {
	ts.NoError(ts.store.FetchAll(ts.ctx))
	ts.NoError(ts.store.FetchAll(ts.ctx))
	ts.Equal(int32(1), ts.source.calls.Load())
	ts.Len(ts.store.SelectAll(), 2)
	ts.NoError(ts.store.Ready())
}

func (ts *storeSuite) TestConcurrentFetchesShareOneCall() {
	ts.source.gate = make(chan struct{})
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- ts.store.FetchAll(ts.ctx)
		}()
	}
	ts.Eventually(func() bool { return ts.source.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	close(ts.source.gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		ts.NoError(err)
	}
	ts.Equal(int32(1), ts.source.calls.Load())
}

func (ts *storeSuite) TestCallerCancellationDoesNotAbortSharedFetch() {
	ts.source.gate = make(chan struct{})
	ctx, cancel := context.WithCancel(ts.ctx)
	done := make(chan error, 1)
	go func() { done <- ts.store.FetchAll(ctx) }()
	ts.Eventually(func() bool { return ts.source.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	ts.ErrorIs(<-done, context.Canceled)

	close(ts.source.gate)
	ts.NoError(ts.store.FetchAll(ts.ctx))
	ts.Equal(int32(1), ts.source.calls.Load())
	ts.Len(ts.store.SelectAll(), 2)
}

func (ts *storeSuite) TestInvalidateForcesRefetchAndKeepsStaleSnapshot() {
	ts.NoError(ts.store.FetchAll(ts.ctx))
	ts.store.Invalidate()
	ts.Len(ts.store.SelectAll(), 2)

	ts.source.items = ts.source.items[:1]
	ts.NoError(ts.store.FetchAll(ts.ctx))
	ts.Equal(int32(2), ts.source.calls.Load())
	ts.Len(ts.store.SelectAll(), 1)
	ts.Equal(int64(2), ts.store.SourceFetches())
}

func (ts *storeSuite) TestInvalidateDuringRefreshIsNotLost() {
	source := &sequenceSource{release: make(chan struct{})}
	remote := &mapRemote{items: map[string][]byte{}}
	store := NewStore(source, Options{TTL: time.Minute, Remote: remote})
	defer store.Close()

	done := make(chan error, 1)
	go func() { done <- store.FetchAll(ts.ctx) }()
	ts.Eventually(func() bool { return source.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	store.Invalidate()
	close(source.release)
	ts.NoError(<-done)
	ts.NotContains(remote.items, snapshotKey)
	ts.Equal("old", store.SelectAll()[0].Title)

	ts.NoError(store.FetchAll(ts.ctx))
	ts.Equal(int32(2), source.calls.Load())
	ts.Equal("new", store.SelectAll()[0].Title)
	ts.Contains(remote.items, snapshotKey)

	ts.NoError(store.FetchAll(ts.ctx))
	ts.Equal(int32(2), source.calls.Load())
}

func (ts *storeSuite) TestSourceFailure() {
	ts.source.err = errors.New("connection refused")
	err := ts.store.FetchAll(ts.ctx)
	ts.ErrorIs(err, ErrSourceUnavailable)
	ts.Nil(ts.store.SelectAll())

	ts.source.err = nil
	ts.NoError(ts.store.FetchAll(ts.ctx))
	ts.Len(ts.store.SelectAll(), 2)
}

func (ts *storeSuite) TestByID() {
	got, err := ts.store.ByID(ts.ctx, "2")
	ts.NoError(err)
	ts.Equal("Cabin", got.Title)
	ts.True(got.HasCommission())

	_, err = ts.store.ByID(ts.ctx, "9")
	ts.ErrorIs(err, listings.ErrNotFound)
}

func (ts *storeSuite) TestRemoteLevel() {
	remote := &mapRemote{items: map[string][]byte{}}
	first := NewStore(ts.source, Options{TTL: time.Minute, Remote: remote})
	defer first.Close()
	ts.NoError(first.FetchAll(ts.ctx))
	ts.Contains(remote.items, snapshotKey)

	second := NewStore(ts.source, Options{TTL: time.Minute, Remote: remote})
	defer second.Close()
	ts.NoError(second.FetchAll(ts.ctx))
	ts.Equal(int32(1), ts.source.calls.Load())

	got := second.SelectAll()
	ts.Len(got, 2)
	ts.Equal("50", got[1].Commission.Decimal.String())
	ts.False(got[0].Commission.Valid)

	second.Invalidate()
	ts.NotContains(remote.items, snapshotKey)
}

func (ts *storeSuite) TestNoSource() {
	s := NewStore(nil, Options{})
	defer s.Close()
	ts.ErrorIs(s.FetchAll(ts.ctx), ErrSourceUnavailable)
}
