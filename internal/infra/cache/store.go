package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/karlseguin/ccache/v3"
	"golang.org/x/sync/singleflight"

	"rentdetail/internal/domain/listings"
)

const (
	snapshotKey      = "listings:all"
	defaultTTL       = 5 * time.Minute
	defaultMaxSize   = 16
	defaultFetchWait = 10 * time.Second
)

var (
	ErrSourceUnavailable = errors.New("cache: listing source unavailable")
	ErrNotWarm           = errors.New("cache: no listing snapshot yet")
)

// Remote is the shared second-level cache. *memcache.Client satisfies it.
type Remote interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Delete(key string) error
}

type Options struct {
	TTL          time.Duration
	MaxSize      int64
	FetchTimeout time.Duration
	Remote       Remote
	RemoteTTL    time.Duration
	Logger       *slog.Logger
}

type snapshot struct {
	items     []listings.Listing
	fetchedAt time.Time
	origin    string
	gen       uint64
}

// Store is a read-through cache over a listing source.
// FetchAll makes the collection current; SelectAll reads the last snapshot.
type Store struct {
	source       listings.Source
	local        *ccache.Cache[*snapshot]
	remote       Remote
	remoteTTL    time.Duration
	ttl          time.Duration
	fetchTimeout time.Duration
	logger       *slog.Logger

	group   singleflight.Group
	last    atomic.Pointer[snapshot]
	fetches atomic.Int64
	// gen is bumped by Invalidate; a refresh started under an older gen does not populate the cache levels.
	gen atomic.Uint64
}

func NewStore(source listings.Source, opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = defaultMaxSize
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchWait
	}
	if opts.RemoteTTL <= 0 {
		opts.RemoteTTL = 3 * opts.TTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		source:       source,
		local:        ccache.New(ccache.Configure[*snapshot]().MaxSize(opts.MaxSize)),
		remote:       opts.Remote,
		remoteTTL:    opts.RemoteTTL,
		ttl:          opts.TTL,
		fetchTimeout: opts.FetchTimeout,
		logger:       logger,
	}
}

// FetchAll returns once a fresh snapshot is available or the fetch failed.
// Concurrent callers share one source call; the shared call is not tied to any caller's context.
func (s *Store) FetchAll(ctx context.Context) error {
	if item := s.local.Get(snapshotKey); item != nil && !item.Expired() {
		return nil
	}
	ch := s.group.DoChan(snapshotKey, func() (any, error) {
		return nil, s.refresh()
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SelectAll returns the last snapshot, possibly stale. Nil before the first successful fetch.
func (s *Store) SelectAll() []listings.Listing {
	snap := s.last.Load()
	if snap == nil {
		return nil
	}
	return slices.Clone(snap.items)
}

// ByID fetches through the cache and resolves id.
func (s *Store) ByID(ctx context.Context, id listings.ListingID) (listings.Listing, error) {
	if err := s.FetchAll(ctx); err != nil {
		return listings.Listing{}, err
	}
	return listings.FindIn(s.SelectAll(), id)
}

// Invalidate drops both cache levels so the next FetchAll reaches the source.
// SelectAll keeps serving the stale snapshot meanwhile.
func (s *Store) Invalidate() {
	s.gen.Add(1)
	s.local.Delete(snapshotKey)
	s.group.Forget(snapshotKey)
	if s.remote != nil {
		if err := s.remote.Delete(snapshotKey); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
			s.logger.Warn("remote cache delete failed", "key", snapshotKey, "error", err)
		}
	}
	s.logger.Info("listing cache invalidated")
}

// Ready reports whether a snapshot has ever been loaded.
func (s *Store) Ready() error {
	if s.last.Load() == nil {
		return ErrNotWarm
	}
	return nil
}

// SourceFetches counts calls that reached the listing source.
func (s *Store) SourceFetches() int64 {
	return s.fetches.Load()
}

func (s *Store) Close() {
	s.local.Stop()
}

func (s *Store) refresh() error {
	gen := s.gen.Load()
	if items, ok := s.readRemote(); ok {
		s.keep(&snapshot{items: items, fetchedAt: time.Now(), origin: "remote", gen: gen})
		return nil
	}
	if s.source == nil {
		return fmt.Errorf("%w: not configured", ErrSourceUnavailable)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
	defer cancel()
	s.fetches.Add(1)
	start := time.Now()
	items, err := s.source.All(ctx)
	if err != nil {
		s.logger.Error("listing source fetch failed", "error", err, "duration", time.Since(start))
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	items = slices.Clone(items)
	if !s.keep(&snapshot{items: items, fetchedAt: time.Now(), origin: "source", gen: gen}) {
		s.logger.Info("listing snapshot superseded by invalidation, not cached", "count", len(items))
		return nil
	}
	s.writeRemote(items)
	s.logger.Info("listing snapshot refreshed", "count", len(items), "duration", time.Since(start))
	return nil
}

// keep publishes snap as the last snapshot unless a newer one is already there,
// and caches it only when no invalidation happened since the refresh began.
func (s *Store) keep(snap *snapshot) bool {
	for {
		cur := s.last.Load()
		if cur != nil && cur.gen > snap.gen {
			break
		}
		if s.last.CompareAndSwap(cur, snap) {
			break
		}
	}
	if s.gen.Load() != snap.gen {
		return false
	}
	s.local.Set(snapshotKey, snap, s.ttl)
	return true
}

func (s *Store) readRemote() ([]listings.Listing, bool) {
	if s.remote == nil {
		return nil, false
	}
	item, err := s.remote.Get(snapshotKey)
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			s.logger.Warn("remote cache get failed", "key", snapshotKey, "error", err)
		}
		return nil, false
	}
	var items []listings.Listing
	if err := json.Unmarshal(item.Value, &items); err != nil {
		s.logger.Warn("remote cache payload invalid", "key", snapshotKey, "error", err)
		return nil, false
	}
	s.logger.Debug("listing snapshot loaded from remote cache", "count", len(items))
	return items, true
}

func (s *Store) writeRemote(items []listings.Listing) {
	if s.remote == nil {
		return
	}
	payload, err := json.Marshal(items)
	if err != nil {
		s.logger.Warn("remote cache encode failed", "error", err)
		return
	}
	err = s.remote.Set(&memcache.Item{
		Key:        snapshotKey,
		Value:      payload,
		Expiration: int32(s.remoteTTL / time.Second),
	})
	if err != nil {
		s.logger.Warn("remote cache set failed", "key", snapshotKey, "error", err)
	}
}
