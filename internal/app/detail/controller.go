package detail

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"rentdetail/internal/domain/listings"
)

var ErrNoCollection = errors.New("detail: listing collection not configured")

// Fetcher settles once the shared collection reflects the fetched data.
type Fetcher interface {
	FetchAll(ctx context.Context) error
}

// Selector returns the current collection snapshot.
type Selector interface {
	SelectAll() []listings.Listing
}

type Collection interface {
	Fetcher
	Selector
}

// Controller owns the view state for one mounted detail view.
// All transitions are serialized; the fetch continuation is dropped once unmounted.
type Controller struct {
	collection Collection
	logger     *slog.Logger

	mu      sync.Mutex
	id      listings.ListingID
	state   State
	mounted bool
	used    bool
	cancel  context.CancelFunc
	settled chan struct{}
}

func NewController(collection Collection, id string, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		collection: collection,
		logger:     logger,
		id:         listings.ListingID(id),
		state:      Initial(),
		settled:    make(chan struct{}),
	}
}

// Mount enters Loading and issues the single fetch for this controller.
// Mounting again, even after Unmount, does nothing.
func (c *Controller) Mount(ctx context.Context) {
	c.mu.Lock()
	if c.used {
		c.mu.Unlock()
		return
	}
	c.used = true
	c.mounted = true
	c.state = Initial()
	fetchCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	if c.collection == nil {
		go c.settle(ErrNoCollection)
		return
	}
	go func() {
		err := c.collection.FetchAll(fetchCtx)
		c.settle(err)
	}()
}

// Unmount ends the controller lifetime and cancels a pending fetch.
func (c *Controller) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mounted = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) settle(fetchErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		c.logger.Debug("fetch settled after unmount, ignored", "listing_id", c.id, "error", fetchErr)
		return
	}
	if !c.state.Loading() {
		return
	}
	var snapshot []listings.Listing
	if c.collection != nil {
		snapshot = c.collection.SelectAll()
	}
	c.state = c.state.Settle(snapshot, c.id, fetchErr)
	close(c.settled)

	if fetchErr != nil {
		c.logger.Warn("listing fetch failed", "listing_id", c.id, "phase", c.state.Phase.String(), "error", fetchErr)
		return
	}
	c.logger.Debug("listing view settled", "listing_id", c.id, "phase", c.state.Phase.String())
}

// Settled is closed once the controller has left Loading.
func (c *Controller) Settled() <-chan struct{} {
	return c.settled
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}

// Navigate switches the identifier without fetching again.
func (c *Controller) Navigate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = listings.ListingID(id)
	if !c.mounted || c.state.Loading() {
		return
	}
	var snapshot []listings.Listing
	if c.collection != nil {
		snapshot = c.collection.SelectAll()
	}
	c.state = c.state.Renavigate(snapshot, c.id)
}

// ActivateImage opens the overlay and reports whether the transition happened.
func (c *Controller) ActivateImage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return false
	}
	next, ok := c.state.ActivateImage()
	c.state = next
	return ok
}

func (c *Controller) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return
	}
	c.state = c.state.Dismiss()
}

func (c *Controller) Interact(region Region) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return
	}
	c.state = c.state.Interact(region)
}
