// Package cart keeps a local mirror of the signed-in user's cart. The server is the only
// source of totals: every successful call replaces the whole snapshot with its response.
package cart

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-storefront/api"
	"github.com/jrsteele09/go-storefront/events"
	"github.com/jrsteele09/go-storefront/orders"
)

// Credentials is what the cache needs from the token store.
type Credentials interface {
	AccessToken() string
	Clear() error
}

// Backend is the cart endpoint surface. *API implements it.
type Backend interface {
	Get(ctx context.Context) (*Cart, error)
	AddItem(ctx context.Context, productID string, quantity int) (*Cart, error)
	UpdateItem(ctx context.Context, itemID string, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, itemID string) (*Cart, error)
	Clear(ctx context.Context) (*Cart, error)
	Checkout(ctx context.Context) (orders.Set, error)
}

var _ Backend = (*API)(nil)

// Cache never holds its lock across a network call or an emit. Concurrent mutations are
// not ordered: whichever response lands last wins.
type Cache struct {
	backend Backend
	creds   Credentials
	bus     *events.Bus

	mu       sync.RWMutex
	snapshot *Cart
	lastErr  string

	// inFlight counts Fetch calls that have reached the backend.
	inFlight atomic.Int32

	unsubscribe func()
}

func NewCache(backend Backend, creds Credentials, bus *events.Bus) *Cache {
	c := &Cache{backend: backend, creds: creds, bus: bus}
	c.unsubscribe = bus.Subscribe(events.CartShouldRefresh, c.onRefresh)
	return c
}

func (c *Cache) Close() {
	c.unsubscribe()
}

// onRefresh skips the signal while a fetch is already running. A 401 inside Fetch emits the
// signal again before Fetch returns, and when the credentials cannot be cleared a nested
// fetch would repeat the same 401 without end.
func (c *Cache) onRefresh() {
	if c.inFlight.Load() > 0 {
		log.Debug().Msg("cart fetch already in flight, refresh skipped")
		return
	}
	if err := c.Fetch(context.Background()); err != nil {
		log.Err(err).Msg("cart refresh")
	}
}

// Fetch reloads the cart. Without an access token the cart is absent and nothing is sent.
// A 401 resets the cart instead of failing; any other error keeps the previous snapshot.
func (c *Cache) Fetch(ctx context.Context) error {
	if c.creds.AccessToken() == "" {
		c.set(nil, "")
		return nil
	}

	c.inFlight.Add(1)
	defer c.inFlight.Add(-1)

	cart, err := c.backend.Get(ctx)
	if api.IsUnauthorized(err) {
		if clearErr := c.creds.Clear(); clearErr != nil {
			log.Err(clearErr).Msg("clearing credentials after cart 401")
		}
		c.set(nil, "")
		c.bus.Emit(events.CartShouldRefresh)
		return nil
	}
	if err != nil {
		c.setError(api.UserMessage(err, "Failed to fetch cart"))
		log.Err(err).Msg("fetching cart")
		return errors.Wrap(err, "[Cache.Fetch]")
	}

	c.set(cart, "")
	return nil
}

func (c *Cache) AddItem(ctx context.Context, productID string, quantity int) (*Cart, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	return c.mutate(func() (*Cart, error) {
		return c.backend.AddItem(ctx, productID, quantity)
	}, "Failed to add to cart")
}

func (c *Cache) UpdateItem(ctx context.Context, itemID string, quantity int) (*Cart, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	return c.mutate(func() (*Cart, error) {
		return c.backend.UpdateItem(ctx, itemID, quantity)
	}, "Failed to update cart item")
}

func (c *Cache) RemoveItem(ctx context.Context, itemID string) (*Cart, error) {
	return c.mutate(func() (*Cart, error) {
		return c.backend.RemoveItem(ctx, itemID)
	}, "Failed to remove from cart")
}

func (c *Cache) Clear(ctx context.Context) (*Cart, error) {
	return c.mutate(func() (*Cart, error) {
		return c.backend.Clear(ctx)
	}, "Failed to clear cart")
}

// mutate applies the server's response as the new snapshot, or records the error and leaves the snapshot.
func (c *Cache) mutate(call func() (*Cart, error), fallback string) (*Cart, error) {
	cart, err := call()
	if err != nil {
		c.setError(api.UserMessage(err, fallback))
		return nil, err
	}
	c.set(cart, "")
	return cart.clone(), nil
}

// Checkout turns the cart into orders. On success the snapshot is always dropped.
func (c *Cache) Checkout(ctx context.Context) (orders.Set, error) {
	set, err := c.backend.Checkout(ctx)
	if err != nil {
		c.setError(api.UserMessage(err, "Failed to checkout"))
		return nil, err
	}
	c.set(nil, "")
	log.Info().Int("orders", len(set)).Msg("checked out")
	return set, nil
}

func (c *Cache) set(cart *Cart, lastErr string) {
	c.mu.Lock()
	c.snapshot = cart
	c.lastErr = lastErr
	c.mu.Unlock()
}

func (c *Cache) setError(msg string) {
	c.mu.Lock()
	c.lastErr = msg
	c.mu.Unlock()
}

// Snapshot returns a copy of the cached cart, or nil when absent.
func (c *Cache) Snapshot() *Cart {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot.clone()
}

// LastError is the user facing message of the most recent failure, cleared by the next success.
func (c *Cache) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func (c *Cache) TotalItems() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		return 0
	}
	return c.snapshot.TotalItems
}
