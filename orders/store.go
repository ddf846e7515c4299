// Package orders covers the customer order history, cash-on-delivery confirmation and the
// admin order back office.
package orders

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jrsteele09/go-storefront/api"
)

// Store mirrors the signed-in customer's orders.
type Store struct {
	api *API

	mu      sync.RWMutex
	orders  []Order
	current *Order
	lastErr string
}

func NewStore(a *API) *Store {
	return &Store{api: a}
}

// FetchMine replaces the list with the server's. On failure the list is emptied.
func (s *Store) FetchMine(ctx context.Context) ([]Order, error) {
	list, err := s.api.MyOrders(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.orders = nil
		s.lastErr = api.UserMessage(err, "Failed to fetch orders")
		return nil, errors.Wrap(err, "[Store.FetchMine]")
	}
	s.orders = list
	s.lastErr = ""
	return append([]Order(nil), list...), nil
}

// Create places an order, puts it first in the list and makes it current.
func (s *Store) Create(ctx context.Context, in CreateInput) (Order, error) {
	if err := in.Validate(); err != nil {
		return Order{}, err
	}
	o, err := s.api.Create(ctx, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = api.UserMessage(err, "Failed to create order")
		return Order{}, errors.Wrap(err, "[Store.Create]")
	}
	s.orders = append([]Order{o}, s.orders...)
	current := o
	s.current = &current
	s.lastErr = ""
	return o, nil
}

// ConfirmCashOnDelivery marks every order of a checkout COMPLETED. The updates run
// concurrently and the first failure is returned.
func (s *Store) ConfirmCashOnDelivery(ctx context.Context, set Set) error {
	if len(set) == 0 {
		return errors.New("[Store.ConfirmCashOnDelivery] no orders to confirm")
	}

	g, gctx := errgroup.WithContext(ctx)
	updated := make([]Order, len(set))
	for i, o := range set {
		g.Go(func() error {
			u, err := s.api.UpdateStatus(gctx, o.ID, StatusCompleted)
			if err != nil {
				return err
			}
			updated[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.mu.Lock()
		s.lastErr = api.UserMessage(err, "Payment failed. Please try again.")
		s.mu.Unlock()
		return errors.Wrap(err, "[Store.ConfirmCashOnDelivery]")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, u := range updated {
		if u.ID == "" {
			u = set[i]
			u.Status = StatusCompleted
		}
		s.replace(u)
	}
	log.Info().Int("orders", len(set)).Msg("cash on delivery confirmed")
	return nil
}

// replace swaps o into the list and current when present. Callers hold s.mu.
func (s *Store) replace(o Order) {
	for i := range s.orders {
		if s.orders[i].ID == o.ID {
			s.orders[i] = o
		}
	}
	if s.current != nil && s.current.ID == o.ID {
		current := o
		s.current = &current
	}
}

func (s *Store) Orders() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Order(nil), s.orders...)
}

func (s *Store) Current() *Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	o := *s.current
	return &o
}

func (s *Store) ClearCurrent() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}
