package reviews

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-storefront/api"
)

// Store keeps the reviews of the product being viewed alongside the caller's own reviews.
type Store struct {
	api *API

	mu      sync.RWMutex
	product []Review
	mine    []Review
	current *Review
	lastErr string
}

func NewStore(a *API) *Store {
	return &Store{api: a}
}

// FetchProduct replaces the product list. On failure the list is emptied.
func (s *Store) FetchProduct(ctx context.Context, productID string) ([]Review, error) {
	list, err := s.api.ProductReviews(ctx, productID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.product = nil
		s.lastErr = api.UserMessage(err, "Failed to fetch reviews")
		return nil, errors.Wrap(err, "[Store.FetchProduct]")
	}
	s.product = list
	s.lastErr = ""
	return append([]Review(nil), list...), nil
}

// FetchMine replaces the caller's list. On failure the list is emptied.
func (s *Store) FetchMine(ctx context.Context) ([]Review, error) {
	list, err := s.api.MyReviews(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.mine = nil
		s.lastErr = api.UserMessage(err, "Failed to fetch my reviews")
		return nil, errors.Wrap(err, "[Store.FetchMine]")
	}
	s.mine = list
	s.lastErr = ""
	return append([]Review(nil), list...), nil
}

// Create puts the new review first in both lists.
func (s *Store) Create(ctx context.Context, in CreateInput) (Review, error) {
	if err := in.Validate(); err != nil {
		return Review{}, err
	}
	r, err := s.api.Create(ctx, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = api.UserMessage(err, "Failed to create review")
		return Review{}, errors.Wrap(err, "[Store.Create]")
	}
	s.product = append([]Review{r}, s.product...)
	s.mine = append([]Review{r}, s.mine...)
	s.lastErr = ""
	return r, nil
}

func (s *Store) Update(ctx context.Context, id string, in UpdateInput) (Review, error) {
	if err := in.Validate(); err != nil {
		return Review{}, err
	}
	r, err := s.api.Update(ctx, id, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = api.UserMessage(err, "Failed to update review")
		return Review{}, errors.Wrap(err, "[Store.Update]")
	}
	replace(s.product, id, r)
	replace(s.mine, id, r)
	if s.current != nil && s.current.ID == id {
		current := r
		s.current = &current
	}
	s.lastErr = ""
	return r, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.api.Delete(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = api.UserMessage(err, "Failed to delete review")
		return errors.Wrap(err, "[Store.Delete]")
	}
	s.product = without(s.product, id)
	s.mine = without(s.mine, id)
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.lastErr = ""
	return nil
}

// Select makes a loaded review current. The backend has no lookup by id, so only
// reviews already in one of the lists can be selected.
func (s *Store) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, list := range [][]Review{s.product, s.mine} {
		for _, r := range list {
			if r.ID == id {
				current := r
				s.current = &current
				return true
			}
		}
	}
	return false
}

func (s *Store) ClearCurrent() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

func (s *Store) ProductReviews() []Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Review(nil), s.product...)
}

func (s *Store) MyReviews() []Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Review(nil), s.mine...)
}

func (s *Store) Current() *Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	r := *s.current
	return &r
}

func (s *Store) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// AverageRating is 0 for an empty list.
func AverageRating(list []Review) float64 {
	if len(list) == 0 {
		return 0
	}
	sum := 0
	for _, r := range list {
		sum += r.Rating
	}
	return float64(sum) / float64(len(list))
}

func replace(list []Review, id string, r Review) {
	for i := range list {
		if list[i].ID == id {
			list[i] = r
		}
	}
}

func without(list []Review, id string) []Review {
	out := list[:0:0]
	for _, r := range list {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
