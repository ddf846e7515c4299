// Package catalog is product and category browsing plus the admin catalog mutations.
// Stores apply the server's answer to their local lists instead of reloading them.
package catalog

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-storefront/api"
	sferrors "github.com/jrsteele09/go-storefront/internal/errors"
)

type ProductStore struct {
	api *API

	mu       sync.RWMutex
	products []Product
	current  *Product
	total    int
	page     int
	pageSize int
	filters  Filters
	lastErr  string
}

func NewProductStore(a *API, pageSize int) *ProductStore {
	filters := DefaultFilters(pageSize)
	return &ProductStore{
		api:      a,
		page:     filters.Page,
		pageSize: filters.PageSize,
		filters:  filters,
	}
}

// SetFilters merges into the stored filters without fetching.
func (s *ProductStore) SetFilters(filters Filters) {
	s.mu.Lock()
	s.filters = s.filters.Merge(filters)
	s.mu.Unlock()
}

// Fetch loads the page selected by the stored filters merged with filters.
func (s *ProductStore) Fetch(ctx context.Context, filters Filters) (api.Page[Product], error) {
	s.mu.RLock()
	merged := s.filters.Merge(filters)
	s.mu.RUnlock()

	page, err := s.api.ListProducts(ctx, merged)
	if err != nil {
		s.setError(api.UserMessage(err, "Failed to fetch products"))
		return api.Page[Product]{}, errors.Wrap(err, "[ProductStore.Fetch]")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = page.Items
	s.total = page.Total
	s.page = valueOr(page.Page, DefaultPage)
	s.pageSize = valueOr(page.PageSize, merged.PageSize)
	s.filters = merged
	s.lastErr = ""
	return page, nil
}

func valueOr(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func (s *ProductStore) FetchByID(ctx context.Context, id string) (Product, error) {
	p, err := s.api.GetProduct(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.current = nil
		s.lastErr = api.UserMessage(err, "Failed to fetch product")
		return Product{}, errors.Wrap(err, "[ProductStore.FetchByID]")
	}
	s.current = &p
	s.lastErr = ""
	return p, nil
}

// Create adds the new product at the top of the list.
func (s *ProductStore) Create(ctx context.Context, in ProductInput) (Product, error) {
	if err := in.Validate(); err != nil {
		return Product{}, err
	}
	p, err := s.api.CreateProduct(ctx, in)
	if err != nil {
		s.setError(api.UserMessage(err, "Failed to create product"))
		return Product{}, errors.Wrap(err, "[ProductStore.Create]")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append([]Product{p}, s.products...)
	s.total++
	s.lastErr = ""
	return p, nil
}

// Update swaps the server's version into the list and the current product.
func (s *ProductStore) Update(ctx context.Context, id string, update ProductUpdate) (Product, error) {
	if update.Price != nil && *update.Price < 0 {
		return Product{}, sferrors.Invalidf("price must not be negative")
	}
	p, err := s.api.UpdateProduct(ctx, id, update)
	if err != nil {
		s.setError(api.UserMessage(err, "Failed to update product"))
		return Product{}, errors.Wrap(err, "[ProductStore.Update]")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(id, p)
	s.lastErr = ""
	return p, nil
}

// UpdateInventory sets the stock level; the returned product replaces the cached one.
func (s *ProductStore) UpdateInventory(ctx context.Context, id string, quantity int) (Product, error) {
	if quantity < 0 {
		return Product{}, sferrors.Invalidf("quantity must not be negative")
	}
	p, err := s.api.UpdateInventory(ctx, id, quantity)
	if err != nil {
		s.setError(api.UserMessage(err, "Failed to update inventory"))
		return Product{}, errors.Wrap(err, "[ProductStore.UpdateInventory]")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID != "" {
		s.replace(id, p)
	}
	return p, nil
}

// replace expects s.mu to be held.
func (s *ProductStore) replace(id string, p Product) {
	for i := range s.products {
		if s.products[i].ID == id {
			s.products[i] = p
		}
	}
	if s.current != nil && s.current.ID == id {
		cp := p
		s.current = &cp
	}
}

// Delete removes the product from the list and forgets it as current.
func (s *ProductStore) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteProduct(ctx, id); err != nil {
		s.setError(api.UserMessage(err, "Failed to delete product"))
		return errors.Wrap(err, "[ProductStore.Delete]")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.products = kept
	s.total--
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.lastErr = ""
	return nil
}

func (s *ProductStore) setError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}

func (s *ProductStore) Products() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Product(nil), s.products...)
}

func (s *ProductStore) Current() *Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	p := *s.current
	return &p
}

func (s *ProductStore) ClearCurrent() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

func (s *ProductStore) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

func (s *ProductStore) Page() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

func (s *ProductStore) TotalPages() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return api.TotalPages(s.total, s.pageSize)
}

func (s *ProductStore) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

func (s *ProductStore) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}
