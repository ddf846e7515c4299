package orders

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-storefront/api"
)

const (
	DefaultSortBy    = "createdAt"
	DefaultSortOrder = "desc"
)

// AdminStore backs the order management screen: a filtered, paginated listing.
type AdminStore struct {
	api             *API
	defaultPageSize int

	mu      sync.RWMutex
	filters AdminFilters
	page    api.Page[Order]
	current *Order
}

func NewAdminStore(a *API, pageSize int) *AdminStore {
	if pageSize < 1 {
		pageSize = 10
	}
	return &AdminStore{
		api:             a,
		defaultPageSize: pageSize,
		filters: AdminFilters{
			Page:      1,
			PageSize:  pageSize,
			SortBy:    DefaultSortBy,
			SortOrder: DefaultSortOrder,
		},
	}
}

// Fetch merges filters over the previous ones and loads that page. Only non-zero fields override.
func (s *AdminStore) Fetch(ctx context.Context, filters AdminFilters) (api.Page[Order], error) {
	s.mu.Lock()
	merged := mergeFilters(s.filters, filters)
	s.filters = merged
	s.mu.Unlock()

	page, err := s.api.AdminList(ctx, merged)
	if err != nil {
		return api.Page[Order]{}, errors.Wrap(err, "[AdminStore.Fetch]")
	}
	if page.PageSize == 0 {
		page.PageSize = merged.PageSize
	}
	if page.Page == 0 {
		page.Page = merged.Page
	}

	s.mu.Lock()
	s.page = page
	s.mu.Unlock()
	return page, nil
}

func mergeFilters(base, override AdminFilters) AdminFilters {
	if override.Page > 0 {
		base.Page = override.Page
	}
	if override.PageSize > 0 {
		base.PageSize = override.PageSize
	}
	if override.Status != "" {
		base.Status = override.Status
	}
	if override.UserID != "" {
		base.UserID = override.UserID
	}
	if override.SortBy != "" {
		base.SortBy = override.SortBy
	}
	if override.SortOrder != "" {
		base.SortOrder = override.SortOrder
	}
	return base
}

// ResetFilters drops status and user filters and returns to the first page.
func (s *AdminStore) ResetFilters() {
	s.mu.Lock()
	s.filters = AdminFilters{Page: 1, PageSize: s.defaultPageSize, SortBy: DefaultSortBy, SortOrder: DefaultSortOrder}
	s.mu.Unlock()
}

func (s *AdminStore) Get(ctx context.Context, orderID string) (Order, error) {
	o, err := s.api.AdminGet(ctx, orderID)
	if err != nil {
		return Order{}, errors.Wrap(err, "[AdminStore.Get]")
	}
	s.mu.Lock()
	s.current = &o
	s.mu.Unlock()
	return o, nil
}

// UpdateStatus changes an order's status and reloads the current page.
func (s *AdminStore) UpdateStatus(ctx context.Context, orderID string, status Status) error {
	if _, err := ParseStatus(string(status)); err != nil {
		return err
	}
	if _, err := s.api.AdminUpdateStatus(ctx, orderID, status); err != nil {
		return errors.Wrap(err, "[AdminStore.UpdateStatus]")
	}
	_, err := s.Fetch(ctx, AdminFilters{})
	return err
}

func (s *AdminStore) Filters() AdminFilters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

func (s *AdminStore) Page() api.Page[Order] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.page
	p.Items = append([]Order(nil), s.page.Items...)
	return p
}

func (s *AdminStore) TotalPages() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return api.TotalPages(s.page.Total, s.filters.PageSize)
}

func (s *AdminStore) Current() *Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	o := *s.current
	return &o
}
