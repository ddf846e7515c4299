package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-storefront/api"
	sferrors "github.com/jrsteele09/go-storefront/internal/errors"
)

type CategoryStore struct {
	api *API

	mu         sync.RWMutex
	categories []Category
	lastErr    string
}

func NewCategoryStore(a *API) *CategoryStore {
	return &CategoryStore{api: a}
}

// Fetch replaces the list. On failure the list is emptied.
func (s *CategoryStore) Fetch(ctx context.Context) ([]Category, error) {
	list, err := s.api.ListCategories(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.categories = nil
		s.lastErr = api.UserMessage(err, "Failed to fetch categories")
		return nil, errors.Wrap(err, "[CategoryStore.Fetch]")
	}
	s.categories = list
	s.lastErr = ""
	return append([]Category(nil), list...), nil
}

// Create appends the new category to the end of the list.
func (s *CategoryStore) Create(ctx context.Context, in CategoryInput) (Category, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Slug) == "" {
		return Category{}, sferrors.Invalidf("name and slug are required")
	}
	c, err := s.api.CreateCategory(ctx, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = api.UserMessage(err, "Failed to create category")
		return Category{}, errors.Wrap(err, "[CategoryStore.Create]")
	}
	s.categories = append(s.categories, c)
	s.lastErr = ""
	return c, nil
}

func (s *CategoryStore) Categories() []Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Category(nil), s.categories...)
}

// Name resolves a category id, returning "" when unknown.
func (s *CategoryStore) Name(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

func (s *CategoryStore) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}
