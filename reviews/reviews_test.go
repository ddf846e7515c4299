package reviews_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-storefront/api"
	"github.com/jrsteele09/go-storefront/events"
	sferrors "github.com/jrsteele09/go-storefront/internal/errors"
	"github.com/jrsteele09/go-storefront/internal/utils"
	"github.com/jrsteele09/go-storefront/reviews"
	"github.com/jrsteele09/go-storefront/session"
	"github.com/jrsteele09/go-storefront/storage"
)

type fakeBackend struct {
	mu       sync.Mutex
	requests int
	deleted  []string
	failMine bool
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests++

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/reviews/product/p1":
		writeJSON(w, http.StatusOK, []reviews.Review{
			{ID: "r1", ProductID: "p1", UserID: "u1", Rating: 5},
			{ID: "r2", ProductID: "p1", UserID: "u2", Rating: 2},
		})
	case r.Method == http.MethodGet && r.URL.Path == "/api/reviews/my-reviews":
		if b.failMine {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "reviews unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, []reviews.Review{{ID: "r1", ProductID: "p1", UserID: "u1", Rating: 5}})
	case r.Method == http.MethodPost && r.URL.Path == "/api/reviews":
		var in reviews.CreateInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		writeJSON(w, http.StatusCreated, reviews.Review{ID: "r3", ProductID: in.ProductID, UserID: "u1", Rating: in.Rating, Comment: in.Comment})
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/api/reviews/"):
		var in reviews.UpdateInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		id := strings.TrimPrefix(r.URL.Path, "/api/reviews/")
		writeJSON(w, http.StatusOK, reviews.Review{ID: id, ProductID: "p1", UserID: "u1", Rating: utils.ValueOr(in.Rating, 5), Comment: utils.Value(in.Comment)})
	case r.Method == http.MethodDelete && r.URL.Path == "/api/reviews/missing":
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Review not found"})
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/reviews/"):
		b.deleted = append(b.deleted, strings.TrimPrefix(r.URL.Path, "/api/reviews/"))
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

func (b *fakeBackend) snapshot() (int, []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests, append([]string(nil), b.deleted...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type testFixture struct {
	backend *fakeBackend
	store   *reviews.Store
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	backend := &fakeBackend{}
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	client := api.NewClient(server.URL, session.NewTokens(storage.NewMemory()), events.NewBus(),
		api.WithAfterFunc(func(time.Duration, func()) {}))
	return &testFixture{
		backend: backend,
		store:   reviews.NewStore(reviews.NewAPI(client)),
	}
}

func TestInput_Validate(t *testing.T) {
	require.NoError(t, reviews.CreateInput{ProductID: "p1", Rating: 1}.Validate())
	require.NoError(t, reviews.CreateInput{ProductID: "p1", Rating: 5}.Validate())
	require.ErrorIs(t, reviews.CreateInput{ProductID: "p1", Rating: 0}.Validate(), sferrors.ErrInvalidInput)
	require.ErrorIs(t, reviews.CreateInput{ProductID: "p1", Rating: 6}.Validate(), sferrors.ErrInvalidInput)
	require.ErrorIs(t, reviews.CreateInput{Rating: 3}.Validate(), sferrors.ErrInvalidInput)

	require.NoError(t, reviews.UpdateInput{Comment: utils.Ptr("meh")}.Validate())
	require.ErrorIs(t, reviews.UpdateInput{}.Validate(), sferrors.ErrInvalidInput)
	require.ErrorIs(t, reviews.UpdateInput{Rating: utils.Ptr(9)}.Validate(), sferrors.ErrInvalidInput)
}

func TestStore_ListMutations(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.store.FetchProduct(ctx, "p1")
	require.NoError(t, err)
	_, err = f.store.FetchMine(ctx)
	require.NoError(t, err)
	require.InDelta(t, 3.5, reviews.AverageRating(f.store.ProductReviews()), 0.001)

	t.Run("create prepends to both lists", func(t *testing.T) {
		r, err := f.store.Create(ctx, reviews.CreateInput{ProductID: "p1", Rating: 4, Comment: "good"})
		require.NoError(t, err)
		require.Equal(t, "r3", r.ID)
		require.Equal(t, "r3", f.store.ProductReviews()[0].ID)
		require.Equal(t, "r3", f.store.MyReviews()[0].ID)
		require.Len(t, f.store.ProductReviews(), 3)
	})

	t.Run("invalid rating is rejected before dispatch", func(t *testing.T) {
		before, _ := f.backend.snapshot()
		_, err := f.store.Create(ctx, reviews.CreateInput{ProductID: "p1", Rating: 7})
		require.ErrorIs(t, err, sferrors.ErrInvalidInput)
		after, _ := f.backend.snapshot()
		require.Equal(t, before, after)
	})

	t.Run("update replaces everywhere", func(t *testing.T) {
		require.True(t, f.store.Select("r1"))
		_, err := f.store.Update(ctx, "r1", reviews.UpdateInput{Rating: utils.Ptr(3), Comment: utils.Ptr("changed my mind")})
		require.NoError(t, err)
		require.Equal(t, "changed my mind", f.store.Current().Comment)
		for _, list := range [][]reviews.Review{f.store.ProductReviews(), f.store.MyReviews()} {
			for _, r := range list {
				if r.ID == "r1" {
					require.Equal(t, 3, r.Rating)
				}
			}
		}
	})

	t.Run("delete filters both lists and clears current", func(t *testing.T) {
		require.NoError(t, f.store.Delete(ctx, "r1"))
		require.Nil(t, f.store.Current())
		_, deleted := f.backend.snapshot()
		require.Equal(t, []string{"r1"}, deleted)
		for _, r := range append(f.store.ProductReviews(), f.store.MyReviews()...) {
			require.NotEqual(t, "r1", r.ID)
		}
		require.False(t, f.store.Select("r1"))
	})

	t.Run("failed delete keeps lists", func(t *testing.T) {
		before := f.store.ProductReviews()
		err := f.store.Delete(ctx, "missing")
		require.True(t, api.IsStatus(err, http.StatusNotFound))
		require.Equal(t, "Review not found", f.store.LastError())
		require.Equal(t, before, f.store.ProductReviews())
	})
}

func TestStore_FetchMineFailure(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.store.FetchMine(ctx)
	require.NoError(t, err)
	require.Len(t, f.store.MyReviews(), 1)

	f.backend.mu.Lock()
	f.backend.failMine = true
	f.backend.mu.Unlock()
	_, err = f.store.FetchMine(ctx)
	require.Error(t, err)
	require.Empty(t, f.store.MyReviews())
	require.Equal(t, "reviews unavailable", f.store.LastError())
}

func TestAverageRating_Empty(t *testing.T) {
	require.Zero(t, reviews.AverageRating(nil))
}
