package orders_test

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
	"github.com/jrsteele09/go-storefront/orders"
	"github.com/jrsteele09/go-storefront/session"
	"github.com/jrsteele09/go-storefront/storage"
	"github.com/jrsteele09/go-storefront/users"
)

type fakeBackend struct {
	mu             sync.Mutex
	orders         map[string]orders.Order
	failIDs        map[string]bool
	requests       []string
	lastAdminQuery string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		orders: map[string]orders.Order{
			"o1": {ID: "o1", UserID: "u1", Status: orders.StatusPending, Total: 10},
			"o2": {ID: "o2", UserID: "u1", Status: orders.StatusPending, Total: 5},
		},
		failIDs: map[string]bool{},
	}
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, r.Method+" "+r.URL.Path)

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/orders"), "/")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/orders/my-orders":
		writeJSON(w, http.StatusOK, []orders.Order{b.orders["o2"], b.orders["o1"]})

	case r.Method == http.MethodPost && r.URL.Path == "/api/orders":
		var in orders.CreateInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		o := orders.Order{ID: "o3", UserID: "u1", Status: orders.StatusPending, ProductID: in.ProductID, Quantity: in.Quantity, Total: 7}
		b.orders[o.ID] = o
		writeJSON(w, http.StatusCreated, o)

	case r.Method == http.MethodPut && len(parts) == 3 && parts[2] == "status":
		b.updateStatus(w, r, parts[1])

	case r.Method == http.MethodGet && r.URL.Path == "/api/orders/admin/all":
		b.lastAdminQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, map[string]any{
			"items": []orders.Order{b.orders["o1"], b.orders["o2"]},
			"total": 21, "page": 1, "pageSize": 10,
		})

	case r.Method == http.MethodGet && len(parts) == 3 && parts[1] == "admin":
		writeJSON(w, http.StatusOK, b.orders[parts[2]])

	case r.Method == http.MethodPatch && len(parts) == 4 && parts[1] == "admin":
		b.updateStatus(w, r, parts[2])

	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

func (b *fakeBackend) updateStatus(w http.ResponseWriter, r *http.Request, id string) {
	if b.failIDs[id] {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "cannot complete " + id})
		return
	}
	var body struct{ Status orders.Status }
	_ = json.NewDecoder(r.Body).Decode(&body)
	o := b.orders[id]
	o.Status = body.Status
	b.orders[id] = o
	writeJSON(w, http.StatusOK, o)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type testFixture struct {
	backend *fakeBackend
	api     *orders.API
	store   *orders.Store
	admin   *orders.AdminStore
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	backend := newFakeBackend()
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	tokens := session.NewTokens(storage.NewMemory())
	require.NoError(t, tokens.Save("T1", "", users.Profile{ID: "u1", Email: "a@b.com", Role: users.RoleAdmin}))
	client := api.NewClient(server.URL, tokens, events.NewBus(), api.WithAfterFunc(func(time.Duration, func()) {}))

	a := orders.NewAPI(client)
	return &testFixture{
		backend: backend,
		api:     a,
		store:   orders.NewStore(a),
		admin:   orders.NewAdminStore(a, 10),
	}
}

func TestStore_FetchAndCreate(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	list, err := f.store.FetchMine(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "o2", list[0].ID)

	o, err := f.store.Create(ctx, orders.CreateInput{ProductID: "p1", Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, "o3", o.ID)
	require.Equal(t, "o3", f.store.Orders()[0].ID)
	require.Len(t, f.store.Orders(), 3)
	require.Equal(t, "o3", f.store.Current().ID)

	f.store.ClearCurrent()
	require.Nil(t, f.store.Current())

	_, err = f.store.Create(ctx, orders.CreateInput{ProductID: "p1"})
	require.Error(t, err)
	require.Len(t, f.store.Orders(), 3)
}

func TestStore_ConfirmCashOnDelivery(t *testing.T) {
	t.Run("completes every order", func(t *testing.T) {
		f := setupTestFixture(t)
		ctx := context.Background()
		_, err := f.store.FetchMine(ctx)
		require.NoError(t, err)

		set := orders.Set{{ID: "o1"}, {ID: "o2"}}
		require.NoError(t, f.store.ConfirmCashOnDelivery(ctx, set))

		for _, o := range f.store.Orders() {
			require.Equal(t, orders.StatusCompleted, o.Status, o.ID)
		}
		require.Equal(t, orders.StatusCompleted, f.backend.orders["o1"].Status)
		require.Equal(t, orders.StatusCompleted, f.backend.orders["o2"].Status)
	})

	t.Run("any failure fails the confirmation", func(t *testing.T) {
		f := setupTestFixture(t)
		f.backend.failIDs["o2"] = true

		err := f.store.ConfirmCashOnDelivery(context.Background(), orders.Set{{ID: "o1"}, {ID: "o2"}})
		require.Error(t, err)
		require.Equal(t, "cannot complete o2", f.store.LastError())
	})

	t.Run("empty set", func(t *testing.T) {
		f := setupTestFixture(t)
		require.Error(t, f.store.ConfirmCashOnDelivery(context.Background(), nil))
	})
}

func TestAdminStore(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	page, err := f.admin.Fetch(ctx, orders.AdminFilters{Status: orders.StatusPending, UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, 3, f.admin.TotalPages())
	require.Contains(t, f.backend.lastAdminQuery, "status=PENDING")
	require.Contains(t, f.backend.lastAdminQuery, "userId=u1")
	require.Contains(t, f.backend.lastAdminQuery, "sortBy=createdAt")
	require.Contains(t, f.backend.lastAdminQuery, "sortOrder=desc")
	require.Contains(t, f.backend.lastAdminQuery, "pageSize=10")

	_, err = f.admin.Fetch(ctx, orders.AdminFilters{Page: 2})
	require.NoError(t, err)
	filters := f.admin.Filters()
	require.Equal(t, 2, filters.Page)
	require.Equal(t, orders.StatusPending, filters.Status)

	o, err := f.admin.Get(ctx, "o1")
	require.NoError(t, err)
	require.Equal(t, "o1", o.ID)
	require.Equal(t, "o1", f.admin.Current().ID)

	require.NoError(t, f.admin.UpdateStatus(ctx, "o1", orders.StatusCancelled))
	require.Equal(t, orders.StatusCancelled, f.backend.orders["o1"].Status)
	require.Equal(t, orders.StatusCancelled, f.admin.Page().Items[0].Status)
	require.Equal(t, "GET /api/orders/admin/all", f.backend.requests[len(f.backend.requests)-1])

	require.Error(t, f.admin.UpdateStatus(ctx, "o1", "SHIPPED"))

	f.admin.ResetFilters()
	require.Empty(t, f.admin.Filters().Status)
	require.Equal(t, 1, f.admin.Filters().Page)
}
