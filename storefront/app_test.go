package storefront_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-storefront/api"
	"github.com/jrsteele09/go-storefront/cart"
	"github.com/jrsteele09/go-storefront/catalog"
	"github.com/jrsteele09/go-storefront/internal/config"
	"github.com/jrsteele09/go-storefront/internal/metrics"
	"github.com/jrsteele09/go-storefront/session"
	"github.com/jrsteele09/go-storefront/storage"
	"github.com/jrsteele09/go-storefront/storage/redisstore"
	"github.com/jrsteele09/go-storefront/storefront"
	"github.com/jrsteele09/go-storefront/users"
)

const validToken = "tok-1"

type fakeBackend struct {
	mu           sync.Mutex
	failProducts bool
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/auth/login":
		writeJSON(w, http.StatusOK, session.LoginResponse{
			AccessToken:  validToken,
			RefreshToken: "ref-1",
			User:         &users.Profile{ID: "u1", Email: "ada@example.com", Role: users.RoleCustomer},
		})
	case r.URL.Path == "/api/carts":
		if r.Header.Get("Authorization") != "Bearer "+validToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, cart.Cart{ID: "c1", UserID: "u1", TotalItems: 2, TotalPrice: 20,
			Items: []cart.Item{{ID: "i1", ProductID: "p1", Quantity: 2, ProductPrice: 10, Subtotal: 20}}})
	case r.URL.Path == "/api/categories":
		writeJSON(w, http.StatusOK, []catalog.Category{{ID: "c1", Name: "Shoes", Slug: "shoes"}})
	case r.URL.Path == "/api/products":
		if b.failProducts {
			writeJSON(w, http.StatusBadGateway, map[string]string{"message": "catalog offline"})
			return
		}
		writeJSON(w, http.StatusOK, api.Page[catalog.Product]{
			Items: []catalog.Product{{ID: "p1", Name: "Shoe"}}, Total: 1, Page: 1, PageSize: 10,
		})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type testFixture struct {
	backend *fakeBackend
	cfg     config.EnvVars
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	backend := &fakeBackend{}
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	return &testFixture{
		backend: backend,
		cfg: config.EnvVars{
			AppName:            "ShopSphere",
			Env:                "TEST",
			APIBaseURL:         server.URL + "/",
			StorageDriver:      config.StorageDriverMemory,
			LoginRedirectDelay: time.Millisecond,
			PageSize:           10,
		},
	}
}

func (f *testFixture) start(t *testing.T, base storage.Storage) *storefront.App {
	t.Helper()
	app, err := storefront.NewWithStorage(f.cfg, base)
	require.NoError(t, err)
	require.NoError(t, app.Start(context.Background()))
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func remoteInvalidations() float64 {
	return testutil.ToFloat64(metrics.SessionInvalidations.WithLabelValues(metrics.ReasonRemote))
}

// exerciseSessionSync logs in and out on one app and checks the other follows.
func exerciseSessionSync(t *testing.T, a, b *storefront.App) {
	t.Helper()
	ctx := context.Background()
	require.False(t, b.Session.IsAuthenticated())
	require.Nil(t, b.Cart.Snapshot())

	require.NoError(t, a.Session.Login(ctx, "ada@example.com", "secret1"))
	require.True(t, a.Session.IsAuthenticated())
	require.NotNil(t, a.Cart.Snapshot())

	require.Eventually(t, func() bool {
		return b.Session.IsAuthenticated() && b.Cart.Snapshot() != nil
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "u1", b.Session.User().ID)
	require.Equal(t, 2, b.Cart.TotalItems())

	before := remoteInvalidations()
	require.NoError(t, a.Session.Logout())
	require.Eventually(t, func() bool {
		return !b.Session.IsAuthenticated() && b.Cart.Snapshot() == nil
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, before+1, remoteInvalidations())
	require.Nil(t, b.Session.User())
}

func TestSessionSync_Memory(t *testing.T) {
	f := setupTestFixture(t)
	shared := storage.NewMemory()

	a := f.start(t, shared)
	b := f.start(t, shared.Peer())
	require.Eventually(t, func() bool { return shared.Watchers() == 2 }, time.Second, 5*time.Millisecond)

	exerciseSessionSync(t, a, b)
}

func TestSessionSync_Redis(t *testing.T) {
	f := setupTestFixture(t)
	mr := miniredis.RunT(t)

	newStore := func() *redisstore.Store {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return redisstore.New(client, redisstore.WithPrefix("test:"))
	}
	a := f.start(t, newStore())
	b := f.start(t, newStore())

	watcher := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = watcher.Close() })
	require.Eventually(t, func() bool {
		subs, err := watcher.PubSubNumSub(context.Background(), "test:changes").Result()
		return err == nil && subs["test:changes"] == 2
	}, 2*time.Second, 10*time.Millisecond)

	exerciseSessionSync(t, a, b)
}

func TestSessionSync_EncryptedPeers(t *testing.T) {
	f := setupTestFixture(t)
	f.cfg.StoragePassphrase = "correct horse"
	shared := storage.NewMemory()

	a := f.start(t, shared)
	b := f.start(t, shared.Peer())
	require.Eventually(t, func() bool { return shared.Watchers() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, a.Session.Login(context.Background(), "ada@example.com", "secret1"))
	raw, err := shared.Get(session.KeyAccessToken)
	require.NoError(t, err)
	require.NotEqual(t, validToken, raw)

	require.Eventually(t, b.Session.IsAuthenticated, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, validToken, b.Tokens.AccessToken())
}

func TestStart_RestoresSession(t *testing.T) {
	f := setupTestFixture(t)
	shared := storage.NewMemory()
	tokens := session.NewTokens(shared)
	require.NoError(t, tokens.Save(validToken, "", users.Profile{ID: "u1", Email: "ada@example.com"}))

	app := f.start(t, shared)
	require.True(t, app.Session.IsAuthenticated())
	require.NotNil(t, app.Cart.Snapshot())
	require.Equal(t, "c1", app.Cart.Snapshot().ID)
}

func TestStart_RejectedTokenResetsCart(t *testing.T) {
	f := setupTestFixture(t)
	shared := storage.NewMemory()
	require.NoError(t, session.NewTokens(shared).Save("expired", "", users.Profile{ID: "u1", Email: "ada@example.com"}))

	app := f.start(t, shared)
	require.False(t, app.Session.IsAuthenticated())
	require.Nil(t, app.Cart.Snapshot())
	require.False(t, storage.Has(shared, session.KeyAccessToken))
}

func TestHome(t *testing.T) {
	f := setupTestFixture(t)
	app := f.start(t, storage.NewMemory())

	home, err := app.Home(context.Background())
	require.NoError(t, err)
	require.Len(t, home.Categories, 1)
	require.Len(t, home.Products.Items, 1)
	require.Equal(t, "Shoes", app.Categories.Name("c1"))

	f.backend.mu.Lock()
	f.backend.failProducts = true
	f.backend.mu.Unlock()
	_, err = app.Home(context.Background())
	require.Error(t, err)
	require.Equal(t, "catalog offline", app.Products.LastError())
}

func TestNew_Drivers(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("memory", func(t *testing.T) {
		app, err := storefront.New(f.cfg)
		require.NoError(t, err)
		require.NoError(t, app.Close())
	})

	t.Run("file", func(t *testing.T) {
		cfg := f.cfg
		cfg.StorageDriver = config.StorageDriverFile
		cfg.StoragePath = filepath.Join(t.TempDir(), "storage.json")

		app, err := storefront.New(cfg)
		require.NoError(t, err)
		require.NoError(t, app.Session.Login(context.Background(), "ada@example.com", "secret1"))
		require.NoError(t, app.Close())

		reopened, err := storefront.New(cfg)
		require.NoError(t, err)
		require.NoError(t, reopened.Start(context.Background()))
		require.True(t, reopened.Session.IsAuthenticated())
		require.NoError(t, reopened.Close())
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := f.cfg
		cfg.StorageDriver = config.StorageDriverRedis
		cfg.RedisURL = "redis://" + mr.Addr() + "/0"
		cfg.StorageNamespace = "shop"

		app, err := storefront.New(cfg)
		require.NoError(t, err)
		require.NoError(t, app.Session.Login(context.Background(), "ada@example.com", "secret1"))
		require.Equal(t, validToken, mustGet(t, mr, "shop:"+session.KeyAccessToken))
		require.NoError(t, app.Close())
	})

	t.Run("bad redis url", func(t *testing.T) {
		cfg := f.cfg
		cfg.StorageDriver = config.StorageDriverRedis
		cfg.RedisURL = "not a url"
		_, err := storefront.New(cfg)
		require.Error(t, err)
	})
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
