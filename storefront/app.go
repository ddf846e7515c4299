// Package storefront wires the storefront client together from configuration: durable
// storage, the session, the HTTP client and every domain store built on top of them.
package storefront

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-storefront/addresses"
	"github.com/jrsteele09/go-storefront/api"
	"github.com/jrsteele09/go-storefront/cart"
	"github.com/jrsteele09/go-storefront/catalog"
	"github.com/jrsteele09/go-storefront/events"
	"github.com/jrsteele09/go-storefront/internal/config"
	"github.com/jrsteele09/go-storefront/orders"
	"github.com/jrsteele09/go-storefront/reviews"
	"github.com/jrsteele09/go-storefront/session"
	"github.com/jrsteele09/go-storefront/storage"
	"github.com/jrsteele09/go-storefront/storage/redisstore"
)

type Option func(*options)

type options struct {
	navigator  api.Navigator
	httpClient *http.Client
	clientOpts []api.Option
}

// WithNavigator installs the hook used to send the user back to login after a 401.
func WithNavigator(n api.Navigator) Option {
	return func(o *options) {
		o.navigator = n
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithClientOptions passes extra options straight to the api.Client.
func WithClientOptions(opts ...api.Option) Option {
	return func(o *options) {
		o.clientOpts = append(o.clientOpts, opts...)
	}
}

// App owns every long-lived component of the client.
type App struct {
	Storage storage.Storage
	Bus     *events.Bus
	Tokens  *session.Tokens
	Client  *api.Client

	Session     *session.Store
	Auth        *session.AuthAPI
	Cart        *cart.Cache
	Products    *catalog.ProductStore
	Categories  *catalog.CategoryStore
	Catalog     *catalog.API
	Orders      *orders.Store
	AdminOrders *orders.AdminStore
	Reviews     *reviews.Store
	Addresses   *addresses.Book

	watcher storage.Watcher
	closer  io.Closer

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New opens the configured storage and builds the App on top of it.
func New(cfg config.Config, opts ...Option) (*App, error) {
	base, closer, err := openStorage(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "[storefront.New]")
	}
	app, err := NewWithStorage(cfg, base, opts...)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	app.closer = closer
	return app, nil
}

// NewWithStorage builds the App on an already opened store. When the store is a
// storage.Watcher, Start follows changes made by other processes sharing it.
func NewWithStorage(cfg config.Config, base storage.Storage, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	app := &App{Bus: events.NewBus()}
	if w, ok := base.(storage.Watcher); ok {
		app.watcher = w
	}

	app.Storage = base
	if pass := cfg.GetStoragePassphrase(); pass != "" {
		vault, err := storage.NewVault(base, pass)
		if err != nil {
			return nil, errors.Wrap(err, "[storefront.NewWithStorage]")
		}
		app.Storage = vault
	}

	clientOpts := []api.Option{api.WithRedirectDelay(cfg.GetLoginRedirectDelay())}
	switch {
	case o.httpClient != nil:
		clientOpts = append(clientOpts, api.WithHTTPClient(o.httpClient))
	case cfg.GetAPITimeout() > 0:
		clientOpts = append(clientOpts, api.WithHTTPClient(&http.Client{Timeout: cfg.GetAPITimeout()}))
	}
	if o.navigator != nil {
		clientOpts = append(clientOpts, api.WithNavigator(o.navigator))
	}
	clientOpts = append(clientOpts, o.clientOpts...)

	app.Tokens = session.NewTokens(app.Storage)
	app.Client = api.NewClient(cfg.GetAPIBaseURL(), app.Tokens, app.Bus, clientOpts...)
	app.Auth = session.NewAuthAPI(app.Client)
	app.Session = session.NewStore(app.Tokens, app.Bus, app.Auth)
	app.Cart = cart.NewCache(cart.NewAPI(app.Client), app.Tokens, app.Bus)

	app.Catalog = catalog.NewAPI(app.Client)
	app.Products = catalog.NewProductStore(app.Catalog, cfg.GetPageSize())
	app.Categories = catalog.NewCategoryStore(app.Catalog)

	orderAPI := orders.NewAPI(app.Client)
	app.Orders = orders.NewStore(orderAPI)
	app.AdminOrders = orders.NewAdminStore(orderAPI, cfg.GetPageSize())

	app.Reviews = reviews.NewStore(reviews.NewAPI(app.Client))
	app.Addresses = addresses.NewBook(app.Storage, addresses.WithOwner(func() string {
		if u := app.Session.User(); u != nil {
			return u.ID
		}
		return ""
	}))
	return app, nil
}

func openStorage(cfg config.StorageConfig) (storage.Storage, io.Closer, error) {
	switch cfg.GetStorageDriver() {
	case config.StorageDriverMemory:
		return storage.NewMemory(), nil, nil
	case config.StorageDriverRedis:
		s, err := redisstore.Open(cfg.GetRedisURL(), redisstore.WithPrefix(cfg.GetStorageNamespace()+":"))
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		s, err := storage.NewFile(cfg.GetStoragePath())
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	}
}

// Start restores the session from storage, begins following other processes when the
// store supports it and loads the cart. A failed cart load is logged, not returned.
func (a *App) Start(ctx context.Context) error {
	a.Session.Initialize()
	log.Info().Str("state", a.Session.State().String()).Msg("session initialized")

	if a.watcher != nil {
		a.mu.Lock()
		if a.cancel == nil {
			watchCtx, cancel := context.WithCancel(context.Background())
			a.cancel = cancel
			a.wg.Add(1)
			go a.watch(watchCtx)
		}
		a.mu.Unlock()
	}

	if err := a.Cart.Fetch(ctx); err != nil {
		log.Err(err).Msg("initial cart load")
	}
	return nil
}

func (a *App) watch(ctx context.Context) {
	defer a.wg.Done()
	if err := a.watcher.Watch(ctx, a.onStorageChange); err != nil && ctx.Err() == nil {
		log.Err(err).Msg("storage watch stopped")
	}
}

// Close stops following storage changes, detaches every subscriber and releases storage.
func (a *App) Close() error {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	a.wg.Wait()

	a.Session.Close()
	a.Cart.Close()
	if a.closer != nil {
		return errors.Wrap(a.closer.Close(), "[App.Close]")
	}
	return nil
}
