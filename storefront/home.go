package storefront

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/jrsteele09/go-storefront/api"
	"github.com/jrsteele09/go-storefront/catalog"
)

// Home is what the landing page shows.
type Home struct {
	Categories []catalog.Category
	Products   api.Page[catalog.Product]
}

// Home loads the categories and the first product page concurrently.
func (a *App) Home(ctx context.Context) (Home, error) {
	var home Home
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := a.Categories.Fetch(gctx)
		home.Categories = list
		return err
	})
	g.Go(func() error {
		page, err := a.Products.Fetch(gctx, catalog.Filters{Page: 1})
		home.Products = page
		return err
	})
	if err := g.Wait(); err != nil {
		return home, errors.Wrap(err, "[App.Home]")
	}
	return home, nil
}
