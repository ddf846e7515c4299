package reviews

import (
	"context"
	"net/url"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-storefront/api"
)

type API struct {
	client *api.Client
}

func NewAPI(client *api.Client) *API {
	return &API{client: client}
}

func reviewPath(id string) string {
	return "/api/reviews/" + url.PathEscape(id)
}

func (a *API) ProductReviews(ctx context.Context, productID string) ([]Review, error) {
	var list []Review
	err := a.client.Get(ctx, "/api/reviews/product/"+url.PathEscape(productID), &list)
	return list, errors.Wrap(err, "[API.ProductReviews]")
}

func (a *API) MyReviews(ctx context.Context) ([]Review, error) {
	var list []Review
	err := a.client.Get(ctx, "/api/reviews/my-reviews", &list)
	return list, errors.Wrap(err, "[API.MyReviews]")
}

func (a *API) Create(ctx context.Context, in CreateInput) (Review, error) {
	var r Review
	err := a.client.Post(ctx, "/api/reviews", in, &r)
	return r, errors.Wrap(err, "[API.Create]")
}

func (a *API) Update(ctx context.Context, id string, in UpdateInput) (Review, error) {
	var r Review
	err := a.client.Put(ctx, reviewPath(id), in, &r)
	return r, errors.Wrap(err, "[API.Update]")
}

func (a *API) Delete(ctx context.Context, id string) error {
	return errors.Wrap(a.client.Delete(ctx, reviewPath(id), nil), "[API.Delete]")
}
