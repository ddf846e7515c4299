package catalog

import (
	"context"
	"io"
	"net/url"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-storefront/api"
)

// API wraps the product, category and image upload endpoints.
type API struct {
	client *api.Client
}

func NewAPI(client *api.Client) *API {
	return &API{client: client}
}

func productPath(id string) string {
	return "/api/products/" + url.PathEscape(id)
}

func (a *API) ListProducts(ctx context.Context, filters Filters) (api.Page[Product], error) {
	var page api.Page[Product]
	err := a.client.Get(ctx, "/api/products", &page, api.Query(filters.Values()))
	return page, errors.Wrap(err, "[API.ListProducts]")
}

func (a *API) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := a.client.Get(ctx, productPath(id), &p)
	return p, errors.Wrap(err, "[API.GetProduct]")
}

func (a *API) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	var p Product
	err := a.client.Post(ctx, "/api/products", in, &p)
	return p, errors.Wrap(err, "[API.CreateProduct]")
}

func (a *API) UpdateProduct(ctx context.Context, id string, update ProductUpdate) (Product, error) {
	var p Product
	err := a.client.Put(ctx, productPath(id), update, &p)
	return p, errors.Wrap(err, "[API.UpdateProduct]")
}

func (a *API) DeleteProduct(ctx context.Context, id string) error {
	return errors.Wrap(a.client.Delete(ctx, productPath(id), nil), "[API.DeleteProduct]")
}

func (a *API) UpdateInventory(ctx context.Context, id string, quantity int) (Product, error) {
	var p Product
	err := a.client.Patch(ctx, productPath(id)+"/inventory", map[string]int{"quantity": quantity}, &p)
	return p, errors.Wrap(err, "[API.UpdateInventory]")
}

func (a *API) ListCategories(ctx context.Context) ([]Category, error) {
	var list []Category
	err := a.client.Get(ctx, "/api/categories", &list)
	return list, errors.Wrap(err, "[API.ListCategories]")
}

func (a *API) CreateCategory(ctx context.Context, in CategoryInput) (Category, error) {
	var c Category
	err := a.client.Post(ctx, "/api/categories", in, &c)
	return c, errors.Wrap(err, "[API.CreateCategory]")
}

// UploadImage sends an image as the multipart "file" field.
func (a *API) UploadImage(ctx context.Context, filename string, content io.Reader) (UploadedImage, error) {
	var img UploadedImage
	err := a.client.Upload(ctx, "/api/upload/image", "file", filename, content, &img)
	return img, errors.Wrap(err, "[API.UploadImage]")
}
