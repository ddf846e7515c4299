package orders

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-storefront/api"
)

// AdminFilters narrows the admin order listing. Zero values are not sent.
type AdminFilters struct {
	Page      int
	PageSize  int
	Status    Status
	UserID    string
	SortBy    string
	SortOrder string
}

func (f AdminFilters) values() url.Values {
	v := url.Values{}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(f.PageSize))
	}
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	if f.UserID != "" {
		v.Set("userId", f.UserID)
	}
	if f.SortBy != "" {
		v.Set("sortBy", f.SortBy)
	}
	if f.SortOrder != "" {
		v.Set("sortOrder", f.SortOrder)
	}
	return v
}

type API struct {
	client *api.Client
}

func NewAPI(client *api.Client) *API {
	return &API{client: client}
}

type statusBody struct {
	Status Status `json:"status"`
}

func (a *API) Create(ctx context.Context, in CreateInput) (Order, error) {
	var o Order
	err := a.client.Post(ctx, "/api/orders", in, &o)
	return o, errors.Wrap(err, "[API.Create]")
}

func (a *API) MyOrders(ctx context.Context) ([]Order, error) {
	var list []Order
	err := a.client.Get(ctx, "/api/orders/my-orders", &list)
	return list, errors.Wrap(err, "[API.MyOrders]")
}

func (a *API) UpdateStatus(ctx context.Context, orderID string, status Status) (Order, error) {
	var o Order
	err := a.client.Put(ctx, "/api/orders/"+url.PathEscape(orderID)+"/status", statusBody{Status: status}, &o)
	return o, errors.Wrap(err, "[API.UpdateStatus]")
}

func (a *API) AdminList(ctx context.Context, filters AdminFilters) (api.Page[Order], error) {
	var page api.Page[Order]
	err := a.client.Get(ctx, "/api/orders/admin/all", &page, api.Query(filters.values()))
	return page, errors.Wrap(err, "[API.AdminList]")
}

func (a *API) AdminGet(ctx context.Context, orderID string) (Order, error) {
	var o Order
	err := a.client.Get(ctx, "/api/orders/admin/"+url.PathEscape(orderID), &o)
	return o, errors.Wrap(err, "[API.AdminGet]")
}

func (a *API) AdminUpdateStatus(ctx context.Context, orderID string, status Status) (Order, error) {
	var o Order
	err := a.client.Patch(ctx, "/api/orders/admin/"+url.PathEscape(orderID)+"/status", statusBody{Status: status}, &o)
	return o, errors.Wrap(err, "[API.AdminUpdateStatus]")
}
