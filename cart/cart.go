package cart

import (
	"context"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-storefront/api"
	sferrors "github.com/jrsteele09/go-storefront/internal/errors"
	"github.com/jrsteele09/go-storefront/orders"
)

type Item struct {
	ID              string  `json:"id"`
	ProductID       string  `json:"productId"`
	ProductName     string  `json:"productName"`
	ProductPrice    float64 `json:"productPrice"`
	ProductImageURL string  `json:"productImageUrl,omitempty"`
	Quantity        int     `json:"quantity"`
	Subtotal        float64 `json:"subtotal"`
}

// Cart is the server's view of the user's cart. Totals are whatever the server computed.
type Cart struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Items      []Item    `json:"items"`
	TotalItems int       `json:"totalItems"`
	TotalPrice float64   `json:"totalPrice"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (c *Cart) clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Items = append([]Item(nil), c.Items...)
	return &cp
}

// Item returns the line for a product, if the cart holds one.
func (c *Cart) Item(productID string) (Item, bool) {
	if c == nil {
		return Item{}, false
	}
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return Item{}, false
}

func validateQuantity(quantity int) error {
	if quantity < 1 {
		return sferrors.Invalidf("quantity must be at least 1, got %d", quantity)
	}
	return nil
}

// API wraps the cart endpoints.
type API struct {
	client *api.Client
}

func NewAPI(client *api.Client) *API {
	return &API{client: client}
}

func (a *API) Get(ctx context.Context) (*Cart, error) {
	var c *Cart
	err := a.client.Get(ctx, "/api/carts", &c)
	return c, errors.Wrap(err, "[API.Get]")
}

func (a *API) AddItem(ctx context.Context, productID string, quantity int) (*Cart, error) {
	var c *Cart
	body := map[string]any{"productId": productID, "quantity": quantity}
	err := a.client.Post(ctx, "/api/carts/items", body, &c)
	return c, errors.Wrap(err, "[API.AddItem]")
}

func (a *API) UpdateItem(ctx context.Context, itemID string, quantity int) (*Cart, error) {
	var c *Cart
	err := a.client.Put(ctx, "/api/carts/items/"+url.PathEscape(itemID), map[string]int{"quantity": quantity}, &c)
	return c, errors.Wrap(err, "[API.UpdateItem]")
}

func (a *API) RemoveItem(ctx context.Context, itemID string) (*Cart, error) {
	var c *Cart
	err := a.client.Delete(ctx, "/api/carts/items/"+url.PathEscape(itemID), &c)
	return c, errors.Wrap(err, "[API.RemoveItem]")
}

// Clear empties the cart. A response without a body yields a nil cart.
func (a *API) Clear(ctx context.Context) (*Cart, error) {
	var c *Cart
	err := a.client.Delete(ctx, "/api/carts", &c)
	return c, errors.Wrap(err, "[API.Clear]")
}

func (a *API) Checkout(ctx context.Context) (orders.Set, error) {
	var set orders.Set
	err := a.client.Post(ctx, "/api/carts/checkout", nil, &set)
	return set, errors.Wrap(err, "[API.Checkout]")
}
