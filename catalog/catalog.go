package catalog

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	sferrors "github.com/jrsteele09/go-storefront/internal/errors"
)

type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Price         float64   `json:"price"`
	SKU           string    `json:"sku"`
	CategoryID    string    `json:"categoryId"`
	CategoryName  string    `json:"categoryName,omitempty"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	AverageRating float64   `json:"averageRating,omitempty"`
	RatingCount   int       `json:"ratingCount,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
}

// ProductInput is the body for creating a product.
type ProductInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	SKU         string  `json:"sku"`
	CategoryID  string  `json:"categoryId"`
	ImageURL    string  `json:"imageUrl,omitempty"`
}

func (in ProductInput) Validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return sferrors.Invalidf("name is required")
	case strings.TrimSpace(in.SKU) == "":
		return sferrors.Invalidf("sku is required")
	case in.CategoryID == "":
		return sferrors.Invalidf("categoryId is required")
	case in.Price < 0:
		return sferrors.Invalidf("price must not be negative")
	}
	return nil
}

// ProductUpdate carries a partial update. Nil fields are left unchanged.
type ProductUpdate struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	SKU         *string  `json:"sku,omitempty"`
	CategoryID  *string  `json:"categoryId,omitempty"`
	ImageURL    *string  `json:"imageUrl,omitempty"`
}

type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

type CategoryInput struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// UploadedImage is the upload endpoint's answer. FullURL is absolute when the server provides it.
type UploadedImage struct {
	URL     string `json:"url"`
	FullURL string `json:"fullUrl,omitempty"`
}

func (u UploadedImage) Location() string {
	if u.FullURL != "" {
		return u.FullURL
	}
	return u.URL
}

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	DefaultSort     = "updatedAt"
	DefaultOrder    = "desc"
)

// Filters select a page of products. Zero values mean "not set".
type Filters struct {
	Page     int
	PageSize int
	Query    string
	Category string
	MinPrice *float64
	MaxPrice *float64
	Sort     string
	Order    string
}

func DefaultFilters(pageSize int) Filters {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return Filters{Page: DefaultPage, PageSize: pageSize, Sort: DefaultSort, Order: DefaultOrder}
}

// Merge returns f with every field set in override replacing its value.
func (f Filters) Merge(override Filters) Filters {
	if override.Page > 0 {
		f.Page = override.Page
	}
	if override.PageSize > 0 {
		f.PageSize = override.PageSize
	}
	if override.Query != "" {
		f.Query = override.Query
	}
	if override.Category != "" {
		f.Category = override.Category
	}
	if override.MinPrice != nil {
		f.MinPrice = override.MinPrice
	}
	if override.MaxPrice != nil {
		f.MaxPrice = override.MaxPrice
	}
	if override.Sort != "" {
		f.Sort = override.Sort
	}
	if override.Order != "" {
		f.Order = override.Order
	}
	return f
}

func (f Filters) Values() url.Values {
	v := url.Values{}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(f.PageSize))
	}
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	if f.Category != "" {
		v.Set("category", f.Category)
	}
	if f.MinPrice != nil {
		v.Set("minPrice", strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice != nil {
		v.Set("maxPrice", strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	if f.Sort != "" {
		v.Set("sort", f.Sort)
	}
	if f.Order != "" {
		v.Set("order", f.Order)
	}
	return v
}
