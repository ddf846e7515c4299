// Package reviews holds product reviews written by customers.
package reviews

import (
	"time"

	sferrors "github.com/jrsteele09/go-storefront/internal/errors"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Author struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}

type ProductRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type Review struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	ProductID string      `json:"productId"`
	Rating    int         `json:"rating"`
	Comment   string      `json:"comment,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	User      *Author     `json:"user,omitempty"`
	Product   *ProductRef `json:"product,omitempty"`
}

type CreateInput struct {
	ProductID string `json:"productId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}

func (in CreateInput) Validate() error {
	if in.ProductID == "" {
		return sferrors.Invalidf("product id is required")
	}
	return validateRating(in.Rating)
}

// UpdateInput changes only the fields that are set.
type UpdateInput struct {
	Rating  *int    `json:"rating,omitempty"`
	Comment *string `json:"comment,omitempty"`
}

func (in UpdateInput) Validate() error {
	if in.Rating == nil && in.Comment == nil {
		return sferrors.Invalidf("nothing to update")
	}
	if in.Rating != nil {
		return validateRating(*in.Rating)
	}
	return nil
}

func validateRating(r int) error {
	if r < MinRating || r > MaxRating {
		return sferrors.Invalidf("rating must be between %d and %d, got %d", MinRating, MaxRating, r)
	}
	return nil
}
