package orders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	sferrors "github.com/jrsteele09/go-storefront/internal/errors"
	"github.com/jrsteele09/go-storefront/users"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusCompleted, StatusCancelled:
		return st, nil
	}
	return "", sferrors.Invalidf("unknown order status %q", s)
}

// Money is an amount the backend sends either as a JSON number or as a numeric string.
type Money float64

func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*m = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*m = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("money %q: %w", s, err)
		}
		*m = Money(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*m = Money(f)
	return nil
}

func (m Money) String() string {
	return strconv.FormatFloat(float64(m), 'f', 2, 64)
}

type ProductRef struct {
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type Item struct {
	ID        string      `json:"id"`
	ProductID string      `json:"productId"`
	Quantity  int         `json:"quantity"`
	Price     Money       `json:"price"`
	Product   *ProductRef `json:"product,omitempty"`
}

type Order struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Status    Status         `json:"status"`
	Total     Money          `json:"total"`
	ProductID string         `json:"productId,omitempty"`
	Quantity  int            `json:"quantity,omitempty"`
	Items     []Item         `json:"items,omitempty"`
	User      *users.Summary `json:"user,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type CreateInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (in CreateInput) Validate() error {
	if in.ProductID == "" {
		return sferrors.Invalidf("productId is required")
	}
	if in.Quantity < 1 {
		return sferrors.Invalidf("quantity must be at least 1")
	}
	return nil
}

// Set is the list of orders a checkout produces. The backend has answered with a bare array,
// an object holding an orders array, and a single order; all three decode here.
type Set []Order

func (s *Set) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*s = nil
		return nil
	case b[0] == '[':
		var list []Order
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*s = list
		return nil
	}

	var wrapped struct {
		Orders []Order `json:"orders"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	if wrapped.Orders != nil {
		*s = wrapped.Orders
		return nil
	}

	var single Order
	if err := json.Unmarshal(b, &single); err != nil {
		return err
	}
	if single.ID == "" {
		*s = Set{}
		return nil
	}
	*s = Set{single}
	return nil
}

// Total sums the order totals.
func (s Set) Total() Money {
	var total Money
	for _, o := range s {
		total += o.Total
	}
	return total
}
