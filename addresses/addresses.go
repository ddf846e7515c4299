// Package addresses is a local-only address book. The backend has no address endpoints yet,
// so the list lives in durable storage under a single key.
package addresses

import (
	"strings"
	"time"

	sferrors "github.com/jrsteele09/go-storefront/internal/errors"
)

// StorageKey is the durable entry holding the JSON encoded list.
const StorageKey = "addresses"

type Address struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	FullName     string    `json:"fullName"`
	PhoneNumber  string    `json:"phoneNumber"`
	AddressLine1 string    `json:"addressLine1"`
	AddressLine2 string    `json:"addressLine2,omitempty"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PostalCode   string    `json:"postalCode"`
	Country      string    `json:"country"`
	IsDefault    bool      `json:"isDefault"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Lines renders the address for a shipping label.
func (a Address) Lines() []string {
	lines := []string{a.FullName, a.AddressLine1}
	if a.AddressLine2 != "" {
		lines = append(lines, a.AddressLine2)
	}
	return append(lines, a.City+", "+a.State+" "+a.PostalCode, a.Country)
}

type Input struct {
	FullName     string `json:"fullName"`
	PhoneNumber  string `json:"phoneNumber"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
	IsDefault    bool   `json:"isDefault,omitempty"`
}

func (in Input) Validate() error {
	required := []struct{ name, value string }{
		{"full name", in.FullName},
		{"phone number", in.PhoneNumber},
		{"address line 1", in.AddressLine1},
		{"city", in.City},
		{"state", in.State},
		{"postal code", in.PostalCode},
		{"country", in.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return sferrors.Invalidf("%s is required", f.name)
		}
	}
	return nil
}

// Update changes only the fields that are set.
type Update struct {
	FullName     *string `json:"fullName,omitempty"`
	PhoneNumber  *string `json:"phoneNumber,omitempty"`
	AddressLine1 *string `json:"addressLine1,omitempty"`
	AddressLine2 *string `json:"addressLine2,omitempty"`
	City         *string `json:"city,omitempty"`
	State        *string `json:"state,omitempty"`
	PostalCode   *string `json:"postalCode,omitempty"`
	Country      *string `json:"country,omitempty"`
	IsDefault    *bool   `json:"isDefault,omitempty"`
}
