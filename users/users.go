package users

import (
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/jrsteele09/go-storefront/internal/errors"
)

// RoleType is the account role assigned by the backend
type RoleType string

const (
	RoleAdmin    RoleType = "ADMIN"
	RoleCustomer RoleType = "CUSTOMER"
)

const MinPasswordLength = 6

// Profile is the authenticated user's identity snapshot as returned by the backend
type Profile struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName,omitempty"`
	LastName   string    `json:"lastName,omitempty"`
	Avatar     string    `json:"avatar,omitempty"`
	Role       RoleType  `json:"role"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// ProfileUpdate carries the editable profile fields. Nil fields are not sent.
type ProfileUpdate struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Avatar    *string `json:"avatar,omitempty"`
}

// Summary is the reduced user view embedded in orders and reviews
type Summary struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// DisplayName returns the first name, falling back to the email address
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.FirstName != "" {
		return p.FirstName
	}
	return p.Email
}

func (s Summary) DisplayName() string {
	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	if name == "" {
		return s.Email
	}
	return name
}

func (u ProfileUpdate) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Avatar == nil
}

func ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return errors.Invalidf("email is required")
	}
	if !govalidator.IsEmail(email) {
		return errors.Invalidf("%q is not a valid email address", email)
	}
	return nil
}

// ValidateCredentials checks login and registration input before anything is sent
func ValidateCredentials(email, password string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return errors.Invalidf("password is required")
	}
	return nil
}

// ValidateNewPassword applies the backend's minimum length rule for password resets
func ValidateNewPassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.Invalidf("password must be at least %d characters long", MinPasswordLength)
	}
	return nil
}
