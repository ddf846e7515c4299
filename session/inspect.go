package session

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/jrsteele09/go-storefront/users"
)

const previewLength = 20

// Debug is a snapshot of what is stored for the session, for troubleshooting.
type Debug struct {
	HasAccessToken      bool
	HasRefreshToken     bool
	AccessTokenPreview  string
	RefreshTokenPreview string
	Subject             string
	ExpiresAt           *time.Time
	Expired             bool
	User                *users.Profile
	UserError           string
}

// Inspect reads the stored session. Token claims are decoded without verifying the signature.
func Inspect(tokens *Tokens, now time.Time) Debug {
	access := tokens.AccessToken()
	refresh := tokens.RefreshToken()

	d := Debug{
		HasAccessToken:      access != "",
		HasRefreshToken:     refresh != "",
		AccessTokenPreview:  preview(access),
		RefreshTokenPreview: preview(refresh),
	}

	if access != "" {
		if tok, _, err := jwtlib.NewParser().ParseUnverified(access, jwtlib.MapClaims{}); err == nil {
			if sub, err := tok.Claims.GetSubject(); err == nil {
				d.Subject = sub
			}
			if exp, err := tok.Claims.GetExpirationTime(); err == nil && exp != nil {
				t := exp.Time
				d.ExpiresAt = &t
				d.Expired = now.After(t)
			}
		}
	}

	user, err := tokens.User()
	if err != nil {
		d.UserError = err.Error()
	} else {
		d.User = user
	}
	return d
}

func preview(token string) string {
	if token == "" {
		return ""
	}
	if len(token) > previewLength {
		token = token[:previewLength]
	}
	return token + "..."
}
