package session

import (
	"encoding/json"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-storefront/api"
	sferrors "github.com/jrsteele09/go-storefront/internal/errors"
	"github.com/jrsteele09/go-storefront/storage"
	"github.com/jrsteele09/go-storefront/users"
)

// Durable storage keys for the session.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// SessionKeys lists every durable entry owned by the session.
var SessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser}

// Tokens is the durable half of the session: the only code that reads or writes the
// session keys in storage. The HTTP client reads the bearer token through it at dispatch time.
type Tokens struct {
	store storage.Storage
}

var _ api.Credentials = (*Tokens)(nil)

func NewTokens(store storage.Storage) *Tokens {
	return &Tokens{store: store}
}

func (t *Tokens) Storage() storage.Storage {
	return t.store
}

// Token implements oauth2.TokenSource over the stored access token.
func (t *Tokens) Token() (*oauth2.Token, error) {
	access, err := t.store.Get(KeyAccessToken)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && access == "") {
		return nil, sferrors.ErrNoAccessToken
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Tokens.Token]")
	}
	return &oauth2.Token{
		AccessToken:  access,
		TokenType:    "Bearer",
		RefreshToken: t.RefreshToken(),
	}, nil
}

// AccessToken returns the stored access token, or "" when there is none or it cannot be read.
func (t *Tokens) AccessToken() string {
	v, _ := t.store.Get(KeyAccessToken)
	return v
}

func (t *Tokens) RefreshToken() string {
	v, _ := t.store.Get(KeyRefreshToken)
	return v
}

func (t *Tokens) HasRefreshToken() bool {
	return t.RefreshToken() != ""
}

// User decodes the stored profile. It returns sferrors.ErrNotFound when no profile is stored
// and sferrors.ErrCorruptState when one is stored but cannot be decoded.
func (t *Tokens) User() (*users.Profile, error) {
	raw, err := t.store.Get(KeyUser)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, sferrors.ErrNotFound
	case errors.Is(err, storage.ErrCorrupt):
		return nil, sferrors.Wrapf(sferrors.ErrCorruptState, "stored user")
	case err != nil:
		return nil, errors.Wrap(err, "[Tokens.User]")
	}

	var p users.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, sferrors.Wrapf(sferrors.ErrCorruptState, "stored user: %v", err)
	}
	return &p, nil
}

// Save persists the access token and user in one atomic write. An empty refresh token then
// removes any stale one in a second write, so that case is not atomic: a failure between the
// two can leave an old refresh token beside the new access token, and shared stores report
// two separate changes.
func (t *Tokens) Save(accessToken, refreshToken string, user users.Profile) error {
	encoded, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "[Tokens.Save] marshal user")
	}

	values := map[string]string{
		KeyAccessToken: accessToken,
		KeyUser:        string(encoded),
	}
	if refreshToken != "" {
		values[KeyRefreshToken] = refreshToken
	}
	if err := t.store.SetMany(values); err != nil {
		return errors.Wrap(err, "[Tokens.Save]")
	}
	if refreshToken == "" {
		if err := t.store.Remove(KeyRefreshToken); err != nil {
			return errors.Wrap(err, "[Tokens.Save] remove stale refresh token")
		}
	}
	return nil
}

func (t *Tokens) SaveUser(user users.Profile) error {
	encoded, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "[Tokens.SaveUser] marshal user")
	}
	return errors.Wrap(t.store.Set(KeyUser, string(encoded)), "[Tokens.SaveUser]")
}

// Clear removes every session key.
func (t *Tokens) Clear() error {
	return errors.Wrap(t.store.Remove(SessionKeys...), "[Tokens.Clear]")
}
