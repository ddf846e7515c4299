package session_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-storefront/session"
	"github.com/jrsteele09/go-storefront/storage"
	"github.com/jrsteele09/go-storefront/users"
)

func profileFixture() users.Profile {
	return users.Profile{ID: "u1", Email: "a@b.com", Role: users.RoleCustomer}
}

func TestInspect(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwtlib.NewNumericDate(now.Add(-time.Minute)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tokens := session.NewTokens(storage.NewMemory())
	require.NoError(t, tokens.Save(signed, "R1", profileFixture()))

	d := session.Inspect(tokens, now)
	require.True(t, d.HasAccessToken)
	require.True(t, d.HasRefreshToken)
	require.Equal(t, signed[:20]+"...", d.AccessTokenPreview)
	require.Equal(t, "R1...", d.RefreshTokenPreview)
	require.Equal(t, "u1", d.Subject)
	require.NotNil(t, d.ExpiresAt)
	require.True(t, d.Expired)
	require.Equal(t, "u1", d.User.ID)
	require.Empty(t, d.UserError)
}

func TestInspect_OpaqueTokenAndEmptyStorage(t *testing.T) {
	st := storage.NewMemory()
	tokens := session.NewTokens(st)

	d := session.Inspect(tokens, time.Now())
	require.False(t, d.HasAccessToken)
	require.Empty(t, d.AccessTokenPreview)
	require.NotEmpty(t, d.UserError)

	require.NoError(t, st.Set(session.KeyAccessToken, "opaque"))
	d = session.Inspect(tokens, time.Now())
	require.True(t, d.HasAccessToken)
	require.Empty(t, d.Subject)
	require.Nil(t, d.ExpiresAt)
}
