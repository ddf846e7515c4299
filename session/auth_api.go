package session

import (
	"context"
	"net/url"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-storefront/api"
	sferrors "github.com/jrsteele09/go-storefront/internal/errors"
	"github.com/jrsteele09/go-storefront/users"
)

type LoginResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken,omitempty"`
	User         *users.Profile `json:"user"`
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Message is the acknowledgement body returned by the account endpoints.
type Message struct {
	Message string `json:"message"`
}

// AuthAPI wraps the authentication and profile endpoints. Credential endpoints are sent
// anonymously so a rejected password never tears down the current session.
type AuthAPI struct {
	client *api.Client
}

var _ Backend = (*AuthAPI)(nil)

func NewAuthAPI(client *api.Client) *AuthAPI {
	return &AuthAPI{client: client}
}

func (a *AuthAPI) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var resp LoginResponse
	err := a.client.Post(ctx, "/api/auth/login", map[string]string{"email": email, "password": password}, &resp, api.Anonymous())
	return resp, errors.Wrap(err, "[AuthAPI.Login]")
}

func (a *AuthAPI) Register(ctx context.Context, req RegisterRequest) (Message, error) {
	var msg Message
	err := a.client.Post(ctx, "/api/auth/register", req, &msg, api.Anonymous())
	return msg, errors.Wrap(err, "[AuthAPI.Register]")
}

func (a *AuthAPI) VerifyEmail(ctx context.Context, code string) (Message, error) {
	if code == "" {
		return Message{}, sferrors.Invalidf("verification code is required")
	}
	var msg Message
	err := a.client.Get(ctx, "/api/auth/verify-email", &msg, api.Anonymous(), api.Query(url.Values{"code": {code}}))
	return msg, errors.Wrap(err, "[AuthAPI.VerifyEmail]")
}

func (a *AuthAPI) ResendVerification(ctx context.Context, email string) (Message, error) {
	if err := users.ValidateEmail(email); err != nil {
		return Message{}, err
	}
	var msg Message
	err := a.client.Post(ctx, "/api/auth/resend-verification", map[string]string{"email": email}, &msg, api.Anonymous())
	return msg, errors.Wrap(err, "[AuthAPI.ResendVerification]")
}

func (a *AuthAPI) ForgotPassword(ctx context.Context, email string) (Message, error) {
	if err := users.ValidateEmail(email); err != nil {
		return Message{}, err
	}
	var msg Message
	err := a.client.Post(ctx, "/api/auth/forgot-password", map[string]string{"email": email}, &msg, api.Anonymous())
	return msg, errors.Wrap(err, "[AuthAPI.ForgotPassword]")
}

func (a *AuthAPI) ResetPassword(ctx context.Context, resetCode, newPassword string) (Message, error) {
	if resetCode == "" {
		return Message{}, sferrors.Invalidf("reset code is required")
	}
	if err := users.ValidateNewPassword(newPassword); err != nil {
		return Message{}, err
	}
	var msg Message
	body := map[string]string{"resetCode": resetCode, "newPassword": newPassword}
	err := a.client.Post(ctx, "/api/auth/reset-password", body, &msg, api.Anonymous())
	return msg, errors.Wrap(err, "[AuthAPI.ResetPassword]")
}

func (a *AuthAPI) GetProfile(ctx context.Context) (users.Profile, error) {
	var p users.Profile
	err := a.client.Get(ctx, "/api/users/profile", &p)
	return p, errors.Wrap(err, "[AuthAPI.GetProfile]")
}

func (a *AuthAPI) UpdateProfile(ctx context.Context, update users.ProfileUpdate) (users.Profile, error) {
	var p users.Profile
	err := a.client.Patch(ctx, "/api/users/profile", update, &p)
	return p, errors.Wrap(err, "[AuthAPI.UpdateProfile]")
}
