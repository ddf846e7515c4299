// Package session is the single authority for whether a user is signed in. Tokens owns the
// durable entries; Store owns the in-memory Session and its transitions.
package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-storefront/events"
	sferrors "github.com/jrsteele09/go-storefront/internal/errors"
	"github.com/jrsteele09/go-storefront/internal/metrics"
	"github.com/jrsteele09/go-storefront/users"
)

type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Session is the authenticated identity for this process. A zero Session is unauthenticated.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *users.Profile
}

// Backend is the subset of the auth endpoints the Store drives.
type Backend interface {
	Login(ctx context.Context, email, password string) (LoginResponse, error)
	Register(ctx context.Context, req RegisterRequest) (Message, error)
	GetProfile(ctx context.Context) (users.Profile, error)
	UpdateProfile(ctx context.Context, update users.ProfileUpdate) (users.Profile, error)
}

type Store struct {
	mu      sync.RWMutex
	session Session

	tokens      *Tokens
	bus         *events.Bus
	backend     Backend
	unsubscribe func()
}

// NewStore starts Unauthenticated; call Initialize to rehydrate from storage.
func NewStore(tokens *Tokens, bus *events.Bus, backend Backend) *Store {
	s := &Store{
		tokens:  tokens,
		bus:     bus,
		backend: backend,
	}
	s.unsubscribe = bus.Subscribe(events.SessionInvalidated, s.onInvalidated)
	return s
}

// Close detaches the store from the bus.
func (s *Store) Close() {
	s.unsubscribe()
}

func (s *Store) onInvalidated() {
	s.setSession(Session{})
	log.Info().Msg("session invalidated")
	s.bus.Emit(events.CartShouldRefresh)
}

func (s *Store) setSession(sess Session) {
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
}

// Initialize rehydrates the Session from durable storage without any network call. A stored
// profile that cannot be decoded wipes the session keys and broadcasts an invalidation.
func (s *Store) Initialize() {
	user, err := s.tokens.User()
	switch {
	case err == nil:
		access := s.tokens.AccessToken()
		if access == "" {
			s.setSession(Session{})
			return
		}
		s.setSession(Session{
			AccessToken:  access,
			RefreshToken: s.tokens.RefreshToken(),
			User:         user,
		})
		log.Debug().Str("user", user.ID).Msg("session restored")

	case sferrors.Is(err, sferrors.ErrNotFound):
		// A token without a profile cannot authenticate.
		if s.tokens.AccessToken() != "" {
			log.Warn().Msg("stored access token has no profile, clearing")
			if clearErr := s.tokens.Clear(); clearErr != nil {
				log.Err(clearErr).Msg("clearing orphan access token")
			}
		}
		s.setSession(Session{})

	case sferrors.Is(err, sferrors.ErrCorruptState):
		log.Err(err).Msg("stored session is corrupt, clearing")
		if clearErr := s.tokens.Clear(); clearErr != nil {
			log.Err(clearErr).Msg("clearing corrupt session")
		}
		s.setSession(Session{})
		metrics.SessionInvalidations.WithLabelValues(metrics.ReasonCorrupt).Inc()
		s.bus.Emit(events.SessionInvalidated)

	default:
		log.Err(err).Msg("reading stored session")
		s.setSession(Session{})
	}
}

// Login exchanges credentials for a session. A failure leaves any prior Session untouched.
func (s *Store) Login(ctx context.Context, email, password string) error {
	if err := users.ValidateCredentials(email, password); err != nil {
		return err
	}

	resp, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return errors.Wrap(err, "[Store.Login]")
	}
	if resp.AccessToken == "" || resp.User == nil {
		return errors.Wrap(sferrors.ErrMalformedResponse, "[Store.Login] missing access token or user")
	}

	if err := s.tokens.Save(resp.AccessToken, resp.RefreshToken, *resp.User); err != nil {
		return errors.Wrap(err, "[Store.Login]")
	}
	s.setSession(Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         resp.User,
	})
	log.Info().Str("user", resp.User.ID).Msg("logged in")

	s.bus.Emit(events.CartShouldRefresh)
	return nil
}

// Register creates an account. No session is established; the account must be verified first.
func (s *Store) Register(ctx context.Context, req RegisterRequest) (Message, error) {
	if err := users.ValidateCredentials(req.Email, req.Password); err != nil {
		return Message{}, err
	}
	msg, err := s.backend.Register(ctx, req)
	if err != nil {
		return Message{}, errors.Wrap(err, "[Store.Register]")
	}
	return msg, nil
}

// Logout is a local transition: storage and memory are cleared and dependent caches are told to refresh.
func (s *Store) Logout() error {
	err := s.tokens.Clear()
	s.setSession(Session{})
	metrics.SessionInvalidations.WithLabelValues(metrics.ReasonLogout).Inc()
	log.Info().Msg("logged out")

	s.bus.Emit(events.CartShouldRefresh)
	return errors.Wrap(err, "[Store.Logout]")
}

func (s *Store) UpdateProfile(ctx context.Context, update users.ProfileUpdate) (*users.Profile, error) {
	if update.IsEmpty() {
		return nil, sferrors.Invalidf("nothing to update")
	}
	p, err := s.backend.UpdateProfile(ctx, update)
	if err != nil {
		return nil, errors.Wrap(err, "[Store.UpdateProfile]")
	}
	return s.replaceUser(p)
}

// RefreshProfile reloads the profile from the backend.
func (s *Store) RefreshProfile(ctx context.Context) (*users.Profile, error) {
	p, err := s.backend.GetProfile(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Store.RefreshProfile]")
	}
	return s.replaceUser(p)
}

// replaceUser swaps the profile in place, keeping the tokens. The role stays fixed for the
// life of the session; a different role from the backend only takes effect on the next login.
func (s *Store) replaceUser(p users.Profile) (*users.Profile, error) {
	s.mu.Lock()
	if s.session.AccessToken == "" {
		s.mu.Unlock()
		return &p, nil
	}
	if prev := s.session.User; prev != nil && prev.Role != p.Role {
		log.Warn().Str("stored", string(prev.Role)).Str("received", string(p.Role)).Msg("role change ignored until next login")
		p.Role = prev.Role
	}
	s.session.User = &p
	s.mu.Unlock()

	if err := s.tokens.SaveUser(p); err != nil {
		return nil, errors.Wrap(err, "[Store.replaceUser]")
	}
	return &p, nil
}

func (s *Store) State() State {
	if s.IsAuthenticated() {
		return Authenticated
	}
	return Unauthenticated
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.AccessToken != ""
}

func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.User.IsAdmin()
}

// User returns a copy of the current profile, or nil.
func (s *Store) User() *users.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session.User == nil {
		return nil
	}
	p := *s.session.User
	return &p
}

func (s *Store) Session() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess := s.session
	if sess.User != nil {
		p := *sess.User
		sess.User = &p
	}
	return sess
}
