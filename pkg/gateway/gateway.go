package gateway

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tendant/simple-auth/pkg/autherr"
	"github.com/tendant/simple-auth/pkg/federated"
	"github.com/tendant/simple-auth/pkg/memstore"
	"github.com/tendant/simple-auth/pkg/observe"
	"github.com/tendant/simple-auth/pkg/passkey"
	"github.com/tendant/simple-auth/pkg/protocol"
)

// NewPasswordChallenge is raised by the provider when a first login demands
// a password change before a session can be issued.
type NewPasswordChallenge struct {
	UserAttributes     map[string]string
	RequiredAttributes []string
	ContinuationToken  string
}

// AuthResult is the tagged outcome of a provider authentication call,
// replacing the SDK's success/failure/challenge callback triple. Exactly one
// field is populated.
type AuthResult struct {
	Session             *protocol.Session
	NewPasswordRequired *NewPasswordChallenge
	Challenge           *protocol.PendingChallenge
}

// Provider is the identity-provider boundary the gateway drives. Adapters
// return *autherr.Error values with provider wire codes so failures classify
// without translation; any other error is treated as a transport failure.
type Provider interface {
	// InitiateAuth runs a password authentication attempt.
	InitiateAuth(ctx context.Context, username, password string) (*AuthResult, error)

	// RespondToNewPassword answers a first-login new-password challenge.
	RespondToNewPassword(ctx context.Context, user *protocol.User, newPassword string, attributes map[string]string) (*AuthResult, error)

	// InitiateCustomChallenge starts an OTP, magic-link, or passkey
	// exchange and returns the continuation the client must echo back.
	InitiateCustomChallenge(ctx context.Context, username string, kind protocol.ChallengeKind) (*protocol.PendingChallenge, error)

	// AnswerCustomChallenge completes a custom challenge with the
	// user-supplied code, using the continuation on the user handle.
	AnswerCustomChallenge(ctx context.Context, user *protocol.User, code string) (*AuthResult, error)

	// RefreshSession re-derives a session for an already-authenticated
	// user from the held refresh token.
	RefreshSession(ctx context.Context, user *protocol.User, refreshToken string) (*protocol.Session, error)

	// ChangePassword performs an authenticated in-place password change.
	// The access token identifies the session being changed under.
	ChangePassword(ctx context.Context, user *protocol.User, accessToken, oldPassword, newPassword string) error

	// ForgotPassword dispatches a verification code for a reset.
	ForgotPassword(ctx context.Context, username string) error

	// ConfirmForgotPassword finalizes a reset using the dispatched code.
	ConfirmForgotPassword(ctx context.Context, username, code, newPassword string) error

	// GlobalSignOut revokes the user's sessions provider-side.
	GlobalSignOut(ctx context.Context, user *protocol.User, accessToken string) error
}

// Service is the single point of contact with the identity provider. It owns
// the current user handle and publishes session/user changes to its
// observable slots before any operation returns.
//
// Service does not serialize concurrent operations; the UI layer is expected
// to prevent duplicate submission while a call is in flight. Concurrent
// calls race on the slots and the last settled call wins the publish.
type Service struct {
	provider Provider
	poolID   string

	storage          federated.TokenStorage
	providerKeySweep string
	ceremony         *passkey.Ceremony

	sessionSlot *observe.Slot[*protocol.Session]
	userSlot    *observe.Slot[*protocol.User]

	mu      sync.Mutex
	current *protocol.User
}

// Option configures a Service.
type Option func(*Service)

// WithStorage sets the token storage used for federated tokens and the local
// logout sweep. Defaults to a fresh in-memory store.
func WithStorage(storage federated.TokenStorage) Option {
	return func(s *Service) {
		s.storage = storage
	}
}

// WithProviderKeySweep sets the key fragment swept from storage when remote
// sign-out fails and logout falls back to a local purge.
func WithProviderKeySweep(fragment string) Option {
	return func(s *Service) {
		s.providerKeySweep = fragment
	}
}

// WithPasskeyCeremony wires the externally supplied passkey callbacks.
func WithPasskeyCeremony(ceremony *passkey.Ceremony) Option {
	return func(s *Service) {
		s.ceremony = ceremony
	}
}

// NewService creates a gateway service for the given provider and pool.
func NewService(provider Provider, poolID string, opts ...Option) *Service {
	s := &Service{
		provider:         provider,
		poolID:           poolID,
		providerKeySweep: "cognito",
		sessionSlot:      observe.NewSlot[*protocol.Session](nil),
		userSlot:         observe.NewSlot[*protocol.User](nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.storage == nil {
		s.storage = memstore.New()
	}
	return s
}

// SessionSlot exposes the current-session observable.
func (s *Service) SessionSlot() *observe.Slot[*protocol.Session] {
	return s.sessionSlot
}

// UserSlot exposes the current-user observable.
func (s *Service) UserSlot() *observe.Slot[*protocol.User] {
	return s.userSlot
}

// Storage exposes the token storage the gateway persists through.
func (s *Service) Storage() federated.TokenStorage {
	return s.storage
}

// CurrentUser returns the gateway's current user handle, or nil.
func (s *Service) CurrentUser() *protocol.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Service) setCurrent(user *protocol.User) {
	s.mu.Lock()
	s.current = user
	s.mu.Unlock()
}

// publishAuthenticated installs user and session as the current identity.
// The user slot updates before the session slot; subscribers tolerate the
// transient partial state.
func (s *Service) publishAuthenticated(user *protocol.User, session *protocol.Session) {
	s.setCurrent(user)
	s.userSlot.Set(user)
	s.sessionSlot.Set(session)
}

// newUser constructs a pool-scoped user handle for an attempt.
func (s *Service) newUser(username string) *protocol.User {
	return &protocol.User{Username: username, PoolID: s.poolID}
}

// Authenticate runs a password login. With no current user it performs the
// full challenge-response exchange; with one it re-derives the existing
// session. A first-login password-change demand resolves (not rejects) with
// type NEW_PASSWORD_REQUIRED: it is a protocol branch, not an error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*protocol.Response, error) {
	if current := s.CurrentUser(); current != nil {
		return s.refreshCurrentSession(ctx, current)
	}

	user := s.newUser(username)
	result, err := s.provider.InitiateAuth(ctx, username, password)
	if err != nil {
		failure := asFailure(err)
		slog.Error("Authentication failed", "username", username, "code", failure.Code)
		// Rejections classify as NotAuthorized; the failure code on the
		// envelope distinguishes bad credentials, throttling, and an
		// admin-forced reset.
		resp := &protocol.Response{
			Request: protocol.RequestAuthentication,
			Type:    protocol.ResponseNotAuthorized,
			User:    user,
			Error:   failure,
		}
		return resp, failure
	}

	switch {
	case result.Session != nil:
		s.publishAuthenticated(user, result.Session)
		return &protocol.Response{
			Request: protocol.RequestAuthentication,
			Type:    protocol.ResponseAuthenticated,
			User:    user,
			Session: result.Session,
		}, nil

	case result.NewPasswordRequired != nil:
		user.Pending = &protocol.PendingChallenge{
			Kind:              protocol.ChallengeNewPassword,
			ContinuationToken: result.NewPasswordRequired.ContinuationToken,
		}
		s.setCurrent(user)
		return &protocol.Response{
			Request:            protocol.RequestAuthentication,
			Type:               protocol.ResponsePasswordReset,
			User:               user,
			UserAttributes:     result.NewPasswordRequired.UserAttributes,
			RequiredAttributes: result.NewPasswordRequired.RequiredAttributes,
		}, nil

	default:
		failure := autherr.New(autherr.ErrCodeInternal, "provider returned no session and no challenge")
		return &protocol.Response{
			Request: protocol.RequestAuthentication,
			Type:    protocol.ResponseNotAuthorized,
			User:    user,
			Error:   failure,
		}, failure
	}
}

// refreshCurrentSession re-derives the session for the existing user handle.
func (s *Service) refreshCurrentSession(ctx context.Context, user *protocol.User) (*protocol.Response, error) {
	var refreshToken string
	if session := s.sessionSlot.Get(); session != nil {
		refreshToken = session.RefreshToken
	}

	session, err := s.provider.RefreshSession(ctx, user, refreshToken)
	if err != nil {
		failure := asFailure(err)
		slog.Error("Session refresh failed", "username", user.Username, "code", failure.Code)
		resp := &protocol.Response{
			Request: protocol.RequestAuthentication,
			Type:    protocol.ResponseAuthenticated,
			User:    user,
			Error:   failure,
		}
		return resp, failure
	}

	s.sessionSlot.Set(session)
	return &protocol.Response{
		Request: protocol.RequestAuthentication,
		Type:    protocol.ResponseAuthenticated,
		User:    user,
		Session: session,
	}, nil
}

// Logout clears the local identity and revokes provider-side sessions. It
// never fails: when the remote sign-out errors, the fallback is a local
// purge of provider-prefixed persisted keys, so "appearing logged out" is
// always reachable client-side. Both slots observe nil before Logout
// returns.
func (s *Service) Logout(ctx context.Context) (*protocol.Response, error) {
	user := s.CurrentUser()
	var accessToken string
	if session := s.sessionSlot.Get(); session != nil {
		accessToken = session.AccessToken
	}

	s.setCurrent(nil)
	s.userSlot.Set(nil)
	s.sessionSlot.Set(nil)

	if user != nil {
		if err := s.provider.GlobalSignOut(ctx, user, accessToken); err != nil {
			slog.Warn("Remote sign-out failed, purging local keys", "username", user.Username, "err", err)
			federated.Purge(s.storage, s.providerKeySweep)
		}
	}

	return &protocol.Response{
		Request: protocol.RequestAuthentication,
		Type:    protocol.ResponseSuccess,
		User:    user,
	}, nil
}

// asFailure normalizes any provider error into a structured failure;
// unclassified errors pass through as transport failures.
func asFailure(err error) *autherr.Error {
	if failure, ok := err.(*autherr.Error); ok {
		return failure
	}
	return autherr.Wrap(err, autherr.ErrCodeTransport, err.Error())
}
