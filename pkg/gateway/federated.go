package gateway

import (
	"context"
	"log/slog"

	"github.com/tendant/simple-auth/pkg/autherr"
	"github.com/tendant/simple-auth/pkg/federated"
	"github.com/tendant/simple-auth/pkg/protocol"
)

// CreateFederatedSession synthesizes a session/user pair from externally
// obtained tokens (SSO redirect return) without touching the challenge
// protocol. The username comes from the ID token claims.
func (s *Service) CreateFederatedSession(ctx context.Context, idToken, accessToken string) (*protocol.Response, error) {
	session := &protocol.Session{IDToken: idToken, AccessToken: accessToken}

	claims, err := session.IDClaims()
	if err != nil {
		failure := autherr.Wrap(err, autherr.ErrCodeInvalidInput, "federated id token is not decodable")
		resp := &protocol.Response{
			Request: protocol.RequestFederatedSession,
			Type:    protocol.ResponseNotAuthorized,
			Error:   failure,
		}
		return resp, failure
	}

	username, _ := claims["cognito:username"].(string)
	if username == "" {
		username, _ = claims["sub"].(string)
	}

	user := s.newUser(username)
	s.publishAuthenticated(user, session)
	return &protocol.Response{
		Request: protocol.RequestFederatedSession,
		Type:    protocol.ResponseAuthenticated,
		User:    user,
		Session: session,
	}, nil
}

// BootstrapFederated restores a federated session from persisted tokens, if
// any. Absence or failure is simply not-authenticated, never an error.
func (s *Service) BootstrapFederated(ctx context.Context) (*protocol.Response, bool) {
	tokens, ok := federated.Stored(s.storage)
	if !ok {
		return nil, false
	}
	resp, err := s.CreateFederatedSession(ctx, tokens.IDToken, tokens.AccessToken)
	if err != nil {
		slog.Debug("Federated bootstrap failed, treating as unauthenticated", "err", err)
		return nil, false
	}
	return resp, true
}

// CaptureFederatedReturn persists tokens arriving on a redirect-return URL
// fragment and returns the cleared fragment to write back to the location
// bar. A fragment with no token pair passes through unchanged.
func (s *Service) CaptureFederatedReturn(fragment string) (federated.Tokens, string, error) {
	return federated.Capture(s.storage, fragment)
}
