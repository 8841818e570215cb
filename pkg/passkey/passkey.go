// Package passkey orchestrates the passkey/WebAuthn boundary. The widget
// never implements the ceremony itself: every cryptographic step is an
// externally supplied callback, and this package only enforces the call
// order between them.
package passkey

import (
	"context"
	"encoding/json"
	"fmt"
)

// Callbacks are the externally supplied ceremony operations. Options and
// results are opaque JSON payloads exchanged with the authenticator layer;
// the widget passes them through untouched.
type Callbacks struct {
	GetUserID                     func(ctx context.Context, username string) (string, error)
	GenerateAuthenticationOptions func(ctx context.Context, userID string) (json.RawMessage, error)
	GenerateRegistrationOptions   func(ctx context.Context, userID string) (json.RawMessage, error)
	VerifyRegistration            func(ctx context.Context, userID string, response json.RawMessage) (bool, error)
	VerifyAuthentication          func(ctx context.Context, userID string, response json.RawMessage) (bool, error)
}

// Ceremony runs the passkey call sequence against the supplied callbacks.
type Ceremony struct {
	callbacks Callbacks
}

// NewCeremony creates a ceremony. Callbacks may be partially populated; a
// missing callback fails the step that needs it rather than construction.
func NewCeremony(callbacks Callbacks) *Ceremony {
	return &Ceremony{callbacks: callbacks}
}

// BeginAuthentication resolves the user id and produces authentication
// options for the authenticator.
func (c *Ceremony) BeginAuthentication(ctx context.Context, username string) (userID string, options json.RawMessage, err error) {
	if c.callbacks.GetUserID == nil || c.callbacks.GenerateAuthenticationOptions == nil {
		return "", nil, fmt.Errorf("passkey authentication callbacks are not configured")
	}
	userID, err = c.callbacks.GetUserID(ctx, username)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve passkey user id: %w", err)
	}
	options, err = c.callbacks.GenerateAuthenticationOptions(ctx, userID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate authentication options: %w", err)
	}
	return userID, options, nil
}

// FinishAuthentication verifies the authenticator's response for the user id
// returned by BeginAuthentication.
func (c *Ceremony) FinishAuthentication(ctx context.Context, userID string, response json.RawMessage) (bool, error) {
	if c.callbacks.VerifyAuthentication == nil {
		return false, fmt.Errorf("passkey verification callback is not configured")
	}
	ok, err := c.callbacks.VerifyAuthentication(ctx, userID, response)
	if err != nil {
		return false, fmt.Errorf("failed to verify passkey authentication: %w", err)
	}
	return ok, nil
}

// BeginRegistration resolves the user id and produces registration options.
func (c *Ceremony) BeginRegistration(ctx context.Context, username string) (userID string, options json.RawMessage, err error) {
	if c.callbacks.GetUserID == nil || c.callbacks.GenerateRegistrationOptions == nil {
		return "", nil, fmt.Errorf("passkey registration callbacks are not configured")
	}
	userID, err = c.callbacks.GetUserID(ctx, username)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve passkey user id: %w", err)
	}
	options, err = c.callbacks.GenerateRegistrationOptions(ctx, userID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate registration options: %w", err)
	}
	return userID, options, nil
}

// FinishRegistration verifies the authenticator's registration response.
func (c *Ceremony) FinishRegistration(ctx context.Context, userID string, response json.RawMessage) (bool, error) {
	if c.callbacks.VerifyRegistration == nil {
		return false, fmt.Errorf("passkey registration verification callback is not configured")
	}
	ok, err := c.callbacks.VerifyRegistration(ctx, userID, response)
	if err != nil {
		return false, fmt.Errorf("failed to verify passkey registration: %w", err)
	}
	return ok, nil
}
