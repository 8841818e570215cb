package formflow

import (
	"github.com/tendant/simple-auth/pkg/autherr"
	"github.com/tendant/simple-auth/pkg/protocol"
)

// Action is the side-effect class a response calls for.
type Action int

const (
	// ActionNone ends the connection with messaging only; the form stays.
	ActionNone Action = iota
	// ActionInitiateReset auto-dispatches a verification code and moves
	// to the forced password reset form.
	ActionInitiateReset
	// ActionShowNewUserForm moves to the first-login attribute form.
	ActionShowNewUserForm
	// ActionRevealCodeEntry keeps the form and reveals the challenge
	// code entry control.
	ActionRevealCodeEntry
	// ActionAuthenticated completes the flow: emit the authenticated
	// event and hide the form.
	ActionAuthenticated
)

// Decision is the classifier's verdict on a response: which form comes
// next, what to tell the user, and which side effect to apply.
type Decision struct {
	Action  Action
	Message string // error text; empty means no error surfaced
	Prompt  string // instructional text; empty means none
}

// messageFor derives the user-facing error text for a response: the canned
// throttle message wins over the raw provider message when the failure code
// says the caller is being rate limited.
func messageFor(resp *protocol.Response) string {
	if resp.Error == nil {
		return ""
	}
	if resp.ErrorCode() == autherr.ErrCodeLimitExceeded {
		return MsgTooManyAttempts
	}
	return resp.Error.Message
}

// staleLinkFailure reports whether a magic-link failure belongs to the
// stale or replayed-link class: a wrong or expired code, or a continuation
// this process never issued. Failures dispatching the link itself do not
// qualify and surface their message like any other rejection.
func staleLinkFailure(resp *protocol.Response) bool {
	switch resp.ErrorCode() {
	case autherr.ErrCodeInvalidCode, autherr.ErrCodeExpiredCode, autherr.ErrCodeNoPendingChallenge:
		return true
	}
	return false
}

// Classify maps a response envelope onto the next form state, message, and
// side effect. It is pure: the controller applies the decision.
func Classify(resp *protocol.Response) Decision {
	switch {
	case resp.ErrorCode() == autherr.ErrCodeNotAuthorized && resp.Request == protocol.RequestAuthentication:
		// Bad credentials or too many attempts; the connection ends
		return Decision{Action: ActionNone, Message: messageFor(resp)}

	case resp.ErrorCode() == autherr.ErrCodeForcePasswordReset && resp.Request == protocol.RequestAuthentication:
		// Admin has forced a password reset
		return Decision{Action: ActionInitiateReset, Message: messageFor(resp)}

	case resp.Request == protocol.RequestMagicLink && staleLinkFailure(resp):
		// A stale or replayed magic link must not surface an error;
		// stay quietly on the current form
		return Decision{Action: ActionNone}

	case resp.Type == protocol.ResponseOtpChallenge || resp.Type == protocol.ResponseMagicLink || resp.Type == protocol.ResponsePasskey:
		return Decision{Action: ActionRevealCodeEntry}

	case resp.Type == protocol.ResponsePasswordReset && resp.Request == protocol.RequestAuthentication:
		// First login: the provider wants a new password and the
		// remaining profile attributes
		return Decision{Action: ActionShowNewUserForm, Prompt: MsgFirstLogin}

	case resp.Error == nil && (resp.Request == protocol.RequestAuthentication || resp.Type == protocol.ResponseAuthenticated):
		return Decision{Action: ActionAuthenticated}

	default:
		// Unsupported response; hopefully described by its messaging
		return Decision{Action: ActionNone, Message: messageFor(resp)}
	}
}
