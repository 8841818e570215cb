package formflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tendant/simple-auth/pkg/autherr"
	"github.com/tendant/simple-auth/pkg/protocol"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		resp     *protocol.Response
		expected Decision
	}{
		{
			name: "rejected authentication keeps the form",
			resp: &protocol.Response{
				Request: protocol.RequestAuthentication,
				Type:    protocol.ResponseNotAuthorized,
				Error:   autherr.New(autherr.ErrCodeNotAuthorized, "Incorrect username or password."),
			},
			expected: Decision{Action: ActionNone, Message: "Incorrect username or password."},
		},
		{
			name: "throttled authentication prefers the canned message",
			resp: &protocol.Response{
				Request: protocol.RequestAuthentication,
				Type:    protocol.ResponseNotAuthorized,
				Error:   autherr.New(autherr.ErrCodeLimitExceeded, "Attempt limit exceeded, please try after some time."),
			},
			expected: Decision{Action: ActionNone, Message: MsgTooManyAttempts},
		},
		{
			name: "forced reset initiates the reset subflow",
			resp: &protocol.Response{
				Request: protocol.RequestAuthentication,
				Type:    protocol.ResponseNotAuthorized,
				Error:   autherr.New(autherr.ErrCodeForcePasswordReset, "Password reset required for the user"),
			},
			expected: Decision{Action: ActionInitiateReset, Message: "Password reset required for the user"},
		},
		{
			name: "stale magic link stays silent",
			resp: &protocol.Response{
				Request: protocol.RequestMagicLink,
				Type:    protocol.ResponseNotAuthorized,
				Error:   autherr.New(autherr.ErrCodeInvalidCode, "Invalid code received for user"),
			},
			expected: Decision{Action: ActionNone},
		},
		{
			name: "magic link dispatch failure surfaces its message",
			resp: &protocol.Response{
				Request: protocol.RequestMagicLink,
				Type:    protocol.ResponseNotAuthorized,
				Error:   autherr.New(autherr.ErrCodeNotAuthorized, "Incorrect username or password."),
			},
			expected: Decision{Action: ActionNone, Message: "Incorrect username or password."},
		},
		{
			name: "throttled magic link dispatch prefers the canned message",
			resp: &protocol.Response{
				Request: protocol.RequestMagicLink,
				Type:    protocol.ResponseNotAuthorized,
				Error:   autherr.New(autherr.ErrCodeLimitExceeded, "Attempt limit exceeded, please try after some time."),
			},
			expected: Decision{Action: ActionNone, Message: MsgTooManyAttempts},
		},
		{
			name: "otp challenge reveals code entry",
			resp: &protocol.Response{
				Request: protocol.RequestOtpChallenge,
				Type:    protocol.ResponseOtpChallenge,
			},
			expected: Decision{Action: ActionRevealCodeEntry},
		},
		{
			name: "passkey challenge reveals code entry",
			resp: &protocol.Response{
				Request: protocol.RequestPasskey,
				Type:    protocol.ResponsePasskey,
			},
			expected: Decision{Action: ActionRevealCodeEntry},
		},
		{
			name: "first login shows the new user form",
			resp: &protocol.Response{
				Request:            protocol.RequestAuthentication,
				Type:               protocol.ResponsePasswordReset,
				RequiredAttributes: []string{"given_name", "family_name"},
			},
			expected: Decision{Action: ActionShowNewUserForm, Prompt: MsgFirstLogin},
		},
		{
			name: "clean authentication completes the flow",
			resp: &protocol.Response{
				Request: protocol.RequestAuthentication,
				Type:    protocol.ResponseAuthenticated,
				Session: &protocol.Session{IDToken: "t"},
			},
			expected: Decision{Action: ActionAuthenticated},
		},
		{
			name: "challenge completion also completes the flow",
			resp: &protocol.Response{
				Request: protocol.RequestOtpChallenge,
				Type:    protocol.ResponseAuthenticated,
				Session: &protocol.Session{IDToken: "t"},
			},
			expected: Decision{Action: ActionAuthenticated},
		},
		{
			name: "wrong confirmation code surfaces its message",
			resp: &protocol.Response{
				Request: protocol.RequestConfirmPassword,
				Type:    protocol.ResponseInvalidCode,
				Error:   autherr.New(autherr.ErrCodeInvalidCode, "Invalid verification code provided, please try again."),
			},
			expected: Decision{Action: ActionNone, Message: "Invalid verification code provided, please try again."},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.resp))
		})
	}
}
