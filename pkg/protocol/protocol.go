package protocol

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tendant/simple-auth/pkg/autherr"
)

// RequestKind identifies which gateway operation produced a response.
type RequestKind string

const (
	RequestAuthentication         RequestKind = "authentication"
	RequestNewUserPasswordReset   RequestKind = "new-user-password-reset"
	RequestForcePasswordReset     RequestKind = "force-password-reset"
	RequestForgotPassword         RequestKind = "forgot-password"
	RequestUpdatePasswordWithCode RequestKind = "update-password-with-code"
	RequestPasswordReset          RequestKind = "password-reset"
	RequestConfirmPassword        RequestKind = "confirm-password"
	RequestOtpChallenge           RequestKind = "otp-challenge"
	RequestMagicLink              RequestKind = "magic-link"
	RequestPasskey                RequestKind = "passkey"
	RequestFederatedSession       RequestKind = "federated-session"
)

// ResponseKind classifies the outcome of a gateway operation. Values that
// originate at the provider keep their wire names.
type ResponseKind string

const (
	ResponseAuthenticated      ResponseKind = "authenticated"
	ResponsePasswordReset      ResponseKind = "NEW_PASSWORD_REQUIRED"
	ResponseNotAuthorized      ResponseKind = "NotAuthorizedException"
	ResponseForcePasswordReset ResponseKind = "PasswordResetRequiredException"
	ResponseInvalidCode        ResponseKind = "CodeMismatchException"
	ResponseLimitExceeded      ResponseKind = "LimitExceededException"
	ResponseOtpChallenge       ResponseKind = "OtpChallenge"
	ResponseMagicLink          ResponseKind = "MagicLink"
	ResponsePasskey            ResponseKind = "Passkey"
	ResponseSuccess            ResponseKind = "SUCCESS"
)

// FormKind identifies the single currently visible UI step.
type FormKind string

const (
	FormLogin                    FormKind = "login"
	FormNewUser                  FormKind = "new-user"
	FormForcePasswordReset       FormKind = "force-password-reset"
	FormUserPasswordReset        FormKind = "user-password-reset"
	FormUserVerificationRequest  FormKind = "user-verification-request"
	FormPasswordUpdateSuccessful FormKind = "password-update-successful"
	FormFederatedSignIn          FormKind = "federated-sign-in"
)

// ChallengeKind names a mid-protocol exchange that needs an additional
// client response before a session is issued.
type ChallengeKind string

const (
	ChallengeOtp         ChallengeKind = "otp"
	ChallengeMagicLink   ChallengeKind = "magic-link"
	ChallengePasskey     ChallengeKind = "passkey"
	ChallengeNewPassword ChallengeKind = "new-password"
)

// Session is the token bundle issued on successful authentication. It is
// created whole, replaced whole on re-authentication, and destroyed on
// logout; it is never partially mutated.
type Session struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// IDClaims decodes the ID token payload without verifying its signature.
// Signature verification belongs to the provider boundary; the widget only
// reads claims the provider already vouched for.
func (s *Session) IDClaims() (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(s.IDToken, claims); err != nil {
		return nil, fmt.Errorf("failed to decode id token: %w", err)
	}
	return claims, nil
}

// PendingChallenge carries the provider-issued continuation across the two
// phases of an OTP, magic-link, or passkey exchange. Losing the continuation
// token invalidates the challenge.
type PendingChallenge struct {
	Kind              ChallengeKind     `json:"kind"`
	ContinuationToken string            `json:"continuation_token"`
	Parameters        map[string]string `json:"parameters,omitempty"`
}

// User is the explicit value form of the provider SDK's opaque user handle:
// a username bound to a pool, optionally carrying a pending challenge
// continuation. Exactly one current user exists in the gateway at a time.
type User struct {
	Username string            `json:"username"`
	PoolID   string            `json:"pool_id"`
	Pending  *PendingChallenge `json:"pending,omitempty"`
}

// Response is the envelope every gateway operation settles with. Exactly one
// of {Session, Error, UserAttributes+RequiredAttributes} is the active
// payload; Type disambiguates which.
type Response struct {
	Request            RequestKind       `json:"request"`
	Type               ResponseKind      `json:"type"`
	User               *User             `json:"user,omitempty"`
	Session            *Session          `json:"session,omitempty"`
	UserAttributes     map[string]string `json:"user_attributes,omitempty"`
	RequiredAttributes []string          `json:"required_attributes,omitempty"`
	Error              *autherr.Error    `json:"-"`
}

// ErrorCode returns the structured code on the envelope's error, or the
// empty code when the response carries no error.
func (r *Response) ErrorCode() autherr.ErrorCode {
	if r == nil || r.Error == nil {
		return ""
	}
	return r.Error.Code
}

// ErrorMessage returns the user-facing message of the envelope's error.
func (r *Response) ErrorMessage() string {
	if r == nil || r.Error == nil {
		return ""
	}
	return r.Error.Message
}
