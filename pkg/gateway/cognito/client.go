// Package cognito implements the gateway's Provider interface on top of the
// AWS Cognito user-pool API. It drives USER_PASSWORD_AUTH for password
// login, CUSTOM_AUTH for OTP/magic-link/passkey challenges, and the
// password-management calls, mapping the service's typed exceptions onto the
// widget's failure codes.
package cognito

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ciptypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/tendant/simple-auth/pkg/autherr"
	"github.com/tendant/simple-auth/pkg/gateway"
	"github.com/tendant/simple-auth/pkg/protocol"
)

// API is the subset of the Cognito identity provider client the adapter
// uses, satisfied by *cognitoidentityprovider.Client.
type API interface {
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	RespondToAuthChallenge(ctx context.Context, params *cip.RespondToAuthChallengeInput, optFns ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error)
	ChangePassword(ctx context.Context, params *cip.ChangePasswordInput, optFns ...func(*cip.Options)) (*cip.ChangePasswordOutput, error)
	ForgotPassword(ctx context.Context, params *cip.ForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ForgotPasswordOutput, error)
	ConfirmForgotPassword(ctx context.Context, params *cip.ConfirmForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ConfirmForgotPasswordOutput, error)
	GlobalSignOut(ctx context.Context, params *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error)
}

// Client adapts the Cognito user-pool API to the gateway.Provider contract.
type Client struct {
	api          API
	clientID     string
	clientSecret string
}

// Option configures a Client.
type Option func(*Client)

// WithClientSecret enables SECRET_HASH computation for app clients
// configured with a secret.
func WithClientSecret(secret string) Option {
	return func(c *Client) {
		c.clientSecret = secret
	}
}

// NewClient creates a Cognito-backed provider for the given app client.
func NewClient(api API, clientID string, opts ...Option) *Client {
	c := &Client{api: api, clientID: clientID}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) secretHash(username string) string {
	if c.clientSecret == "" {
		return ""
	}
	h := hmac.New(sha256.New, []byte(c.clientSecret))
	h.Write([]byte(username + c.clientID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func (c *Client) withSecretHash(params map[string]string, username string) map[string]string {
	if hash := c.secretHash(username); hash != "" {
		params["SECRET_HASH"] = hash
	}
	return params
}

// InitiateAuth implements gateway.Provider.
func (c *Client) InitiateAuth(ctx context.Context, username, password string) (*gateway.AuthResult, error) {
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: ciptypes.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: c.withSecretHash(map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		}, username),
	})
	if err != nil {
		return nil, mapError(err, "initiate auth failed")
	}

	if out.ChallengeName == ciptypes.ChallengeNameTypeNewPasswordRequired {
		return newPasswordResult(out.ChallengeParameters, out.Session)
	}
	if out.AuthenticationResult == nil {
		return nil, autherr.New(autherr.ErrCodeInternal, "no challenge requested and no authentication result received")
	}
	return &gateway.AuthResult{Session: toSession(out.AuthenticationResult)}, nil
}

// RespondToNewPassword implements gateway.Provider.
func (c *Client) RespondToNewPassword(ctx context.Context, user *protocol.User, newPassword string, attributes map[string]string) (*gateway.AuthResult, error) {
	if user.Pending == nil || user.Pending.ContinuationToken == "" {
		return nil, autherr.New(autherr.ErrCodeNoPendingChallenge, "no new-password challenge on the user handle")
	}

	responses := c.withSecretHash(map[string]string{
		"USERNAME":     user.Username,
		"NEW_PASSWORD": newPassword,
	}, user.Username)
	for key, value := range attributes {
		responses["userAttributes."+key] = value
	}

	out, err := c.api.RespondToAuthChallenge(ctx, &cip.RespondToAuthChallengeInput{
		ChallengeName:      ciptypes.ChallengeNameTypeNewPasswordRequired,
		ClientId:           aws.String(c.clientID),
		Session:            aws.String(user.Pending.ContinuationToken),
		ChallengeResponses: responses,
	})
	if err != nil {
		return nil, mapError(err, "new-password challenge failed")
	}
	if out.AuthenticationResult == nil {
		return nil, autherr.New(autherr.ErrCodeInternal, "password update accepted but no authentication result received")
	}
	return &gateway.AuthResult{Session: toSession(out.AuthenticationResult)}, nil
}

// InitiateCustomChallenge implements gateway.Provider. The challenge kind
// rides on ClientMetadata so the pool's custom-auth triggers can pick the
// delivery mechanism.
func (c *Client) InitiateCustomChallenge(ctx context.Context, username string, kind protocol.ChallengeKind) (*protocol.PendingChallenge, error) {
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: ciptypes.AuthFlowTypeCustomAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: c.withSecretHash(map[string]string{
			"USERNAME": username,
		}, username),
		ClientMetadata: map[string]string{
			"signInMethod": string(kind),
		},
	})
	if err != nil {
		return nil, mapError(err, "custom challenge initiation failed")
	}
	if out.ChallengeName != ciptypes.ChallengeNameTypeCustomChallenge || out.Session == nil {
		return nil, autherr.New(autherr.ErrCodeInternal, "expected a custom challenge from the provider")
	}
	return &protocol.PendingChallenge{
		Kind:              kind,
		ContinuationToken: *out.Session,
		Parameters:        out.ChallengeParameters,
	}, nil
}

// AnswerCustomChallenge implements gateway.Provider.
func (c *Client) AnswerCustomChallenge(ctx context.Context, user *protocol.User, code string) (*gateway.AuthResult, error) {
	if user.Pending == nil || user.Pending.ContinuationToken == "" {
		return nil, autherr.New(autherr.ErrCodeNoPendingChallenge, "no custom challenge on the user handle")
	}

	out, err := c.api.RespondToAuthChallenge(ctx, &cip.RespondToAuthChallengeInput{
		ChallengeName: ciptypes.ChallengeNameTypeCustomChallenge,
		ClientId:      aws.String(c.clientID),
		Session:       aws.String(user.Pending.ContinuationToken),
		ChallengeResponses: c.withSecretHash(map[string]string{
			"USERNAME": user.Username,
			"ANSWER":   code,
		}, user.Username),
	})
	if err != nil {
		return nil, mapError(err, "custom challenge answer rejected")
	}

	// A wrong answer with retries remaining re-issues the challenge with
	// a fresh session token
	if out.ChallengeName == ciptypes.ChallengeNameTypeCustomChallenge && out.Session != nil {
		return &gateway.AuthResult{Challenge: &protocol.PendingChallenge{
			Kind:              user.Pending.Kind,
			ContinuationToken: *out.Session,
			Parameters:        out.ChallengeParameters,
		}}, nil
	}
	if out.AuthenticationResult == nil {
		return nil, autherr.New(autherr.ErrCodeNotAuthorized, "challenge answer yielded no session")
	}
	return &gateway.AuthResult{Session: toSession(out.AuthenticationResult)}, nil
}

// RefreshSession implements gateway.Provider.
func (c *Client) RefreshSession(ctx context.Context, user *protocol.User, refreshToken string) (*protocol.Session, error) {
	if refreshToken == "" {
		return nil, autherr.New(autherr.ErrCodeNotAuthorized, "no refresh token held for the current user")
	}
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: ciptypes.AuthFlowTypeRefreshTokenAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: c.withSecretHash(map[string]string{
			"REFRESH_TOKEN": refreshToken,
		}, user.Username),
	})
	if err != nil {
		return nil, mapError(err, "session refresh failed")
	}
	if out.AuthenticationResult == nil {
		return nil, autherr.New(autherr.ErrCodeInternal, "refresh returned no authentication result")
	}
	session := toSession(out.AuthenticationResult)
	if session.RefreshToken == "" {
		// Refresh responses omit the refresh token; keep the held one
		session.RefreshToken = refreshToken
	}
	return session, nil
}

// ChangePassword implements gateway.Provider.
func (c *Client) ChangePassword(ctx context.Context, user *protocol.User, accessToken, oldPassword, newPassword string) error {
	_, err := c.api.ChangePassword(ctx, &cip.ChangePasswordInput{
		AccessToken:      aws.String(accessToken),
		PreviousPassword: aws.String(oldPassword),
		ProposedPassword: aws.String(newPassword),
	})
	if err != nil {
		return mapError(err, "change password failed")
	}
	return nil
}

// ForgotPassword implements gateway.Provider.
func (c *Client) ForgotPassword(ctx context.Context, username string) error {
	input := &cip.ForgotPasswordInput{
		ClientId: aws.String(c.clientID),
		Username: aws.String(username),
	}
	if hash := c.secretHash(username); hash != "" {
		input.SecretHash = aws.String(hash)
	}
	if _, err := c.api.ForgotPassword(ctx, input); err != nil {
		return mapError(err, "forgot password dispatch failed")
	}
	return nil
}

// ConfirmForgotPassword implements gateway.Provider.
func (c *Client) ConfirmForgotPassword(ctx context.Context, username, code, newPassword string) error {
	input := &cip.ConfirmForgotPasswordInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
		Password:         aws.String(newPassword),
	}
	if hash := c.secretHash(username); hash != "" {
		input.SecretHash = aws.String(hash)
	}
	if _, err := c.api.ConfirmForgotPassword(ctx, input); err != nil {
		return mapError(err, "confirm password failed")
	}
	return nil
}

// GlobalSignOut implements gateway.Provider.
func (c *Client) GlobalSignOut(ctx context.Context, user *protocol.User, accessToken string) error {
	if accessToken == "" {
		return autherr.New(autherr.ErrCodeNoCurrentUser, "no access token to sign out with")
	}
	if _, err := c.api.GlobalSignOut(ctx, &cip.GlobalSignOutInput{
		AccessToken: aws.String(accessToken),
	}); err != nil {
		return mapError(err, "global sign-out failed")
	}
	return nil
}

// newPasswordResult decodes a NEW_PASSWORD_REQUIRED challenge into the
// gateway's tagged result. The challenge parameters carry userAttributes as
// a JSON object and requiredAttributes as a JSON array of
// "userAttributes."-prefixed names.
func newPasswordResult(parameters map[string]string, session *string) (*gateway.AuthResult, error) {
	if session == nil {
		return nil, autherr.New(autherr.ErrCodeInternal, "new-password challenge without a session token")
	}

	challenge := &gateway.NewPasswordChallenge{ContinuationToken: *session}

	if raw, ok := parameters["userAttributes"]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &challenge.UserAttributes); err != nil {
			return nil, autherr.Wrap(err, autherr.ErrCodeInternal, "failed to decode user attributes")
		}
	}
	if raw, ok := parameters["requiredAttributes"]; ok && raw != "" {
		var prefixed []string
		if err := json.Unmarshal([]byte(raw), &prefixed); err != nil {
			return nil, autherr.Wrap(err, autherr.ErrCodeInternal, "failed to decode required attributes")
		}
		for _, name := range prefixed {
			challenge.RequiredAttributes = append(challenge.RequiredAttributes, strings.TrimPrefix(name, "userAttributes."))
		}
	}

	return &gateway.AuthResult{NewPasswordRequired: challenge}, nil
}

func toSession(result *ciptypes.AuthenticationResultType) *protocol.Session {
	session := &protocol.Session{}
	if result.IdToken != nil {
		session.IDToken = *result.IdToken
	}
	if result.AccessToken != nil {
		session.AccessToken = *result.AccessToken
	}
	if result.RefreshToken != nil {
		session.RefreshToken = *result.RefreshToken
	}
	return session
}

// mapError translates the service's typed exceptions onto the widget's
// failure codes; anything unrecognized passes through as a transport
// failure.
func mapError(err error, message string) *autherr.Error {
	var (
		notAuthorized *ciptypes.NotAuthorizedException
		resetRequired *ciptypes.PasswordResetRequiredException
		codeMismatch  *ciptypes.CodeMismatchException
		expiredCode   *ciptypes.ExpiredCodeException
		limitExceeded *ciptypes.LimitExceededException
		tooMany       *ciptypes.TooManyRequestsException
		userNotFound  *ciptypes.UserNotFoundException
	)
	switch {
	case errors.As(err, &notAuthorized):
		return autherr.Wrap(err, autherr.ErrCodeNotAuthorized, aws.ToString(notAuthorized.Message))
	case errors.As(err, &resetRequired):
		return autherr.Wrap(err, autherr.ErrCodeForcePasswordReset, aws.ToString(resetRequired.Message))
	case errors.As(err, &codeMismatch):
		return autherr.Wrap(err, autherr.ErrCodeInvalidCode, aws.ToString(codeMismatch.Message))
	case errors.As(err, &expiredCode):
		return autherr.Wrap(err, autherr.ErrCodeExpiredCode, aws.ToString(expiredCode.Message))
	case errors.As(err, &limitExceeded):
		return autherr.Wrap(err, autherr.ErrCodeLimitExceeded, aws.ToString(limitExceeded.Message))
	case errors.As(err, &tooMany):
		return autherr.Wrap(err, autherr.ErrCodeLimitExceeded, aws.ToString(tooMany.Message))
	case errors.As(err, &userNotFound):
		return autherr.Wrap(err, autherr.ErrCodeUserNotFound, aws.ToString(userNotFound.Message))
	default:
		return autherr.Wrap(err, autherr.ErrCodeTransport, message)
	}
}
