package cognito

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ciptypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-auth/pkg/autherr"
	"github.com/tendant/simple-auth/pkg/protocol"
)

// fakeAPI scripts Cognito responses and records the inputs it saw.
type fakeAPI struct {
	initiateOut *cip.InitiateAuthOutput
	initiateErr error
	initiateIn  *cip.InitiateAuthInput

	respondOut *cip.RespondToAuthChallengeOutput
	respondErr error
	respondIn  *cip.RespondToAuthChallengeInput

	forgotErr  error
	confirmErr error
	changeErr  error
	signOutErr error
}

func (f *fakeAPI) InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error) {
	f.initiateIn = params
	return f.initiateOut, f.initiateErr
}

func (f *fakeAPI) RespondToAuthChallenge(ctx context.Context, params *cip.RespondToAuthChallengeInput, optFns ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error) {
	f.respondIn = params
	return f.respondOut, f.respondErr
}

func (f *fakeAPI) ChangePassword(ctx context.Context, params *cip.ChangePasswordInput, optFns ...func(*cip.Options)) (*cip.ChangePasswordOutput, error) {
	return &cip.ChangePasswordOutput{}, f.changeErr
}

func (f *fakeAPI) ForgotPassword(ctx context.Context, params *cip.ForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ForgotPasswordOutput, error) {
	return &cip.ForgotPasswordOutput{}, f.forgotErr
}

func (f *fakeAPI) ConfirmForgotPassword(ctx context.Context, params *cip.ConfirmForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ConfirmForgotPasswordOutput, error) {
	return &cip.ConfirmForgotPasswordOutput{}, f.confirmErr
}

func (f *fakeAPI) GlobalSignOut(ctx context.Context, params *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error) {
	return &cip.GlobalSignOutOutput{}, f.signOutErr
}

func authResult() *ciptypes.AuthenticationResultType {
	return &ciptypes.AuthenticationResultType{
		IdToken:      aws.String("id-token"),
		AccessToken:  aws.String("access-token"),
		RefreshToken: aws.String("refresh-token"),
	}
}

func TestInitiateAuthSuccess(t *testing.T) {
	api := &fakeAPI{initiateOut: &cip.InitiateAuthOutput{AuthenticationResult: authResult()}}
	client := NewClient(api, "client-123")

	result, err := client.InitiateAuth(context.Background(), "alice", "Passw0rd!")
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.Equal(t, "id-token", result.Session.IDToken)
	assert.Equal(t, "refresh-token", result.Session.RefreshToken)

	assert.Equal(t, ciptypes.AuthFlowTypeUserPasswordAuth, api.initiateIn.AuthFlow)
	assert.Equal(t, "alice", api.initiateIn.AuthParameters["USERNAME"])
	_, hasHash := api.initiateIn.AuthParameters["SECRET_HASH"]
	assert.False(t, hasHash)
}

func TestInitiateAuthSecretHash(t *testing.T) {
	api := &fakeAPI{initiateOut: &cip.InitiateAuthOutput{AuthenticationResult: authResult()}}
	client := NewClient(api, "client-123", WithClientSecret("shhh"))

	_, err := client.InitiateAuth(context.Background(), "alice", "Passw0rd!")
	require.NoError(t, err)
	assert.NotEmpty(t, api.initiateIn.AuthParameters["SECRET_HASH"])
}

func TestInitiateAuthNewPasswordRequired(t *testing.T) {
	api := &fakeAPI{initiateOut: &cip.InitiateAuthOutput{
		ChallengeName: ciptypes.ChallengeNameTypeNewPasswordRequired,
		Session:       aws.String("session-token"),
		ChallengeParameters: map[string]string{
			"userAttributes":     `{"email":"bob@example.com","given_name":"Bob"}`,
			"requiredAttributes": `["userAttributes.given_name","userAttributes.family_name"]`,
		},
	}}
	client := NewClient(api, "client-123")

	result, err := client.InitiateAuth(context.Background(), "bob", "Temp0rary!")
	require.NoError(t, err)
	require.NotNil(t, result.NewPasswordRequired)
	assert.Equal(t, "session-token", result.NewPasswordRequired.ContinuationToken)
	assert.Equal(t, "bob@example.com", result.NewPasswordRequired.UserAttributes["email"])
	assert.Equal(t, []string{"given_name", "family_name"}, result.NewPasswordRequired.RequiredAttributes)
}

func TestRespondToNewPassword(t *testing.T) {
	api := &fakeAPI{respondOut: &cip.RespondToAuthChallengeOutput{AuthenticationResult: authResult()}}
	client := NewClient(api, "client-123")

	user := &protocol.User{
		Username: "bob",
		Pending:  &protocol.PendingChallenge{Kind: protocol.ChallengeNewPassword, ContinuationToken: "session-token"},
	}
	result, err := client.RespondToNewPassword(context.Background(), user, "NewPassw0rd!", map[string]string{"given_name": "Bob"})
	require.NoError(t, err)
	require.NotNil(t, result.Session)

	assert.Equal(t, ciptypes.ChallengeNameTypeNewPasswordRequired, api.respondIn.ChallengeName)
	assert.Equal(t, "session-token", aws.ToString(api.respondIn.Session))
	assert.Equal(t, "NewPassw0rd!", api.respondIn.ChallengeResponses["NEW_PASSWORD"])
	assert.Equal(t, "Bob", api.respondIn.ChallengeResponses["userAttributes.given_name"])
}

func TestRespondToNewPasswordWithoutChallenge(t *testing.T) {
	client := NewClient(&fakeAPI{}, "client-123")

	_, err := client.RespondToNewPassword(context.Background(), &protocol.User{Username: "bob"}, "x", nil)
	assert.True(t, autherr.IsCode(err, autherr.ErrCodeNoPendingChallenge))
}

func TestInitiateCustomChallenge(t *testing.T) {
	api := &fakeAPI{initiateOut: &cip.InitiateAuthOutput{
		ChallengeName:       ciptypes.ChallengeNameTypeCustomChallenge,
		Session:             aws.String("challenge-session"),
		ChallengeParameters: map[string]string{"deliveryMedium": "EMAIL"},
	}}
	client := NewClient(api, "client-123")

	pending, err := client.InitiateCustomChallenge(context.Background(), "alice", protocol.ChallengeMagicLink)
	require.NoError(t, err)
	assert.Equal(t, protocol.ChallengeMagicLink, pending.Kind)
	assert.Equal(t, "challenge-session", pending.ContinuationToken)

	assert.Equal(t, ciptypes.AuthFlowTypeCustomAuth, api.initiateIn.AuthFlow)
	assert.Equal(t, "magic-link", api.initiateIn.ClientMetadata["signInMethod"])
}

func TestAnswerCustomChallengeReissued(t *testing.T) {
	api := &fakeAPI{respondOut: &cip.RespondToAuthChallengeOutput{
		ChallengeName: ciptypes.ChallengeNameTypeCustomChallenge,
		Session:       aws.String("fresh-session"),
	}}
	client := NewClient(api, "client-123")

	user := &protocol.User{
		Username: "alice",
		Pending:  &protocol.PendingChallenge{Kind: protocol.ChallengeOtp, ContinuationToken: "stale-session"},
	}
	result, err := client.AnswerCustomChallenge(context.Background(), user, "000000")
	require.NoError(t, err)
	require.NotNil(t, result.Challenge)
	assert.Equal(t, "fresh-session", result.Challenge.ContinuationToken)
	assert.Equal(t, protocol.ChallengeOtp, result.Challenge.Kind)
}

func TestRefreshSessionKeepsHeldToken(t *testing.T) {
	api := &fakeAPI{initiateOut: &cip.InitiateAuthOutput{
		AuthenticationResult: &ciptypes.AuthenticationResultType{
			IdToken:     aws.String("id-token-2"),
			AccessToken: aws.String("access-token-2"),
		},
	}}
	client := NewClient(api, "client-123")

	session, err := client.RefreshSession(context.Background(), &protocol.User{Username: "alice"}, "held-refresh")
	require.NoError(t, err)
	assert.Equal(t, "held-refresh", session.RefreshToken)
	assert.Equal(t, ciptypes.AuthFlowTypeRefreshTokenAuth, api.initiateIn.AuthFlow)
}

func TestGlobalSignOutRequiresAccessToken(t *testing.T) {
	client := NewClient(&fakeAPI{}, "client-123")

	err := client.GlobalSignOut(context.Background(), &protocol.User{Username: "alice"}, "")
	assert.True(t, autherr.IsCode(err, autherr.ErrCodeNoCurrentUser))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected autherr.ErrorCode
	}{
		{"not authorized", &ciptypes.NotAuthorizedException{Message: aws.String("Incorrect username or password.")}, autherr.ErrCodeNotAuthorized},
		{"reset required", &ciptypes.PasswordResetRequiredException{Message: aws.String("Password reset required for the user")}, autherr.ErrCodeForcePasswordReset},
		{"code mismatch", &ciptypes.CodeMismatchException{Message: aws.String("Invalid verification code provided, please try again.")}, autherr.ErrCodeInvalidCode},
		{"expired code", &ciptypes.ExpiredCodeException{Message: aws.String("Invalid code provided, please request a code again.")}, autherr.ErrCodeExpiredCode},
		{"limit exceeded", &ciptypes.LimitExceededException{Message: aws.String("Attempt limit exceeded, please try after some time.")}, autherr.ErrCodeLimitExceeded},
		{"too many requests", &ciptypes.TooManyRequestsException{Message: aws.String("Rate exceeded")}, autherr.ErrCodeLimitExceeded},
		{"user not found", &ciptypes.UserNotFoundException{Message: aws.String("User does not exist.")}, autherr.ErrCodeUserNotFound},
		{"unclassified", errors.New("connection refused"), autherr.ErrCodeTransport},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mapped := mapError(tc.err, "fallback message")
			assert.Equal(t, tc.expected, mapped.Code)
		})
	}
}

func TestMapErrorKeepsProviderMessage(t *testing.T) {
	mapped := mapError(&ciptypes.NotAuthorizedException{Message: aws.String("Incorrect username or password.")}, "fallback")
	assert.Equal(t, "Incorrect username or password.", mapped.Message)
}

func TestInitiateAuthWrapsErrors(t *testing.T) {
	api := &fakeAPI{initiateErr: &ciptypes.NotAuthorizedException{Message: aws.String("Incorrect username or password.")}}
	client := NewClient(api, "client-123")

	_, err := client.InitiateAuth(context.Background(), "alice", "wrong")
	assert.True(t, autherr.IsCode(err, autherr.ErrCodeNotAuthorized))
}
