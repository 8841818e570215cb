package gateway

import (
	"context"
	"log/slog"

	"github.com/tendant/simple-auth/pkg/autherr"
	"github.com/tendant/simple-auth/pkg/protocol"
)

// CompletePasswordUpdate answers a first-login new-password challenge with
// the chosen password and the completed required attributes. On success the
// user becomes the current identity with a full session. A nil handle fails
// fast: the challenge only exists on the handle authentication produced.
func (s *Service) CompletePasswordUpdate(ctx context.Context, newPassword string, user *protocol.User, attributes map[string]string) (*protocol.Response, error) {
	if user == nil {
		failure := autherr.New(autherr.ErrCodeNoCurrentUser, "no first-login challenge in progress; authenticate first")
		resp := &protocol.Response{
			Request: protocol.RequestNewUserPasswordReset,
			Type:    protocol.ResponseNotAuthorized,
			Error:   failure,
		}
		return resp, failure
	}
	result, err := s.provider.RespondToNewPassword(ctx, user, newPassword, attributes)
	if err != nil {
		failure := asFailure(err)
		slog.Error("New-password challenge failed", "username", user.Username, "code", failure.Code)
		resp := &protocol.Response{
			Request: protocol.RequestNewUserPasswordReset,
			Type:    protocol.ResponseNotAuthorized,
			User:    user,
			Error:   failure,
		}
		return resp, failure
	}
	if result.Session == nil {
		failure := autherr.New(autherr.ErrCodeInternal, "provider completed password update without a session")
		resp := &protocol.Response{
			Request: protocol.RequestNewUserPasswordReset,
			Type:    protocol.ResponseNotAuthorized,
			User:    user,
			Error:   failure,
		}
		return resp, failure
	}

	user.Pending = nil
	s.publishAuthenticated(user, result.Session)
	return &protocol.Response{
		Request: protocol.RequestAuthentication,
		Type:    protocol.ResponseAuthenticated,
		User:    user,
		Session: result.Session,
	}, nil
}

// RequestVerificationCode triggers a reset-code dispatch for a freshly
// constructed handle, the entry point when no authentication attempt has
// happened yet.
func (s *Service) RequestVerificationCode(ctx context.Context, username string) (*protocol.Response, error) {
	return s.ForgotPassword(ctx, s.newUser(username))
}

// ForgotPassword dispatches a verification code to the user's registered
// delivery channel.
func (s *Service) ForgotPassword(ctx context.Context, user *protocol.User) (*protocol.Response, error) {
	if err := s.provider.ForgotPassword(ctx, user.Username); err != nil {
		failure := asFailure(err)
		slog.Error("Forgot-password dispatch failed", "username", user.Username, "code", failure.Code)
		resp := &protocol.Response{
			Request: protocol.RequestForgotPassword,
			Type:    protocol.ResponseLimitExceeded,
			User:    user,
			Error:   failure,
		}
		return resp, failure
	}
	return &protocol.Response{
		Request: protocol.RequestForgotPassword,
		Type:    protocol.ResponseSuccess,
		User:    user,
	}, nil
}

// ConfirmPassword finalizes a forced or self-service reset with the
// dispatched code and the new password. Both reset entry points converge
// here.
func (s *Service) ConfirmPassword(ctx context.Context, user *protocol.User, code, newPassword string) (*protocol.Response, error) {
	if err := s.provider.ConfirmForgotPassword(ctx, user.Username, code, newPassword); err != nil {
		failure := asFailure(err)
		slog.Error("Password confirmation failed", "username", user.Username, "code", failure.Code)
		resp := &protocol.Response{
			Request: protocol.RequestConfirmPassword,
			Type:    protocol.ResponseInvalidCode,
			User:    user,
			Error:   failure,
		}
		return resp, failure
	}
	return &protocol.Response{
		Request: protocol.RequestConfirmPassword,
		Type:    protocol.ResponseSuccess,
		User:    user,
	}, nil
}

// ResetPassword performs an authenticated in-place password change.
func (s *Service) ResetPassword(ctx context.Context, user *protocol.User, oldPassword, newPassword string) (*protocol.Response, error) {
	if user == nil {
		failure := autherr.New(autherr.ErrCodeNoCurrentUser, "no current user; authenticate before changing the password")
		resp := &protocol.Response{
			Request: protocol.RequestPasswordReset,
			Type:    protocol.ResponseNotAuthorized,
			Error:   failure,
		}
		return resp, failure
	}
	var accessToken string
	if session := s.sessionSlot.Get(); session != nil {
		accessToken = session.AccessToken
	}
	if err := s.provider.ChangePassword(ctx, user, accessToken, oldPassword, newPassword); err != nil {
		failure := asFailure(err)
		slog.Error("Password change failed", "username", user.Username, "code", failure.Code)
		resp := &protocol.Response{
			Request: protocol.RequestPasswordReset,
			Type:    protocol.ResponseLimitExceeded,
			User:    user,
			Error:   failure,
		}
		return resp, failure
	}
	return &protocol.Response{
		Request: protocol.RequestPasswordReset,
		Type:    protocol.ResponseSuccess,
		User:    user,
	}, nil
}
