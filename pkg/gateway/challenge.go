package gateway

import (
	"context"
	"log/slog"

	"github.com/tendant/simple-auth/pkg/autherr"
	"github.com/tendant/simple-auth/pkg/protocol"
)

// challengeResponseKind maps a challenge kind to its phase-1 response
// classification.
func challengeResponseKind(kind protocol.ChallengeKind) protocol.ResponseKind {
	switch kind {
	case protocol.ChallengeMagicLink:
		return protocol.ResponseMagicLink
	case protocol.ChallengePasskey:
		return protocol.ResponsePasskey
	default:
		return protocol.ResponseOtpChallenge
	}
}

func challengeRequestKind(kind protocol.ChallengeKind) protocol.RequestKind {
	switch kind {
	case protocol.ChallengeMagicLink:
		return protocol.RequestMagicLink
	case protocol.ChallengePasskey:
		return protocol.RequestPasskey
	default:
		return protocol.RequestOtpChallenge
	}
}

// OtpAuthenticate runs the one-time-password exchange. With no code it
// initiates the challenge and resolves with the provider's challenge
// parameters; with a code it answers the pending challenge on the current
// user handle.
func (s *Service) OtpAuthenticate(ctx context.Context, username, code string) (*protocol.Response, error) {
	if code == "" {
		return s.initiateChallenge(ctx, username, protocol.ChallengeOtp)
	}
	return s.answerChallenge(ctx, username, code, protocol.ChallengeOtp, "")
}

// MagicLinkAuthenticate runs the magic-link exchange. Phase 2 may carry an
// explicit session id recovered from the link's URL fragment, for the case
// where the link opens in a fresh page and the phase-1 handle is gone only
// in appearance: the continuation id survives in the link itself.
func (s *Service) MagicLinkAuthenticate(ctx context.Context, username, code, sessionID string) (*protocol.Response, error) {
	if code == "" {
		return s.initiateChallenge(ctx, username, protocol.ChallengeMagicLink)
	}
	return s.answerChallenge(ctx, username, code, protocol.ChallengeMagicLink, sessionID)
}

// PasskeyAuthenticate runs the passkey exchange. Phase 1 initiates the
// provider challenge and, when a ceremony is wired, attaches the generated
// authentication options to the challenge parameters. Phase 2 answers with
// the verified assertion code.
func (s *Service) PasskeyAuthenticate(ctx context.Context, username, code string) (*protocol.Response, error) {
	if code == "" {
		resp, err := s.initiateChallenge(ctx, username, protocol.ChallengePasskey)
		if err != nil || s.ceremony == nil {
			return resp, err
		}
		userID, options, cerr := s.ceremony.BeginAuthentication(ctx, username)
		if cerr != nil {
			failure := autherr.Wrap(cerr, autherr.ErrCodeTransport, "passkey ceremony failed")
			resp.Error = failure
			return resp, failure
		}
		if resp.User != nil && resp.User.Pending != nil {
			if resp.User.Pending.Parameters == nil {
				resp.User.Pending.Parameters = map[string]string{}
			}
			resp.User.Pending.Parameters["userId"] = userID
			resp.User.Pending.Parameters["options"] = string(options)
		}
		return resp, nil
	}
	return s.answerChallenge(ctx, username, code, protocol.ChallengePasskey, "")
}

// initiateChallenge is phase 1 of a custom challenge: the provider issues
// challenge parameters and a continuation token, recorded on a fresh user
// handle that becomes the current user so phase 2 can reuse it.
func (s *Service) initiateChallenge(ctx context.Context, username string, kind protocol.ChallengeKind) (*protocol.Response, error) {
	request := challengeRequestKind(kind)
	user := s.newUser(username)

	pending, err := s.provider.InitiateCustomChallenge(ctx, username, kind)
	if err != nil {
		failure := asFailure(err)
		slog.Error("Challenge initiation failed", "username", username, "kind", kind, "code", failure.Code)
		resp := &protocol.Response{
			Request: request,
			Type:    protocol.ResponseNotAuthorized,
			User:    user,
			Error:   failure,
		}
		return resp, failure
	}

	user.Pending = pending
	s.setCurrent(user)
	return &protocol.Response{
		Request: request,
		Type:    challengeResponseKind(kind),
		User:    user,
	}, nil
}

// answerChallenge is phase 2: it requires the phase-1 handle (or an explicit
// continuation id recovered from a magic link) and answers the challenge.
// A handle with no pending continuation fails distinctly from a wrong code:
// the challenge was never initiated in this process.
func (s *Service) answerChallenge(ctx context.Context, username, code string, kind protocol.ChallengeKind, continuation string) (*protocol.Response, error) {
	request := challengeRequestKind(kind)

	user := s.CurrentUser()
	if continuation != "" {
		user = s.newUser(username)
		user.Pending = &protocol.PendingChallenge{Kind: kind, ContinuationToken: continuation}
	}
	if user == nil || user.Pending == nil || user.Pending.ContinuationToken == "" {
		failure := autherr.New(autherr.ErrCodeNoPendingChallenge, "no pending challenge to answer; initiate the challenge first")
		resp := &protocol.Response{
			Request: request,
			Type:    protocol.ResponseNotAuthorized,
			User:    user,
			Error:   failure,
		}
		return resp, failure
	}
	if user.Pending.Kind != kind {
		failure := autherr.Newf(autherr.ErrCodeNoPendingChallenge, "pending challenge is %s, not %s", user.Pending.Kind, kind)
		resp := &protocol.Response{
			Request: request,
			Type:    protocol.ResponseNotAuthorized,
			User:    user,
			Error:   failure,
		}
		return resp, failure
	}

	result, err := s.provider.AnswerCustomChallenge(ctx, user, code)
	if err != nil {
		failure := asFailure(err)
		slog.Error("Challenge answer rejected", "username", user.Username, "kind", kind, "code", failure.Code)
		resp := &protocol.Response{
			Request: request,
			Type:    protocol.ResponseNotAuthorized,
			User:    user,
			Error:   failure,
		}
		return resp, failure
	}

	switch {
	case result.Session != nil:
		user.Pending = nil
		s.publishAuthenticated(user, result.Session)
		return &protocol.Response{
			Request: request,
			Type:    protocol.ResponseAuthenticated,
			User:    user,
			Session: result.Session,
		}, nil

	case result.Challenge != nil:
		// Provider re-issued the challenge (wrong code with retries
		// remaining). Thread the fresh continuation forward.
		user.Pending = result.Challenge
		s.setCurrent(user)
		return &protocol.Response{
			Request: request,
			Type:    challengeResponseKind(kind),
			User:    user,
		}, nil

	default:
		failure := autherr.New(autherr.ErrCodeNotAuthorized, "challenge answer yielded no session")
		resp := &protocol.Response{
			Request: request,
			Type:    protocol.ResponseNotAuthorized,
			User:    user,
			Error:   failure,
		}
		return resp, failure
	}
}
