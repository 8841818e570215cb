// Package gateway is the single point of contact with the identity
// provider's user-pool protocol for simple-auth.
//
// Every provider outcome, whether success, a named exception, or a
// mid-protocol challenge, is normalized into a protocol.Response envelope.
// Operations
// that reject still return a populated envelope alongside the error, and
// consumers classify by the envelope's Type and Error.Code fields, never by
// which channel settled: a first-login password-change demand resolves with
// type NEW_PASSWORD_REQUIRED because it is a legitimate protocol branch, not
// a failure.
//
// # Overview
//
// The gateway provides:
//   - Password authentication and session re-derivation
//   - Two-phase OTP, magic-link, and passkey challenge exchanges
//   - First-login new-password completion
//   - Forgot/confirm/reset password management
//   - Federated session synthesis from SSO redirect tokens
//   - Sign-out that always succeeds locally
//
// # State
//
// The gateway owns the single current user handle and two process-wide
// observable slots (current session, current user). Publication to the slots
// happens before the operation returns. Challenge phase 2 must reuse the
// exact handle phase 1 produced: the continuation token lives only on that
// in-memory value, and a fresh handle fails with ErrCodeNoPendingChallenge.
//
// # Basic Usage
//
//	import "github.com/tendant/simple-auth/pkg/gateway"
//
//	svc := gateway.NewService(provider, poolID)
//	resp, err := svc.Authenticate(ctx, username, password)
//	switch resp.Type {
//	case protocol.ResponseAuthenticated:
//		profile, _ := gateway.DeriveProfile(resp.Session)
//	case protocol.ResponsePasswordReset:
//		// first login: collect resp.RequiredAttributes and call
//		// svc.CompletePasswordUpdate
//	}
package gateway
