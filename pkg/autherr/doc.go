// Package autherr provides structured error handling with error codes for simple-auth.
//
// Provider-facing codes keep the identity provider's exception names as their
// values (e.g. NotAuthorizedException), so a failure can flow from the
// provider adapter through the gateway to the response classifier without a
// translation layer. Widget-local codes cover failures that never leave the
// process, such as answering a challenge that was never initiated.
//
// # Basic Usage
//
//	import "github.com/tendant/simple-auth/pkg/autherr"
//
//	// Create an error with a code
//	err := autherr.New(autherr.ErrCodeInvalidCode, "verification code does not match")
//
//	// Wrap a provider error
//	err := autherr.Wrap(sdkErr, autherr.ErrCodeTransport, "initiate auth failed")
//
//	// Inspect codes
//	if autherr.IsCode(err, autherr.ErrCodeLimitExceeded) { ... }
package autherr
