// Package config holds the environment-driven configuration surface of the
// auth widget: provider pool settings, federated SSO settings, sign-in
// method toggles, and the SMTP settings the challenge notifiers use.
package config
