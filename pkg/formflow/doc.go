// Package formflow is the response-driven form state machine of the auth
// widget. It classifies gateway response envelopes into form transitions,
// user-facing messaging, and side effects, and exposes the submit
// operations the rendering layer binds to.
package formflow
