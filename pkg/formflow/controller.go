package formflow

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tendant/simple-auth/pkg/federated"
	"github.com/tendant/simple-auth/pkg/gateway"
	"github.com/tendant/simple-auth/pkg/observe"
	"github.com/tendant/simple-auth/pkg/protocol"
)

// Transition timing. The first delay lets the transitioning flag be
// observed before the form swap; the second yields once more before the
// flag drops and the connection completes.
const (
	settleDelay                 = 250 * time.Millisecond
	postSwapDelay time.Duration = 0
)

// Controller is the response-driven form state machine. Every gateway
// response passes through Classify and the resulting decision is applied
// here: form swaps, messaging, the code-entry reveal, and the
// authenticated hand-off to the embedder.
type Controller struct {
	gw        *gateway.Service
	events    Events
	intercept Interceptor
	tick      func(time.Duration)
	fedConfig *federated.Config

	mu            sync.Mutex
	form          protocol.FormKind
	visible       bool
	transitioning bool
	showCodeEntry bool
	message       string
	prompt        string
	rows          []Row
	prefill       map[string]string
	last          *protocol.Response

	formSlot *observe.Slot[protocol.FormKind]
}

type Option func(*Controller)

// WithEvents registers the consumer-visible event callbacks.
func WithEvents(events Events) Option {
	return func(c *Controller) {
		c.events = events
	}
}

// WithInterceptor installs a lifecycle interceptor. Returning false from
// the interceptor aborts the step before any gateway call or form swap.
func WithInterceptor(intercept Interceptor) Option {
	return func(c *Controller) {
		c.intercept = intercept
	}
}

// WithTick replaces the transition delay function. Tests inject a
// recording tick to assert ordering without waiting out real delays.
func WithTick(tick func(time.Duration)) Option {
	return func(c *Controller) {
		c.tick = tick
	}
}

// WithFederatedConfig enables the federated sign-in form; showing it emits
// a Navigate event carrying the provider's authorize URL.
func WithFederatedConfig(cfg federated.Config) Option {
	return func(c *Controller) {
		c.fedConfig = &cfg
	}
}

func NewController(gw *gateway.Service, opts ...Option) *Controller {
	c := &Controller{
		gw:       gw,
		tick:     time.Sleep,
		form:     protocol.FormLogin,
		formSlot: observe.NewSlot(protocol.FormLogin),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FormSlot exposes the current form as an observable for embedders that
// prefer subscription over the Response event.
func (c *Controller) FormSlot() *observe.Slot[protocol.FormKind] {
	return c.formSlot
}

// Model snapshots the current form state.
func (c *Controller) Model() FormModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows := make([]Row, len(c.rows))
	copy(rows, c.rows)
	return FormModel{
		Form:          c.form,
		Visible:       c.visible,
		Transitioning: c.transitioning,
		ShowCodeEntry: c.showCodeEntry,
		Error:         c.message,
		Prompt:        c.prompt,
		Rows:          rows,
	}
}

// Prefill returns the known values for the new-user rows, keyed by
// attribute key.
func (c *Controller) Prefill() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefill := make(map[string]string, len(c.prefill))
	for key, value := range c.prefill {
		prefill[key] = value
	}
	return prefill
}

// Initialize restores a federated session left behind by a prior redirect.
// Absence of a usable session is not an error: the widget simply starts at
// the login form.
func (c *Controller) Initialize(ctx context.Context) {
	if resp, ok := c.gw.BootstrapFederated(ctx); ok {
		c.HandleResponse(ctx, resp)
		return
	}
	c.ShowForm(protocol.FormLogin)
}

// ShowForm activates a form on explicit external request, outside the
// classifier-driven transitions. The federated sign-in form additionally
// emits the Navigate event with the provider authorize URL; the embedder
// performs the redirect.
func (c *Controller) ShowForm(form protocol.FormKind) {
	c.mu.Lock()
	c.form = form
	c.visible = true
	c.showCodeEntry = false
	c.message = ""
	c.prompt = ""
	c.mu.Unlock()
	c.formSlot.Set(form)
	c.events.emitReady()
	if form == protocol.FormFederatedSignIn && c.fedConfig != nil {
		url, err := c.fedConfig.AuthorizeURL()
		if err != nil {
			slog.Error("Failed to build federated authorize URL", "err", err)
			return
		}
		c.events.emitNavigate(url)
	}
}

// Login runs a password authentication attempt.
func (c *Controller) Login(ctx context.Context, username, password string) {
	c.events.emitUsernameEntered(username)
	if !c.allow(StageSubmit, nil) {
		return
	}
	c.beginConnection()
	resp, _ := c.gw.Authenticate(ctx, username, password)
	c.HandleResponse(ctx, resp)
}

// OtpLogin runs the one-time-password exchange: with an empty code it
// initiates the challenge (revealing the code entry control on success),
// with a code it answers the pending challenge.
func (c *Controller) OtpLogin(ctx context.Context, username, code string) {
	c.events.emitUsernameEntered(username)
	if !c.allow(StageSubmit, nil) {
		return
	}
	c.beginConnection()
	resp, _ := c.gw.OtpAuthenticate(ctx, username, code)
	c.HandleResponse(ctx, resp)
}

// MagicLinkLogin runs the magic-link exchange. Phase 2 may carry a session
// id recovered from the link fragment when the link opened in a fresh page.
func (c *Controller) MagicLinkLogin(ctx context.Context, username, code, sessionID string) {
	c.events.emitUsernameEntered(username)
	if !c.allow(StageSubmit, nil) {
		return
	}
	c.beginConnection()
	resp, _ := c.gw.MagicLinkAuthenticate(ctx, username, code, sessionID)
	c.HandleResponse(ctx, resp)
}

// PasskeyLogin runs the passkey exchange.
func (c *Controller) PasskeyLogin(ctx context.Context, username, code string) {
	c.events.emitUsernameEntered(username)
	if !c.allow(StageSubmit, nil) {
		return
	}
	c.beginConnection()
	resp, _ := c.gw.PasskeyAuthenticate(ctx, username, code)
	c.HandleResponse(ctx, resp)
}

// SubmitNewUser completes a first login: the new password plus the values
// collected for the required-attribute rows.
func (c *Controller) SubmitNewUser(ctx context.Context, newPassword string, attributes map[string]string) {
	if !c.allow(StageSubmit, nil) {
		return
	}
	c.mu.Lock()
	last := c.last
	c.mu.Unlock()
	var user *protocol.User
	if last != nil {
		user = last.User
	}
	c.beginConnection()
	resp, _ := c.gw.CompletePasswordUpdate(ctx, newPassword, user, attributes)
	c.HandleResponse(ctx, resp)
}

// NewUserFormDisabled reports whether the new-user form should stay
// disabled: the password pair must match and be non-empty, and every
// required row must have a value.
func (c *Controller) NewUserFormDisabled(password, confirm string, values map[string]string) bool {
	if password == "" || password != confirm {
		return true
	}
	c.mu.Lock()
	rows := c.rows
	c.mu.Unlock()
	for _, row := range rows {
		if strings.TrimSpace(values[row.Key]) == "" {
			return true
		}
	}
	return false
}

// SubmitForcePasswordReset completes an admin-forced or forgot-password
// reset with the emailed code and the chosen new password.
func (c *Controller) SubmitForcePasswordReset(ctx context.Context, username, code, newPassword string) {
	if !c.allow(StageSubmit, nil) {
		return
	}
	c.beginConnection()
	user := c.gw.CurrentUser()
	if user == nil || user.Username != username {
		user = &protocol.User{Username: username}
	}
	resp, err := c.gw.ConfirmPassword(ctx, user, code, newPassword)
	if err != nil {
		c.HandleResponse(ctx, resp)
		return
	}
	c.setMessaging("", MsgPasswordChangeSuccessful)
	c.events.emitResponse(resp, c.Model())
	// No session exists yet; return to the login form so the prompt
	// lands where the user can act on it.
	c.swapForm(protocol.FormLogin)
	c.connectionComplete()
}

// SubmitUserPasswordReset changes the current user's password while
// authenticated.
func (c *Controller) SubmitUserPasswordReset(ctx context.Context, oldPassword, newPassword string) {
	if !c.allow(StageSubmit, nil) {
		return
	}
	c.beginConnection()
	resp, err := c.gw.ResetPassword(ctx, c.gw.CurrentUser(), oldPassword, newPassword)
	if err != nil {
		c.HandleResponse(ctx, resp)
		return
	}
	c.setMessaging("", MsgPasswordUpdated)
	c.events.emitResponse(resp, c.Model())
	c.swapForm(protocol.FormPasswordUpdateSuccessful)
	c.connectionComplete()
}

// BeginForgotPassword moves to the verification-request form where the
// user supplies their email to receive a reset code.
func (c *Controller) BeginForgotPassword() {
	c.setMessaging("", MsgVerificationCodeSent)
	c.swapForm(protocol.FormUserVerificationRequest)
}

// RequestVerificationCode dispatches the reset code for the given
// username, then converges on the same forced-reset form the admin-forced
// path lands on.
func (c *Controller) RequestVerificationCode(ctx context.Context, username string) {
	if !c.allow(StageSubmit, nil) {
		return
	}
	c.beginConnection()
	resp, err := c.gw.RequestVerificationCode(ctx, username)
	if err != nil {
		c.HandleResponse(ctx, resp)
		return
	}
	c.setMessaging("", MsgNewPasswordRequired)
	c.events.emitResponse(resp, c.Model())
	c.swapForm(protocol.FormForcePasswordReset)
	c.connectionComplete()
}

// Logout signs the current user out and resets the widget to its initial
// state. Logout never fails.
func (c *Controller) Logout(ctx context.Context) {
	_, _ = c.gw.Logout(ctx)
	c.mu.Lock()
	c.form = protocol.FormLogin
	c.visible = false
	c.showCodeEntry = false
	c.message = ""
	c.prompt = ""
	c.rows = nil
	c.prefill = nil
	c.last = nil
	c.mu.Unlock()
	c.formSlot.Set(protocol.FormLogin)
	c.events.emitAuthenticated(nil)
}

// HandleResponse classifies a gateway response and applies the decision:
// messaging, the form swap through the two-phase transition, and the
// decision's side effect.
func (c *Controller) HandleResponse(ctx context.Context, resp *protocol.Response) {
	if resp == nil {
		c.connectionComplete()
		return
	}
	c.mu.Lock()
	c.last = resp
	c.mu.Unlock()

	if !c.allow(StageResponse, resp) {
		c.connectionComplete()
		return
	}

	decision := Classify(resp)
	c.setMessaging(decision.Message, decision.Prompt)
	c.events.emitResponse(resp, c.Model())

	switch decision.Action {
	case ActionInitiateReset:
		c.initiatePasswordReset(ctx, resp)

	case ActionShowNewUserForm:
		c.mu.Lock()
		c.rows, c.prefill = buildRows(resp.RequiredAttributes, resp.UserAttributes)
		c.mu.Unlock()
		c.swapForm(protocol.FormNewUser)

	case ActionRevealCodeEntry:
		c.mu.Lock()
		c.showCodeEntry = true
		c.mu.Unlock()

	case ActionAuthenticated:
		c.completeAuthenticated(resp)
	}
	c.connectionComplete()
}

// initiatePasswordReset handles the admin-forced reset discovered during
// login: exactly one verification-code dispatch, then the forced-reset
// form.
func (c *Controller) initiatePasswordReset(ctx context.Context, resp *protocol.Response) {
	user := resp.User
	if user == nil {
		user = c.gw.CurrentUser()
	}
	result, err := c.gw.ForgotPassword(ctx, user)
	if err != nil {
		c.setMessaging(messageFor(result), "")
	} else {
		c.setMessaging("", MsgNewPasswordRequired)
	}
	c.swapForm(protocol.FormForcePasswordReset)
}

func (c *Controller) completeAuthenticated(resp *protocol.Response) {
	profile, err := gateway.DeriveProfile(resp.Session)
	if err != nil {
		slog.Error("Failed to derive profile from session", "err", err)
	}
	c.mu.Lock()
	c.visible = false
	c.showCodeEntry = false
	c.mu.Unlock()
	c.events.emitAuthenticated(profile)
}

// swapForm applies the two-phase transition contract: the transitioning
// flag raises before the settle delay, the form swaps while the flag is
// up, and the flag drops after the post-swap settle.
func (c *Controller) swapForm(form protocol.FormKind) {
	c.setTransitioning(true)
	c.tick(settleDelay)
	c.mu.Lock()
	c.form = form
	c.visible = true
	c.showCodeEntry = false
	c.mu.Unlock()
	c.formSlot.Set(form)
	c.events.emitReady()
	c.tick(postSwapDelay)
	c.setTransitioning(false)
}

func (c *Controller) beginConnection() {
	c.setMessaging("", "")
	c.events.emitConnecting(true)
}

func (c *Controller) connectionComplete() {
	c.setTransitioning(false)
	c.events.emitConnecting(false)
}

func (c *Controller) setMessaging(message, prompt string) {
	c.mu.Lock()
	c.message = message
	c.prompt = prompt
	c.mu.Unlock()
}

func (c *Controller) setTransitioning(transitioning bool) {
	c.mu.Lock()
	c.transitioning = transitioning
	c.mu.Unlock()
}

func (c *Controller) allow(stage Stage, resp *protocol.Response) bool {
	if c.intercept == nil {
		return true
	}
	return c.intercept(Checkpoint{Stage: stage, Form: c.Model(), Response: resp})
}
