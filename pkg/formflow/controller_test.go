package formflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-auth/pkg/federated"
	"github.com/tendant/simple-auth/pkg/gateway"
	"github.com/tendant/simple-auth/pkg/gateway/inmem"
	"github.com/tendant/simple-auth/pkg/notification"
	"github.com/tendant/simple-auth/pkg/protocol"
)

type captureNotifier struct {
	mu    sync.Mutex
	sent  []notification.NoticeType
	datas []notification.NotificationData
}

func (n *captureNotifier) Send(noticeType notification.NoticeType, data notification.NotificationData) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, noticeType)
	n.datas = append(n.datas, data)
	return nil
}

func (n *captureNotifier) count(noticeType notification.NoticeType) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, sent := range n.sent {
		if sent == noticeType {
			count++
		}
	}
	return count
}

func (n *captureNotifier) lastData() map[string]string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.datas) == 0 {
		return nil
	}
	return n.datas[len(n.datas)-1].Data
}

func newTestController(t *testing.T, notifier *captureNotifier, events Events, opts ...Option) (*Controller, *gateway.Service) {
	t.Helper()
	provider := inmem.NewProvider(inmem.WithNotifier(notifier))
	provider.AddUser(inmem.UserRecord{
		Username:   "alice",
		Email:      "alice@example.com",
		Password:   "Passw0rd!",
		GivenName:  "Alice",
		FamilyName: "Garcia",
	})
	provider.AddUser(inmem.UserRecord{
		Username:           "bob",
		Email:              "bob@example.com",
		Password:           "Temp0rary!",
		RequireNewPassword: true,
		RequiredAttributes: []string{"given_name", "family_name", "email"},
	})
	provider.AddUser(inmem.UserRecord{
		Username:   "carol",
		Email:      "carol@example.com",
		Password:   "Passw0rd!",
		ForceReset: true,
	})

	gw := gateway.NewService(provider, "test-pool")
	opts = append([]Option{
		WithEvents(events),
		WithTick(func(time.Duration) {}),
	}, opts...)
	return NewController(gw, opts...), gw
}

func TestLoginWrongPasswordKeepsForm(t *testing.T) {
	var responses []*protocol.Response
	controller, _ := newTestController(t, &captureNotifier{}, Events{
		Response: func(resp *protocol.Response, _ FormModel) { responses = append(responses, resp) },
	})

	controller.Login(context.Background(), "alice", "wrong")

	model := controller.Model()
	assert.Equal(t, protocol.FormLogin, model.Form)
	assert.NotEmpty(t, model.Error)
	assert.False(t, model.Transitioning)

	require.Len(t, responses, 1)
	assert.Equal(t, protocol.ResponseNotAuthorized, responses[0].Type)
}

func TestLoginSuccessEmitsAuthenticated(t *testing.T) {
	var profile *gateway.Profile
	var connecting []bool
	controller, gw := newTestController(t, &captureNotifier{}, Events{
		Authenticated: func(p *gateway.Profile) { profile = p },
		Connecting:    func(c bool) { connecting = append(connecting, c) },
	})

	controller.Login(context.Background(), "alice", "Passw0rd!")

	require.NotNil(t, profile)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Equal(t, "Alice", profile.FirstName)

	assert.False(t, controller.Model().Visible)
	assert.NotNil(t, gw.SessionSlot().Get())
	assert.Equal(t, []bool{true, false}, connecting)
}

func TestFirstLoginShowsNewUserForm(t *testing.T) {
	controller, _ := newTestController(t, &captureNotifier{}, Events{})

	controller.Login(context.Background(), "bob", "Temp0rary!")

	model := controller.Model()
	assert.Equal(t, protocol.FormNewUser, model.Form)
	assert.Equal(t, MsgFirstLogin, model.Prompt)

	require.Len(t, model.Rows, 2)
	assert.Equal(t, "given_name", model.Rows[0].Key)
	assert.Equal(t, "family_name", model.Rows[1].Key)
}

func TestTransitionOrdering(t *testing.T) {
	var controller *Controller
	var order []string

	ticks := 0
	events := Events{
		Ready:      func() { order = append(order, "ready") },
		Connecting: func(c bool) { order = append(order, map[bool]string{true: "connecting", false: "complete"}[c]) },
	}
	notifier := &captureNotifier{}
	controller, _ = newTestController(t, notifier, events, WithTick(func(time.Duration) {
		ticks++
		if controller.Model().Transitioning {
			order = append(order, "transitioning")
		}
	}))

	controller.Login(context.Background(), "bob", "Temp0rary!")

	// The transitioning flag must be up across both settle ticks, with
	// the form swap (ready) between them, before the connection completes.
	assert.Equal(t, []string{"connecting", "transitioning", "ready", "transitioning", "complete"}, order)
	assert.Equal(t, 2, ticks)
	assert.False(t, controller.Model().Transitioning)
}

func TestForcedResetDispatchesExactlyOneCode(t *testing.T) {
	notifier := &captureNotifier{}
	controller, _ := newTestController(t, notifier, Events{})

	controller.Login(context.Background(), "carol", "Passw0rd!")

	model := controller.Model()
	assert.Equal(t, protocol.FormForcePasswordReset, model.Form)
	assert.Equal(t, MsgNewPasswordRequired, model.Prompt)
	assert.Equal(t, 1, notifier.count(notification.VerificationCodeNotice))
}

func TestForcedResetConvergesOnConfirm(t *testing.T) {
	notifier := &captureNotifier{}
	controller, _ := newTestController(t, notifier, Events{})

	controller.Login(context.Background(), "carol", "Passw0rd!")
	require.Equal(t, 1, notifier.count(notification.VerificationCodeNotice))
	code := notifier.lastData()["code"]
	require.NotEmpty(t, code)

	controller.SubmitForcePasswordReset(context.Background(), "carol", code, "NewPassw0rd!")

	// No session exists after a forced reset, so the controller returns
	// to the login form with the success prompt.
	model := controller.Model()
	assert.Equal(t, protocol.FormLogin, model.Form)
	assert.Equal(t, MsgPasswordChangeSuccessful, model.Prompt)
	assert.Empty(t, model.Error)
}

func TestForgotPasswordEntryConvergesOnSameForm(t *testing.T) {
	notifier := &captureNotifier{}
	controller, _ := newTestController(t, notifier, Events{})

	controller.BeginForgotPassword()
	assert.Equal(t, protocol.FormUserVerificationRequest, controller.Model().Form)
	assert.Equal(t, MsgVerificationCodeSent, controller.Model().Prompt)

	controller.RequestVerificationCode(context.Background(), "alice")

	model := controller.Model()
	assert.Equal(t, protocol.FormForcePasswordReset, model.Form)
	assert.Equal(t, MsgNewPasswordRequired, model.Prompt)
	assert.Equal(t, 1, notifier.count(notification.VerificationCodeNotice))
}

func TestOtpFlow(t *testing.T) {
	notifier := &captureNotifier{}
	var profile *gateway.Profile
	controller, _ := newTestController(t, notifier, Events{
		Authenticated: func(p *gateway.Profile) { profile = p },
	})

	controller.OtpLogin(context.Background(), "alice", "")

	model := controller.Model()
	assert.Equal(t, protocol.FormLogin, model.Form)
	assert.True(t, model.ShowCodeEntry)
	require.Equal(t, 1, notifier.count(notification.OtpPasscodeNotice))

	code := notifier.lastData()["code"]
	require.NotEmpty(t, code)
	controller.OtpLogin(context.Background(), "alice", code)

	require.NotNil(t, profile)
	assert.Equal(t, "alice", profile.Username)
	assert.False(t, controller.Model().Visible)
}

func TestMagicLinkFailureStaysSilent(t *testing.T) {
	controller, _ := newTestController(t, &captureNotifier{}, Events{})

	// A stale link answered with no pending challenge must not surface
	// an error.
	controller.MagicLinkLogin(context.Background(), "alice", "stale-code", "")

	model := controller.Model()
	assert.Equal(t, protocol.FormLogin, model.Form)
	assert.Empty(t, model.Error)
	assert.False(t, model.Transitioning)
}

func TestMagicLinkRequestFailureSurfaces(t *testing.T) {
	controller, _ := newTestController(t, &captureNotifier{}, Events{})

	// Failing to dispatch the link is not a stale-link case; the
	// rejection message must reach the user.
	controller.MagicLinkLogin(context.Background(), "nobody", "", "")

	model := controller.Model()
	assert.Equal(t, protocol.FormLogin, model.Form)
	assert.NotEmpty(t, model.Error)
	assert.False(t, model.ShowCodeEntry)
}

func TestSubmitNewUserWithoutFirstLoginFails(t *testing.T) {
	controller, _ := newTestController(t, &captureNotifier{}, Events{})

	// No first-login response was ever handled, so there is no handle
	// carrying the new-password continuation.
	controller.SubmitNewUser(context.Background(), "NewPassw0rd!", map[string]string{
		"given_name": "Mallory",
	})

	model := controller.Model()
	assert.Equal(t, protocol.FormLogin, model.Form)
	assert.NotEmpty(t, model.Error)
}

func TestSubmitUserPasswordResetWithoutUserFails(t *testing.T) {
	controller, _ := newTestController(t, &captureNotifier{}, Events{})

	controller.SubmitUserPasswordReset(context.Background(), "Passw0rd!", "NewPassw0rd!")

	model := controller.Model()
	assert.Equal(t, protocol.FormLogin, model.Form)
	assert.NotEmpty(t, model.Error)
}

func TestNewUserFormDisabled(t *testing.T) {
	controller, _ := newTestController(t, &captureNotifier{}, Events{})
	controller.Login(context.Background(), "bob", "Temp0rary!")

	values := map[string]string{"given_name": "Bob", "family_name": "Stone"}
	assert.False(t, controller.NewUserFormDisabled("Passw0rd!", "Passw0rd!", values))
	assert.True(t, controller.NewUserFormDisabled("Passw0rd!", "different", values))
	assert.True(t, controller.NewUserFormDisabled("", "", values))
	assert.True(t, controller.NewUserFormDisabled("Passw0rd!", "Passw0rd!", map[string]string{"given_name": "Bob"}))
}

func TestSubmitNewUserCompletesFirstLogin(t *testing.T) {
	var profile *gateway.Profile
	controller, _ := newTestController(t, &captureNotifier{}, Events{
		Authenticated: func(p *gateway.Profile) { profile = p },
	})

	controller.Login(context.Background(), "bob", "Temp0rary!")
	require.Equal(t, protocol.FormNewUser, controller.Model().Form)

	controller.SubmitNewUser(context.Background(), "NewPassw0rd!", map[string]string{
		"given_name":  "Bob",
		"family_name": "Stone",
	})

	require.NotNil(t, profile)
	assert.Equal(t, "bob", profile.Username)
	assert.Equal(t, "Bob", profile.FirstName)
	assert.False(t, controller.Model().Visible)
}

func TestInterceptorAbortsSubmit(t *testing.T) {
	var connecting []bool
	var stages []Stage
	controller, _ := newTestController(t, &captureNotifier{},
		Events{Connecting: func(c bool) { connecting = append(connecting, c) }},
		WithInterceptor(func(cp Checkpoint) bool {
			stages = append(stages, cp.Stage)
			return false
		}),
	)

	controller.Login(context.Background(), "alice", "Passw0rd!")

	assert.Equal(t, []Stage{StageSubmit}, stages)
	assert.Empty(t, connecting)
	assert.Equal(t, protocol.FormLogin, controller.Model().Form)
}

func TestShowFormFederatedNavigates(t *testing.T) {
	var navigated string
	controller, _ := newTestController(t, &captureNotifier{},
		Events{Navigate: func(url string) { navigated = url }},
		WithFederatedConfig(federated.Config{
			IssuerURL:    "https://auth.example.com",
			ClientID:     "client-123",
			ProviderName: "Google",
			Origin:       "https://app.example.com",
		}),
	)

	controller.ShowForm(protocol.FormFederatedSignIn)

	assert.Contains(t, navigated, "https://auth.example.com/oauth2/authorize")
	assert.Contains(t, navigated, "identity_provider=Google")
	assert.Equal(t, protocol.FormFederatedSignIn, controller.Model().Form)
}

func TestLogoutResetsState(t *testing.T) {
	var authenticated []*gateway.Profile
	controller, gw := newTestController(t, &captureNotifier{}, Events{
		Authenticated: func(p *gateway.Profile) { authenticated = append(authenticated, p) },
	})

	controller.Login(context.Background(), "alice", "Passw0rd!")
	require.NotNil(t, gw.SessionSlot().Get())

	controller.Logout(context.Background())

	assert.Nil(t, gw.SessionSlot().Get())
	assert.Nil(t, gw.UserSlot().Get())
	require.Len(t, authenticated, 2)
	assert.Nil(t, authenticated[1])

	model := controller.Model()
	assert.Equal(t, protocol.FormLogin, model.Form)
	assert.False(t, model.Visible)
}
