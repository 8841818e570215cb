// Package inmem provides an in-memory implementation of the gateway's
// Provider interface: a complete user-pool stand-in with password login,
// first-login new-password challenges, OTP and magic-link custom challenges,
// password management, and token issuance. It backs the demo and the test
// suite; nothing survives the process.
package inmem

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/pquerna/otp/totp"
	"github.com/tendant/simple-auth/pkg/autherr"
	"github.com/tendant/simple-auth/pkg/gateway"
	"github.com/tendant/simple-auth/pkg/notification"
	"github.com/tendant/simple-auth/pkg/protocol"
	"github.com/tendant/simple-auth/pkg/utils"
	"golang.org/x/crypto/bcrypt"
)

const (
	// OTP passcode parameters, email-passcode style: long period, one
	// step of skew for delivery latency.
	otpPeriod = 300
	otpSkew   = 1
	otpDigits = 6

	defaultAttemptLimit = 5
	defaultForgotLimit  = 5
)

// UserRecord describes a pool user seeded into the provider.
type UserRecord struct {
	Username           string
	Email              string
	Password           string // plain text at seed time, hashed at rest
	Sub                string
	GivenName          string
	FamilyName         string
	ExtraAttributes    map[string]string
	RequireNewPassword bool
	RequiredAttributes []string
	ForceReset         bool
}

type challengeState struct {
	kind    protocol.ChallengeKind
	code    string
	expires time.Time
}

type userState struct {
	record       UserRecord
	passwordHash string
	totpSecret   string
	badAttempts  int
	forgotCalls  int
	resetCode    string
	refreshToken string
	challenges   map[string]*challengeState
}

// Provider is an in-memory identity provider.
type Provider struct {
	mu           sync.Mutex
	users        map[string]*userState
	notifier     notification.Notifier
	signingKey   []byte
	issuer       string
	linkBaseURL  string
	attemptLimit int
	forgotLimit  int
	signOutErr   error
}

// Option configures the provider.
type Option func(*Provider)

// WithNotifier sets the delivery channel for passcodes and links. Defaults
// to logging via SlogNotifier.
func WithNotifier(notifier notification.Notifier) Option {
	return func(p *Provider) {
		p.notifier = notifier
	}
}

// WithSigningKey sets the HMAC key used to mint session tokens.
func WithSigningKey(key []byte) Option {
	return func(p *Provider) {
		p.signingKey = key
	}
}

// WithLinkBaseURL sets the page URL magic links point back to.
func WithLinkBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.linkBaseURL = baseURL
	}
}

// WithAttemptLimit sets how many bad passwords trigger throttling.
func WithAttemptLimit(limit int) Option {
	return func(p *Provider) {
		p.attemptLimit = limit
	}
}

// WithForgotLimit sets how many reset dispatches trigger throttling.
func WithForgotLimit(limit int) Option {
	return func(p *Provider) {
		p.forgotLimit = limit
	}
}

// WithSignOutError makes GlobalSignOut fail, to exercise the gateway's
// local-purge fallback.
func WithSignOutError(err error) Option {
	return func(p *Provider) {
		p.signOutErr = err
	}
}

// NewProvider creates an empty in-memory provider.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		users:        make(map[string]*userState),
		notifier:     notification.NewSlogNotifier(),
		signingKey:   []byte(utils.GenerateRandomString(32)),
		issuer:       "https://simple-auth.local",
		linkBaseURL:  "https://localhost/login",
		attemptLimit: defaultAttemptLimit,
		forgotLimit:  defaultForgotLimit,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddUser seeds a user. The plain-text password is hashed at rest and a
// subject id is assigned when the record has none.
func (p *Provider) AddUser(record UserRecord) error {
	if record.Username == "" {
		return fmt.Errorf("username is required")
	}
	hash := ""
	if record.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(record.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		hash = string(hashed)
	}
	if record.Sub == "" {
		record.Sub = uuid.NewString()
	}

	state := &userState{
		passwordHash: hash,
		challenges:   make(map[string]*challengeState),
	}
	// Snapshot the record so later caller mutation cannot reach in
	if err := copier.Copy(&state.record, &record); err != nil {
		return fmt.Errorf("failed to copy user record: %w", err)
	}
	state.record.Password = ""

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "simple-auth",
		AccountName: record.Username,
		Period:      otpPeriod,
		Digits:      otpDigits,
	})
	if err != nil {
		return fmt.Errorf("failed to generate otp secret: %w", err)
	}
	state.totpSecret = key.Secret()

	p.mu.Lock()
	p.users[strings.ToLower(record.Username)] = state
	p.mu.Unlock()
	return nil
}

func (p *Provider) lookup(username string) (*userState, *autherr.Error) {
	state, ok := p.users[strings.ToLower(username)]
	if !ok {
		// Mirror the provider behavior of not revealing which half of
		// the credential pair was wrong
		return nil, autherr.New(autherr.ErrCodeNotAuthorized, "Incorrect username or password.")
	}
	return state, nil
}

// InitiateAuth implements gateway.Provider.
func (p *Provider) InitiateAuth(ctx context.Context, username, password string) (*gateway.AuthResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, failure := p.lookup(username)
	if failure != nil {
		return nil, failure
	}

	if state.record.ForceReset {
		return nil, autherr.New(autherr.ErrCodeForcePasswordReset, "Password reset required for the user")
	}
	if state.badAttempts >= p.attemptLimit {
		return nil, autherr.New(autherr.ErrCodeLimitExceeded, "Password attempts exceeded")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(state.passwordHash), []byte(password)); err != nil {
		state.badAttempts++
		return nil, autherr.New(autherr.ErrCodeNotAuthorized, "Incorrect username or password.")
	}
	state.badAttempts = 0

	if state.record.RequireNewPassword {
		continuation := uuid.NewString()
		state.challenges[continuation] = &challengeState{
			kind:    protocol.ChallengeNewPassword,
			expires: time.Now().Add(10 * time.Minute),
		}
		return &gateway.AuthResult{
			NewPasswordRequired: &gateway.NewPasswordChallenge{
				UserAttributes:     p.attributesOf(state),
				RequiredAttributes: append([]string(nil), state.record.RequiredAttributes...),
				ContinuationToken:  continuation,
			},
		}, nil
	}

	session, err := p.mintSession(state)
	if err != nil {
		return nil, err
	}
	return &gateway.AuthResult{Session: session}, nil
}

// RespondToNewPassword implements gateway.Provider.
func (p *Provider) RespondToNewPassword(ctx context.Context, user *protocol.User, newPassword string, attributes map[string]string) (*gateway.AuthResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, failure := p.lookup(user.Username)
	if failure != nil {
		return nil, failure
	}
	if _, err := p.takeChallenge(state, user, protocol.ChallengeNewPassword); err != nil {
		return nil, err
	}

	hashed, herr := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if herr != nil {
		return nil, autherr.Wrap(herr, autherr.ErrCodeInternal, "failed to hash password")
	}
	state.passwordHash = string(hashed)
	state.record.RequireNewPassword = false
	for key, value := range attributes {
		switch key {
		case "given_name":
			state.record.GivenName = value
		case "family_name":
			state.record.FamilyName = value
		default:
			if state.record.ExtraAttributes == nil {
				state.record.ExtraAttributes = make(map[string]string)
			}
			state.record.ExtraAttributes[key] = value
		}
	}

	session, serr := p.mintSession(state)
	if serr != nil {
		return nil, serr
	}
	return &gateway.AuthResult{Session: session}, nil
}

// InitiateCustomChallenge implements gateway.Provider.
func (p *Provider) InitiateCustomChallenge(ctx context.Context, username string, kind protocol.ChallengeKind) (*protocol.PendingChallenge, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, failure := p.lookup(username)
	if failure != nil {
		return nil, failure
	}

	continuation := uuid.NewString()
	challenge := &challengeState{kind: kind, expires: time.Now().Add(10 * time.Minute)}
	parameters := map[string]string{"deliveryMedium": "EMAIL"}

	switch kind {
	case protocol.ChallengeOtp:
		code, err := totp.GenerateCodeCustom(state.totpSecret, time.Now(), totp.ValidateOpts{
			Period: otpPeriod,
			Skew:   otpSkew,
			Digits: otpDigits,
		})
		if err != nil {
			return nil, autherr.Wrap(err, autherr.ErrCodeInternal, "failed to generate passcode")
		}
		challenge.code = code
		p.notify(notification.OtpPasscodeNotice, state.record.Email, "Your one-time passcode is "+code, map[string]string{"code": code})

	case protocol.ChallengeMagicLink:
		challenge.code = utils.GenerateRandomString(32)
		link := fmt.Sprintf("%s#sessionId=%s&otp=%s", p.linkBaseURL, continuation, challenge.code)
		p.notify(notification.MagicLinkNotice, state.record.Email, "Sign in with this link: "+link, map[string]string{
			"sessionId": continuation,
			"otp":       challenge.code,
		})

	case protocol.ChallengePasskey:
		challenge.code = utils.GenerateRandomString(32)
		parameters["assertionCode"] = challenge.code

	default:
		return nil, autherr.Newf(autherr.ErrCodeInvalidInput, "unsupported challenge kind: %s", kind)
	}

	state.challenges[continuation] = challenge
	return &protocol.PendingChallenge{
		Kind:              kind,
		ContinuationToken: continuation,
		Parameters:        parameters,
	}, nil
}

// AnswerCustomChallenge implements gateway.Provider.
func (p *Provider) AnswerCustomChallenge(ctx context.Context, user *protocol.User, code string) (*gateway.AuthResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, failure := p.lookup(user.Username)
	if failure != nil {
		return nil, failure
	}
	if user.Pending == nil {
		return nil, autherr.New(autherr.ErrCodeNoPendingChallenge, "no pending challenge on the user handle")
	}
	challenge, err := p.takeChallenge(state, user, user.Pending.Kind)
	if err != nil {
		return nil, err
	}

	valid := false
	switch challenge.kind {
	case protocol.ChallengeOtp:
		valid, _ = totp.ValidateCustom(code, state.totpSecret, time.Now(), totp.ValidateOpts{
			Period: otpPeriod,
			Skew:   otpSkew,
			Digits: otpDigits,
		})
	default:
		valid = code != "" && code == challenge.code
	}
	if !valid {
		return nil, autherr.New(autherr.ErrCodeNotAuthorized, "Incorrect code.")
	}

	session, serr := p.mintSession(state)
	if serr != nil {
		return nil, serr
	}
	return &gateway.AuthResult{Session: session}, nil
}

// RefreshSession implements gateway.Provider.
func (p *Provider) RefreshSession(ctx context.Context, user *protocol.User, refreshToken string) (*protocol.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, failure := p.lookup(user.Username)
	if failure != nil {
		return nil, failure
	}
	if refreshToken == "" || refreshToken != state.refreshToken {
		return nil, autherr.New(autherr.ErrCodeNotAuthorized, "Refresh token is not valid")
	}
	return p.mintSession(state)
}

// ChangePassword implements gateway.Provider.
func (p *Provider) ChangePassword(ctx context.Context, user *protocol.User, accessToken, oldPassword, newPassword string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, failure := p.lookup(user.Username)
	if failure != nil {
		return failure
	}
	if err := bcrypt.CompareHashAndPassword([]byte(state.passwordHash), []byte(oldPassword)); err != nil {
		return autherr.New(autherr.ErrCodeNotAuthorized, "Incorrect username or password.")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return autherr.Wrap(err, autherr.ErrCodeInternal, "failed to hash password")
	}
	state.passwordHash = string(hashed)
	return nil
}

// ForgotPassword implements gateway.Provider.
func (p *Provider) ForgotPassword(ctx context.Context, username string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, failure := p.lookup(username)
	if failure != nil {
		return failure
	}
	if state.forgotCalls >= p.forgotLimit {
		return autherr.New(autherr.ErrCodeLimitExceeded, "Attempt limit exceeded, please try after some time.")
	}
	state.forgotCalls++
	state.resetCode = utils.GenerateNumericCode(otpDigits)
	p.notify(notification.VerificationCodeNotice, state.record.Email, "Your verification code is "+state.resetCode, map[string]string{"code": state.resetCode})
	return nil
}

// ConfirmForgotPassword implements gateway.Provider.
func (p *Provider) ConfirmForgotPassword(ctx context.Context, username, code, newPassword string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, failure := p.lookup(username)
	if failure != nil {
		return failure
	}
	if state.resetCode == "" || code != state.resetCode {
		return autherr.New(autherr.ErrCodeInvalidCode, "Invalid verification code provided, please try again.")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return autherr.Wrap(err, autherr.ErrCodeInternal, "failed to hash password")
	}
	state.passwordHash = string(hashed)
	state.resetCode = ""
	state.record.ForceReset = false
	state.badAttempts = 0
	return nil
}

// GlobalSignOut implements gateway.Provider.
func (p *Provider) GlobalSignOut(ctx context.Context, user *protocol.User, accessToken string) error {
	if p.signOutErr != nil {
		return p.signOutErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if state, ok := p.users[strings.ToLower(user.Username)]; ok {
		state.refreshToken = ""
	}
	return nil
}

// takeChallenge consumes the pending challenge referenced by the user
// handle. Challenges are single use.
func (p *Provider) takeChallenge(state *userState, user *protocol.User, kind protocol.ChallengeKind) (*challengeState, *autherr.Error) {
	if user.Pending == nil || user.Pending.ContinuationToken == "" {
		return nil, autherr.New(autherr.ErrCodeNoPendingChallenge, "no pending challenge on the user handle")
	}
	challenge, ok := state.challenges[user.Pending.ContinuationToken]
	if !ok {
		return nil, autherr.New(autherr.ErrCodeNotAuthorized, "Invalid session for the user.")
	}
	if challenge.kind != kind {
		return nil, autherr.Newf(autherr.ErrCodeNoPendingChallenge, "pending challenge is %s, not %s", challenge.kind, kind)
	}
	delete(state.challenges, user.Pending.ContinuationToken)
	if time.Now().After(challenge.expires) {
		return nil, autherr.New(autherr.ErrCodeExpiredCode, "Challenge has expired.")
	}
	return challenge, nil
}

func (p *Provider) attributesOf(state *userState) map[string]string {
	attrs := map[string]string{
		"email": state.record.Email,
	}
	if state.record.GivenName != "" {
		attrs["given_name"] = state.record.GivenName
	}
	if state.record.FamilyName != "" {
		attrs["family_name"] = state.record.FamilyName
	}
	for key, value := range state.record.ExtraAttributes {
		attrs[key] = value
	}
	return attrs
}

func (p *Provider) notify(noticeType notification.NoticeType, to, body string, data map[string]string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Send(noticeType, notification.NotificationData{To: to, Body: body, Data: data}); err != nil {
		slog.Error("Notification delivery failed", "type", noticeType, "err", err)
	}
}
