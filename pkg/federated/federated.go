// Package federated handles the redirect boundary for federated/SSO login:
// building the hosted authorize URL, capturing tokens returned as URL
// fragment parameters, and persisting them under the widget's fixed keys.
package federated

import (
	"fmt"
	"net/url"
	"strings"
)

// Persisted local keys for federated tokens.
const (
	KeyAccessToken = "ems_access_token"
	KeyIDToken     = "ems_id_token"
)

// adminScope is appended to the standard scopes so the hosted UI issues
// tokens usable for user self-service calls.
const adminScope = "aws.cognito.signin.user.admin"

// TokenStorage is the subset of storage the federated helper needs. Both the
// ephemeral memstore and any durable storage adapter satisfy it.
type TokenStorage interface {
	Get(key string) (string, bool)
	Set(key, value string) string
	Remove(key string)
	RemovePrefixMatch(fragment string) int
}

// Config describes the hosted sign-in endpoint.
type Config struct {
	IssuerURL    string // base URL of the hosted sign-in domain
	ClientID     string
	ProviderName string // identity provider name, e.g. "Google"
	Origin       string // redirect target, the embedding page's origin
}

// AuthorizeURL builds the hosted /oauth2/authorize redirect URL for the
// configured identity provider.
func (c Config) AuthorizeURL() (string, error) {
	if c.IssuerURL == "" {
		return "", fmt.Errorf("federated issuer URL is not configured")
	}
	base, err := url.Parse(strings.TrimSuffix(c.IssuerURL, "/") + "/oauth2/authorize")
	if err != nil {
		return "", fmt.Errorf("invalid issuer URL: %w", err)
	}
	query := url.Values{}
	query.Set("identity_provider", c.ProviderName)
	query.Set("redirect_uri", c.Origin)
	query.Set("response_type", "TOKEN")
	query.Set("client_id", c.ClientID)
	query.Set("scope", "email openid profile "+adminScope)
	base.RawQuery = query.Encode()
	return base.String(), nil
}

// Tokens are the values the hosted UI hands back in the URL fragment after a
// successful federated sign-in.
type Tokens struct {
	AccessToken string
	IDToken     string
	SessionID   string
	Otp         string
}

// Present reports whether the fragment carried a usable token pair.
func (t Tokens) Present() bool {
	return t.AccessToken != "" && t.IDToken != ""
}

// ParseFragment extracts tokens from a URL fragment of the form
// "access_token=...&id_token=...&sessionId=...&otp=...". A leading "#" is
// tolerated.
func ParseFragment(fragment string) (Tokens, error) {
	fragment = strings.TrimPrefix(fragment, "#")
	values, err := url.ParseQuery(fragment)
	if err != nil {
		return Tokens{}, fmt.Errorf("failed to parse URL fragment: %w", err)
	}
	return Tokens{
		AccessToken: values.Get("access_token"),
		IDToken:     values.Get("id_token"),
		SessionID:   values.Get("sessionId"),
		Otp:         values.Get("otp"),
	}, nil
}

// Capture parses a redirect-return fragment, persists any token pair under
// the fixed keys, and returns the tokens together with the cleared fragment
// the caller should write back to the location bar.
func Capture(storage TokenStorage, fragment string) (Tokens, string, error) {
	tokens, err := ParseFragment(fragment)
	if err != nil {
		return Tokens{}, fragment, err
	}
	if !tokens.Present() {
		return tokens, fragment, nil
	}
	storage.Set(KeyAccessToken, tokens.AccessToken)
	storage.Set(KeyIDToken, tokens.IDToken)
	return tokens, "", nil
}

// Stored returns the persisted token pair, if both halves are present.
func Stored(storage TokenStorage) (Tokens, bool) {
	access, okAccess := storage.Get(KeyAccessToken)
	id, okID := storage.Get(KeyIDToken)
	if !okAccess || !okID {
		return Tokens{}, false
	}
	return Tokens{AccessToken: access, IDToken: id}, true
}

// Purge removes the persisted federated tokens and sweeps any key matching
// the given provider name fragment, the local fallback when remote sign-out
// fails.
func Purge(storage TokenStorage, providerKeyFragment string) {
	storage.Remove(KeyAccessToken)
	storage.Remove(KeyIDToken)
	if providerKeyFragment != "" {
		storage.RemovePrefixMatch(providerKeyFragment)
	}
}
