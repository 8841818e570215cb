package gateway

import (
	"fmt"

	"github.com/tendant/simple-auth/pkg/protocol"
)

// Profile is the consumer-visible view of an authenticated user, derived
// from the session's ID token claims.
type Profile struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Sub         string `json:"sub"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	IDToken     string `json:"idToken"`
	AccessToken string `json:"accessToken"`
}

// DeriveProfile builds a Profile from the session's decoded ID token.
func DeriveProfile(session *protocol.Session) (*Profile, error) {
	if session == nil {
		return nil, fmt.Errorf("no session to derive a profile from")
	}
	claims, err := session.IDClaims()
	if err != nil {
		return nil, err
	}
	str := func(key string) string {
		value, _ := claims[key].(string)
		return value
	}
	return &Profile{
		Email:       str("email"),
		Username:    str("cognito:username"),
		Sub:         str("sub"),
		FirstName:   str("given_name"),
		LastName:    str("family_name"),
		IDToken:     session.IDToken,
		AccessToken: session.AccessToken,
	}, nil
}
