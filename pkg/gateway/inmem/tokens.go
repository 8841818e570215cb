package inmem

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tendant/simple-auth/pkg/autherr"
	"github.com/tendant/simple-auth/pkg/protocol"
	"github.com/tendant/simple-auth/pkg/utils"
)

const tokenLifetime = time.Hour

// mintSession issues a fresh id/access/refresh token bundle for the user.
// Tokens are HMAC-signed JWTs carrying the claim set the widget derives
// profiles from. Caller holds p.mu.
func (p *Provider) mintSession(state *userState) (*protocol.Session, error) {
	now := time.Now()

	idClaims := jwt.MapClaims{
		"iss":              p.issuer,
		"sub":              state.record.Sub,
		"aud":              "simple-auth",
		"token_use":        "id",
		"cognito:username": state.record.Username,
		"email":            state.record.Email,
		"iat":              now.Unix(),
		"exp":              now.Add(tokenLifetime).Unix(),
	}
	if state.record.GivenName != "" {
		idClaims["given_name"] = state.record.GivenName
	}
	if state.record.FamilyName != "" {
		idClaims["family_name"] = state.record.FamilyName
	}

	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, idClaims).SignedString(p.signingKey)
	if err != nil {
		return nil, autherr.Wrap(err, autherr.ErrCodeInternal, "failed to sign id token")
	}

	accessClaims := jwt.MapClaims{
		"iss":       p.issuer,
		"sub":       state.record.Sub,
		"token_use": "access",
		"username":  state.record.Username,
		"iat":       now.Unix(),
		"exp":       now.Add(tokenLifetime).Unix(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(p.signingKey)
	if err != nil {
		return nil, autherr.Wrap(err, autherr.ErrCodeInternal, "failed to sign access token")
	}

	state.refreshToken = utils.GenerateRandomString(64)
	return &protocol.Session{
		IDToken:      idToken,
		AccessToken:  accessToken,
		RefreshToken: state.refreshToken,
	}, nil
}
