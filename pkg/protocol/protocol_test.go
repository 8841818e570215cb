package protocol

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-auth/pkg/autherr"
)

func TestIDClaims(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"cognito:username": "alice",
		"email":            "alice@example.com",
	})
	signed, err := token.SignedString([]byte("key"))
	require.NoError(t, err)

	session := &Session{IDToken: signed}
	claims, err := session.IDClaims()
	require.NoError(t, err)
	assert.Equal(t, "alice", claims["cognito:username"])
	assert.Equal(t, "alice@example.com", claims["email"])
}

func TestIDClaimsRejectsGarbage(t *testing.T) {
	session := &Session{IDToken: "not-a-jwt"}
	_, err := session.IDClaims()
	assert.Error(t, err)
}

func TestResponseErrorHelpers(t *testing.T) {
	var nilResp *Response
	assert.Equal(t, autherr.ErrorCode(""), nilResp.ErrorCode())
	assert.Equal(t, "", nilResp.ErrorMessage())

	resp := &Response{}
	assert.Equal(t, autherr.ErrorCode(""), resp.ErrorCode())

	resp.Error = autherr.New(autherr.ErrCodeInvalidCode, "Invalid verification code provided, please try again.")
	assert.Equal(t, autherr.ErrCodeInvalidCode, resp.ErrorCode())
	assert.Equal(t, "Invalid verification code provided, please try again.", resp.ErrorMessage())
}
