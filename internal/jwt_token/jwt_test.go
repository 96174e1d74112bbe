package jwttoken

import (
	"testing"
	"time"

	dErrors "certwallet/pkg/domain-errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-signing-key"

func newTokens() *AdminTokens {
	return NewAdminTokens(testKey, "certwallet-test")
}

func Test_IssueAndValidate(t *testing.T) {
	tokens := newTokens()
	token, err := tokens.Issue("ops@example.org", time.Minute)
	require.NoError(t, err)

	claims, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.org", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt.Time, 5*time.Second)

	subject, err := tokens.ValidateAdminToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.org", subject)
}

func Test_IssueRejectsBadInput(t *testing.T) {
	_, err := newTokens().Issue("", time.Minute)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = newTokens().Issue("ops", 0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func Test_Validate_ExpiredToken(t *testing.T) {
	tokens := newTokens()
	tokens.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := tokens.Issue("ops", time.Minute)
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Validate(token)
	require.ErrorContains(t, err, "token expired")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_Validate_RejectsGarbage(t *testing.T) {
	_, err := newTokens().Validate("not-a-token")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_Validate_RejectsOtherIssuerAndKey(t *testing.T) {
	token, err := NewAdminTokens(testKey, "someone-else").Issue("ops", time.Minute)
	require.NoError(t, err)
	_, err = newTokens().Validate(token)
	assert.Error(t, err)

	token, err = NewAdminTokens("other-key", "certwallet-test").Issue("ops", time.Minute)
	require.NoError(t, err)
	_, err = newTokens().Validate(token)
	assert.Error(t, err)
}

func Test_Validate_RejectsNonAdminRole(t *testing.T) {
	claims := AdminClaims{
		Role: "reader",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops",
			Issuer:    "certwallet-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testKey))
	require.NoError(t, err)

	_, err = newTokens().Validate(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func Test_Validate_RejectsAlgorithmConfusion(t *testing.T) {
	claims := AdminClaims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops",
			Issuer:    "certwallet-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			ID:        uuid.NewString(),
		},
	}

	cases := []struct {
		name       string
		signMethod jwt.SigningMethod
		signKey    any
	}{
		{"hs512 header rejected", jwt.SigningMethodHS512, []byte(testKey)},
		{"alg none rejected", jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			tokenString, err := jwt.NewWithClaims(tt.signMethod, claims).SignedString(tt.signKey)
			require.NoError(t, err)

			_, err = newTokens().Validate(tokenString)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		})
	}
}

func Test_EmptySigningKeyDisablesTokens(t *testing.T) {
	tokens := NewAdminTokens("", "certwallet")

	_, err := tokens.Issue("ops", time.Minute)
	require.ErrorIs(t, err, ErrNoSigningKey)

	signed, err := newTokens().Issue("ops", time.Minute)
	require.NoError(t, err)
	_, err = tokens.Validate(signed)
	require.ErrorIs(t, err, ErrNoSigningKey)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
