package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/voxlane/api/voicedash/internal/apperrors"
	"gitlab.com/voxlane/api/voicedash/internal/model"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret-password")
	require.NoError(t, err)
	assert.NotEqual(t, "secret-password", hash)

	assert.NoError(t, CheckPassword(hash, "secret-password"))
	assert.Error(t, CheckPassword(hash, "wrong-password"))
}

func TestTokenIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Issue("alice@example.com")
	require.NoError(t, err)

	subject, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", subject)
}

func TestTokenVerifyRejectsBadSecret(t *testing.T) {
	token, err := NewTokenIssuer("secret-a", time.Hour).Issue("alice@example.com")
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret-b", time.Hour).Verify(token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestTokenVerifyRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)
	token, err := issuer.Issue("alice@example.com")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestTokenVerifyRejectsGarbage(t *testing.T) {
	_, err := NewTokenIssuer("test-secret", time.Hour).Verify("not-a-token")
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestUserContextRoundTrip(t *testing.T) {
	user := &model.User{ID: 7, Email: "alice@example.com"}

	ctx := WithUser(context.Background(), user)
	got, err := UserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, user, got)

	_, err = UserFromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoUserInContext)
}
