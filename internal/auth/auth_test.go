package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastetrace/wastetrace/internal/auth"
	"github.com/wastetrace/wastetrace/internal/model"
)

func newManager(t *testing.T, expiration time.Duration) *auth.JWTManager {
	t.Helper()
	mgr, err := auth.NewJWTManager("", "", expiration)
	require.NoError(t, err)
	return mgr
}

func TestIssueAndValidateToken(t *testing.T) {
	mgr := newManager(t, time.Hour)

	user := model.User{
		ID:    uuid.New(),
		Email: "site@builder.example",
		Role:  model.RoleGenerator,
	}

	token, exp, err := mgr.IssueToken(user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := mgr.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, model.RoleGenerator, claims.Role)
	assert.Equal(t, user.ID.String(), claims.Subject)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	mgr := newManager(t, time.Hour)

	_, err := mgr.ValidateToken("not-a-token")
	assert.Error(t, err)

	_, err = mgr.ValidateToken("")
	assert.Error(t, err)
}

func TestValidateTokenRejectsForeignKey(t *testing.T) {
	// A token signed by one manager must not validate under another.
	issuer := newManager(t, time.Hour)
	verifier := newManager(t, time.Hour)

	token, _, err := issuer.IssueToken(model.User{ID: uuid.New(), Role: model.RoleRecycler})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	mgr := newManager(t, -time.Minute)

	token, _, err := mgr.IssueToken(model.User{ID: uuid.New(), Role: model.RoleGenerator})
	require.NoError(t, err)

	_, err = mgr.ValidateToken(token)
	assert.Error(t, err)
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := auth.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotContains(t, hash, "correct horse")

	ok, err := auth.VerifyPassword("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = auth.VerifyPassword("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashIsSalted(t *testing.T) {
	h1, err := auth.HashPassword("same input")
	require.NoError(t, err)
	h2, err := auth.HashPassword("same input")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestVerifyPasswordBadFormat(t *testing.T) {
	_, err := auth.VerifyPassword("anything", "no-dollar-separator")
	assert.Error(t, err)
}
