package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnilead-server/types"
)

func TestJWTService_IssueVerify(t *testing.T) {
	js := NewJWTService("test-secret", time.Hour)

	token, expires, err := js.Issue(types.RoleContractor, "c-1", "a@b.co")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	claims, err := js.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, types.RoleContractor, claims.Role)
	assert.Equal(t, "c-1", claims.Subject)
	assert.Equal(t, "a@b.co", claims.Email)
}

func TestJWTService_Rejects(t *testing.T) {
	js := NewJWTService("test-secret", time.Hour)
	token, _, err := js.Issue(types.RoleAdmin, "admin@example.com", "admin@example.com")
	require.NoError(t, err)

	other := NewJWTService("other-secret", time.Hour)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = js.Verify("")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = js.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrUnauthorized)

	expired := NewJWTService("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue(types.RoleAdmin, "x", "")
	require.NoError(t, err)
	_, err = js.Verify(old)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
