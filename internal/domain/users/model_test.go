package users

import (
	"testing"
	"time"

	"subscription-backend/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	now := time.Now()
	u, err := New(" ana ", " Ana@Example.COM ", "hash", "superuser", now)
	require.NoError(t, err)

	assert.Equal(t, "ana", u.Username)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Equal(t, RoleUser, u.Role)
	assert.True(t, u.IsActive())
	assert.False(t, u.IsAdmin())
}

func TestNew_Rejects(t *testing.T) {
	_, err := New("ab", "a@b.co", "hash", RoleUser, time.Now())
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = New("ana", "not-an-email", "hash", RoleUser, time.Now())
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("secret"))
	assert.True(t, apperr.Is(ValidatePassword("abc12"), apperr.KindValidation))
}
