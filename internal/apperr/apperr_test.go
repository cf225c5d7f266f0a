package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := fmt.Errorf("create payment: %w", GatewayUnavailable(cause, "payment gateway unavailable"))

	assert.Equal(t, KindGatewayUnavailable, KindOf(err))
	assert.True(t, Is(err, KindGatewayUnavailable))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "payment gateway unavailable", MessageOf(err))
}

func TestKindOf_Untyped(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.False(t, Is(nil, KindInternal))
	assert.Equal(t, "internal server error", MessageOf(err))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "user already has an active subscription", Conflict("user already has an active subscription").Error())
	assert.Equal(t, "load plan: db down", Internal(errors.New("db down"), "load plan").Error())
	assert.Equal(t, "not_found", KindNotFound.String())
}
