package access

import (
	"testing"
	"time"

	"subscription-backend/internal/domain/billing"
	"subscription-backend/internal/domain/plans"
	"subscription-backend/internal/domain/subscriptions"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePolicy(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, AccessLocked, ComputePolicy(now, nil).State)

	s := subscriptions.New(uuid.New(), plans.Monthly, now)
	assert.Equal(t, AccessPending, ComputePolicy(now, s).State)

	s.ApplyPaymentStatus(billing.PaymentPaid, now)
	p := ComputePolicy(now, s)
	assert.Equal(t, AccessFull, p.State)
	require.NotNil(t, p.Until)
	assert.Equal(t, s.EndDate, *p.Until)

	assert.Equal(t, AccessLocked, ComputePolicy(s.EndDate.Add(time.Minute), s).State)

	c := subscriptions.New(uuid.New(), plans.Monthly, now)
	c.ApplyPaymentStatus(billing.PaymentFailed, now)
	assert.Equal(t, AccessLocked, ComputePolicy(now, c).State)
}
