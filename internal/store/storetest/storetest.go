// Package storetest holds the behaviour every store driver must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"subscription-backend/internal/domain/billing"
	"subscription-backend/internal/domain/plans"
	"subscription-backend/internal/domain/subscriptions"
	"subscription-backend/internal/domain/users"
	"subscription-backend/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises st against the common store contract. newStore must return an
// empty store for each call.
func Run(t *testing.T, newStore func(t *testing.T) *store.Store) {
	t.Run("SubscriptionLifecycle", func(t *testing.T) { testSubscriptionLifecycle(t, newStore(t)) })
	t.Run("OneOpenPerUser", func(t *testing.T) { testOneOpenPerUser(t, newStore(t)) })
	t.Run("VersionConflict", func(t *testing.T) { testVersionConflict(t, newStore(t)) })
	t.Run("Plans", func(t *testing.T) { testPlans(t, newStore(t)) })
	t.Run("Payments", func(t *testing.T) { testPayments(t, newStore(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
}

// now is truncated so drivers with microsecond timestamps round-trip exactly.
var now = time.Now().UTC().Truncate(time.Millisecond)

func testSubscriptionLifecycle(t *testing.T, st *store.Store) {
	ctx := context.Background()
	userID := uuid.New()
	sub := subscriptions.New(userID, plans.Monthly, now)
	require.NoError(t, st.Subscriptions.Create(ctx, sub))

	got, err := st.Subscriptions.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.PaymentReference, got.PaymentReference)
	assert.Equal(t, subscriptions.StatusPendingPayment, got.Status)
	assert.Equal(t, 1, got.Version)

	got.PaymentID = "pay_1"
	require.NoError(t, st.Subscriptions.Update(ctx, got))
	assert.Equal(t, 2, got.Version)

	byRef, err := st.Subscriptions.FindByReference(ctx, sub.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, byRef.ID)

	byPayment, err := st.Subscriptions.FindByPaymentID(ctx, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, byPayment.ID)

	open, err := st.Subscriptions.FindOpenByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, open.ID)

	require.NoError(t, st.Subscriptions.Delete(ctx, sub.ID))
	_, err = st.Subscriptions.Get(ctx, sub.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Subscriptions.FindOpenByUser(ctx, userID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testOneOpenPerUser(t *testing.T, st *store.Store) {
	ctx := context.Background()
	userID := uuid.New()

	first := subscriptions.New(userID, plans.Monthly, now)
	require.NoError(t, st.Subscriptions.Create(ctx, first))

	second := subscriptions.New(userID, plans.Annual, now.Add(time.Millisecond))
	assert.ErrorIs(t, st.Subscriptions.Create(ctx, second), store.ErrDuplicate)

	first.Supersede(now)
	require.NoError(t, st.Subscriptions.Update(ctx, first))
	require.NoError(t, st.Subscriptions.Create(ctx, second))

	open, err := st.Subscriptions.FindOpenByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, open.ID)

	// Reopening the superseded row would give the user two open subscriptions.
	first.Renew(plans.Monthly, now)
	assert.ErrorIs(t, st.Subscriptions.Update(ctx, first), store.ErrDuplicate)
}

func testVersionConflict(t *testing.T, st *store.Store) {
	ctx := context.Background()
	sub := subscriptions.New(uuid.New(), plans.Quarterly, now)
	require.NoError(t, st.Subscriptions.Create(ctx, sub))

	a, err := st.Subscriptions.Get(ctx, sub.ID)
	require.NoError(t, err)
	b, err := st.Subscriptions.Get(ctx, sub.ID)
	require.NoError(t, err)

	a.ApplyPaymentStatus(billing.PaymentPaid, now)
	require.NoError(t, st.Subscriptions.Update(ctx, a))

	b.ApplyPaymentStatus(billing.PaymentFailed, now)
	assert.ErrorIs(t, st.Subscriptions.Update(ctx, b), store.ErrVersionConflict)

	got, err := st.Subscriptions.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, subscriptions.StatusActive, got.Status)
	require.NotNil(t, got.PaidAt)
}

func testPlans(t *testing.T, st *store.Store) {
	ctx := context.Background()
	plan, err := plans.New(plans.Defaults()[0], now)
	require.NoError(t, err)
	require.NoError(t, st.Plans.Create(ctx, plan))

	got, err := st.Plans.Get(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.Features, got.Features)
	assert.Equal(t, plans.Monthly, got.Category)

	found, err := st.Plans.FindActiveByCategory(ctx, plans.Monthly)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, found.ID)

	updated, err := st.Plans.SetActive(ctx, plan.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.Active)

	_, err = st.Plans.FindActiveByCategory(ctx, plans.Monthly)
	assert.ErrorIs(t, err, store.ErrNotFound)

	active, err := st.Plans.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := st.Plans.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = st.Plans.SetActive(ctx, uuid.New(), true)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testPayments(t *testing.T, st *store.Store) {
	ctx := context.Background()
	userID := uuid.New()
	payment := &billing.Payment{
		GatewayID:      "pay_1",
		UserID:         userID,
		SubscriptionID: uuid.New(),
		Amount:         500,
		Reference:      "SUBref1",
		Status:         billing.PaymentPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, st.Payments.Save(ctx, payment))

	paidAt := now.Add(time.Minute)
	tx := "tx_1"
	again := *payment
	again.ID = uuid.Nil
	again.Status = billing.PaymentPaid
	again.PaidAt = &paidAt
	again.TransactionID = &tx
	require.NoError(t, st.Payments.Save(ctx, &again))
	assert.Equal(t, payment.ID, again.ID)

	got, err := st.Payments.FindByReference(ctx, "SUBref1")
	require.NoError(t, err)
	assert.Equal(t, billing.PaymentPaid, got.Status)
	require.NotNil(t, got.TransactionID)
	assert.Equal(t, "tx_1", *got.TransactionID)

	list, err := st.Payments.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = st.Payments.FindByReference(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testUsers(t *testing.T, st *store.Store) {
	ctx := context.Background()
	u, err := users.New("ana", "ana@example.com", "hash", users.RoleUser, now)
	require.NoError(t, err)
	require.NoError(t, st.Users.Create(ctx, u))

	dup, err := users.New("other", "ANA@example.com", "hash", users.RoleUser, now)
	require.NoError(t, err)
	assert.ErrorIs(t, st.Users.Create(ctx, dup), store.ErrDuplicate)

	got, err := st.Users.FindByEmail(ctx, "Ana@Example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	byID, err := st.Users.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", byID.Username)

	_, err = st.Users.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
