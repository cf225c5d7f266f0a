// Package access derives what a user may do from their subscription.
package access

import (
	"time"

	"subscription-backend/internal/domain/subscriptions"
)

type Policy struct {
	State AccessState `json:"state"`
	// Until is when full access ends; nil unless State is full.
	Until *time.Time `json:"until,omitempty"`
}

// ComputePolicy treats a missing subscription as locked. Expiry is derived from
// the end date, so a lapsed active subscription locks without being rewritten.
func ComputePolicy(now time.Time, s *subscriptions.Subscription) Policy {
	if s == nil {
		return Policy{State: AccessLocked}
	}
	switch s.EffectiveStatus(now) {
	case subscriptions.StatusActive:
		end := s.EndDate
		return Policy{State: AccessFull, Until: &end}
	case subscriptions.StatusPendingPayment:
		return Policy{State: AccessPending}
	default:
		return Policy{State: AccessLocked}
	}
}
