package subscriptions

import (
	"math"
	"strconv"
	"strings"
	"time"

	"subscription-backend/internal/domain/billing"
	"subscription-backend/internal/domain/plans"

	"github.com/google/uuid"
)

// Subscription links a user to a plan period and to the gateway payment that pays for it.
type Subscription struct {
	ID               uuid.UUID             `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID             `gorm:"type:uuid;not null;index:idx_subscriptions_user_id" json:"userId"`
	Plan             plans.Category        `gorm:"column:plan;type:varchar(20);not null" json:"plan"`
	StartDate        time.Time             `gorm:"not null" json:"startDate"`
	EndDate          time.Time             `gorm:"not null" json:"endDate"`
	Status           Status                `gorm:"type:varchar(20);not null;index:idx_subscriptions_status" json:"status"`
	PaymentID        string                `gorm:"column:payment_id" json:"paymentId,omitempty"`
	PaymentReference string                `gorm:"column:payment_reference;not null;uniqueIndex:idx_subscriptions_payment_reference" json:"paymentReference"`
	PaymentStatus    billing.PaymentStatus `gorm:"column:payment_status;type:varchar(20)" json:"paymentStatus,omitempty"`
	CheckoutURL      string                `gorm:"column:checkout_url" json:"checkoutUrl,omitempty"`
	PaidAt           *time.Time            `gorm:"column:paid_at" json:"paidAt,omitempty"`

	// OpenKey equals the user id while the subscription is open and is NULL otherwise,
	// so a unique index on it allows at most one open subscription per user.
	OpenKey *string `gorm:"column:open_key;uniqueIndex:idx_subscriptions_open_key" json:"-"`
	Version int     `gorm:"not null;default:1" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// New builds a pending subscription whose period starts at now.
func New(userID uuid.UUID, category plans.Category, now time.Time) *Subscription {
	s := &Subscription{
		ID:               uuid.New(),
		UserID:           userID,
		Plan:             category,
		StartDate:        now,
		EndDate:          category.AddTo(now),
		Status:           StatusPendingPayment,
		PaymentReference: NewReference(userID, now),
		PaymentStatus:    billing.PaymentPending,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.SyncOpenKey()
	return s
}

// NewReference builds an alphanumeric payment reference from the user id and a
// nanosecond timestamp.
func NewReference(userID uuid.UUID, now time.Time) string {
	return "SUB" + strings.ReplaceAll(userID.String(), "-", "") + strconv.FormatInt(now.UnixNano(), 10)
}

// SyncOpenKey recomputes OpenKey from Status; stores call it before every write.
func (s *Subscription) SyncOpenKey() {
	if s.Status.Open() {
		key := s.UserID.String()
		s.OpenKey = &key
		return
	}
	s.OpenKey = nil
}

// EffectiveStatus derives expiry lazily from EndDate.
func (s *Subscription) EffectiveStatus(now time.Time) Status {
	if s.Status == StatusActive && !now.Before(s.EndDate) {
		return StatusExpired
	}
	return s.Status
}

// IsValid reports whether the subscription currently grants access.
func (s *Subscription) IsValid(now time.Time) bool {
	return s.Status == StatusActive && s.EndDate.After(now)
}

// DaysRemaining rounds up to whole days; negative once the period is over.
func (s *Subscription) DaysRemaining(now time.Time) int {
	return int(math.Ceil(s.EndDate.Sub(now).Hours() / 24))
}

// HasBeenPaid reports whether a paid gateway status was ever observed.
func (s *Subscription) HasBeenPaid() bool {
	return s.PaidAt != nil
}
