package billing

import (
	"time"

	"github.com/google/uuid"
)

// Payment is the local best-effort mirror of a gateway payment, kept for offline display.
type Payment struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	GatewayID      string        `gorm:"column:gateway_id;uniqueIndex:idx_payments_gateway_id" json:"gatewayId"`
	UserID         uuid.UUID     `gorm:"type:uuid;not null;index:idx_payments_user_id" json:"userId"`
	SubscriptionID uuid.UUID     `gorm:"type:uuid;not null;index:idx_payments_subscription_id" json:"subscriptionId"`
	Amount         float64       `gorm:"not null" json:"amount"`
	Method         string        `json:"method,omitempty"`
	Reference      string        `gorm:"not null;uniqueIndex:idx_payments_reference" json:"reference"`
	Description    string        `json:"description,omitempty"`
	Status         PaymentStatus `gorm:"type:varchar(20);not null" json:"status"`
	CheckoutURL    string        `json:"checkoutUrl,omitempty"`
	TransactionID  *string       `json:"transactionId,omitempty"`
	PaidAt         *time.Time    `json:"paidAt,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}
