package mongostore

import (
	"time"

	"subscription-backend/internal/domain/billing"
	"subscription-backend/internal/domain/plans"
	"subscription-backend/internal/domain/subscriptions"
	"subscription-backend/internal/domain/users"

	"github.com/google/uuid"
)

// Documents keep ids as strings so records stay readable from the mongo shell.

type subscriptionDoc struct {
	ID               string     `bson:"_id"`
	UserID           string     `bson:"user_id"`
	Plan             string     `bson:"plan"`
	StartDate        time.Time  `bson:"start_date"`
	EndDate          time.Time  `bson:"end_date"`
	Status           string     `bson:"status"`
	PaymentID        string     `bson:"payment_id,omitempty"`
	PaymentReference string     `bson:"payment_reference"`
	PaymentStatus    string     `bson:"payment_status,omitempty"`
	CheckoutURL      string     `bson:"checkout_url,omitempty"`
	PaidAt           *time.Time `bson:"paid_at,omitempty"`
	OpenKey          *string    `bson:"open_key,omitempty"`
	Version          int        `bson:"version"`
	CreatedAt        time.Time  `bson:"created_at"`
	UpdatedAt        time.Time  `bson:"updated_at"`
}

func fromSubscription(s *subscriptions.Subscription) subscriptionDoc {
	return subscriptionDoc{
		ID:               s.ID.String(),
		UserID:           s.UserID.String(),
		Plan:             string(s.Plan),
		StartDate:        s.StartDate,
		EndDate:          s.EndDate,
		Status:           string(s.Status),
		PaymentID:        s.PaymentID,
		PaymentReference: s.PaymentReference,
		PaymentStatus:    string(s.PaymentStatus),
		CheckoutURL:      s.CheckoutURL,
		PaidAt:           s.PaidAt,
		OpenKey:          s.OpenKey,
		Version:          s.Version,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func (d subscriptionDoc) toDomain() (*subscriptions.Subscription, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, err
	}
	return &subscriptions.Subscription{
		ID:               id,
		UserID:           userID,
		Plan:             plans.Category(d.Plan),
		StartDate:        d.StartDate,
		EndDate:          d.EndDate,
		Status:           subscriptions.Status(d.Status),
		PaymentID:        d.PaymentID,
		PaymentReference: d.PaymentReference,
		PaymentStatus:    billing.PaymentStatus(d.PaymentStatus),
		CheckoutURL:      d.CheckoutURL,
		PaidAt:           d.PaidAt,
		OpenKey:          d.OpenKey,
		Version:          d.Version,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}, nil
}

type planDoc struct {
	ID          string    `bson:"_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Price       float64   `bson:"price"`
	Category    string    `bson:"category"`
	Features    []string  `bson:"features"`
	Active      bool      `bson:"active"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func fromPlan(p *plans.Plan) planDoc {
	return planDoc{
		ID:          p.ID.String(),
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		Category:    string(p.Category),
		Features:    p.Features,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (d planDoc) toDomain() (*plans.Plan, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	return &plans.Plan{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		Price:       d.Price,
		Category:    plans.Category(d.Category),
		Features:    d.Features,
		Active:      d.Active,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

type paymentDoc struct {
	ID             string     `bson:"_id"`
	GatewayID      string     `bson:"gateway_id,omitempty"`
	UserID         string     `bson:"user_id"`
	SubscriptionID string     `bson:"subscription_id"`
	Amount         float64    `bson:"amount"`
	Method         string     `bson:"method,omitempty"`
	Reference      string     `bson:"reference"`
	Description    string     `bson:"description,omitempty"`
	Status         string     `bson:"status"`
	CheckoutURL    string     `bson:"checkout_url,omitempty"`
	TransactionID  *string    `bson:"transaction_id,omitempty"`
	PaidAt         *time.Time `bson:"paid_at,omitempty"`
	CreatedAt      time.Time  `bson:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at"`
}

func fromPayment(p *billing.Payment) paymentDoc {
	return paymentDoc{
		ID:             p.ID.String(),
		GatewayID:      p.GatewayID,
		UserID:         p.UserID.String(),
		SubscriptionID: p.SubscriptionID.String(),
		Amount:         p.Amount,
		Method:         p.Method,
		Reference:      p.Reference,
		Description:    p.Description,
		Status:         string(p.Status),
		CheckoutURL:    p.CheckoutURL,
		TransactionID:  p.TransactionID,
		PaidAt:         p.PaidAt,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func (d paymentDoc) toDomain() (*billing.Payment, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, err
	}
	subID, err := uuid.Parse(d.SubscriptionID)
	if err != nil {
		return nil, err
	}
	return &billing.Payment{
		ID:             id,
		GatewayID:      d.GatewayID,
		UserID:         userID,
		SubscriptionID: subID,
		Amount:         d.Amount,
		Method:         d.Method,
		Reference:      d.Reference,
		Description:    d.Description,
		Status:         billing.PaymentStatus(d.Status),
		CheckoutURL:    d.CheckoutURL,
		TransactionID:  d.TransactionID,
		PaidAt:         d.PaidAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}, nil
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	Role         string    `bson:"role"`
	Status       string    `bson:"status"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func fromUser(u *users.User) userDoc {
	return userDoc{
		ID:           u.ID.String(),
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		Status:       u.Status,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d userDoc) toDomain() (*users.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	return &users.User{
		ID:           id,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         d.Role,
		Status:       d.Status,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}
