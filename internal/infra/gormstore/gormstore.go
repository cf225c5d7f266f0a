// Package gormstore implements the store contracts on Postgres through gorm.
package gormstore

import (
	"context"
	"errors"

	"subscription-backend/database"
	"subscription-backend/internal/domain/billing"
	"subscription-backend/internal/domain/plans"
	"subscription-backend/internal/domain/subscriptions"
	"subscription-backend/internal/domain/users"
	"subscription-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// New wraps an open connection into a Store.
func New(db *gorm.DB) *store.Store {
	return &store.Store{
		Subscriptions: &subscriptionRepository{db: db},
		Plans:         &planRepository{db: db},
		Payments:      &paymentRepository{db: db},
		Users:         &userRepository{db: db},
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		Close: func(context.Context) error { return database.Close(db) },
	}
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isDuplicateKey(err):
		return store.ErrDuplicate
	}
	return err
}

// isDuplicateKey detects unique violations (SQLSTATE 23505) that escaped gorm's translation.
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type subscriptionRepository struct {
	db *gorm.DB
}

func (r *subscriptionRepository) Create(ctx context.Context, s *subscriptions.Subscription) error {
	s.SyncOpenKey()
	if s.Version == 0 {
		s.Version = 1
	}
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *subscriptionRepository) first(ctx context.Context, query string, args ...any) (*subscriptions.Subscription, error) {
	var s subscriptions.Subscription
	err := r.db.WithContext(ctx).Where(query, args...).Order("created_at DESC").First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id uuid.UUID) (*subscriptions.Subscription, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *subscriptionRepository) FindOpenByUser(ctx context.Context, userID uuid.UUID) (*subscriptions.Subscription, error) {
	return r.first(ctx, "open_key = ?", userID.String())
}

func (r *subscriptionRepository) FindByReference(ctx context.Context, reference string) (*subscriptions.Subscription, error) {
	return r.first(ctx, "payment_reference = ?", reference)
}

func (r *subscriptionRepository) FindByPaymentID(ctx context.Context, paymentID string) (*subscriptions.Subscription, error) {
	if paymentID == "" {
		return nil, store.ErrNotFound
	}
	return r.first(ctx, "payment_id = ?", paymentID)
}

func (r *subscriptionRepository) Update(ctx context.Context, s *subscriptions.Subscription) error {
	s.SyncOpenKey()
	res := r.db.WithContext(ctx).
		Model(&subscriptions.Subscription{}).
		Where("id = ? AND version = ?", s.ID, s.Version).
		Updates(map[string]any{
			"plan":           s.Plan,
			"start_date":     s.StartDate,
			"end_date":       s.EndDate,
			"status":         s.Status,
			"payment_id":     s.PaymentID,
			"payment_status": s.PaymentStatus,
			"checkout_url":   s.CheckoutURL,
			"paid_at":        s.PaidAt,
			"open_key":       s.OpenKey,
			"updated_at":     s.UpdatedAt,
			"version":        gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.Get(ctx, s.ID); err != nil {
			return err
		}
		return store.ErrVersionConflict
	}
	s.Version++
	return nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&subscriptions.Subscription{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type planRepository struct {
	db *gorm.DB
}

func (r *planRepository) List(ctx context.Context, activeOnly bool) ([]plans.Plan, error) {
	q := r.db.WithContext(ctx).Order("created_at ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var out []plans.Plan
	if err := q.Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (r *planRepository) Get(ctx context.Context, id uuid.UUID) (*plans.Plan, error) {
	var p plans.Plan
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *planRepository) FindActiveByCategory(ctx context.Context, category plans.Category) (*plans.Plan, error) {
	var p plans.Plan
	err := r.db.WithContext(ctx).
		Where("category = ? AND active = ?", category, true).
		Order("created_at DESC").
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *planRepository) Create(ctx context.Context, p *plans.Plan) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *planRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*plans.Plan, error) {
	res := r.db.WithContext(ctx).Model(&plans.Plan{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return r.Get(ctx, id)
}

type paymentRepository struct {
	db *gorm.DB
}

// Save keeps one row per reference, reusing the id and creation time of an existing row.
func (r *paymentRepository) Save(ctx context.Context, p *billing.Payment) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing billing.Payment
		err := tx.Where("reference = ?", p.Reference).First(&existing).Error
		switch {
		case err == nil:
			p.ID = existing.ID
			p.CreatedAt = existing.CreatedAt
		case errors.Is(err, gorm.ErrRecordNotFound):
			if p.ID == uuid.Nil {
				p.ID = uuid.New()
			}
		default:
			return err
		}
		return tx.Save(p).Error
	}))
}

func (r *paymentRepository) FindByReference(ctx context.Context, reference string) (*billing.Payment, error) {
	var p billing.Payment
	if err := r.db.WithContext(ctx).First(&p, "reference = ?", reference).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *paymentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]billing.Payment, error) {
	var out []billing.Payment
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error
	return out, translate(err)
}

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) Create(ctx context.Context, u *users.User) error {
	return translate(r.db.WithContext(ctx).Create(u).Error)
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*users.User, error) {
	var u users.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	var u users.User
	if err := r.db.WithContext(ctx).First(&u, "email = ?", users.NormalizeEmail(email)).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}
