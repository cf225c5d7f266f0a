// Package memstore keeps every record in process memory. It backs the tests and
// STORE_DRIVER=memory for local runs; it enforces the same uniqueness and
// version rules as the database drivers.
package memstore

import (
	"context"
	"sort"
	"sync"

	"subscription-backend/internal/domain/billing"
	"subscription-backend/internal/domain/plans"
	"subscription-backend/internal/domain/subscriptions"
	"subscription-backend/internal/domain/users"
	"subscription-backend/internal/store"

	"github.com/google/uuid"
)

// New returns a Store whose repositories share one in-memory database.
func New() *store.Store {
	db := &memDB{
		subs:     map[uuid.UUID]subscriptions.Subscription{},
		plans:    map[uuid.UUID]plans.Plan{},
		payments: map[string]billing.Payment{},
		users:    map[uuid.UUID]users.User{},
	}
	return &store.Store{
		Subscriptions: &subscriptionStore{db},
		Plans:         &planStore{db},
		Payments:      &paymentStore{db},
		Users:         &userStore{db},
		Ping:          func(context.Context) error { return nil },
		Close:         func(context.Context) error { return nil },
	}
}

type memDB struct {
	mu       sync.RWMutex
	subs     map[uuid.UUID]subscriptions.Subscription
	plans    map[uuid.UUID]plans.Plan
	payments map[string]billing.Payment // by reference
	users    map[uuid.UUID]users.User
}

type subscriptionStore struct{ db *memDB }

func (s *subscriptionStore) Create(_ context.Context, sub *subscriptions.Subscription) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.subs[sub.ID]; ok {
		return store.ErrDuplicate
	}
	sub.SyncOpenKey()
	if s.conflicts(sub) {
		return store.ErrDuplicate
	}
	if sub.Version == 0 {
		sub.Version = 1
	}
	s.db.subs[sub.ID] = *sub
	return nil
}

// conflicts reports whether another row already holds sub's open key or reference.
// Callers hold the write lock.
func (s *subscriptionStore) conflicts(sub *subscriptions.Subscription) bool {
	for id, other := range s.db.subs {
		if id == sub.ID {
			continue
		}
		if other.PaymentReference == sub.PaymentReference {
			return true
		}
		if sub.OpenKey != nil && other.OpenKey != nil && *other.OpenKey == *sub.OpenKey {
			return true
		}
	}
	return false
}

func (s *subscriptionStore) Get(_ context.Context, id uuid.UUID) (*subscriptions.Subscription, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	sub, ok := s.db.subs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sub, nil
}

func (s *subscriptionStore) find(match func(subscriptions.Subscription) bool) (*subscriptions.Subscription, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, sub := range s.db.subs {
		if match(sub) {
			return &sub, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *subscriptionStore) FindOpenByUser(_ context.Context, userID uuid.UUID) (*subscriptions.Subscription, error) {
	return s.find(func(sub subscriptions.Subscription) bool {
		return sub.UserID == userID && sub.Status.Open()
	})
}

func (s *subscriptionStore) FindByReference(_ context.Context, reference string) (*subscriptions.Subscription, error) {
	return s.find(func(sub subscriptions.Subscription) bool {
		return sub.PaymentReference == reference
	})
}

func (s *subscriptionStore) FindByPaymentID(_ context.Context, paymentID string) (*subscriptions.Subscription, error) {
	if paymentID == "" {
		return nil, store.ErrNotFound
	}
	return s.find(func(sub subscriptions.Subscription) bool {
		return sub.PaymentID == paymentID
	})
}

func (s *subscriptionStore) Update(_ context.Context, sub *subscriptions.Subscription) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	current, ok := s.db.subs[sub.ID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Version != sub.Version {
		return store.ErrVersionConflict
	}
	sub.SyncOpenKey()
	if s.conflicts(sub) {
		return store.ErrDuplicate
	}
	sub.Version++
	s.db.subs[sub.ID] = *sub
	return nil
}

func (s *subscriptionStore) Delete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.subs[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.db.subs, id)
	return nil
}

type planStore struct{ db *memDB }

func (p *planStore) List(_ context.Context, activeOnly bool) ([]plans.Plan, error) {
	p.db.mu.RLock()
	defer p.db.mu.RUnlock()

	out := make([]plans.Plan, 0, len(p.db.plans))
	for _, plan := range p.db.plans {
		if activeOnly && !plan.Active {
			continue
		}
		out = append(out, plan)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (p *planStore) Get(_ context.Context, id uuid.UUID) (*plans.Plan, error) {
	p.db.mu.RLock()
	defer p.db.mu.RUnlock()

	plan, ok := p.db.plans[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &plan, nil
}

func (p *planStore) FindActiveByCategory(_ context.Context, category plans.Category) (*plans.Plan, error) {
	p.db.mu.RLock()
	defer p.db.mu.RUnlock()

	var found *plans.Plan
	for _, plan := range p.db.plans {
		if plan.Active && plan.Category == category {
			if found == nil || plan.CreatedAt.After(found.CreatedAt) {
				found = &plan
			}
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	return found, nil
}

func (p *planStore) Create(_ context.Context, plan *plans.Plan) error {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()

	if _, ok := p.db.plans[plan.ID]; ok {
		return store.ErrDuplicate
	}
	p.db.plans[plan.ID] = *plan
	return nil
}

func (p *planStore) SetActive(_ context.Context, id uuid.UUID, active bool) (*plans.Plan, error) {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()

	plan, ok := p.db.plans[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	plan.Active = active
	p.db.plans[id] = plan
	return &plan, nil
}

type paymentStore struct{ db *memDB }

func (p *paymentStore) Save(_ context.Context, payment *billing.Payment) error {
	p.db.mu.Lock()
	defer p.db.mu.Unlock()

	if existing, ok := p.db.payments[payment.Reference]; ok {
		payment.ID = existing.ID
		payment.CreatedAt = existing.CreatedAt
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	p.db.payments[payment.Reference] = *payment
	return nil
}

func (p *paymentStore) FindByReference(_ context.Context, reference string) (*billing.Payment, error) {
	p.db.mu.RLock()
	defer p.db.mu.RUnlock()

	payment, ok := p.db.payments[reference]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &payment, nil
}

func (p *paymentStore) ListByUser(_ context.Context, userID uuid.UUID) ([]billing.Payment, error) {
	p.db.mu.RLock()
	defer p.db.mu.RUnlock()

	var out []billing.Payment
	for _, payment := range p.db.payments {
		if payment.UserID == userID {
			out = append(out, payment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type userStore struct{ db *memDB }

func (u *userStore) Create(_ context.Context, user *users.User) error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()

	for _, other := range u.db.users {
		if other.ID == user.ID || other.Email == user.Email {
			return store.ErrDuplicate
		}
	}
	u.db.users[user.ID] = *user
	return nil
}

func (u *userStore) Get(_ context.Context, id uuid.UUID) (*users.User, error) {
	u.db.mu.RLock()
	defer u.db.mu.RUnlock()

	user, ok := u.db.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (u *userStore) FindByEmail(_ context.Context, email string) (*users.User, error) {
	u.db.mu.RLock()
	defer u.db.mu.RUnlock()

	email = users.NormalizeEmail(email)
	for _, user := range u.db.users {
		if user.Email == email {
			return &user, nil
		}
	}
	return nil, store.ErrNotFound
}
