package mongostore

import (
	"context"
	"errors"
	"fmt"

	"subscription-backend/internal/domain/billing"
	"subscription-backend/internal/domain/plans"
	"subscription-backend/internal/domain/subscriptions"
	"subscription-backend/internal/domain/users"
	"subscription-backend/internal/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	subscriptionsCollection = "subscriptions"
	plansCollection         = "plans"
	paymentsCollection      = "payments"
	usersCollection         = "users"
)

// New builds a Store on db. Call EnsureIndexes once before serving traffic.
func New(client *mongo.Client, db *mongo.Database) *store.Store {
	return &store.Store{
		Subscriptions: &subscriptionRepository{coll: db.Collection(subscriptionsCollection)},
		Plans:         &planRepository{coll: db.Collection(plansCollection)},
		Payments:      &paymentRepository{coll: db.Collection(paymentsCollection)},
		Users:         &userRepository{coll: db.Collection(usersCollection)},
		Ping:          Healthcheck(client),
		Close:         client.Disconnect,
	}
}

// EnsureIndexes creates the unique indexes the store contract relies on.
// open_key is indexed only where it is a string so closed subscriptions never collide.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		subscriptionsCollection: {
			{
				Keys: bson.D{{Key: "open_key", Value: 1}},
				Options: options.Index().
					SetName("uniq_open_key").
					SetUnique(true).
					SetPartialFilterExpression(bson.D{{Key: "open_key", Value: bson.D{{Key: "$type", Value: "string"}}}}),
			},
			{Keys: bson.D{{Key: "payment_reference", Value: 1}}, Options: options.Index().SetName("uniq_payment_reference").SetUnique(true)},
			{Keys: bson.D{{Key: "payment_id", Value: 1}}, Options: options.Index().SetName("idx_payment_id")},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("idx_user_created")},
		},
		plansCollection: {
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "active", Value: 1}}, Options: options.Index().SetName("idx_category_active")},
		},
		paymentsCollection: {
			{Keys: bson.D{{Key: "reference", Value: 1}}, Options: options.Index().SetName("uniq_reference").SetUnique(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetName("idx_user_id")},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("uniq_email").SetUnique(true)},
		},
	}

	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	}
	return err
}

type subscriptionRepository struct {
	coll *mongo.Collection
}

func (r *subscriptionRepository) Create(ctx context.Context, s *subscriptions.Subscription) error {
	s.SyncOpenKey()
	if s.Version == 0 {
		s.Version = 1
	}
	_, err := r.coll.InsertOne(ctx, fromSubscription(s))
	return translate(err)
}

func (r *subscriptionRepository) findOne(ctx context.Context, filter bson.D) (*subscriptions.Subscription, error) {
	var doc subscriptionDoc
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.toDomain()
}

func (r *subscriptionRepository) Get(ctx context.Context, id uuid.UUID) (*subscriptions.Subscription, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
}

func (r *subscriptionRepository) FindOpenByUser(ctx context.Context, userID uuid.UUID) (*subscriptions.Subscription, error) {
	return r.findOne(ctx, bson.D{{Key: "open_key", Value: userID.String()}})
}

func (r *subscriptionRepository) FindByReference(ctx context.Context, reference string) (*subscriptions.Subscription, error) {
	return r.findOne(ctx, bson.D{{Key: "payment_reference", Value: reference}})
}

func (r *subscriptionRepository) FindByPaymentID(ctx context.Context, paymentID string) (*subscriptions.Subscription, error) {
	if paymentID == "" {
		return nil, store.ErrNotFound
	}
	return r.findOne(ctx, bson.D{{Key: "payment_id", Value: paymentID}})
}

func (r *subscriptionRepository) Update(ctx context.Context, s *subscriptions.Subscription) error {
	s.SyncOpenKey()
	doc := fromSubscription(s)

	set := bson.D{
		{Key: "plan", Value: doc.Plan},
		{Key: "start_date", Value: doc.StartDate},
		{Key: "end_date", Value: doc.EndDate},
		{Key: "status", Value: doc.Status},
		{Key: "payment_id", Value: doc.PaymentID},
		{Key: "payment_status", Value: doc.PaymentStatus},
		{Key: "checkout_url", Value: doc.CheckoutURL},
		{Key: "updated_at", Value: doc.UpdatedAt},
	}
	unset := bson.D{}
	if doc.PaidAt != nil {
		set = append(set, bson.E{Key: "paid_at", Value: *doc.PaidAt})
	} else {
		unset = append(unset, bson.E{Key: "paid_at", Value: ""})
	}
	if doc.OpenKey != nil {
		set = append(set, bson.E{Key: "open_key", Value: *doc.OpenKey})
	} else {
		unset = append(unset, bson.E{Key: "open_key", Value: ""})
	}

	update := bson.D{
		{Key: "$set", Value: set},
		{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
	}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}

	res, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: doc.ID}, {Key: "version", Value: s.Version}}, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.Get(ctx, s.ID); err != nil {
			return err
		}
		return store.ErrVersionConflict
	}
	s.Version++
	return nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

type planRepository struct {
	coll *mongo.Collection
}

func (r *planRepository) List(ctx context.Context, activeOnly bool) ([]plans.Plan, error) {
	filter := bson.D{}
	if activeOnly {
		filter = bson.D{{Key: "active", Value: true}}
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, translate(err)
	}
	var docs []planDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]plans.Plan, 0, len(docs))
	for _, d := range docs {
		p, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func (r *planRepository) findOne(ctx context.Context, filter bson.D) (*plans.Plan, error) {
	var doc planDoc
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.toDomain()
}

func (r *planRepository) Get(ctx context.Context, id uuid.UUID) (*plans.Plan, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
}

func (r *planRepository) FindActiveByCategory(ctx context.Context, category plans.Category) (*plans.Plan, error) {
	return r.findOne(ctx, bson.D{{Key: "category", Value: string(category)}, {Key: "active", Value: true}})
}

func (r *planRepository) Create(ctx context.Context, p *plans.Plan) error {
	_, err := r.coll.InsertOne(ctx, fromPlan(p))
	return translate(err)
}

func (r *planRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*plans.Plan, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id.String()}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "active", Value: active}}}},
	)
	if err != nil {
		return nil, translate(err)
	}
	if res.MatchedCount == 0 {
		return nil, store.ErrNotFound
	}
	return r.Get(ctx, id)
}

type paymentRepository struct {
	coll *mongo.Collection
}

func (r *paymentRepository) Save(ctx context.Context, p *billing.Payment) error {
	existing, err := r.FindByReference(ctx, p.Reference)
	switch {
	case err == nil:
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	case errors.Is(err, store.ErrNotFound):
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
	default:
		return err
	}

	_, err = r.coll.ReplaceOne(ctx,
		bson.D{{Key: "reference", Value: p.Reference}},
		fromPayment(p),
		options.Replace().SetUpsert(true),
	)
	return translate(err)
}

func (r *paymentRepository) FindByReference(ctx context.Context, reference string) (*billing.Payment, error) {
	var doc paymentDoc
	if err := r.coll.FindOne(ctx, bson.D{{Key: "reference", Value: reference}}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.toDomain()
}

func (r *paymentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]billing.Payment, error) {
	cur, err := r.coll.Find(ctx,
		bson.D{{Key: "user_id", Value: userID.String()}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, translate(err)
	}
	var docs []paymentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]billing.Payment, 0, len(docs))
	for _, d := range docs {
		p, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

type userRepository struct {
	coll *mongo.Collection
}

func (r *userRepository) Create(ctx context.Context, u *users.User) error {
	_, err := r.coll.InsertOne(ctx, fromUser(u))
	return translate(err)
}

func (r *userRepository) findOne(ctx context.Context, filter bson.D) (*users.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return doc.toDomain()
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*users.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: users.NormalizeEmail(email)}})
}
