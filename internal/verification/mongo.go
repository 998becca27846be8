package verification

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

// MongoStateStore keeps verification states in the "verifications" collection,
// keyed by normalized phone. All mutations are single findAndModify calls so
// concurrent requests can never both consume the same code or skip the
// attempt counter.
type MongoStateStore struct {
	db *mongo.Database
}

func NewMongoStateStore(db *mongo.Database) *MongoStateStore {
	return &MongoStateStore{db: db}
}

func (s *MongoStateStore) collection() *mongo.Collection {
	return s.db.Collection("verifications")
}

// Replace overwrites any previous state for the phone, which is exactly what
// supersedes an outstanding code.
func (s *MongoStateStore) Replace(ctx context.Context, st *models.VerificationState) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.collection().ReplaceOne(ctx, bson.M{"_id": st.Phone}, st, opts)
	return err
}

func (s *MongoStateStore) Get(ctx context.Context, phoneNumber string) (*models.VerificationState, error) {
	var st models.VerificationState
	err := s.collection().FindOne(ctx, bson.M{"_id": phoneNumber}).Decode(&st)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// Consume deletes the state only while code, expiry and attempts all still
// hold, returning the removed document. The filter makes the delete the
// single point of truth for "first success wins".
func (s *MongoStateStore) Consume(ctx context.Context, phoneNumber, codeHash string, now time.Time) (*models.VerificationState, error) {
	var st models.VerificationState
	err := s.collection().FindOneAndDelete(ctx, bson.M{
		"_id":               phoneNumber,
		"codeHash":          codeHash,
		"expiresAt":         bson.M{"$gt": now},
		"attemptsRemaining": bson.M{"$gt": 0},
	}).Decode(&st)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// RegisterFailure decrements attempts for the code issued at issuedAt. The
// issuedAt guard keeps a stale failure from charging a newer code's counter.
func (s *MongoStateStore) RegisterFailure(ctx context.Context, phoneNumber string, issuedAt time.Time) (int, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var st models.VerificationState
	err := s.collection().FindOneAndUpdate(ctx,
		bson.M{
			"_id":               phoneNumber,
			"issuedAt":          issuedAt,
			"attemptsRemaining": bson.M{"$gt": 0},
		},
		bson.M{"$inc": bson.M{"attemptsRemaining": -1}},
		opts,
	).Decode(&st)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return st.AttemptsRemaining, nil
}

// MongoCustomerStore resolves phone identities in the "customers" collection.
type MongoCustomerStore struct {
	db *mongo.Database
}

func NewMongoCustomerStore(db *mongo.Database) *MongoCustomerStore {
	return &MongoCustomerStore{db: db}
}

// EnsureByPhone upserts the customer for a verified phone and commits the
// staged name only when the record has none, so unverified input never
// overwrites an established profile.
func (s *MongoCustomerStore) EnsureByPhone(ctx context.Context, phoneNumber, stagedName string) (*models.Customer, error) {
	customers := s.db.Collection("customers")
	now := time.Now()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var customer models.Customer
	err := customers.FindOneAndUpdate(ctx,
		bson.M{"phone": phoneNumber},
		bson.M{
			"$set": bson.M{"updatedAt": now},
			"$setOnInsert": bson.M{
				"phone":       phoneNumber,
				"addresses":   []models.Address{},
				"totalOrders": 0,
				"createdAt":   now,
			},
		},
		opts,
	).Decode(&customer)
	if err != nil {
		return nil, err
	}

	if stagedName != "" && customer.Name == "" {
		_, err := customers.UpdateOne(ctx,
			bson.M{"_id": customer.ID, "name": bson.M{"$in": bson.A{nil, ""}}},
			bson.M{"$set": bson.M{"name": stagedName, "updatedAt": now}},
		)
		if err != nil {
			return nil, err
		}
		customer.Name = stagedName
	}

	return &customer, nil
}
