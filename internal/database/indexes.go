package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureCustomerIndexes enforces the one-identity-per-phone invariant.
func EnsureCustomerIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("customers").Indexes()

	phoneIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "phone", Value: 1}},
		Options: options.Index().
			SetName("phone_unique").
			SetUnique(true),
	}

	log.Println("EnsureCustomerIndexes: creating phone_unique index")
	_, err := indexes.CreateOne(ctx, phoneIndex)
	if err != nil {
		log.Println("EnsureCustomerIndexes: phone index error:", err)
		return err
	}
	log.Println("EnsureCustomerIndexes: phone_unique index created")
	return nil
}

// EnsureVerificationIndexes adds the TTL cleanup for stale verification
// states. Correctness never depends on this purge; expiry is always checked
// against expiresAt at read time.
func EnsureVerificationIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("verifications").Indexes()

	purgeIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "purgeAt", Value: 1}},
		Options: options.Index().
			SetName("purgeAt_ttl").
			SetExpireAfterSeconds(0),
	}

	log.Println("EnsureVerificationIndexes: creating purgeAt_ttl index")
	_, err := indexes.CreateOne(ctx, purgeIndex)
	if err != nil {
		log.Println("EnsureVerificationIndexes: purgeAt index error:", err)
		return err
	}
	log.Println("EnsureVerificationIndexes: purgeAt_ttl index created")
	return nil
}

// EnsureRateLimitIndexes adds the TTL cleanup for elapsed counter windows.
func EnsureRateLimitIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("rate_limits").Indexes()

	expiresIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().
			SetName("expiresAt_ttl").
			SetExpireAfterSeconds(0),
	}

	log.Println("EnsureRateLimitIndexes: creating expiresAt_ttl index")
	_, err := indexes.CreateOne(ctx, expiresIndex)
	if err != nil {
		log.Println("EnsureRateLimitIndexes: expiresAt index error:", err)
		return err
	}
	log.Println("EnsureRateLimitIndexes: expiresAt_ttl index created")
	return nil
}

// EnsureOrderIndexes speeds up the per-customer order listing.
func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("orders").Indexes()

	customerIDIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "customerId", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("customerId_createdAt"),
	}

	log.Println("EnsureOrderIndexes: creating customerId_createdAt index")
	_, err := indexes.CreateOne(ctx, customerIDIndex)
	if err != nil {
		log.Println("EnsureOrderIndexes: customerId index error:", err)
		return err
	}
	log.Println("EnsureOrderIndexes: customerId_createdAt index created")
	return nil
}
