package handlers

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

type addressRequest struct {
	Street     string `json:"street" binding:"required"`
	City       string `json:"city" binding:"required"`
	County     string `json:"county" binding:"required"`
	PostalCode string `json:"postalCode" binding:"required"`
	Note       string `json:"note"`
	IsDefault  bool   `json:"isDefault"`
}

type updateAddressRequest struct {
	addressRequest
	ExpectedVersion *int `json:"expectedVersion" binding:"required"`
}

func (r addressRequest) fields() addressFields {
	return addressFields{
		Street:     r.Street,
		City:       r.City,
		County:     r.County,
		PostalCode: r.PostalCode,
		Note:       r.Note,
	}.trimmed()
}

// GetAddresses lists the session customer's addresses, most recently used
// first.
func GetAddresses(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /checkout/addresses"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var customer models.Customer
		if err := db.Collection("customers").FindOne(ctx, bson.M{"_id": customerID}).Decode(&customer); err != nil {
			log.Println("[ADDRESS] [ERROR] customer lookup failed:", err)
			if err == mongo.ErrNoDocuments {
				respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"addresses": sortAddressesForListing(customer.Addresses)})
	}
}

// CreateAddress appends a new address, enforcing field validation, the
// per-customer cap and the single-default invariant.
func CreateAddress(db *mongo.Database, addressLimit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout/addresses"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		fields := req.fields()
		if problems := validateAddressFields(fields); len(problems) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": problems})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var customer models.Customer
		if err := db.Collection("customers").FindOne(ctx, bson.M{"_id": customerID}).Decode(&customer); err != nil {
			log.Println("[ADDRESS] [ERROR] customer lookup failed:", err)
			if err == mongo.ErrNoDocuments {
				respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if len(customer.Addresses) >= addressLimit {
			respondWithError(c, http.StatusUnprocessableEntity, route, "address limit reached")
			return
		}

		addressID, err := newAddressID()
		if err != nil {
			log.Println("[ADDRESS] [ERROR] address id generation failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "address id generation failed")
			return
		}

		address := models.Address{
			ID:         addressID,
			Street:     fields.Street,
			City:       fields.City,
			County:     fields.County,
			PostalCode: fields.PostalCode,
			Note:       fields.Note,
			IsDefault:  req.IsDefault,
			Version:    1,
			CreatedAt:  time.Now(),
		}

		writes := addressWrites{db: db}
		if req.IsDefault {
			if err := writes.ClearDefaultAddresses(ctx, customerID); err != nil {
				log.Println("[ADDRESS] [ERROR] clearing default flags failed:", err)
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
		}
		if err := writes.AppendAddress(ctx, customerID, address, time.Now()); err != nil {
			log.Println("[ADDRESS] [ERROR] insert address failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Println("[ADDRESS] [INFO] address created:", address.ID)
		c.JSON(http.StatusCreated, gin.H{"address": address})
	}
}

// UpdateAddress rewrites one address under optimistic concurrency: the write
// only matches while the stored version equals the client's expectedVersion,
// so a concurrent edit surfaces as a conflict instead of a lost update.
func UpdateAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /checkout/addresses/:id"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		addressID := strings.TrimSpace(c.Param("id"))
		if addressID == "" {
			respondWithError(c, http.StatusBadRequest, route, "invalid address id")
			return
		}

		var req updateAddressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		fields := req.fields()
		if problems := validateAddressFields(fields); len(problems) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": problems})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		expectedVersion := *req.ExpectedVersion
		update, opts := replaceAddressUpdate(addressID, fields, req.IsDefault, expectedVersion, time.Now())
		res, err := db.Collection("customers").UpdateOne(ctx,
			bson.M{
				"_id": customerID,
				"addresses": bson.M{"$elemMatch": bson.M{
					"id":      addressID,
					"version": expectedVersion,
				}},
			},
			update,
			opts,
		)
		if err != nil {
			log.Println("[ADDRESS] [ERROR] update address failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if res.MatchedCount == 0 {
			var customer models.Customer
			if err := db.Collection("customers").FindOne(ctx, bson.M{"_id": customerID}).Decode(&customer); err != nil {
				respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
				return
			}
			if findAddressIndex(customer.Addresses, addressID) == -1 {
				respondWithError(c, http.StatusNotFound, route, "address not found")
				return
			}
			respondWithError(c, http.StatusConflict, route, "address was modified concurrently, refetch and retry")
			return
		}

		var customer models.Customer
		if err := db.Collection("customers").FindOne(ctx, bson.M{"_id": customerID}).Decode(&customer); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		index := findAddressIndex(customer.Addresses, addressID)
		if index == -1 {
			respondWithError(c, http.StatusNotFound, route, "address not found")
			return
		}

		log.Println("[ADDRESS] [INFO] address updated:", addressID)
		c.JSON(http.StatusOK, gin.H{"address": customer.Addresses[index]})
	}
}

// DeleteAddress removes one address. Orders keep their own copy of the
// delivery address, so removal never breaks past orders.
func DeleteAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /checkout/addresses/:id"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		addressID := strings.TrimSpace(c.Param("id"))
		if addressID == "" {
			respondWithError(c, http.StatusBadRequest, route, "invalid address id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("customers").UpdateByID(ctx, customerID, pullAddressUpdate(addressID))
		if err != nil {
			log.Println("[ADDRESS] [ERROR] delete address failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.ModifiedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "address not found")
			return
		}

		log.Println("[ADDRESS] [INFO] address deleted:", addressID)
		c.JSON(http.StatusOK, gin.H{"message": "address deleted"})
	}
}

// pullAddressUpdate builds the removal write. The pull rides alone: a
// companion $set would mark the document modified even when no element
// matched, hiding a missing id.
func pullAddressUpdate(addressID string) bson.M {
	return bson.M{"$pull": bson.M{"addresses": bson.M{"id": addressID}}}
}

// pushAddressUpdate appends one element instead of rewriting the array, so
// version bumps landed by concurrent edits stay intact.
func pushAddressUpdate(address models.Address, now time.Time) bson.M {
	return bson.M{
		"$push": bson.M{"addresses": address},
		"$set":  bson.M{"updatedAt": now},
	}
}

// replaceAddressUpdate builds the versioned rewrite of one address. When the
// edit claims the default, every competitor is cleared in the same write.
func replaceAddressUpdate(addressID string, fields addressFields, isDefault bool, expectedVersion int, now time.Time) (bson.M, *options.UpdateOptions) {
	set := bson.M{
		"addresses.$.street":     fields.Street,
		"addresses.$.city":       fields.City,
		"addresses.$.county":     fields.County,
		"addresses.$.postalCode": fields.PostalCode,
		"addresses.$.note":       fields.Note,
		"addresses.$.isDefault":  isDefault,
		"addresses.$.version":    expectedVersion + 1,
		"updatedAt":              now,
	}

	opts := options.Update()
	if isDefault {
		set["addresses.$[other].isDefault"] = false
		opts.SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"other.id": bson.M{"$ne": addressID}}},
		})
	}
	return bson.M{"$set": set}, opts
}

// addressWrites groups the address mutations shared between the address
// handlers and order creation. Methods accept the caller's context so they
// join an open transaction when given a session context.
type addressWrites struct {
	db *mongo.Database
}

func (w addressWrites) ClearDefaultAddresses(ctx context.Context, customerID primitive.ObjectID) error {
	_, err := w.db.Collection("customers").UpdateByID(ctx, customerID,
		bson.M{"$set": bson.M{"addresses.$[flagged].isDefault": false}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"flagged.isDefault": true}},
		}),
	)
	return err
}

func (w addressWrites) AppendAddress(ctx context.Context, customerID primitive.ObjectID, address models.Address, now time.Time) error {
	_, err := w.db.Collection("customers").UpdateByID(ctx, customerID, pushAddressUpdate(address, now))
	return err
}

func (w addressWrites) BumpAddressUsage(ctx context.Context, customerID primitive.ObjectID, addressID string, now time.Time) error {
	_, err := w.db.Collection("customers").UpdateOne(ctx,
		bson.M{"_id": customerID, "addresses.id": addressID},
		bson.M{
			"$inc": bson.M{"addresses.$.usageCount": 1},
			"$set": bson.M{"addresses.$.lastUsedAt": now},
		},
	)
	return err
}

func newAddressID() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}

	buf[6] = (buf[6] & 0x0f) | 0x40
	buf[8] = (buf[8] & 0x3f) | 0x80
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		buf[0:4],
		buf[4:6],
		buf[6:8],
		buf[8:10],
		buf[10:16],
	), nil
}
