package handlers

import (
	"context"
	"errors"
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

/* =========================
   REQUEST DTOs
========================= */

type createOrderItemRequest struct {
	Name     string  `json:"name" binding:"required"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity" binding:"required"`
}

type createOrderRequest struct {
	Items         []createOrderItemRequest `json:"items" binding:"required"`
	AddressID     string                   `json:"addressId"`
	Address       *addressRequest          `json:"address"`
	PaymentMethod string                   `json:"paymentMethod" binding:"required"`
}

/* =========================
   CREATE ORDER
========================= */

// CreateOrder materializes an order for the session customer. The order
// copies the delivery address, bumps the address usage counters and the
// customer's order totals, all inside one transaction.
func CreateOrder(db *mongo.Database, addressLimit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout/orders"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		customerID, ok := customerIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		items, total, err := buildOrderItems(req.Items)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		if req.PaymentMethod != "cash" && req.PaymentMethod != "card" {
			respondWithError(c, http.StatusBadRequest, route, "invalid payment method")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		dbSession, err := db.Client().StartSession()
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer dbSession.EndSession(ctx)

		now := time.Now()
		var orderID primitive.ObjectID
		_, err = dbSession.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			var customer models.Customer
			if err := db.Collection("customers").FindOne(sessCtx, bson.M{"_id": customerID}).Decode(&customer); err != nil {
				if err == mongo.ErrNoDocuments {
					return nil, errCustomerGone
				}
				return nil, err
			}

			delivery, err := resolveDelivery(sessCtx, addressWrites{db: db}, &customer, req, addressLimit, now)
			if err != nil {
				return nil, err
			}

			order := models.Order{
				CustomerID:    customerID,
				Phone:         customer.Phone,
				Items:         items,
				TotalPrice:    total,
				Delivery:      delivery,
				PaymentMethod: req.PaymentMethod,
				Status:        "pending",
				CreatedAt:     now,
			}

			res, err := db.Collection("orders").InsertOne(sessCtx, order)
			if err != nil {
				return nil, err
			}
			if id, ok := res.InsertedID.(primitive.ObjectID); ok {
				orderID = id
			}

			_, err = db.Collection("customers").UpdateByID(sessCtx, customerID, bson.M{
				"$inc": bson.M{"totalOrders": 1},
				"$set": bson.M{"lastOrderAt": now, "updatedAt": now},
			})
			return nil, err
		})
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		log.Println("[ORDER] [INFO] order created for customer:", customerID.Hex())
		c.JSON(http.StatusCreated, gin.H{
			"orderId": orderID.Hex(),
			"message": "order created",
		})
	}
}

// deliveryStore is the slice of address persistence order creation needs.
// addressWrites backs it in production.
type deliveryStore interface {
	ClearDefaultAddresses(ctx context.Context, customerID primitive.ObjectID) error
	AppendAddress(ctx context.Context, customerID primitive.ObjectID, address models.Address, now time.Time) error
	BumpAddressUsage(ctx context.Context, customerID primitive.ObjectID, addressID string, now time.Time) error
}

// resolveDelivery picks the saved address (bumping its usage counters) or
// validates and stores a new inline one, returning the copy embedded in the
// order.
func resolveDelivery(ctx context.Context, store deliveryStore, customer *models.Customer, req createOrderRequest, addressLimit int, now time.Time) (models.OrderAddress, error) {
	if addressID := strings.TrimSpace(req.AddressID); addressID != "" {
		index := findAddressIndex(customer.Addresses, addressID)
		if index == -1 {
			return models.OrderAddress{}, errAddressNotFound
		}
		addr := customer.Addresses[index]

		if err := store.BumpAddressUsage(ctx, customer.ID, addressID, now); err != nil {
			return models.OrderAddress{}, err
		}

		return models.OrderAddress{
			AddressID:  addr.ID,
			Street:     addr.Street,
			City:       addr.City,
			County:     addr.County,
			PostalCode: addr.PostalCode,
			Note:       addr.Note,
		}, nil
	}

	if req.Address == nil {
		return models.OrderAddress{}, errNoDeliveryAddress
	}

	fields := req.Address.fields()
	if problems := validateAddressFields(fields); len(problems) > 0 {
		return models.OrderAddress{}, invalidAddressError{Problems: problems}
	}
	if len(customer.Addresses) >= addressLimit {
		return models.OrderAddress{}, errAddressLimit
	}

	addressID, err := newAddressID()
	if err != nil {
		return models.OrderAddress{}, err
	}
	address := models.Address{
		ID:         addressID,
		Street:     fields.Street,
		City:       fields.City,
		County:     fields.County,
		PostalCode: fields.PostalCode,
		Note:       fields.Note,
		IsDefault:  req.Address.IsDefault,
		Version:    1,
		UsageCount: 1,
		LastUsedAt: &now,
		CreatedAt:  now,
	}

	if req.Address.IsDefault {
		if err := store.ClearDefaultAddresses(ctx, customer.ID); err != nil {
			return models.OrderAddress{}, err
		}
	}
	if err := store.AppendAddress(ctx, customer.ID, address, now); err != nil {
		return models.OrderAddress{}, err
	}

	return models.OrderAddress{
		AddressID:  address.ID,
		Street:     address.Street,
		City:       address.City,
		County:     address.County,
		PostalCode: address.PostalCode,
		Note:       address.Note,
	}, nil
}

/* =========================
   GET ORDERS
========================= */

// GetOrders lists the session customer's orders, newest first.
func GetOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /checkout/orders"
		defer handlePanic(c, route)

		customerID, ok := customerIDFromContext(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
		cursor, err := db.Collection("orders").Find(ctx, bson.M{"customerId": customerID}, opts)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		orders := make([]models.Order, 0)
		if err := cursor.All(ctx, &orders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"orders": orders})
	}
}

/* =========================
   HELPERS & ERRORS
========================= */

// buildOrderItems validates the submitted line items and computes the total.
// Catalog pricing is out of scope here: prices are taken as submitted.
func buildOrderItems(reqItems []createOrderItemRequest) ([]models.OrderItem, float64, error) {
	if len(reqItems) == 0 {
		return nil, 0, errors.New("at least one item is required")
	}

	items := make([]models.OrderItem, 0, len(reqItems))
	var total float64
	for _, item := range reqItems {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return nil, 0, errors.New("item name is required")
		}
		if item.Quantity <= 0 {
			return nil, 0, errors.New("quantity must be greater than zero")
		}
		if item.Price < 0 {
			return nil, 0, errors.New("price must not be negative")
		}
		items = append(items, models.OrderItem{
			Name:     name,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
		total += item.Price * float64(item.Quantity)
	}
	return items, total, nil
}

var (
	errCustomerGone      = errors.New("customer not found")
	errAddressNotFound   = errors.New("address not found")
	errNoDeliveryAddress = errors.New("addressId or address is required")
	errAddressLimit      = errors.New("address limit reached")
)

type invalidAddressError struct {
	Problems []string
}

func (e invalidAddressError) Error() string {
	return "invalid address: " + strings.Join(e.Problems, ", ")
}

func respondOrderError(c *gin.Context, route string, err error) {
	var invalid invalidAddressError
	if errors.As(err, &invalid) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": invalid.Problems})
		return
	}

	switch {
	case errors.Is(err, errCustomerGone):
		respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
	case errors.Is(err, errAddressNotFound):
		respondWithError(c, http.StatusNotFound, route, "address not found")
	case errors.Is(err, errNoDeliveryAddress):
		respondWithError(c, http.StatusBadRequest, route, errNoDeliveryAddress.Error())
	case errors.Is(err, errAddressLimit):
		respondWithError(c, http.StatusUnprocessableEntity, route, "address limit reached")
	default:
		log.Printf("[%s] transaction failed: %v", route, err)
		respondWithError(c, http.StatusInternalServerError, route, "db error")
	}
}
