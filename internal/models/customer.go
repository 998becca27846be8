package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Address represents a single delivery address entry for a customer.
// Version backs the optimistic-concurrency check on updates.
type Address struct {
	ID         string     `bson:"id" json:"id"`
	Street     string     `bson:"street" json:"street"`
	City       string     `bson:"city" json:"city"`
	County     string     `bson:"county" json:"county"`
	PostalCode string     `bson:"postalCode" json:"postalCode"`
	Note       string     `bson:"note,omitempty" json:"note,omitempty"`
	IsDefault  bool       `bson:"isDefault" json:"isDefault"`
	Version    int        `bson:"version" json:"version"`
	UsageCount int        `bson:"usageCount" json:"usageCount"`
	LastUsedAt *time.Time `bson:"lastUsedAt,omitempty" json:"lastUsedAt,omitempty"`
	CreatedAt  time.Time  `bson:"createdAt" json:"createdAt"`
}

// Customer is one verified phone identity and everything attached to it.
// Phone holds the canonical international form and is unique per document.
type Customer struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Phone       string             `bson:"phone" json:"phone"`
	Name        string             `bson:"name,omitempty" json:"name,omitempty"`
	Addresses   []Address          `bson:"addresses" json:"addresses"`
	TotalOrders int                `bson:"totalOrders" json:"totalOrders"`
	LastOrderAt *time.Time         `bson:"lastOrderAt,omitempty" json:"lastOrderAt,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// DefaultAddress returns the default address, falling back to the most
// recently used one, or nil when the customer has no addresses yet.
func (c *Customer) DefaultAddress() *Address {
	var recent *Address
	for i := range c.Addresses {
		addr := &c.Addresses[i]
		if addr.IsDefault {
			return addr
		}
		if recent == nil {
			recent = addr
			continue
		}
		if addr.LastUsedAt != nil && (recent.LastUsedAt == nil || addr.LastUsedAt.After(*recent.LastUsedAt)) {
			recent = addr
		}
	}
	return recent
}
