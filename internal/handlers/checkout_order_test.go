package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
)

// memoryDeliveryStore mirrors the address mutations addressWrites performs,
// so resolveDelivery can be exercised end to end.
type memoryDeliveryStore struct {
	addresses []models.Address
}

func (s *memoryDeliveryStore) ClearDefaultAddresses(ctx context.Context, customerID primitive.ObjectID) error {
	for i := range s.addresses {
		s.addresses[i].IsDefault = false
	}
	return nil
}

func (s *memoryDeliveryStore) AppendAddress(ctx context.Context, customerID primitive.ObjectID, address models.Address, now time.Time) error {
	s.addresses = append(s.addresses, address)
	return nil
}

func (s *memoryDeliveryStore) BumpAddressUsage(ctx context.Context, customerID primitive.ObjectID, addressID string, now time.Time) error {
	for i := range s.addresses {
		if s.addresses[i].ID == addressID {
			s.addresses[i].UsageCount++
			s.addresses[i].LastUsedAt = &now
		}
	}
	return nil
}

func defaultCounts(addresses []models.Address) (defaults int, defaultID string) {
	for _, a := range addresses {
		if a.IsDefault {
			defaults++
			defaultID = a.ID
		}
	}
	return defaults, defaultID
}

func TestResolveDeliveryInlineDefaultKeepsSingleDefault(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	existing := sampleAddress("addr-old")
	existing.IsDefault = true

	store := &memoryDeliveryStore{addresses: []models.Address{existing}}
	customer := &models.Customer{ID: primitive.NewObjectID(), Addresses: store.addresses}

	req := createOrderRequest{Address: &addressRequest{
		Street:     "Str. Memorandumului 4",
		City:       "Cluj-Napoca",
		County:     "Cluj",
		PostalCode: "400114",
		IsDefault:  true,
	}}

	delivery, err := resolveDelivery(context.Background(), store, customer, req, 50, now)
	if err != nil {
		t.Fatalf("resolveDelivery returned error: %v", err)
	}
	if delivery.Street != "Str. Memorandumului 4" {
		t.Fatalf("expected the inline address in the order, got %+v", delivery)
	}

	if len(store.addresses) != 2 {
		t.Fatalf("expected 2 stored addresses, got %d", len(store.addresses))
	}
	defaults, defaultID := defaultCounts(store.addresses)
	if defaults != 1 {
		t.Fatalf("expected exactly one default address, got %d", defaults)
	}
	if defaultID != delivery.AddressID {
		t.Fatalf("expected the new address to hold the default, got %s", defaultID)
	}
}

func TestResolveDeliveryInlineNonDefaultKeepsExistingDefault(t *testing.T) {
	existing := sampleAddress("addr-old")
	existing.IsDefault = true

	store := &memoryDeliveryStore{addresses: []models.Address{existing}}
	customer := &models.Customer{ID: primitive.NewObjectID(), Addresses: store.addresses}

	req := createOrderRequest{Address: &addressRequest{
		Street:     "Str. Memorandumului 4",
		City:       "Cluj-Napoca",
		County:     "Cluj",
		PostalCode: "400114",
	}}

	if _, err := resolveDelivery(context.Background(), store, customer, req, 50, time.Now()); err != nil {
		t.Fatalf("resolveDelivery returned error: %v", err)
	}
	defaults, defaultID := defaultCounts(store.addresses)
	if defaults != 1 || defaultID != "addr-old" {
		t.Fatalf("expected addr-old to stay the default, got %d defaults (%s)", defaults, defaultID)
	}
}

func TestResolveDeliverySavedAddressBumpsUsage(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	store := &memoryDeliveryStore{addresses: []models.Address{sampleAddress("addr-1")}}
	customer := &models.Customer{ID: primitive.NewObjectID(), Addresses: store.addresses}

	delivery, err := resolveDelivery(context.Background(), store, customer, createOrderRequest{AddressID: "addr-1"}, 50, now)
	if err != nil {
		t.Fatalf("resolveDelivery returned error: %v", err)
	}
	if delivery.AddressID != "addr-1" || delivery.Street != "Str. Unirii 10" {
		t.Fatalf("expected a copy of addr-1, got %+v", delivery)
	}
	if store.addresses[0].UsageCount != 1 || store.addresses[0].LastUsedAt == nil {
		t.Fatalf("expected usage counters bumped, got %+v", store.addresses[0])
	}
}

func TestResolveDeliveryRejectsUnknownAddressID(t *testing.T) {
	store := &memoryDeliveryStore{}
	customer := &models.Customer{ID: primitive.NewObjectID()}

	_, err := resolveDelivery(context.Background(), store, customer, createOrderRequest{AddressID: "missing"}, 50, time.Now())
	if !errors.Is(err, errAddressNotFound) {
		t.Fatalf("expected errAddressNotFound, got %v", err)
	}
}

func TestResolveDeliveryRequiresAnAddress(t *testing.T) {
	store := &memoryDeliveryStore{}
	customer := &models.Customer{ID: primitive.NewObjectID()}

	_, err := resolveDelivery(context.Background(), store, customer, createOrderRequest{}, 50, time.Now())
	if !errors.Is(err, errNoDeliveryAddress) {
		t.Fatalf("expected errNoDeliveryAddress, got %v", err)
	}
}

func TestResolveDeliveryEnforcesAddressCap(t *testing.T) {
	store := &memoryDeliveryStore{addresses: []models.Address{sampleAddress("addr-1")}}
	customer := &models.Customer{ID: primitive.NewObjectID(), Addresses: store.addresses}

	req := createOrderRequest{Address: &addressRequest{
		Street:     "Str. Memorandumului 4",
		City:       "Cluj-Napoca",
		County:     "Cluj",
		PostalCode: "400114",
	}}

	_, err := resolveDelivery(context.Background(), store, customer, req, 1, time.Now())
	if !errors.Is(err, errAddressLimit) {
		t.Fatalf("expected errAddressLimit, got %v", err)
	}
}

func TestBuildOrderItemsComputesTotal(t *testing.T) {
	items, total, err := buildOrderItems([]createOrderItemRequest{
		{Name: "Branza de Burduf", Price: 25.5, Quantity: 2},
		{Name: "Miere de salcam", Price: 30, Quantity: 1},
	})
	if err != nil {
		t.Fatalf("buildOrderItems returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if total != 81 {
		t.Fatalf("expected total 81, got %v", total)
	}
}

func TestBuildOrderItemsRejectsEmptyOrder(t *testing.T) {
	if _, _, err := buildOrderItems(nil); err == nil {
		t.Fatal("expected error for empty item list")
	}
}

func TestBuildOrderItemsRejectsBadLines(t *testing.T) {
	cases := []createOrderItemRequest{
		{Name: "", Price: 10, Quantity: 1},
		{Name: "Lapte", Price: 10, Quantity: 0},
		{Name: "Lapte", Price: 10, Quantity: -2},
		{Name: "Lapte", Price: -1, Quantity: 1},
	}
	for _, item := range cases {
		if _, _, err := buildOrderItems([]createOrderItemRequest{item}); err == nil {
			t.Fatalf("expected rejection for item %+v", item)
		}
	}
}

func TestBuildOrderItemsTrimsNames(t *testing.T) {
	items, _, err := buildOrderItems([]createOrderItemRequest{
		{Name: "  Zacusca  ", Price: 15, Quantity: 1},
	})
	if err != nil {
		t.Fatalf("buildOrderItems returned error: %v", err)
	}
	if items[0].Name != "Zacusca" {
		t.Fatalf("expected trimmed name, got %q", items[0].Name)
	}
}
