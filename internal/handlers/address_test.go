package handlers

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"backend/internal/models"
)

func sampleAddress(id string) models.Address {
	return models.Address{
		ID:         id,
		Street:     "Str. Unirii 10",
		City:       "Cluj-Napoca",
		County:     "Cluj",
		PostalCode: "400001",
		Version:    1,
	}
}

func TestPullAddressUpdateCarriesOnlyThePull(t *testing.T) {
	update := pullAddressUpdate("addr-1")

	pull, ok := update["$pull"].(bson.M)
	if !ok {
		t.Fatalf("expected a $pull operator, got %v", update)
	}
	if _, ok := pull["addresses"]; !ok {
		t.Fatalf("expected the pull to target addresses, got %v", pull)
	}

	// A companion $set (updatedAt or anything else) would report the
	// document modified even when no element matched the id, turning a
	// missing address into a false 200.
	if len(update) != 1 {
		t.Fatalf("expected the pull to ride alone, got %v", update)
	}
}

func TestPushAddressUpdateLeavesExistingElementsAlone(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	update := pushAddressUpdate(sampleAddress("addr-new"), now)

	if _, ok := update["$push"].(bson.M)["addresses"]; !ok {
		t.Fatalf("expected the new address to be pushed, got %v", update)
	}

	// Rewriting the whole array from a read copy would revert concurrent
	// version bumps; only the parent timestamp may be set.
	set, ok := update["$set"].(bson.M)
	if !ok {
		t.Fatalf("expected a $set operator, got %v", update)
	}
	if _, ok := set["addresses"]; ok {
		t.Fatalf("push must not rewrite the addresses array: %v", set)
	}
	if len(set) != 1 || set["updatedAt"] != now {
		t.Fatalf("expected $set to touch updatedAt only, got %v", set)
	}
}

func TestReplaceAddressUpdateClearsCompetitorsInOneWrite(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	fields := addressFields{Street: "Str. Unirii 10", City: "Cluj-Napoca", County: "Cluj", PostalCode: "400001"}

	update, opts := replaceAddressUpdate("addr-1", fields, true, 3, now)
	set := update["$set"].(bson.M)

	if set["addresses.$.version"] != 4 {
		t.Fatalf("expected version bump to 4, got %v", set["addresses.$.version"])
	}
	if set["addresses.$.isDefault"] != true {
		t.Fatalf("expected the target to become default, got %v", set)
	}

	// The clear shares the write; a second update after the CAS leaves a
	// window with two defaults.
	if set["addresses.$[other].isDefault"] != false {
		t.Fatalf("expected competitors cleared in the same write, got %v", set)
	}
	if opts.ArrayFilters == nil || len(opts.ArrayFilters.Filters) != 1 {
		t.Fatalf("expected one array filter, got %+v", opts.ArrayFilters)
	}
	filter := opts.ArrayFilters.Filters[0].(bson.M)
	if other := filter["other.id"].(bson.M); other["$ne"] != "addr-1" {
		t.Fatalf("expected the filter to exclude the target, got %v", filter)
	}
}

func TestReplaceAddressUpdateWithoutDefaultSkipsTheClear(t *testing.T) {
	fields := addressFields{Street: "Str. Unirii 10", City: "Cluj-Napoca", County: "Cluj", PostalCode: "400001"}

	update, opts := replaceAddressUpdate("addr-1", fields, false, 1, time.Now())
	set := update["$set"].(bson.M)

	if _, ok := set["addresses.$[other].isDefault"]; ok {
		t.Fatalf("non-default edit must not touch other addresses: %v", set)
	}
	if opts.ArrayFilters != nil {
		t.Fatalf("expected no array filters, got %+v", opts.ArrayFilters)
	}
}
