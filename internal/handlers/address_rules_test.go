package handlers

import (
	"testing"
	"time"

	"backend/internal/models"
)

func TestValidateAddressFieldsAcceptsCompleteAddress(t *testing.T) {
	problems := validateAddressFields(addressFields{
		Street:     "Str. Unirii 10",
		City:       "Cluj-Napoca",
		County:     "Cluj",
		PostalCode: "400001",
	})
	if len(problems) != 0 {
		t.Fatalf("expected no problems, got %v", problems)
	}
}

func TestValidateAddressFieldsReportsEachMissingField(t *testing.T) {
	problems := validateAddressFields(addressFields{PostalCode: "400001"})
	if len(problems) != 3 {
		t.Fatalf("expected 3 problems, got %v", problems)
	}
}

func TestValidateAddressFieldsPostalCode(t *testing.T) {
	base := addressFields{Street: "Str. Unirii 10", City: "Cluj-Napoca", County: "Cluj"}

	for _, code := range []string{"", "4000", "4000011", "40000a"} {
		f := base
		f.PostalCode = code
		if problems := validateAddressFields(f); len(problems) == 0 {
			t.Fatalf("expected postal code %q to be rejected", code)
		}
	}
}

func TestSortAddressesForListing(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	older := now.Add(-time.Hour)
	addresses := []models.Address{
		{ID: "never-old", CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "used-older", LastUsedAt: &older, CreatedAt: now.Add(-72 * time.Hour)},
		{ID: "never-new", CreatedAt: now},
		{ID: "used-recent", LastUsedAt: &now, CreatedAt: now.Add(-96 * time.Hour)},
	}

	sorted := sortAddressesForListing(addresses)
	want := []string{"used-recent", "used-older", "never-new", "never-old"}
	for i, id := range want {
		if sorted[i].ID != id {
			t.Fatalf("position %d: got %s, want %s (full order %v)", i, sorted[i].ID, id, sorted)
		}
	}

	// Input must stay untouched.
	if addresses[0].ID != "never-old" {
		t.Fatal("sortAddressesForListing mutated its input")
	}
}

func TestFindAddressIndex(t *testing.T) {
	addresses := []models.Address{{ID: "a"}, {ID: "b"}}
	if got := findAddressIndex(addresses, "b"); got != 1 {
		t.Fatalf("expected index 1, got %d", got)
	}
	if got := findAddressIndex(addresses, "missing"); got != -1 {
		t.Fatalf("expected -1 for missing id, got %d", got)
	}
}
