package handlers

import (
	"fmt"
	"sort"
	"strings"

	"backend/internal/models"
)

const postalCodeLength = 6

type addressFields struct {
	Street     string
	City       string
	County     string
	PostalCode string
	Note       string
}

func (f addressFields) trimmed() addressFields {
	return addressFields{
		Street:     strings.TrimSpace(f.Street),
		City:       strings.TrimSpace(f.City),
		County:     strings.TrimSpace(f.County),
		PostalCode: strings.TrimSpace(f.PostalCode),
		Note:       strings.TrimSpace(f.Note),
	}
}

// validateAddressFields returns one message per failed field, empty when the
// address is acceptable. Romanian postal codes are exactly six digits.
func validateAddressFields(f addressFields) []string {
	var problems []string
	if f.Street == "" {
		problems = append(problems, "street is required")
	}
	if f.City == "" {
		problems = append(problems, "city is required")
	}
	if f.County == "" {
		problems = append(problems, "county is required")
	}
	if len(f.PostalCode) != postalCodeLength {
		problems = append(problems, fmt.Sprintf("postalCode must be %d digits", postalCodeLength))
	} else {
		for _, r := range f.PostalCode {
			if r < '0' || r > '9' {
				problems = append(problems, "postalCode must contain only digits")
				break
			}
		}
	}
	return problems
}

// sortAddressesForListing orders used addresses by lastUsedAt descending,
// followed by never-used ones newest first.
func sortAddressesForListing(addresses []models.Address) []models.Address {
	sorted := make([]models.Address, len(addresses))
	copy(sorted, addresses)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		switch {
		case a.LastUsedAt != nil && b.LastUsedAt != nil:
			return a.LastUsedAt.After(*b.LastUsedAt)
		case a.LastUsedAt != nil:
			return true
		case b.LastUsedAt != nil:
			return false
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})
	return sorted
}

func findAddressIndex(addresses []models.Address, addressID string) int {
	for i, addr := range addresses {
		if addr.ID == addressID {
			return i
		}
	}
	return -1
}
