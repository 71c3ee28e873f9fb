// Package service provides the currency and owner verification capabilities consumed by
// the account use cases.
package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// CurrencyService accepts a fixed set of currency codes.
type CurrencyService struct {
	supported map[string]struct{}
}

// NewCurrencyService creates a CurrencyService accepting codes. Codes are matched exactly
// after trimming.
func NewCurrencyService(codes []string) *CurrencyService {
	supported := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		supported[strings.TrimSpace(code)] = struct{}{}
	}
	return &CurrencyService{supported: supported}
}

// IsSupported reports whether currency is accepted.
func (s *CurrencyService) IsSupported(currency string) bool {
	_, ok := s.supported[currency]
	return ok
}

// OwnerVerifier stands in for the client registry: every non-nil owner id is verified.
type OwnerVerifier struct{}

// NewOwnerVerifier creates an OwnerVerifier.
func NewOwnerVerifier() *OwnerVerifier {
	return &OwnerVerifier{}
}

// OwnerExists reports whether ownerID belongs to a verified client.
func (v *OwnerVerifier) OwnerExists(_ context.Context, ownerID uuid.UUID) (bool, error) {
	return ownerID != uuid.Nil, nil
}
