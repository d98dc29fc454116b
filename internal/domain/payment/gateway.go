package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// ChargeResult is the outcome of a saved-method charge
type ChargeResult struct {
	Success       bool
	TransactionID string
}

// Gateway is the narrow payment-collaborator surface. Only the auto-renewal
// sweep charges through it; checkout and activation receive already-validated
// payment data from the caller, which owns the actual charge.
type Gateway interface {
	// ChargeSavedMethod attempts exactly one charge of amount (minor units)
	// against the profile's saved payment method
	ChargeSavedMethod(ctx context.Context, subscriptionID string, amount decimal.Decimal, method string) (*ChargeResult, error)
}
