// Package stripe charges saved payment methods for the auto-renewal sweep.
package stripe

import (
	"context"

	"github.com/shopspring/decimal"
	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/teris-io/shortid"

	"github.com/spahub/billing/internal/config"
	"github.com/spahub/billing/internal/domain/payment"
	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/logger"
)

type Gateway struct {
	client   *client.API
	currency string
	log      *logger.Logger
}

func NewGateway(cfg *config.Configuration, log *logger.Logger) *Gateway {
	sc := &client.API{}
	sc.Init(cfg.Stripe.SecretKey, nil)
	return &Gateway{
		client:   sc,
		currency: cfg.Stripe.Currency,
		log:      log,
	}
}

// ChargeSavedMethod confirms an off-session payment intent against the saved
// method. Exactly one attempt; a decline comes back as Success=false rather
// than an error so the sweep can record it and move on.
func (g *Gateway) ChargeSavedMethod(ctx context.Context, subscriptionID string, amount decimal.Decimal, method string) (*payment.ChargeResult, error) {
	if method == "" {
		return nil, ierr.NewError("no saved payment method").
			Mark(ierr.ErrValidation)
	}

	ref, err := shortid.Generate()
	if err != nil {
		ref = subscriptionID
	}

	params := &stripego.PaymentIntentParams{
		Amount:        stripego.Int64(amount.IntPart()),
		Currency:      stripego.String(g.currency),
		PaymentMethod: stripego.String(method),
		Confirm:       stripego.Bool(true),
		OffSession:    stripego.Bool(true),
		Description:   stripego.String("subscription renewal " + subscriptionID),
	}
	params.Context = ctx
	params.SetIdempotencyKey("renewal-" + subscriptionID + "-" + ref)

	intent, err := g.client.PaymentIntents.New(params)
	if err != nil {
		if stripeErr, ok := err.(*stripego.Error); ok && stripeErr.Type == stripego.ErrorTypeCard {
			g.log.Warnw("card declined",
				"subscription_id", subscriptionID,
				"decline_code", stripeErr.DeclineCode)
			return &payment.ChargeResult{Success: false}, nil
		}
		return nil, ierr.WithError(err).
			WithHint("Payment gateway call failed").
			WithReportableDetails(map[string]interface{}{"subscription_id": subscriptionID}).
			Mark(ierr.ErrPaymentFailed)
	}

	if intent.Status != stripego.PaymentIntentStatusSucceeded {
		return &payment.ChargeResult{Success: false, TransactionID: intent.ID}, nil
	}
	return &payment.ChargeResult{Success: true, TransactionID: intent.ID}, nil
}
