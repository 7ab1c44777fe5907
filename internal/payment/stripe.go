package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeIntents is the slice of the Stripe PaymentIntents API the adapter uses.
type StripeIntents interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Confirm(id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)
}

type StripeAdapter struct {
	intents        StripeIntents
	publishableKey string
}

func NewStripeAdapter(intents StripeIntents, publishableKey string) *StripeAdapter {
	return &StripeAdapter{intents: intents, publishableKey: publishableKey}
}

// NewStripeClient returns the live PaymentIntents client for secretKey.
func NewStripeClient(secretKey string) StripeIntents {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return sc.PaymentIntents
}

func (a *StripeAdapter) Provider() Provider {
	return ProviderStripe
}

func (a *StripeAdapter) Prepare(ctx context.Context, draft domain.OrderDraft) (Preparation, error) {
	currency := strings.ToLower(draft.Currency)
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(MinorUnits(draft.Pricing.Total, draft.Currency)),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Description:        stripe.String(fmt.Sprintf("Order draft %s", draft.ID)),
	}
	if draft.Customer.Email != "" {
		params.ReceiptEmail = stripe.String(draft.Customer.Email)
	}
	params.Context = ctx
	params.AddMetadata("draft_id", draft.ID)
	params.SetIdempotencyKey("draft-" + draft.ID)

	pi, err := a.intents.New(params)
	if err != nil {
		return Preparation{}, stripeError(err)
	}

	return Preparation{
		Provider:     ProviderStripe,
		DraftID:      draft.ID,
		Reference:    pi.ID,
		ClientSecret: pi.ClientSecret,
		PublicKey:    a.publishableKey,
		Amount:       draft.Pricing.Total,
		Currency:     draft.Currency,
	}, nil
}

// Confirm confirms the intent with the collected payment method. Only "succeeded" counts as success.
func (a *StripeAdapter) Confirm(ctx context.Context, prep Preparation, c Confirmation) (Result, error) {
	if c.PaymentMethodID == "" {
		return Result{Provider: ProviderStripe, Reference: prep.Reference},
			&DeclinedError{Provider: ProviderStripe, Message: "card details are missing"}
	}

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(c.PaymentMethodID),
	}
	params.Context = ctx

	pi, err := a.intents.Confirm(prep.Reference, params)
	if err != nil {
		return Result{Provider: ProviderStripe, Reference: prep.Reference}, stripeError(err)
	}

	res := Result{
		Provider:  ProviderStripe,
		Reference: pi.ID,
		Status:    string(pi.Status),
		Succeeded: pi.Status == stripe.PaymentIntentStatusSucceeded,
	}
	if !res.Succeeded && pi.LastPaymentError != nil {
		res.Message = pi.LastPaymentError.Msg
	}
	return res, nil
}

func stripeError(err error) error {
	var serr *stripe.Error
	if errors.As(err, &serr) && serr.Msg != "" {
		return &DeclinedError{Provider: ProviderStripe, Message: serr.Msg, Err: err}
	}
	return fmt.Errorf("stripe request failed: %w", err)
}
