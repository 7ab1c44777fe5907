package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
)

type fakeIntents struct {
	newParams     *stripe.PaymentIntentParams
	confirmID     string
	confirmParams *stripe.PaymentIntentConfirmParams
	created       *stripe.PaymentIntent
	confirmed     *stripe.PaymentIntent
	err           error
}

func (f *fakeIntents) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.newParams = params
	if f.err != nil {
		return nil, f.err
	}
	return f.created, nil
}

func (f *fakeIntents) Confirm(id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error) {
	f.confirmID, f.confirmParams = id, params
	if f.err != nil {
		return nil, f.err
	}
	return f.confirmed, nil
}

func TestStripeAdapter_Prepare(t *testing.T) {
	intents := &fakeIntents{created: &stripe.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret"}}
	a := NewStripeAdapter(intents, "pk_test")

	prep, err := a.Prepare(context.Background(), testDraft("d1"))
	require.NoError(t, err)

	assert.Equal(t, int64(32000), *intents.newParams.Amount)
	assert.Equal(t, "usd", *intents.newParams.Currency)
	assert.Equal(t, "d1", intents.newParams.Metadata["draft_id"])
	assert.Equal(t, "draft-d1", *intents.newParams.IdempotencyKey)
	assert.Equal(t, Preparation{
		Provider:     ProviderStripe,
		DraftID:      "d1",
		Reference:    "pi_123",
		ClientSecret: "pi_123_secret",
		PublicKey:    "pk_test",
		Amount:       decimal.NewFromInt(320),
		Currency:     "USD",
	}, prep)
}

func TestStripeAdapter_ConfirmSucceeded(t *testing.T) {
	intents := &fakeIntents{confirmed: &stripe.PaymentIntent{ID: "pi_123", Status: stripe.PaymentIntentStatusSucceeded}}
	a := NewStripeAdapter(intents, "pk_test")

	res, err := a.Confirm(context.Background(), Preparation{Reference: "pi_123"}, Confirmation{PaymentMethodID: "pm_card"})
	require.NoError(t, err)
	assert.True(t, res.Succeeded)
	assert.Equal(t, "pi_123", intents.confirmID)
	assert.Equal(t, "pm_card", *intents.confirmParams.PaymentMethod)
}

func TestStripeAdapter_ConfirmNonSuccessStatus(t *testing.T) {
	intents := &fakeIntents{confirmed: &stripe.PaymentIntent{
		ID:               "pi_123",
		Status:           stripe.PaymentIntentStatusRequiresPaymentMethod,
		LastPaymentError: &stripe.Error{Msg: "Your card was declined."},
	}}
	a := NewStripeAdapter(intents, "pk_test")

	res, err := a.Confirm(context.Background(), Preparation{Reference: "pi_123"}, Confirmation{PaymentMethodID: "pm_card"})
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.Equal(t, "requires_payment_method", res.Status)
	assert.Equal(t, "Your card was declined.", res.Message)

	intents.confirmed = &stripe.PaymentIntent{ID: "pi_123", Status: stripe.PaymentIntentStatusRequiresAction}
	res, err = a.Confirm(context.Background(), Preparation{Reference: "pi_123"}, Confirmation{PaymentMethodID: "pm_card"})
	require.NoError(t, err)
	assert.False(t, res.Succeeded)
	assert.Empty(t, res.Message)
}

func TestStripeAdapter_ProviderError(t *testing.T) {
	intents := &fakeIntents{err: &stripe.Error{Msg: "Your card has insufficient funds."}}
	a := NewStripeAdapter(intents, "pk_test")

	_, err := a.Confirm(context.Background(), Preparation{Reference: "pi_123"}, Confirmation{PaymentMethodID: "pm_card"})
	var declined *DeclinedError
	require.ErrorAs(t, err, &declined)
	assert.Equal(t, "Your card has insufficient funds.", declined.Message)

	intents.err = errors.New("dial tcp: timeout")
	_, err = a.Prepare(context.Background(), testDraft("d1"))
	require.Error(t, err)
	assert.False(t, errors.As(err, &declined))
}

func TestStripeAdapter_MissingPaymentMethod(t *testing.T) {
	intents := &fakeIntents{}
	a := NewStripeAdapter(intents, "pk_test")

	_, err := a.Confirm(context.Background(), Preparation{Reference: "pi_123"}, Confirmation{})
	require.Error(t, err)
	assert.Empty(t, intents.confirmID)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(32000), MinorUnits(decimal.NewFromInt(320), "USD"))
	assert.Equal(t, int64(1999), MinorUnits(decimal.RequireFromString("19.99"), "eur"))
	assert.Equal(t, int64(320), MinorUnits(decimal.NewFromInt(320), "JPY"))
	assert.Equal(t, "320.00", FormatAmount(decimal.NewFromInt(320), "USD"))
	assert.Equal(t, "320", FormatAmount(decimal.NewFromInt(320), "jpy"))
}
