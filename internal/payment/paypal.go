package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
)

// PayPalOrders is the slice of the PayPal Orders v2 API the adapter uses.
type PayPalOrders interface {
	GetAccessToken(ctx context.Context) (*paypal.TokenResponse, error)
	CreateOrder(ctx context.Context, intent string, purchaseUnits []paypal.PurchaseUnitRequest, payer *paypal.CreateOrderPayer, appContext *paypal.ApplicationContext) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string, captureOrderRequest paypal.CaptureOrderRequest) (*paypal.CaptureOrderResponse, error)
}

const paypalCompleted = "COMPLETED"

type PayPalAdapter struct {
	orders   PayPalOrders
	clientID string

	tokenMu sync.Mutex
	token   bool
}

func NewPayPalAdapter(orders PayPalOrders, clientID string) *PayPalAdapter {
	return &PayPalAdapter{orders: orders, clientID: clientID}
}

// NewPayPalClient builds the REST client; sandbox selects the sandbox API base.
func NewPayPalClient(clientID, secret string, sandbox bool) (*paypal.Client, error) {
	base := paypal.APIBaseLive
	if sandbox {
		base = paypal.APIBaseSandBox
	}
	c, err := paypal.NewClient(clientID, secret, base)
	if err != nil {
		return nil, fmt.Errorf("create paypal client: %w", err)
	}
	return c, nil
}

func (a *PayPalAdapter) Provider() Provider {
	return ProviderPayPal
}

// authenticate fetches the first access token; the client refreshes it afterwards.
func (a *PayPalAdapter) authenticate(ctx context.Context) error {
	a.tokenMu.Lock()
	defer a.tokenMu.Unlock()
	if a.token {
		return nil
	}
	if _, err := a.orders.GetAccessToken(ctx); err != nil {
		return paypalError(err)
	}
	a.token = true
	return nil
}

func (a *PayPalAdapter) Prepare(ctx context.Context, draft domain.OrderDraft) (Preparation, error) {
	if err := a.authenticate(ctx); err != nil {
		return Preparation{}, err
	}

	money := func(v decimal.Decimal) *paypal.Money {
		return &paypal.Money{Currency: draft.Currency, Value: FormatAmount(v, draft.Currency)}
	}
	p := draft.Pricing
	unit := paypal.PurchaseUnitRequest{
		ReferenceID: draft.ID,
		CustomID:    draft.ID,
		Amount: &paypal.PurchaseUnitAmount{
			Currency: draft.Currency,
			Value:    FormatAmount(p.Total, draft.Currency),
			Breakdown: &paypal.PurchaseUnitAmountBreakdown{
				ItemTotal: money(p.Subtotal),
				Shipping:  money(p.Shipping),
				TaxTotal:  money(p.Tax),
			},
		},
	}

	order, err := a.orders.CreateOrder(ctx, paypal.OrderIntentCapture, []paypal.PurchaseUnitRequest{unit}, nil, nil)
	if err != nil {
		return Preparation{}, paypalError(err)
	}

	return Preparation{
		Provider:  ProviderPayPal,
		DraftID:   draft.ID,
		Reference: order.ID,
		PublicKey: a.clientID,
		Amount:    p.Total,
		Currency:  draft.Currency,
	}, nil
}

// Confirm captures the approved order. Only a COMPLETED capture counts as success.
func (a *PayPalAdapter) Confirm(ctx context.Context, prep Preparation, c Confirmation) (Result, error) {
	if c.OrderID != "" && c.OrderID != prep.Reference {
		return Result{Provider: ProviderPayPal, Reference: prep.Reference}, ErrReferenceMismatch
	}

	resp, err := a.orders.CaptureOrder(ctx, prep.Reference, paypal.CaptureOrderRequest{})
	if err != nil {
		return Result{Provider: ProviderPayPal, Reference: prep.Reference}, paypalError(err)
	}

	res := Result{
		Provider:  ProviderPayPal,
		Reference: resp.ID,
		Status:    resp.Status,
		Succeeded: resp.Status == paypalCompleted,
	}
	if res.Reference == "" {
		res.Reference = prep.Reference
	}
	return res, nil
}

func paypalError(err error) error {
	var perr *paypal.ErrorResponse
	if errors.As(err, &perr) {
		msg := perr.Message
		if len(perr.Details) > 0 && perr.Details[0].Description != "" {
			msg = perr.Details[0].Description
		}
		if msg != "" {
			return &DeclinedError{Provider: ProviderPayPal, Message: msg, Err: err}
		}
	}
	return fmt.Errorf("paypal request failed: %w", err)
}
