package payment

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type fakeAdapter struct {
	provider  Provider
	prepErr   error
	results   []Result
	errs      []error
	block     chan struct{}
	mu        sync.Mutex
	prepares  int
	confirms  int
	lastInput Confirmation
}

func (f *fakeAdapter) Provider() Provider {
	if f.provider == "" {
		return ProviderStripe
	}
	return f.provider
}

func (f *fakeAdapter) Prepare(ctx context.Context, d domain.OrderDraft) (Preparation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prepares++
	if f.prepErr != nil {
		return Preparation{}, f.prepErr
	}
	return Preparation{Provider: f.Provider(), DraftID: d.ID, Reference: "ref-" + d.ID, Amount: d.Pricing.Total, Currency: d.Currency}, nil
}

func (f *fakeAdapter) Confirm(ctx context.Context, p Preparation, c Confirmation) (Result, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.confirms
	f.confirms++
	f.lastInput = c
	var res Result
	var err error
	if i < len(f.results) {
		res = f.results[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return res, err
}

func succeeded() Result {
	return Result{Provider: ProviderStripe, Reference: "pi_1", Status: "succeeded", Succeeded: true}
}

func testDraft(id string) domain.OrderDraft {
	return domain.OrderDraft{
		ID:       id,
		Customer: domain.Customer{FirstName: "Ada", Email: "ada@example.com"},
		Items:    []domain.DraftItem{{ID: 1, Name: "Widget", Price: decimal.NewFromInt(100), Quantity: 2, Total: decimal.NewFromInt(200)}},
		Pricing: domain.Pricing{
			Subtotal: decimal.NewFromInt(200),
			Shipping: decimal.NewFromInt(100),
			Tax:      decimal.NewFromInt(20),
			Total:    decimal.NewFromInt(320),
		},
		Currency:      "USD",
		PaymentMethod: domain.PaymentMethodCreditCard,
		Status:        domain.OrderStatusPending,
		CreatedAt:     time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}
