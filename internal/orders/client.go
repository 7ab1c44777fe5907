package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/pkg/circuitbreaker"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrRejected = errors.New("orders api rejected the order")

type CreateOrderRequest struct {
	OrderNumber       string             `json:"order_number"`
	Customer          domain.Customer    `json:"customer"`
	ShippingAddress   domain.Address     `json:"shipping_address"`
	BillingAddress    domain.Address     `json:"billing_address"`
	Items             []OrderLine        `json:"items"`
	TotalAmount       decimal.Decimal    `json:"total_amount"`
	Currency          string             `json:"currency"`
	PaymentMethod     string             `json:"payment_method"`
	Status            domain.OrderStatus `json:"status"`
	ProviderReference string             `json:"provider_reference,omitempty"`
}

type OrderLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// NewCreateOrderRequest builds the API body. The billing address is the shipping address.
func NewCreateOrderRequest(o domain.CompletedOrder) CreateOrderRequest {
	lines := make([]OrderLine, 0, len(o.Draft.Items))
	for _, it := range o.Draft.Items {
		lines = append(lines, OrderLine{ProductID: it.ID, Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	return CreateOrderRequest{
		OrderNumber:       o.OrderNumber,
		Customer:          o.Draft.Customer,
		ShippingAddress:   o.Draft.Shipping,
		BillingAddress:    o.Draft.Shipping,
		Items:             lines,
		TotalAmount:       o.Draft.Pricing.Total,
		Currency:          o.Draft.Currency,
		PaymentMethod:     o.Draft.PaymentMethod.String(),
		Status:            o.Status,
		ProviderReference: o.ProviderReference,
	}
}

type Submitter interface {
	Submit(ctx context.Context, order domain.CompletedOrder) error
}

// Client posts completed orders to the external Order creation API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	timeout time.Duration
	breaker *circuitbreaker.Breaker[struct{}]
}

func NewClient(baseURL, token string, timeout time.Duration, log *slog.Logger) *Client {
	opts := circuitbreaker.DefaultOptions()
	opts.IsSuccessful = func(err error) bool { return errors.Is(err, ErrRejected) }

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		timeout: timeout,
		breaker: circuitbreaker.New[struct{}]("orders-api", opts, log),
	}
}

func (c *Client) Submit(ctx context.Context, order domain.CompletedOrder) error {
	body, err := json.Marshal(NewCreateOrderRequest(order))
	if err != nil {
		return fmt.Errorf("encode order failed: %w", err)
	}

	_, err = c.breaker.Execute(func() (struct{}, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
		if err != nil {
			return struct{}{}, fmt.Errorf("build request failed: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", order.OrderNumber)
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("orders api request failed: %w", err)
		}
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

		switch {
		case resp.StatusCode == http.StatusConflict:
			// already created under this order number
			return struct{}{}, nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return struct{}{}, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(msg)))
		case resp.StatusCode >= 300:
			return struct{}{}, fmt.Errorf("orders api returned status %d", resp.StatusCode)
		}
		return struct{}{}, nil
	})
	return err
}
