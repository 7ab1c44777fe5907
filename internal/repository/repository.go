package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

const EventOrderPaid = "OrderPaid"

type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c *Credentials) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, sslMode)
}

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

// OrderPaidPayload is the outbox payload published for every recorded order.
type OrderPaidPayload struct {
	OrderNumber       string               `json:"order_number"`
	DraftID           string               `json:"draft_id"`
	SessionID         string               `json:"session_id"`
	Customer          domain.Customer      `json:"customer"`
	Shipping          domain.Address       `json:"shipping"`
	Items             []domain.DraftItem   `json:"items"`
	Pricing           domain.Pricing       `json:"pricing"`
	Currency          string               `json:"currency"`
	PaymentMethod     domain.PaymentMethod `json:"payment_method"`
	Provider          string               `json:"provider"`
	ProviderReference string               `json:"provider_reference"`
	PaidAt            time.Time            `json:"paid_at"`
}

func NewOrderPaidPayload(o domain.CompletedOrder) OrderPaidPayload {
	return OrderPaidPayload{
		OrderNumber:       o.OrderNumber,
		DraftID:           o.Draft.ID,
		SessionID:         o.SessionID,
		Customer:          o.Draft.Customer,
		Shipping:          o.Draft.Shipping,
		Items:             o.Draft.Items,
		Pricing:           o.Draft.Pricing,
		Currency:          o.Draft.Currency,
		PaymentMethod:     o.Draft.PaymentMethod,
		Provider:          o.Provider,
		ProviderReference: o.ProviderReference,
		PaidAt:            o.PaidAt,
	}
}

// OrderLedger records paid orders and serves order history.
type OrderLedger interface {
	// RecordOrder stores the order and its outbox event atomically. Recording the same draft
	// twice is a no-op reported as created == false.
	RecordOrder(ctx context.Context, order domain.CompletedOrder) (created bool, err error)
	GetOrderByNumber(ctx context.Context, number string) (domain.CompletedOrder, error)
	ListOrdersBySession(ctx context.Context, sessionID string) ([]domain.CompletedOrder, error)
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	PurgeProcessedEvents(ctx context.Context, before time.Time) (int64, error)
}
