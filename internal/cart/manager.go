package cart

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/storage"
	"github.com/shopspring/decimal"
)

// StorageKey is the durable session slot holding the cart.
const StorageKey = "cart"

// Manager owns the cart of one browsing session. Storage failures are logged, never returned.
type Manager struct {
	store     storage.Store
	sessionID string
	lang      string
	log       *slog.Logger

	mu     sync.Mutex
	items  []domain.CartItem
	ready  bool
	status storage.LoadStatus
}

func NewManager(store storage.Store, sessionID, lang string, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		store:     store,
		sessionID: sessionID,
		lang:      domain.NormalizeLanguage(lang),
		log:       log.With(slog.String("component", "cart")),
	}
}

// Load hydrates the cart from the session store. Missing or unreadable payloads give an empty cart.
func (m *Manager) Load(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.load(ctx)
}

func (m *Manager) load(ctx context.Context) {
	items, status, err := storage.LoadJSON[[]domain.CartItem](ctx, m.store, m.sessionID, StorageKey)
	switch status {
	case storage.StatusCorrupt:
		m.log.WarnContext(ctx, "discarding unreadable cart", slog.String("session_id", m.sessionID), slog.Any("error", err))
	case storage.StatusFailed:
		m.log.ErrorContext(ctx, "load cart failed", slog.String("session_id", m.sessionID), slog.Any("error", err))
	}

	m.items = sanitize(items)
	m.status = status
	m.ready = true
}

// sanitize drops non-positive quantities and merges duplicate product ids.
func sanitize(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(items))
	index := make(map[int64]int, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		if i, ok := index[it.ID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.ID] = len(out)
		out = append(out, it)
	}
	return out
}

func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

func (m *Manager) LoadStatus() storage.LoadStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// AddToCart merges quantity into the existing line for p or appends a new line. Quantity <= 0 is ignored.
func (m *Manager) AddToCart(ctx context.Context, p domain.Product, quantity int) {
	if quantity <= 0 {
		return
	}
	m.mutate(ctx, func() {
		if i := m.indexOf(p.ID); i >= 0 {
			m.items[i].Quantity += quantity
			return
		}
		m.items = append(m.items, domain.NewCartItem(p, m.lang, quantity))
	})
}

// UpdateQuantity sets the absolute quantity of a line; quantity <= 0 removes it.
func (m *Manager) UpdateQuantity(ctx context.Context, id int64, quantity int) {
	if quantity <= 0 {
		m.RemoveFromCart(ctx, id)
		return
	}
	m.mutate(ctx, func() {
		if i := m.indexOf(id); i >= 0 {
			m.items[i].Quantity = quantity
		}
	})
}

func (m *Manager) RemoveFromCart(ctx context.Context, id int64) {
	m.mutate(ctx, func() {
		if i := m.indexOf(id); i >= 0 {
			m.items = append(m.items[:i], m.items[i+1:]...)
		}
	})
}

func (m *Manager) ClearCart(ctx context.Context) {
	m.mutate(ctx, func() {
		m.items = m.items[:0]
	})
}

// mutate applies fn to the hydrated cart and persists the whole collection.
func (m *Manager) mutate(ctx context.Context, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		m.load(ctx)
	}
	fn()

	if err := storage.SaveJSON(ctx, m.store, m.sessionID, StorageKey, m.items, 0); err != nil {
		m.log.ErrorContext(ctx, "persist cart failed", slog.String("session_id", m.sessionID), slog.Any("error", err))
	}
}

func (m *Manager) indexOf(id int64) int {
	for i, it := range m.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) Items() []domain.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CartItem, len(m.items))
	copy(out, m.items)
	return out
}

func (m *Manager) IsInCart(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexOf(id) >= 0
}

func (m *Manager) TotalItems() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, it := range m.items {
		n += it.Quantity
	}
	return n
}

func (m *Manager) TotalPrice() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Total(m.items)
}

// Total is the sum of line subtotals.
func Total(items []domain.CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}
