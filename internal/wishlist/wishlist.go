package wishlist

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/storage"
	"golang.org/x/sync/errgroup"
)

const (
	StorageKey = "wishlist"

	refreshConcurrency = 4
)

// ProductLookup is satisfied by catalog.Repository.
type ProductLookup interface {
	Get(ctx context.Context, id int64) (domain.Product, error)
}

// Store is the wishlist of one browsing session, persisted like the cart but independent of it.
type Store struct {
	store     storage.Store
	sessionID string
	lang      string
	log       *slog.Logger

	mu     sync.Mutex
	items  []domain.WishlistItem
	ready  bool
	status storage.LoadStatus
}

func New(store storage.Store, sessionID, lang string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		store:     store,
		sessionID: sessionID,
		lang:      domain.NormalizeLanguage(lang),
		log:       log.With(slog.String("component", "wishlist")),
	}
}

func (w *Store) Load(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.load(ctx)
}

func (w *Store) load(ctx context.Context) {
	items, status, err := storage.LoadJSON[[]domain.WishlistItem](ctx, w.store, w.sessionID, StorageKey)
	if err != nil {
		w.log.WarnContext(ctx, "load wishlist failed",
			slog.String("session_id", w.sessionID),
			slog.String("status", status.String()),
			slog.Any("error", err))
	}

	w.items = make([]domain.WishlistItem, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		w.items = append(w.items, it)
	}
	w.status = status
	w.ready = true
}

func (w *Store) Ready() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ready
}

func (w *Store) LoadStatus() storage.LoadStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Add is a no-op when the product is already listed.
func (w *Store) Add(ctx context.Context, p domain.Product) {
	w.mutate(ctx, func() bool {
		if w.indexOf(p.ID) >= 0 {
			return false
		}
		w.items = append(w.items, domain.NewWishlistItem(p, w.lang))
		return true
	})
}

func (w *Store) Remove(ctx context.Context, id int64) {
	w.mutate(ctx, func() bool {
		i := w.indexOf(id)
		if i < 0 {
			return false
		}
		w.items = append(w.items[:i], w.items[i+1:]...)
		return true
	})
}

// Toggle adds or removes p and reports whether it is listed afterwards.
func (w *Store) Toggle(ctx context.Context, p domain.Product) bool {
	var listed bool
	w.mutate(ctx, func() bool {
		if i := w.indexOf(p.ID); i >= 0 {
			w.items = append(w.items[:i], w.items[i+1:]...)
			listed = false
			return true
		}
		w.items = append(w.items, domain.NewWishlistItem(p, w.lang))
		listed = true
		return true
	})
	return listed
}

func (w *Store) Clear(ctx context.Context) {
	w.mutate(ctx, func() bool {
		w.items = w.items[:0]
		return true
	})
}

// RefreshStock updates the in-stock flag of every item from the catalog and persists once.
// Products the catalog no longer knows are marked out of stock. Lookup failures leave the
// item unchanged; the first one is returned.
func (w *Store) RefreshStock(ctx context.Context, lookup ProductLookup) error {
	items := w.Items()
	if len(items) == 0 {
		return nil
	}

	inStock := make([]bool, len(items))
	found := make([]bool, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)
	for i, it := range items {
		g.Go(func() error {
			p, err := lookup.Get(gctx, it.ID)
			if errors.Is(err, catalog.ErrProductNotFound) {
				found[i] = true
				return nil
			}
			if err != nil {
				return err
			}
			found[i], inStock[i] = true, p.InStock
			return nil
		})
	}
	waitErr := g.Wait()

	w.mutate(ctx, func() bool {
		changed := false
		for i, it := range items {
			if !found[i] {
				continue
			}
			if j := w.indexOf(it.ID); j >= 0 && w.items[j].InStock != inStock[i] {
				w.items[j].InStock = inStock[i]
				changed = true
			}
		}
		return changed
	})
	return waitErr
}

// mutate persists only when fn reports a change.
func (w *Store) mutate(ctx context.Context, fn func() bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.ready {
		w.load(ctx)
	}
	if !fn() {
		return
	}
	if err := storage.SaveJSON(ctx, w.store, w.sessionID, StorageKey, w.items, 0); err != nil {
		w.log.ErrorContext(ctx, "persist wishlist failed", slog.String("session_id", w.sessionID), slog.Any("error", err))
	}
}

func (w *Store) indexOf(id int64) int {
	for i, it := range w.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (w *Store) Contains(id int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.indexOf(id) >= 0
}

func (w *Store) Items() []domain.WishlistItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.WishlistItem, len(w.items))
	copy(out, w.items)
	return out
}

func (w *Store) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}
