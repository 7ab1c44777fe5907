package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/confirmation"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/handoff"
	"github.com/fjod/go_storefront/internal/orders"
	"github.com/fjod/go_storefront/internal/payment"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/fjod/go_storefront/internal/storage"
	"github.com/fjod/go_storefront/internal/wishlist"
)

var (
	ErrNotInWishlist      = errors.New("product is not in the wishlist")
	ErrOutOfStock         = errors.New("product is out of stock")
	ErrHistoryUnavailable = errors.New("order history is not configured")
	ErrPaymentNotPrepared = errors.New("payment has not been prepared for this order")
)

// OrderHistory is satisfied by repository.Repository.
type OrderHistory interface {
	ListOrdersBySession(ctx context.Context, sessionID string) ([]domain.CompletedOrder, error)
	GetOrderByNumber(ctx context.Context, number string) (domain.CompletedOrder, error)
}

type Config struct {
	DraftTTL     time.Duration
	Pricing      checkout.PricingConfig
	SuccessDelay time.Duration
}

type Deps struct {
	Store     storage.Store
	Catalog   catalog.Source
	Payments  *payment.Registry
	Tracker   *payment.Tracker
	Finalizer *Finalizer
	History   OrderHistory
}

// Service owns the shared dependencies; Open builds the per-session view over them.
type Service struct {
	deps      Deps
	cfg       Config
	validator *checkout.FormValidator
	log       *slog.Logger
}

func New(deps Deps, cfg Config, log *slog.Logger) *Service {
	if cfg.DraftTTL <= 0 {
		cfg.DraftTTL = handoff.DefaultDraftTTL
	}
	if cfg.Pricing.Currency == "" {
		cfg.Pricing = checkout.DefaultPricing()
	}
	if deps.Finalizer == nil {
		deps.Finalizer = NewFinalizer(nil, nil, log)
	}
	return &Service{
		deps:      deps,
		cfg:       cfg,
		validator: checkout.NewFormValidator(),
		log:       log,
	}
}

func (s *Service) Catalog() catalog.Source {
	return s.deps.Catalog
}

// SuccessDelay is how long a confirmed payment waits before it is finalized.
func (s *Service) SuccessDelay() time.Duration {
	return s.cfg.SuccessDelay
}

func (s *Service) Providers() []payment.Provider {
	return s.deps.Payments.Providers()
}

// Session is one browsing session's state, loaded for the duration of a request.
type Session struct {
	ID       string
	Lang     string
	Cart     *cart.Manager
	Wishlist *wishlist.Store
	Handoff  *handoff.Handoff

	svc *Service
	log *slog.Logger
}

// Open loads the cart and the wishlist of sessionID.
func (s *Service) Open(ctx context.Context, sessionID, lang string) *Session {
	lang = domain.NormalizeLanguage(lang)
	log := s.log.With(slog.String("session_id", sessionID))
	sess := &Session{
		ID:       sessionID,
		Lang:     lang,
		Cart:     cart.NewManager(s.deps.Store, sessionID, lang, log),
		Wishlist: wishlist.New(s.deps.Store, sessionID, lang, log),
		Handoff:  handoff.New(s.deps.Store, sessionID, s.cfg.DraftTTL, log),
		svc:      s,
		log:      log,
	}
	sess.Cart.Load(ctx)
	sess.Wishlist.Load(ctx)
	return sess
}

// AddToCart looks the product up so the cart line carries current name, price and stock.
func (s *Session) AddToCart(ctx context.Context, productID int64, quantity int) error {
	p, err := s.svc.deps.Catalog.Get(ctx, productID)
	if err != nil {
		return err
	}
	if !p.InStock {
		return ErrOutOfStock
	}
	s.Cart.AddToCart(ctx, p, quantity)
	return nil
}

func (s *Session) AddToWishlist(ctx context.Context, productID int64) error {
	p, err := s.svc.deps.Catalog.Get(ctx, productID)
	if err != nil {
		return err
	}
	s.Wishlist.Add(ctx, p)
	return nil
}

// ToggleWishlist removes a listed product, or looks it up and adds it. It reports whether
// the product is listed afterwards.
func (s *Session) ToggleWishlist(ctx context.Context, productID int64) (bool, error) {
	p := domain.Product{ID: productID}
	if !s.Wishlist.Contains(productID) {
		var err error
		if p, err = s.svc.deps.Catalog.Get(ctx, productID); err != nil {
			return false, err
		}
	}
	return s.Wishlist.Toggle(ctx, p), nil
}

// MoveToCart adds one unit of a wishlisted product to the cart and removes it from the wishlist.
func (s *Session) MoveToCart(ctx context.Context, productID int64) error {
	if !s.Wishlist.Contains(productID) {
		return ErrNotInWishlist
	}
	if err := s.AddToCart(ctx, productID, 1); err != nil {
		return err
	}
	s.Wishlist.Remove(ctx, productID)
	return nil
}

func (s *Session) RefreshWishlist(ctx context.Context) error {
	return s.Wishlist.RefreshStock(ctx, s.svc.deps.Catalog)
}

func (s *Session) Checkout(ctx context.Context, form checkout.Form) (checkout.Result, error) {
	c := checkout.NewCollector(s.Handoff, s.log,
		checkout.WithPricing(s.svc.cfg.Pricing),
		checkout.WithValidator(s.svc.validator))
	return c.Submit(ctx, form, s.Cart)
}

func (s *Session) Draft(ctx context.Context) (domain.OrderDraft, error) {
	return s.Handoff.Get(ctx)
}

// PreparePayment starts, or resumes, the payment of the pending draft with provider.
func (s *Session) PreparePayment(ctx context.Context, provider payment.Provider) (payment.Preparation, error) {
	draft, err := s.Handoff.Get(ctx)
	if err != nil {
		return payment.Preparation{}, err
	}
	adapter, err := s.svc.deps.Payments.Get(provider)
	if err != nil {
		return payment.Preparation{}, err
	}

	ps := s.svc.deps.Tracker.Acquire(s.ID, draft, adapter, func() *payment.Session {
		return payment.NewSession(adapter, draft, payment.SessionOptions{
			SuccessDelay: s.svc.cfg.SuccessDelay,
			OnSuccess:    s.svc.deps.Finalizer.For(s.ID, s.Handoff),
			Logger:       s.log,
		})
	})
	return ps.Prepare(ctx)
}

// ConfirmPayment submits what the browser SDK collected for the pending draft.
func (s *Session) ConfirmPayment(ctx context.Context, provider payment.Provider, c payment.Confirmation) (payment.Result, error) {
	if _, err := s.svc.deps.Payments.Get(provider); err != nil {
		return payment.Result{}, err
	}

	draft, err := s.Handoff.Get(ctx)
	if errors.Is(err, handoff.ErrNoDraft) {
		// the draft is gone once a payment succeeded
		if ps, ok := s.svc.deps.Tracker.Latest(s.ID); ok && ps.State() == payment.StateSuccess {
			return payment.Result{}, payment.ErrAlreadyPaid
		}
	}
	if err != nil {
		return payment.Result{}, err
	}

	ps, ok := s.svc.deps.Tracker.Lookup(s.ID, draft.ID)
	if !ok || ps.Status().Provider != provider {
		return payment.Result{}, fmt.Errorf("%w: %w", ErrPaymentNotPrepared, payment.ErrSDKNotLoaded)
	}
	return ps.Submit(ctx, c)
}

func (s *Session) PaymentStatus(provider payment.Provider) (payment.Status, bool) {
	ps, ok := s.svc.deps.Tracker.Latest(s.ID)
	if !ok {
		return payment.Status{}, false
	}
	st := ps.Status()
	if st.Provider != provider {
		return payment.Status{}, false
	}
	return st, true
}

func (s *Session) Confirmation(ctx context.Context, paymentFlag string) (confirmation.View, error) {
	return confirmation.NewRenderer(s.Handoff, s.log).Render(ctx, paymentFlag)
}

func (s *Session) Orders(ctx context.Context) ([]domain.CompletedOrder, error) {
	if s.svc.deps.History == nil {
		return nil, ErrHistoryUnavailable
	}
	return s.svc.deps.History.ListOrdersBySession(ctx, s.ID)
}

// Order looks up one of this session's orders. Orders of other sessions are reported as missing.
func (s *Session) Order(ctx context.Context, number string) (domain.CompletedOrder, error) {
	if s.svc.deps.History == nil {
		return domain.CompletedOrder{}, ErrHistoryUnavailable
	}
	if !orders.ValidNumber(number) {
		return domain.CompletedOrder{}, repository.ErrOrderNotFound
	}
	o, err := s.svc.deps.History.GetOrderByNumber(ctx, number)
	if err != nil {
		return domain.CompletedOrder{}, err
	}
	if o.SessionID != s.ID {
		return domain.CompletedOrder{}, repository.ErrOrderNotFound
	}
	return o, nil
}
