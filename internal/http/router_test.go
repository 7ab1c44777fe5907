package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/payment"
	"github.com/fjod/go_storefront/internal/storage"
	"github.com/fjod/go_storefront/internal/storefront"
	"github.com/fjod/go_storefront/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	products []domain.Product
}

func (s *stubCatalog) Get(_ context.Context, id int64) (domain.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, catalog.ErrProductNotFound
}

func (s *stubCatalog) List(_ context.Context, q catalog.Query) (catalog.Page, error) {
	return catalog.Apply(s.products, q), nil
}

func (s *stubCatalog) Categories(_ context.Context, lang string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, p := range s.products {
		c := p.Category.Get(lang)
		if c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}

type stubAdapter struct {
	provider payment.Provider
	mu       sync.Mutex
	declined bool
}

func (a *stubAdapter) Provider() payment.Provider { return a.provider }

func (a *stubAdapter) Prepare(_ context.Context, d domain.OrderDraft) (payment.Preparation, error) {
	return payment.Preparation{Provider: a.provider, DraftID: d.ID, Reference: "pi_" + d.ID, ClientSecret: "secret", PublicKey: "pk_test", Amount: d.Pricing.Total, Currency: d.Currency}, nil
}

func (a *stubAdapter) Confirm(_ context.Context, p payment.Preparation, _ payment.Confirmation) (payment.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.declined {
		return payment.Result{Provider: a.provider, Reference: p.Reference, Status: "requires_payment_method", Message: "Your card was declined."}, nil
	}
	return payment.Result{Provider: a.provider, Reference: p.Reference, Status: "succeeded", Succeeded: true}, nil
}

func testProducts() []domain.Product {
	orig := decimal.NewFromInt(600)
	return []domain.Product{
		{ID: 1, Name: domain.LocalizedText{"en": "Widget", "de": "Dings"}, Category: domain.LocalizedText{"en": "Toys", "de": "Spielzeug"}, Price: decimal.NewFromInt(100), InStock: true, Images: []string{"/w.jpg"}},
		{ID: 2, Name: domain.LocalizedText{"en": "Linen Shirt"}, Category: domain.LocalizedText{"en": "Clothing"}, Price: decimal.NewFromInt(450), OriginalPrice: &orig, Tag: domain.TagSale, InStock: true},
		{ID: 4, Name: domain.LocalizedText{"en": "Desk Lamp"}, Category: domain.LocalizedText{"en": "Home"}, Price: decimal.NewFromInt(890), InStock: false},
	}
}

type testServer struct {
	router  http.Handler
	stripe  *stubAdapter
	session string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, storefront.Config{}, RouterOptions{})
}

func newTestServerWith(t *testing.T, cfg storefront.Config, opts RouterOptions) *testServer {
	t.Helper()
	store := storage.NewMemoryStore()
	tracker := payment.NewTracker(0)
	t.Cleanup(func() {
		tracker.Close()
		_ = store.Close()
	})

	stripe := &stubAdapter{provider: payment.ProviderStripe}
	svc := storefront.New(storefront.Deps{
		Store:    store,
		Catalog:  &stubCatalog{products: testProducts()},
		Payments: payment.NewRegistry(stripe, &stubAdapter{provider: payment.ProviderPayPal}),
		Tracker:  tracker,
	}, cfg, logger.Discard())

	return &testServer{
		router:  NewRouter(svc, opts),
		stripe:  stripe,
		session: uuid.NewString(),
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SessionHeader, s.session)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func checkoutForm() checkout.Form {
	return checkout.Form{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "+44 20 7946 0958",
		Address: "1 Main St", City: "London", PostalCode: "N1", Country: "GB",
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rr)["status"])
}

func TestHealth_Degraded(t *testing.T) {
	svc := storefront.New(storefront.Deps{Catalog: &stubCatalog{}, Payments: payment.NewRegistry()}, storefront.Config{}, logger.Discard())
	router := NewRouter(svc, RouterOptions{Checks: map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	body := decode[map[string]string](t, rr)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "connection refused", body["redis"])
}

func TestListProducts_FiltersAndLocalizes(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/api/v1/products?in_stock=true&sort=price_desc&lang=de", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[ProductsResponse](t, rr)
	require.Len(t, resp.Products, 2)
	assert.Equal(t, int64(2), resp.Products[0].ID)
	assert.True(t, resp.Products[0].Discounted)
	assert.Equal(t, "Dings", resp.Products[1].Name)
	assert.Equal(t, 2, resp.Pagination.Total)
}

func TestListProducts_InvalidQuery(t *testing.T) {
	s := newTestServer(t)

	for _, q := range []string{"sort=cheapest", "tag=vintage", "min_price=abc", "min_price=500&max_price=100", "limit=x"} {
		rr := s.do(t, http.MethodGet, "/api/v1/products?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
		assert.Equal(t, "invalid_query", decode[ErrorResponse](t, rr).Code, q)
	}
}

func TestGetProduct(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/api/v1/products/1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Widget", decode[ProductResponse](t, rr).Name)

	rr = s.do(t, http.MethodGet, "/api/v1/products/99", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/v1/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCategories_AcceptLanguage(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, decode[map[string][]string](t, rr)["categories"], "Spielzeug")
}

func TestSession_IssuedWhenMissing(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	id := rr.Header().Get(SessionHeader)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)

	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, id, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSession_CookieIsReused(t *testing.T) {
	s := newTestServer(t)
	id := uuid.NewString()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"product_id":1,"quantity":2}`))
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: id})
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, id, rr.Header().Get(SessionHeader))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: id})
	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	assert.Equal(t, 2, decode[CartResponse](t, rr).TotalItems)
}

func TestCart_Lifecycle(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 1, Quantity: 2})
	require.Equal(t, http.StatusCreated, rr.Code)
	cart := decode[CartResponse](t, rr)
	assert.Equal(t, 2, cart.TotalItems)
	assert.True(t, decimal.NewFromInt(200).Equal(cart.TotalPrice))

	rr = s.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 1, Quantity: 1})
	require.Equal(t, http.StatusCreated, rr.Code)
	cart = decode[CartResponse](t, rr)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	rr = s.do(t, http.MethodPut, "/api/v1/cart/items/1", UpdateQuantityRequestDTO{Quantity: 5})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, decode[CartResponse](t, rr).TotalItems)

	rr = s.do(t, http.MethodPut, "/api/v1/cart/items/1", UpdateQuantityRequestDTO{Quantity: 0})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[CartResponse](t, rr).Items)

	s.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 2, Quantity: 1})
	rr = s.do(t, http.MethodDelete, "/api/v1/cart/items/2", nil)
	assert.Empty(t, decode[CartResponse](t, rr).Items)

	s.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 2, Quantity: 1})
	rr = s.do(t, http.MethodDelete, "/api/v1/cart", nil)
	assert.Equal(t, 0, decode[CartResponse](t, rr).TotalItems)
}

func TestCart_AddValidation(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 0, Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 1, Quantity: 100})
	assert.Equal(t, "invalid_quantity", decode[ErrorResponse](t, rr).Code)

	rr = s.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 4, Quantity: 1})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "out_of_stock", decode[ErrorResponse](t, rr).Code)

	rr = s.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 99, Quantity: 1})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWishlist_MoveToCart(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/api/v1/wishlist/items", WishlistRequestDTO{ProductID: 1})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, 1, decode[WishlistResponse](t, rr).Count)

	rr = s.do(t, http.MethodPost, "/api/v1/wishlist/items/1/move-to-cart", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode[struct {
		Wishlist WishlistResponse `json:"wishlist"`
		Cart     CartResponse     `json:"cart"`
	}](t, rr)
	assert.Equal(t, 0, body.Wishlist.Count)
	assert.Equal(t, 1, body.Cart.TotalItems)

	rr = s.do(t, http.MethodPost, "/api/v1/wishlist/items/1/move-to-cart", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_in_wishlist", decode[ErrorResponse](t, rr).Code)
}

func TestWishlist_RemoveAndClear(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/wishlist/items", WishlistRequestDTO{ProductID: 1})
	s.do(t, http.MethodPost, "/api/v1/wishlist/items", WishlistRequestDTO{ProductID: 2})

	rr := s.do(t, http.MethodDelete, "/api/v1/wishlist/items/1", nil)
	assert.Equal(t, 1, decode[WishlistResponse](t, rr).Count)

	rr = s.do(t, http.MethodDelete, "/api/v1/wishlist", nil)
	assert.Equal(t, 0, decode[WishlistResponse](t, rr).Count)
}

func TestWishlist_Toggle(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodPost, "/api/v1/wishlist/items/1/toggle", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[ToggleResponse](t, rr)
	assert.True(t, resp.Listed)
	assert.Equal(t, 1, resp.Wishlist.Count)

	rr = s.do(t, http.MethodPost, "/api/v1/wishlist/items/1/toggle", nil)
	resp = decode[ToggleResponse](t, rr)
	assert.False(t, resp.Listed)
	assert.Equal(t, 0, resp.Wishlist.Count)

	rr = s.do(t, http.MethodPost, "/api/v1/wishlist/items/99/toggle", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCheckout_UnsupportedPaymentMethod(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 1, Quantity: 2})

	form := checkoutForm()
	form.PaymentMethod = "bitcoin<script>"
	rr := s.do(t, http.MethodPost, "/api/v1/checkout", form)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decode[ErrorResponse](t, rr)
	assert.Equal(t, "validation_failed", resp.Code)
	assert.Equal(t, map[string]string{"payment_method": "payment_method is not supported"}, resp.Fields)

	rr = s.do(t, http.MethodGet, "/api/v1/checkout/draft", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCheckout_ValidationFields(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 1, Quantity: 2})

	form := checkoutForm()
	form.Email = "not-an-email"
	rr := s.do(t, http.MethodPost, "/api/v1/checkout", form)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decode[ErrorResponse](t, rr)
	assert.Equal(t, "validation_failed", resp.Code)
	assert.Contains(t, resp.Fields, "email")

	rr = s.do(t, http.MethodGet, "/api/v1/checkout/draft", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "no_order_data", decode[ErrorResponse](t, rr).Code)
}

func TestCheckout_EmptyCart(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodPost, "/api/v1/checkout", checkoutForm())
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "empty_cart", decode[ErrorResponse](t, rr).Code)
}

func TestPayment_PrepareWithoutDraft(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodGet, "/api/v1/payment/stripe", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "no_order_data", decode[ErrorResponse](t, rr).Code)
}

func TestPayment_UnknownProvider(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 1, Quantity: 2})
	s.do(t, http.MethodPost, "/api/v1/checkout", checkoutForm())

	rr := s.do(t, http.MethodGet, "/api/v1/payment/klarna", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "unknown_provider", decode[ErrorResponse](t, rr).Code)
}

func TestPayment_ConfirmBeforePrepare(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 1, Quantity: 2})
	s.do(t, http.MethodPost, "/api/v1/checkout", checkoutForm())

	rr := s.do(t, http.MethodPost, "/api/v1/payment/stripe/confirm", payment.Confirmation{PaymentMethodID: "pm_1"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	resp := decode[ErrorResponse](t, rr)
	assert.Equal(t, "sdk_not_loaded", resp.Code)
	assert.Equal(t, "payment SDK not loaded", resp.Error)
}

func TestPayment_Declined(t *testing.T) {
	s := newTestServer(t)
	s.stripe.declined = true
	s.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 1, Quantity: 2})
	s.do(t, http.MethodPost, "/api/v1/checkout", checkoutForm())
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/payment/stripe", nil).Code)

	rr := s.do(t, http.MethodPost, "/api/v1/payment/stripe/confirm", payment.Confirmation{PaymentMethodID: "pm_1"})
	assert.Equal(t, http.StatusPaymentRequired, rr.Code)
	assert.Equal(t, "Your card was declined.", decode[ErrorResponse](t, rr).Error)

	rr = s.do(t, http.MethodGet, "/api/v1/payment/stripe/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, payment.StateError, decode[payment.Status](t, rr).State)

	rr = s.do(t, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, 2, decode[CartResponse](t, rr).TotalItems)
}

func TestCheckoutToConfirmation_WidgetExample(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 1, Quantity: 2})

	rr := s.do(t, http.MethodPost, "/api/v1/checkout", checkoutForm())
	require.Equal(t, http.StatusCreated, rr.Code)
	res := decode[checkout.Result](t, rr)
	assert.Equal(t, checkout.RouteStripe, res.Route)
	assert.True(t, decimal.NewFromInt(200).Equal(res.Draft.Pricing.Subtotal))
	assert.True(t, decimal.NewFromInt(100).Equal(res.Draft.Pricing.Shipping))
	assert.True(t, decimal.NewFromInt(20).Equal(res.Draft.Pricing.Tax))
	assert.True(t, decimal.NewFromInt(320).Equal(res.Draft.Pricing.Total))

	rr = s.do(t, http.MethodGet, "/api/v1/payment/stripe", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	prep := decode[payment.Preparation](t, rr)
	assert.Equal(t, res.Draft.ID, prep.DraftID)
	assert.Equal(t, "pk_test", prep.PublicKey)

	rr = s.do(t, http.MethodPost, "/api/v1/payment/stripe/confirm", payment.Confirmation{PaymentMethodID: "pm_1"})
	require.Equal(t, http.StatusOK, rr.Code)
	confirm := decode[ConfirmResponse](t, rr)
	assert.True(t, confirm.Result.Succeeded)
	assert.Equal(t, "/order-confirmation?payment=success", confirm.Redirect)

	rr = s.do(t, http.MethodPost, "/api/v1/payment/stripe/confirm", payment.Confirmation{PaymentMethodID: "pm_1"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "already_paid", decode[ErrorResponse](t, rr).Code)

	rr = s.do(t, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, 0, decode[CartResponse](t, rr).TotalItems)

	rr = s.do(t, http.MethodGet, "/api/v1/confirmation?payment=success", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	view := decode[ConfirmationResponse](t, rr)
	assert.Equal(t, "paid", string(view.Status))
	assert.Equal(t, "completed_order", string(view.Source))
	assert.Contains(t, view.Text, view.OrderNumber)

	// the completed order is shown once
	rr = s.do(t, http.MethodGet, "/api/v1/confirmation?payment=success", nil)
	view = decode[ConfirmationResponse](t, rr)
	assert.Equal(t, "unknown", string(view.Status))
	assert.True(t, view.FlagMismatch)
}

// The success delay is longer than the request timeout; confirm must still answer 200.
func TestPayment_ConfirmOutlastsRequestTimeout(t *testing.T) {
	s := newTestServerWith(t,
		storefront.Config{SuccessDelay: 300 * time.Millisecond},
		RouterOptions{RequestTimeout: 100 * time.Millisecond})
	s.do(t, http.MethodPost, "/api/v1/cart/items", AddItemRequestDTO{ProductID: 1, Quantity: 2})
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/checkout", checkoutForm()).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/payment/stripe", nil).Code)

	rr := s.do(t, http.MethodPost, "/api/v1/payment/stripe/confirm", payment.Confirmation{PaymentMethodID: "pm_1"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, decode[ConfirmResponse](t, rr).Result.Succeeded)
}

func TestOrders_WithoutHistory(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodGet, "/api/v1/orders", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/v1/orders/ORD-20260301-AAAAAAAA", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestLanguage(t *testing.T) {
	cases := []struct {
		query, header, want string
	}{
		{"?lang=de", "fr", "de"},
		{"", "de-AT,de;q=0.9", "de"},
		{"", "", domain.DefaultLanguage},
		{"?lang=EN-gb", "", "en"},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/x"+tc.query, nil)
		if tc.header != "" {
			r.Header.Set("Accept-Language", tc.header)
		}
		assert.Equal(t, tc.want, language(r), tc.query+"|"+tc.header)
	}
}
