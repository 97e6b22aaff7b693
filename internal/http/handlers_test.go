package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/auth"
	"storefront/internal/events"
	"storefront/internal/idempotency"
	"storefront/internal/repository"
	"storefront/internal/service"
)

func init() { gin.SetMode(gin.TestMode) }

type testEnv struct {
	srv    *Server
	events *events.Recorder
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	tx := repository.NewMemoryTx(store)
	productsRepo := repository.NewMemoryProducts(store)
	ordersRepo := repository.NewMemoryOrders(store)
	cartsRepo := repository.NewMemoryCarts(store)
	usersRepo := repository.NewMemoryUsers(store)
	rec := &events.Recorder{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewTokens("test-secret", "storefront", time.Hour)

	srv := NewServer(Deps{
		Products:    service.NewProductService(productsRepo, tx),
		Categories:  service.NewCategoryService(repository.NewMemoryCategories(store), tx),
		Carts:       service.NewCartService(cartsRepo, productsRepo, tx),
		Orders:      service.NewOrderService(productsRepo, ordersRepo, cartsRepo, tx, service.WithPublisher(rec, "test"), service.WithOrderLogger(log)),
		Reviews:     service.NewReviewService(repository.NewMemoryReviews(store), productsRepo, ordersRepo, tx),
		Users:       service.NewUserService(usersRepo, tx, auth.NewBcryptHasher(bcrypt.MinCost)),
		Tokens:      tokens,
		Verifier:    auth.NewTokenVerifier(tokens, usersRepo),
		Idempotency: idempotency.NewMemoryStore(time.Hour),
		Logger:      log,
		ServiceName: "storefront",
	})
	return &testEnv{srv: srv, events: rec}
}

func doJSON(t *testing.T, s *Server, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// signup registers a user and returns a bearer header pair for it.
func (e *testEnv) signup(t *testing.T, email string) []string {
	t.Helper()
	w := doJSON(t, e.srv, http.MethodPost, "/api/v1/auth/register", map[string]any{
		"email": email, "full_name": "Test User", "password": "password1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = doJSON(t, e.srv, http.MethodPost, "/api/v1/auth/login", map[string]any{"email": email, "password": "password1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tok := decode[tokenResp](t, w)
	return []string{"Authorization", "Bearer " + tok.AccessToken}
}

func (e *testEnv) product(t *testing.T, bearer []string, name string, price any, stock int) int64 {
	t.Helper()
	w := doJSON(t, e.srv, http.MethodPost, "/api/v1/products", map[string]any{
		"name": name, "description": "d", "price": price, "stock": stock, "category": "General",
	}, bearer...)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return int64(decode[map[string]any](t, w)["id"].(float64))
}

func TestProductFlow(t *testing.T) {
	e := setupServer(t)
	bearer := e.signup(t, "admin@example.com")
	s := e.srv

	id := e.product(t, bearer, "Aspirin", 10, 5)

	w := doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodPut, fmt.Sprintf("/api/v1/products/%d", id), map[string]any{"price": "12.5"}, bearer...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p := decode[map[string]any](t, w)
	assert.Equal(t, "Aspirin", p["name"])
	assert.Equal(t, float64(5), p["stock"])

	w = doJSON(t, s, http.MethodPatch, fmt.Sprintf("/api/v1/products/%d/stock", id), map[string]any{"delta": -6}, bearer...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/v1/products?category=general", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", id), nil, bearer...)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckoutFlow(t *testing.T) {
	e := setupServer(t)
	bearer := e.signup(t, "buyer@example.com")
	s := e.srv
	widget := e.product(t, bearer, "Widget", "10.00", 5)

	w := doJSON(t, s, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": widget, "quantity": 2}, bearer...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doJSON(t, s, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": widget, "quantity": 1}, bearer...)
	require.Equal(t, http.StatusOK, w.Code)
	cart := decode[map[string]any](t, w)
	assert.Len(t, cart["items"], 1)

	w = doJSON(t, s, http.MethodPost, "/api/v1/orders", nil, bearer...)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode[map[string]any](t, w)
	assert.Equal(t, "pending", order["status"])
	orderPath := fmt.Sprintf("/api/v1/orders/%d", int64(order["id"].(float64)))

	w = doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", widget), nil)
	assert.Equal(t, float64(2), decode[map[string]any](t, w)["stock"])

	w = doJSON(t, s, http.MethodGet, "/api/v1/cart", nil, bearer...)
	assert.Empty(t, decode[map[string]any](t, w)["items"])

	// empty cart now
	w = doJSON(t, s, http.MethodPost, "/api/v1/orders", nil, bearer...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodGet, orderPath+"/xml", nil, bearer...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, w.Body.String(), "<order><id>1</id>")

	w = doJSON(t, s, http.MethodPut, orderPath+"/status", map[string]any{"status": "confirmed"}, bearer...)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, s, http.MethodPut, orderPath+"/status", map[string]any{"status": "cancelled"}, bearer...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodPost, orderPath+"/cancel", nil, bearer...)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, s, http.MethodPost, orderPath+"/cancel", nil, bearer...)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", widget), nil)
	assert.Equal(t, float64(5), decode[map[string]any](t, w)["stock"])

	assert.Equal(t, []events.Type{events.OrderCreated, events.OrderStatusChanged, events.OrderCancelled}, e.events.Types())
}

func TestCreateOrder_IdempotencyKey(t *testing.T) {
	e := setupServer(t)
	bearer := e.signup(t, "retry@example.com")
	s := e.srv
	p := e.product(t, bearer, "Widget", 1, 5)

	w := doJSON(t, s, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": p, "quantity": 1}, bearer...)
	require.Equal(t, http.StatusOK, w.Code)

	hdr := append([]string{"Idempotency-Key", "abc-1"}, bearer...)
	w = doJSON(t, s, http.MethodPost, "/api/v1/orders", nil, hdr...)
	require.Equal(t, http.StatusCreated, w.Code)
	first := decode[map[string]any](t, w)

	// the cart is empty now, the retry must still succeed with the same order
	w = doJSON(t, s, http.MethodPost, "/api/v1/orders", nil, hdr...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, first["id"], decode[map[string]any](t, w)["id"])
}

func TestOrders_OwnerScoped(t *testing.T) {
	e := setupServer(t)
	alice := e.signup(t, "alice@example.com")
	bob := e.signup(t, "bob@example.com")
	s := e.srv
	p := e.product(t, alice, "Widget", 1, 5)

	doJSON(t, s, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": p, "quantity": 1}, alice...)
	w := doJSON(t, s, http.MethodPost, "/api/v1/orders", nil, alice...)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/v1/orders/1", nil, bob...)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, s, http.MethodPost, "/api/v1/orders/1/cancel", nil, bob...)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/v1/orders", nil, bob...)
	assert.Empty(t, decode[[]map[string]any](t, w))
	w = doJSON(t, s, http.MethodGet, "/api/v1/orders", nil, alice...)
	assert.Len(t, decode[[]map[string]any](t, w), 1)
}

func TestReviewFlow(t *testing.T) {
	e := setupServer(t)
	alice := e.signup(t, "alice@example.com")
	bob := e.signup(t, "bob@example.com")
	s := e.srv
	p := e.product(t, alice, "Widget", 1, 5)

	body := map[string]any{"product_id": p, "rating": 4, "title": "Solid", "comment": "Does the job nicely"}
	w := doJSON(t, s, http.MethodPost, "/api/v1/reviews", body, alice...)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, false, decode[map[string]any](t, w)["is_verified_purchase"])

	w = doJSON(t, s, http.MethodPost, "/api/v1/reviews", body, alice...)
	assert.Equal(t, http.StatusConflict, w.Code)

	short := map[string]any{"product_id": p, "rating": 4, "title": "Solid", "comment": "short"}
	w = doJSON(t, s, http.MethodPost, "/api/v1/reviews", short, bob...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// someone else's review looks missing
	w = doJSON(t, s, http.MethodPut, "/api/v1/reviews/1", map[string]any{"rating": 1}, bob...)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, s, http.MethodDelete, "/api/v1/reviews/1", nil, bob...)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, s, http.MethodDelete, "/api/v1/reviews/99", nil, bob...)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/v1/reviews/product/%d/rating", p), nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[map[string]any](t, w)
	assert.Equal(t, 4.0, stats["average_rating"])
	assert.Equal(t, float64(1), stats["review_count"])

	w = doJSON(t, s, http.MethodGet, "/api/v1/reviews/my", nil, alice...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = doJSON(t, s, http.MethodGet, "/api/v1/reviews/product/404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuth(t *testing.T) {
	e := setupServer(t)
	s := e.srv
	bearer := e.signup(t, "me@example.com")

	w := doJSON(t, s, http.MethodGet, "/api/v1/auth/me", nil, bearer...)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[map[string]any](t, w)
	assert.Equal(t, "me@example.com", me["email"])
	assert.NotContains(t, me, "password_hash")

	w = doJSON(t, s, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(t, s, http.MethodGet, "/api/v1/cart", nil, "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/v1/auth/login", map[string]any{"email": "me@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/v1/auth/register", map[string]any{
		"email": "me@example.com", "full_name": "Dup", "password": "password1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// deactivation takes effect on the next request
	w = doJSON(t, s, http.MethodPut, "/api/v1/users/1", map[string]any{"is_active": false}, bearer...)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, s, http.MethodGet, "/api/v1/cart", nil, bearer...)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, s, http.MethodPost, "/api/v1/auth/login", map[string]any{"email": "me@example.com", "password": "password1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUsers_SelfOnly(t *testing.T) {
	e := setupServer(t)
	s := e.srv
	e.signup(t, "a@example.com")
	bob := e.signup(t, "b@example.com")

	w := doJSON(t, s, http.MethodDelete, "/api/v1/users/1", nil, bob...)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(t, s, http.MethodGet, "/api/v1/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 2)
}

func TestCategoryFlow(t *testing.T) {
	e := setupServer(t)
	bearer := e.signup(t, "cat@example.com")
	s := e.srv

	w := doJSON(t, s, http.MethodPost, "/api/v1/categories", map[string]any{"name": "Electronics"}, bearer...)
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, s, http.MethodPost, "/api/v1/categories", map[string]any{"name": "Phones", "parent_id": 1}, bearer...)
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, s, http.MethodPost, "/api/v1/categories", map[string]any{"name": "electronics"}, bearer...)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = doJSON(t, s, http.MethodPost, "/api/v1/categories", map[string]any{"name": "Orphan", "parent_id": 9}, bearer...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/v1/categories?root_only=true", nil)
	assert.Len(t, decode[[]map[string]any](t, w), 1)
	w = doJSON(t, s, http.MethodGet, "/api/v1/categories/1/subcategories", nil)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = doJSON(t, s, http.MethodPut, "/api/v1/categories/1", map[string]any{"parent_id": 1, "description": "gadgets"}, bearer...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[map[string]any](t, w)["parent_id"])
}

func TestHTTP_BadRequests(t *testing.T) {
	e := setupServer(t)
	bearer := e.signup(t, "bad@example.com")
	s := e.srv

	w := doJSON(t, s, http.MethodPost, "/api/v1/products", map[string]any{"name": ""}, bearer...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "name is required")

	w = doJSON(t, s, http.MethodPost, "/api/v1/products", map[string]any{"name": "A", "category": "C", "price": 0}, bearer...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodGet, "/api/v1/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": 1, "quantity": 0}, bearer...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, s, http.MethodPost, "/api/v1/cart/items", map[string]any{"product_id": 77, "quantity": 1}, bearer...)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSystemRoutes(t *testing.T) {
	e := setupServer(t)
	w := doJSON(t, e.srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	w = doJSON(t, e.srv, http.MethodGet, "/health", nil, "X-Request-Id", "fixed")
	assert.Equal(t, "fixed", w.Header().Get("X-Request-Id"))

	w = doJSON(t, e.srv, http.MethodGet, "/", nil)
	assert.Equal(t, "storefront", decode[map[string]any](t, w)["service"])
}
