package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/shop-api/internal/adapter/storage"
	"github.com/rl1809/shop-api/internal/core/service"
	"github.com/rl1809/shop-api/internal/pkg/keylock"
	"github.com/rl1809/shop-api/internal/pkg/logger"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemoryStore()
	locks := keylock.New()
	log := logger.NewNop()

	return NewRouter(RouterConfig{
		Auth:     service.NewAuthService(store, log, "test-secret", time.Hour),
		Products: service.NewProductService(store, log),
		Carts:    service.NewCartService(store, store, locks, log),
		Orders: service.NewOrderService(store, store, store,
			storage.NewMemoryCheckoutGuard(), locks, log),
	})
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func registerAndLogin(t *testing.T, r *gin.Engine, email, role string) string {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"email": email, "username": "user", "password": "pw123456", "role": role,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", email, w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email": email, "password": "pw123456",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, w.Code, w.Body.String())
	}
	token, _ := decode(t, w)["token"].(string)
	if token == "" {
		t.Fatalf("login %s: no token in response", email)
	}
	return token
}

func createProduct(t *testing.T, r *gin.Engine, token string, stock int) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/products", token, gin.H{
		"name": "Widget", "price": "10.00", "stock": stock, "category": "tools",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create product: status %d body %s", w.Code, w.Body.String())
	}
	product, _ := decode(t, w)["product"].(map[string]any)
	id, _ := product["id"].(string)
	if id == "" {
		t.Fatal("create product: no id in response")
	}
	return id
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/cart", "/orders", "/auth/profile"} {
		w := doJSON(t, r, http.MethodGet, path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: expected 401, got %d", path, w.Code)
		}
	}

	w := doJSON(t, r, http.MethodGet, "/auth/profile", "garbage-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: expected 401, got %d", w.Code)
	}
}

func TestRoleGates(t *testing.T) {
	r := newTestRouter(t)
	customerToken := registerAndLogin(t, r, "c@example.com", "Customer")

	w := doJSON(t, r, http.MethodPost, "/products", customerToken, gin.H{
		"name": "X", "price": "1.00", "stock": 1,
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("customer creating product: expected 403, got %d", w.Code)
	}

	sellerToken := registerAndLogin(t, r, "s@example.com", "Seller")
	w = doJSON(t, r, http.MethodPost, "/products", sellerToken, gin.H{
		"name": "X", "price": "1.00", "stock": 1,
	})
	if w.Code != http.StatusCreated {
		t.Errorf("seller creating product: expected 201, got %d body %s", w.Code, w.Body.String())
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	r := newTestRouter(t)
	registerAndLogin(t, r, "a@example.com", "")

	w := doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"email": "a@example.com", "username": "other", "password": "pw123456",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	r := newTestRouter(t)
	registerAndLogin(t, r, "a@example.com", "")

	w := doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{
		"email": "a@example.com", "password": "nope",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestPublicProductRoutes(t *testing.T) {
	r := newTestRouter(t)
	sellerToken := registerAndLogin(t, r, "s@example.com", "Seller")
	id := createProduct(t, r, sellerToken, 5)

	w := doJSON(t, r, http.MethodGet, "/products", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("list: expected 200, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/products/"+id, "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("get: expected 200, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/products/category/tools", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("by category: expected 200, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/products/does-not-exist", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing product: expected 404, got %d", w.Code)
	}
}

// End to end: register, stock a product, fill the cart, check out, cancel.
func TestCheckoutFlow(t *testing.T) {
	r := newTestRouter(t)
	sellerToken := registerAndLogin(t, r, "s@example.com", "Seller")
	customerToken := registerAndLogin(t, r, "c@example.com", "Customer")
	productID := createProduct(t, r, sellerToken, 5)

	w := doJSON(t, r, http.MethodPost, "/cart/items", customerToken, gin.H{
		"productId": productID, "quantity": 2,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("add to cart: status %d body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/orders", customerToken, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("checkout: status %d body %s", w.Code, w.Body.String())
	}
	order, _ := decode(t, w)["order"].(map[string]any)
	if got := order["status"]; got != "Pending" {
		t.Errorf("expected Pending, got %v", got)
	}
	if got := order["totalAmount"]; got != "20" {
		t.Errorf("expected total 20, got %v", got)
	}
	orderID, _ := order["id"].(string)

	// stock went down
	w = doJSON(t, r, http.MethodGet, "/products/"+productID, "", nil)
	product, _ := decode(t, w)["product"].(map[string]any)
	if got := product["stock"]; got != float64(3) {
		t.Errorf("expected stock 3, got %v", got)
	}

	// cart is now empty
	w = doJSON(t, r, http.MethodGet, "/cart", customerToken, nil)
	cart, _ := decode(t, w)["cart"].(map[string]any)
	if items, _ := cart["items"].([]any); len(items) != 0 {
		t.Errorf("expected empty cart, got %v", items)
	}

	// the other customer cannot see the order
	otherToken := registerAndLogin(t, r, "x@example.com", "Customer")
	w = doJSON(t, r, http.MethodGet, "/orders/"+orderID, otherToken, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("cross customer read: expected 403, got %d", w.Code)
	}

	// cancel restores the stock
	w = doJSON(t, r, http.MethodPost, "/orders/"+orderID+"/cancel", customerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: status %d body %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodGet, "/products/"+productID, "", nil)
	product, _ = decode(t, w)["product"].(map[string]any)
	if got := product["stock"]; got != float64(5) {
		t.Errorf("expected stock restored to 5, got %v", got)
	}

	// cancelling again is a bad transition
	w = doJSON(t, r, http.MethodPost, "/orders/"+orderID+"/cancel", customerToken, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("double cancel: expected 400, got %d", w.Code)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	r := newTestRouter(t)
	token := registerAndLogin(t, r, "c@example.com", "Customer")

	w := doJSON(t, r, http.MethodPost, "/orders", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d body %s", w.Code, w.Body.String())
	}
}

func TestCheckout_IdempotencyHeader(t *testing.T) {
	r := newTestRouter(t)
	sellerToken := registerAndLogin(t, r, "s@example.com", "Seller")
	customerToken := registerAndLogin(t, r, "c@example.com", "Customer")
	productID := createProduct(t, r, sellerToken, 10)

	checkout := func() *httptest.ResponseRecorder {
		var buf bytes.Buffer
		req := httptest.NewRequest(http.MethodPost, "/orders", &buf)
		req.Header.Set("Authorization", "Bearer "+customerToken)
		req.Header.Set("X-Request-ID", "retry-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := doJSON(t, r, http.MethodPost, "/cart/items", customerToken, gin.H{
		"productId": productID, "quantity": 1,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("add to cart: status %d", w.Code)
	}

	if w := checkout(); w.Code != http.StatusCreated {
		t.Fatalf("first checkout: status %d body %s", w.Code, w.Body.String())
	}

	// refill and replay the same request id
	w = doJSON(t, r, http.MethodPost, "/cart/items", customerToken, gin.H{
		"productId": productID, "quantity": 1,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("refill cart: status %d", w.Code)
	}
	if w := checkout(); w.Code != http.StatusConflict {
		t.Errorf("replayed checkout: expected 409, got %d body %s", w.Code, w.Body.String())
	}
}

func TestUpdateOrderStatus_RoleAndTransition(t *testing.T) {
	r := newTestRouter(t)
	sellerToken := registerAndLogin(t, r, "s@example.com", "Seller")
	customerToken := registerAndLogin(t, r, "c@example.com", "Customer")
	productID := createProduct(t, r, sellerToken, 5)

	w := doJSON(t, r, http.MethodPost, "/cart/items", customerToken, gin.H{
		"productId": productID, "quantity": 1,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("add to cart: status %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPost, "/orders", customerToken, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("checkout: status %d", w.Code)
	}
	order, _ := decode(t, w)["order"].(map[string]any)
	orderID, _ := order["id"].(string)
	statusPath := fmt.Sprintf("/orders/%s/status", orderID)

	w = doJSON(t, r, http.MethodPut, statusPath, customerToken, gin.H{"status": "Processing"})
	if w.Code != http.StatusForbidden {
		t.Errorf("customer update: expected 403, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPut, statusPath, sellerToken, gin.H{"status": "Delivered"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Pending->Delivered: expected 400, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPut, statusPath, sellerToken, gin.H{"status": "Processing"})
	if w.Code != http.StatusOK {
		t.Errorf("Pending->Processing: expected 200, got %d body %s", w.Code, w.Body.String())
	}
}

func TestCartQuantityRules(t *testing.T) {
	r := newTestRouter(t)
	sellerToken := registerAndLogin(t, r, "s@example.com", "Seller")
	customerToken := registerAndLogin(t, r, "c@example.com", "Customer")
	productID := createProduct(t, r, sellerToken, 3)

	w := doJSON(t, r, http.MethodPost, "/cart/items", customerToken, gin.H{
		"productId": productID, "quantity": 4,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("over stock: expected 400, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/cart/items", customerToken, gin.H{
		"productId": productID, "quantity": 2,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("add: status %d", w.Code)
	}

	// quantity zero removes the line
	w = doJSON(t, r, http.MethodPut, "/cart/items/"+productID, customerToken, gin.H{"quantity": 0})
	if w.Code != http.StatusOK {
		t.Fatalf("update to zero: status %d body %s", w.Code, w.Body.String())
	}
	cart, _ := decode(t, w)["cart"].(map[string]any)
	if items, _ := cart["items"].([]any); len(items) != 0 {
		t.Errorf("expected line removed, got %v", items)
	}
}
