package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cloud-wave-best-zizon/checkout-service/internal/domain"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/events"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/handler"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/payment"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/repository/bolt"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/schema"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/service"
	"github.com/cloud-wave-best-zizon/checkout-service/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	shippingBody = `{"order":{"email":"jgnault@uqac.ca","shipping_information":{"country":"Canada","address":"201, rue Président-Kennedy","postal_code":"G7X 3Y7","city":"Chicoutimi","province":"QC"}}}`
	cardBody     = `{"credit_card":{"name":"John Doe","number":"4242 4242 4242 4242","expiration_year":2030,"cvv":"123","expiration_month":9}}`
	declinedBody = `{"credit_card":{"name":"John Doe","number":"4000 0000 0000 0002","expiration_year":2030,"cvv":"123","expiration_month":9}}`
)

type products []domain.Product

func (p products) FetchProducts(context.Context) ([]domain.Product, error) { return p, nil }

type brokenEvents struct{}

func (brokenEvents) HealthCheck() error { return errors.New("no brokers") }

func catalog() products {
	eggs, berries := 400, 299
	return products{
		{ID: 1, Name: "Brown eggs", Price: decimal.RequireFromString("28.1"), Weight: &eggs, Image: "0.jpg", InStock: true, Description: "Raw organic brown eggs in a basket"},
		{ID: 2, Name: "Sweet fresh stawberry", Price: decimal.RequireFromString("29.45"), Weight: &berries, Image: "1.jpg", InStock: true},
		{ID: 3, Name: "Gift card", Price: decimal.RequireFromString("50"), InStock: true},
		{ID: 4, Name: "Mushrooms", Price: decimal.RequireFromString("12"), Weight: &eggs, InStock: false},
	}
}

func newServer(t *testing.T) *gin.Engine {
	return newServerWithEvents(t, events.NopPublisher{})
}

func newServerWithEvents(t *testing.T, health handler.HealthChecker) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := bolt.Open(filepath.Join(t.TempDir(), "checkout.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := zap.NewNop()
	catalogService := service.NewCatalogService(catalog(), store, logger)
	_, err = catalogService.Refresh(context.Background())
	require.NoError(t, err)
	orderService := service.NewOrderService(store, store, payment.NewSimulator(), events.NopPublisher{}, logger)

	r := gin.New()
	r.Use(middleware.RequestID())
	handler.RegisterRoutes(r,
		handler.NewProductHandler(catalogService, logger),
		handler.NewOrderHandler(orderService, logger),
		handler.NewHealthHandler(store, health, false),
	)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder, scope string) string {
	t.Helper()
	body := decode(t, w)
	errs, ok := body["errors"].(map[string]any)
	require.True(t, ok, w.Body.String())
	e, ok := errs[scope].(map[string]any)
	require.True(t, ok, w.Body.String())
	assert.NotEmpty(t, e["name"])
	return e["code"].(string)
}

func createOrder(t *testing.T, r *gin.Engine, productID, quantity int) string {
	t.Helper()
	w := do(r, http.MethodPost, "/order",
		`{"product":{"id":`+strconv.Itoa(productID)+`,"quantity":`+strconv.Itoa(quantity)+`}}`)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	return w.Header().Get("Location")
}

func orderView(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := decode(t, w)
	order, ok := body["order"].(map[string]any)
	require.True(t, ok, w.Body.String())
	return order
}

func TestListProducts(t *testing.T) {
	r := newServer(t)

	w := do(r, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	list := body["products"].([]any)
	require.Len(t, list, 4)

	eggs := list[0].(map[string]any)
	assert.True(t, schema.IsLike(eggs, schema.Schema{
		"id":          schema.Number,
		"name":        schema.String,
		"in_stock":    schema.Boolean,
		"description": schema.String,
		"price":       schema.Number,
		"weight":      schema.Number,
		"image":       schema.String,
	}))
	assert.Equal(t, 28.1, eggs["price"])
	assert.Nil(t, list[2].(map[string]any)["weight"])
	assert.Equal(t, false, list[3].(map[string]any)["in_stock"])
}

func TestCreateThenGetOrder(t *testing.T) {
	r := newServer(t)

	location := createOrder(t, r, 1, 2)
	require.True(t, strings.HasPrefix(location, "/order/"))
	id, err := strconv.Atoi(strings.TrimPrefix(location, "/order/"))
	require.NoError(t, err)

	w := do(r, http.MethodGet, location, "")
	require.Equal(t, http.StatusOK, w.Code)
	order := orderView(t, w)

	assert.Equal(t, float64(id), order["id"])
	assert.Equal(t, false, order["paid"])
	assert.Equal(t, map[string]any{}, order["credit_card"])
	assert.Equal(t, map[string]any{}, order["shipping_information"])
	assert.Equal(t, map[string]any{}, order["transaction"])
	assert.Nil(t, order["email"])
	assert.Nil(t, order["total_price_tax"])
	assert.Equal(t, 56.2, order["total_price"])
	assert.Equal(t, 10.0, order["shipping_price"])
	assert.Equal(t, map[string]any{"id": 1.0, "quantity": 2.0}, order["product"])
}

func TestCreateOrderErrors(t *testing.T) {
	r := newServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing quantity", `{"product":{"id":1}}`, http.StatusUnprocessableEntity, "missing-fields"},
		{"string id", `{"product":{"id":"1","quantity":1}}`, http.StatusUnprocessableEntity, "missing-fields"},
		{"fractional quantity", `{"product":{"id":1,"quantity":1.5}}`, http.StatusUnprocessableEntity, "missing-fields"},
		{"zero quantity", `{"product":{"id":1,"quantity":0}}`, http.StatusUnprocessableEntity, "missing-fields"},
		{"huge quantity", `{"product":{"id":1,"quantity":23058430092136941}}`, http.StatusUnprocessableEntity, "missing-fields"},
		{"not json", `product`, http.StatusUnprocessableEntity, "missing-fields"},
		{"empty body", ``, http.StatusUnprocessableEntity, "missing-fields"},
		{"out of inventory", `{"product":{"id":4,"quantity":1}}`, http.StatusUnprocessableEntity, "out-of-inventory"},
		{"unknown product", `{"product":{"id":99,"quantity":1}}`, http.StatusNotFound, "not-found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/order", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w, "product"))
		})
	}
}

func TestGetOrderNotFound(t *testing.T) {
	r := newServer(t)

	for _, path := range []string{"/order/42", "/order/abc", "/order/0"} {
		w := do(r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, "not-found", errorCode(t, w, "order"))
	}
}

func TestShippingThenPayment(t *testing.T) {
	r := newServer(t)
	location := createOrder(t, r, 1, 2)

	w := do(r, http.MethodPut, location, shippingBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	order := orderView(t, w)
	assert.Equal(t, "jgnault@uqac.ca", order["email"])
	assert.Equal(t, 64.63, order["total_price_tax"])
	assert.Equal(t, "QC", order["shipping_information"].(map[string]any)["province"])
	assert.Equal(t, false, order["paid"])

	w = do(r, http.MethodPut, location, cardBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	order = orderView(t, w)
	assert.Equal(t, true, order["paid"])

	card := order["credit_card"].(map[string]any)
	assert.Equal(t, "4242", card["first_digits"])
	assert.Equal(t, "4242", card["last_digits"])
	assert.NotContains(t, card, "number")
	assert.NotContains(t, w.Body.String(), "4242424242424242")

	tx := order["transaction"].(map[string]any)
	assert.Equal(t, true, tx["success"])
	assert.Equal(t, 74.63, tx["amount_charged"])
	assert.Len(t, tx["id"], 32)

	w = do(r, http.MethodPut, location, cardBody)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "already-paid", errorCode(t, w, "order"))

	w = do(r, http.MethodPut, location, shippingBody)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "already-paid", errorCode(t, w, "order"))
}

func TestShippingOverwrite(t *testing.T) {
	r := newServer(t)
	location := createOrder(t, r, 2, 1)

	require.Equal(t, http.StatusOK, do(r, http.MethodPut, location, shippingBody).Code)
	other := strings.NewReplacer(`"QC"`, `"ON"`, "Chicoutimi", "Toronto").Replace(shippingBody)
	w := do(r, http.MethodPut, location, other)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, location, "")
	si := orderView(t, w)["shipping_information"].(map[string]any)
	assert.Equal(t, "ON", si["province"])
	assert.Equal(t, "Toronto", si["city"])
}

func TestCardDeclined(t *testing.T) {
	r := newServer(t)
	location := createOrder(t, r, 1, 1)
	require.Equal(t, http.StatusOK, do(r, http.MethodPut, location, shippingBody).Code)

	w := do(r, http.MethodPut, location, declinedBody)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.NotContains(t, body, "errors")
	assert.Equal(t, "card-declined", body["credit_card"].(map[string]any)["code"])

	w = do(r, http.MethodGet, location, "")
	order := orderView(t, w)
	assert.Equal(t, false, order["paid"])
	tx := order["transaction"].(map[string]any)
	assert.Equal(t, false, tx["success"])
	assert.Equal(t, 0.0, tx["amount_charged"])
	assert.Equal(t, "0002", order["credit_card"].(map[string]any)["last_digits"])
}

func TestUpdateOrderErrors(t *testing.T) {
	r := newServer(t)
	location := createOrder(t, r, 1, 1)

	// payment before shipping
	w := do(r, http.MethodPut, location, cardBody)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "missing-fields", errorCode(t, w, "order"))

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"shipping missing city", `{"order":{"email":"a@b.c","shipping_information":{"country":"Canada","address":"1","postal_code":"X","province":"QC"}}}`, http.StatusUnprocessableEntity, "missing-fields"},
		{"shipping without email", `{"order":{"shipping_information":{}}}`, http.StatusUnprocessableEntity, "missing-fields"},
		{"unknown province", strings.Replace(shippingBody, `"QC"`, `"YT"`, 1), http.StatusUnprocessableEntity, "unknown-province"},
		{"card missing cvv", `{"credit_card":{"name":"John Doe","number":"4242 4242 4242 4242","expiration_year":2030,"expiration_month":9}}`, http.StatusUnprocessableEntity, "missing-fields"},
		{"card string year", `{"credit_card":{"name":"John Doe","number":"4242 4242 4242 4242","expiration_year":"2030","cvv":"123","expiration_month":9}}`, http.StatusUnprocessableEntity, "missing-fields"},
		{"empty object", `{}`, http.StatusUnprocessableEntity, "missing-fields"},
		{"not json", `nope`, http.StatusUnprocessableEntity, "missing-fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPut, location, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, errorCode(t, w, "order"))
		})
	}

	w = do(r, http.MethodPut, "/order/999", shippingBody)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not-found", errorCode(t, w, "order"))
}

func TestExplicitOperationRoutes(t *testing.T) {
	r := newServer(t)
	location := createOrder(t, r, 3, 1)

	w := do(r, http.MethodPut, location+"/shipping", strings.Replace(shippingBody, `"QC"`, `"AB"`, 1))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, orderView(t, w)["shipping_price"])

	// a shipping body on the payment route is not a card
	w = do(r, http.MethodPut, location+"/payment", shippingBody)
	assert.Equal(t, "missing-fields", errorCode(t, w, "order"))

	w = do(r, http.MethodPut, location+"/payment", cardBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tx := orderView(t, w)["transaction"].(map[string]any)
	assert.Equal(t, 52.5, tx["amount_charged"])
}

func TestHealth(t *testing.T) {
	w := do(newServer(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	w = do(newServerWithEvents(t, brokenEvents{}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, "unhealthy", body["kafka"])
	assert.Equal(t, "healthy", body["storage"])
}
