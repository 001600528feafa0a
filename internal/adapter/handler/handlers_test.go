package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibrahimkeyboad/billpay/internal/adapter/middleware"
	"github.com/ibrahimkeyboad/billpay/internal/adapter/storage"
	"github.com/ibrahimkeyboad/billpay/internal/core/domain"
	"github.com/ibrahimkeyboad/billpay/internal/core/metrics"
	"github.com/ibrahimkeyboad/billpay/internal/core/payments"
	"github.com/ibrahimkeyboad/billpay/internal/core/settlement"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// stubGateway lets a test force declines.
type stubGateway struct {
	err error
}

func (g *stubGateway) Authorize(_ context.Context, _ settlement.AuthRequest) (settlement.Auth, error) {
	if g.err != nil {
		return settlement.Auth{}, g.err
	}
	return settlement.Auth{Reference: "auth_stub", AuthorizedAt: time.Now().UTC()}, nil
}

type testEnv struct {
	app     *fiber.App
	store   *storage.MemoryStore
	gateway *stubGateway
	token   string
	userID  uuid.UUID
}

// newTestEnv wires the same routes main does, over the in-memory store,
// and registers one user.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := storage.NewMemoryStore()
	gateway := &stubGateway{}
	orchestrator := payments.NewOrchestrator(store, gateway, time.Second)

	authHandler := &AuthHandler{Store: store}
	billHandler := &BillHandler{Store: store}
	methodHandler := &MethodHandler{Store: store}
	paymentHandler := &PaymentHandler{Orchestrator: orchestrator, Store: store}
	dashboardHandler := &DashboardHandler{Aggregator: metrics.NewAggregator(store)}

	app := fiber.New()
	api := app.Group("/api")
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)

	private := api.Use(middleware.Protected(store))
	private.Get("/auth/me", authHandler.Me)
	private.Post("/auth/logout", authHandler.Logout)
	private.Get("/bills", billHandler.List)
	private.Post("/bills", billHandler.Create)
	private.Put("/bills/:id", billHandler.Update)
	private.Delete("/bills/:id", billHandler.Delete)
	private.Get("/payment-methods", methodHandler.List)
	private.Post("/payment-methods", methodHandler.Create)
	private.Delete("/payment-methods/:id", methodHandler.Delete)
	private.Post("/payments/process", middleware.Idempotency(store), paymentHandler.Process)
	private.Get("/payments/history", paymentHandler.History)
	private.Get("/dashboard/metrics", dashboardHandler.Metrics)

	env := &testEnv{app: app, store: store, gateway: gateway}

	res := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    "dana@example.com",
		"password": "hunter22",
		"name":     "Dana",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var body struct {
		AccessToken string      `json:"access_token"`
		User        domain.User `json:"user"`
	}
	decodeBody(t, res, &body)
	env.token = body.AccessToken
	env.userID = body.User.ID
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload any) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := e.app.Test(req, 5000)
	require.NoError(t, err)
	return res
}

func decodeBody(t *testing.T, res *http.Response, out any) {
	t.Helper()
	defer res.Body.Close()
	require.NoError(t, json.NewDecoder(res.Body).Decode(out))
}

func (e *testEnv) createBill(t *testing.T, amount string) domain.Bill {
	t.Helper()
	res := e.do(t, http.MethodPost, "/api/bills", e.token, map[string]any{
		"biller_name":    "City Power & Light",
		"account_number": "9900112233445566",
		"amount":         amount,
		"due_date":       time.Now().UTC().Add(72 * time.Hour).Format(time.RFC3339),
		"category":       "utility",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var bill domain.Bill
	decodeBody(t, res, &bill)
	return bill
}

func (e *testEnv) createCard(t *testing.T, isDefault bool) domain.PaymentMethod {
	t.Helper()
	res := e.do(t, http.MethodPost, "/api/payment-methods", e.token, map[string]any{
		"kind":        "card",
		"card_number": "4242424242424242",
		"expiry":      "12/28",
		"cvc":         "123",
		"is_default":  isDefault,
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var method domain.PaymentMethod
	decodeBody(t, res, &method)
	return method
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/bills", "/api/payment-methods", "/api/payments/history", "/api/dashboard/metrics"} {
		res := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode, path)
	}

	res := env.do(t, http.MethodGet, "/api/bills", "bp_live_bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(t, http.MethodPost, "/api/auth/logout", env.token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = env.do(t, http.MethodGet, "/api/bills", env.token, nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestProcessPayment_Success(t *testing.T) {
	env := newTestEnv(t)
	bill := env.createBill(t, "127.45")
	method := env.createCard(t, true)

	res := env.do(t, http.MethodPost, "/api/payments/process", env.token, map[string]any{
		"bill_id":           bill.ID.String(),
		"payment_method_id": method.ID.String(),
		"amount":            "127.45",
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	var tx domain.Transaction
	decodeBody(t, res, &tx)
	assert.Equal(t, domain.TxCompleted, tx.Status)
	assert.NotEmpty(t, tx.ConfirmationCode)

	// Bill now paid.
	res = env.do(t, http.MethodGet, "/api/bills", env.token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var bills []domain.Bill
	decodeBody(t, res, &bills)
	require.Len(t, bills, 1)
	assert.Equal(t, domain.BillPaid, bills[0].Status)
}

func TestProcessPayment_AmountMismatch(t *testing.T) {
	env := newTestEnv(t)
	bill := env.createBill(t, "127.45")
	env.createCard(t, true)

	res := env.do(t, http.MethodPost, "/api/payments/process", env.token, map[string]any{
		"bill_id": bill.ID.String(),
		"amount":  "100.00",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	// Nothing recorded.
	res = env.do(t, http.MethodGet, "/api/payments/history", env.token, nil)
	var txs []domain.Transaction
	decodeBody(t, res, &txs)
	assert.Empty(t, txs)
}

func TestProcessPayment_NoMethod(t *testing.T) {
	env := newTestEnv(t)
	bill := env.createBill(t, "127.45")

	res := env.do(t, http.MethodPost, "/api/payments/process", env.token, map[string]any{
		"bill_id": bill.ID.String(),
		"amount":  "127.45",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestProcessPayment_UnknownBill(t *testing.T) {
	env := newTestEnv(t)
	env.createCard(t, true)

	res := env.do(t, http.MethodPost, "/api/payments/process", env.token, map[string]any{
		"bill_id": uuid.New().String(),
		"amount":  "127.45",
	})
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestProcessPayment_Declined(t *testing.T) {
	env := newTestEnv(t)
	bill := env.createBill(t, "127.45")
	env.createCard(t, true)
	env.gateway.err = domain.ErrSettlementDeclined

	res := env.do(t, http.MethodPost, "/api/payments/process", env.token, map[string]any{
		"bill_id": bill.ID.String(),
		"amount":  "127.45",
	})
	assert.Equal(t, http.StatusBadGateway, res.StatusCode)

	// The failed attempt is visible in history for audit.
	res = env.do(t, http.MethodGet, "/api/payments/history", env.token, nil)
	var txs []domain.Transaction
	decodeBody(t, res, &txs)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TxFailed, txs[0].Status)
}

func TestProcessPayment_AlreadyPaidConflicts(t *testing.T) {
	env := newTestEnv(t)
	bill := env.createBill(t, "127.45")
	env.createCard(t, true)

	payload := map[string]any{"bill_id": bill.ID.String(), "amount": "127.45"}
	res := env.do(t, http.MethodPost, "/api/payments/process", env.token, payload)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = env.do(t, http.MethodPost, "/api/payments/process", env.token, payload)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestProcessPayment_IdempotencyReplay(t *testing.T) {
	env := newTestEnv(t)
	bill := env.createBill(t, "127.45")
	env.createCard(t, true)

	payload := map[string]any{"bill_id": bill.ID.String(), "amount": "127.45"}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	send := func() *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/api/payments/process", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+env.token)
		req.Header.Set("Idempotency-Key", "pay-once-77")
		res, err := env.app.Test(req, 5000)
		require.NoError(t, err)
		return res
	}

	first := send()
	require.Equal(t, http.StatusOK, first.StatusCode)
	var firstTx domain.Transaction
	decodeBody(t, first, &firstTx)

	// The replay returns the cached response instead of a conflict.
	second := send()
	require.Equal(t, http.StatusOK, second.StatusCode)
	assert.Equal(t, "true", second.Header.Get("X-Idempotency-Hit"))
	var secondTx domain.Transaction
	decodeBody(t, second, &secondTx)
	assert.Equal(t, firstTx.ID, secondTx.ID)

	// Exactly one transaction exists.
	res := env.do(t, http.MethodGet, "/api/payments/history", env.token, nil)
	var txs []domain.Transaction
	decodeBody(t, res, &txs)
	assert.Len(t, txs, 1)
}

func TestProcessPayment_IdempotencyScopedPerUser(t *testing.T) {
	env := newTestEnv(t)
	bill := env.createBill(t, "127.45")
	env.createCard(t, true)

	pay := func(token string, billID uuid.UUID, amount string) *http.Response {
		raw, err := json.Marshal(map[string]any{"bill_id": billID.String(), "amount": amount})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/payments/process", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "shared-key-1")
		res, err := env.app.Test(req, 5000)
		require.NoError(t, err)
		return res
	}

	res := pay(env.token, bill.ID, "127.45")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var firstTx domain.Transaction
	decodeBody(t, res, &firstTx)

	// A second user reusing the same key must not see the first user's
	// cached response.
	res = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    "omar@example.com",
		"password": "hunter22",
		"name":     "Omar",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var other struct {
		AccessToken string `json:"access_token"`
	}
	decodeBody(t, res, &other)

	saved := env.token
	env.token = other.AccessToken
	otherBill := env.createBill(t, "60.00")
	env.createCard(t, true)
	env.token = saved

	res = pay(other.AccessToken, otherBill.ID, "60.00")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, res.Header.Get("X-Idempotency-Hit"))
	var otherTx domain.Transaction
	decodeBody(t, res, &otherTx)
	assert.Equal(t, otherBill.ID, otherTx.BillID)
	assert.NotEqual(t, firstTx.ID, otherTx.ID)
}

func TestDeleteBill_Statuses(t *testing.T) {
	env := newTestEnv(t)
	bill := env.createBill(t, "50.00")
	env.createCard(t, true)

	res := env.do(t, http.MethodDelete, "/api/bills/"+uuid.New().String(), env.token, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	// Pay it, then deletion conflicts with the transaction history.
	res = env.do(t, http.MethodPost, "/api/payments/process", env.token, map[string]any{
		"bill_id": bill.ID.String(), "amount": "50.00",
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = env.do(t, http.MethodDelete, "/api/bills/"+bill.ID.String(), env.token, nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	// An untouched bill deletes cleanly.
	other := env.createBill(t, "10.00")
	res = env.do(t, http.MethodDelete, "/api/bills/"+other.ID.String(), env.token, nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
}

func TestDeleteMethod_Conflict(t *testing.T) {
	env := newTestEnv(t)
	bill := env.createBill(t, "50.00")
	method := env.createCard(t, true)

	res := env.do(t, http.MethodPost, "/api/payments/process", env.token, map[string]any{
		"bill_id": bill.ID.String(), "amount": "50.00",
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = env.do(t, http.MethodDelete, "/api/payment-methods/"+method.ID.String(), env.token, nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestCreateMethod_Validation(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(t, http.MethodPost, "/api/payment-methods", env.token, map[string]any{
		"kind":        "card",
		"card_number": "378282246310005", // amex
		"expiry":      "12/28",
		"cvc":         "1234",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = env.do(t, http.MethodPost, "/api/payment-methods", env.token, map[string]any{
		"kind": "carrier_pigeon",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestDefaultMethodSwitch(t *testing.T) {
	env := newTestEnv(t)
	first := env.createCard(t, true)
	second := env.createCard(t, true)

	res := env.do(t, http.MethodGet, "/api/payment-methods", env.token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var methods []domain.PaymentMethod
	decodeBody(t, res, &methods)
	require.Len(t, methods, 2)
	for _, m := range methods {
		switch m.ID {
		case first.ID:
			assert.False(t, m.IsDefault)
		case second.ID:
			assert.True(t, m.IsDefault)
		}
	}
}

func TestDashboardMetrics(t *testing.T) {
	env := newTestEnv(t)
	bill := env.createBill(t, "127.45")
	env.createBill(t, "60.00")
	env.createCard(t, true)

	res := env.do(t, http.MethodGet, "/api/dashboard/metrics", env.token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var before metrics.Dashboard
	decodeBody(t, res, &before)
	assert.True(t, before.TotalDue.Equal(dec("187.45")), "got %s", before.TotalDue)
	assert.Equal(t, 1, before.MethodCount)
	require.NotNil(t, before.NextDueDate)

	res = env.do(t, http.MethodPost, "/api/payments/process", env.token, map[string]any{
		"bill_id": bill.ID.String(), "amount": "127.45",
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = env.do(t, http.MethodGet, "/api/dashboard/metrics", env.token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var after metrics.Dashboard
	decodeBody(t, res, &after)
	assert.True(t, after.TotalDue.Equal(dec("60.00")), "got %s", after.TotalDue)
	assert.True(t, after.MonthlyTotal.Equal(dec("127.45")), "got %s", after.MonthlyTotal)
	require.Len(t, after.RecentTransactions, 1)
}

func TestHistoryNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	env.createCard(t, true)

	for i := 0; i < 3; i++ {
		bill := env.createBill(t, fmt.Sprintf("%d.00", 10+i))
		res := env.do(t, http.MethodPost, "/api/payments/process", env.token, map[string]any{
			"bill_id": bill.ID.String(), "amount": fmt.Sprintf("%d.00", 10+i),
		})
		require.Equal(t, http.StatusOK, res.StatusCode)
	}

	res := env.do(t, http.MethodGet, "/api/payments/history", env.token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var txs []domain.Transaction
	decodeBody(t, res, &txs)
	require.Len(t, txs, 3)
	for i := 1; i < len(txs); i++ {
		assert.False(t, txs[i].Timestamp.After(txs[i-1].Timestamp))
	}
}

func TestUpdateBill(t *testing.T) {
	env := newTestEnv(t)
	bill := env.createBill(t, "50.00")

	res := env.do(t, http.MethodPut, "/api/bills/"+bill.ID.String(), env.token, map[string]any{
		"amount":      "75.00",
		"description": "revised invoice",
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	var updated domain.Bill
	decodeBody(t, res, &updated)
	assert.True(t, updated.Amount.Equal(dec("75.00")))
	assert.Equal(t, "revised invoice", updated.Description)

	// Paid bills are immutable.
	env.createCard(t, true)
	res = env.do(t, http.MethodPost, "/api/payments/process", env.token, map[string]any{
		"bill_id": bill.ID.String(), "amount": "75.00",
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = env.do(t, http.MethodPut, "/api/bills/"+bill.ID.String(), env.token, map[string]any{
		"amount": "80.00",
	})
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}
