package routes

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"subscription-backend/config"
	adminapi "subscription-backend/internal/api/admin"
	authapi "subscription-backend/internal/api/auth"
	"subscription-backend/internal/api/billing"
	"subscription-backend/internal/api/plans"
	usersapi "subscription-backend/internal/api/users"
	"subscription-backend/internal/catalog"
	domainbilling "subscription-backend/internal/domain/billing"
	"subscription-backend/internal/gateway"
	"subscription-backend/internal/reconcile"
	"subscription-backend/internal/store/memstore"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "whsec_test"

type stubGateway struct {
	mu       sync.Mutex
	seq      int
	down     bool
	statuses map[string]domainbilling.PaymentStatus
}

func (g *stubGateway) CreatePayment(_ context.Context, req gateway.CreatePaymentRequest) (*gateway.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down {
		return nil, gateway.Unavailable(errors.New("connection refused"))
	}
	g.seq++
	id := fmt.Sprintf("pay_%d", g.seq)
	g.statuses[id] = domainbilling.PaymentPending
	return &gateway.Payment{ID: id, CheckoutURL: "https://checkout.test/" + id, Status: domainbilling.PaymentPending, Amount: req.Amount}, nil
}

func (g *stubGateway) GetPayment(_ context.Context, id string) (*gateway.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.down {
		return nil, gateway.Unavailable(errors.New("connection refused"))
	}
	return &gateway.Payment{ID: id, Status: g.statuses[id]}, nil
}

type server struct {
	router http.Handler
	gw     *stubGateway
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memstore.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat := catalog.New(st.Plans, log)
	_, err := cat.SeedDefaults(context.Background())
	require.NoError(t, err)

	gw := &stubGateway{statuses: map[string]domainbilling.PaymentStatus{}}
	engine := reconcile.New(st.Subscriptions, st.Payments, cat, gw, nil, reconcile.Config{}, reconcile.WithLogger(log))

	cfg := &config.Config{JWTSecret: "test-secret", JWTTTL: time.Hour, AdminEmails: []string{"admin@example.com"}}
	r := gin.New()
	RegisterRoutes(r, Deps{
		Auth:         authapi.NewHandler(st.Users, cfg),
		Users:        usersapi.NewHandler(st.Users, engine),
		Plans:        plans.NewHandler(cat),
		Admin:        adminapi.NewHandler(cat),
		Billing:      billing.NewHandler(engine, st.Payments, webhookSecret),
		JWTSecret:    []byte(cfg.JWTSecret),
		Subscription: engine,
		Health: map[string]func(context.Context) error{
			"store": st.Ping,
		},
	})
	return &server{router: r, gw: gw}
}

func (s *server) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func (s *server) register(t *testing.T, email string) string {
	t.Helper()
	code, body := s.do(t, http.MethodPost, "/api/users/register", "", gin.H{
		"username": "tester", "email": email, "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, code, body)
	return body["token"].(string)
}

func (s *server) callback(t *testing.T, payload any, sign bool) int {
	t.Helper()
	buf, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/subscriptions/payment-callback", bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	if sign {
		mac := hmac.New(sha256.New, []byte(webhookSecret))
		mac.Write(buf)
		req.Header.Set("X-Webhook-Signature", hex.EncodeToString(mac.Sum(nil)))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w.Code
}

func nested(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

func TestSubscriptionFlow(t *testing.T) {
	s := newServer(t)
	token := s.register(t, "ana@example.com")

	code, _ := s.do(t, http.MethodGet, "/api/subscriptions", token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body := s.do(t, http.MethodPost, "/api/subscriptions", token, gin.H{"plan": "monthly"})
	require.Equal(t, http.StatusCreated, code, body)
	sub := nested(body, "subscription")
	payment := nested(body, "payment")
	assert.Equal(t, "pending_payment", sub["status"])
	assert.NotEmpty(t, payment["checkoutUrl"])
	assert.Equal(t, 500.0, payment["amount"])
	id := sub["id"].(string)
	reference := sub["paymentReference"].(string)

	code, _ = s.do(t, http.MethodGet, "/api/subscriptions/access", token, nil)
	assert.Equal(t, http.StatusPaymentRequired, code)

	assert.Equal(t, http.StatusOK, s.callback(t, gin.H{"id": "pay_1", "status": "paid", "reference": reference}, true))

	code, body = s.do(t, http.MethodGet, "/api/subscriptions", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "active", nested(body, "subscription")["status"])
	assert.Equal(t, true, body["isValid"])
	assert.NotNil(t, body["planDetails"])

	assert.Equal(t, http.StatusOK, s.callback(t, gin.H{"id": "pay_1", "status": "pending", "reference": reference}, true))
	code, body = s.do(t, http.MethodGet, "/api/subscriptions/"+id+"/payment-status", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "active", nested(body, "subscription")["status"])

	code, _ = s.do(t, http.MethodPost, "/api/subscriptions", token, gin.H{"plan": "annual"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, http.MethodGet, "/api/subscriptions/access", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "full", nested(body, "access")["state"])

	code, body = s.do(t, http.MethodPatch, "/api/subscriptions/"+id+"/renew", token, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "active", nested(body, "subscription")["status"])

	code, body = s.do(t, http.MethodGet, "/api/users/profile", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ana@example.com", nested(body, "user")["email"])
	assert.NotNil(t, body["subscription"])
	assert.Equal(t, "full", nested(body, "access")["state"])
}

func TestSubscriptionErrors(t *testing.T) {
	s := newServer(t)
	token := s.register(t, "ana@example.com")
	other := s.register(t, "bob@example.com")

	code, _ := s.do(t, http.MethodPost, "/api/subscriptions", "", gin.H{"plan": "monthly"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodPost, "/api/subscriptions", token, gin.H{"plan": "weekly"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/subscriptions", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)

	_, body := s.do(t, http.MethodPost, "/api/subscriptions", token, gin.H{"plan": "monthly"})
	id := nested(body, "subscription")["id"].(string)

	code, _ = s.do(t, http.MethodGet, "/api/subscriptions/"+id+"/payment-status", other, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodGet, "/api/subscriptions/not-a-uuid/payment-status", token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodPatch, "/api/subscriptions/"+id+"/renew", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	s.gw.mu.Lock()
	s.gw.down = true
	s.gw.mu.Unlock()

	code, _ = s.do(t, http.MethodGet, "/api/subscriptions/"+id+"/payment-status", token, nil)
	assert.Equal(t, http.StatusGatewayTimeout, code)

	code, body = s.do(t, http.MethodPost, "/api/subscriptions", other, gin.H{"plan": "monthly"})
	assert.Equal(t, http.StatusGatewayTimeout, code)
	assert.Equal(t, "payment gateway unavailable, try again later", body["error"])

	code, _ = s.do(t, http.MethodGet, "/api/subscriptions", other, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPaymentCallback(t *testing.T) {
	s := newServer(t)

	assert.Equal(t, http.StatusOK, s.callback(t, gin.H{"id": "x", "status": "paid", "reference": "SUBunknown"}, true))
	assert.Equal(t, http.StatusUnauthorized, s.callback(t, gin.H{"id": "x", "status": "paid", "reference": "SUBunknown"}, false))
	assert.Equal(t, http.StatusBadRequest, s.callback(t, gin.H{"status": "paid"}, true))
}

func TestPaymentHistory(t *testing.T) {
	s := newServer(t)
	token := s.register(t, "ana@example.com")

	_, body := s.do(t, http.MethodPost, "/api/subscriptions", token, gin.H{"plan": "quarterly"})
	reference := nested(body, "subscription")["paymentReference"].(string)
	require.Equal(t, http.StatusOK, s.callback(t, gin.H{
		"event": "payment.success",
		"data":  gin.H{"id": "pay_1", "reference": reference, "transaction": gin.H{"id": "tx_9"}},
	}, true))

	req := httptest.NewRequest(http.MethodGet, "/api/payments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "paid", list[0]["status"])
	assert.Equal(t, 1350.0, list[0]["amount"])
	assert.Equal(t, "tx_9", list[0]["transactionId"])
}

func TestPlanRoutes(t *testing.T) {
	s := newServer(t)
	user := s.register(t, "ana@example.com")
	admin := s.register(t, "admin@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/plans", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 3)
	assert.Equal(t, "monthly", list[0]["type"])

	id := list[0]["id"].(string)
	code, body := s.do(t, http.MethodGet, "/api/plans/"+id, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 500.0, body["price"])

	newPlan := gin.H{"title": "<b>Mensal Plus</b>", "description": "Mais", "price": 700, "type": "monthly", "features": []string{"Suporte 24h"}}
	code, _ = s.do(t, http.MethodPost, "/api/plans", user, newPlan)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = s.do(t, http.MethodPost, "/api/plans", admin, newPlan)
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "Mensal Plus", body["title"])

	code, _ = s.do(t, http.MethodPost, "/api/plans", admin, gin.H{"title": "x", "description": "y", "price": 1, "type": "weekly", "features": []string{"a"}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, http.MethodPatch, "/api/plans/"+id+"/active", admin, gin.H{"active": false})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, false, body["isActive"])

	code, _ = s.do(t, http.MethodPatch, "/api/plans/"+id+"/active", admin, gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	code, body := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "up", nested(body, "checks")["store"])
}

func TestPaymentLookup(t *testing.T) {
	s := newServer(t)
	token := s.register(t, "ana@example.com")
	other := s.register(t, "rui@example.com")

	_, body := s.do(t, http.MethodPost, "/api/subscriptions", token, gin.H{"plan": "monthly"})
	sub := nested(body, "subscription")
	reference := sub["paymentReference"].(string)
	path := "/api/payments/request/" + reference

	s.gw.mu.Lock()
	s.gw.down = true
	s.gw.mu.Unlock()
	code, body := s.do(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, false, body["live"])
	assert.Equal(t, "pending", nested(body, "payment")["status"])

	s.gw.mu.Lock()
	s.gw.down = false
	s.gw.statuses[sub["paymentId"].(string)] = domainbilling.PaymentPaid
	s.gw.mu.Unlock()
	code, body = s.do(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["live"])
	assert.Equal(t, "paid", nested(body, "payment")["status"])

	code, _ = s.do(t, http.MethodGet, path, other, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodGet, "/api/payments/request/SUBnope", token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}
