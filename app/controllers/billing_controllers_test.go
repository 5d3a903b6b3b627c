package controllers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
	"github.com/IdleArchive/cashduezy-sub000/app/repository"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/auth"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/billing"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/testutil"
)

const webhookSecret = "whsec_controller_test"

func webhookApp(db *gorm.DB, cfg billing.Config, opts ...billing.ServiceOption) *fiber.App {
	app := newTestApp()
	wc := NewWebhookController(billing.NewServiceFromDB(db, opts...), cfg, nil)
	app.Post("/api/stripe/webhook", wc.HandleStripeWebhook)
	return app
}

func signed(payload string) map[string]string {
	s := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: []byte(payload), Secret: webhookSecret})
	return map[string]string{"Stripe-Signature": s.Header}
}

const checkoutEvent = `{"id":"evt_c1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","customer":"cus_1","metadata":{"user_id":"U1"}}}}`

func TestWebhookAppliesCheckout(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, db.Create(&models.Profile{UserID: "U1", Plan: models.PlanFree}).Error)
	app := webhookApp(db, billing.Config{WebhookSecret: webhookSecret})

	resp := do(t, app, testRequest{method: http.MethodPost, path: "/api/stripe/webhook", raw: []byte(checkoutEvent), headers: signed(checkoutEvent)})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]interface{}{"received": true}, decode(t, resp))

	var p models.Profile
	require.NoError(t, db.First(&p, "user_id = ?", "U1").Error)
	assert.Equal(t, models.PlanPro, p.Plan)
	require.NotNil(t, p.BillingCustomerID)
	assert.Equal(t, "cus_1", *p.BillingCustomerID)
}

func loadProfile(t *testing.T, db *gorm.DB, userID string) models.Profile {
	t.Helper()
	var p models.Profile
	require.NoError(t, db.First(&p, "user_id = ?", userID).Error)
	return p
}

func TestWebhookRejectsBadRequests(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, db.Create(&models.Profile{UserID: "U1", Plan: models.PlanFree}).Error)

	unconfigured := webhookApp(db, billing.Config{})
	resp := do(t, unconfigured, testRequest{method: http.MethodPost, path: "/api/stripe/webhook", raw: []byte(checkoutEvent), headers: signed(checkoutEvent)})
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	app := webhookApp(db, billing.Config{WebhookSecret: webhookSecret})
	resp = do(t, app, testRequest{method: http.MethodPost, path: "/api/stripe/webhook", raw: []byte(checkoutEvent)})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = do(t, app, testRequest{method: http.MethodPost, path: "/api/stripe/webhook", raw: []byte(checkoutEvent),
		headers: map[string]string{"Stripe-Signature": "t=1,v1=deadbeef"}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	tampered := signed(checkoutEvent)
	resp = do(t, app, testRequest{method: http.MethodPost, path: "/api/stripe/webhook", raw: []byte(checkoutEvent + " "), headers: tampered})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	p := loadProfile(t, db, "U1")
	assert.Equal(t, models.PlanFree, p.Plan)
	assert.Nil(t, p.BillingCustomerID)
	assert.Nil(t, p.SubscriptionStatus)
}

func TestWebhookAcknowledgesUnknownEvents(t *testing.T) {
	db := testutil.NewDB(t)
	customer := "cus_1"
	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, db.Create(&models.Profile{UserID: "U1", Plan: models.PlanFree, BillingCustomerID: &customer, UpdatedAt: stamp}).Error)
	before := loadProfile(t, db, "U1")
	app := webhookApp(db, billing.Config{WebhookSecret: webhookSecret})

	payload := `{"id":"evt_i1","object":"event","type":"invoice.paid","data":{"object":{"id":"in_1","customer":"cus_1"}}}`
	resp := do(t, app, testRequest{method: http.MethodPost, path: "/api/stripe/webhook", raw: []byte(payload), headers: signed(payload)})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode(t, resp)["received"])

	after := loadProfile(t, db, "U1")
	assert.Equal(t, before.Plan, after.Plan)
	assert.Nil(t, after.SubscriptionStatus)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
}

func TestWebhookCheckoutWithCustomerLinkedElsewhere(t *testing.T) {
	db := testutil.NewDB(t)
	taken := "cus_1"
	require.NoError(t, db.Create(&models.Profile{UserID: "U0", Plan: models.PlanFree, BillingCustomerID: &taken}).Error)
	require.NoError(t, db.Create(&models.Profile{UserID: "U1", Plan: models.PlanFree}).Error)
	app := webhookApp(db, billing.Config{WebhookSecret: webhookSecret})

	resp := do(t, app, testRequest{method: http.MethodPost, path: "/api/stripe/webhook", raw: []byte(checkoutEvent), headers: signed(checkoutEvent)})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	p := loadProfile(t, db, "U1")
	assert.Equal(t, models.PlanPro, p.Plan)
	require.NotNil(t, p.BillingCustomerID)
	assert.Equal(t, "cus_1", *p.BillingCustomerID)
}

func TestWebhookLedgerReportsDuplicates(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, db.Create(&models.Profile{UserID: "U1", Plan: models.PlanFree}).Error)
	app := webhookApp(db, billing.Config{WebhookSecret: webhookSecret}, billing.WithLedger(true))

	first := do(t, app, testRequest{method: http.MethodPost, path: "/api/stripe/webhook", raw: []byte(checkoutEvent), headers: signed(checkoutEvent)})
	assert.Equal(t, fiber.StatusOK, first.StatusCode)
	assert.Nil(t, decode(t, first)["duplicate"])

	second := do(t, app, testRequest{method: http.MethodPost, path: "/api/stripe/webhook", raw: []byte(checkoutEvent), headers: signed(checkoutEvent)})
	assert.Equal(t, fiber.StatusOK, second.StatusCode)
	assert.Equal(t, true, decode(t, second)["duplicate"])
}

type fakeProvider struct {
	mu       sync.Mutex
	sessions []billing.CheckoutSessionInput
	err      error
}

func (f *fakeProvider) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	return "cus_created", nil
}

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, in billing.CheckoutSessionInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sessions = append(f.sessions, in)
	return "https://checkout.stripe.test/" + in.CustomerID, nil
}

func checkoutApp(cfg billing.Config, p billing.Provider) *fiber.App {
	app := newTestApp()
	cc := NewCheckoutController(billing.NewCheckout(cfg, p, nil), nil)
	app.Post("/api/checkout", cc.HandleCheckout)
	return app
}

func TestCheckoutReturnsSessionURL(t *testing.T) {
	p := &fakeProvider{}
	app := checkoutApp(billing.Config{SecretKey: "sk_test", PriceID: "price_1", PublicDomain: "https://app.test"}, p)

	resp := do(t, app, testRequest{method: http.MethodPost, path: "/api/checkout", body: map[string]string{"customer_id": "cus_9"}})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://checkout.stripe.test/cus_9", decode(t, resp)["url"])
	require.Len(t, p.sessions, 1)
	assert.Equal(t, "price_1", p.sessions[0].PriceID)
	assert.Equal(t, "https://app.test/dashboard?checkout=success", p.sessions[0].SuccessURL)
}

func TestCheckoutErrors(t *testing.T) {
	ready := billing.Config{SecretKey: "sk_test", PriceID: "price_1"}

	resp := do(t, checkoutApp(billing.Config{}, &fakeProvider{}), testRequest{method: http.MethodPost, path: "/api/checkout", body: map[string]string{"customer_id": "cus_1"}})
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Stripe is not configured", decode(t, resp)["error"])

	resp = do(t, checkoutApp(ready, &fakeProvider{}), testRequest{method: http.MethodPost, path: "/api/checkout"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = do(t, checkoutApp(ready, &fakeProvider{}), testRequest{method: http.MethodPost, path: "/api/checkout", body: map[string]string{"email": "not-an-email"}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = do(t, checkoutApp(ready, &fakeProvider{}), testRequest{method: http.MethodPost, path: "/api/checkout", body: map[string]string{}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "customer_id, user_id or email is required", decode(t, resp)["error"])

	failing := &fakeProvider{err: errors.New("card network down")}
	resp = do(t, checkoutApp(ready, failing), testRequest{method: http.MethodPost, path: "/api/checkout", body: map[string]string{"customer_id": "cus_1"}})
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "card network down", decode(t, resp)["error"])
}

type recordingWelcomer struct {
	mu   sync.Mutex
	sent []string
}

func (w *recordingWelcomer) Welcome(ctx context.Context, to, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sent = append(w.sent, to)
	return nil
}

const bridgeSecret = "bridge-secret-with-at-least-32-characters!"

func bridgeToken(t *testing.T, sub, email string) string {
	t.Helper()
	claims := auth.Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(bridgeSecret))
	require.NoError(t, err)
	return s
}

func TestSessionBridgeProvisionsUser(t *testing.T) {
	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)
	repos := repository.NewRepositories(db, rdb)
	welcomer := &recordingWelcomer{}

	sc := NewSessionController(auth.NewVerifier(bridgeSecret), repos, welcomer, nil, false)
	sc.async = func(fn func()) { fn() }
	app := newTestApp()
	app.Post("/api/auth/session", sc.HandleSessionBridge)

	sub := "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	body := map[string]interface{}{
		"event":   auth.EventSignedIn,
		"session": map[string]interface{}{"access_token": bridgeToken(t, sub, "new@example.com"), "refresh_token": "r1", "expires_in": 3600},
	}
	resp := do(t, app, testRequest{method: http.MethodPost, path: "/api/auth/session", body: body})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	names := map[string]string{}
	for _, ck := range resp.Cookies() {
		names[ck.Name] = ck.Value
	}
	assert.NotEmpty(t, names[auth.AccessTokenCookie])
	assert.Equal(t, "r1", names[auth.RefreshTokenCookie])
	assert.Equal(t, true, decode(t, resp)["ok"])

	user, err := repos.User.GetByID(sub)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	_, err = repos.Profile.GetByUserID(sub)
	assert.NoError(t, err)
	assert.Equal(t, []string{"new@example.com"}, welcomer.sent)

	// a second sign-in must not welcome again
	_ = do(t, app, testRequest{method: http.MethodPost, path: "/api/auth/session", body: body})
	assert.Len(t, welcomer.sent, 1)
}

func TestSessionBridgeAlwaysAnswersOK(t *testing.T) {
	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)
	sc := NewSessionController(auth.NewVerifier(bridgeSecret), repository.NewRepositories(db, rdb), nil, nil, false)
	sc.async = func(fn func()) { fn() }
	app := newTestApp()
	app.Post("/api/auth/session", sc.HandleSessionBridge)

	resp := do(t, app, testRequest{method: http.MethodPost, path: "/api/auth/session", raw: []byte("{not json")})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode(t, resp)["ok"])

	resp = do(t, app, testRequest{method: http.MethodPost, path: "/api/auth/session", body: map[string]interface{}{"event": auth.EventSignedOut}})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	cleared := 0
	for _, ck := range resp.Cookies() {
		if ck.Name == auth.AccessTokenCookie || ck.Name == auth.RefreshTokenCookie {
			assert.Empty(t, ck.Value)
			cleared++
		}
	}
	assert.Equal(t, 2, cleared)

	// invalid token still mirrors cookies but provisions nobody
	resp = do(t, app, testRequest{method: http.MethodPost, path: "/api/auth/session", body: map[string]interface{}{
		"event":   auth.EventSignedIn,
		"session": map[string]interface{}{"access_token": "garbage"},
	}})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	n, err := repository.NewUserRepository(db).Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}
