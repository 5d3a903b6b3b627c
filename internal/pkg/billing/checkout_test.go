package billing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/testutil"
)

type fakeProvider struct {
	mu          sync.Mutex
	customers   []string
	sessions    []CheckoutSessionInput
	customerErr error
	sessionErr  error
}

func (f *fakeProvider) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.customerErr != nil {
		return "", f.customerErr
	}
	f.customers = append(f.customers, email+"|"+userID)
	return "cus_new", nil
}

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, in CheckoutSessionInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionErr != nil {
		return "", f.sessionErr
	}
	f.sessions = append(f.sessions, in)
	return "https://checkout.stripe.test/" + in.CustomerID, nil
}

func testConfig() Config {
	return Config{SecretKey: "sk_test", PriceID: "price_1", PublicDomain: "https://app.test"}
}

// syncCheckout runs the backfill inline so assertions see its effect.
func syncCheckout(cfg Config, p Provider, repo Repository) *Checkout {
	c := NewCheckout(cfg, p, repo)
	c.async = func(fn func()) { fn() }
	return c
}

func TestCheckoutRequiresConfig(t *testing.T) {
	p := &fakeProvider{}
	for _, cfg := range []Config{{}, {SecretKey: "sk"}, {PriceID: "price"}} {
		_, err := syncCheckout(cfg, p, nil).CreateSession(context.Background(), CheckoutRequest{CustomerID: "cus_1"})
		assert.ErrorIs(t, err, ErrNotConfigured)
	}
	assert.Empty(t, p.sessions)
}

func TestCheckoutUsesBodyCustomer(t *testing.T) {
	p := &fakeProvider{}
	url, err := syncCheckout(testConfig(), p, nil).CreateSession(context.Background(), CheckoutRequest{CustomerID: "cus_body", UserID: "U1"})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/cus_body", url)

	require.Len(t, p.sessions, 1)
	in := p.sessions[0]
	assert.Equal(t, "price_1", in.PriceID)
	assert.Equal(t, "U1", in.UserID)
	assert.Equal(t, "https://app.test/dashboard?checkout=success", in.SuccessURL)
	assert.Equal(t, "https://app.test/pricing?checkout=canceled", in.CancelURL)
	assert.Empty(t, p.customers)
}

func TestCheckoutUsesStoredCustomer(t *testing.T) {
	db := testutil.NewDB(t)
	c := "cus_stored"
	require.NoError(t, db.Create(&models.Profile{UserID: "U2", Plan: models.PlanFree, BillingCustomerID: &c}).Error)

	p := &fakeProvider{}
	_, err := syncCheckout(testConfig(), p, NewRepository(db)).CreateSession(context.Background(), CheckoutRequest{UserID: "U2", Email: "u2@example.com"})
	require.NoError(t, err)
	assert.Empty(t, p.customers)
	assert.Equal(t, "cus_stored", p.sessions[0].CustomerID)
}

func TestCheckoutCreatesCustomerAndBackfills(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, db.Create(&models.Profile{UserID: "U3", Plan: models.PlanFree}).Error)

	p := &fakeProvider{}
	_, err := syncCheckout(testConfig(), p, NewRepository(db)).CreateSession(context.Background(), CheckoutRequest{UserID: "U3", Email: "u3@example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u3@example.com|U3"}, p.customers)

	var prof models.Profile
	require.NoError(t, db.First(&prof, "user_id = ?", "U3").Error)
	require.NotNil(t, prof.BillingCustomerID)
	assert.Equal(t, "cus_new", *prof.BillingCustomerID)
	assert.Equal(t, models.PlanFree, prof.Plan)
}

func TestCheckoutBackfillIsDetached(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, db.Create(&models.Profile{UserID: "U4", Plan: models.PlanFree}).Error)

	var deferred []func()
	co := NewCheckout(testConfig(), &fakeProvider{}, NewRepository(db))
	co.async = func(fn func()) { deferred = append(deferred, fn) }

	ctx, cancel := context.WithCancel(context.Background())
	_, err := co.CreateSession(ctx, CheckoutRequest{UserID: "U4", Email: "u4@example.com"})
	require.NoError(t, err)
	cancel()

	var prof models.Profile
	require.NoError(t, db.First(&prof, "user_id = ?", "U4").Error)
	assert.Nil(t, prof.BillingCustomerID)

	// the request context is gone, the backfill still lands
	require.Len(t, deferred, 1)
	deferred[0]()
	require.NoError(t, db.First(&prof, "user_id = ?", "U4").Error)
	require.NotNil(t, prof.BillingCustomerID)
}

func TestCheckoutBackfillFailureIsSwallowed(t *testing.T) {
	db := testutil.NewDB(t)
	p := &fakeProvider{}
	co := syncCheckout(testConfig(), p, NewRepository(db))
	require.NoError(t, db.Migrator().DropTable(&models.Profile{}))

	url, err := co.CreateSession(context.Background(), CheckoutRequest{UserID: "U5", Email: "u5@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, url)
}

func TestCheckoutNoCustomer(t *testing.T) {
	p := &fakeProvider{}
	_, err := syncCheckout(testConfig(), p, nil).CreateSession(context.Background(), CheckoutRequest{UserID: "U6"})
	assert.ErrorIs(t, err, ErrNoCustomer)
	assert.Empty(t, p.sessions)
}

func TestCheckoutProviderFailures(t *testing.T) {
	boom := errors.New("card_declined")

	_, err := syncCheckout(testConfig(), &fakeProvider{customerErr: boom}, nil).
		CreateSession(context.Background(), CheckoutRequest{Email: "x@example.com"})
	assert.ErrorIs(t, err, boom)

	_, err = syncCheckout(testConfig(), &fakeProvider{sessionErr: boom}, nil).
		CreateSession(context.Background(), CheckoutRequest{CustomerID: "cus_1"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "card_declined", ProviderMessage(err))
}
