package billing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/testutil"
)

func seedProfile(t *testing.T, db *gorm.DB, userID string, customerID *string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Profile{UserID: userID, Plan: models.PlanFree, BillingCustomerID: customerID}).Error)
}

func loadProfile(t *testing.T, db *gorm.DB, userID string) models.Profile {
	t.Helper()
	var p models.Profile
	require.NoError(t, db.First(&p, "user_id = ?", userID).Error)
	return p
}

func TestReconcileLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewServiceFromDB(db)
	ctx := context.Background()
	seedProfile(t, db, "U1", nil)

	require.NoError(t, svc.Reconcile(ctx, CheckoutCompleted{EventID: "e1", UserID: "U1", CustomerID: "C1"}))
	p := loadProfile(t, db, "U1")
	require.NotNil(t, p.BillingCustomerID)
	assert.Equal(t, "C1", *p.BillingCustomerID)
	assert.Equal(t, models.PlanPro, p.Plan)
	assert.Nil(t, p.SubscriptionStatus)

	end := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.Reconcile(ctx, SubscriptionChanged{EventID: "e2", CustomerID: "C1", Status: "active", CurrentPeriodEnd: &end}))
	p = loadProfile(t, db, "U1")
	assert.Equal(t, models.PlanPro, p.Plan)
	assert.Equal(t, "active", p.Status())
	require.NotNil(t, p.CurrentPeriodEnd)
	assert.True(t, p.CurrentPeriodEnd.Equal(end))

	require.NoError(t, svc.Reconcile(ctx, SubscriptionDeleted{EventID: "e3", CustomerID: "C1"}))
	p = loadProfile(t, db, "U1")
	assert.Equal(t, models.PlanFree, p.Plan)
	assert.Equal(t, StatusCanceled, p.Status())
	require.NotNil(t, p.CurrentPeriodEnd)
}

func TestReconcileNonActiveStatusDowngrades(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewServiceFromDB(db)
	c := "C2"
	seedProfile(t, db, "U2", &c)

	require.NoError(t, svc.Reconcile(context.Background(), SubscriptionChanged{CustomerID: "C2", Status: "past_due"}))
	p := loadProfile(t, db, "U2")
	assert.Equal(t, models.PlanFree, p.Plan)
	assert.Equal(t, "past_due", p.Status())
	assert.Nil(t, p.CurrentPeriodEnd)
}

func TestCustomerIDIsSetOnce(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewServiceFromDB(db)
	c := "C_first"
	seedProfile(t, db, "U3", &c)

	require.NoError(t, svc.Reconcile(context.Background(), CheckoutCompleted{UserID: "U3", CustomerID: "C_second"}))
	p := loadProfile(t, db, "U3")
	assert.Equal(t, "C_first", *p.BillingCustomerID)
	assert.Equal(t, models.PlanPro, p.Plan)
}

func TestReconcileNoopCases(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewServiceFromDB(db)
	ctx := context.Background()
	seedProfile(t, db, "U4", nil)

	outcome, err := svc.apply(ctx, CheckoutCompleted{EventID: "e", CustomerID: "C4"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	outcome, err = svc.apply(ctx, SubscriptionDeleted{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	outcome, err = svc.apply(ctx, Unrecognized{Type: "invoice.paid"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)

	// unknown customer: no row matches, still success
	require.NoError(t, svc.Reconcile(ctx, SubscriptionChanged{CustomerID: "nobody", Status: "active"}))

	p := loadProfile(t, db, "U4")
	assert.Equal(t, models.PlanFree, p.Plan)
	assert.Nil(t, p.BillingCustomerID)
}

func TestReconcileStoreFailure(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewServiceFromDB(db)
	require.NoError(t, db.Migrator().DropTable(&models.Profile{}))

	err := svc.Reconcile(context.Background(), SubscriptionDeleted{CustomerID: "C5"})
	assert.Error(t, err)
}

func TestHandleEventLedgerSkipsApplied(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewServiceFromDB(db, WithLedger(true))
	ctx := context.Background()
	seedProfile(t, db, "U6", nil)

	object := `{"id":"cs_1","customer":"C6","metadata":{"user_id":"U6"}}`
	ev := stripeEvent("evt_ledger", EventCheckoutCompleted, object)
	payload, err := json.Marshal(map[string]interface{}{"id": ev.ID, "type": ev.Type})
	require.NoError(t, err)

	outcome, err := svc.HandleEvent(ctx, ev, payload)
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	outcome, err = svc.HandleEvent(ctx, ev, payload)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	var stored models.BillingWebhookEvent
	require.NoError(t, db.First(&stored, "provider_event_id = ?", "evt_ledger").Error)
	assert.True(t, stored.Applied())
	assert.Equal(t, EventCheckoutCompleted, stored.EventType)
}

func TestHandleEventWithoutLedgerReapplies(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewServiceFromDB(db)
	c := "C7"
	seedProfile(t, db, "U7", &c)

	ev := stripeEvent("evt_same", EventSubscriptionUpdated, `{"customer":"C7","status":"active","current_period_end":1793491200}`)
	var states []models.Profile
	for i := 0; i < 2; i++ {
		outcome, err := svc.HandleEvent(context.Background(), ev, nil)
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, outcome)
		states = append(states, loadProfile(t, db, "U7"))
	}

	first, second := states[0], states[1]
	assert.Equal(t, models.PlanPro, first.Plan)
	assert.Equal(t, first.Plan, second.Plan)
	assert.Equal(t, first.Status(), second.Status())
	assert.Equal(t, *first.BillingCustomerID, *second.BillingCustomerID)
	require.NotNil(t, first.CurrentPeriodEnd)
	require.NotNil(t, second.CurrentPeriodEnd)
	assert.True(t, first.CurrentPeriodEnd.Equal(*second.CurrentPeriodEnd))
	assert.Equal(t, int64(1793491200), second.CurrentPeriodEnd.Unix())

	var count int64
	require.NoError(t, db.Model(&models.BillingWebhookEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecordWebhookEventHashesMissingID(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewServiceFromDB(db)

	created, stored, err := svc.RecordWebhookEvent(context.Background(), WebhookEventInput{
		Provider:  "Stripe",
		EventType: "invoice.paid",
		Payload:   []byte(`{"a":1}`),
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "stripe", stored.Provider)
	assert.Contains(t, stored.ProviderEventID, "hash:")

	_, _, err = svc.RecordWebhookEvent(context.Background(), WebhookEventInput{})
	assert.Error(t, err)
	assert.Error(t, svc.MarkWebhookProcessed(context.Background(), 0, nil))
}

func TestCheckoutWithCustomerLinkedElsewhereStillUpgrades(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewServiceFromDB(db)
	taken := "C8"
	seedProfile(t, db, "U0", &taken)
	seedProfile(t, db, "U8", nil)

	require.NoError(t, svc.Reconcile(context.Background(), CheckoutCompleted{EventID: "e8", UserID: "U8", CustomerID: "C8"}))

	p := loadProfile(t, db, "U8")
	assert.Equal(t, models.PlanPro, p.Plan)
	require.NotNil(t, p.BillingCustomerID)
	assert.Equal(t, "C8", *p.BillingCustomerID)

	other := loadProfile(t, db, "U0")
	assert.Equal(t, models.PlanFree, other.Plan)
	assert.Equal(t, "C8", *other.BillingCustomerID)
}

func TestSubscriptionChangedWithoutPeriodEndClearsIt(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewServiceFromDB(db)
	ctx := context.Background()
	c := "C9"
	seedProfile(t, db, "U9", &c)

	end := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.Reconcile(ctx, SubscriptionChanged{CustomerID: "C9", Status: "active", CurrentPeriodEnd: &end}))
	require.NotNil(t, loadProfile(t, db, "U9").CurrentPeriodEnd)

	require.NoError(t, svc.Reconcile(ctx, SubscriptionChanged{CustomerID: "C9", Status: "incomplete"}))
	p := loadProfile(t, db, "U9")
	assert.Equal(t, "incomplete", p.Status())
	assert.Equal(t, models.PlanFree, p.Plan)
	assert.Nil(t, p.CurrentPeriodEnd)
}
