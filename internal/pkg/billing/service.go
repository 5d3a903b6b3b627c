package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
)

// Outcome describes what happened to a delivered webhook event.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
)

// Service reconciles provider billing events into local profiles.
type Service struct {
	repo   Repository
	ledger bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLedger records every delivery and skips event ids already applied.
func WithLedger(enabled bool) ServiceOption {
	return func(s *Service) { s.ledger = enabled }
}

// NewService creates a billing service from an injected repository.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, opts ...ServiceOption) *Service {
	return NewService(NewRepository(db), opts...)
}

// Repository exposes the store, used by the checkout initiator.
func (s *Service) Repository() Repository {
	return s.repo
}

// HandleEvent decodes and applies a verified event. Decoding failures wrap
// ErrMalformedEvent; any other error is a store failure.
func (s *Service) HandleEvent(ctx context.Context, ev stripe.Event, payload []byte) (Outcome, error) {
	decoded, err := DecodeEvent(ev)
	if err != nil {
		return "", err
	}

	if !s.ledger {
		return s.apply(ctx, decoded)
	}

	created, stored, err := s.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: ev.ID,
		EventType:       string(ev.Type),
		Payload:         payload,
		SignatureValid:  true,
	})
	if err != nil {
		return "", fmt.Errorf("record webhook event: %w", err)
	}
	if !created && stored.Applied() {
		log.Infof("[Billing] event %s already applied, skipping", stored.ProviderEventID)
		return OutcomeDuplicate, nil
	}

	outcome, applyErr := s.apply(ctx, decoded)
	if err := s.MarkWebhookProcessed(ctx, stored.ID, applyErr); err != nil {
		log.Errorf("[Billing] failed to mark event %s processed: %v", stored.ProviderEventID, err)
	}
	return outcome, applyErr
}

// Reconcile applies one decoded event to the profile store.
func (s *Service) Reconcile(ctx context.Context, ev Event) error {
	_, err := s.apply(ctx, ev)
	return err
}

func (s *Service) apply(ctx context.Context, ev Event) (Outcome, error) {
	switch e := ev.(type) {
	case CheckoutCompleted:
		if e.UserID == "" || e.CustomerID == "" {
			log.Warnf("[Billing] checkout %s without user id or customer, nothing to link", e.EventID)
			return OutcomeIgnored, nil
		}
		plan := models.PlanPro
		customer := e.CustomerID
		err := s.repo.UpdateProfileByUserID(ctx, e.UserID, ProfileUpdate{
			BillingCustomerID: &customer,
			Plan:              &plan,
		})
		if err != nil {
			return "", fmt.Errorf("link customer %s to user %s: %w", e.CustomerID, e.UserID, err)
		}
		log.Infof("[Billing] user %s upgraded via checkout (customer %s)", e.UserID, e.CustomerID)
		return OutcomeApplied, nil

	case SubscriptionChanged:
		if e.CustomerID == "" {
			return OutcomeIgnored, nil
		}
		plan := planForStatus(e.Status)
		status := e.Status
		err := s.repo.UpdateProfileByCustomerID(ctx, e.CustomerID, ProfileUpdate{
			Plan:               &plan,
			SubscriptionStatus: &status,
			CurrentPeriodEnd:   e.CurrentPeriodEnd,
			ClearPeriodEnd:     e.CurrentPeriodEnd == nil,
		})
		if err != nil {
			return "", fmt.Errorf("sync subscription for customer %s: %w", e.CustomerID, err)
		}
		log.Infof("[Billing] customer %s subscription %s -> plan %s", e.CustomerID, e.Status, plan)
		return OutcomeApplied, nil

	case SubscriptionDeleted:
		if e.CustomerID == "" {
			return OutcomeIgnored, nil
		}
		plan := models.PlanFree
		status := StatusCanceled
		err := s.repo.UpdateProfileByCustomerID(ctx, e.CustomerID, ProfileUpdate{
			Plan:               &plan,
			SubscriptionStatus: &status,
		})
		if err != nil {
			return "", fmt.Errorf("cancel subscription for customer %s: %w", e.CustomerID, err)
		}
		log.Infof("[Billing] customer %s subscription canceled", e.CustomerID)
		return OutcomeApplied, nil

	case Unrecognized:
		log.Debugf("[Billing] ignoring event type %s", e.Type)
		return OutcomeIgnored, nil

	default:
		return "", fmt.Errorf("unsupported billing event %T", ev)
	}
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256(in.Payload)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		SignatureValid:  in.SignatureValid,
	}
	if len(in.Payload) > 0 {
		event.Payload = datatypes.JSON(in.Payload)
	}
	return s.repo.CreateWebhookEventIfNotExists(ctx, event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(ctx, webhookEventID, errMsg)
}
