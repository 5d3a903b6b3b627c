// Package tracker implements the dashboard: the bills and subscriptions a
// user tracks, plan limits and the summary figures.
package tracker

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
	"github.com/IdleArchive/cashduezy-sub000/app/repository"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/entitlements"
)

const dateLayout = "2006-01-02"

var (
	ErrLimitReached = errors.New("tracker: subscription limit reached for plan")
	ErrNotFound     = errors.New("tracker: subscription not found")
)

// ValidationError lists invalid input fields.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+": "+msg)
	}
	return "invalid subscription: " + strings.Join(parts, "; ")
}

// Input is a create or partial update. Nil fields are left unchanged.
type Input struct {
	Name             *string `json:"name"`
	AmountCents      *int64  `json:"amount_cents"`
	Currency         *string `json:"currency"`
	BillingCycle     *string `json:"billing_cycle"`
	NextPaymentDate  *string `json:"next_payment_date"`
	Category         *string `json:"category"`
	Notes            *string `json:"notes"`
	RemindDaysBefore *int    `json:"remind_days_before"`
	IsActive         *bool   `json:"is_active"`
}

type Service struct {
	repo     repository.TrackedSubscriptionRepository
	validate *validator.Validate
	now      func() time.Time
}

func NewService(repo repository.TrackedSubscriptionRepository) *Service {
	return &Service{repo: repo, validate: validator.New(), now: time.Now}
}

func (s *Service) List(userID string, f repository.ListFilter) ([]models.TrackedSubscription, error) {
	return s.repo.ListForUser(userID, f)
}

func (s *Service) Get(userID string, id uint64) (*models.TrackedSubscription, error) {
	sub, err := s.repo.GetForUser(id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return sub, err
}

// Create adds a subscription after checking the plan limit.
func (s *Service) Create(userID string, plan entitlements.Plan, in Input) (*models.TrackedSubscription, error) {
	count, err := s.repo.CountForUser(userID)
	if err != nil {
		return nil, err
	}
	if !entitlements.CanTrackMore(plan, count) {
		return nil, ErrLimitReached
	}

	sub := &models.TrackedSubscription{
		UserID:           userID,
		Currency:         "USD",
		BillingCycle:     models.CycleMonthly,
		RemindDaysBefore: 3,
		IsActive:         true,
	}
	missing := map[string]string{}
	if in.Name == nil {
		missing["name"] = "required"
	}
	if in.AmountCents == nil {
		missing["amount_cents"] = "required"
	}
	if in.NextPaymentDate == nil {
		missing["next_payment_date"] = "required"
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}
	if err := s.apply(sub, in); err != nil {
		return nil, err
	}
	active := sub.IsActive
	if err := s.repo.Create(sub); err != nil {
		return nil, err
	}
	// gorm substitutes the column default for a false bool on insert.
	if !active {
		sub.IsActive = false
		if err := s.repo.Update(sub); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

func (s *Service) Update(userID string, id uint64, in Input) (*models.TrackedSubscription, error) {
	sub, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(sub, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Service) Delete(userID string, id uint64) error {
	ok, err := s.repo.DeleteForUser(id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Service) apply(sub *models.TrackedSubscription, in Input) error {
	if in.Name != nil {
		sub.Name = strings.TrimSpace(*in.Name)
	}
	if in.AmountCents != nil {
		sub.AmountCents = *in.AmountCents
	}
	if in.Currency != nil {
		sub.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
	}
	if in.BillingCycle != nil {
		sub.BillingCycle = strings.ToLower(strings.TrimSpace(*in.BillingCycle))
	}
	if in.NextPaymentDate != nil {
		d, err := time.Parse(dateLayout, strings.TrimSpace(*in.NextPaymentDate))
		if err != nil {
			return &ValidationError{Fields: map[string]string{"next_payment_date": "expected YYYY-MM-DD"}}
		}
		sub.NextPaymentDate = d
	}
	if in.Category != nil {
		sub.Category = strings.ToLower(strings.TrimSpace(*in.Category))
	}
	if in.Notes != nil {
		sub.Notes = *in.Notes
	}
	if in.RemindDaysBefore != nil {
		sub.RemindDaysBefore = *in.RemindDaysBefore
	}
	if in.IsActive != nil {
		sub.IsActive = *in.IsActive
	}

	if err := s.validate.Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[jsonName(fe.Field())] = fmt.Sprintf("failed %s", fe.Tag())
			}
			return &ValidationError{Fields: fields}
		}
		return err
	}
	return nil
}

var jsonNames = map[string]string{
	"Name":             "name",
	"AmountCents":      "amount_cents",
	"Currency":         "currency",
	"BillingCycle":     "billing_cycle",
	"Category":         "category",
	"Notes":            "notes",
	"RemindDaysBefore": "remind_days_before",
}

func jsonName(field string) string {
	if n, ok := jsonNames[field]; ok {
		return n
	}
	return strings.ToLower(field)
}
