package models

import (
	"time"
)

const (
	CycleWeekly    = "weekly"
	CycleMonthly   = "monthly"
	CycleQuarterly = "quarterly"
	CycleYearly    = "yearly"
)

// TrackedSubscription is a recurring bill a user tracks on the dashboard.
type TrackedSubscription struct {
	ID               uint64     `gorm:"primaryKey" json:"id"`
	UserID           string     `gorm:"index;type:varchar(36);not null" json:"user_id"`
	Name             string     `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=1,max=150"`
	AmountCents      int64      `gorm:"not null" json:"amount_cents" validate:"gte=0"`
	Currency         string     `gorm:"type:varchar(3);default:'USD'" json:"currency" validate:"len=3"`
	BillingCycle     string     `gorm:"type:varchar(20);default:'monthly'" json:"billing_cycle" validate:"oneof=weekly monthly quarterly yearly"`
	NextPaymentDate  time.Time  `gorm:"index" json:"next_payment_date"`
	Category         string     `gorm:"type:varchar(50);index" json:"category" validate:"max=50"`
	Notes            string     `gorm:"type:text" json:"notes" validate:"max=2000"`
	RemindDaysBefore int        `gorm:"default:3" json:"remind_days_before" validate:"gte=0,lte=30"`
	IsActive         bool       `gorm:"default:true" json:"is_active"`
	LastRemindedAt   *time.Time `json:"last_reminded_at,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TrackedSubscription) TableName() string {
	return "tracked_subscriptions"
}

// AdvanceCycle moves NextPaymentDate forward by one billing cycle.
func (s *TrackedSubscription) AdvanceCycle() {
	switch s.BillingCycle {
	case CycleWeekly:
		s.NextPaymentDate = s.NextPaymentDate.AddDate(0, 0, 7)
	case CycleQuarterly:
		s.NextPaymentDate = s.NextPaymentDate.AddDate(0, 3, 0)
	case CycleYearly:
		s.NextPaymentDate = s.NextPaymentDate.AddDate(1, 0, 0)
	default:
		s.NextPaymentDate = s.NextPaymentDate.AddDate(0, 1, 0)
	}
}

// MonthlyCents normalises the amount to a per-month figure.
func (s *TrackedSubscription) MonthlyCents() float64 {
	amount := float64(s.AmountCents)
	switch s.BillingCycle {
	case CycleWeekly:
		return amount * 52 / 12
	case CycleQuarterly:
		return amount / 3
	case CycleYearly:
		return amount / 12
	default:
		return amount
	}
}
