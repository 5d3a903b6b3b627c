package models

import "time"

const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// Profile holds the billing state of a user. BillingCustomerID is written
// once and is the join key for every provider event keyed by customer. It is
// not unique: a checkout may reuse a customer that is already linked.
type Profile struct {
	UserID             string     `gorm:"primaryKey;type:varchar(36)" json:"user_id"`
	BillingCustomerID  *string    `gorm:"index;type:varchar(191)" json:"billing_customer_id"`
	Plan               string     `gorm:"type:varchar(20);not null;default:'free'" json:"plan"`
	SubscriptionStatus *string    `gorm:"type:varchar(50)" json:"subscription_status"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// IsPro reports whether the profile currently carries the paid plan.
func (p *Profile) IsPro() bool {
	return p != nil && p.Plan == PlanPro
}

// Status returns the mirrored provider status or an empty string.
func (p *Profile) Status() string {
	if p == nil || p.SubscriptionStatus == nil {
		return ""
	}
	return *p.SubscriptionStatus
}
