package entitlements

import (
	"strings"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
)

type Plan string

const (
	PlanFree Plan = models.PlanFree
	PlanPro  Plan = models.PlanPro
)

// FreeSubscriptionLimit is the number of tracked subscriptions on the free plan.
const FreeSubscriptionLimit = 10

// Normalize maps unknown plan strings to free.
func Normalize(plan string) Plan {
	if Plan(strings.ToLower(strings.TrimSpace(plan))) == PlanPro {
		return PlanPro
	}
	return PlanFree
}

// SubscriptionLimit returns the tracking limit for plan; 0 means unlimited.
func SubscriptionLimit(plan Plan) int {
	if plan == PlanPro {
		return 0
	}
	return FreeSubscriptionLimit
}

// CanTrackMore reports whether a user with current tracked entries may add one.
func CanTrackMore(plan Plan, current int64) bool {
	limit := SubscriptionLimit(plan)
	return limit == 0 || current < int64(limit)
}

func CanExportCSV(plan Plan) bool {
	return plan == PlanPro
}

func ReceivesReminders(plan Plan) bool {
	return plan == PlanPro
}
