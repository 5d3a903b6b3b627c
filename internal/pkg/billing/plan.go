package billing

import (
	"github.com/IdleArchive/cashduezy-sub000/app/models"
)

// StatusCanceled is written when a subscription is deleted at the provider.
const StatusCanceled = "canceled"

// planForStatus maps a provider subscription status onto the local plan.
// Only "active" entitles; trialing and past_due map to free.
func planForStatus(status string) string {
	if status == "active" {
		return models.PlanPro
	}
	return models.PlanFree
}
