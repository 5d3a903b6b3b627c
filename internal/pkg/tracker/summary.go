package tracker

import (
	"math"
	"sort"
	"time"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
	"github.com/IdleArchive/cashduezy-sub000/app/repository"
)

// UpcomingWindow is how far ahead the summary lists due payments.
const UpcomingWindow = 30 * 24 * time.Hour

// CurrencyTotal holds the normalised totals of one currency.
type CurrencyTotal struct {
	Currency     string `json:"currency"`
	MonthlyCents int64  `json:"monthly_cents"`
	YearlyCents  int64  `json:"yearly_cents"`
}

type CategoryTotal struct {
	Category     string `json:"category"`
	Currency     string `json:"currency"`
	MonthlyCents int64  `json:"monthly_cents"`
	Count        int    `json:"count"`
}

type Summary struct {
	Count       int                          `json:"count"`
	ActiveCount int                          `json:"active_count"`
	Totals      []CurrencyTotal              `json:"totals"`
	ByCategory  []CategoryTotal              `json:"by_category"`
	Upcoming    []models.TrackedSubscription `json:"upcoming"`
}

// Summary computes totals for the user's active subscriptions.
func (s *Service) Summary(userID string) (*Summary, error) {
	subs, err := s.repo.ListForUser(userID, repository.ListFilter{Sort: "next_payment"})
	if err != nil {
		return nil, err
	}
	return Summarize(subs, s.now()), nil
}

// Summarize is the pure part of Summary. Inactive entries only count toward Count.
func Summarize(subs []models.TrackedSubscription, now time.Time) *Summary {
	out := &Summary{Count: len(subs), Totals: []CurrencyTotal{}, ByCategory: []CategoryTotal{}, Upcoming: []models.TrackedSubscription{}}

	monthly := map[string]float64{}
	type catKey struct{ cat, cur string }
	cats := map[catKey]*CategoryTotal{}
	catMonthly := map[catKey]float64{}
	horizon := now.Add(UpcomingWindow)

	for i := range subs {
		sub := subs[i]
		if !sub.IsActive {
			continue
		}
		out.ActiveCount++
		m := sub.MonthlyCents()
		monthly[sub.Currency] += m

		cat := sub.Category
		if cat == "" {
			cat = "other"
		}
		k := catKey{cat, sub.Currency}
		if cats[k] == nil {
			cats[k] = &CategoryTotal{Category: cat, Currency: sub.Currency}
		}
		cats[k].Count++
		catMonthly[k] += m

		if !sub.NextPaymentDate.Before(startOfDay(now)) && sub.NextPaymentDate.Before(horizon) {
			out.Upcoming = append(out.Upcoming, sub)
		}
	}

	for cur, m := range monthly {
		out.Totals = append(out.Totals, CurrencyTotal{
			Currency:     cur,
			MonthlyCents: int64(math.Round(m)),
			YearlyCents:  int64(math.Round(m * 12)),
		})
	}
	sort.Slice(out.Totals, func(i, j int) bool { return out.Totals[i].Currency < out.Totals[j].Currency })

	for k, ct := range cats {
		ct.MonthlyCents = int64(math.Round(catMonthly[k]))
		out.ByCategory = append(out.ByCategory, *ct)
	}
	sort.Slice(out.ByCategory, func(i, j int) bool {
		a, b := out.ByCategory[i], out.ByCategory[j]
		if a.MonthlyCents != b.MonthlyCents {
			return a.MonthlyCents > b.MonthlyCents
		}
		return a.Category < b.Category
	})
	sort.SliceStable(out.Upcoming, func(i, j int) bool {
		return out.Upcoming[i].NextPaymentDate.Before(out.Upcoming[j].NextPaymentDate)
	})
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
