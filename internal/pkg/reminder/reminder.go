// Package reminder sends renewal reminders to pro users and rolls past-due
// payment dates forward. It runs once a day from a cron schedule.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
	"github.com/IdleArchive/cashduezy-sub000/app/repository"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/mail"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/metrics"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/tracker"
)

// Notifier is the part of mail.Outbox the reminder pass uses.
type Notifier interface {
	Reminder(ctx context.Context, to, name string, items []mail.ReminderItem) error
}

// Result reports what one pass did.
type Result struct {
	Advanced  int
	Users     int
	Reminders int
}

type Reminder struct {
	subs     repository.TrackedSubscriptionRepository
	profiles repository.ProfileRepository
	users    repository.UserRepository
	notifier Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

func New(repos *repository.Repositories, notifier Notifier, mx *metrics.Metrics) *Reminder {
	return &Reminder{
		subs:     repos.TrackedSubscription,
		profiles: repos.Profile,
		users:    repos.User,
		notifier: notifier,
		metrics:  mx,
		now:      time.Now,
	}
}

// Run advances past-due subscriptions, then reminds pro users about the
// payments inside their reminder window.
func (r *Reminder) Run(ctx context.Context) (Result, error) {
	var res Result
	today := startOfDay(r.now())

	advanced, err := r.advancePastDue(today)
	if err != nil {
		return res, err
	}
	res.Advanced = advanced

	userIDs, err := r.profiles.ListProUserIDs()
	if err != nil {
		return res, fmt.Errorf("list pro users: %w", err)
	}
	subs, err := r.subs.ListActiveForUsers(userIDs)
	if err != nil {
		return res, fmt.Errorf("list subscriptions: %w", err)
	}

	due := map[string][]models.TrackedSubscription{}
	var order []string
	for _, s := range subs {
		if !Due(s, today) {
			continue
		}
		if _, ok := due[s.UserID]; !ok {
			order = append(order, s.UserID)
		}
		due[s.UserID] = append(due[s.UserID], s)
	}

	for _, userID := range order {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		n, err := r.remindUser(ctx, userID, due[userID])
		if err != nil {
			log.Warnf("[Reminder] user %s: %v", userID, err)
			continue
		}
		res.Users++
		res.Reminders += n
	}
	return res, nil
}

func (r *Reminder) remindUser(ctx context.Context, userID string, subs []models.TrackedSubscription) (int, error) {
	user, err := r.users.GetByID(userID)
	if err != nil {
		return 0, fmt.Errorf("load user: %w", err)
	}
	items := make([]mail.ReminderItem, 0, len(subs))
	for _, s := range subs {
		items = append(items, mail.ReminderItem{
			Name:   s.Name,
			Amount: tracker.FormatAmount(s.AmountCents) + " " + s.Currency,
			Due:    s.NextPaymentDate.Format("2006-01-02"),
		})
	}
	if err := r.notifier.Reminder(ctx, user.Email, user.Name, items); err != nil {
		return 0, err
	}

	now := r.now()
	for _, s := range subs {
		if err := r.subs.MarkReminded(s.ID, now); err != nil {
			log.Errorf("[Reminder] mark subscription %d reminded: %v", s.ID, err)
		}
	}
	r.metrics.ObserveReminder()
	return len(subs), nil
}

func (r *Reminder) advancePastDue(today time.Time) (int, error) {
	subs, err := r.subs.ListActiveDueBefore(today)
	if err != nil {
		return 0, fmt.Errorf("list past due: %w", err)
	}
	for i := range subs {
		s := &subs[i]
		for s.NextPaymentDate.Before(today) {
			s.AdvanceCycle()
		}
		if err := r.subs.Update(s); err != nil {
			return i, fmt.Errorf("advance subscription %d: %w", s.ID, err)
		}
	}
	return len(subs), nil
}

// Due reports whether s should be reminded about today: the payment is within
// RemindDaysBefore days and no reminder went out since the window opened.
func Due(s models.TrackedSubscription, today time.Time) bool {
	if !s.IsActive {
		return false
	}
	payment := startOfDay(s.NextPaymentDate.In(today.Location()))
	if payment.Before(today) {
		return false
	}
	windowStart := payment.AddDate(0, 0, -s.RemindDaysBefore)
	if today.Before(windowStart) {
		return false
	}
	return s.LastRemindedAt == nil || s.LastRemindedAt.Before(windowStart)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
