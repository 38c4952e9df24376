package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rentflow/internal/metrics"
	"rentflow/internal/models"
	"rentflow/internal/notify"
)

// AwaitingInvites lists invites that reached APPLY before cutoff without an
// application being started
type AwaitingInvites interface {
	ListAwaitingApplication(ctx context.Context, cutoff time.Time) ([]models.ApplicationInvite, error)
}

// ReminderJob nudges applicants who were cleared to apply but never did.
// Each invite is reminded at most once per process.
type ReminderJob struct {
	invites  AwaitingInvites
	users    notify.UserLookup
	notifier notify.Notifier
	after    time.Duration
	now      func() time.Time
	log      logrus.FieldLogger

	mu       sync.Mutex
	reminded map[uuid.UUID]struct{}
}

type ReminderConfig struct {
	Invites  AwaitingInvites
	Users    notify.UserLookup
	Notifier notify.Notifier
	After    time.Duration
	Now      func() time.Time
	Logger   logrus.FieldLogger
}

func NewReminderJob(cfg ReminderConfig) *ReminderJob {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Nop{}
	}
	return &ReminderJob{
		invites:  cfg.Invites,
		users:    cfg.Users,
		notifier: cfg.Notifier,
		after:    cfg.After,
		now:      cfg.Now,
		log:      cfg.Logger.WithField("job", "application_reminder"),
		reminded: make(map[uuid.UUID]struct{}),
	}
}

func (j *ReminderJob) Name() string { return "application_reminder" }

func (j *ReminderJob) Run(ctx context.Context) error {
	invites, err := j.invites.ListAwaitingApplication(ctx, j.now().Add(-j.after))
	if err != nil {
		return fmt.Errorf("list invites awaiting application: %w", err)
	}

	sent := 0
	for i := range invites {
		inv := &invites[i]
		if !j.claim(inv.ID) {
			continue
		}
		notify.ToUser(ctx, j.notifier, j.users, inv.UserInvitedID, notify.Message{
			Kind:  models.NotifyApplicationReminder,
			Title: "Reminder: start your application",
			Body:  fmt.Sprintf("You have been invited to apply for %s.", propertyName(inv)),
			Link:  "/invites/" + inv.ID.String(),
		})
		metrics.RecordReminder("scheduled")
		sent++
	}

	if sent > 0 {
		j.log.WithField("count", sent).Info("sent application reminders")
	}
	return nil
}

func (j *ReminderJob) claim(id uuid.UUID) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.reminded[id]; ok {
		return false
	}
	j.reminded[id] = struct{}{}
	return true
}

func propertyName(inv *models.ApplicationInvite) string {
	if inv.Property != nil && inv.Property.Name != "" {
		return inv.Property.Name
	}
	return "a property"
}
