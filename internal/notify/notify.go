// Package notify delivers fire-and-forget notifications. A message is
// stored as an in-app notification and handed to a Sender (email) on a
// worker pool; failures are logged and never reach the caller.
package notify

import (
	"context"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rentflow/internal/models"
)

const defaultTimeout = 15 * time.Second

// Message describes one notification to one user
type Message struct {
	UserID uuid.UUID
	Email  string
	Kind   models.NotificationKind
	Title  string
	Body   string
	Link   string
}

// Sender delivers a message outside the application, typically by email
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Recorder persists the in-app copy of a message
type Recorder interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Notifier is what services depend on
type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

type Config struct {
	WorkerCount int
	Timeout     time.Duration
	Recorder    Recorder
	Sender      Sender
	Logger      logrus.FieldLogger
}

// Dispatcher runs deliveries on a bounded worker pool
type Dispatcher struct {
	workerPool *workerpool.WorkerPool
	recorder   Recorder
	sender     Sender
	timeout    time.Duration
	log        logrus.FieldLogger
}

func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Dispatcher{
		workerPool: workerpool.New(cfg.WorkerCount),
		recorder:   cfg.Recorder,
		sender:     cfg.Sender,
		timeout:    cfg.Timeout,
		log:        cfg.Logger.WithField("component", "notify"),
	}
}

// Notify queues msg for delivery and returns immediately. The request
// context's values are kept but its cancellation is not.
func (d *Dispatcher) Notify(ctx context.Context, msg Message) {
	base := context.WithoutCancel(ctx)
	d.workerPool.Submit(func() {
		ctx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()
		d.deliver(ctx, msg)
	})
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	fields := logrus.Fields{"user_id": msg.UserID, "kind": msg.Kind}

	if d.recorder != nil {
		n := &models.Notification{
			UserID:  msg.UserID,
			Kind:    msg.Kind,
			Title:   msg.Title,
			Message: msg.Body,
			Link:    msg.Link,
		}
		if err := d.recorder.Create(ctx, n); err != nil {
			d.log.WithFields(fields).WithError(err).Warn("failed to store notification")
		}
	}

	if d.sender != nil && msg.Email != "" {
		if err := d.sender.Send(ctx, msg); err != nil {
			d.log.WithFields(fields).WithError(err).Warn("failed to send notification email")
		}
	}
}

// Close waits for queued deliveries to finish
func (d *Dispatcher) Close() {
	d.workerPool.StopWait()
}

// LogSender writes outgoing email to the log. It is used until a mail
// provider is configured.
type LogSender struct {
	Logger logrus.FieldLogger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	s.Logger.WithFields(logrus.Fields{
		"to":    msg.Email,
		"kind":  msg.Kind,
		"title": msg.Title,
	}).Info("email notification")
	return nil
}

// UserLookup resolves a recipient's email address
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ToUser addresses msg to userID and queues it. When the user cannot be
// loaded the in-app notification is still recorded.
func ToUser(ctx context.Context, n Notifier, users UserLookup, userID uuid.UUID, msg Message) {
	msg.UserID = userID
	if users != nil {
		if user, err := users.GetUser(ctx, userID); err == nil {
			msg.Email = user.Email
		}
	}
	n.Notify(ctx, msg)
}

// Nop discards every message
type Nop struct{}

func (Nop) Notify(context.Context, Message) {}
