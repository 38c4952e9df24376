package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentflow/internal/models"
)

type recorder struct {
	mu    sync.Mutex
	saved []models.Notification
	err   error
}

func (r *recorder) Create(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, *n)
	return nil
}

type sender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (s *sender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func TestDispatcher_DeliversToRecorderAndSender(t *testing.T) {
	rec, snd := &recorder{}, &sender{}
	d := NewDispatcher(Config{WorkerCount: 2, Recorder: rec, Sender: snd})

	userID := uuid.New()
	for i := 0; i < 5; i++ {
		d.Notify(context.Background(), Message{
			UserID: userID,
			Email:  "ada@example.com",
			Kind:   models.NotifyInviteCreated,
			Title:  "You have been invited",
		})
	}
	d.Close()

	require.Len(t, rec.saved, 5)
	assert.Equal(t, userID, rec.saved[0].UserID)
	assert.Equal(t, models.NotifyInviteCreated, rec.saved[0].Kind)
	assert.Len(t, snd.sent, 5)
}

func TestDispatcher_SkipsEmailWithoutAddress(t *testing.T) {
	rec, snd := &recorder{}, &sender{}
	d := NewDispatcher(Config{Recorder: rec, Sender: snd})

	d.Notify(context.Background(), Message{UserID: uuid.New(), Title: "no email"})
	d.Close()

	assert.Len(t, rec.saved, 1)
	assert.Empty(t, snd.sent)
}

func TestDispatcher_FailuresAreLoggedNotReturned(t *testing.T) {
	logger, hook := test.NewNullLogger()
	rec := &recorder{err: errors.New("db down")}
	snd := &sender{err: errors.New("smtp down")}
	d := NewDispatcher(Config{Recorder: rec, Sender: snd, Logger: logger})

	d.Notify(context.Background(), Message{UserID: uuid.New(), Email: "a@example.com"})
	d.Close()

	require.Len(t, hook.AllEntries(), 2)
	for _, entry := range hook.AllEntries() {
		assert.Equal(t, logrus.WarnLevel, entry.Level)
	}
}

func TestDispatcher_IgnoresCallerCancellation(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(Config{Recorder: rec})

	ctx, cancel := context.WithCancel(context.Background())
	d.Notify(ctx, Message{UserID: uuid.New()})
	cancel()
	d.Close()

	assert.Len(t, rec.saved, 1)
}
