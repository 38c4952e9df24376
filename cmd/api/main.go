// Package main starts the rental application API.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"rentflow/internal/application"
	"rentflow/internal/auth"
	"rentflow/internal/config"
	"rentflow/internal/database"
	"rentflow/internal/invite"
	"rentflow/internal/jobs"
	"rentflow/internal/logging"
	"rentflow/internal/memstore"
	"rentflow/internal/notify"
	"rentflow/internal/server"
	"rentflow/internal/server/routes"
	"rentflow/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// inviteStore is everything that reads or writes invites
type inviteStore interface {
	invite.Store
	application.InviteStore
	jobs.AwaitingInvites
}

type notificationStore interface {
	routes.NotificationStore
	notify.Recorder
}

// stores is the persistence surface the services run on, backed either by
// postgres or by process memory
type stores struct {
	users         routes.UserStore
	properties    application.PropertyStore
	enquiries     invite.EnquiryStore
	invites       inviteStore
	applications  application.Store
	forms         application.FormStore
	references    application.ReferenceStore
	tenants       application.TenantStore
	notifications notificationStore
	health        server.HealthFunc
	close         func() error
}

func openStores(cfg *config.Config, logger logrus.FieldLogger) (*stores, error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		m := memstore.New()
		return &stores{
			users:         m.Users,
			properties:    m.Properties,
			enquiries:     m.Enquiries,
			invites:       m.Invites,
			applications:  m.Applications,
			forms:         m.Forms,
			references:    m.References,
			tenants:       m.Tenants,
			notifications: m.Notifications,
			close:         func() error { return nil },
		}, nil
	}

	db, err := database.New(cfg.DBString, database.Options{
		ReferenceTxTimeout: cfg.ReferenceTxTimeout,
		Logger:             logger,
	})
	if err != nil {
		return nil, err
	}
	if cfg.RunMigrations {
		if err := db.RunMigrations(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	m := db.Models()
	return &stores{
		users:         m.Users,
		properties:    m.Properties,
		enquiries:     m.Enquiries,
		invites:       m.Invites,
		applications:  m.Applications,
		forms:         m.Forms,
		references:    m.References,
		tenants:       m.Tenants,
		notifications: m.Notifications,
		health:        db.Health,
		close:         db.Close,
	}, nil
}

func openDocuments(cfg *config.Config) (storage.Store, error) {
	if cfg.S3Bucket != "" {
		return storage.NewLazyS3(storage.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.AWSRegion,
			EndpointURL:   cfg.AWSEndpointURL,
			EncryptionKey: cfg.DocumentEncryptionKey,
		}), nil
	}
	cipher, err := storage.NewCipher(cfg.DocumentEncryptionKey)
	if err != nil {
		return nil, err
	}
	return storage.NewMemory(cipher), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	st, err := openStores(cfg, logger)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	documents, err := openDocuments(cfg)
	if err != nil {
		log.Fatalf("open document storage: %v", err)
	}

	dispatcher := notify.NewDispatcher(notify.Config{
		WorkerCount: cfg.NotifyWorkers,
		Recorder:    st.notifications,
		Sender:      notify.LogSender{Logger: logger.WithField("component", "email")},
		Logger:      logger,
	})

	invites := invite.NewEngine(invite.Deps{
		Invites:    st.invites,
		Enquiries:  st.enquiries,
		Properties: st.properties,
		Users:      st.users,
		Notifier:   dispatcher,
		Logger:     logger.WithField("component", "invites"),
	})
	applications := application.NewService(application.Deps{
		Applications: st.applications,
		Forms:        st.forms,
		References:   st.references,
		Tenants:      st.tenants,
		Invites:      st.invites,
		Responder:    invites,
		Properties:   st.properties,
		Users:        st.users,
		Documents:    documents,
		Notifier:     dispatcher,
		Logger:       logger.WithField("component", "applications"),
		Cooldown:     cfg.ApplicationCooldown,
	})

	scheduler := jobs.NewScheduler(logger)
	err = scheduler.Add(cfg.ReminderSchedule, jobs.NewReminderJob(jobs.ReminderConfig{
		Invites:  st.invites,
		Users:    st.users,
		Notifier: dispatcher,
		After:    cfg.ReminderAfter,
		Logger:   logger,
	}))
	if err != nil {
		log.Fatalf("schedule reminders: %v", err)
	}

	srv := server.NewServer(server.Deps{
		Config:        cfg,
		Invites:       invites,
		Applications:  applications,
		Users:         st.users,
		Notifications: st.notifications,
		Tokens:        auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL),
		Health:        st.health,
		Logger:        logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.Start()
	go func() {
		logger.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("http shutdown")
	}
	scheduler.Stop()
	dispatcher.Close()
	if err := st.close(); err != nil {
		logger.WithError(err).Error("close store")
	}
}
