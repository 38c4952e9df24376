// Package database owns the Postgres connection pool: it opens the gorm
// handle, applies migrations and reports pool health.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rentflow/internal/models"
)

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// Models returns the record managers bound to this connection.
	Models() *models.DB

	// RunMigrations applies the embedded schema migrations.
	RunMigrations() error

	// Close terminates the database connection.
	Close() error
}

type service struct {
	db     *sql.DB
	models *models.DB
	log    logrus.FieldLogger
}

var (
	mu         sync.Mutex
	dbInstance *service
)

// Options tunes the pool and the manager behaviour
type Options struct {
	ReferenceTxTimeout time.Duration
	Logger             logrus.FieldLogger
}

// New opens the pool for dsn, or returns the already open one.
func New(dsn string, opts Options) (Service, error) {
	mu.Lock()
	defer mu.Unlock()
	if dbInstance != nil {
		return dbInstance, nil
	}

	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	svc, err := newService(gormDB, opts)
	if err != nil {
		return nil, err
	}
	dbInstance = svc
	return dbInstance, nil
}

// newService wires an existing gorm handle into a service
func newService(gormDB *gorm.DB, opts Options) (*service, error) {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("could not get sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	m := models.NewDB(gormDB)
	m.References = m.References.WithTxTimeout(opts.ReferenceTxTimeout)
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &service{
		db:     sqlDB,
		models: m,
		log:    opts.Logger.WithField("component", "database"),
	}, nil
}

func (s *service) Models() *models.DB {
	return s.models
}

func (s *service) RunMigrations() error {
	adapter := models.NewMigrateAdapter(s.models.DB)
	if err := adapter.RunMigrations(); err != nil {
		return err
	}
	if version, dirty, err := adapter.GetMigrationVersion(); err == nil {
		s.log.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("database migrated")
	}
	return nil
}

// Health checks the health of the database connection by pinging the database.
// It returns a map with keys indicating various health statistics.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	err := s.db.PingContext(ctx)
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		s.log.WithError(err).Error("database health check failed")
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := s.db.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()
	stats["max_idle_closed"] = strconv.FormatInt(dbStats.MaxIdleClosed, 10)
	stats["max_lifetime_closed"] = strconv.FormatInt(dbStats.MaxLifetimeClosed, 10)

	if dbStats.OpenConnections > 40 {
		stats["message"] = "The database is experiencing heavy load."
	}
	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}
	if dbStats.MaxIdleClosed > int64(dbStats.OpenConnections)/2 {
		stats["message"] = "Many idle connections are being closed, consider revising the connection pool settings."
	}
	if dbStats.MaxLifetimeClosed > int64(dbStats.OpenConnections)/2 {
		stats["message"] = "Many connections are being closed due to max lifetime, consider increasing max lifetime or revising the connection usage pattern."
	}

	return stats
}

// Close closes the database connection and forgets the shared instance.
func (s *service) Close() error {
	mu.Lock()
	defer mu.Unlock()
	if dbInstance == s {
		dbInstance = nil
	}
	s.log.Info("disconnected from database")
	return s.db.Close()
}
