package models

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"rentflow/internal/apperr"
)

// DB holds the database connection and all model managers
type DB struct {
	*gorm.DB
	Users         *UserManager
	Properties    *PropertyManager
	Enquiries     *EnquiryManager
	Invites       *InviteManager
	Applications  *ApplicationManager
	Forms         *FormManager
	References    *ReferenceManager
	Tenants       *TenantManager
	Notifications *NotificationManager
}

// NewDB wraps an open connection and initializes all managers
func NewDB(gormDB *gorm.DB) *DB {
	return &DB{
		DB:            gormDB,
		Users:         NewUserManager(gormDB),
		Properties:    NewPropertyManager(gormDB),
		Enquiries:     NewEnquiryManager(gormDB),
		Invites:       NewInviteManager(gormDB),
		Applications:  NewApplicationManager(gormDB),
		Forms:         NewFormManager(gormDB),
		References:    NewReferenceManager(gormDB),
		Tenants:       NewTenantManager(gormDB),
		Notifications: NewNotificationManager(gormDB),
	}
}

// AutoMigrate runs GORM auto-migration for all models. The SQL migrations
// are authoritative; this is used by tests that want a throwaway schema.
func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(
		&User{},
		&Property{},
		&Enquiry{},
		&ApplicantPersonalDetails{},
		&ResidentialInformation{},
		&PreviousAddress{},
		&EmploymentInformation{},
		&GuarantorInformation{},
		&EmergencyContact{},
		&Referee{},
		&Application{},
		&ApplicationInvite{},
		&ApplicationDocument{},
		&ApplicationQuestion{},
		&Declaration{},
		&TenancyHistory{},
		&ExternalLandlord{},
		&TenantConduct{},
		&LandlordReferenceForm{},
		&GuarantorEmploymentInfo{},
		&GuarantorAgreement{},
		&EmployeeReferenceForm{},
		&Tenant{},
		&Notification{},
	)
}

// Transaction runs a function within a database transaction
func (db *DB) Transaction(fn func(*DB) error) error {
	return db.DB.Transaction(func(tx *gorm.DB) error {
		txDB := NewDB(tx)
		txDB.References.txTimeout = db.References.txTimeout
		return fn(txDB)
	})
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Django-like convenience methods

// GetObjectOr404 retrieves an object or returns a NotFound error (similar to Django's get_object_or_404)
func GetObjectOr404[T any](db *gorm.DB, what string, conditions ...interface{}) (*T, error) {
	var obj T
	if err := db.First(&obj, conditions...).Error; err != nil {
		return nil, notFound(err, what)
	}
	return &obj, nil
}

// Exists checks if a record exists (similar to Django's exists())
func Exists[T any](db *gorm.DB, conditions ...interface{}) (bool, error) {
	var count int64
	err := db.Model(new(T)).Where(conditions[0], conditions[1:]...).Count(&count).Error
	return count > 0, err
}

// Count returns the count of records (similar to Django's count())
func Count[T any](db *gorm.DB, conditions ...interface{}) (int64, error) {
	var count int64
	query := db.Model(new(T))
	if len(conditions) > 0 {
		query = query.Where(conditions[0], conditions[1:]...)
	}
	err := query.Count(&count).Error
	return count, err
}

// notFound converts gorm's record-not-found into the shared taxonomy
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what)
	}
	return err
}

const uniqueViolation = "23505"

// duplicate converts a unique-constraint violation into a DuplicateCreation
// error carrying msg. Other errors are returned unchanged.
func duplicate(err error, msg string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.Duplicate(msg)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Duplicate(msg)
	}
	return err
}
