package models

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rentflow/internal/apperr"
)

// mockDB binds the managers to sqlmock using matcher
func mockDB(t *testing.T, matcher sqlmock.QueryMatcher) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(matcher))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	return NewDB(gormDB), mock
}

// The history updates reuse each named value several times; every use
// must be rendered as its own positional placeholder.
func TestHistoryUpdates_RenderedSQL(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("completed step", func(t *testing.T) {
		db, mock := mockDB(t, sqlmock.QueryMatcherEqual)
		mock.ExpectExec(`UPDATE applications
SET completed_steps = array_append(completed_steps, CAST($1 AS text)),
    updated_at = NOW()
WHERE id = $2 AND is_deleted = false AND NOT (CAST($3 AS text) = ANY(completed_steps))`).
			WithArgs("EMPLOYMENT", id.String(), "EMPLOYMENT").
			WillReturnResult(sqlmock.NewResult(0, 1))

		added, err := db.Applications.AppendCompletedStep(ctx, id, StepEmployment)
		require.NoError(t, err)
		assert.True(t, added)
	})

	t.Run("append status", func(t *testing.T) {
		db, mock := mockDB(t, sqlmock.QueryMatcherEqual)
		mock.ExpectExec(`UPDATE applications
SET status = $1,
    statuses_completed = array_append(statuses_completed, CAST($2 AS text)),
    updated_at = NOW()
WHERE id = $3 AND is_deleted = false AND NOT (CAST($4 AS text) = ANY(statuses_completed))`).
			WithArgs("SUBMITTED", "SUBMITTED", id.String(), "SUBMITTED").
			WillReturnResult(sqlmock.NewResult(0, 1))

		added, err := db.Applications.AppendStatus(ctx, id, StatusSubmitted)
		require.NoError(t, err)
		assert.True(t, added)
	})

	t.Run("set status", func(t *testing.T) {
		db, mock := mockDB(t, sqlmock.QueryMatcherEqual)
		mock.ExpectExec(`UPDATE applications
SET status = $1,
    statuses_completed = CASE
        WHEN CAST($2 AS text) = ANY(statuses_completed) THEN statuses_completed
        ELSE array_append(statuses_completed, CAST($3 AS text))
    END,
    updated_at = NOW()
WHERE id = $4 AND is_deleted = false`).
			WithArgs("COMPLETED", "COMPLETED", "COMPLETED", id.String()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, db.Applications.SetStatus(ctx, id, StatusCompleted))
	})

	t.Run("invite response", func(t *testing.T) {
		db, mock := mockDB(t, sqlmock.QueryMatcherEqual)
		mock.ExpectExec(`UPDATE application_invites
SET response = $1,
    response_steps_completed = CASE
        WHEN CAST($2 AS text) = ANY(response_steps_completed) THEN response_steps_completed
        ELSE array_append(response_steps_completed, CAST($3 AS text))
    END,
    updated_at = NOW()
WHERE id = $4 AND is_deleted = false`).
			WithArgs("FEEDBACK", "FEEDBACK", "FEEDBACK", id.String()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		_, err := db.Invites.AppendInviteResponse(ctx, id, ResponseFeedback)
		require.Error(t, err)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestAppendCompletedStep_NoRowsUpdated(t *testing.T) {
	ctx := context.Background()
	appendStep := regexp.QuoteMeta("UPDATE applications SET completed_steps = array_append(completed_steps, CAST($1 AS text))")
	countApps := regexp.QuoteMeta(`SELECT count(*) FROM "applications"`)

	t.Run("already present", func(t *testing.T) {
		db, mock := mockDB(t, sqlmock.QueryMatcherRegexp)
		mock.ExpectExec(appendStep).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(countApps).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		added, err := db.Applications.AppendCompletedStep(ctx, uuid.New(), StepEmployment)
		require.NoError(t, err)
		assert.False(t, added)
	})

	t.Run("missing application", func(t *testing.T) {
		db, mock := mockDB(t, sqlmock.QueryMatcherRegexp)
		mock.ExpectExec(appendStep).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(countApps).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		_, err := db.Applications.AppendCompletedStep(ctx, uuid.New(), StepEmployment)
		require.Error(t, err)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})
}

func TestCreateEmployeeReference_Duplicate(t *testing.T) {
	db, mock := mockDB(t, sqlmock.QueryMatcherRegexp)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "employee_reference_forms"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := db.References.CreateEmployeeReference(context.Background(), &EmployeeReferenceForm{ApplicationID: uuid.New()})
	require.Error(t, err)
	assert.Equal(t, apperr.KindDuplicate, apperr.KindOf(err))
	assert.Equal(t, EmployeeReferenceCompleted, err.Error())
}
