package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"rentflow/internal/models"
)

// testDSN is empty when no container could be started
var testDSN string

// mustStartPostgresContainer starts a postgres container and returns a teardown function,
// a connection string, and an error.
func mustStartPostgresContainer() (func(context.Context, ...testcontainers.TerminateOption) error, string, error) {
	var (
		dbName = "rentflow_test"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := dbContainer.Host(context.Background())
	if err != nil {
		return dbContainer.Terminate, "", fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := dbContainer.MappedPort(context.Background(), "5432/tcp")
	if err != nil {
		return dbContainer.Terminate, "", fmt.Errorf("failed to get container mapped port: %w", err)
	}

	connStr := fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPwd, host, port.Port(), dbName)

	return dbContainer.Terminate, connStr, nil
}

// startPostgresContainer reports a missing Docker host as an error.
// testcontainers panics while resolving the host instead of returning one.
func startPostgresContainer() (teardown func(context.Context, ...testcontainers.TerminateOption) error, dsn string, err error) {
	defer func() {
		if r := recover(); r != nil {
			teardown, dsn, err = nil, "", fmt.Errorf("docker host unavailable: %v", r)
		}
	}()
	return mustStartPostgresContainer()
}

func TestMain(m *testing.M) {
	var teardown func(context.Context, ...testcontainers.TerminateOption) error
	if os.Getenv("SKIP_DB_TESTS") == "" {
		var err error
		teardown, testDSN, err = startPostgresContainer()
		if err != nil {
			// Docker is not available; the integration tests skip themselves.
			log.Printf("postgres container unavailable: %v", err)
			testDSN = ""
		}
	}

	exitCode := m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("could not teardown postgres container: %v", err)
		}
	}
	os.Exit(exitCode)
}

// integration opens the shared container database with migrations applied
func integration(t *testing.T) Service {
	t.Helper()
	if testDSN == "" {
		t.Skip("postgres container not available")
	}
	srv, err := New(testDSN, Options{})
	require.NoError(t, err)
	require.NoError(t, srv.RunMigrations())
	return srv
}

func TestNew_ReturnsSharedInstance(t *testing.T) {
	srv := integration(t)
	again, err := New("ignored", Options{})
	require.NoError(t, err)
	assert.Same(t, srv, again)
}

func TestHealth(t *testing.T) {
	srv := integration(t)

	stats := srv.Health()

	if stats["status"] != "up" {
		t.Fatalf("expected status to be up, got %s (error: %s)", stats["status"], stats["error"])
	}
	if errMsg, ok := stats["error"]; ok {
		t.Fatalf("expected error not to be present, got: %s", errMsg)
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	srv := integration(t)
	require.NoError(t, srv.RunMigrations())

	version, dirty, err := models.NewMigrateAdapter(srv.Models().DB).GetMigrationVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.EqualValues(t, 1, version)
}

func TestUpsertOAuthUser(t *testing.T) {
	srv := integration(t)
	ctx := context.Background()
	users := srv.Models().Users

	providerID := uuid.NewString()
	first := &models.User{Provider: "google", ProviderID: providerID, Email: providerID + "@example.com", FirstName: "Ada", Role: models.RoleApplicant}
	require.NoError(t, users.UpsertOAuthUser(ctx, first))
	require.NotEqual(t, uuid.Nil, first.ID)

	second := &models.User{Provider: "google", ProviderID: providerID, Email: providerID + "@example.com", FirstName: "Augusta", Role: models.RoleApplicant}
	require.NoError(t, users.UpsertOAuthUser(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	got, err := users.GetUser(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Augusta", got.FirstName)
}

func TestAppendInviteResponse_KeepsHistoryUnique(t *testing.T) {
	srv := integration(t)
	ctx := context.Background()
	db := srv.Models()

	landlord := &models.User{Email: uuid.NewString() + "@example.com", Role: models.RoleLandlord}
	applicant := &models.User{Email: uuid.NewString() + "@example.com", Role: models.RoleApplicant}
	require.NoError(t, db.Users.Create(ctx, landlord))
	require.NoError(t, db.Users.Create(ctx, applicant))
	property := &models.Property{LandlordID: landlord.ID, Name: "Flat 3"}
	require.NoError(t, db.Properties.Create(ctx, property))

	invite := &models.ApplicationInvite{
		PropertyID:             property.ID,
		InvitedByLandlordID:    landlord.ID,
		UserInvitedID:          applicant.ID,
		Response:               models.ResponsePending,
		ResponseStepsCompleted: models.History[models.InviteResponse]{models.ResponsePending},
	}
	require.NoError(t, db.Invites.CreateInvite(ctx, invite))

	for range 2 {
		_, err := db.Invites.AppendInviteResponse(ctx, invite.ID, models.ResponseAwaitingFeedback)
		require.NoError(t, err)
	}

	got, err := db.Invites.GetInvite(ctx, invite.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResponseAwaitingFeedback, got.Response)
	assert.Equal(t, models.History[models.InviteResponse]{models.ResponsePending, models.ResponseAwaitingFeedback}, got.ResponseStepsCompleted)

	listed, err := db.Invites.ListInvitesWith(ctx, landlord.ID, []models.InviteResponse{models.ResponsePending, models.ResponseAwaitingFeedback})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, invite.ID, listed[0].ID)
}

func TestClose(t *testing.T) {
	srv := integration(t)

	require.NoError(t, srv.Close())
	assert.Nil(t, dbInstance)

	s := srv.(*service)
	assert.Error(t, s.db.Ping(), "expected ping to fail on a closed connection")
}
