package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestStoreIntegration runs the engagement store against a real postgres.
// Enable with BILLTRACKER_INTEGRATION=1 (requires a docker daemon).
func TestStoreIntegration(t *testing.T) {
	if os.Getenv("BILLTRACKER_INTEGRATION") == "" {
		t.Skip("set BILLTRACKER_INTEGRATION=1 to run")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "billtracker",
			"POSTGRES_PASSWORD": "billtracker",
			"POSTGRES_DB":       "billtracker",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(1).WithStartupTimeout(60 * time.Second),
	}
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("starting postgres: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	host, err := pg.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://billtracker:billtracker@%s:%s/billtracker?sslmode=disable", host, port.Port())

	m, err := migrate.New(findMigrationsDir(t), dsn)
	if err != nil {
		t.Fatalf("migrate.New: %v", err)
	}
	if err := m.Up(); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	s, err := NewWithDSN(ctx, dsn)
	if err != nil {
		t.Fatalf("NewWithDSN: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	userID, err := s.CreateUser(ctx, "voter@example.com", "x")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := s.CreateUser(ctx, "voter@example.com", "x"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on duplicate email, got %v", err)
	}

	if err := s.CastVote(ctx, userID, "hr1-118", VoteUp); err != nil {
		t.Fatalf("CastVote: %v", err)
	}
	// Second cast overwrites, no duplicate row.
	if err := s.CastVote(ctx, userID, "hr1-118", VoteDown); err != nil {
		t.Fatalf("CastVote overwrite: %v", err)
	}
	up, down, err := s.VoteCounts(ctx, "hr1-118")
	if err != nil {
		t.Fatalf("VoteCounts: %v", err)
	}
	if up != 0 || down != 1 {
		t.Fatalf("counts = %d/%d, want 0/1", up, down)
	}

	c, err := s.AddComment(ctx, userID, "hr1-118", "Strongly support.")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if c.Email != "voter@example.com" {
		t.Fatalf("commenter email = %q", c.Email)
	}
	comments, err := s.ListComments(ctx, "hr1-118")
	if err != nil || len(comments) != 1 {
		t.Fatalf("ListComments: %v (%d)", err, len(comments))
	}
	if err := s.DeleteComment(ctx, c.ID, userID); err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}

	if err := s.AddToWatchlist(ctx, userID, "hr1-118"); err != nil {
		t.Fatalf("AddToWatchlist: %v", err)
	}
	// Idempotent add.
	if err := s.AddToWatchlist(ctx, userID, "hr1-118"); err != nil {
		t.Fatalf("AddToWatchlist repeat: %v", err)
	}
	items, err := s.Watchlist(ctx, userID)
	if err != nil || len(items) != 1 {
		t.Fatalf("Watchlist: %v (%d)", err, len(items))
	}

	alertID, err := s.CreateAlert(ctx, userID, "Student Loans")
	if err != nil {
		t.Fatalf("CreateAlert: %v", err)
	}
	if _, err := s.CreateAlert(ctx, userID, "Student Loans"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on duplicate alert, got %v", err)
	}
	if err := s.DeleteAlert(ctx, alertID, userID); err != nil {
		t.Fatalf("DeleteAlert: %v", err)
	}
}

func findMigrationsDir(t *testing.T) string {
	t.Helper()
	cwd, _ := os.Getwd()
	for i := 0; i < 6; i++ {
		candidate := filepath.Join(cwd, "migrations")
		if st, err := os.Stat(candidate); err == nil && st.IsDir() {
			return "file://" + candidate
		}
		cwd = filepath.Dir(cwd)
	}
	t.Fatalf("could not locate migrations directory from test cwd")
	return ""
}
