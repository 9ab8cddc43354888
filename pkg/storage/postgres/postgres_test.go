package postgres

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rhuss/stockroom/pkg/api"
	"github.com/rhuss/stockroom/pkg/storage"
	"github.com/rhuss/stockroom/pkg/storage/storagetest"
)

func init() {
	// Configure testcontainers to use podman when no Docker host is set.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	// Ryuk needs privileged mode with podman.
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container and returns a connected Store.
// Tests are skipped if no container runtime is available.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if testing.Short() || os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("skipping PostgreSQL integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("stockroom_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container: %v", err)
	}

	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{
		DSN:            connStr,
		MaxConns:       5,
		MinConns:       1,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func truncate(t *testing.T, s *Store) {
	t.Helper()
	if _, err := s.pool.Exec(context.Background(), "TRUNCATE items"); err != nil {
		t.Fatalf("truncating items: %v", err)
	}
}

func TestPostgres_Suite(t *testing.T) {
	store := setupTestDB(t)

	storagetest.Run(t, func(t *testing.T) storage.ItemStore {
		truncate(t, store)
		return store
	})
}

func TestPostgres_MigrateIsIdempotent(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.migrate(ctx); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	var count int
	if err := store.pool.QueryRow(ctx, "SELECT count(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("counting migrations: %v", err)
	}
	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations failed: %v", err)
	}
	if count != len(migrations) {
		t.Errorf("schema_migrations rows = %d, want %d", count, len(migrations))
	}
}

func TestPostgres_ConstraintMessage(t *testing.T) {
	store := setupTestDB(t)
	truncate(t, store)

	item := storagetest.NewTestItem("u1", "Laptop")
	item.Quantity = -3

	_, err := store.CreateItem(context.Background(), item)
	if !errors.Is(err, storage.ErrConstraint) {
		t.Fatalf("CreateItem = %v, want ErrConstraint", err)
	}
	if !strings.Contains(err.Error(), "Quantity cannot be negative") {
		t.Errorf("error = %q, want quantity message", err.Error())
	}
}

func TestPostgres_NullPatchKeepsValues(t *testing.T) {
	store := setupTestDB(t)
	truncate(t, store)
	ctx := context.Background()

	created, err := store.CreateItem(ctx, storagetest.NewTestItem("u1", "Laptop"))
	if err != nil {
		t.Fatalf("CreateItem failed: %v", err)
	}

	category := "Computers"
	updated, err := store.UpdateItem(ctx, created.ID, api.ItemPatch{Category: &category})
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	if updated.Category != category || updated.Name != created.Name || updated.Quantity != created.Quantity {
		t.Errorf("UpdateItem = %+v", updated)
	}
}

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations failed: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("no embedded migrations")
	}
	for i := 1; i < len(migrations); i++ {
		if migrations[i].version <= migrations[i-1].version {
			t.Errorf("migrations out of order: %s before %s", migrations[i-1].name, migrations[i].name)
		}
	}
	if migrations[0].version != 1 {
		t.Errorf("first migration version = %d, want 1", migrations[0].version)
	}
}

func TestMapError(t *testing.T) {
	if err := mapError("op", errors.New("boom")); errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrConstraint) {
		t.Errorf("generic error mapped to sentinel: %v", err)
	}
	if got := constraintMessage("items_price_nonnegative"); got != "Price cannot be negative" {
		t.Errorf("constraintMessage = %q", got)
	}
}
