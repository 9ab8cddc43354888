// Package postgres provides a PostgreSQL implementation of storage.ItemStore.
// It uses pgx/v5 for connection pooling. Quantity and price constraints are
// enforced by CHECK constraints in the schema.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/stockroom/pkg/api"
	"github.com/rhuss/stockroom/pkg/debug"
	"github.com/rhuss/stockroom/pkg/storage"
)

// PostgreSQL error codes mapped to storage errors.
const (
	codeCheckViolation    = "23514"
	codeInvalidTextRepr   = "22P02"
	codeNumericOutOfRange = "22003"
)

// itemColumns is the projection shared by every query returning items.
const itemColumns = `id::text, seq, owner_id, name, description, quantity, price, category, created_at, updated_at`

// Store is a PostgreSQL-backed ItemStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.ItemStore at compile time.
var _ storage.ItemStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// CreateItem inserts a new item. Timestamps come from the database clock.
func (s *Store) CreateItem(ctx context.Context, item *api.Item) (*api.Item, error) {
	if err := storage.CheckQuantity(item.Quantity); err != nil {
		return nil, err
	}
	id := api.NewItemID()

	row := s.pool.QueryRow(ctx, `
		WITH ts AS (SELECT clock_timestamp() AS now)
		INSERT INTO items (id, owner_id, name, description, quantity, price, category, created_at, updated_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, ts.now, ts.now FROM ts
		RETURNING `+itemColumns,
		id, item.OwnerID, item.Name, item.Description, item.Quantity, item.Price, item.Category,
	)

	created, err := scanItem(row)
	if err != nil {
		return nil, mapError("inserting item", err)
	}

	debug.Log("store", "item created", "backend", "postgres", "id", created.ID, "owner", created.OwnerID)
	return created, nil
}

// GetItem retrieves an item by ID.
func (s *Store) GetItem(ctx context.Context, id string) (*api.Item, error) {
	if !api.ValidateItemID(id) {
		return nil, storage.ErrNotFound
	}

	row := s.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)

	item, err := scanItem(row)
	if err != nil {
		return nil, mapError("querying item", err)
	}
	return item, nil
}

// ListItems returns the owner's items, newest first.
func (s *Store) ListItems(ctx context.Context, ownerID string) ([]*api.Item, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE owner_id = $1
		ORDER BY created_at DESC, seq DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*api.Item, error) {
		return scanItem(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scanning items: %w", err)
	}
	if items == nil {
		items = []*api.Item{}
	}
	return items, nil
}

// UpdateItem applies patch in a single statement. Absent patch fields keep
// their stored values. UpdatedAt is bumped past its previous value even if
// the database clock has not advanced.
func (s *Store) UpdateItem(ctx context.Context, id string, patch api.ItemPatch) (*api.Item, error) {
	if !api.ValidateItemID(id) {
		return nil, storage.ErrNotFound
	}
	if patch.Quantity != nil {
		if err := storage.CheckQuantity(*patch.Quantity); err != nil {
			return nil, err
		}
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE items SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			quantity    = COALESCE($4, quantity),
			price       = COALESCE($5, price),
			category    = COALESCE($6, category),
			updated_at  = GREATEST(clock_timestamp(), updated_at + interval '1 microsecond')
		WHERE id = $1
		RETURNING `+itemColumns,
		id, patch.Name, patch.Description, patch.Quantity, patch.Price, patch.Category,
	)

	item, err := scanItem(row)
	if err != nil {
		return nil, mapError("updating item", err)
	}
	return item, nil
}

// DeleteItem permanently removes an item.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	if !api.ValidateItemID(id) {
		return storage.ErrNotFound
	}

	result, err := s.pool.Exec(ctx, "DELETE FROM items WHERE id = $1", id)
	if err != nil {
		return mapError("deleting item", err)
	}

	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// scanItem reads one row projected with itemColumns.
func scanItem(row pgx.Row) (*api.Item, error) {
	var item api.Item
	var createdAt, updatedAt time.Time

	if err := row.Scan(
		&item.ID, &item.Seq, &item.OwnerID,
		&item.Name, &item.Description, &item.Quantity, &item.Price, &item.Category,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	item.CreatedAt = storage.Timestamp(createdAt)
	item.UpdatedAt = storage.Timestamp(updatedAt)
	return &item, nil
}

// mapError translates pgx errors into storage sentinel errors.
func mapError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeCheckViolation, codeNumericOutOfRange:
			return fmt.Errorf("%w: %s", storage.ErrConstraint, constraintMessage(pgErr.ConstraintName))
		case codeInvalidTextRepr:
			return storage.ErrNotFound
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}

// constraintMessage turns a CHECK constraint name into a client-facing message.
func constraintMessage(name string) string {
	switch name {
	case "items_quantity_nonnegative":
		return "Quantity cannot be negative"
	case "items_price_nonnegative":
		return "Price cannot be negative"
	case "items_name_required":
		return "Please provide a product name"
	case "items_description_required":
		return "Please provide a description"
	case "items_category_required":
		return "Please provide a category"
	default:
		return "value out of range"
	}
}
