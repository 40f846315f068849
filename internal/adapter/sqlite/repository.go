package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	"trustline/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time checks: Repository implements the persistence ports.
var (
	_ domain.ProductRepository = (*Repository)(nil)
	_ domain.SnapshotStore     = (*Repository)(nil)
)

// Repository implements domain.ProductRepository and domain.SnapshotStore
// using SQLite. The event log append and the version-conditioned registry
// advance share one transaction, which is what makes a transition
// all-or-nothing.
type Repository struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*Repository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows a single writer; a second pooled connection only
	// produces SQLITE_BUSY (and a fresh ":memory:" DSN would get its own
	// database entirely).
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*Repository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (r *Repository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const timeFormat = "2006-01-02T15:04:05.000000Z"

// --- Products ---

func (r *Repository) CreateProduct(ctx context.Context, p domain.Product) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (product_id, seller_id, title, image_url, current_state, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SellerID, p.Title, p.ImageURL, string(p.State), p.Version,
		p.CreatedAt.Format(timeFormat),
		p.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting product: %w", err)
	}
	return nil
}

func (r *Repository) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return scanProduct(r.db.QueryRowContext(ctx,
		`SELECT product_id, seller_id, title, image_url, current_state, version, created_at, updated_at
		 FROM products WHERE product_id = ?`, id,
	))
}

func (r *Repository) ListProducts(ctx context.Context, filter domain.ListFilter) ([]domain.Product, error) {
	query := `SELECT product_id, seller_id, title, image_url, current_state, version, created_at, updated_at FROM products`
	var args []any

	if filter.State != nil {
		query += ` WHERE current_state = ?`
		args = append(args, string(*filter.State))
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// --- Event log ---

func (r *Repository) AppendEvent(ctx context.Context, ev domain.LifecycleEvent, expectedVersion int64) (domain.Product, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Product{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	// Version-conditioned advance: zero rows affected means either the
	// product is gone or a concurrent writer won the race.
	result, err := tx.ExecContext(ctx,
		`UPDATE products SET current_state = ?, version = version + 1, updated_at = ?
		 WHERE product_id = ? AND version = ?`,
		string(ev.CurrentState), time.Now().UTC().Format(timeFormat),
		ev.ProductID, expectedVersion,
	)
	if err != nil {
		return domain.Product{}, fmt.Errorf("advancing product state: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.Product{}, fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM products WHERE product_id = ?`, ev.ProductID,
		).Scan(&exists)
		if err == sql.ErrNoRows {
			return domain.Product{}, domain.ErrProductNotFound
		}
		if err != nil {
			return domain.Product{}, fmt.Errorf("checking product existence: %w", err)
		}
		return domain.Product{}, &domain.ConflictError{
			ProductID:       ev.ProductID,
			ExpectedVersion: expectedVersion,
		}
	}

	meta := ev.Metadata
	if meta == nil {
		meta = domain.Metadata{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return domain.Product{}, fmt.Errorf("encoding event metadata: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO lifecycle_events (event_id, product_id, seller_id, previous_state, current_state, timestamp, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.ProductID, ev.SellerID,
		string(ev.PreviousState), string(ev.CurrentState),
		ev.Timestamp.Format(timeFormat), string(metaJSON),
	); err != nil {
		return domain.Product{}, fmt.Errorf("inserting lifecycle event: %w", err)
	}

	p, err := scanProduct(tx.QueryRowContext(ctx,
		`SELECT product_id, seller_id, title, image_url, current_state, version, created_at, updated_at
		 FROM products WHERE product_id = ?`, ev.ProductID,
	))
	if err != nil {
		return domain.Product{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Product{}, fmt.Errorf("committing transition: %w", err)
	}

	return p, nil
}

func (r *Repository) ListEvents(ctx context.Context, productID string) ([]domain.LifecycleEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, event_id, product_id, seller_id, previous_state, current_state, timestamp, metadata
		 FROM lifecycle_events WHERE product_id = ?
		 ORDER BY timestamp ASC, seq ASC`, productID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing lifecycle events: %w", err)
	}
	defer rows.Close()

	var events []domain.LifecycleEvent
	for rows.Next() {
		var ev domain.LifecycleEvent
		var prev, curr, timestamp, metaJSON string

		if err := rows.Scan(&ev.Seq, &ev.ID, &ev.ProductID, &ev.SellerID, &prev, &curr, &timestamp, &metaJSON); err != nil {
			return nil, fmt.Errorf("scanning lifecycle event: %w", err)
		}

		ev.PreviousState = domain.State(prev)
		ev.CurrentState = domain.State(curr)
		ev.Timestamp, _ = time.Parse(timeFormat, timestamp)
		if err := json.Unmarshal([]byte(metaJSON), &ev.Metadata); err != nil {
			return nil, fmt.Errorf("decoding event metadata: %w", err)
		}

		events = append(events, ev)
	}

	return events, rows.Err()
}

// --- Trust score snapshots ---

func (r *Repository) SaveSnapshot(ctx context.Context, snap domain.TrustScoreSnapshot) error {
	reasons := snap.Reasons
	if reasons == nil {
		reasons = map[string]int{}
	}
	reasonsJSON, err := json.Marshal(reasons)
	if err != nil {
		return fmt.Errorf("encoding snapshot reasons: %w", err)
	}

	// Last writer wins: the snapshot is a replaceable projection.
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO trust_scores (product_id, seller_id, score, reasons, last_updated)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(product_id) DO UPDATE SET
		   seller_id = excluded.seller_id,
		   score = excluded.score,
		   reasons = excluded.reasons,
		   last_updated = excluded.last_updated`,
		snap.ProductID, snap.SellerID, snap.Score, string(reasonsJSON),
		snap.LastUpdated.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("saving trust score snapshot: %w", err)
	}
	return nil
}

func (r *Repository) GetSnapshot(ctx context.Context, productID string) (domain.TrustScoreSnapshot, error) {
	var snap domain.TrustScoreSnapshot
	var reasonsJSON, lastUpdated string

	err := r.db.QueryRowContext(ctx,
		`SELECT product_id, seller_id, score, reasons, last_updated
		 FROM trust_scores WHERE product_id = ?`, productID,
	).Scan(&snap.ProductID, &snap.SellerID, &snap.Score, &reasonsJSON, &lastUpdated)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.TrustScoreSnapshot{}, domain.ErrSnapshotNotFound
		}
		return domain.TrustScoreSnapshot{}, fmt.Errorf("scanning trust score snapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(reasonsJSON), &snap.Reasons); err != nil {
		return domain.TrustScoreSnapshot{}, fmt.Errorf("decoding snapshot reasons: %w", err)
	}
	snap.LastUpdated, _ = time.Parse(timeFormat, lastUpdated)

	return snap, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanProduct.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanProduct scans a product row and rejects states outside the known
// set: a corrupted registry row must abort loudly, not flow onward.
func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var state, createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.SellerID, &p.Title, &p.ImageURL, &state, &p.Version, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("scanning product: %w", err)
	}

	if !domain.KnownState(domain.State(state)) {
		return domain.Product{}, &domain.DataIntegrityError{ProductID: p.ID, State: domain.State(state)}
	}

	p.State = domain.State(state)
	p.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	p.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return p, nil
}
