package ledger

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kmadira/ledgerstream/internal/domain"
)

//go:embed migrations
var migrationsFS embed.FS

const dayMillis = 24 * 60 * 60 * 1000

// SQLiteStore persists the ledger in a local SQLite database. Timestamps are
// stored as Unix milliseconds so range scans and daily grouping stay integer
// arithmetic.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at path and applies
// pending migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("set up migrate driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("set up migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *SQLiteStore) InsertTransaction(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	createdAt = createdAt.UTC()

	row := s.db.QueryRowContext(ctx, `
        INSERT INTO transactions (kind, amount_cents, status, payee, recipient, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
        RETURNING id;
    `, string(tx.Kind), int64(tx.Amount), string(tx.Status), tx.Payee, tx.Recipient, createdAt.UnixMilli())

	var id int64
	if err := row.Scan(&id); err != nil {
		return domain.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	tx.ID = id
	tx.CreatedAt = createdAt
	return tx, nil
}

func (s *SQLiteStore) GetTransaction(ctx context.Context, id int64) (domain.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, kind, amount_cents, status, payee, recipient, created_at
        FROM transactions
        WHERE id = ?
    `, id)

	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("query transaction %d: %w", id, err)
	}
	return tx, nil
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, filter Filter) ([]domain.Transaction, error) {
	query := `
        SELECT id, kind, amount_cents, status, payee, recipient, created_at
        FROM transactions
        WHERE 1=1`
	var args []any

	if filter.ID != 0 {
		query += " AND id = ?"
		args = append(args, filter.ID)
	}
	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if !filter.From.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.From.UTC().UnixMilli())
	}
	if !filter.To.IsZero() {
		query += " AND created_at < ?"
		args = append(args, filter.To.UTC().UnixMilli())
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	query += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []domain.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) SumAll(ctx context.Context) (domain.Cents, error) {
	var sum int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount_cents), 0) FROM transactions`).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return domain.Cents(sum), nil
}

func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[domain.Status]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM transactions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[domain.Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

func (s *SQLiteStore) CountInRange(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM transactions WHERE created_at >= ? AND created_at < ?
    `, from.UTC().UnixMilli(), to.UTC().UnixMilli()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count transactions in range: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) SumInRange(ctx context.Context, from, to time.Time) (domain.Cents, error) {
	var sum int64
	err := s.db.QueryRowContext(ctx, `
        SELECT COALESCE(SUM(amount_cents), 0) FROM transactions WHERE created_at >= ? AND created_at < ?
    `, from.UTC().UnixMilli(), to.UTC().UnixMilli()).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum transactions in range: %w", err)
	}
	return domain.Cents(sum), nil
}

// DailyTotals groups rows in [from, to) by UTC day in a single round trip.
func (s *SQLiteStore) DailyTotals(ctx context.Context, from, to time.Time) ([]DayTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT created_at / ? AS day, COUNT(*), SUM(amount_cents)
        FROM transactions
        WHERE created_at >= ? AND created_at < ?
        GROUP BY day
        ORDER BY day
    `, dayMillis, from.UTC().UnixMilli(), to.UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("group daily totals: %w", err)
	}
	defer rows.Close()

	var out []DayTotal
	for rows.Next() {
		var day, count, amount int64
		if err := rows.Scan(&day, &count, &amount); err != nil {
			return nil, fmt.Errorf("scan daily total: %w", err)
		}
		out = append(out, DayTotal{
			Day:    time.UnixMilli(day * dayMillis).UTC(),
			Count:  count,
			Amount: domain.Cents(amount),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily totals: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var (
		tx        domain.Transaction
		kind      string
		amount    int64
		status    string
		createdAt int64
	)
	if err := row.Scan(&tx.ID, &kind, &amount, &status, &tx.Payee, &tx.Recipient, &createdAt); err != nil {
		return domain.Transaction{}, err
	}
	tx.Kind = domain.Kind(kind)
	tx.Amount = domain.Cents(amount)
	tx.Status = domain.Status(status)
	tx.CreatedAt = time.UnixMilli(createdAt).UTC()
	return tx, nil
}
