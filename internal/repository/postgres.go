package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"

	"github.com/poonnyworld/pbz-bots/internal/domain"
)

//go:embed schema.sql
var schema string

type PostgresRepo struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresRepo opens the database with driverName ("pgx" or "postgres").
func NewPostgresRepo(driverName, dsn string, timeout time.Duration) (*PostgresRepo, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("cannot ping db: %w", err)
	}
	return &PostgresRepo{db: db, timeout: timeout}, nil
}

func (r *PostgresRepo) Close() error {
	return r.db.Close()
}

func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "repo: EnsureSchema")
	}
	return nil
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

type rowScanner interface {
	Scan(dest ...any) error
}

const accountColumns = `id, display_name, balance, last_daily_claim, wager_count_today, wager_window_start, created_at, updated_at`

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		a           domain.Account
		lastClaim   sql.NullTime
		windowStart sql.NullTime
	)
	err := row.Scan(&a.ID, &a.DisplayName, &a.Balance, &lastClaim, &a.WagerCountToday, &windowStart,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.LastDailyClaim = lastClaim.Time
	a.WagerWindowStart = windowStart.Time
	return &a, nil
}

const itemColumns = `id, name, description, cost, stock, is_active, created_at`

func scanItem(row rowScanner) (*domain.Item, error) {
	var it domain.Item
	if err := row.Scan(&it.ID, &it.Name, &it.Description, &it.Cost, &it.Stock, &it.IsActive, &it.CreatedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func (r *PostgresRepo) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1;`
	acc, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrap(err, "repo: GetAccount")
	}
	return acc, nil
}

func (r *PostgresRepo) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY balance DESC, id;`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrap(err, "repo: ListAccounts")
	}
	defer rows.Close()

	var res []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, wrap(err, "repo: ListAccounts")
		}
		res = append(res, *a)
	}
	return res, wrap(rows.Err(), "repo: ListAccounts")
}

func (r *PostgresRepo) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1;`
	it, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrap(err, "repo: GetItem")
	}
	return it, nil
}

func (r *PostgresRepo) ListActiveItems(ctx context.Context) ([]domain.Item, error) {
	return r.listItems(ctx, `SELECT `+itemColumns+` FROM items WHERE is_active ORDER BY cost, id;`, "repo: ListActiveItems")
}

func (r *PostgresRepo) ListItems(ctx context.Context) ([]domain.Item, error) {
	return r.listItems(ctx, `SELECT `+itemColumns+` FROM items ORDER BY id;`, "repo: ListItems")
}

func (r *PostgresRepo) listItems(ctx context.Context, query, op string) ([]domain.Item, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrap(err, op)
	}
	defer rows.Close()

	var res []domain.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, wrap(err, op)
		}
		res = append(res, *it)
	}
	return res, wrap(rows.Err(), op)
}

func (r *PostgresRepo) CreateItem(ctx context.Context, item *domain.Item) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `INSERT INTO items (name, description, cost, stock, is_active)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id, created_at;`
	err := r.db.QueryRowContext(ctx, query, item.Name, item.Description, item.Cost, item.Stock, item.IsActive).
		Scan(&item.ID, &item.CreatedAt)
	return wrap(err, "repo: CreateItem")
}

func (r *PostgresRepo) ListRedemptions(ctx context.Context, limit int) ([]domain.Redemption, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, account_id, item_id, cost, created_at
	          FROM redemptions
	          ORDER BY id DESC LIMIT $1;`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, wrap(err, "repo: ListRedemptions")
	}
	defer rows.Close()

	var res []domain.Redemption
	for rows.Next() {
		var red domain.Redemption
		if err := rows.Scan(&red.ID, &red.AccountID, &red.ItemID, &red.Cost, &red.CreatedAt); err != nil {
			return nil, wrap(err, "repo: ListRedemptions")
		}
		res = append(res, red)
	}
	return res, wrap(rows.Err(), "repo: ListRedemptions")
}

// RunInTx runs fn in a READ COMMITTED transaction; correctness relies on the
// row locks taken by LockAccount and LockItem.
func (r *PostgresRepo) RunInTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(err, "repo: begin")
	}
	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	// the outcome of a failed commit is unknown, so it is never marked retryable
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "repo: commit")
	}
	return nil
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) InsertAccount(ctx context.Context, acc *domain.Account) (bool, error) {
	query := `INSERT INTO accounts (id, display_name, balance, last_daily_claim, wager_count_today, wager_window_start, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	          ON CONFLICT (id) DO NOTHING;`
	res, err := t.tx.ExecContext(ctx, query, acc.ID, acc.DisplayName, acc.Balance, nullTime(acc.LastDailyClaim),
		acc.WagerCountToday, nullTime(acc.WagerWindowStart), acc.CreatedAt)
	if err != nil {
		return false, wrap(err, "repo: InsertAccount")
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, wrap(err, "repo: InsertAccount")
	}
	return rows == 1, nil
}

func (t *pgTx) LockAccount(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE;`
	acc, err := scanAccount(t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrap(err, "repo: LockAccount")
	}
	return acc, nil
}

func (t *pgTx) SaveAccount(ctx context.Context, acc *domain.Account) error {
	query := `UPDATE accounts
	          SET display_name = $2, balance = $3, last_daily_claim = $4,
	              wager_count_today = $5, wager_window_start = $6, updated_at = $7
	          WHERE id = $1;`
	res, err := t.tx.ExecContext(ctx, query, acc.ID, acc.DisplayName, acc.Balance, nullTime(acc.LastDailyClaim),
		acc.WagerCountToday, nullTime(acc.WagerWindowStart), acc.UpdatedAt)
	if err != nil {
		return wrap(err, "repo: SaveAccount")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("no account updated, id=%s not found", acc.ID)
	}
	return nil
}

func (t *pgTx) LockItem(ctx context.Context, id int64) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 FOR UPDATE;`
	it, err := scanItem(t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, wrap(err, "repo: LockItem")
	}
	return it, nil
}

func (t *pgTx) SaveItem(ctx context.Context, item *domain.Item) error {
	query := `UPDATE items
	          SET name = $2, description = $3, cost = $4, stock = $5, is_active = $6
	          WHERE id = $1;`
	res, err := t.tx.ExecContext(ctx, query, item.ID, item.Name, item.Description, item.Cost, item.Stock, item.IsActive)
	if err != nil {
		return wrap(err, "repo: SaveItem")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("no item updated, id=%d not found", item.ID)
	}
	return nil
}

func (t *pgTx) AppendRedemption(ctx context.Context, red *domain.Redemption) error {
	query := `INSERT INTO redemptions (account_id, item_id, cost, created_at) VALUES ($1, $2, $3, $4) RETURNING id;`
	err := t.tx.QueryRowContext(ctx, query, red.AccountID, red.ItemID, red.Cost, red.CreatedAt).Scan(&red.ID)
	return wrap(err, "repo: AppendRedemption")
}

func (t *pgTx) AppendEntry(ctx context.Context, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (id, account_id, kind, delta, balance_after, reference, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7);`
	_, err := t.tx.ExecContext(ctx, query, e.ID, e.AccountID, string(e.Kind), e.Delta, e.BalanceAfter, e.Reference, e.CreatedAt)
	return wrap(err, "repo: AppendEntry")
}
