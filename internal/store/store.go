// Package store persists the ledger and the import audit trail in SQLite.
// Each business partitions its own records; undo never deletes, it
// tombstones.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/quidbooks/quidbooks/internal/domain"
)

const schemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_meta (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS import_batches (
	id                     TEXT PRIMARY KEY,
	business               TEXT NOT NULL,
	committed_at           TEXT NOT NULL,
	source_file            TEXT NOT NULL,
	bank_format            TEXT NOT NULL,
	income_count           INTEGER NOT NULL,
	expense_count          INTEGER NOT NULL,
	income_total           TEXT NOT NULL,
	expense_total          TEXT NOT NULL,
	status                 TEXT NOT NULL,
	undone_at              TEXT,
	tax_submission_used_at TEXT
);

CREATE TABLE IF NOT EXISTS ledger_records (
	id          TEXT PRIMARY KEY,
	business    TEXT NOT NULL,
	date        TEXT NOT NULL,
	description TEXT NOT NULL,
	amount      TEXT NOT NULL,
	direction   TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	batch_id    TEXT NOT NULL REFERENCES import_batches(id),
	deleted_at  TEXT
);

CREATE INDEX IF NOT EXISTS idx_ledger_business_date ON ledger_records(business, date);
CREATE INDEX IF NOT EXISTS idx_ledger_batch ON ledger_records(batch_id);
CREATE INDEX IF NOT EXISTS idx_batches_business ON import_batches(business, committed_at);
`

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema is at
// the current version.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	ver, err := currentSchemaVersion(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("check schema version: %w", err)
	}
	if ver < schemaVersion {
		if err := migrateSchema(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func currentSchemaVersion(db *sql.DB) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_meta'
	`).Scan(&count)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	var ver int
	err = db.QueryRow("SELECT version FROM schema_meta LIMIT 1").Scan(&ver)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return ver, err
}

func migrateSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaV1); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.Exec("INSERT INTO schema_meta (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("insert schema version: %w", err)
	}
	return nil
}

// CommitBatch persists a history item and its ledger records in one
// transaction. Either everything lands or nothing does.
func (s *Store) CommitBatch(ctx context.Context, item *domain.ImportHistoryItem, records []domain.LedgerRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO import_batches
		(id, business, committed_at, source_file, bank_format,
		 income_count, expense_count, income_total, expense_total, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Business, item.CommittedAt.Format(timeLayout),
		item.SourceFile, item.BankFormat,
		item.IncomeCount, item.ExpenseCount,
		item.IncomeTotal.StringFixed(2), item.ExpenseTotal.StringFixed(2),
		string(item.Status))
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_records
		(id, business, date, description, amount, direction, category, batch_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare record insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.ID, rec.Business, rec.Date.Format(dateLayout), rec.Description,
			rec.Amount.StringFixed(2), string(rec.Direction), string(rec.Category), item.ID)
		if err != nil {
			return fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Snapshot returns a business's live ledger records, oldest first.
// Tombstoned records from undone batches are excluded.
func (s *Store) Snapshot(ctx context.Context, business string) ([]domain.LedgerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, business, date, description, amount, direction, category, batch_id
		FROM ledger_records
		WHERE business = ? AND deleted_at IS NULL
		ORDER BY date, id`, business)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var records []domain.LedgerRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SnapshotBetween returns live records whose dates fall in [from, to],
// oldest first.
func (s *Store) SnapshotBetween(ctx context.Context, business string, from, to time.Time) ([]domain.LedgerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, business, date, description, amount, direction, category, batch_id
		FROM ledger_records
		WHERE business = ? AND deleted_at IS NULL AND date >= ? AND date <= ?
		ORDER BY date, id`, business, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var records []domain.LedgerRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (domain.LedgerRecord, error) {
	var (
		rec                          domain.LedgerRecord
		date, amount, direction, cat string
	)
	if err := rows.Scan(&rec.ID, &rec.Business, &date, &rec.Description,
		&amount, &direction, &cat, &rec.BatchID); err != nil {
		return domain.LedgerRecord{}, fmt.Errorf("scan record: %w", err)
	}

	var err error
	if rec.Date, err = time.Parse(dateLayout, date); err != nil {
		return domain.LedgerRecord{}, fmt.Errorf("record %s: bad date %q: %w", rec.ID, date, err)
	}
	if rec.Amount, err = decimal.NewFromString(amount); err != nil {
		return domain.LedgerRecord{}, fmt.Errorf("record %s: bad amount %q: %w", rec.ID, amount, err)
	}
	rec.Direction = domain.Direction(direction)
	rec.Category = domain.Category(cat)
	return rec, nil
}

// ListBatches returns a business's import history, newest first.
func (s *Store) ListBatches(ctx context.Context, business string) ([]domain.ImportHistoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, business, committed_at, source_file, bank_format,
		       income_count, expense_count, income_total, expense_total,
		       status, undone_at, tax_submission_used_at
		FROM import_batches
		WHERE business = ?
		ORDER BY committed_at DESC, id`, business)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var items []domain.ImportHistoryItem
	for rows.Next() {
		item, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Batch returns one history item by ID, scoped to a business.
func (s *Store) Batch(ctx context.Context, business, batchID string) (*domain.ImportHistoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, business, committed_at, source_file, bank_format,
		       income_count, expense_count, income_total, expense_total,
		       status, undone_at, tax_submission_used_at
		FROM import_batches
		WHERE business = ? AND id = ?`, business, batchID)
	if err != nil {
		return nil, fmt.Errorf("query batch: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("batch %q not found", batchID)
	}
	item, err := scanBatch(rows)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func scanBatch(rows *sql.Rows) (domain.ImportHistoryItem, error) {
	var (
		item                           domain.ImportHistoryItem
		committedAt, incomeT, expenseT string
		status                         string
		undoneAt, taxUsedAt            sql.NullString
	)
	err := rows.Scan(&item.ID, &item.Business, &committedAt, &item.SourceFile,
		&item.BankFormat, &item.IncomeCount, &item.ExpenseCount,
		&incomeT, &expenseT, &status, &undoneAt, &taxUsedAt)
	if err != nil {
		return domain.ImportHistoryItem{}, fmt.Errorf("scan batch: %w", err)
	}

	if item.CommittedAt, err = time.Parse(timeLayout, committedAt); err != nil {
		return domain.ImportHistoryItem{}, fmt.Errorf("batch %s: bad commit time: %w", item.ID, err)
	}
	if item.IncomeTotal, err = decimal.NewFromString(incomeT); err != nil {
		return domain.ImportHistoryItem{}, fmt.Errorf("batch %s: bad income total: %w", item.ID, err)
	}
	if item.ExpenseTotal, err = decimal.NewFromString(expenseT); err != nil {
		return domain.ImportHistoryItem{}, fmt.Errorf("batch %s: bad expense total: %w", item.ID, err)
	}
	item.Status = domain.BatchStatus(status)
	if item.UndoneAt, err = parseNullTime(undoneAt); err != nil {
		return domain.ImportHistoryItem{}, fmt.Errorf("batch %s: bad undone_at: %w", item.ID, err)
	}
	if item.TaxSubmissionUsedAt, err = parseNullTime(taxUsedAt); err != nil {
		return domain.ImportHistoryItem{}, fmt.Errorf("batch %s: bad tax_submission_used_at: %w", item.ID, err)
	}
	return item, nil
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UndoBatch reverses a commit: the batch flips to UNDONE and its records
// are tombstoned, all in one transaction. Only ACTIVE batches can be
// undone; policy checks (undo window, tax lock) belong to the caller.
func (s *Store) UndoBatch(ctx context.Context, business, batchID string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin undo: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE import_batches
		SET status = ?, undone_at = ?
		WHERE business = ? AND id = ? AND status = ?`,
		string(domain.BatchUndone), at.Format(timeLayout),
		business, batchID, string(domain.BatchActive))
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("batch %q is not active or does not exist", batchID)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE ledger_records SET deleted_at = ?
		WHERE business = ? AND batch_id = ? AND deleted_at IS NULL`,
		at.Format(timeLayout), business, batchID)
	if err != nil {
		return fmt.Errorf("tombstone records: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit undo: %w", err)
	}
	return nil
}

// MarkTaxSubmission records that a batch's figures went into a filed tax
// return, locking it permanently. Only ACTIVE batches can be locked.
func (s *Store) MarkTaxSubmission(ctx context.Context, business, batchID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE import_batches
		SET status = ?, tax_submission_used_at = ?
		WHERE business = ? AND id = ? AND status = ?`,
		string(domain.BatchLocked), at.Format(timeLayout),
		business, batchID, string(domain.BatchActive))
	if err != nil {
		return fmt.Errorf("lock batch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("lock batch: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("batch %q is not active or does not exist", batchID)
	}
	return nil
}
