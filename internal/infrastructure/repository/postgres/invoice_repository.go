package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

const invoiceColumns = `id, filename, mime_type, storage_path, status, recognized_text, extraction, error_message, created_at, updated_at, processed_at`

type InvoiceRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *InvoiceRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2025062801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS invoices (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	status TEXT NOT NULL,
	recognized_text TEXT,
	extraction JSONB,
	parsing_method TEXT,
	vendor_name TEXT,
	total_amount DOUBLE PRECISION,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(status);
CREATE INDEX IF NOT EXISTS idx_invoices_created_at ON invoices(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_invoices_processed_at ON invoices(processed_at) WHERE status = 'completed';
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO invoices (
	id, filename, mime_type, storage_path, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		inv.ID, inv.Filename, inv.MimeType, inv.StoragePath, string(inv.Status), inv.Error, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	var (
		inv         domain.Invoice
		status      string
		text        sql.NullString
		extraction  []byte
		errMessage  sql.NullString
		processedAt sql.NullTime
	)
	err := row.Scan(
		&inv.ID, &inv.Filename, &inv.MimeType, &inv.StoragePath, &status, &text,
		&extraction, &errMessage, &inv.CreatedAt, &inv.UpdatedAt, &processedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.Status = domain.InvoiceStatus(status)
	inv.RecognizedText = text.String
	inv.Error = errMessage.String
	if processedAt.Valid {
		t := processedAt.Time
		inv.ProcessedAt = &t
	}
	if len(extraction) > 0 {
		var out domain.InvoiceExtraction
		if err := json.Unmarshal(extraction, &out); err != nil {
			return nil, fmt.Errorf("unmarshal extraction: %w", err)
		}
		inv.Extraction = &out
	}
	return &inv, nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrInvoiceNotFound, "get invoice", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	return inv, nil
}

func (r *InvoiceRepository) List(ctx context.Context, limit int) ([]domain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+invoiceColumns+` FROM invoices ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return collect(rows)
}

func (r *InvoiceRepository) ListCompletedSince(ctx context.Context, since time.Time) ([]domain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+invoiceColumns+` FROM invoices
WHERE status = $1 AND processed_at >= $2
ORDER BY processed_at`, string(domain.StatusCompleted), since)
	if err != nil {
		return nil, fmt.Errorf("list completed invoices: %w", err)
	}
	return collect(rows)
}

func collect(rows *sql.Rows) ([]domain.Invoice, error) {
	defer rows.Close()

	out := make([]domain.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return out, nil
}

func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE invoices
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, r.now())
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	return expectRow(res, "update invoice status", id)
}

// SaveResult stores recognized text and extraction and marks the invoice completed.
func (r *InvoiceRepository) SaveResult(ctx context.Context, id, recognizedText string, extraction *domain.InvoiceExtraction) error {
	if extraction == nil {
		return domain.WrapError(domain.ErrInvalidInput, "save parse result", errors.New("nil extraction"))
	}
	payload, err := json.Marshal(extraction)
	if err != nil {
		return fmt.Errorf("marshal extraction: %w", err)
	}
	now := r.now()
	res, err := r.db.ExecContext(ctx, `
UPDATE invoices
SET status = $2, recognized_text = $3, extraction = $4, parsing_method = $5, vendor_name = $6,
	total_amount = $7, error_message = '', processed_at = $8, updated_at = $8
WHERE id = $1
`, id, string(domain.StatusCompleted), recognizedText, payload, string(extraction.ParsingMethod),
		extraction.VendorName, extraction.TotalAmount, now)
	if err != nil {
		return fmt.Errorf("save parse result: %w", err)
	}
	return expectRow(res, "save parse result", id)
}

func (r *InvoiceRepository) SaveExtraction(ctx context.Context, id string, extraction *domain.InvoiceExtraction) error {
	if extraction == nil {
		return domain.WrapError(domain.ErrInvalidInput, "save extraction", errors.New("nil extraction"))
	}
	payload, err := json.Marshal(extraction)
	if err != nil {
		return fmt.Errorf("marshal extraction: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE invoices
SET extraction = $2, parsing_method = $3, vendor_name = $4, total_amount = $5, updated_at = $6
WHERE id = $1
`, id, payload, string(extraction.ParsingMethod), extraction.VendorName, extraction.TotalAmount, r.now())
	if err != nil {
		return fmt.Errorf("save extraction: %w", err)
	}
	return expectRow(res, "save extraction", id)
}

func (r *InvoiceRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return expectRow(res, "delete invoice", id)
}

func expectRow(res sql.Result, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrInvoiceNotFound, op, fmt.Errorf("id=%s", id))
	}
	return nil
}
