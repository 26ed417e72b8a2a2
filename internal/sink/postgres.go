package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ginjaninja78/contract-installment-validator/internal/types"
)

const (
	defaultAcceptedTable = "accepted_installments"
	defaultRejectedTable = "rejected_installments"
)

// OpenPostgres opens and pings a pgx-backed database handle.
func OpenPostgres(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// Postgres inserts each batch into an accepted and a rejected table inside
// one transaction.
type Postgres struct {
	db            *sql.DB
	acceptedTable string
	rejectedTable string
}

// PostgresOption configures the sink.
type PostgresOption func(*Postgres)

// WithTables overrides the default table names. Empty names keep the default.
func WithTables(accepted, rejected string) PostgresOption {
	return func(p *Postgres) {
		if accepted != "" {
			p.acceptedTable = accepted
		}
		if rejected != "" {
			p.rejectedTable = rejected
		}
	}
}

// NewPostgres constructs a Postgres sink with the default table names.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *Postgres {
	p := &Postgres{db: db, acceptedTable: defaultAcceptedTable, rejectedTable: defaultRejectedTable}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EnsureSchema creates both tables when they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if p == nil || p.db == nil {
		return errors.New("postgres sink: nil db")
	}
	for _, ddl := range p.schemaStatements() {
		if _, err := p.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("postgres sink: ensure schema: %w", err)
		}
	}
	return nil
}

// Flush inserts b. The whole batch is rolled back on any error.
func (p *Postgres) Flush(ctx context.Context, b types.Batch) error {
	if p == nil || p.db == nil {
		return errors.New("postgres sink: nil db")
	}
	if b.Size() == 0 {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("postgres", b, err)
	}

	if err := p.insertAccepted(ctx, tx, b); err != nil {
		_ = tx.Rollback()
		return wrap("postgres", b, err)
	}
	if err := p.insertRejected(ctx, tx, b); err != nil {
		_ = tx.Rollback()
		return wrap("postgres", b, err)
	}

	if err := tx.Commit(); err != nil {
		return wrap("postgres", b, err)
	}
	return nil
}

func (p *Postgres) insertAccepted(ctx context.Context, tx *sql.Tx, b types.Batch) error {
	if len(b.Accepted) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, p.acceptedInsert())
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range b.Accepted {
		payload, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(
			ctx,
			b.RunID,
			b.Sequence,
			b.Source,
			r.ContractID,
			r.InstallmentNumber,
			r.TaxpayerID,
			string(payload),
		); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) insertRejected(ctx context.Context, tx *sql.Tx, b types.Batch) error {
	if len(b.Rejected) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, p.rejectedInsert())
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range b.Rejected {
		payload, err := json.Marshal(r.Record)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(
			ctx,
			b.RunID,
			b.Sequence,
			b.Source,
			string(r.Reason),
			r.Record.ContractID,
			r.Record.InstallmentNumber,
			r.Record.TaxpayerID,
			string(payload),
		); err != nil {
			return err
		}
	}
	return nil
}

func (p *Postgres) acceptedInsert() string {
	return fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	batch_seq,
	source,
	contract_id,
	installment_number,
	taxpayer_id,
	record
) VALUES (
	$1, $2, $3, $4, $5, $6, $7
)`, quoteTable(p.acceptedTable))
}

func (p *Postgres) rejectedInsert() string {
	return fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	batch_seq,
	source,
	reason,
	contract_id,
	installment_number,
	taxpayer_id,
	record
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8
)`, quoteTable(p.rejectedTable))
}

func (p *Postgres) schemaStatements() []string {
	return []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	run_id TEXT NOT NULL,
	batch_seq INTEGER NOT NULL,
	source TEXT NOT NULL,
	contract_id BIGINT NOT NULL,
	installment_number BIGINT NOT NULL,
	taxpayer_id TEXT NOT NULL,
	record JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, quoteTable(p.acceptedTable)),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id BIGSERIAL PRIMARY KEY,
	run_id TEXT NOT NULL,
	batch_seq INTEGER NOT NULL,
	source TEXT NOT NULL,
	reason TEXT NOT NULL,
	contract_id TEXT NOT NULL,
	installment_number TEXT NOT NULL,
	taxpayer_id TEXT NOT NULL,
	record JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, quoteTable(p.rejectedTable)),
	}
}

// quoteTable quotes a configured table name as an identifier. A dotted name
// is treated as schema.table.
func quoteTable(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}
