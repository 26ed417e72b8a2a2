package sink

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"

	"github.com/ginjaninja78/contract-installment-validator/internal/types"
)

func TestPostgresNilDB(t *testing.T) {
	var nilSink *Postgres
	if err := nilSink.Flush(context.Background(), testBatch()); err == nil {
		t.Error("expected error for nil sink")
	}
	if err := NewPostgres(nil).Flush(context.Background(), testBatch()); err == nil {
		t.Error("expected error for nil db")
	}
	if err := NewPostgres(nil).EnsureSchema(context.Background()); err == nil {
		t.Error("expected error for nil db")
	}
}

func TestPostgresStatements(t *testing.T) {
	p := NewPostgres(nil, WithTables("parcelas_ok", ""))
	if !strings.Contains(p.acceptedInsert(), `INSERT INTO "parcelas_ok" (`) {
		t.Errorf("accepted insert = %s", p.acceptedInsert())
	}
	if !strings.Contains(p.rejectedInsert(), `INSERT INTO "`+defaultRejectedTable+`" (`) {
		t.Errorf("rejected insert = %s", p.rejectedInsert())
	}
	if !strings.Contains(p.rejectedInsert(), "$8") {
		t.Error("rejected insert should bind eight values")
	}
	ddl := p.schemaStatements()
	if len(ddl) != 2 || !strings.Contains(ddl[0], `CREATE TABLE IF NOT EXISTS "parcelas_ok"`) {
		t.Errorf("schema = %v", ddl)
	}
}

func TestQuoteTable(t *testing.T) {
	tests := []struct {
		name, want string
	}{
		{"parcelas", `"parcelas"`},
		{"cobranca.parcelas", `"cobranca"."parcelas"`},
		{`x"; DROP TABLE y; --`, `"x""; DROP TABLE y; --"`},
	}
	for _, tt := range tests {
		if got := quoteTable(tt.name); got != tt.want {
			t.Errorf("quoteTable(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}

	p := NewPostgres(nil, WithTables("cobranca.parcelas", ""))
	if !strings.Contains(p.acceptedInsert(), `INSERT INTO "cobranca"."parcelas" (`) {
		t.Errorf("accepted insert = %s", p.acceptedInsert())
	}
}

func TestPostgresFlush_Integration(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	ctx := context.Background()
	db, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	p := NewPostgres(db, WithTables("it_accepted_installments", "it_rejected_installments"))
	if err := p.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	_, _ = db.ExecContext(ctx, "DELETE FROM it_accepted_installments WHERE run_id = $1", "run-1")
	_, _ = db.ExecContext(ctx, "DELETE FROM it_rejected_installments WHERE run_id = $1", "run-1")

	if err := p.Flush(ctx, testBatch()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if err := p.Flush(ctx, types.Batch{RunID: "run-1", Sequence: 3}); err != nil {
		t.Fatalf("empty Flush() error = %v", err)
	}

	assertCount(t, db, "it_accepted_installments", 1)
	assertCount(t, db, "it_rejected_installments", 1)

	var reason string
	if err := db.QueryRowContext(ctx, "SELECT reason FROM it_rejected_installments WHERE run_id = $1", "run-1").Scan(&reason); err != nil {
		t.Fatal(err)
	}
	if reason != string(types.ReasonInvalidEntityID) {
		t.Errorf("reason = %q", reason)
	}
}

func assertCount(t *testing.T, db *sql.DB, table string, want int) {
	t.Helper()
	var got int
	if err := db.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE run_id = 'run-1'").Scan(&got); err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("%s rows = %d, want %d", table, got, want)
	}
}
