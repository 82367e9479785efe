package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/asmil/asmil-api/pkg/database"
)

// BackupTables lists the exported tables in foreign-key order; restore inserts in this order.
var BackupTables = []string{
	"teachers",
	"formations",
	"modules",
	"students",
	"sessions",
	"enrollments",
	"invoices",
	"payments",
	"grades",
	"attendances",
	"certificates",
	"announcements",
}

// ErrRestoreDependency is returned when a table in the document is referenced by a table the
// document leaves out; nothing is written in that case.
var ErrRestoreDependency = errors.New("backup leaves out tables that reference the restored ones")

// pq code raised by TRUNCATE on a table that another table references.
const pqFeatureNotSupported = "0A000"

// BackupRepository dumps and restores the domain tables as JSON arrays.
type BackupRepository struct {
	db *sqlx.DB
}

// NewBackupRepository constructs a BackupRepository.
func NewBackupRepository(db *sqlx.DB) *BackupRepository {
	return &BackupRepository{db: db}
}

func knownTable(name string) bool {
	for _, table := range BackupTables {
		if table == name {
			return true
		}
	}
	return false
}

// Dump returns each table's rows as a JSON array keyed by table name.
func (r *BackupRepository) Dump(ctx context.Context) (map[string]json.RawMessage, error) {
	data := make(map[string]json.RawMessage, len(BackupTables))
	for _, table := range BackupTables {
		var raw []byte
		query := fmt.Sprintf("SELECT COALESCE(json_agg(t), '[]'::json) FROM %s t", table)
		if err := r.db.GetContext(ctx, &raw, query); err != nil {
			return nil, fmt.Errorf("dump %s: %w", table, err)
		}
		data[table] = json.RawMessage(raw)
	}
	return data, nil
}

// Restore truncates every table present in data and reloads it in one transaction.
// Tables absent from data are never touched: the truncate does not cascade, so a document
// that omits a referencing table fails with ErrRestoreDependency.
// It returns the number of rows inserted per table.
func (r *BackupRepository) Restore(ctx context.Context, data map[string]json.RawMessage) (map[string]int, error) {
	present := make([]string, 0, len(data))
	for _, table := range BackupTables {
		if _, ok := data[table]; ok {
			present = append(present, table)
		}
	}
	for name := range data {
		if !knownTable(name) {
			return nil, fmt.Errorf("unknown table %q", name)
		}
	}

	counts := make(map[string]int, len(present))
	if len(present) == 0 {
		return counts, nil
	}

	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "TRUNCATE TABLE "+strings.Join(present, ", ")); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == pqFeatureNotSupported {
				return fmt.Errorf("%w: %s", ErrRestoreDependency, pqErr.Message)
			}
			return fmt.Errorf("truncate: %w", err)
		}
		for _, table := range present {
			query := fmt.Sprintf("INSERT INTO %s SELECT * FROM json_populate_recordset(NULL::%s, $1::json)", table, table)
			res, err := tx.ExecContext(ctx, query, string(data[table]))
			if err != nil {
				return fmt.Errorf("restore %s: %w", table, err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("restore %s: %w", table, err)
			}
			counts[table] = int(affected)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}
