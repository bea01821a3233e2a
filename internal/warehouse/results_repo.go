package warehouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"valdsync/internal/model"
)

var identPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ResultsRepo persists transformed test results. Inserts carry
// ON CONFLICT DO NOTHING on the natural key, so the destination itself
// enforces that a retried batch never duplicates rows.
type ResultsRepo struct {
	db     *sql.DB
	prefix string
}

// NewResultsRepo returns a repository writing tables under the given
// prefix.
func NewResultsRepo(db *sql.DB, prefix string) *ResultsRepo {
	return &ResultsRepo{db: db, prefix: prefix}
}

func (r *ResultsRepo) tableName(table string) (string, error) {
	full := r.prefix + table
	if !identPattern.MatchString(full) {
		return "", fmt.Errorf("warehouse: invalid table name %q", full)
	}
	return full, nil
}

// EnsureTable creates the results table and its natural-key index when
// absent. Safe to call every run.
func (r *ResultsRepo) EnsureTable(ctx context.Context, table string) error {
	name, err := r.tableName(table)
	if err != nil {
		return err
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			result_id     TEXT PRIMARY KEY,
			assessment_id TEXT NOT NULL,
			athlete_id    TEXT NOT NULL,
			athlete_name  TEXT NOT NULL,
			test_type     TEXT NOT NULL,
			recorded_at   TIMESTAMPTZ NOT NULL,
			test_date     DATE NOT NULL,
			age_at_test   INTEGER,
			metrics       JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, name)
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("warehouse: ensure table %s: %w", name, err)
	}

	idx := fmt.Sprintf(
		`CREATE UNIQUE INDEX IF NOT EXISTS %s_natural_key ON %s (athlete_id, test_type, recorded_at)`,
		name, name)
	if _, err := r.db.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("warehouse: ensure index on %s: %w", name, err)
	}
	return nil
}

// ExistingKeys reports which of the given natural keys are already present
// in the table, keyed by Key.String().
func (r *ResultsRepo) ExistingKeys(ctx context.Context, table string, keys []model.Key) (map[string]bool, error) {
	existing := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return existing, nil
	}

	name, err := r.tableName(table)
	if err != nil {
		return nil, err
	}

	query, args := existingKeysQuery(name, keys)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("warehouse: query existing keys in %s: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var k model.Key
		if err := rows.Scan(&k.AthleteID, &k.TestType, &k.RecordedAt); err != nil {
			return nil, err
		}
		existing[k.String()] = true
	}
	return existing, rows.Err()
}

// existingKeysQuery builds a tuple-IN query over the natural key columns.
func existingKeysQuery(table string, keys []model.Key) (string, []interface{}) {
	tuples := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys)*3)
	for i, k := range keys {
		base := i * 3
		tuples = append(tuples, fmt.Sprintf("($%d, $%d, $%d)", base+1, base+2, base+3))
		args = append(args, k.AthleteID, k.TestType, k.RecordedAt)
	}
	query := fmt.Sprintf(
		`SELECT athlete_id, test_type, recorded_at FROM %s WHERE (athlete_id, test_type, recorded_at) IN (%s)`,
		table, strings.Join(tuples, ", "))
	return query, args
}

// InsertBatch inserts rows one at a time so a mid-batch failure still
// reports exactly which natural keys the destination accepted. Rows whose
// natural key already exists count as duplicates, not errors.
func (r *ResultsRepo) InsertBatch(ctx context.Context, table string, batch []model.Row) (model.UploadResult, error) {
	var res model.UploadResult

	name, err := r.tableName(table)
	if err != nil {
		return res, err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (result_id, assessment_id, athlete_id, athlete_name, test_type, recorded_at, test_date, age_at_test, metrics)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (athlete_id, test_type, recorded_at) DO NOTHING`, name)

	for _, row := range batch {
		metrics, err := json.Marshal(row.Metrics)
		if err != nil {
			return res, fmt.Errorf("warehouse: encode metrics for %s: %w", row.NaturalKey(), err)
		}

		var age sql.NullInt64
		if row.AgeAtTest != nil {
			age = sql.NullInt64{Int64: int64(*row.AgeAtTest), Valid: true}
		}

		exec, err := r.db.ExecContext(ctx, query,
			row.ResultID,
			row.AssessmentID,
			row.AthleteID,
			row.AthleteName,
			row.TestType,
			row.RecordedAt,
			row.TestDate,
			age,
			metrics,
		)
		if err != nil {
			return res, fmt.Errorf("warehouse: insert into %s: %w", name, err)
		}

		affected, err := exec.RowsAffected()
		if err != nil {
			return res, err
		}
		if affected == 0 {
			res.Duplicates++
		} else {
			res.Inserted++
		}
		res.Accepted = append(res.Accepted, row.NaturalKey())
	}
	return res, nil
}
