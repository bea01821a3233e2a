package warehouse

import (
	"context"

	"valdsync/internal/model"
)

// TableDestination binds the repository to one results table, matching the
// pipeline's Destination contract.
type TableDestination struct {
	repo  *ResultsRepo
	table string
}

// NewTableDestination returns a destination for the given table (without
// prefix).
func NewTableDestination(repo *ResultsRepo, table string) *TableDestination {
	return &TableDestination{repo: repo, table: table}
}

// Ensure creates the backing table when absent.
func (d *TableDestination) Ensure(ctx context.Context) error {
	return d.repo.EnsureTable(ctx, d.table)
}

// ExistingKeys reports which natural keys the table already holds.
func (d *TableDestination) ExistingKeys(ctx context.Context, keys []model.Key) (map[string]bool, error) {
	return d.repo.ExistingKeys(ctx, d.table, keys)
}

// Insert uploads the batch idempotently.
func (d *TableDestination) Insert(ctx context.Context, batch []model.Row) (model.UploadResult, error) {
	return d.repo.InsertBatch(ctx, d.table, batch)
}
