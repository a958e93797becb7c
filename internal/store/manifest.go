package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// manifestRepo implements ManifestRepo with an upsert keyed by cell ID.
type manifestRepo struct {
	drv *entsql.Driver
}

type manifestRow struct {
	CellID    string `sql:"cell_id"`
	Detail    string `sql:"detail"`
	Data      string `sql:"data"`
	UpdatedAt int64  `sql:"updated_at"`
}

var manifestColumns = []string{"cell_id", "detail", "data", "updated_at"}

func (r *manifestRepo) Save(ctx context.Context, rec ManifestRecord) error {
	if rec.CellID == "" {
		return fmt.Errorf("save manifest: cell ID is required")
	}
	if !json.Valid(rec.Data) {
		return fmt.Errorf("save manifest %s: data is not valid JSON", rec.CellID)
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(tableManifests).
		Columns(manifestColumns...).
		Values(rec.CellID, rec.Detail, string(rec.Data), updated.UTC().UnixNano()).
		OnConflict(
			entsql.ConflictColumns("cell_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save manifest %s: %w", rec.CellID, err)
	}
	return nil
}

func (r *manifestRepo) Load(ctx context.Context, cellID string) (*ManifestRecord, error) {
	b := entsql.Dialect(dialect.SQLite)
	recs, err := r.query(ctx, b.Select(manifestColumns...).
		From(b.Table(tableManifests)).
		Where(entsql.EQ("cell_id", cellID)))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("manifest %s: %w", cellID, ErrNotFound)
	}
	return &recs[0], nil
}

func (r *manifestRepo) List(ctx context.Context) ([]ManifestRecord, error) {
	b := entsql.Dialect(dialect.SQLite)
	return r.query(ctx, b.Select(manifestColumns...).
		From(b.Table(tableManifests)).
		OrderBy(entsql.Asc("cell_id")))
}

func (r *manifestRepo) query(ctx context.Context, sel *entsql.Selector) ([]ManifestRecord, error) {
	query, args := sel.Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query manifests: %w", err)
	}
	defer rows.Close()

	var scanned []manifestRow
	if err := entsql.ScanSlice(rows, &scanned); err != nil {
		return nil, fmt.Errorf("scan manifests: %w", err)
	}

	out := make([]ManifestRecord, len(scanned))
	for i, row := range scanned {
		out[i] = ManifestRecord{
			CellID:    row.CellID,
			Detail:    row.Detail,
			Data:      json.RawMessage(row.Data),
			UpdatedAt: time.Unix(0, row.UpdatedAt).UTC(),
		}
	}
	return out, nil
}
