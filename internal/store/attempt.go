package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// attemptRepo implements AttemptRepo with the ent SQL builder and the
// global sequence counter.
type attemptRepo struct {
	drv *entsql.Driver
	seq *sequence
}

// attemptRow mirrors the attempt_events columns for scanning.
type attemptRow struct {
	Sequence       int64  `sql:"sequence"`
	IdempotencyKey string `sql:"idempotency_key"`
	LearnerID      string `sql:"learner_id"`
	CellID         string `sql:"cell_id"`
	QuestionID     string `sql:"question_id"`
	Answer         string `sql:"answer"`
	Correct        int    `sql:"correct"`
	Tier           string `sql:"tier"`
	Timestamp      int64  `sql:"timestamp"`
}

var attemptColumns = []string{
	"sequence", "idempotency_key", "learner_id", "cell_id", "question_id",
	"answer", "correct", "tier", "timestamp",
}

func (r *attemptRepo) Append(ctx context.Context, rec AttemptRecord) (bool, error) {
	if rec.IdempotencyKey == "" {
		return false, fmt.Errorf("append attempt: idempotency key is required")
	}

	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return false, err
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(tableAttempts).
		Columns(attemptColumns...).
		Values(
			seqNum, rec.IdempotencyKey, rec.LearnerID, rec.CellID, rec.QuestionID,
			rec.Answer, boolToInt(rec.Correct), rec.Tier, ts.UTC().UnixNano(),
		).
		OnConflict(
			entsql.ConflictColumns("idempotency_key"),
			entsql.DoNothing(),
		).
		Query()

	var res sql.Result
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		return false, fmt.Errorf("insert attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert attempt: %w", err)
	}
	return n > 0, nil
}

func (r *attemptRepo) ForLearnerCell(ctx context.Context, learnerID, cellID string) ([]AttemptRecord, error) {
	b := entsql.Dialect(dialect.SQLite)
	query, args := b.Select(attemptColumns...).
		From(b.Table(tableAttempts)).
		Where(entsql.And(
			entsql.EQ("learner_id", learnerID),
			entsql.EQ("cell_id", cellID),
		)).
		OrderBy(entsql.Asc("sequence")).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var scanned []attemptRow
	if err := entsql.ScanSlice(rows, &scanned); err != nil {
		return nil, fmt.Errorf("scan attempts: %w", err)
	}

	out := make([]AttemptRecord, len(scanned))
	for i, row := range scanned {
		out[i] = AttemptRecord{
			Sequence:       row.Sequence,
			IdempotencyKey: row.IdempotencyKey,
			LearnerID:      row.LearnerID,
			CellID:         row.CellID,
			QuestionID:     row.QuestionID,
			Answer:         row.Answer,
			Correct:        row.Correct != 0,
			Tier:           row.Tier,
			Timestamp:      time.Unix(0, row.Timestamp).UTC(),
		}
	}
	return out, nil
}

func (r *attemptRepo) Learners(ctx context.Context, cellID string) ([]string, error) {
	b := entsql.Dialect(dialect.SQLite)
	query, args := b.Select("learner_id").
		Distinct().
		From(b.Table(tableAttempts)).
		Where(entsql.EQ("cell_id", cellID)).
		OrderBy("learner_id").
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query learners: %w", err)
	}
	defer rows.Close()

	var learners []string
	if err := entsql.ScanSlice(rows, &learners); err != nil {
		return nil, fmt.Errorf("scan learners: %w", err)
	}
	return learners, nil
}
