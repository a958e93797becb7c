package store

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// eventRepo implements EventRepo backed by the ent SQL builder and the
// global sequence counter.
type eventRepo struct {
	drv *entsql.Driver
	seq *sequence
}

type llmEventRow struct {
	ID           int    `sql:"id"`
	Sequence     int64  `sql:"sequence"`
	Timestamp    int64  `sql:"timestamp"`
	Provider     string `sql:"provider"`
	Model        string `sql:"model"`
	Purpose      string `sql:"purpose"`
	InputTokens  int    `sql:"input_tokens"`
	OutputTokens int    `sql:"output_tokens"`
	LatencyMs    int64  `sql:"latency_ms"`
	Success      int    `sql:"success"`
	ErrorMessage string `sql:"error_message"`
	RequestBody  string `sql:"request_body"`
	ResponseBody string `sql:"response_body"`
}

var llmEventColumns = []string{
	"id", "sequence", "timestamp", "provider", "model", "purpose",
	"input_tokens", "output_tokens", "latency_ms", "success",
	"error_message", "request_body", "response_body",
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(tableLLMRequests).
		Columns(llmEventColumns[1:]...).
		Values(
			seqNum, time.Now().UTC().UnixNano(), data.Provider, data.Model, data.Purpose,
			data.InputTokens, data.OutputTokens, data.LatencyMs, boolToInt(data.Success),
			data.ErrorMessage, data.RequestBody, data.ResponseBody,
		).
		Query()

	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryLLMRequests(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error) {
	b := entsql.Dialect(dialect.SQLite)
	sel := b.Select(llmEventColumns...).
		From(b.Table(tableLLMRequests)).
		OrderBy(entsql.Desc("sequence"))

	var preds []*entsql.Predicate
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("timestamp", opts.From.UTC().UnixNano()))
	}
	if !opts.To.IsZero() {
		preds = append(preds, entsql.LTE("timestamp", opts.To.UTC().UnixNano()))
	}
	if opts.Purpose != "" {
		preds = append(preds, entsql.EQ("purpose", opts.Purpose))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	return r.scanEvents(ctx, sel)
}

func (r *eventRepo) GetLLMRequest(ctx context.Context, id int) (*LLMRequestEvent, error) {
	b := entsql.Dialect(dialect.SQLite)
	sel := b.Select(llmEventColumns...).
		From(b.Table(tableLLMRequests)).
		Where(entsql.EQ("id", id))

	events, err := r.scanEvents(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("LLM request %d: %w", id, ErrNotFound)
	}
	return &events[0], nil
}

func (r *eventRepo) scanEvents(ctx context.Context, sel *entsql.Selector) ([]LLMRequestEvent, error) {
	query, args := sel.Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query LLM request events: %w", err)
	}
	defer rows.Close()

	var scanned []llmEventRow
	if err := entsql.ScanSlice(rows, &scanned); err != nil {
		return nil, fmt.Errorf("scan LLM request events: %w", err)
	}

	out := make([]LLMRequestEvent, len(scanned))
	for i, row := range scanned {
		out[i] = LLMRequestEvent{
			ID:        row.ID,
			Sequence:  row.Sequence,
			Timestamp: time.Unix(0, row.Timestamp).UTC(),
			LLMRequestEventData: LLMRequestEventData{
				Provider:     row.Provider,
				Model:        row.Model,
				Purpose:      row.Purpose,
				InputTokens:  row.InputTokens,
				OutputTokens: row.OutputTokens,
				LatencyMs:    row.LatencyMs,
				Success:      row.Success != 0,
				ErrorMessage: row.ErrorMessage,
				RequestBody:  row.RequestBody,
				ResponseBody: row.ResponseBody,
			},
		}
	}
	return out, nil
}

func (r *eventRepo) LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error) {
	return r.usageBy(ctx, "purpose")
}

func (r *eventRepo) LLMUsageByModel(ctx context.Context) ([]LLMUsage, error) {
	return r.usageBy(ctx, "model")
}

type usageRow struct {
	Key          string  `sql:"key"`
	Requests     int     `sql:"requests"`
	InputTokens  int64   `sql:"input_tokens"`
	OutputTokens int64   `sql:"output_tokens"`
	Errors       int64   `sql:"errors"`
	AvgLatencyMs float64 `sql:"avg_latency_ms"`
}

func (r *eventRepo) usageBy(ctx context.Context, column string) ([]LLMUsage, error) {
	b := entsql.Dialect(dialect.SQLite)
	query, args := b.Select(
		entsql.As(column, "key"),
		entsql.As(entsql.Count("*"), "requests"),
		entsql.As(entsql.Sum("input_tokens"), "input_tokens"),
		entsql.As(entsql.Sum("output_tokens"), "output_tokens"),
		entsql.As("SUM(1 - success)", "errors"),
		entsql.As("AVG(latency_ms)", "avg_latency_ms"),
	).
		From(b.Table(tableLLMRequests)).
		GroupBy(column).
		OrderBy(entsql.Desc("requests")).
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query LLM usage by %s: %w", column, err)
	}
	defer rows.Close()

	var scanned []usageRow
	if err := entsql.ScanSlice(rows, &scanned); err != nil {
		return nil, fmt.Errorf("scan LLM usage: %w", err)
	}

	out := make([]LLMUsage, len(scanned))
	for i, row := range scanned {
		out[i] = LLMUsage{
			Key:          row.Key,
			Requests:     row.Requests,
			InputTokens:  int(row.InputTokens),
			OutputTokens: int(row.OutputTokens),
			Errors:       int(row.Errors),
			AvgLatencyMs: row.AvgLatencyMs,
		}
	}
	return out, nil
}
