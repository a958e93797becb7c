package llm

import "context"

type ctxKey int

const (
	purposeKey ctxKey = iota
	cellKey
)

// WithPurpose labels the calls made with ctx, such as "quiz-gen". The
// label is recorded on every LLM request event.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom returns the purpose label on ctx, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// WithCell tags ctx with the code cell a call is about.
func WithCell(ctx context.Context, cellID string) context.Context {
	return context.WithValue(ctx, cellKey, cellID)
}

// CellFrom returns the cell ID on ctx, or "".
func CellFrom(ctx context.Context) string {
	v, _ := ctx.Value(cellKey).(string)
	return v
}
