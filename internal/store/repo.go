package store

import (
	"context"
	"encoding/json"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match when set
}

// AttemptRecord is a persisted quiz attempt.
type AttemptRecord struct {
	Sequence       int64
	IdempotencyKey string
	LearnerID      string
	CellID         string
	QuestionID     string
	Answer         string
	Correct        bool
	Tier           string
	Timestamp      time.Time
}

// AttemptRepo stores quiz attempts append-only.
type AttemptRepo interface {
	// Append stores rec unless an attempt with the same idempotency key
	// exists. It reports whether a new row was written.
	Append(ctx context.Context, rec AttemptRecord) (bool, error)

	// ForLearnerCell returns the attempts of learnerID on cellID, oldest
	// first.
	ForLearnerCell(ctx context.Context, learnerID, cellID string) ([]AttemptRecord, error)

	// Learners lists learner IDs with at least one attempt on cellID.
	Learners(ctx context.Context, cellID string) ([]string, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request.
type LLMRequestEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates LLM requests by a grouping key.
type LLMUsage struct {
	Key          string
	Requests     int
	InputTokens  int
	OutputTokens int
	Errors       int
	AvgLatencyMs float64
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMRequests returns events newest first.
	QueryLLMRequests(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMRequest returns a single event by ID, or ErrNotFound.
	GetLLMRequest(ctx context.Context, id int) (*LLMRequestEvent, error)

	// LLMUsageByPurpose aggregates events by purpose.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)

	// LLMUsageByModel aggregates events by model.
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}

// ManifestRecord is a persisted agent manifest. Data is opaque JSON owned
// by the caller.
type ManifestRecord struct {
	CellID    string
	Detail    string
	Data      json.RawMessage
	UpdatedAt time.Time
}

// ManifestRepo stores one manifest per cell, replacing on save.
type ManifestRepo interface {
	Save(ctx context.Context, rec ManifestRecord) error

	// Load returns the manifest for cellID, or ErrNotFound.
	Load(ctx context.Context, cellID string) (*ManifestRecord, error)

	// List returns all manifests ordered by cell ID.
	List(ctx context.Context) ([]ManifestRecord, error)
}
