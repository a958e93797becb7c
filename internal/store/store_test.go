package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "open test store")
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	assert.NotNil(t, s.Driver())
	assert.NotNil(t, s.DB())
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		require.NoError(t, err, "PRAGMA %s", tt.pragma)
		assert.Equal(t, tt.want, got, "PRAGMA %s", tt.pragma)
	}
}

func TestMigrationsCreateTables(t *testing.T) {
	s := openTestStore(t)
	for _, table := range []string{tableAttempts, tableLLMRequests, tableManifests, "global_sequence"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s", table)
		assert.Equal(t, table, name)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.AttemptRepo().Append(ctx, AttemptRecord{
		IdempotencyKey: "k1", LearnerID: "l1", CellID: "c1", QuestionID: "q1",
		Answer: "a", Correct: true, Tier: "medium",
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.AttemptRepo().ForLearnerCell(ctx, "l1", "c1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "q1", got[0].QuestionID)
}

func TestSequenceOrdersAcrossTables(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.AttemptRepo().Append(ctx, AttemptRecord{
		IdempotencyKey: "k1", LearnerID: "l1", CellID: "c1", QuestionID: "q1",
		Answer: "a", Correct: true, Tier: "medium",
	})
	require.NoError(t, err)
	require.NoError(t, s.EventRepo().AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "offline", Model: "offline", Purpose: "judge-answer", Success: true,
	}))
	next, err := s.seq.Next(ctx)
	require.NoError(t, err)

	attempts, err := s.AttemptRepo().ForLearnerCell(ctx, "l1", "c1")
	require.NoError(t, err)
	events, err := s.EventRepo().QueryLLMRequests(ctx, QueryOpts{Limit: 1})
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	require.Len(t, events, 1)

	assert.Less(t, attempts[0].Sequence, events[0].Sequence)
	assert.Less(t, events[0].Sequence, next)
}

func TestAttemptAppendAndHistory(t *testing.T) {
	s := openTestStore(t)
	repo := s.AttemptRepo()
	ctx := context.Background()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, q := range []string{"q1", "q2", "q3"} {
		written, err := repo.Append(ctx, AttemptRecord{
			IdempotencyKey: "key-" + q,
			LearnerID:      "alice",
			CellID:         "cell-1",
			QuestionID:     q,
			Answer:         "ans",
			Correct:        i%2 == 0,
			Tier:           "easy",
			Timestamp:      base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		assert.True(t, written)
	}
	// Another learner and another cell must not leak in.
	_, err := repo.Append(ctx, AttemptRecord{IdempotencyKey: "other-1", LearnerID: "bob", CellID: "cell-1", QuestionID: "q1", Tier: "easy"})
	require.NoError(t, err)
	_, err = repo.Append(ctx, AttemptRecord{IdempotencyKey: "other-2", LearnerID: "alice", CellID: "cell-2", QuestionID: "q1", Tier: "easy"})
	require.NoError(t, err)

	got, err := repo.ForLearnerCell(ctx, "alice", "cell-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"q1", "q2", "q3"}, []string{got[0].QuestionID, got[1].QuestionID, got[2].QuestionID})
	assert.True(t, got[0].Correct)
	assert.False(t, got[1].Correct)
	assert.True(t, got[0].Timestamp.Equal(base))
	assert.Less(t, got[0].Sequence, got[1].Sequence)

	learners, err := repo.Learners(ctx, "cell-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, learners)
}

func TestAttemptAppendIdempotent(t *testing.T) {
	s := openTestStore(t)
	repo := s.AttemptRepo()
	ctx := context.Background()

	rec := AttemptRecord{
		IdempotencyKey: "same-key", LearnerID: "alice", CellID: "cell-1",
		QuestionID: "q1", Answer: "42", Correct: true, Tier: "hard",
	}
	written, err := repo.Append(ctx, rec)
	require.NoError(t, err)
	assert.True(t, written)

	rec.Answer = "changed"
	written, err = repo.Append(ctx, rec)
	require.NoError(t, err)
	assert.False(t, written, "duplicate key must be a no-op")

	got, err := repo.ForLearnerCell(ctx, "alice", "cell-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "42", got[0].Answer, "first write wins")
}

func TestAttemptAppendRequiresKey(t *testing.T) {
	s := openTestStore(t)
	_, err := s.AttemptRepo().Append(context.Background(), AttemptRecord{LearnerID: "a"})
	assert.Error(t, err)
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "p", Model: "m1", Purpose: "explain-summary", InputTokens: 10, OutputTokens: 5, LatencyMs: 100, Success: true, RequestBody: "req", ResponseBody: "resp"},
		{Provider: "p", Model: "m1", Purpose: "quiz-gen", InputTokens: 20, OutputTokens: 10, LatencyMs: 300, Success: true},
		{Provider: "p", Model: "m2", Purpose: "quiz-gen", LatencyMs: 50, Success: false, ErrorMessage: "boom"},
	}
	for _, e := range events {
		require.NoError(t, repo.AppendLLMRequest(ctx, e))
	}

	all, err := repo.QueryLLMRequests(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "m2", all[0].Model, "newest first")
	assert.False(t, all[0].Success)

	limited, err := repo.QueryLLMRequests(ctx, QueryOpts{Limit: 1, Purpose: "quiz-gen"})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "quiz-gen", limited[0].Purpose)

	oldest := all[2]
	got, err := repo.GetLLMRequest(ctx, oldest.ID)
	require.NoError(t, err)
	assert.Equal(t, "req", got.RequestBody)
	assert.Equal(t, "resp", got.ResponseBody)

	_, err = repo.GetLLMRequest(ctx, 9999)
	assert.True(t, errors.Is(err, ErrNotFound))

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, byPurpose, 2)
	assert.Equal(t, "quiz-gen", byPurpose[0].Key)
	assert.Equal(t, 2, byPurpose[0].Requests)
	assert.Equal(t, 20, byPurpose[0].InputTokens)
	assert.Equal(t, 1, byPurpose[0].Errors)
	assert.InDelta(t, 175.0, byPurpose[0].AvgLatencyMs, 0.001)

	byModel, err := repo.LLMUsageByModel(ctx)
	require.NoError(t, err)
	require.Len(t, byModel, 2)
	assert.Equal(t, "m1", byModel[0].Key)
}

func TestManifestSaveLoadList(t *testing.T) {
	s := openTestStore(t)
	repo := s.ManifestRepo()
	ctx := context.Background()

	_, err := repo.Load(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, repo.Save(ctx, ManifestRecord{CellID: "b", Detail: "coarse", Data: json.RawMessage(`{"v":1}`)}))
	require.NoError(t, repo.Save(ctx, ManifestRecord{CellID: "a", Detail: "coarse", Data: json.RawMessage(`{"v":1}`)}))
	require.NoError(t, repo.Save(ctx, ManifestRecord{CellID: "b", Detail: "line-by-line", Data: json.RawMessage(`{"v":2}`)}))

	got, err := repo.Load(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "line-by-line", got.Detail)
	assert.JSONEq(t, `{"v":2}`, string(got.Data))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].CellID)

	assert.Error(t, repo.Save(ctx, ManifestRecord{CellID: "c", Data: json.RawMessage(`not json`)}))
}

func TestIsBusy(t *testing.T) {
	assert.False(t, IsBusy(nil))
	assert.True(t, IsBusy(errors.New("SQLITE_BUSY: try again")))
	assert.True(t, IsBusy(errors.New("database is locked (5)")))
	assert.False(t, IsBusy(errors.New("no such table")))
}

func TestDefaultDBPath(t *testing.T) {
	dir := t.TempDir()

	t.Setenv("CELLTUTOR_DB", filepath.Join(dir, "explicit", "x.db"))
	p, err := DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "explicit", "x.db"), p)

	t.Setenv("CELLTUTOR_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)
	p, err = DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "celltutor", "celltutor.db"), p)
}
