package store

import (
	"context"
	"fmt"
	"sync"

	entsql "entgo.io/ent/dialect/sql"
)

// sequence hands out the global order shared by attempts and LLM request
// events. The two live in separate tables, so their row IDs cannot order
// one against the other. Numbers burned by a rejected insert (a duplicate
// idempotency key) leave gaps; readers only rely on the order.
type sequence struct {
	mu  sync.Mutex
	drv *entsql.Driver
}

const nextSequenceSQL = `UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`

// Next returns the next sequence number. The in-process mutex keeps the
// single-connection pool from interleaving two increments.
func (s *sequence) Next(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, nextSequenceSQL, []any{}, &rows); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("next sequence: %w", err)
		}
		return 0, fmt.Errorf("next sequence: counter row missing")
	}
	var n int64
	if err := rows.Scan(&n); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return n, nil
}
