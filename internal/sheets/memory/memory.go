// Package memory is an in-process RecordAppender for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"bottega/internal/core"
	"bottega/internal/sheets"
)

var _ sheets.RecordAppender = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	rows map[core.Kind][][]any
	// Fail, when set, is returned by AppendRecord instead of storing.
	Fail error
}

func New() *Store {
	return &Store{rows: make(map[core.Kind][][]any)}
}

// AppendRecord stores the row and returns a synthetic row reference.
func (s *Store) AppendRecord(_ context.Context, kind core.Kind, row []any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail != nil {
		return "", s.Fail
	}
	s.rows[kind] = append(s.rows[kind], append([]any(nil), row...))
	return fmt.Sprintf("mem:%s:%d", kind, len(s.rows[kind])), nil
}

// Rows returns a copy of the rows appended for kind.
func (s *Store) Rows(kind core.Kind) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows[kind]))
	copy(out, s.rows[kind])
	return out
}
