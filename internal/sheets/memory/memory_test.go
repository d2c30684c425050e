package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"bottega/internal/core"
)

func TestAppendRecord(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.AppendRecord(ctx, core.KindSale, []any{"s1", "2025-01-01"})
	if err != nil {
		t.Fatalf("AppendRecord: %v", err)
	}
	if ref != "mem:sale:1" {
		t.Errorf("ref = %q, want mem:sale:1", ref)
	}
	if _, err := s.AppendRecord(ctx, core.KindExpense, []any{"e1"}); err != nil {
		t.Fatalf("AppendRecord: %v", err)
	}

	if got := s.Rows(core.KindSale); len(got) != 1 || got[0][0] != "s1" {
		t.Errorf("sale rows = %v", got)
	}
	if got := s.Rows(core.KindExpense); len(got) != 1 {
		t.Errorf("expense rows = %v", got)
	}
}

func TestAppendRecord_CopiesRow(t *testing.T) {
	s := New()
	row := []any{"s1"}
	if _, err := s.AppendRecord(context.Background(), core.KindSale, row); err != nil {
		t.Fatal(err)
	}
	row[0] = "changed"
	if got := s.Rows(core.KindSale)[0][0]; got != "s1" {
		t.Errorf("stored row was mutated: %v", got)
	}
}

func TestAppendRecord_Fail(t *testing.T) {
	s := New()
	s.Fail = errors.New("quota exceeded")
	if _, err := s.AppendRecord(context.Background(), core.KindSale, []any{"s1"}); !errors.Is(err, s.Fail) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if len(s.Rows(core.KindSale)) != 0 {
		t.Error("failed append must not store a row")
	}
}

func TestAppendRecord_Concurrent(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AppendRecord(context.Background(), core.KindExpense, []any{"e"})
		}()
	}
	wg.Wait()
	if n := len(s.Rows(core.KindExpense)); n != 50 {
		t.Errorf("rows = %d, want 50", n)
	}
}
