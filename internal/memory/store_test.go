package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/andywolf/prompttoproduct/internal/domain"
)

func entry(i int) Entry {
	return Entry{
		Timestamp: time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC),
		Text:      fmt.Sprintf("prompt %d", i),
		Signal:    domain.Signal{Intent: domain.IntentGeneral, Confidence: 0.5},
		Stage:     domain.StageGenerate,
	}
}

func TestNewStore_DefaultCapacity(t *testing.T) {
	s := NewStore(0)
	if s.Cap() != DefaultCapacity {
		t.Errorf("expected capacity %d, got %d", DefaultCapacity, s.Cap())
	}
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d entries", s.Len())
	}
}

func TestAppend_EvictsOldest(t *testing.T) {
	const capacity, extra = 10, 7
	s := NewStore(capacity)
	ctx := context.Background()

	for i := 0; i < capacity+extra; i++ {
		if err := s.Append(ctx, entry(i)); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
		if s.Len() > capacity {
			t.Fatalf("store exceeded capacity: %d", s.Len())
		}
	}

	recent := s.Recent(capacity)
	if len(recent) != capacity {
		t.Fatalf("expected %d entries, got %d", capacity, len(recent))
	}
	for i, e := range recent {
		want := fmt.Sprintf("prompt %d", extra+i)
		if e.Text != want {
			t.Errorf("recent[%d] = %q, want %q", i, e.Text, want)
		}
	}
}

func TestRecent_Limits(t *testing.T) {
	s := NewStore(5)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = s.Append(ctx, entry(i))
	}

	tests := []struct {
		limit     int
		wantLen   int
		wantFirst string
	}{
		{0, 3, "prompt 0"},
		{-1, 3, "prompt 0"},
		{2, 2, "prompt 1"},
		{1, 1, "prompt 2"},
		{10, 3, "prompt 0"},
	}
	for _, tt := range tests {
		got := s.Recent(tt.limit)
		if len(got) != tt.wantLen {
			t.Errorf("Recent(%d) len = %d, want %d", tt.limit, len(got), tt.wantLen)
			continue
		}
		if got[0].Text != tt.wantFirst {
			t.Errorf("Recent(%d)[0] = %q, want %q", tt.limit, got[0].Text, tt.wantFirst)
		}
	}
}

func TestRecent_ReturnsCopy(t *testing.T) {
	s := NewStore(3)
	_ = s.Append(context.Background(), entry(1))

	got := s.Recent(1)
	got[0].Text = "mutated"

	if last, _ := s.Last(); last.Text != "prompt 1" {
		t.Errorf("Recent leaked internal storage, last = %q", last.Text)
	}
}

func TestLast_Empty(t *testing.T) {
	s := NewStore(3)
	if _, ok := s.Last(); ok {
		t.Error("expected no last entry on empty store")
	}
}

type failingBackend struct {
	appended []Entry
	loadErr  error
}

func (f *failingBackend) Append(_ context.Context, e Entry) error {
	f.appended = append(f.appended, e)
	return errors.New("disk full")
}

func (f *failingBackend) Load(_ context.Context, _ int) ([]Entry, error) {
	return nil, f.loadErr
}

func (f *failingBackend) Close() error { return nil }

func TestAppend_BackendErrorKeepsEntry(t *testing.T) {
	b := &failingBackend{}
	s := NewStore(3, WithBackend(b))

	err := s.Append(context.Background(), entry(1))
	if err == nil {
		t.Fatal("expected backend error to be reported")
	}
	if s.Len() != 1 {
		t.Errorf("in-memory append should survive backend failure, len = %d", s.Len())
	}
	if len(b.appended) != 1 {
		t.Errorf("expected backend to receive 1 entry, got %d", len(b.appended))
	}
}

func TestLoad_BackendError(t *testing.T) {
	s := NewStore(3, WithBackend(&failingBackend{loadErr: errors.New("boom")}))
	if err := s.Load(context.Background()); err == nil {
		t.Fatal("expected Load to surface backend error")
	}
}

func TestAppend_Concurrent(t *testing.T) {
	s := NewStore(10)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = s.Append(ctx, entry(w*100+i))
				_ = s.Recent(5)
			}
		}(w)
	}
	wg.Wait()

	if s.Len() != 10 {
		t.Errorf("expected full store of 10, got %d", s.Len())
	}
}
