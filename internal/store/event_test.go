package store

import (
	"errors"
	"testing"
	"time"
)

func seedEvents(t *testing.T, repo *EventRepository, base time.Time) {
	t.Helper()

	events := []*Event{
		{ID: "e1", SessionID: "s1", Label: "LEFT_WRIST_UP", ModeCount: 10, Required: 8, Capacity: 10, Frame: 10, FiredAt: base},
		{ID: "e2", SessionID: "s1", Label: "LEFT_WRIST_UP", ModeCount: 9, Required: 8, Capacity: 10, Frame: 20, FiredAt: base.Add(time.Minute)},
		{ID: "e3", SessionID: "s2", Label: "RIGHT_WRIST_UP", ModeCount: 8, Required: 8, Capacity: 10, Frame: 10, FiredAt: base.Add(2 * time.Minute)},
	}
	for _, e := range events {
		if err := repo.Create(e); err != nil {
			t.Fatalf("Create(%s) error = %v", e.ID, err)
		}
	}
}

func TestEventRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Events()

	e := &Event{ID: "e1", SessionID: "s1", Label: "LEFT_WRIST_UP", ModeCount: 10, Required: 8, Capacity: 10, Frame: 42}
	if err := repo.Create(e); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if e.FiredAt.IsZero() {
		t.Error("Create() should default FiredAt")
	}

	got, err := repo.GetByID("e1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Label != "LEFT_WRIST_UP" || got.Frame != 42 || got.ModeCount != 10 || got.Required != 8 {
		t.Errorf("GetByID() = %+v", got)
	}
	if got.Actuated {
		t.Error("new events should not be marked actuated")
	}

	if _, err := repo.GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrNotFound", err)
	}
}

func TestEventRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Events()
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	seedEvents(t, repo, base)

	tests := []struct {
		name   string
		filter EventFilter
		want   []string
	}{
		{"all newest first", EventFilter{}, []string{"e3", "e2", "e1"}},
		{"by label", EventFilter{Label: "LEFT_WRIST_UP"}, []string{"e2", "e1"}},
		{"by session", EventFilter{SessionID: "s2"}, []string{"e3"}},
		{"since", EventFilter{Since: base.Add(30 * time.Second)}, []string{"e3", "e2"}},
		{"limit", EventFilter{Limit: 1}, []string{"e3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() returned %d events, want %d", len(got), len(tt.want))
			}
			for i, e := range got {
				if e.ID != tt.want[i] {
					t.Errorf("event %d = %s, want %s", i, e.ID, tt.want[i])
				}
			}
		})
	}
}

func TestEventRepository_MarkActuated(t *testing.T) {
	s := newTestStore(t)
	repo := s.Events()
	seedEvents(t, repo, time.Now().Add(-time.Hour))

	if err := repo.MarkActuated("e1", nil); err != nil {
		t.Fatalf("MarkActuated() error = %v", err)
	}
	if err := repo.MarkActuated("e2", errors.New("remo: 401")); err != nil {
		t.Fatalf("MarkActuated() error = %v", err)
	}

	e1, _ := repo.GetByID("e1")
	if !e1.Actuated || e1.Error != "" {
		t.Errorf("e1 = %+v, want actuated without error", e1)
	}
	e2, _ := repo.GetByID("e2")
	if e2.Actuated || e2.Error != "remo: 401" {
		t.Errorf("e2 = %+v, want failed with error text", e2)
	}

	if err := repo.MarkActuated("missing", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkActuated(missing) error = %v, want ErrNotFound", err)
	}
}

func TestEventRepository_CountAndPrune(t *testing.T) {
	s := newTestStore(t)
	repo := s.Events()
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	seedEvents(t, repo, base)

	if n, _ := repo.Count(""); n != 3 {
		t.Errorf("Count(\"\") = %d, want 3", n)
	}
	if n, _ := repo.Count("LEFT_WRIST_UP"); n != 2 {
		t.Errorf("Count(LEFT_WRIST_UP) = %d, want 2", n)
	}

	removed, err := repo.Prune(base.Add(90 * time.Second))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("Prune() removed %d, want 2", removed)
	}
	if n, _ := repo.Count(""); n != 1 {
		t.Errorf("Count after prune = %d, want 1", n)
	}
}
