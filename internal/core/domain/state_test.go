package domain

import (
	"fmt"
	"testing"
)

func sampleState(n int) *PersistedState {
	s := &PersistedState{
		Version:     3,
		ProgramPath: "/srv/site",
		Components:  map[string]string{"page": "src/page.tsx"},
		Records:     make(map[RecordID]*Record, n),
	}
	for i := 0; i < n; i++ {
		id := RecordID(fmt.Sprintf("rec-%03d", i))
		s.Records[id] = &Record{ID: id, Type: "Page"}
	}
	return s
}

func TestPersistedState_CoreLeavesCallerIntact(t *testing.T) {
	s := sampleState(5)

	core := s.Core()
	if core.Records != nil {
		t.Fatalf("core.Records = %v, want nil", core.Records)
	}
	if len(s.Records) != 5 {
		t.Fatalf("len(s.Records) = %d after Core(), want 5", len(s.Records))
	}
	if core.ProgramPath != s.ProgramPath || core.Version != s.Version {
		t.Fatalf("core fields not copied: %+v", core)
	}
}

func TestPersistedState_EntriesSorted(t *testing.T) {
	s := sampleState(20)

	entries := s.Entries()
	if len(entries) != 20 {
		t.Fatalf("len(entries) = %d, want 20", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].ID >= entries[i].ID {
			t.Fatalf("entries not sorted at %d: %q >= %q", i, entries[i-1].ID, entries[i].ID)
		}
	}
	for _, e := range entries {
		if s.Records[e.ID] != e.Record {
			t.Fatalf("entry %q does not point at the caller's record", e.ID)
		}
	}
}

func TestPersistedState_EntriesEmpty(t *testing.T) {
	var s PersistedState
	if got := s.Entries(); got != nil {
		t.Fatalf("Entries() on nil Records = %v, want nil", got)
	}
	if s.HasRecords() {
		t.Fatal("HasRecords() = true for nil Records")
	}

	s.Records = map[RecordID]*Record{}
	if got := s.Entries(); got != nil {
		t.Fatalf("Entries() on empty Records = %v, want nil", got)
	}
	if !s.HasRecords() {
		t.Fatal("HasRecords() = false for empty, non-nil Records")
	}
}

func TestEntriesToRecords_LaterWins(t *testing.T) {
	first := &Record{ID: "a", Type: "old"}
	second := &Record{ID: "a", Type: "new"}
	other := &Record{ID: "b"}

	records := EntriesToRecords([]Entry{
		{ID: "a", Record: first},
		{ID: "b", Record: other},
		{ID: "a", Record: second},
	})

	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records["a"] != second {
		t.Fatalf("records[a] = %+v, want the later entry", records["a"])
	}
}

func TestNewGeneration(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		g, err := NewGeneration()
		if err != nil {
			t.Fatalf("NewGeneration: %v", err)
		}
		if len(g) != 26 {
			t.Fatalf("len(generation) = %d, want 26", len(g))
		}
		if seen[g] {
			t.Fatalf("duplicate generation %q", g)
		}
		seen[g] = true
	}
}
