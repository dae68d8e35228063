package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func recordIDs(records []TaskRecord) []TaskID {
	out := make([]TaskID, len(records))
	for i, r := range records {
		out[i] = r.TaskID
	}
	return out
}

// TestTaskHistory_RingOverwritesOldest verifies bounded retention
// Given: A history of capacity 3
// When: Five records are added
// Then: Recent returns the last three newest first and Last is the fifth
func TestTaskHistory_RingOverwritesOldest(t *testing.T) {
	// Arrange
	h := newTaskHistory(3)

	// Act
	for i := 1; i <= 5; i++ {
		h.Add(TaskRecord{TaskID: TaskID(i)})
	}

	// Assert
	if diff := cmp.Diff([]TaskID{5, 4, 3}, recordIDs(h.Recent(0))); diff != "" {
		t.Fatalf("Recent(0) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]TaskID{5, 4}, recordIDs(h.Recent(2))); diff != "" {
		t.Fatalf("Recent(2) mismatch (-want +got):\n%s", diff)
	}
	last, ok := h.Last()
	if !ok || last.TaskID != 5 {
		t.Fatalf("Last() = %v, %v, want 5, true", last.TaskID, ok)
	}
}

// TestTaskHistory_Empty verifies the empty ring
func TestTaskHistory_Empty(t *testing.T) {
	h := newTaskHistory(0)

	if got := h.Recent(10); got != nil {
		t.Fatalf("Recent() = %v, want nil", got)
	}
	if _, ok := h.Last(); ok {
		t.Fatal("Last() ok = true on empty history")
	}
	if got := len(h.items); got != defaultTaskHistoryCapacity {
		t.Fatalf("capacity = %d, want %d", got, defaultTaskHistoryCapacity)
	}
}

func TestResolveTaskName(t *testing.T) {
	tests := []struct {
		name string
		fn   any
		want string
	}{
		{"nil", nil, "anonymous"},
		{"not a func", 42, "anonymous"},
		{"typed nil func", (func())(nil), "anonymous"},
		{"named func", namedWork, "core.namedWork"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveTaskName(tt.fn); got != tt.want {
				t.Fatalf("resolveTaskName() = %q, want %q", got, tt.want)
			}
		})
	}
}
