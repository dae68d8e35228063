package core

import (
	"strings"
	"testing"
	"time"
)

// TestWait_DeadlineFixedAtConstruction verifies the wait clock starts at Wait()
// Given: A 20ms wait instruction
// When: 25ms pass before it is inspected
// Then: It is already exhausted
func TestWait_DeadlineFixedAtConstruction(t *testing.T) {
	// Arrange
	in := Wait(20 * time.Millisecond)

	// Act
	fresh := in.Exhausted()
	time.Sleep(25 * time.Millisecond)

	// Assert
	if fresh {
		t.Fatal("fresh wait should not be exhausted")
	}
	if !in.Exhausted() {
		t.Fatal("wait should be exhausted after its duration")
	}
	if got := in.Remaining(); got != 0 {
		t.Fatalf("Remaining() = %v, want 0", got)
	}
}

// TestInstruction_NonWaitAlwaysExhausted verifies non-wait kinds have no deadline
func TestInstruction_NonWaitAlwaysExhausted(t *testing.T) {
	for _, in := range []Instruction{ToCooperative, ToBackground, AbortNow, Yield(3), {}} {
		if !in.Exhausted() {
			t.Fatalf("%v should be exhausted", in)
		}
	}
	if !Wait(-time.Second).Exhausted() {
		t.Fatal("negative wait should be exhausted")
	}
}

// TestInstruction_String verifies diagnostic rendering
func TestInstruction_String(t *testing.T) {
	if got := ToBackground.String(); got != "ToBackground" {
		t.Fatalf("ToBackground = %q", got)
	}
	if got := AbortNow.String(); got != "AbortNow" {
		t.Fatalf("AbortNow = %q", got)
	}
	if got := Yield("x").String(); got != "x" {
		t.Fatalf("Yield(x) = %q", got)
	}
	if got := Wait(time.Second).String(); !strings.HasPrefix(got, "Wait:") {
		t.Fatalf("Wait = %q, want Wait: prefix", got)
	}
	if got := InstructionKind(99).String(); got != "InstructionKind(99)" {
		t.Fatalf("unknown kind = %q", got)
	}
}
