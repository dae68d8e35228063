package core

import (
	"fmt"
	"iter"
	"time"
)

// InstructionKind tags an Instruction.
type InstructionKind uint8

const (
	// KindValue is opaque passthrough: recorded as LastYielded, otherwise ignored.
	KindValue InstructionKind = iota

	// KindToCooperative asks to continue on the cooperative backend.
	KindToCooperative

	// KindToBackground asks to continue on a background worker.
	KindToBackground

	// KindWait suspends the task until the deadline passes.
	KindWait

	// KindAbort marks abort. A sequence that yields it requests its own abort;
	// the scheduler records it as LastYielded when a worker hands an aborted
	// task back.
	KindAbort
)

func (k InstructionKind) String() string {
	switch k {
	case KindValue:
		return "Value"
	case KindToCooperative:
		return "ToCooperative"
	case KindToBackground:
		return "ToBackground"
	case KindWait:
		return "Wait"
	case KindAbort:
		return "AbortNow"
	default:
		return fmt.Sprintf("InstructionKind(%d)", k)
	}
}

// Instruction is what a step-sequence yields to talk to the scheduler.
// The zero value is an opaque nil passthrough.
type Instruction struct {
	Kind     InstructionKind
	Value    any
	deadline time.Time
}

// Steps is a step-sequence: a resumable unit of work yielding one Instruction
// per step. When yield returns false the task has been aborted and the
// sequence should clean up and return.
type Steps = iter.Seq[Instruction]

var (
	// ToCooperative hands the task to the cooperative backend.
	ToCooperative = Instruction{Kind: KindToCooperative}

	// ToBackground hands the task to a background worker.
	ToBackground = Instruction{Kind: KindToBackground}

	// AbortNow requests abort of the yielding task.
	AbortNow = Instruction{Kind: KindAbort}
)

// Wait returns an instruction that suspends the task for d. The deadline is
// fixed when Wait is called, not when the scheduler first sees it.
func Wait(d time.Duration) Instruction {
	if d < 0 {
		d = 0
	}
	return Instruction{Kind: KindWait, deadline: time.Now().Add(d)}
}

// Yield wraps an arbitrary diagnostic value.
func Yield(v any) Instruction {
	return Instruction{Kind: KindValue, Value: v}
}

// Remaining returns the time left on a wait instruction, zero otherwise.
func (in Instruction) Remaining() time.Duration {
	if in.Kind != KindWait {
		return 0
	}
	return max(0, time.Until(in.deadline))
}

// Exhausted reports whether a wait instruction has run out. Non-wait
// instructions are always exhausted.
func (in Instruction) Exhausted() bool {
	return in.Remaining() == 0
}

func (in Instruction) String() string {
	switch in.Kind {
	case KindValue:
		return fmt.Sprint(in.Value)
	case KindWait:
		return fmt.Sprintf("Wait:%dms", in.Remaining().Milliseconds())
	default:
		return in.Kind.String()
	}
}
