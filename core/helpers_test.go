package core

import (
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"
)

func newTestScheduler() (*Scheduler, *TestPanicHandler, *TestMetrics) {
	panics := NewTestPanicHandler()
	metrics := NewTestMetrics()
	s := NewScheduler(&SchedulerConfig{
		Logger:       NewNoOpLogger(),
		PanicHandler: panics,
		Metrics:      metrics,
	})
	return s, panics, metrics
}

// tickUntil ticks s from the calling goroutine until cond holds or timeout.
func tickUntil(t *testing.T, s *Scheduler, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v", timeout)
		}
		s.Tick()
		time.Sleep(time.Millisecond)
	}
}

// eventually polls cond without ticking.
func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v", timeout)
		}
		time.Sleep(time.Millisecond)
	}
}

// goroutineID parses the current goroutine's ID from its stack header.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	field := strings.Fields(strings.TrimPrefix(string(buf[:n]), "goroutine "))[0]
	id, _ := strconv.ParseUint(field, 10, 64)
	return id
}
