package core

import "time"

// TaskRecord captures a finished task.
type TaskRecord struct {
	TaskID     TaskID
	Name       string
	State      TaskState
	Backend    Backend
	StartedAt  time.Time
	FinishedAt time.Time
	LifeTime   time.Duration
	Ticks      int64
	Panicked   bool
}

// SchedulerStats represents runtime observability state for a Scheduler.
type SchedulerStats struct {
	Registered  int
	Cooperative int
	Background  int
	Passes      uint64
	Completed   uint64
	Aborted     uint64
	Panicked    uint64
}
