package core

// TaskRegistry lists every task from creation until finalization, whichever
// backend currently owns it. It holds references for enumeration only.
type TaskRegistry struct {
	tasks *SynchronizedSequence[*Task]
}

// NewTaskRegistry creates an empty registry.
func NewTaskRegistry(capacity int) *TaskRegistry {
	return &TaskRegistry{tasks: NewSynchronizedSequence[*Task](capacity)}
}

// Add registers t.
func (r *TaskRegistry) Add(t *Task) {
	r.tasks.Append(t)
}

// Remove tombstones t. The slot is reclaimed by the next Compact.
func (r *TaskRegistry) Remove(t *Task) bool {
	return r.tasks.Remove(t)
}

// Len returns the number of registered tasks.
func (r *TaskRegistry) Len() int {
	return r.tasks.Live()
}

// Compact reclaims tombstoned slots.
func (r *TaskRegistry) Compact() {
	r.tasks.Compact()
}

// Snapshot returns the registered tasks in registration order, without
// tombstones.
func (r *TaskRegistry) Snapshot() []*Task {
	out := r.tasks.Snapshot()

	index := 0
	for _, t := range out {
		if t == nil {
			continue
		}
		out[index] = t
		index++
	}
	clear(out[index:])
	return out[:index:index]
}

// Infos returns a TaskInfo row per registered task.
func (r *TaskRegistry) Infos() []TaskInfo {
	tasks := r.Snapshot()
	out := make([]TaskInfo, len(tasks))
	for i, t := range tasks {
		out[i] = t.Info()
	}
	return out
}
