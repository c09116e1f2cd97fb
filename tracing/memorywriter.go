package tracing

import "sync"

// MemoryTraceWriter keeps finished tasks in memory. It is mainly useful in
// tests.
type MemoryTraceWriter struct {
	sync.Mutex

	tasks []Task
}

// NewMemoryTraceWriter creates a MemoryTraceWriter.
func NewMemoryTraceWriter() *MemoryTraceWriter {
	return &MemoryTraceWriter{}
}

// Init does nothing for a memory writer.
func (w *MemoryTraceWriter) Init() {}

// Write records a finished task.
func (w *MemoryTraceWriter) Write(task Task) {
	w.Lock()
	defer w.Unlock()

	w.tasks = append(w.tasks, task)
}

// Flush does nothing for a memory writer.
func (w *MemoryTraceWriter) Flush() {}

// Tasks returns the recorded tasks in completion order.
func (w *MemoryTraceWriter) Tasks() []Task {
	w.Lock()
	defer w.Unlock()

	tasks := make([]Task, len(w.tasks))
	copy(tasks, w.tasks)
	return tasks
}
