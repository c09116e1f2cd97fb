package tracing

import (
	"sync"

	"github.com/synchrolab/drtsim/sim"
)

// A TraceWriter persists finished tasks.
type TraceWriter interface {
	Init()
	Write(task Task)
	Flush()
}

// DBTracer is a tracer that keeps tasks in flight and hands finished tasks
// to a trace writer.
type DBTracer struct {
	sync.Mutex

	timeTeller sim.TimeTeller
	writer     TraceWriter

	inflight map[string]Task
}

// NewDBTracer creates a DBTracer. The writer must be initialized already.
func NewDBTracer(timeTeller sim.TimeTeller, writer TraceWriter) *DBTracer {
	return &DBTracer{
		timeTeller: timeTeller,
		writer:     writer,
		inflight:   make(map[string]Task),
	}
}

// StartTask records the start time of a task.
func (t *DBTracer) StartTask(task Task) {
	t.Lock()
	defer t.Unlock()

	task.StartTime = t.timeTeller.CurrentTime()
	t.inflight[task.ID] = task
}

// EndTask writes the task out with its end time.
func (t *DBTracer) EndTask(task Task) {
	t.Lock()
	defer t.Unlock()

	started, found := t.inflight[task.ID]
	if !found {
		return
	}
	delete(t.inflight, task.ID)

	started.EndTime = t.timeTeller.CurrentTime()
	t.writer.Write(started)
}

// Flush writes out all buffered tasks.
func (t *DBTracer) Flush() {
	t.writer.Flush()
}
