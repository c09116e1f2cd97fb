package tracing

import "github.com/synchrolab/drtsim/sim"

// A Task is a unit of work that a component performs, such as carrying one
// frame from acceptance to execution.
type Task struct {
	ID        string         `json:"id"`
	ParentID  string         `json:"parent_id"`
	Kind      string         `json:"kind"`
	What      string         `json:"what"`
	Where     string         `json:"where"`
	StartTime sim.VTimeInSec `json:"start_time"`
	EndTime   sim.VTimeInSec `json:"end_time"`
	Detail    interface{}    `json:"-"`
}

// A Tracer observes task start and end.
type Tracer interface {
	StartTask(task Task)
	EndTask(task Task)
}
