// Package driver provides a scripted command source. It plays a sequence of
// CRI commands against a surface, one at a time, and collects the results.
package driver

import (
	"github.com/synchrolab/drtsim/drtio/cri"
	"github.com/synchrolab/drtsim/sim"
)

// A Record pairs a command with the result it produced.
type Record struct {
	Cmd    cri.Command
	Result cri.Result
}

// Comp submits the scripted commands in order. It waits for each command to
// resolve before submitting the next one, as the surface requires.
type Comp struct {
	*sim.TickingComponent

	surface *cri.Surface
	script  []cri.Command
	next    int

	records []Record
}

// Tick polls the outstanding command and submits the next one.
func (c *Comp) Tick() bool {
	madeProgress := false

	if done, r := c.surface.Poll(); done {
		c.records = append(c.records, Record{
			Cmd:    c.script[c.next-1],
			Result: r,
		})
		madeProgress = true
	}

	if !c.surface.Busy() && c.next < len(c.script) {
		err := c.surface.Submit(c.script[c.next])
		if err != nil {
			panic(err)
		}

		c.next++
		madeProgress = true
	}

	return madeProgress
}

// Done reports whether every scripted command has resolved.
func (c *Comp) Done() bool {
	return len(c.records) == len(c.script)
}

// Records returns the command results collected so far, in script order.
func (c *Comp) Records() []Record {
	return c.records
}

// Builder can build drivers.
type Builder struct {
	engine  sim.Engine
	freq    sim.Freq
	surface *cri.Surface
	script  []cri.Command
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{freq: 1 * sim.GHz}
}

// WithEngine sets the engine the driver runs on.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency the driver submits at.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithSurface sets the CRI surface the driver plays against.
func (b Builder) WithSurface(s *cri.Surface) Builder {
	b.surface = s
	return b
}

// WithScript sets the commands to play, in order.
func (b Builder) WithScript(script []cri.Command) Builder {
	b.script = script
	return b
}

// Build creates the driver.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		surface: b.surface,
		script:  b.script,
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	b.surface.OnComplete(c.TickLater)

	return c
}
