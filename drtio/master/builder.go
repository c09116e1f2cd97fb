package master

import (
	"github.com/synchrolab/drtsim/drtio/cri"
	"github.com/synchrolab/drtsim/drtio/flow"
	"github.com/synchrolab/drtsim/drtio/packet"
	"github.com/synchrolab/drtsim/sim"
)

// Builder can build master packet engines.
type Builder struct {
	engine        sim.Engine
	freq          sim.Freq
	wordWidth     int
	timeoutCycles int
	downstream    sim.RemotePort
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:      1 * sim.GHz,
		wordWidth: 4,
	}
}

// WithEngine sets the engine that drives the master.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency the master works at.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithWordWidth sets the word width of the downstream link in bytes.
func (b Builder) WithWordWidth(w int) Builder {
	b.wordWidth = w
	return b
}

// WithTimeoutCycles sets the reply timeout. Zero disables the timeout,
// reproducing the bare protocol behavior.
func (b Builder) WithTimeoutCycles(n int) Builder {
	b.timeoutCycles = n
	return b
}

// WithDownstream sets the remote port frames are addressed to.
func (b Builder) WithDownstream(remote sim.RemotePort) Builder {
	b.downstream = remote
	return b
}

// Build creates a master packet engine with the given name.
func (b Builder) Build(name string) *Comp {
	if err := packet.ValidateWordWidth(b.wordWidth); err != nil {
		panic(err)
	}

	c := &Comp{
		flowCtrl:       flow.NewController(),
		wordWidth:      b.wordWidth,
		timeoutCycles:  b.timeoutCycles,
		downstreamPort: b.downstream,
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)
	c.surface = cri.NewSurface(c.TickLater)

	c.DownPort = sim.NewPort(c, 4, 4, name+".DownPort")
	c.AddPort("Down", c.DownPort)

	return c
}
