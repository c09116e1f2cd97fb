package repeater

import (
	"github.com/synchrolab/drtsim/drtio/packet"
	"github.com/synchrolab/drtsim/sim"
)

// Builder can build repeaters.
type Builder struct {
	engine     sim.Engine
	freq       sim.Freq
	wordWidth  int
	upstream   sim.RemotePort
	downstream sim.RemotePort
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:      1 * sim.GHz,
		wordWidth: 4,
	}
}

// WithEngine sets the engine that drives the repeater.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency the repeater works at.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithWordWidth sets the word width of both attached links in bytes.
func (b Builder) WithWordWidth(w int) Builder {
	b.wordWidth = w
	return b
}

// WithUpstream sets the remote port upstream replies are addressed to.
func (b Builder) WithUpstream(remote sim.RemotePort) Builder {
	b.upstream = remote
	return b
}

// WithDownstream sets the remote port downstream commands are addressed to.
func (b Builder) WithDownstream(remote sim.RemotePort) Builder {
	b.downstream = remote
	return b
}

// Build creates a repeater with the given name.
func (b Builder) Build(name string) *Comp {
	if err := packet.ValidateWordWidth(b.wordWidth); err != nil {
		panic(err)
	}

	c := &Comp{
		wordWidth:      b.wordWidth,
		upstreamPort:   b.upstream,
		downstreamPort: b.downstream,
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.UpPort = sim.NewPort(c, 1, 1, name+".UpPort")
	c.DownPort = sim.NewPort(c, 1, 1, name+".DownPort")
	c.AddPort("Up", c.UpPort)
	c.AddPort("Down", c.DownPort)

	return c
}
