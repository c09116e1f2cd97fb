package satellite

import (
	"github.com/synchrolab/drtsim/drtio/packet"
	"github.com/synchrolab/drtsim/sim"
)

// Builder can build satellite dispatchers.
type Builder struct {
	engine    sim.Engine
	freq      sim.Freq
	wordWidth int
	upstream  sim.RemotePort

	spaces   map[uint8]uint16
	channels map[uint8][]uint16
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:      1 * sim.GHz,
		wordWidth: 4,
		spaces:    make(map[uint8]uint16),
		channels:  make(map[uint8][]uint16),
	}
}

// WithEngine sets the engine that drives the satellite.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency the satellite works at.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithWordWidth sets the word width of the upstream link in bytes.
func (b Builder) WithWordWidth(w int) Builder {
	b.wordWidth = w
	return b
}

// WithUpstream sets the remote port replies are addressed to.
func (b Builder) WithUpstream(remote sim.RemotePort) Builder {
	b.upstream = remote
	return b
}

// WithDestination declares a destination hosted on this satellite with the
// initial buffer space of its output queue.
func (b Builder) WithDestination(dest uint8, space uint16) Builder {
	b.spaces[dest] = space
	return b
}

// WithChannel declares a channel on a previously declared destination.
func (b Builder) WithChannel(dest uint8, channel uint16) Builder {
	b.channels[dest] = append(b.channels[dest], channel)
	return b
}

// Build creates a satellite dispatcher with the given name.
func (b Builder) Build(name string) *Comp {
	if err := packet.ValidateWordWidth(b.wordWidth); err != nil {
		panic(err)
	}

	c := &Comp{
		wordWidth:    b.wordWidth,
		upstreamPort: b.upstream,
		destinations: make(map[uint8]*destination),
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	for dest, space := range b.spaces {
		c.destinations[dest] = &destination{
			space:    space,
			channels: make(map[uint16]*Channel),
		}
	}
	for dest, channels := range b.channels {
		d, found := c.destinations[dest]
		if !found {
			panic("channel declared on an unknown destination")
		}
		for _, ch := range channels {
			d.channels[ch] = newChannel()
		}
	}

	c.UpPort = sim.NewPort(c, 4, 4, name+".UpPort")
	c.AddPort("Up", c.UpPort)

	return c
}
