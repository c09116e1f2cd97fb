// Package chain assembles a full control path: one master, k repeaters, and
// a terminal satellite, connected by word-serial links.
package chain

import (
	"fmt"

	"github.com/synchrolab/drtsim/drtio/link"
	"github.com/synchrolab/drtsim/drtio/master"
	"github.com/synchrolab/drtsim/drtio/repeater"
	"github.com/synchrolab/drtsim/drtio/satellite"
	"github.com/synchrolab/drtsim/sim"
)

// A Chain is an assembled control path.
type Chain struct {
	Master    *master.Comp
	Repeaters []*repeater.Comp
	Satellite *satellite.Comp
	Links     []*link.Comp
}

// Builder can build chains.
type Builder struct {
	engine        sim.Engine
	freq          sim.Freq
	wordWidth     int
	repeaters     int
	linkLatency   int
	timeoutCycles int

	spaces   map[uint8]uint16
	channels map[uint8][]uint16
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:        1 * sim.GHz,
		wordWidth:   4,
		linkLatency: 3,
		spaces:      make(map[uint8]uint16),
		channels:    make(map[uint8][]uint16),
	}
}

// WithEngine sets the engine that drives all the nodes.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency all the nodes work at.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithWordWidth sets the word width of every link in the chain.
func (b Builder) WithWordWidth(w int) Builder {
	b.wordWidth = w
	return b
}

// WithRepeaters sets the number of intermediate hops.
func (b Builder) WithRepeaters(k int) Builder {
	b.repeaters = k
	return b
}

// WithLinkLatency sets the propagation latency of every link in cycles.
func (b Builder) WithLinkLatency(cycles int) Builder {
	b.linkLatency = cycles
	return b
}

// WithTimeoutCycles sets the master's reply timeout. Zero disables it.
func (b Builder) WithTimeoutCycles(n int) Builder {
	b.timeoutCycles = n
	return b
}

// WithDestination declares a destination on the terminal satellite.
func (b Builder) WithDestination(dest uint8, space uint16) Builder {
	b.spaces[dest] = space
	return b
}

// WithChannel declares a channel on a declared destination.
func (b Builder) WithChannel(dest uint8, channel uint16) Builder {
	b.channels[dest] = append(b.channels[dest], channel)
	return b
}

// Build creates the chain. Port names are derived from the chain name, so
// hop neighbors can be addressed before the components exist.
func (b Builder) Build(name string) *Chain {
	c := &Chain{}

	masterName := name + ".Master"
	satelliteName := name + ".Satellite"
	repeaterName := func(i int) string {
		return fmt.Sprintf("%s.Repeater%d", name, i+1)
	}

	// Remote port names along the downstream path, hop by hop.
	downFacing := []sim.RemotePort{sim.RemotePort(masterName + ".DownPort")}
	upFacing := []sim.RemotePort{}
	for i := 0; i < b.repeaters; i++ {
		upFacing = append(upFacing,
			sim.RemotePort(repeaterName(i)+".UpPort"))
		downFacing = append(downFacing,
			sim.RemotePort(repeaterName(i)+".DownPort"))
	}
	upFacing = append(upFacing, sim.RemotePort(satelliteName+".UpPort"))

	c.Master = master.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.freq).
		WithWordWidth(b.wordWidth).
		WithTimeoutCycles(b.timeoutCycles).
		WithDownstream(upFacing[0]).
		Build(masterName)

	for i := 0; i < b.repeaters; i++ {
		rep := repeater.MakeBuilder().
			WithEngine(b.engine).
			WithFreq(b.freq).
			WithWordWidth(b.wordWidth).
			WithUpstream(downFacing[i]).
			WithDownstream(upFacing[i+1]).
			Build(repeaterName(i))
		c.Repeaters = append(c.Repeaters, rep)
	}

	satBuilder := satellite.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.freq).
		WithWordWidth(b.wordWidth).
		WithUpstream(downFacing[len(downFacing)-1])
	for dest, space := range b.spaces {
		satBuilder = satBuilder.WithDestination(dest, space)
	}
	for dest, channels := range b.channels {
		for _, ch := range channels {
			satBuilder = satBuilder.WithChannel(dest, ch)
		}
	}
	c.Satellite = satBuilder.Build(satelliteName)

	c.connect(name, b)

	return c
}

func (c *Chain) connect(name string, b Builder) {
	ends := []sim.Port{c.Master.DownPort}
	for _, rep := range c.Repeaters {
		ends = append(ends, rep.UpPort, rep.DownPort)
	}
	ends = append(ends, c.Satellite.UpPort)

	for i := 0; i < len(ends); i += 2 {
		l := link.NewComp(
			fmt.Sprintf("%s.Link%d", name, i/2),
			b.engine, b.freq, b.wordWidth, b.linkLatency)
		l.PlugIn(ends[i])
		l.PlugIn(ends[i+1])
		c.Links = append(c.Links, l)
	}
}

// RegisterWith registers all the chain's components with a simulation.
func (c *Chain) RegisterWith(s *sim.Simulation) {
	s.RegisterComponent(c.Master)
	for _, rep := range c.Repeaters {
		s.RegisterComponent(rep)
	}
	s.RegisterComponent(c.Satellite)
}
