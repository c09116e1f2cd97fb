package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config describes one simulation scenario.
type Config struct {
	Title      string           `toml:"title"`
	Simulation SimulationConfig `toml:"simulation"`
	Chain      ChainConfig      `toml:"chain"`
	Workload   WorkloadConfig   `toml:"workload"`
}

// SimulationConfig holds the parameters shared by every node.
type SimulationConfig struct {
	FreqGHz       float64 `toml:"freq_ghz"`
	WordWidth     int     `toml:"word_width"`
	LinkLatency   int     `toml:"link_latency"`
	TimeoutCycles int     `toml:"timeout_cycles"`
}

// ChainConfig describes the topology of the control path.
type ChainConfig struct {
	Repeaters    int                 `toml:"repeaters"`
	Destinations []DestinationConfig `toml:"destination"`
}

// DestinationConfig describes one destination on the terminal satellite.
type DestinationConfig struct {
	ID          uint8    `toml:"id"`
	BufferSpace uint16   `toml:"buffer_space"`
	Channels    []uint16 `toml:"channels"`
}

// WorkloadConfig describes the command script the driver plays.
type WorkloadConfig struct {
	WritesPerChannel int    `toml:"writes_per_channel"`
	TimestampStride  uint64 `toml:"timestamp_stride"`
}

// DefaultConfig returns the scenario used when no config file is given: a
// two-hop chain with one destination and two channels.
func DefaultConfig() Config {
	return Config{
		Title: "default",
		Simulation: SimulationConfig{
			FreqGHz:       1,
			WordWidth:     4,
			LinkLatency:   3,
			TimeoutCycles: 10000,
		},
		Chain: ChainConfig{
			Repeaters: 2,
			Destinations: []DestinationConfig{
				{ID: 0, BufferSpace: 64, Channels: []uint16{0, 1}},
			},
		},
		Workload: WorkloadConfig{
			WritesPerChannel: 16,
			TimestampStride:  1000,
		},
	}
}

// LoadConfig reads a scenario from a TOML file. Fields that the file leaves
// out keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read config %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf(
			"unknown key %s in config %s", undecoded[0], path)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.Simulation.FreqGHz <= 0 {
		return fmt.Errorf("freq_ghz must be positive")
	}

	if c.Simulation.WordWidth < 1 || c.Simulation.WordWidth > 8 {
		return fmt.Errorf("word_width must be in [1, 8]")
	}

	if c.Chain.Repeaters < 0 {
		return fmt.Errorf("repeaters must not be negative")
	}

	if len(c.Chain.Destinations) == 0 {
		return fmt.Errorf("at least one destination is required")
	}

	for _, d := range c.Chain.Destinations {
		if len(d.Channels) == 0 {
			return fmt.Errorf("destination %d has no channels", d.ID)
		}
	}

	return nil
}
