package main

import (
	"math/big"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/synchrolab/drtsim/drtio"
	"github.com/synchrolab/drtsim/drtio/chain"
	"github.com/synchrolab/drtsim/drtio/cri"
	"github.com/synchrolab/drtsim/drtio/driver"
	"github.com/synchrolab/drtsim/monitoring"
	"github.com/synchrolab/drtsim/sim"
	"github.com/synchrolab/drtsim/tracing"
)

var runFlags struct {
	configPath  string
	verbose     bool
	monitor     bool
	monitorPort int
	openBrowser bool
	traceDB     string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario",
	RunE: func(_ *cobra.Command, _ []string) error {
		return run()
	},
}

func init() {
	runCmd.Flags().StringVarP(&runFlags.configPath,
		"config", "c", "", "scenario file to run")
	runCmd.Flags().BoolVarP(&runFlags.verbose,
		"verbose", "v", false, "log every command result")
	runCmd.Flags().BoolVar(&runFlags.monitor,
		"monitor", false, "start the monitoring server")
	runCmd.Flags().IntVar(&runFlags.monitorPort,
		"monitor-port", 0, "port of the monitoring server")
	runCmd.Flags().BoolVar(&runFlags.openBrowser,
		"open-browser", false, "open the monitoring page in a browser")
	runCmd.Flags().StringVar(&runFlags.traceDB,
		"trace", "", "write a task trace to the given SQLite database")

	rootCmd.AddCommand(runCmd)
}

func run() error {
	if runFlags.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg := DefaultConfig()
	if runFlags.configPath != "" {
		var err error
		cfg, err = LoadConfig(runFlags.configPath)
		if err != nil {
			return err
		}
	}

	log.Info().
		Str("title", cfg.Title).
		Int("repeaters", cfg.Chain.Repeaters).
		Int("word_width", cfg.Simulation.WordWidth).
		Msg("scenario loaded")

	engine := sim.NewSerialEngine()
	s := sim.NewSimulation(engine)

	ch := buildChain(cfg, engine)
	ch.RegisterWith(s)

	d := driver.MakeBuilder().
		WithEngine(engine).
		WithFreq(sim.Freq(cfg.Simulation.FreqGHz) * sim.GHz).
		WithSurface(ch.Master.Surface()).
		WithScript(buildScript(cfg)).
		Build("Driver")
	s.RegisterComponent(d)

	if runFlags.traceDB != "" {
		attachTracer(engine, ch)
	}

	if runFlags.monitor {
		startMonitor(engine, s)
	}

	d.TickLater()
	if err := engine.Run(); err != nil {
		return err
	}
	engine.Finished()

	report(cfg, engine, ch, d)

	return nil
}

func buildChain(cfg Config, engine sim.Engine) *chain.Chain {
	b := chain.MakeBuilder().
		WithEngine(engine).
		WithFreq(sim.Freq(cfg.Simulation.FreqGHz) * sim.GHz).
		WithWordWidth(cfg.Simulation.WordWidth).
		WithRepeaters(cfg.Chain.Repeaters).
		WithLinkLatency(cfg.Simulation.LinkLatency).
		WithTimeoutCycles(cfg.Simulation.TimeoutCycles)

	for _, d := range cfg.Chain.Destinations {
		b = b.WithDestination(d.ID, d.BufferSpace)
		for _, ch := range d.Channels {
			b = b.WithChannel(d.ID, ch)
		}
	}

	return b.Build("Chain")
}

// buildScript turns the workload description into a CRI command sequence.
// Each destination is probed for buffer space, written to, and probed again.
func buildScript(cfg Config) []cri.Command {
	var script []cri.Command
	timestamp := uint64(0)

	for _, dest := range cfg.Chain.Destinations {
		script = append(script, cri.Command{
			Op:      cri.OpGetBufferSpace,
			ChanSel: drtio.ChanSel(dest.ID, 0),
		})

		for i := 0; i < cfg.Workload.WritesPerChannel; i++ {
			for _, ch := range dest.Channels {
				timestamp += cfg.Workload.TimestampStride
				script = append(script, cri.Command{
					Op:        cri.OpWrite,
					ChanSel:   drtio.ChanSel(dest.ID, ch),
					Timestamp: timestamp,
					Data:      big.NewInt(int64(i)),
				})
			}
		}

		script = append(script, cri.Command{
			Op:      cri.OpGetBufferSpace,
			ChanSel: drtio.ChanSel(dest.ID, 0),
		})
	}

	return script
}

func attachTracer(engine sim.Engine, ch *chain.Chain) {
	writer := tracing.NewSQLiteTraceWriter(runFlags.traceDB)
	writer.Init()

	tracer := tracing.NewDBTracer(engine, writer)
	tracing.CollectTrace(ch.Master, tracer)
	tracing.CollectTrace(ch.Satellite, tracer)
	for _, rep := range ch.Repeaters {
		tracing.CollectTrace(rep, tracer)
	}

	log.Info().Str("db", runFlags.traceDB).Msg("tracing enabled")
}

func startMonitor(engine sim.Engine, s *sim.Simulation) {
	m := monitoring.NewMonitor()
	m.RegisterEngine(engine)
	for _, c := range s.Components() {
		m.RegisterComponent(c)
	}

	if runFlags.monitorPort > 0 {
		m = m.WithPortNumber(runFlags.monitorPort)
	}
	if runFlags.openBrowser {
		m = m.WithBrowserLaunch()
	}

	m.StartServer()
}

func report(
	cfg Config,
	engine sim.Engine,
	ch *chain.Chain,
	d *driver.Comp,
) {
	for _, r := range d.Records() {
		ev := log.Debug().
			Str("op", r.Cmd.Op.String()).
			Uint8("destination", r.Cmd.Destination())

		if r.Result.BufferSpaceValid {
			ev = ev.Uint16("buffer_space", r.Result.BufferSpace)
		}
		if r.Result.Err != nil {
			ev = ev.Str("error", r.Result.Err.Error())
		}

		ev.Msg("command resolved")
	}

	errCount := 0
	for _, r := range d.Records() {
		if r.Result.Err != nil {
			errCount++
		}
	}

	for _, err := range ch.Master.Faults() {
		log.Warn().Err(err).Msg("master fault")
	}
	for _, err := range ch.Satellite.Faults() {
		log.Warn().Err(err).Msg("satellite fault")
	}

	for _, dest := range cfg.Chain.Destinations {
		log.Info().
			Uint8("destination", dest.ID).
			Uint16("buffer_space", ch.Satellite.Space(dest.ID)).
			Msg("destination state")
	}

	log.Info().
		Int("commands", len(d.Records())).
		Int("errors", errCount).
		Bool("complete", d.Done()).
		Float64("time", float64(engine.CurrentTime())).
		Msg("simulation finished")
}
