package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sarchlab/pktmux/config"
)

// bindFlags registers one flag per option, writing into c.
func bindFlags(fs *pflag.FlagSet, c *config.Config) {
	fs.IntVar(&c.IngressPorts, "ingress-ports", c.IngressPorts,
		"number of ingress ports")
	fs.IntVar(&c.EgressPorts, "egress-ports", c.EgressPorts,
		"number of egress ports, must equal the ingress ports")
	fs.Float64Var(&c.ArrivalRate, "arrival-rate", c.ArrivalRate,
		"mean number of packets arriving per tick")
	fs.IntVar(&c.MaxPerTick, "max-per-tick", c.MaxPerTick,
		"most packets generated in one tick")
	fs.DurationVar(&c.TickInterval, "tick-interval", c.TickInterval,
		"time between ticks")
	fs.Uint64Var(&c.Ticks, "ticks", c.Ticks,
		"number of ticks to run, 0 runs until interrupted")
	fs.Uint64Var(&c.Seed, "seed", c.Seed,
		"seed of the random source, 0 picks one from the clock")
	fs.IntVar(&c.QueueCapacity, "queue-capacity", c.QueueCapacity,
		"packets an ingress queue holds, 0 for unbounded")
	fs.StringVar(&c.PriorityDist, "priority-dist", c.PriorityDist,
		"priority distribution: poisson, uniform or constant")
	fs.Float64Var(&c.PriorityRate, "priority-rate", c.PriorityRate,
		"mean of the poisson priority distribution")
	fs.Uint32Var(&c.PriorityMax, "priority-max", c.PriorityMax,
		"upper bound of the uniform and value of the constant priority")
	fs.StringVar(&c.LatencyLog, "latency-log", c.LatencyLog,
		"latency log file, empty to disable")
	fs.StringVar(&c.SQLitePath, "sqlite", c.SQLitePath,
		"sqlite database for latencies and traces, empty to disable")
	fs.StringVar(&c.SQLiteDriver, "sqlite-driver", c.SQLiteDriver,
		"sqlite driver: sqlite (pure Go) or sqlite3 (cgo)")
	fs.StringVar(&c.TraceCSV, "trace-csv", c.TraceCSV,
		"csv departure trace, without the extension, empty to disable")
	fs.BoolVar(&c.VirtualTime, "virtual-time", c.VirtualTime,
		"advance a virtual clock instead of sleeping between ticks")
	fs.BoolVar(&c.Async, "async", c.Async,
		"write latency entries from a background goroutine")
	fs.IntVar(&c.AsyncBuffer, "async-buffer", c.AsyncBuffer,
		"entries queued for the background writer before dropping")
	fs.BoolVar(&c.Monitor, "monitor", c.Monitor,
		"serve the web monitor")
	fs.IntVar(&c.MonitorPort, "monitor-port", c.MonitorPort,
		"port of the web monitor, 0 for a random one")
	fs.BoolVar(&c.OpenBrowser, "open-browser", c.OpenBrowser,
		"open the web monitor in a browser")
	fs.BoolVarP(&c.Verbose, "verbose", "v", c.Verbose,
		"print every tick, departure and queue")
}

// resolveConfig layers the options: defaults, then the yaml file, then the
// env file and the environment, then the flags the user set.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	c := config.Default()

	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		if err := c.LoadFile(path); err != nil {
			return config.Config{}, err
		}
	}

	envFile, _ := cmd.Flags().GetString("env-file")
	if err := c.ApplyEnv(envFile); err != nil {
		return config.Config{}, err
	}

	resolved := pflag.NewFlagSet("resolved", pflag.ContinueOnError)
	bindFlags(resolved, &c)

	var setErr error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if resolved.Lookup(f.Name) == nil || setErr != nil {
			return
		}

		setErr = resolved.Set(f.Name, f.Value.String())
	})

	if setErr != nil {
		return config.Config{}, setErr
	}

	return c, c.Validate()
}
