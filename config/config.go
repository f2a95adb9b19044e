// Package config holds every option of a pktmux run and loads it from
// defaults, a yaml file, a .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/pktmux/datarecording"
	"github.com/sarchlab/pktmux/packet"
	"github.com/sarchlab/pktmux/recording"
	"github.com/sarchlab/pktmux/scheduling"
)

// ErrInvalidConfig is returned when an option has a value that cannot be
// used.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full set of options of a run.
type Config struct {
	IngressPorts int     `yaml:"ingressPorts"`
	EgressPorts  int     `yaml:"egressPorts"`
	ArrivalRate  float64 `yaml:"arrivalRate"`
	MaxPerTick   int     `yaml:"maxPerTick"`

	TickInterval time.Duration `yaml:"tickInterval"`

	// Ticks is the number of ticks to run. Zero runs until cancelled.
	Ticks uint64 `yaml:"ticks"`

	// Seed seeds the random source. Zero picks a seed from the clock.
	Seed uint64 `yaml:"seed"`

	QueueCapacity int `yaml:"queueCapacity"`

	PriorityDist string  `yaml:"priorityDist"`
	PriorityRate float64 `yaml:"priorityRate"`
	PriorityMax  uint32  `yaml:"priorityMax"`

	LatencyLog   string `yaml:"latencyLog"`
	SQLitePath   string `yaml:"sqlitePath"`
	SQLiteDriver string `yaml:"sqliteDriver"`
	TraceCSV     string `yaml:"traceCSV"`

	VirtualTime bool `yaml:"virtualTime"`
	Async       bool `yaml:"async"`
	AsyncBuffer int  `yaml:"asyncBuffer"`

	Monitor     bool `yaml:"monitor"`
	MonitorPort int  `yaml:"monitorPort"`
	OpenBrowser bool `yaml:"openBrowser"`

	Verbose bool `yaml:"verbose"`
}

// Default returns the configuration of the reference driver: four ports, a
// mean of five arrivals per tick and one tick per second.
func Default() Config {
	gen := packet.DefaultGeneratorConfig()

	return Config{
		IngressPorts: gen.IngressPorts,
		EgressPorts:  gen.EgressPorts,
		ArrivalRate:  gen.ArrivalRate,
		MaxPerTick:   gen.MaxPerTick,
		TickInterval: time.Second,
		PriorityDist: gen.Priority.Dist,
		PriorityRate: gen.Priority.Rate,
		LatencyLog:   recording.DefaultLogFile,
		SQLiteDriver: datarecording.DriverPureGo,
		AsyncBuffer:  recording.DefaultAsyncBuffer,
	}
}

// Load reads a yaml file over the defaults. Options the file does not name
// keep their default values.
func Load(path string) (Config, error) {
	c := Default()

	if err := c.LoadFile(path); err != nil {
		return Config{}, err
	}

	return c, nil
}

// LoadFile reads a yaml file over c.
func (c *Config) LoadFile(path string) error {
	dict, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(dict, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	return nil
}

// YAML renders the configuration as a yaml document.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// GeneratorConfig returns the options of the packet generator.
func (c Config) GeneratorConfig() packet.GeneratorConfig {
	return packet.GeneratorConfig{
		IngressPorts: c.IngressPorts,
		EgressPorts:  c.EgressPorts,
		ArrivalRate:  c.ArrivalRate,
		MaxPerTick:   c.MaxPerTick,
		Priority: packet.PriorityConfig{
			Dist: c.PriorityDist,
			Rate: c.PriorityRate,
			Max:  c.PriorityMax,
		},
	}
}

// SchedulerConfig returns the options of the scheduler.
func (c Config) SchedulerConfig() scheduling.Config {
	return scheduling.Config{
		IngressPorts:  c.IngressPorts,
		EgressPorts:   c.EgressPorts,
		QueueCapacity: c.QueueCapacity,
	}
}

// Validate checks every option. The errors of the generator and the
// scheduler wrap packet.ErrInvalidParameter; the others wrap
// ErrInvalidConfig.
func (c Config) Validate() error {
	if err := c.GeneratorConfig().Validate(); err != nil {
		return err
	}

	if err := c.SchedulerConfig().Validate(); err != nil {
		return err
	}

	if c.TickInterval < 0 {
		return fmt.Errorf("%w: tick interval must not be negative, got %s",
			ErrInvalidConfig, c.TickInterval)
	}

	if c.VirtualTime && c.Ticks == 0 {
		return fmt.Errorf("%w: virtual time needs a tick count",
			ErrInvalidConfig)
	}

	switch c.SQLiteDriver {
	case datarecording.DriverPureGo, datarecording.DriverCgo:
	default:
		return fmt.Errorf("%w: unknown sqlite driver %q",
			ErrInvalidConfig, c.SQLiteDriver)
	}

	if c.AsyncBuffer < 0 {
		return fmt.Errorf("%w: async buffer must not be negative, got %d",
			ErrInvalidConfig, c.AsyncBuffer)
	}

	if c.MonitorPort < 0 || c.MonitorPort > 65535 {
		return fmt.Errorf("%w: monitor port %d out of range",
			ErrInvalidConfig, c.MonitorPort)
	}

	return nil
}
