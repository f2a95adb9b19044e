package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix starts the name of every environment variable the config reads.
const EnvPrefix = "PKTMUX_"

// DefaultEnvFile is read by ApplyEnv when no file is named. It is fine for it
// to be missing.
const DefaultEnvFile = ".env"

type envSetter func(c *Config, value string) error

var envSetters = map[string]envSetter{
	"INGRESS_PORTS": intSetter(func(c *Config) *int { return &c.IngressPorts }),
	"EGRESS_PORTS":  intSetter(func(c *Config) *int { return &c.EgressPorts }),
	"ARRIVAL_RATE": floatSetter(
		func(c *Config) *float64 { return &c.ArrivalRate }),
	"MAX_PER_TICK": intSetter(func(c *Config) *int { return &c.MaxPerTick }),
	"TICK_INTERVAL": func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		c.TickInterval = d
		return err
	},
	"TICKS": uintSetter(func(c *Config) *uint64 { return &c.Ticks }),
	"SEED":  uintSetter(func(c *Config) *uint64 { return &c.Seed }),
	"QUEUE_CAPACITY": intSetter(
		func(c *Config) *int { return &c.QueueCapacity }),
	"PRIORITY_DIST": stringSetter(
		func(c *Config) *string { return &c.PriorityDist }),
	"PRIORITY_RATE": floatSetter(
		func(c *Config) *float64 { return &c.PriorityRate }),
	"PRIORITY_MAX": func(c *Config, v string) error {
		n, err := strconv.ParseUint(v, 10, 32)
		c.PriorityMax = uint32(n)
		return err
	},
	"LATENCY_LOG": stringSetter(func(c *Config) *string { return &c.LatencyLog }),
	"SQLITE_PATH": stringSetter(func(c *Config) *string { return &c.SQLitePath }),
	"SQLITE_DRIVER": stringSetter(
		func(c *Config) *string { return &c.SQLiteDriver }),
	"TRACE_CSV":    stringSetter(func(c *Config) *string { return &c.TraceCSV }),
	"VIRTUAL_TIME": boolSetter(func(c *Config) *bool { return &c.VirtualTime }),
	"ASYNC":        boolSetter(func(c *Config) *bool { return &c.Async }),
	"ASYNC_BUFFER": intSetter(func(c *Config) *int { return &c.AsyncBuffer }),
	"MONITOR":      boolSetter(func(c *Config) *bool { return &c.Monitor }),
	"MONITOR_PORT": intSetter(func(c *Config) *int { return &c.MonitorPort }),
	"OPEN_BROWSER": boolSetter(func(c *Config) *bool { return &c.OpenBrowser }),
	"VERBOSE":      boolSetter(func(c *Config) *bool { return &c.Verbose }),
}

func intSetter(field func(*Config) *int) envSetter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		*field(c) = n
		return err
	}
}

func uintSetter(field func(*Config) *uint64) envSetter {
	return func(c *Config, v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		*field(c) = n
		return err
	}
}

func floatSetter(field func(*Config) *float64) envSetter {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		*field(c) = f
		return err
	}
}

func boolSetter(field func(*Config) *bool) envSetter {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		*field(c) = b
		return err
	}
}

func stringSetter(field func(*Config) *string) envSetter {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

// ApplyEnv overrides options with PKTMUX_* variables, first from envFile and
// then from the process environment. An empty envFile reads DefaultEnvFile if
// it exists; a named file must exist.
func (c *Config) ApplyEnv(envFile string) error {
	fileVars, err := readEnvFile(envFile)
	if err != nil {
		return err
	}

	if err := c.applyVars(fileVars); err != nil {
		return err
	}

	procVars := make(map[string]string)
	for key := range envSetters {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			procVars[EnvPrefix+key] = v
		}
	}

	return c.applyVars(procVars)
}

func readEnvFile(envFile string) (map[string]string, error) {
	optional := envFile == ""
	if optional {
		envFile = DefaultEnvFile
	}

	vars, err := godotenv.Read(envFile)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("config: read %s: %w", envFile, err)
	}

	return vars, nil
}

func (c *Config) applyVars(vars map[string]string) error {
	for name, value := range vars {
		key, found := strings.CutPrefix(name, EnvPrefix)
		if !found {
			continue
		}

		setter, ok := envSetters[key]
		if !ok {
			continue
		}

		if err := setter(c, value); err != nil {
			return fmt.Errorf("%w: %s=%q: %v",
				ErrInvalidConfig, name, value, err)
		}
	}

	return nil
}
