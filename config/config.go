// Package config loads the TOML configuration shared by the cellpool command
// and anything else that builds pools, executors and stores from a file.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Config struct {
	Log      Log             `toml:"log"`
	Executor Executor        `toml:"executor"`
	Report   Report          `toml:"report"`
	Cache    Cache           `toml:"cache"`
	Pools    map[string]Pool `toml:"pools"`
}

type Log struct {
	Level  string `toml:"level"`  // default: info
	Format string `toml:"format"` // json or console; default: console
}

type Executor struct {
	Workers    int `toml:"workers"`     // 0 means one per CPU
	BufferSize int `toml:"buffer_size"` // 0 means 1
}

type Report struct {
	Interval Duration `toml:"interval"`
}

type Cache struct {
	TTL Duration `toml:"ttl"` // 0 keeps entries until deleted
}

type Pool struct {
	Capacity int `toml:"capacity"`
}

// Duration is a time.Duration written as a Go duration string, e.g. "1.5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log: Log{
			Level:  "info",
			Format: FormatConsole,
		},
		Report: Report{Interval: Duration{time.Second}},
		Cache:  Cache{TTL: Duration{time.Minute}},
		Pools:  map[string]Pool{},
	}
}

// Load decodes a TOML document over Default and validates the result.
// Keys that do not belong to the configuration are reported as errors.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("couldn't decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if cfg.Pools == nil {
		cfg.Pools = map[string]Pool{}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile is Load on the named file.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("couldn't open config: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Validate reports every problem in the configuration at once.
func (c Config) Validate() error {
	var err error
	if _, perr := zapcore.ParseLevel(c.Log.Level); perr != nil {
		err = multierr.Append(err, fmt.Errorf("%s: %w", KeyLogLevel, perr))
	}
	switch c.Log.Format {
	case FormatJSON, FormatConsole:
	default:
		err = multierr.Append(err, fmt.Errorf("%s: unknown format %q", KeyLogFormat, c.Log.Format))
	}
	if c.Executor.Workers < 0 {
		err = multierr.Append(err, fmt.Errorf("%s: must not be negative", KeyExecutorWorkers))
	}
	if c.Executor.BufferSize < 0 {
		err = multierr.Append(err, fmt.Errorf("%s: must not be negative", KeyExecutorBufferSize))
	}
	if c.Report.Interval.Duration < 0 {
		err = multierr.Append(err, fmt.Errorf("%s: must not be negative", KeyReportInterval))
	}
	if c.Cache.TTL.Duration < 0 {
		err = multierr.Append(err, fmt.Errorf("%s: must not be negative", KeyCacheTTL))
	}
	for name, p := range c.Pools {
		if p.Capacity < 0 {
			err = multierr.Append(err, fmt.Errorf("%s: must not be negative", PoolCapacityKey(name)))
		}
	}
	return err
}

// PoolCapacity returns the configured capacity of the named pool, or fallback
// if it has none.
func (c Config) PoolCapacity(name string, fallback int) int {
	if p, ok := c.Pools[name]; ok {
		return p.Capacity
	}
	return fallback
}
