package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every run setting. Values come from defaults, then an
// optional YAML file, then the environment; command-line flags apply last.
type Config struct {
	Solver string `yaml:"solver"`
	Seeds  int    `yaml:"seeds"`
	// Seconds of exact search per instance; -1 means unbounded.
	TimeLimitSeconds float64 `yaml:"time_limit_seconds"`
	MaxNodes         int     `yaml:"max_nodes"`
	RandomSeed       int64   `yaml:"random_seed"`
	Verbose          bool    `yaml:"verbose"`

	Parallel      int  `yaml:"parallel"`
	ReusePrevious bool `yaml:"reuse_previous"`
	ForceWrite    bool `yaml:"force_write"`
	NoSkip        bool `yaml:"no_skip"`

	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir"`

	StoreDriver string `yaml:"store_driver"`
	StoreDSN    string `yaml:"store_dsn"`

	HTTPAddr    string `yaml:"http_addr"`
	MetricsFile string `yaml:"metrics_file"`
	LogLevel    string `yaml:"log_level"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Solver:           "exact",
		Seeds:            5,
		TimeLimitSeconds: 300,
		RandomSeed:       1,
		Parallel:         1,
		ReusePrevious:    true,
		InputDir:         "inputs",
		OutputDir:        "outputs",
		StoreDriver:      "bolt",
		StoreDSN:         "data/bounds.db",
		HTTPAddr:         ":8080",
		LogLevel:         "info",
	}
}

// Get returns the environment value for key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and environment overrides, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("load config: parse %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.Solver = Get("SOLVER", cfg.Solver)
	cfg.InputDir = Get("INPUT_DIR", cfg.InputDir)
	cfg.OutputDir = Get("OUTPUT_DIR", cfg.OutputDir)
	cfg.StoreDriver = Get("STORE_DRIVER", cfg.StoreDriver)
	cfg.StoreDSN = Get("STORE_DSN", cfg.StoreDSN)
	cfg.HTTPAddr = Get("HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsFile = Get("METRICS_FILE", cfg.MetricsFile)
	cfg.LogLevel = Get("LOG_LEVEL", cfg.LogLevel)

	// DATABASE_URL selects Postgres unless STORE_DSN is given.
	if url := Get("DATABASE_URL", ""); url != "" && Get("STORE_DSN", "") == "" {
		cfg.StoreDriver = "postgres"
		cfg.StoreDSN = url
	}

	var errs []error
	intVar := func(key string, dst *int) {
		if v := Get(key, ""); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolVar := func(key string, dst *bool) {
		if v := Get(key, ""); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	intVar("SEEDS", &cfg.Seeds)
	intVar("MAX_NODES", &cfg.MaxNodes)
	intVar("PARALLEL", &cfg.Parallel)
	boolVar("VERBOSE", &cfg.Verbose)
	boolVar("REUSE_PREVIOUS", &cfg.ReusePrevious)
	boolVar("FORCE_WRITE", &cfg.ForceWrite)
	boolVar("NO_SKIP", &cfg.NoSkip)

	if v := Get("TIME_LIMIT", ""); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("TIME_LIMIT: %w", err))
		} else {
			cfg.TimeLimitSeconds = f
		}
	}
	if v := Get("RANDOM_SEED", ""); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("RANDOM_SEED: %w", err))
		} else {
			cfg.RandomSeed = n
		}
	}

	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Seeds < 0 {
		errs = append(errs, fmt.Errorf("seeds must be >= 0, got %d", c.Seeds))
	}
	if c.TimeLimitSeconds != -1 && c.TimeLimitSeconds <= 0 {
		errs = append(errs, fmt.Errorf("time limit must be positive or -1, got %g", c.TimeLimitSeconds))
	}
	if c.MaxNodes < 0 {
		errs = append(errs, fmt.Errorf("max nodes must be >= 0, got %d", c.MaxNodes))
	}
	if c.Parallel < 1 {
		errs = append(errs, fmt.Errorf("parallel must be >= 1, got %d", c.Parallel))
	}
	if strings.TrimSpace(c.StoreDriver) == "" {
		errs = append(errs, errors.New("store driver is required"))
	}
	if c.StoreDriver != "memory" && strings.TrimSpace(c.StoreDSN) == "" {
		errs = append(errs, fmt.Errorf("store dsn is required for driver %q", c.StoreDriver))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// TimeLimit converts TimeLimitSeconds; zero means unbounded.
func (c Config) TimeLimit() time.Duration {
	if c.TimeLimitSeconds < 0 {
		return 0
	}
	return time.Duration(c.TimeLimitSeconds * float64(time.Second))
}
