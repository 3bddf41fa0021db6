// Package config resolves run-level defaults (parallelism, retry policy,
// timeouts, output directory) from environment variables, with explicit
// CLI flags always taking precedence — environment values only replace
// fields that still hold their documented default.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Defaults mirror spec.md's documented run-level defaults.
const (
	DefaultParallelism       = 4
	DefaultRatePerMinute     = 0 // 0 disables per-model throttling
	DefaultMaxRetriesPerCase = 3
	DefaultRetryDelay        = time.Second
	DefaultCaseTimeout       = 30 * time.Second
	DefaultTemperature       = 0.2
	DefaultOutputDir         = "./codebench-results"
)

// RunDefaults is the set of run-level fields that can be filled from the
// environment before CLI flag parsing overrides them.
type RunDefaults struct {
	Parallelism       int
	RatePerMinute     int
	MaxRetriesPerCase int
	RetryDelay        time.Duration
	CaseTimeout       time.Duration
	Temperature       float64
	OutputDir         string
	TagFilter         string
}

// Default returns the documented defaults.
func Default() RunDefaults {
	return RunDefaults{
		Parallelism:       DefaultParallelism,
		RatePerMinute:     DefaultRatePerMinute,
		MaxRetriesPerCase: DefaultMaxRetriesPerCase,
		RetryDelay:        DefaultRetryDelay,
		CaseTimeout:       DefaultCaseTimeout,
		Temperature:       DefaultTemperature,
		OutputDir:         DefaultOutputDir,
	}
}

// LoadEnvironmentDefaults replaces fields of cfg that still hold their
// documented default (an empty TagFilter) with values from
// CODEBENCH_*-prefixed environment variables, read via getenv so tests
// never touch the process environment directly. CLI flags are applied
// by the caller after this returns, and always win.
func LoadEnvironmentDefaults(cfg *RunDefaults, getenv func(string) string) error {
	if cfg.Parallelism == DefaultParallelism {
		if v := getenv("CODEBENCH_PARALLELISM"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid CODEBENCH_PARALLELISM value %q: %w", v, err)
			}
			if n <= 0 {
				return fmt.Errorf("CODEBENCH_PARALLELISM must be positive, got %d", n)
			}
			cfg.Parallelism = n
		}
	}

	if cfg.RatePerMinute == DefaultRatePerMinute {
		if v := getenv("CODEBENCH_RATE_PER_MINUTE"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid CODEBENCH_RATE_PER_MINUTE value %q: %w", v, err)
			}
			cfg.RatePerMinute = n
		}
	}

	if cfg.MaxRetriesPerCase == DefaultMaxRetriesPerCase {
		if v := getenv("CODEBENCH_MAX_RETRIES"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid CODEBENCH_MAX_RETRIES value %q: %w", v, err)
			}
			if n <= 0 {
				return fmt.Errorf("CODEBENCH_MAX_RETRIES must be positive, got %d", n)
			}
			cfg.MaxRetriesPerCase = n
		}
	}

	if cfg.RetryDelay == DefaultRetryDelay {
		if v := getenv("CODEBENCH_RETRY_DELAY"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid CODEBENCH_RETRY_DELAY value %q: %w", v, err)
			}
			cfg.RetryDelay = d
		}
	}

	if cfg.CaseTimeout == DefaultCaseTimeout {
		if v := getenv("CODEBENCH_CASE_TIMEOUT"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid CODEBENCH_CASE_TIMEOUT value %q: %w", v, err)
			}
			cfg.CaseTimeout = d
		}
	}

	if cfg.Temperature == DefaultTemperature {
		if v := getenv("CODEBENCH_TEMPERATURE"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid CODEBENCH_TEMPERATURE value %q: %w", v, err)
			}
			cfg.Temperature = f
		}
	}

	if cfg.OutputDir == DefaultOutputDir {
		if v := getenv("CODEBENCH_OUTPUT_DIR"); v != "" {
			cfg.OutputDir = v
		}
	}

	if cfg.TagFilter == "" {
		if v := getenv("CODEBENCH_TAG_FILTER"); v != "" {
			cfg.TagFilter = v
		}
	}

	return nil
}

// ParseModels splits a comma-separated CODEBENCH_MODELS-style value into
// a trimmed, empty-filtered slice.
func ParseModels(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseBool mirrors the teacher's lenient boolean env-var parsing:
// true/1/yes/on → true, anything else (including empty) → false.
func ParseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}
