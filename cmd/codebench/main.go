// Command codebench runs an eval set's cases against one or more models
// and writes a scored report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/codebench/codebench/internal/catalogue"
	"github.com/codebench/codebench/internal/config"
	"github.com/codebench/codebench/internal/generator"
	"github.com/codebench/codebench/internal/generator/stub"
	"github.com/codebench/codebench/internal/logutil"
	"github.com/codebench/codebench/internal/orchestrator"
	"github.com/codebench/codebench/internal/report"
)

// Exit codes. 0 covers a completed run regardless of how many individual
// Attempts failed; only infrastructure failures (bad catalogue, an
// errored run, a report we couldn't write) exit non-zero. A cancelled run
// still writes its partial report and exits 0.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

func main() {
	os.Exit(run(os.Args[1:], os.Getenv))
}

func run(args []string, getenv func(string) string) int {
	cfg, catalogueDir, err := parseFlags(args, getenv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitCodeSuccess
		}
		fmt.Fprintf(os.Stderr, "codebench: %v\n", err)
		return ExitCodeError
	}

	logLevel, err := logutil.ParseLogLevel(cfg.logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "codebench: %v\n", err)
		return ExitCodeError
	}
	logger := logutil.NewSlogLoggerFromLogLevel(os.Stderr, logLevel)

	sets, warnings, err := catalogue.Load(catalogueDir)
	if err != nil {
		logger.Error("loading catalogue: %v", err)
		return ExitCodeError
	}
	for _, w := range warnings {
		logger.Warn("%s", w)
	}

	gen := stub.New("stub", modelInfos(cfg.runCfg.Models), nil)
	o := orchestrator.New(gen, logger, nil)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var merged evalReport
	for _, set := range sets {
		r, runErr := o.Run(ctx, set, cfg.runCfg)
		if runErr != nil {
			logger.Error("running eval set %s: %v", set.ID, runErr)
			return ExitCodeError
		}
		merged.append(r)
	}

	if err := os.MkdirAll(cfg.outputDir, 0o755); err != nil {
		logger.Error("creating output directory: %v", err)
		return ExitCodeError
	}
	outputPath := cfg.outputDir + "/report.json"
	if err := report.Save(outputPath, merged.combined()); err != nil {
		logger.Error("saving report: %v", err)
		return ExitCodeError
	}

	logger.Info("report written to %s", outputPath)
	return ExitCodeSuccess
}

func modelInfos(models []string) []generator.ModelInfo {
	out := make([]generator.ModelInfo, len(models))
	for i, m := range models {
		out[i] = generator.ModelInfo{Name: m}
	}
	return out
}

type cliConfig struct {
	runCfg    orchestrator.RunConfig
	outputDir string
	logLevel  string
}

func parseFlags(args []string, getenv func(string) string) (cliConfig, string, error) {
	defaults := config.Default()
	if err := config.LoadEnvironmentDefaults(&defaults, getenv); err != nil {
		return cliConfig{}, "", err
	}

	fs := flag.NewFlagSet("codebench", flag.ContinueOnError)
	catalogueDir := fs.String("catalogue", "", "path to a catalogue file or directory (required)")
	models := fs.String("models", "", "comma-separated model names to evaluate (required)")
	passK := fs.String("pass-k", "1", "comma-separated k values for pass@k, e.g. 1,5,10")
	parallelism := fs.Int("parallelism", defaults.Parallelism, "maximum in-flight Attempts")
	ratePerMinute := fs.Int("rate-per-minute", defaults.RatePerMinute, "per-model request rate limit (0 disables)")
	temperature := fs.Float64("temperature", defaults.Temperature, "generation temperature")
	maxRetries := fs.Int("max-retries", defaults.MaxRetriesPerCase, "max retries per retriable generator failure")
	retryDelay := fs.Duration("retry-delay", defaults.RetryDelay, "base retry backoff delay")
	caseTimeout := fs.Duration("case-timeout", defaults.CaseTimeout, "per-case compile/test/lint timeout")
	tagFilter := fs.String("tags", defaults.TagFilter, "tag filter expression, e.g. 'fast,rust|go'")
	outputDir := fs.String("output", defaults.OutputDir, "directory to write the report into")
	logLevel := fs.String("log-level", "info", "log verbosity: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return cliConfig{}, "", err
	}

	if *catalogueDir == "" {
		return cliConfig{}, "", errors.New("--catalogue is required")
	}
	modelList := config.ParseModels(*models)
	if len(modelList) == 0 {
		return cliConfig{}, "", errors.New("--models is required")
	}
	kValues, err := parseIntList(*passK)
	if err != nil {
		return cliConfig{}, "", fmt.Errorf("invalid --pass-k: %w", err)
	}

	return cliConfig{
		runCfg: orchestrator.RunConfig{
			Models:            modelList,
			PassK:             kValues,
			Parallelism:       *parallelism,
			RatePerMinute:     *ratePerMinute,
			Temperature:       *temperature,
			MaxRetriesPerCase: *maxRetries,
			RetryDelay:        *retryDelay,
			CaseTimeout:       *caseTimeout,
			TagFilter:         *tagFilter,
		},
		outputDir: *outputDir,
		logLevel:  *logLevel,
	}, *catalogueDir, nil
}

func parseIntList(value string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, errors.New("at least one value required")
	}
	return out, nil
}
