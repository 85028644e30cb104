package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/term"

	"subpool/config"
	"subpool/core/scenario"
	"subpool/integrations/exports"
	"subpool/observability/logging"
)

const formatText = "text"

func runScenario(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		cfgPath  string
		name     string
		format   string
		outPath  string
		months   int
		growth   float64
		testDays float64
		start    int64
	)
	fs.StringVar(&cfgPath, "config", "", "path to a TOML, YAML or JSON configuration (defaults to the built-in economics)")
	fs.StringVar(&name, "scenario", "", "configured scenario to run (defaults to the first)")
	fs.StringVar(&format, "format", "", "output format: text|json|csv|jsonl|parquet (text on a terminal, json otherwise)")
	fs.StringVar(&outPath, "out", "", "write the export to this file instead of stdout")
	fs.IntVar(&months, "months", 0, "override the scenario length in months")
	fs.Float64Var(&growth, "growth", -1, "override the monthly growth rate")
	fs.Float64Var(&testDays, "test-days", 0, "override the test subscriber's subscription length in days")
	fs.Int64Var(&start, "start", 0, "override the scenario start timestamp (unix seconds)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	logger, closer, err := setupLogging(cfg, "subsim", stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error configuring logging: %v\n", err)
		return 1
	}
	defer closer.Close()

	sc, ok := cfg.Scenario(name)
	if !ok {
		if name != "" {
			fmt.Fprintf(stderr, "Error: scenario %q not found in config\n", name)
			return 1
		}
		sc = scenario.Scenario{StartTimestamp: cfg.Curve.StartTimestamp, Months: 12, TestSubscriptionDays: scenario.DefaultAverageSubscriptionDays}
	}
	if months > 0 {
		sc.Months = months
	}
	if growth >= 0 {
		sc.MonthlyGrowthRate = growth
	}
	if testDays > 0 {
		sc.TestSubscriptionDays = testDays
	}
	if start != 0 {
		sc.StartTimestamp = start
	}
	if err := cfg.CheckScenario(sc); err != nil {
		fmt.Fprintf(stderr, "Error: scenario %s: %v\n", sc.Label(), err)
		return 1
	}

	if format == "" {
		format = exports.FormatJSON.String()
		if outPath == "" && isTerminal(stdout) {
			format = formatText
		}
	}
	format = strings.ToLower(strings.TrimSpace(format))
	var exportFormat exports.Format
	if format != formatText {
		exportFormat, err = exports.ParseFormat(format)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	engine, err := cfg.NewEngine()
	if err != nil {
		fmt.Fprintf(stderr, "Error building engine: %v\n", err)
		return 1
	}
	sim, err := scenario.New(engine, cfg.Simulation, scenario.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, "Error building simulator: %v\n", err)
		return 1
	}
	series, err := sim.Run(sc)
	if err != nil {
		fmt.Fprintf(stderr, "Error running scenario %s: %v\n", sc.Label(), err)
		return 1
	}
	fingerprint, err := cfg.Fingerprint()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	info := exports.Run{ID: uuid.NewString(), Scenario: sc.Label(), Fingerprint: fingerprint}

	if format == formatText {
		return writeOutput(outPath, stdout, stderr, func(w io.Writer) error {
			return renderText(w, info, series, sim.State().Audit())
		}, nil)
	}
	data, checksum, err := exports.Encode(exportFormat, info, series)
	if err != nil {
		fmt.Fprintf(stderr, "Error encoding %s: %v\n", exportFormat, err)
		return 1
	}
	return writeOutput(outPath, stdout, stderr, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}, func() {
		logger.Info("export written",
			logging.MaskField("run_id", info.ID),
			slog.String("format", exportFormat.String()),
			slog.String("path", outPath),
			slog.String("sha256", checksum))
	})
}

func runQuote(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		cfgPath string
		ts      int64
		days    float64
	)
	fs.StringVar(&cfgPath, "config", "", "path to configuration (defaults to the built-in economics)")
	fs.Int64Var(&ts, "timestamp", 0, "admission timestamp (defaults to the curve start)")
	fs.Float64Var(&days, "days", 360, "subscription length in days")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	if ts == 0 {
		ts = cfg.Curve.StartTimestamp
	}
	engine, err := cfg.NewEngine()
	if err != nil {
		fmt.Fprintf(stderr, "Error building engine: %v\n", err)
		return 1
	}
	adm, err := engine.Quote(ts, days)
	if err != nil {
		fmt.Fprintf(stderr, "Error quoting: %v\n", err)
		return 1
	}
	return printJSON(stdout, stderr, adm)
}

func runConfig(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var cfgPath string
	var asTOML bool
	fs.StringVar(&cfgPath, "config", "", "path to configuration (defaults to the built-in economics)")
	fs.BoolVar(&asTOML, "toml", false, "print the effective configuration as TOML")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	if asTOML {
		raw, err := config.Encode(cfg)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		_, _ = stdout.Write(raw)
		return 0
	}
	fingerprint, err := cfg.Fingerprint()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return printJSON(stdout, stderr, map[string]any{"fingerprint": fingerprint, "config": cfg})
}

func loadConfig(path string) (*config.Config, error) {
	if strings.TrimSpace(path) == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func setupLogging(cfg *config.Config, service string, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	env := cfg.Logging.Environment
	if fromEnv := strings.TrimSpace(os.Getenv(envVar)); fromEnv != "" {
		env = fromEnv
	}
	logger, closer := logging.Setup(logging.Options{
		Service:     service,
		Environment: env,
		Level:       level,
		Writer:      stderr,
		File:        cfg.Logging.File,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAgeDays:  cfg.Logging.MaxAgeDays,
		Compress:    cfg.Logging.Compress,
	})
	return logger, closer, nil
}

func writeOutput(path string, stdout, stderr io.Writer, write func(io.Writer) error, done func()) int {
	out := stdout
	if path != "" {
		file, err := os.Create(path)
		if err != nil {
			fmt.Fprintf(stderr, "Error creating %s: %v\n", path, err)
			return 1
		}
		defer file.Close()
		out = file
	}
	if err := write(out); err != nil {
		fmt.Fprintf(stderr, "Error writing output: %v\n", err)
		return 1
	}
	if done != nil {
		done()
	}
	return 0
}

func printJSON(stdout, stderr io.Writer, v any) int {
	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(stderr, "Error encoding output: %v\n", err)
		return 1
	}
	return 0
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
