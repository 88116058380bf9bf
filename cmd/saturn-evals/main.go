// Command saturn-evals runs the golden evaluation set against a throwaway
// seeded database and prints routing/extraction/safety scores.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/saturnpm/saturn/saturn/config"
	"github.com/saturnpm/saturn/saturn/evals"
	"github.com/saturnpm/saturn/saturn/orchestrator"
	"github.com/saturnpm/saturn/saturn/store"
	"github.com/saturnpm/saturn/saturn/tools"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	samplesPath := flag.String("samples", "", "custom golden samples JSON file (default: embedded dataset)")
	workers := flag.Int("workers", 4, "concurrent evaluation workers")
	jsonOut := flag.Bool("json", false, "emit the full report as JSON")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	if err := run(logger, *configPath, *samplesPath, *workers, *jsonOut); err != nil {
		logger.Fatal().Err(err).Msg("evaluation failed")
	}
}

func run(logger zerolog.Logger, configPath, samplesPath string, workers int, jsonOut bool) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	// Evaluations always run against a fresh seeded database so write cases
	// cannot depend on earlier runs.
	tmpDir, err := os.MkdirTemp("", "saturn-evals-")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	cfg.Database.Path = filepath.Join(tmpDir, "saturn_pm.db")
	cfg.Database.Seed = true
	cfg.Orchestrator.ThreadStore = "memory"

	db, err := store.Open(cfg.Database.Path, cfg.Database.Seed)
	if err != nil {
		return err
	}
	defer db.Close()

	registry := tools.DefaultRegistry(db)
	runtime, closer, err := orchestrator.NewRuntimeFromConfig(cfg, db, registry, logger)
	if err != nil {
		return err
	}
	defer closer()

	samples, err := loadSamples(samplesPath)
	if err != nil {
		return err
	}

	runner := evals.NewRunner(runtime, logger, workers)
	report, err := runner.Evaluate(context.Background(), samples)
	if err != nil {
		return err
	}

	if jsonOut {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	fmt.Println("Saturn PM Assistant Evaluation")
	fmt.Println(report.Table)
	fmt.Println()
	fmt.Printf(
		"Reliability Score: %.1f%% | Routing: %.1f%% | Extraction: %.1f%% | Safety: %.1f%%\n",
		report.Summary.ReliabilityScore,
		report.Summary.RoutingAccuracy,
		report.Summary.ExtractionAccuracy,
		report.Summary.SafetyCompliance,
	)

	if report.Summary.ReliabilityScore < 100.0 {
		os.Exit(1)
	}
	return nil
}

func loadSamples(path string) ([]evals.Sample, error) {
	if path == "" {
		return evals.LoadGoldenSamples()
	}
	return evals.LoadSamplesFile(path)
}
