// Command saturn is the interactive Saturn PM assistant: a terminal chat
// loop over the planning/approval orchestrator. Reads run immediately;
// writes always come back as an approval prompt answered with yes or no.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/saturnpm/saturn/saturn/config"
	"github.com/saturnpm/saturn/saturn/orchestrator"
	"github.com/saturnpm/saturn/saturn/store"
	"github.com/saturnpm/saturn/saturn/tools"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ./config.yaml, ./conf/config.yaml)")
	threadID := flag.String("thread", "", "conversation thread id (default: a fresh random id)")
	dbPath := flag.String("db", "", "override database path from config")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	if err := run(logger, *configPath, *threadID, *dbPath); err != nil {
		logger.Fatal().Err(err).Msg("saturn exited with error")
	}
}

func run(logger zerolog.Logger, configPath, threadID, dbPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

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

	if threadID == "" {
		threadID = uuid.NewString()
	}
	logger.Info().Str("thread_id", threadID).Str("db", cfg.Database.Path).Msg("Saturn PM assistant ready")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Saturn PM assistant. Type a request, or 'exit' to quit.")
	repl(ctx, runtime, threadID)
	return nil
}

func repl(ctx context.Context, runtime *orchestrator.Runtime, threadID string) {
	scanner := bufio.NewScanner(os.Stdin)
	seen := 0

	for {
		fmt.Print("you> ")
		if !scanner.Scan() || ctx.Err() != nil {
			fmt.Println()
			return
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "exit" || input == "quit" {
			return
		}

		state, err := runtime.RunTurn(ctx, threadID, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		for _, m := range state.Messages[min(seen, len(state.Messages)):] {
			switch m.Role {
			case "assistant":
				fmt.Printf("saturn> %s\n", m.Content)
			case "tool":
				fmt.Printf("  [%s] %s\n", m.Name, m.Content)
			}
		}
		seen = len(state.Messages)
	}
}
