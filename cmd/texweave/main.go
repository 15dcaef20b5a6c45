// cmd/texweave/main.go
//
// This is the entry point for the texweave CLI.
// Run it from a project directory holding a LaTeX document and an
// instruction file; it rewrites the document through the delegation
// engine and saves the result next to the input.
//
// Flow:
// 1. Initialize the .texweave folder (config + logs)
// 2. Wire the Gemini adapter, file store, and orchestrator
// 3. Run headless or behind the live progress view

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/yourusername/texweave/internal/config"
	"github.com/yourusername/texweave/internal/events"
	"github.com/yourusername/texweave/internal/labels"
	"github.com/yourusername/texweave/internal/llm"
	"github.com/yourusername/texweave/internal/logging"
	"github.com/yourusername/texweave/internal/orchestrator"
	"github.com/yourusername/texweave/internal/storage"
	"github.com/yourusername/texweave/internal/tui"
)

func main() {
	headless := flag.Bool("headless", false, "run without the progress view")
	flag.Parse()

	if err := run(*headless); err != nil {
		fmt.Fprintf(os.Stderr, "texweave: %v\n", err)
		os.Exit(1)
	}
}

func run(headless bool) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	if err := config.InitTexweaveDir(cwd); err != nil {
		return fmt.Errorf("initialize %s directory: %w", config.TexweaveDir, err)
	}
	cfg, err := config.NewConfig(cwd)
	if err != nil {
		return err
	}

	logger, err := logging.New(cwd)
	if err != nil {
		return err
	}
	defer logger.Close()

	apiKey := cfg.APIKey()
	if apiKey == "" {
		return fmt.Errorf("%s is not set (see %s)", cfg.Settings.Model.APIKeyEnv, cfg.ConfigPath())
	}

	doc, err := os.ReadFile(cfg.DocumentPath())
	if err != nil {
		return fmt.Errorf("read document %s: %w", cfg.DocumentPath(), err)
	}
	mgr := labels.NewManager(string(doc), cfg.Settings.Labels.Length, time.Now().UnixNano())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gemini, err := llm.NewGemini(ctx, apiKey, cfg.Settings.Model.Name, mgr, logger)
	if err != nil {
		return err
	}

	store := storage.NewFileStore(cfg.DocumentPath(), cfg.InstructionPath(), cfg.OutputPath())
	router := events.NewRouter(events.RouterWithLogger(logger))
	defer router.Close()

	if headless {
		orc := orchestrator.New(cfg, store, gemini, gemini, router, orchestrator.WithLogger(logger))
		return produce(ctx, orc, cfg)
	}
	return runWithView(ctx, cfg, store, gemini, router, logger)
}

func produce(ctx context.Context, orc *orchestrator.Orchestrator, cfg *config.Config) error {
	if _, err := orc.Produce(ctx); err != nil {
		return err
	}
	fmt.Printf("Document written to %s\n", cfg.OutputPath())
	return nil
}

// runWithView runs the orchestrator behind the bubbletea progress view. The
// view consumes the event stream and feeds back only pause and cancel.
func runWithView(ctx context.Context, cfg *config.Config, store *storage.FileStore, gemini *llm.Gemini, router *events.Router, logger *logging.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gate := tui.NewPauseGate()
	orc := orchestrator.New(cfg, store, gemini, gemini, router,
		orchestrator.WithLogger(logger),
		orchestrator.WithGate(gate.Wait),
	)

	sub := router.Subscribe()
	defer sub.Close()

	result := make(chan error, 1)
	go func() {
		_, err := orc.Produce(ctx)
		result <- err
	}()

	p := tea.NewProgram(
		tui.NewApp(sub, gate, cancel, result),
		tea.WithAltScreen(),
	)
	model, err := p.Run()
	if err != nil {
		cancel()
		<-result
		return fmt.Errorf("progress view: %w", err)
	}

	app, ok := model.(*tui.App)
	if !ok {
		cancel()
		return <-result
	}
	runErr := app.Err()
	if !app.Finished() {
		// The user quit before the run ended; wait for the abort to land.
		cancel()
		runErr = <-result
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("run cancelled")
		}
		return runErr
	}
	fmt.Printf("Document written to %s\n", cfg.OutputPath())
	return nil
}
