package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Somdatta-dev/ace-mail/internal/app"
	"github.com/Somdatta-dev/ace-mail/internal/credential"
	"github.com/Somdatta-dev/ace-mail/internal/engine"
	"github.com/Somdatta-dev/ace-mail/internal/gateway"
	"github.com/Somdatta-dev/ace-mail/internal/model"
	"github.com/Somdatta-dev/ace-mail/internal/overlay"
	"github.com/Somdatta-dev/ace-mail/internal/store"
	appsync "github.com/Somdatta-dev/ace-mail/internal/sync"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "acemail: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := newLogger()

	cfg, err := model.LoadConfig(model.DefaultConfigPath())
	if err != nil {
		return err
	}

	dataPath := model.DefaultDataPath()
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	st, err := store.NewSQLiteStore(dataPath)
	if err != nil {
		return fmt.Errorf("opening local store: %w", err)
	}
	defer st.Close()

	ov := overlay.New(st, logger)
	loadCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	ov.Load(loadCtx)
	cancel()
	defer ov.Flush()

	client := gateway.NewClient(
		cfg.Gateway.BaseURL,
		func() (string, error) { return credential.Get(credential.TokenKey) },
		time.Duration(cfg.Gateway.TimeoutSec)*time.Second,
	)

	eng := engine.New(client, ov, st, logger, cfg.Display.DefaultFolder, engine.Options{
		PageSize:            cfg.Sync.PageSize,
		FullSyncLimit:       cfg.Sync.FullSyncLimit,
		MinInterval:         time.Duration(cfg.Sync.MinIntervalSec) * time.Second,
		PreserveAnnotations: cfg.Sync.PreserveAnnotations,
	})

	sched := appsync.New(
		eng,
		time.Duration(cfg.Sync.AutoIntervalSec)*time.Second,
		logger,
	)
	defer sched.Stop()

	// First run: no token stored yet, show the setup form.
	token, err := credential.Get(credential.TokenKey)
	needsSetup := err != nil || token == ""

	root := app.New(cfg, client, eng, sched, logger, needsSetup)
	program := tea.NewProgram(root, tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	return nil
}

// newLogger writes structured logs to a file next to the database;
// stderr would corrupt the terminal UI.
func newLogger() *slog.Logger {
	logPath := filepath.Join(filepath.Dir(model.DefaultDataPath()), "acemail.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
