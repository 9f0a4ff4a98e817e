package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nhle/daybook/internal/agent"
	"github.com/nhle/daybook/internal/app"
	"github.com/nhle/daybook/internal/capture/email"
	"github.com/nhle/daybook/internal/credential"
	"github.com/nhle/daybook/internal/device"
	"github.com/nhle/daybook/internal/hydrate"
	"github.com/nhle/daybook/internal/model"
	"github.com/nhle/daybook/internal/projection"
	"github.com/nhle/daybook/internal/remote/notion"
	"github.com/nhle/daybook/internal/repo"
	"github.com/nhle/daybook/internal/store"
	"github.com/nhle/daybook/internal/sync"
	"github.com/nhle/daybook/internal/ui/setup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "daybook: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configDir := model.DefaultConfigDir()
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	logger := newLogger(configDir)

	cfg, err := model.LoadConfig(model.DefaultConfigPath())
	if err != nil {
		return err
	}

	token, cfg, err := ensureSetup(cfg)
	if err != nil {
		return err
	}

	deviceID, err := device.ID(configDir)
	if err != nil {
		return fmt.Errorf("resolving device id: %w", err)
	}

	log, err := store.NewSQLiteLog(filepath.Join(configDir, "daybook.db"))
	if err != nil {
		return fmt.Errorf("opening local store: %w", err)
	}
	defer log.Close()

	proj := projection.New()

	client := notion.NewClient(cfg.Remote.BaseURL, token)
	remoteTodos := notion.NewTodoDatabase(client, cfg.Remote.TodoDatabaseID)
	remoteLogs := notion.NewLogDatabase(client, cfg.Remote.LogDatabaseID)

	engine := sync.New(log, remoteTodos, remoteLogs,
		time.Duration(cfg.Sync.FlushIntervalSec)*time.Second, logger)

	todos := repo.NewTodoRepository(log, proj, engine, deviceID)
	logs := repo.NewLogRepository(log, proj, engine, deviceID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Local state first so the UI is usable offline; the remote refresh
	// runs behind it.
	h := hydrate.New(log, proj, remoteTodos, remoteLogs,
		cfg.Remote.LogWindowDays, logger)
	if err := h.LoadLocal(ctx); err != nil {
		return fmt.Errorf("loading local state: %w", err)
	}
	go func() {
		if err := h.Hydrate(ctx); err != nil {
			logger.Warn("hydration failed", "error", err)
		}
	}()

	engine.Start(ctx)
	defer engine.Stop()

	if cfg.Capture.Enabled {
		startCapture(ctx, cfg.Capture, todos, logger)
	}

	assistant := loadAssistant(cfg.Agent, todos, logs)

	program := tea.NewProgram(
		app.New(todos, logs, engine, assistant),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}

	// One last flush so quick edit-then-quit sessions still sync.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer flushCancel()
	if err := engine.FlushOnce(flushCtx); err != nil {
		logger.Warn("final flush failed", "error", err)
	}

	return nil
}

// newLogger writes structured JSON logs to a rotating file in the
// config dir. The terminal belongs to the TUI.
func newLogger(configDir string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(&lumberjack.Logger{
		Filename:   filepath.Join(configDir, "daybook.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     30, // days
	}, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// ensureSetup runs the first-run form when the token or database ids
// are missing, persisting the results to the keyring and config file.
func ensureSetup(cfg *model.AppConfig) (string, *model.AppConfig, error) {
	token, _ := credential.Get(credential.KeyRemoteToken)
	if token != "" && cfg.Remote.TodoDatabaseID != "" && cfg.Remote.LogDatabaseID != "" {
		return token, cfg, nil
	}

	result, err := setup.Run()
	if err != nil {
		return "", nil, err
	}

	if err := credential.Set(credential.KeyRemoteToken, result.Token); err != nil {
		return "", nil, fmt.Errorf("storing token: %w", err)
	}
	cfg.Remote.TodoDatabaseID = result.TodoDatabaseID
	cfg.Remote.LogDatabaseID = result.LogDatabaseID
	if err := model.SaveConfig(model.DefaultConfigPath(), cfg); err != nil {
		return "", nil, err
	}

	return result.Token, cfg, nil
}

// startCapture begins the flagged-mail poller when credentials are
// available. Capture is best effort; a missing password only logs.
func startCapture(
	ctx context.Context,
	cfg model.CaptureConfig,
	todos *repo.TodoRepository,
	logger *slog.Logger,
) {
	password, err := credential.Get(credential.KeyMailPassword)
	if err != nil || password == "" {
		logger.Warn("mail capture enabled but no mail password in keyring")
		return
	}

	mailbox := email.NewClient(cfg.Host, cfg.Username, password, cfg.Mailbox)
	capturer := email.NewCapturer(mailbox, todos,
		time.Duration(cfg.PollIntervalSec)*time.Second, logger)
	capturer.Start(ctx)
}

// loadAssistant creates the chat assistant when an API key is
// available, from the environment or the keyring. Returns nil when
// not configured.
func loadAssistant(
	cfg model.AgentConfig,
	todos *repo.TodoRepository,
	logs *repo.LogRepository,
) *agent.Assistant {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		apiKey, _ = credential.Get(credential.KeyAgentAPIKey)
	}
	if apiKey == "" {
		return nil
	}
	return agent.New(apiKey, todos, logs, cfg.Model, cfg.MaxTokens)
}
