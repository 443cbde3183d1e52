package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
	"github.com/yourusername/duochat/internal/chat"
	"github.com/yourusername/duochat/internal/client/connection"
	"github.com/yourusername/duochat/internal/client/ui"
	"github.com/yourusername/duochat/internal/config"
	"github.com/yourusername/duochat/internal/storage"
)

const (
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfig)
	}

	if err := makeApp(&cfg).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "duochat: %v\n", err)
		os.Exit(exitRuntime)
	}
}

func makeApp(cfg *config.Config) *cli.Command {
	// Root flags are inherited by history
	return &cli.Command{
		Name:  "duochat",
		Usage: "two chat panels, one shared feed",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "server", Value: cfg.ServerURL, Usage: "WebSocket server URL"},
			&cli.StringFlag{Name: "rooms", Value: cfg.Rooms, Usage: "comma separated rooms to join"},
			&cli.StringFlag{Name: "store", Value: cfg.StoreDriver, Usage: "bolt, badger or memory"},
			&cli.StringFlag{Name: "store-path", Value: cfg.StorePath, Usage: "database file (bolt) or directory (badger)"},
			&cli.StringFlag{Name: "log-file", Value: cfg.LogFile, Usage: "where the client writes its logs"},
			&cli.StringFlag{Name: "log-level", Value: cfg.LogLevel, Usage: "DEBUG, INFO, WARN or ERROR"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg.ServerURL = cmd.String("server")
			cfg.Rooms = cmd.String("rooms")
			if err := applyStoreFlags(cmd, cfg); err != nil {
				return err
			}
			return runChat(ctx, *cfg)
		},
		Commands: []*cli.Command{
			{
				Name:  "history",
				Usage: "print the persisted feed",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := applyStoreFlags(cmd, cfg); err != nil {
						return err
					}
					return printHistory(*cfg)
				},
			},
		},
	}
}

func applyStoreFlags(cmd *cli.Command, cfg *config.Config) error {
	cfg.StoreDriver = cmd.String("store")
	cfg.StorePath = cmd.String("store-path")
	cfg.LogFile = cmd.String("log-file")
	cfg.LogLevel = cmd.String("log-level")
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err, exitConfig)
	}
	return nil
}

// newLogger writes to a file since the TUI owns the terminal
func newLogger(cfg config.Config) (*slog.Logger, func(), error) {
	if cfg.LogFile == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: cfg.Level()}))
	return logger, func() { _ = f.Close() }, nil
}

func runChat(ctx context.Context, cfg config.Config) error {
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	kv, err := storage.Open(cfg.StoreDriver, cfg.StorePath, logger)
	if err != nil {
		return err
	}
	defer kv.Close()

	connMgr := connection.NewManager(cfg.ServerURL, logger)
	defer connMgr.Disconnect()

	events := make(chan connection.Event, 16)
	connMgr.OnEvent(func(event connection.Event) {
		select {
		case events <- event:
		default:
			logger.Debug("Dropping connection event", "event", fmt.Sprintf("%T", event))
		}
	})

	store := chat.NewStore(kv, connMgr, logger)
	store.Initialize()
	detach := store.Attach()
	defer detach()

	model := ui.NewModel(ui.Options{
		Store:     store,
		Conn:      connMgr,
		Events:    events,
		Rooms:     cfg.RoomList(),
		ServerURL: cfg.ServerURL,
		Log:       logger,
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}

func printHistory(cfg config.Config) error {
	kv, err := storage.Open(cfg.StoreDriver, cfg.StorePath, slog.New(slog.DiscardHandler))
	if err != nil {
		return err
	}
	defer kv.Close()

	store := chat.NewStore(kv, nil, slog.New(slog.DiscardHandler))
	store.Initialize()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Username", "Message"})
	for i, msg := range store.Messages() {
		table.Append([]string{strconv.Itoa(i + 1), msg.Username, msg.Message})
	}
	table.Render()
	return nil
}
