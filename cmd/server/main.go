package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mama165/sdk-go/logs"
	"github.com/urfave/cli/v3"
	"github.com/yourusername/duochat/internal/config"
	"github.com/yourusername/duochat/internal/server"
)

// Exit codes
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfig)
	}

	cmd := &cli.Command{
		Name:  "duochat-server",
		Usage: "relay chat messages between duochat clients",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: cfg.Addr, Usage: "HTTP service address"},
			&cli.StringFlag{Name: "log-level", Value: cfg.LogLevel, Usage: "DEBUG, INFO, WARN or ERROR"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg.Addr = cmd.String("addr")
			cfg.LogLevel = cmd.String("log-level")
			if err := cfg.Validate(); err != nil {
				return cli.Exit(err, exitConfig)
			}
			return run(ctx, cfg)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
		stop()
		os.Exit(exitRuntime)
	}
	os.Exit(exitOK)
}

func run(ctx context.Context, cfg config.Config) error {
	logger := logs.GetLoggerFromLevel(cfg.Level())
	gin.SetMode(gin.ReleaseMode)

	srv, err := server.NewServer(logger, server.Options{
		MaxMessageLength: cfg.MaxMessageLength,
		RoomCapacity:     cfg.RoomCapacity,
	})
	if err != nil {
		return err
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go srv.Run(hubCtx)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Starting server on %s", cfg.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	// Closing every session send channel lets the write pumps say goodbye
	stopHub()
	return nil
}
