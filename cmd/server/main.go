// Package main provides the server entrypoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zacaytion/fixturekit/internal/app"
	"github.com/zacaytion/fixturekit/internal/cli"
	"github.com/zacaytion/fixturekit/internal/config"
	"github.com/zacaytion/fixturekit/internal/logging"
)

func main() {
	if err := newServerCmd().command().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type serverCmd struct {
	v       *viper.Viper
	cfgFile string
	memory  bool
	cfg     *config.Config
}

func newServerCmd() *serverCmd {
	return &serverCmd{v: config.NewViper()}
}

func (s *serverCmd) command() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "Resource API server",
		Long:  "Serves the widgets and categories API over PostgreSQL or an in-memory store.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			s.cfg, err = config.LoadWithViper(s.v, s.cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return nil
		},
		RunE:          s.run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&s.cfgFile, "config", "", "config file path")
	rootCmd.Flags().BoolVar(&s.memory, "memory", false, "serve from an in-memory store instead of PostgreSQL")

	// Server flags
	rootCmd.Flags().String("host", "localhost", "server host")
	rootCmd.Flags().Int("port", config.DefaultPort, "server port")
	rootCmd.Flags().Duration("http-read-timeout", 15*time.Second, "HTTP read timeout")
	rootCmd.Flags().Duration("http-write-timeout", 15*time.Second, "HTTP write timeout")
	rootCmd.Flags().Duration("http-idle-timeout", 60*time.Second, "HTTP idle timeout")

	// Logging isn't configured until the config loads, so binding errors go to stderr.
	b := cli.NewFlagBinder(s.v, rootCmd)
	b.Bind("server.host", "host")
	b.Bind("server.port", "port")
	b.Bind("server.read_timeout", "http-read-timeout")
	b.Bind("server.write_timeout", "http-write-timeout")
	b.Bind("server.idle_timeout", "http-idle-timeout")
	cli.AddPGFlags(b, rootCmd)
	cli.AddLoggingFlags(b, rootCmd)
	if err := b.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	return rootCmd
}

func (s *serverCmd) run(cmd *cobra.Command, _ []string) error {
	closeLogger := logging.SetupDefault(s.cfg.Logging)
	defer func() {
		if err := closeLogger(); err != nil {
			fmt.Fprintf(os.Stderr, "error closing log file: %v\n", err)
		}
	}()
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := s.openApp(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      a.Router(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "memory", s.memory)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

func (s *serverCmd) openApp(ctx context.Context, logger *slog.Logger) (*app.App, error) {
	if s.memory {
		return app.NewInMemory(logger)
	}
	return app.Open(ctx, s.cfg.PG, logger)
}
