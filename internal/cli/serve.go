package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"guide/internal/adapter/watch"
	"guide/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve guideline queries over MCP stdio",
		Long: `Run an MCP server on stdin/stdout exposing the guidelines_for_file and
list_guidelines tools. With watch.enabled the corpus is reloaded when its
files change; queries keep using the previous index until a reload succeeds.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	cfg := GetConfig()
	ws, err := openWorkspace(ctx, cfg.Corpus.SkipInvalid, nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	if cfg.Watch.Enabled {
		w, err := watch.New(ws.dirs, cfg.Watch.Debounce, func(ctx context.Context) {
			if err := ws.Reload(ctx); err != nil {
				logger.Error("corpus reload failed, keeping current index", zap.Error(err))
			}
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer w.Stop()
	}

	logger.Info("serving guidelines over stdio",
		zap.Int("documents", ws.engine.Snapshot().Len()),
		zap.Strings("dirs", ws.dirs))

	return server.ServeStdio(server.New(ws.engine))
}
