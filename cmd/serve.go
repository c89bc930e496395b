package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mazerl/mazes"
	"mazerl/server"

	"github.com/spf13/cobra"
)

var (
	servePort  int
	serveStore string
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the maze page and its json api",
		Long: `Serve the single page maze view, its websocket of live updates, and the
json api for generating, training, simulating and saving mazes.

Examples:
  mazerl serve
  mazerl serve --port 9090 --store redis -v`,
		RunE: runServe,
	}

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on, overriding the config")
	serveCmd.Flags().StringVar(&serveStore, "store", "", "Saved-maze backend: file, mongo or redis, overriding the config")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveStore != "" {
		cfg.Store.Kind = serveStore
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := mazes.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Kind, err)
	}
	defer store.Close()

	logger := newLogger()
	srv, err := server.NewServer(ctx, cfg, store, server.WithLogger(logger))
	if err != nil {
		return err
	}
	fmt.Printf("Serving on http://%s\n", cfg.Server.Addr())
	return srv.Serve()
}
