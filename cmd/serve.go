package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-pages/internal/config"
	"github.com/kozaktomas/photo-pages/internal/database"
	"github.com/kozaktomas/photo-pages/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Photo Pages API server.
The server exposes projects, pages and photos over a JSON API and
renders PDF exports on request.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("api-token", "", "Bearer token required for API requests (defaults to WEB_API_TOKEN)")
}

// resolveServeHostPort resolves port, host and API token from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")
	apiToken := mustGetString(cmd, "api-token")

	if apiToken == "" {
		apiToken = os.Getenv("WEB_API_TOKEN")
	}
	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host, apiToken
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	fmt.Printf("Using %s project store\n", database.Backend())

	closeSource, err := openAlbumSource(cfg)
	if err != nil {
		return err
	}
	defer closeSource()
	if cfg.PhotoPrism.DatabaseURL != "" {
		fmt.Printf("PhotoPrism album import enabled\n")
	}

	svc, err := newService(cfg, store)
	if err != nil {
		return err
	}

	port, host, apiToken := resolveServeHostPort(cmd)
	server := web.NewServer(svc, port, host, apiToken)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Photo Pages API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
