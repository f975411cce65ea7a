package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kozaktomas/facegate/internal/capture"
	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/faceapi"
	"github.com/kozaktomas/facegate/internal/metrics"
	"github.com/kozaktomas/facegate/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web console",
	Long: `Start the facegate web console.
The console provides browser pages for enrollment, verification and
identification, with file upload and a live camera preview.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default WEB_PORT or 8080)")
	serveCmd.Flags().String("host", "", "Host to bind to (default WEB_HOST or 0.0.0.0)")
}

// resolveServeHostPort lets flags override the environment.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.Config) (int, string) {
	port := cfg.Web.Port
	host := cfg.Web.Host
	if p := mustGetInt(cmd, "port"); p > 0 {
		port = p
	}
	if h := mustGetString(cmd, "host"); h != "" {
		host = h
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	m := metrics.New(prometheus.DefaultRegisterer)
	client, err := newClient(cfg, logger, faceapi.WithObserver(m))
	if err != nil {
		return err
	}

	registry := capture.NewRegistry()
	camera := newCameraSession(cfg, logger, capture.WithRegistry(registry), capture.WithObserver(m))

	port, host := resolveServeHostPort(cmd, cfg)
	server := web.NewServer(cfg, port, host, web.Deps{
		Client:   client,
		Camera:   camera,
		Registry: registry,
		Metrics:  m,
		Gatherer: prometheus.DefaultGatherer,
		Logger:   logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}()

	fmt.Printf("Starting facegate console on http://%s:%d\n", host, port)
	fmt.Printf("Face service: %s\n", client.BaseURL())
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
