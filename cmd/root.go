package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kozaktomas/facegate/internal/capture"
	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/faceapi"
	"github.com/kozaktomas/facegate/internal/logging"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "facegate",
	Short: "Operator tool for a face verification service",
	Long: `facegate captures face images from files or a local camera, sends them to a
remote face biometric service (enroll, verify, identify) and explains the
decision it returns: distance, thresholds and the zone the result falls in.

Run "facegate serve" for the web console.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides LOG_LEVEL")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// newLogger builds the process logger; --log-level wins over LOG_LEVEL.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Log.Level
	if strings.TrimSpace(logLevel) != "" {
		level = logLevel
	}
	logger, err := logging.NewLogger(level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger, nil
}

// newClient creates the one service client of the process.
func newClient(cfg *config.Config, logger *zap.Logger, opts ...faceapi.Option) (*faceapi.Client, error) {
	baseURL, err := cfg.API.ResolveBaseURL()
	if err != nil {
		return nil, err
	}
	client, err := faceapi.New(baseURL, append([]faceapi.Option{faceapi.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating service client: %w", err)
	}
	return client, nil
}

// newCameraSession builds a session on the configured ffmpeg camera.
func newCameraSession(cfg *config.Config, logger *zap.Logger, opts ...capture.Option) *capture.Session {
	device := &capture.FFmpegDevice{
		Path:   cfg.Camera.Device,
		Format: cfg.Camera.Format,
		Binary: cfg.Camera.FFmpeg,
		Logger: logger,
	}
	res := capture.Resolution{Width: cfg.Camera.Width, Height: cfg.Camera.Height}
	base := []capture.Option{capture.WithResolution(res), capture.WithLogger(logger)}
	return capture.NewSession(device, append(base, opts...)...)
}
