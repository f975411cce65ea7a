package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegate/internal/capture"
	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/imagesource"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Take a single snapshot from the camera",
	Long: `Open the configured camera, take one still and release the camera.
The image is scaled to fit the configured resolution and saved as JPEG.`,
	Example: `  facegate capture --out probe.jpg`,
	RunE:    runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().String("out", "capture.jpg", "Output file")
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := commandContext(cmd)
	defer stop()

	out := mustGetString(cmd, "out")
	fmt.Printf("Capturing from %s...\n", cfg.Camera.Device)

	blob, err := capture.Snapshot(ctx, newCameraSession(cfg, logger))
	if err != nil {
		return fmt.Errorf("%s: %w", capture.ErrorMessage(err), err)
	}
	if err := os.WriteFile(out, blob.Data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}

	if w, h, err := imagesource.Dimensions(blob); err == nil {
		fmt.Printf("Saved %s (%dx%d, %d KiB)\n", out, w, h, blob.Size()>>10)
	} else {
		fmt.Printf("Saved %s (%d KiB)\n", out, blob.Size()>>10)
	}
	return nil
}
