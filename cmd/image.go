package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kozaktomas/facegate/internal/capture"
	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/faceapi"
	"github.com/kozaktomas/facegate/internal/imagesource"
	"github.com/kozaktomas/facegate/internal/presenter"
)

// addImageFlags registers the flags that choose where the probe image comes from.
func addImageFlags(cmd *cobra.Command) {
	cmd.Flags().String("file", "", "Image file to send")
	cmd.Flags().Bool("camera", false, "Take a snapshot from the camera instead of a file")
	cmd.Flags().Bool("json", false, "Output the raw service response as JSON")
}

// acquireImage loads the image chosen by --file or --camera.
func acquireImage(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *zap.Logger) (*imagesource.Blob, error) {
	file := mustGetString(cmd, "file")
	useCamera := mustGetBool(cmd, "camera")

	switch {
	case file != "" && useCamera:
		return nil, errors.New("--file and --camera are mutually exclusive")
	case useCamera:
		fmt.Printf("Capturing from %s...\n", cfg.Camera.Device)
		blob, err := capture.Snapshot(ctx, newCameraSession(cfg, logger))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", capture.ErrorMessage(err), err)
		}
		return blob, nil
	case file != "":
		return loadImageFile(file)
	default:
		return nil, errors.New("an image is required: use --file or --camera")
	}
}

func loadImageFile(path string) (*imagesource.Blob, error) {
	blob, err := imagesource.FromFile(path)
	if err != nil {
		return nil, err
	}
	if !imagesource.IsImage(blob.MIME) {
		return nil, fmt.Errorf("%s is not an image (%s)", path, blob.MIME)
	}
	if blob.Oversized() {
		fmt.Fprintf(os.Stderr, "Warning: %s is larger than %d MiB\n", path, imagesource.SoftSizeLimit>>20)
	}
	return blob, nil
}

// printResult renders a service answer, or turns a failure into the
// operator-facing message.
func printResult(cmd *cobra.Command, op faceapi.Operation, userID string, res faceapi.Result, err error) error {
	if err != nil {
		return errors.New(presenter.ErrorMessage(op, userID, err))
	}
	if mustGetBool(cmd, "json") {
		return outputJSON(res)
	}
	return presenter.WriteText(os.Stdout, presenter.Present(res))
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
