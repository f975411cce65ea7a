package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/faceapi"
	"github.com/kozaktomas/facegate/internal/form"
	"github.com/kozaktomas/facegate/internal/imagesource"
	"github.com/kozaktomas/facegate/internal/presenter"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Register reference faces for a user",
	Long: `Register a reference image for a user. Without --append the user's existing
references are replaced; with --append the image is added to them.

With --dir every image in the folder is enrolled: the first one honours
--append, the rest are always appended.`,
	Example: `  facegate enroll --user alice --file alice.jpg
  facegate enroll --user alice --camera --append
  facegate enroll --user alice --dir ./alice/`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	enrollCmd.Flags().String("user", "", "User ID to enroll (required)")
	enrollCmd.Flags().Bool("append", false, "Add to the existing references instead of replacing them")
	enrollCmd.Flags().String("dir", "", "Enroll every image in this folder")
	addImageFlags(enrollCmd)
	enrollCmd.MarkFlagRequired("user")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := commandContext(cmd)
	defer stop()

	userID := form.NormalizeUserID(mustGetString(cmd, "user"))
	appendRef := mustGetBool(cmd, "append")

	if dir := mustGetString(cmd, "dir"); dir != "" {
		return enrollDir(ctx, client, logger, userID, dir, appendRef)
	}

	blob, err := acquireImage(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}
	res, err := client.Enroll(ctx, userID, blob, appendRef)
	if err != nil {
		return printResult(cmd, faceapi.OpEnroll, userID, nil, err)
	}
	return printResult(cmd, faceapi.OpEnroll, userID, res, nil)
}

// imageFiles lists the images of dir in name order.
func imageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png", ".webp", ".bmp", ".gif":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func enrollDir(ctx context.Context, client *faceapi.Client, logger *zap.Logger, userID, dir string, appendFirst bool) error {
	files, err := imageFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no images found in %s", dir)
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Enrolling "+userID),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	var (
		last     *faceapi.EnrollResult
		enrolled int
		failures []string
	)
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		// only the first successful image may replace existing references
		appendRef := appendFirst || last != nil

		var blob *imagesource.Blob
		blob, err = loadImageFile(path)
		if err == nil {
			var res *faceapi.EnrollResult
			res, err = client.Enroll(ctx, userID, blob, appendRef)
			if err == nil {
				last = res
				enrolled++
			}
		}
		if err != nil {
			msg := presenter.ErrorMessage(faceapi.OpEnroll, userID, err)
			logger.Debug("enroll failed", zap.String("file", path), zap.Error(err))
			failures = append(failures, fmt.Sprintf("%s: %s", filepath.Base(path), msg))
		}
		bar.Add(1)
	}
	bar.Finish()
	fmt.Println()

	for _, f := range failures {
		fmt.Printf("  failed  %s\n", f)
	}
	if last == nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		return errors.New("no image could be enrolled")
	}

	fmt.Printf("Enrolled %d of %d images\n\n", enrolled, len(files))
	return presenter.WriteText(os.Stdout, presenter.Present(last))
}
