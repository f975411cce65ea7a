package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/faceapi"
	"github.com/kozaktomas/facegate/internal/form"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a face against an enrolled user (1:1)",
	Long: `Compare a probe image against the references of one enrolled user.
The service decides; facegate shows the distance, the thresholds and the
zone the distance falls in.`,
	Example: `  facegate verify --user alice --file selfie.jpg
  facegate verify --user alice --camera`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().String("user", "", "User ID to verify against (required)")
	addImageFlags(verifyCmd)
	verifyCmd.MarkFlagRequired("user")
}

func runVerify(cmd *cobra.Command, args []string) error {
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
	blob, err := acquireImage(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}

	res, err := client.Verify(ctx, userID, blob)
	if err != nil {
		return printResult(cmd, faceapi.OpVerify, userID, nil, err)
	}
	return printResult(cmd, faceapi.OpVerify, userID, res, nil)
}
