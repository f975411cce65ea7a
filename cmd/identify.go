package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/faceapi"
)

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Find the closest enrolled users for a face (1:N)",
	Example: `  facegate identify --file probe.jpg --top-k 10`,
	RunE:    runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)
	identifyCmd.Flags().Int("top-k", faceapi.DefaultTopK, "Number of candidates to return (2-50)")
	addImageFlags(identifyCmd)
}

func runIdentify(cmd *cobra.Command, args []string) error {
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

	blob, err := acquireImage(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}

	res, err := client.Identify(ctx, blob, mustGetInt(cmd, "top-k"))
	if err != nil {
		return printResult(cmd, faceapi.OpIdentify, "", nil, err)
	}
	return printResult(cmd, faceapi.OpIdentify, "", res, nil)
}
