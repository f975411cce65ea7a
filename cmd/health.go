package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/faceapi"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether the face service is reachable",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().Bool("json", false, "Output as JSON")
}

func runHealth(cmd *cobra.Command, args []string) error {
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

	health, err := client.Health(ctx)
	if err != nil {
		fmt.Printf("API Offline · %s\n", client.BaseURL())
		return fmt.Errorf("health check failed: %s", faceapi.Message(err))
	}
	if mustGetBool(cmd, "json") {
		return outputJSON(health.Payload)
	}

	fmt.Printf("API Online · %s\n", client.BaseURL())
	keys := make([]string, 0, len(health.Payload))
	for k := range health.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s\t%v\n", k, health.Payload[k])
	}
	return w.Flush()
}
