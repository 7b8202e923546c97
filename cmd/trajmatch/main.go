// Command trajmatch is the seeding and ad-hoc query CLI for the
// trajectory-matching engine, built on github.com/spf13/cobra — the
// teacher's CLI framework.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orneryd/trajmatch/internal/config"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "trajmatch",
		Short: "Trajectory-matching engine CLI",
		Long: `trajmatch seeds spans into the trajectory-matching engine and
answers ad-hoc prediction queries against them from the command line.`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("trajmatch v%s\n", version)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP edge server",
		RunE:  runServe,
	}
	serveCmd.Flags().String("address", "", "HTTP listen address (overrides TRAJMATCH_SERVER_ADDRESS)")
	rootCmd.AddCommand(serveCmd)

	seedCmd := &cobra.Command{
		Use:   "seed <file.ndjson>",
		Short: "Load spans from an NDJSON or YAML fixture file",
		Args:  cobra.ExactArgs(1),
		RunE:  runSeed,
	}
	seedCmd.Flags().Bool("yaml", false, "parse the fixture file as YAML instead of NDJSON")
	seedCmd.Flags().Bool("rebuild-clusters", true, "run k-means over the cluster index after seeding")
	rootCmd.AddCommand(seedCmd)

	predictCmd := &cobra.Command{
		Use:   "predict <action>",
		Short: "Run a single prediction query against the seeded corpus",
		Args:  cobra.ExactArgs(1),
		RunE:  runPredict,
	}
	predictCmd.Flags().String("environment", "", "context.environment")
	predictCmd.Flags().String("stakes", "", "context.stakes")
	predictCmd.Flags().Int("top-k", 0, "search plan topK (0 uses the configured default)")
	predictCmd.Flags().Int("min-quality", 60, "search plan minQuality")
	predictCmd.Flags().String("seed-file", "", "NDJSON fixture to seed before predicting")
	rootCmd.AddCommand(predictCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig builds the runtime config, applying address from the
// serve flag when set.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg := config.Load()
	if cmd.Flags().Changed("address") {
		address, _ := cmd.Flags().GetString("address")
		cfg.Server.Address = address
	}
	return cfg
}
