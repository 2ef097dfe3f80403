package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:          "scanboard-server",
		Short:        "Serve the cluster audit dashboard, REST API and ingest endpoint",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.configSet = cmd.Flags().Changed("config")
			return serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "config.yaml", "path to config file; a missing default file means defaults and environment only")
	cmd.Flags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files loaded before the config; missing files are skipped")
	cmd.Flags().StringVar(&opts.auditPath, "audit-path", "", "preload an audit results file and reload it on change")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	cmd.Flags().DurationVar(&opts.wsInterval, "ws-interval", 5*time.Second, "WebSocket broadcast interval")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "scanboard-server", version)
		},
	}
}
