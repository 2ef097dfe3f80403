package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scanboard/scanboard/agent/internal/config"
	"github.com/scanboard/scanboard/agent/internal/security"
)

func newCertsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "certs",
		Short: "Check the TLS certificates of the server and https sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return withCode(exitUsage, err)
			}
			statuses := checkCerts(cmd.Context(), cfg.Agent)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(statuses); err != nil {
				return err
			}

			var expired int
			for _, cs := range statuses {
				if cs.Status == security.CertExpired {
					expired++
				}
			}
			if expired > 0 {
				return withCode(exitCertExpiry, fmt.Errorf("%d expired certificate(s)", expired))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	return cmd
}
