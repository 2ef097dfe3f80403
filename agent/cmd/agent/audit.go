package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/scanboard/scanboard/agent/internal/compute"
	"github.com/scanboard/scanboard/agent/internal/config"
	"github.com/scanboard/scanboard/agent/internal/report"
	"github.com/scanboard/scanboard/agent/internal/shipper"
	"github.com/scanboard/scanboard/agent/internal/source"
	"github.com/scanboard/scanboard/pkg/types"
)

type auditOptions struct {
	input              string
	inputType          string
	outputFormat       string
	outputFile         string
	outputURL          string
	displayName        string
	apiKeyEnv          string
	apiKeyHeader       string
	insecureSkipVerify bool
	exitOnError        bool
	minScore           uint
}

func newAuditCmd() *cobra.Command {
	var opts auditOptions

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Load one audit result, print a report and optionally upload it",
		Example: `  scanboard-agent audit --input results.json --output-format text
  scanboard-agent audit --input https://audit.example.com/results.json --output-url http://scanboard:8080
  scanboard-agent audit --input results.yaml --set-exit-code-below-score 80`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.input, "input", "", "results file path or http(s) URL (required)")
	f.StringVar(&opts.inputType, "input-type", "", "file|http|prometheus (default: http for URLs, file otherwise)")
	f.StringVar(&opts.outputFormat, "output-format", report.FormatJSON, "json|yaml|score|text")
	f.StringVar(&opts.outputFile, "output-file", "", "write the report to this file instead of stdout")
	f.StringVar(&opts.outputURL, "output-url", "", "scanboard-server base URL to upload the summary to")
	f.StringVar(&opts.displayName, "display-name", "", "cluster name to report instead of the source name")
	f.StringVar(&opts.apiKeyEnv, "api-key-env", "SCANBOARD_API_KEY", "environment variable holding the upload API key")
	f.StringVar(&opts.apiKeyHeader, "api-key-header", config.DefaultAPIKeyHeader, "header carrying the upload API key")
	f.BoolVar(&opts.insecureSkipVerify, "insecure-skip-verify", false, "skip TLS verification for http inputs")
	f.BoolVar(&opts.exitOnError, "set-exit-code-on-error", false, "exit 3 when any check is at error level")
	f.UintVar(&opts.minScore, "set-exit-code-below-score", 0, "exit 4 when the score is below this value (0 disables)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runAudit(ctx context.Context, stdout io.Writer, opts auditOptions) error {
	if !slices.Contains(report.Formats(), opts.outputFormat) {
		return withCode(exitUsage, fmt.Errorf("invalid --output-format %q: want one of %v", opts.outputFormat, report.Formats()))
	}
	if opts.minScore > 100 {
		return withCode(exitUsage, fmt.Errorf("--set-exit-code-below-score must be 0-100, got %d", opts.minScore))
	}

	src, err := source.New(config.Source{
		ID:          "cli",
		Type:        inputType(opts.input, opts.inputType),
		Endpoint:    opts.input,
		DisplayName: opts.displayName,
		TLS:         config.TLSConfig{InsecureSkipVerify: opts.insecureSkipVerify},
	})
	if err != nil {
		return withCode(exitUsage, err)
	}
	sum, err := src.Load(ctx)
	if err != nil {
		return err
	}

	if err := writeReport(stdout, opts, sum); err != nil {
		return err
	}

	if opts.outputURL != "" {
		ship := shipper.New(config.AgentConfig{
			ServerEndpoint: opts.outputURL,
			ServerAuth:     config.ServerAuthConfig{Header: opts.apiKeyHeader, KeyEnv: opts.apiKeyEnv},
		})
		if err := ship.Push(ctx, sum); err != nil {
			return err
		}
	}

	if opts.exitOnError && sum.ClusterSummary.Results.Totals.Errors > 0 {
		return withCode(exitAuditError, fmt.Errorf("audit found %d errors", sum.ClusterSummary.Results.Totals.Errors))
	}
	if score := compute.Score(sum); opts.minScore > 0 && score < opts.minScore {
		return withCode(exitLowScore, fmt.Errorf("audit score %d is below %d", score, opts.minScore))
	}
	return nil
}

func writeReport(stdout io.Writer, opts auditOptions, sum *types.AuditSummary) error {
	if opts.outputFile == "" {
		return report.Write(stdout, opts.outputFormat, sum)
	}
	f, err := os.Create(opts.outputFile)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := report.Write(f, opts.outputFormat, sum); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// inputType picks the source type for --input when --input-type is empty.
func inputType(input, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if u, err := url.Parse(input); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return config.SourceHTTP
	}
	return config.SourceFile
}
