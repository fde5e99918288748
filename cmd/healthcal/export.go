// ABOUTME: CLI commands for exporting and importing healthcal data.
// ABOUTME: Supports JSON, YAML, CSV, and Markdown export; JSON, YAML, and CSV import.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/healthcal/internal/service"
	"github.com/spf13/cobra"
)

var (
	exportOutput string
	importFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export <format>",
	Short: "Export your data",
	Long: `Export health records, schedules, and settings.

FORMATS:

  json       Full export (suitable for backup/restore)
  yaml       YAML export (human-readable)
  csv        Health records only (date,status,notes)
  markdown   Markdown tables (for documentation/sharing)

EXAMPLES:

  healthcal export json                  # Export all data as JSON
  healthcal export json -o backup.json   # Save to file
  healthcal export csv -o records.csv`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{service.FormatJSON, service.FormatYAML, service.FormatCSV, service.FormatMarkdown},
	RunE: func(cmd *cobra.Command, args []string) error {
		format := args[0]

		if exportOutput == "" {
			return app.exporter.Export(cmd.Context(), cmd.OutOrStdout(), format)
		}

		f, err := os.OpenFile(exportOutput, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		if err := app.exporter.Export(cmd.Context(), f, format); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Exported to %s", exportOutput))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import data from an export file",
	Long: `Import an export into the signed-in account. Records are matched by date and
imported schedules by source and external id, so importing the same file
twice does not create duplicates.

The format is taken from the file extension unless --format is given.

EXAMPLES:

  healthcal import backup.json
  healthcal import records.csv
  healthcal import dump.txt --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]

		f, err := os.Open(filename)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		defer f.Close()

		format := importFormat
		if format == "" {
			format = formatFromExt(filename)
		}

		res, err := app.exporter.Import(cmd.Context(), f, format)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("✓ Imported from %s", filename))
		fmt.Fprintf(cmd.OutOrStdout(), "  %d records, %d schedules", res.Records, res.Schedules)
		if res.SettingsRestored {
			fmt.Fprint(cmd.OutOrStdout(), ", settings")
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	},
}

func formatFromExt(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return service.FormatYAML
	case ".csv":
		return service.FormatCSV
	default:
		return service.FormatJSON
	}
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "json, yaml, or csv (default: from extension)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
