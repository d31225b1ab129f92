package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/centsible/centsible/internal/cli"
	"github.com/centsible/centsible/internal/common"
	"github.com/centsible/centsible/internal/engine"
	"github.com/centsible/centsible/internal/importer"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import transactions from a statement file",
		Long: `Import transactions from a CSV, OFX/QFX, or QIF statement file.

The file format is detected from the extension and can be overridden with
--format. Transactions are deduplicated against previous imports, and all
active rules are applied to each newly imported transaction.

CSV imports use the column mapping under import.csv.mapping in the config
file, e.g.:

  import:
    csv:
      mapping:
        date: "Date"
        amount: "Amount"
        description: "Description"`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().Int64P("account", "a", 0, "Account ID to import into (required)")
	cmd.Flags().StringP("format", "f", "", "File format (csv, ofx, qif); default: detect from extension")
	_ = cmd.MarkFlagRequired("account")

	_ = viper.BindPFlag("import.account", cmd.Flags().Lookup("account"))
	_ = viper.BindPFlag("import.format", cmd.Flags().Lookup("format"))

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	parser, err := parserForFile(path, viper.GetString("import.format"))
	if err != nil {
		return err
	}

	file, err := os.Open(path) //nolint:gosec // User-supplied statement path
	if err != nil {
		return fmt.Errorf("failed to open statement file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			slog.Warn("failed to close statement file", "error", closeErr)
		}
	}()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer closeStorage(store)

	var bar *progressbar.ProgressBar
	imp := engine.NewWithConfig(store, newApplicator(store), engine.Config{
		OnProgress: func(processed, total int) {
			if bar == nil {
				bar = newImportBar(total)
			}
			if err := bar.Set(processed); err != nil {
				slog.Warn("failed to update progress bar", "error", err)
			}
		},
	})

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Importing %s", filepath.Base(path)))) //nolint:forbidigo // User-facing output

	summary, err := imp.Import(ctx, file, parser, viper.GetInt64("import.account"))
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	content := fmt.Sprintf(`Imported:      %d
Duplicates:    %d
Rules applied: %d
Failures:      %d`,
		summary.Imported, summary.Duplicates, summary.RulesApplied, summary.Failures)

	fmt.Println(cli.RenderBox("Import Summary", content)) //nolint:forbidigo // User-facing output
	return nil
}

// parserForFile picks a statement parser from the format override or the
// file extension.
func parserForFile(path, format string) (engine.Parser, error) {
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv":
			format = "csv"
		case ".ofx", ".qfx":
			format = "ofx"
		case ".qif":
			format = "qif"
		}
	}

	switch format {
	case "csv":
		return importer.NewCSVParser(csvMapping()), nil
	case "ofx":
		return importer.NewOFXParser(), nil
	case "qif":
		return importer.NewQIFParser(), nil
	default:
		return nil, fmt.Errorf("%w: %q; use --format (csv, ofx, qif)", common.ErrUnsupportedFormat, path)
	}
}

// csvMapping returns the configured CSV column mapping, defaulting to
// conventional column names.
func csvMapping() map[string]any {
	mapping := viper.GetStringMap("import.csv.mapping")
	if len(mapping) > 0 {
		return mapping
	}
	return map[string]any{
		"date":        "Date",
		"amount":      "Amount",
		"description": "Description",
	}
}

func newImportBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Importing transactions...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(os.Stderr); err != nil {
				slog.Warn("failed to write newline after progress bar", "error", err)
			}
		}),
	)
}
