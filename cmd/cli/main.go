package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tabconv/app"
	"tabconv/internal/config"
	"tabconv/internal/container"
	"tabconv/internal/errors"
	"tabconv/internal/preview"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "tabconv",
		Short:         "Convert tables in PDF and Word documents to Excel workbooks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnv(envFile)
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading configuration")

	rootCmd.AddCommand(
		newConvertCmd(),
		newBatchCmd(),
		newPreviewCmd(),
		newProfilesCmd(),
	)
	return rootCmd
}

// loadEnv loads envFile when it exists; variables already set win
func loadEnv(envFile string) error {
	if envFile == "" {
		return nil
	}
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("cannot load %s: %v", envFile, err))
	}
	return nil
}

func buildContainer() (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return container.New(cfg)
}

func newConvertCmd() *cobra.Command {
	var output string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "convert [document]",
		Short: "Convert one PDF or DOCX document",
		Long: `Extract every table of a document, normalize it and write an .xlsx workbook.

One table is written to a single sheet, several tables to one sheet each
(tabla_1, tabla_2, ...). A single table recognized by a template profile
keyword fills that template instead.

Example: tabconv convert factura.pdf --output factura.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildContainer()
			if err != nil {
				return err
			}
			return runConvert(cmd.Context(), cmd.OutOrStdout(), c.Conversion, args[0], output, asJSON)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output workbook (default <name>_convertido.xlsx in OUTPUT_DIR)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var outputDir string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "batch [directory]",
		Short: "Convert every PDF and DOCX document in a directory",
		Long: `Convert all supported documents directly inside a directory using
BATCH_WORKERS parallel workers. A document that fails is reported and does not
stop the others; the command exits non-zero when any document failed.

Example: tabconv batch ./entrada --output-dir ./salida`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildContainer()
			if err != nil {
				return err
			}
			return runBatch(cmd.Context(), cmd.OutOrStdout(), c.Conversion, args[0], outputDir, asJSON)
		},
	}

	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for the workbooks (default OUTPUT_DIR)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	var rows int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "preview [document]",
		Short: "Show the normalized tables of a document without writing a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildContainer()
			if err != nil {
				return err
			}
			return runPreview(cmd.Context(), cmd.OutOrStdout(), c.Conversion, args[0], rows, asJSON)
		},
	}

	cmd.Flags().IntVar(&rows, "rows", preview.DefaultRows, "Rows shown per table")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print tables and column summaries as JSON")
	return cmd
}

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the template profiles and their keywords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildContainer()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range c.Profiles {
				fmt.Fprintf(out, "%s\tkeyword=%q\tsheet=%q\tdetail_start_row=%d\n", p.Name, p.Keyword, p.Sheet, p.DetailStartRow)
			}
			return nil
		},
	}
}

func runConvert(ctx context.Context, out io.Writer, svc *app.ConversionService, input, output string, asJSON bool) error {
	res, err := svc.Convert(ctx, input, output)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, res)
	}
	fmt.Fprintf(out, "%s -> %s (%s, %s)\n", res.Input, res.Output, res.Sink, strings.Join(res.Sheets, ", "))
	return nil
}

func runBatch(ctx context.Context, out io.Writer, svc *app.ConversionService, inputDir, outputDir string, asJSON bool) error {
	report, err := svc.ConvertBatch(ctx, inputDir, outputDir)
	if report == nil {
		return err
	}
	if asJSON {
		if jerr := writeJSON(out, report); jerr != nil {
			return jerr
		}
	} else {
		printReport(out, report)
	}
	if err != nil {
		return err
	}
	if len(report.Failures) > 0 {
		return fmt.Errorf("%d of %d documents failed", len(report.Failures), len(report.Failures)+len(report.Converted))
	}
	return nil
}

func printReport(out io.Writer, report *app.BatchReport) {
	fmt.Fprintf(out, "Batch %s: %d converted, %d failed\n", report.ID, len(report.Converted), len(report.Failures))
	for _, res := range report.Converted {
		fmt.Fprintf(out, "  ok    %s -> %s\n", res.Input, res.Output)
	}
	for _, f := range report.Failures {
		fmt.Fprintf(out, "  fail  %s [%s] %s\n", f.File, f.Code, f.Reason)
	}
	if len(report.Skipped) > 0 {
		fmt.Fprintf(out, "  skipped: %s\n", strings.Join(report.Skipped, ", "))
	}
}

func runPreview(ctx context.Context, out io.Writer, svc *app.ConversionService, input string, rows int, asJSON bool) error {
	res, err := svc.Preview(ctx, input)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, res)
	}

	named := make([]preview.Named, len(res.Tables))
	for i, t := range res.Tables {
		named[i] = preview.Named{Name: t.Name, Table: t.Table}
	}
	fmt.Fprintf(out, "Routing: %s", res.Sink)
	if res.Template != "" {
		fmt.Fprintf(out, " (%s)", res.Template)
	}
	fmt.Fprint(out, "\n\n", preview.Markdown(named, rows))
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
