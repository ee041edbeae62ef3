package main

import (
	"fmt"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/pkg/config"
	"github.com/marmos91/dittogrid/pkg/export"
	"github.com/marmos91/dittogrid/pkg/walk"
	"github.com/spf13/cobra"
)

var (
	exportTarget      string
	exportCompression string
	exportOutput      string
	exportBucket      string
	exportKey         string
)

var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Export a subtree as NDJSON",
	Long: `Walk a collection and write one JSON record per entry to the configured
sink. Sinks are configured in the export section of the configuration file;
the flags below override the most common settings.

Examples:
  # To standard output
  dittogrid export /tempZone/home/alice --to file --file -

  # Compressed, to S3
  dittogrid export /tempZone --to s3 --bucket catalog-dumps --key tempZone --compression zstd`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportTarget, "to", "", "sink type (file, s3)")
	exportCmd.Flags().StringVar(&exportCompression, "compression", "", "record compression (none, zstd)")
	exportCmd.Flags().StringVar(&exportOutput, "file", "", "output file for the file sink (- for stdout)")
	exportCmd.Flags().StringVar(&exportBucket, "bucket", "", "bucket for the s3 sink")
	exportCmd.Flags().StringVar(&exportKey, "key", "", "object key for the s3 sink (the compression suffix is appended)")
}

func runExport(cmd *cobra.Command, p string) error {
	ctx := cmd.Context()

	ec := cfg.Export
	flags := cmd.Flags()
	if flags.Changed("to") {
		ec.Type = exportTarget
	}
	if flags.Changed("compression") {
		ec.Compression = exportCompression
	}
	if flags.Changed("file") {
		ec.File["path"] = exportOutput
	}
	if flags.Changed("bucket") {
		ec.S3["bucket"] = exportBucket
	}
	if flags.Changed("key") {
		ec.S3["key"] = exportKey + config.ExportCompression(&ec).Extension()
	}
	if ec.Type != "file" && ec.Type != "s3" {
		return fmt.Errorf("unknown export sink type: %q", ec.Type)
	}

	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	sink, err := config.CreateExportSink(ctx, &ec)
	if err != nil {
		return err
	}

	exporter := export.New(walk.New(client.catalog, config.NewWalkConfig(cfg)), config.ExportCompression(&ec))
	stats, err := exporter.Export(ctx, p, sink)
	if err != nil {
		return err
	}

	logger.Info("Export of %s finished: %s", p, stats.Summary())
	return nil
}
