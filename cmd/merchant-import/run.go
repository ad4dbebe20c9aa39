package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dumeirei/market-merchant-backend/internal/common/cache"
	"github.com/dumeirei/market-merchant-backend/internal/common/config"
	"github.com/dumeirei/market-merchant-backend/internal/common/database"
	"github.com/dumeirei/market-merchant-backend/internal/common/logger"
	"github.com/dumeirei/market-merchant-backend/internal/models"
	"github.com/dumeirei/market-merchant-backend/internal/service/importer"
)

type runOptions struct {
	file       string
	sheet      string
	configPath string
	dryRun     bool
	jsonOutput bool
}

func runCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Import merchants row by row",
		Long: `Import merchants from an xlsx sheet.

Each row runs in its own transaction. Rows whose location or tariff data
cannot be matched still create the merchant, without a contract, and are
listed as warnings.

Examples:
  merchant-import run --file merchants.xlsx
  merchant-import run --file merchants.xlsx --sheet "2026" --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runImport(ctx, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "xlsx file to import (required)")
	cmd.Flags().StringVarP(&opts.sheet, "sheet", "s", "", "sheet name, defaults to the first sheet")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "config file path")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "parse and validate rows without writing")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print the report as JSON")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func templateCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write an empty import sheet with the expected headers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := importer.Template()
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write template: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "template written to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "merchant_import_template.xlsx", "output path")
	return cmd
}

func runImport(ctx context.Context, opts *runOptions, out io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	f, err := os.Open(opts.file)
	if err != nil {
		return fmt.Errorf("open %s: %w", opts.file, err)
	}
	defer f.Close()

	db, err := database.Init(&cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, models.AllModels()...); err != nil {
			return err
		}
	}

	// 未配置 Redis 时不加导入锁
	var rdb *redis.Client
	if cfg.Redis.Host != "" && !opts.dryRun {
		if rdb, err = cache.Init(&cfg.Redis); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer cache.Close()
	}

	imp := importer.NewImporter(db, rdb, importer.Config{
		MaxRows: cfg.Business.ImportMaxRows,
		Sheet:   cfg.Business.ImportSheet,
	})
	report, err := imp.Import(ctx, f, importer.Options{Sheet: opts.sheet, DryRun: opts.dryRun})
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(out, report)
	return nil
}

func printReport(out io.Writer, report *importer.Report) {
	mode := "import"
	if report.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(out, "%s %s (sheet %q, %s)\n", mode, report.ID, report.Sheet, report.Duration)
	fmt.Fprintf(out, "rows: %d  merchants: %d  contracts: %d  warnings: %d  rejected: %d\n",
		report.Total, report.Merchants, report.Contracts, report.Warnings(), report.Rejected)
	if report.DryRun {
		fmt.Fprintf(out, "valid rows: %d\n", len(report.Rows))
	}
	for _, m := range report.Messages {
		fmt.Fprintf(out, "  [%s] %s\n", m.Level, m)
	}
}
