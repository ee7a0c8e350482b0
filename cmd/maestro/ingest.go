package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/maestro/internal/app"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Load RNE pages into the knowledge base",
	Long:  `Splits every page file in dir into chunks, embeds them and stores them in the vector index. Page numbers come from the digits in each file name.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var ingestReset bool

func init() {
	ingestCmd.Flags().BoolVar(&ingestReset, "reset", false, "Delete all stored chunks before ingesting")
}

func runIngest(cmd *cobra.Command, args []string) error {
	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := application.IngestService.IngestDir(ctx, args[0], ingestReset)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d pages (%d chunks, %d skipped) in %s\n",
		report.Pages, report.Chunks, report.Skipped, report.Duration)
	return nil
}
