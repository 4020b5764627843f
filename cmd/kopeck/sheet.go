package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kopeckbot/kopeck/internal/config"
	"github.com/kopeckbot/kopeck/internal/ledger"
)

func sheetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheet",
		Short: "Manage the Google Sheets ledger",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the header row if the sheet is empty",
		RunE:  runSheetInit,
	})

	return cmd
}

func runSheetInit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Ledger.Validate(); err != nil {
		return err
	}

	writer, err := ledger.NewWriter(ctx, cfg.Ledger, slog.Default())
	if err != nil {
		return fmt.Errorf("creating sheets writer: %w", err)
	}

	if err := writer.EnsureHeaders(ctx); err != nil {
		return fmt.Errorf("ensuring ledger headers: %w", err)
	}

	fmt.Printf("Sheet %q is ready.\n", cfg.Ledger.SheetName)
	return nil
}
