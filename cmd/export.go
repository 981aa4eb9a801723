package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"osgb/internal/export"
	"osgb/internal/sheets"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the ledger to a spreadsheet",
}

var exportXLSXCmd = &cobra.Command{
	Use:     "xlsx",
	Short:   "Write transactions, balances and aging to an Excel workbook",
	Example: `  osgb export xlsx -o cari-2026-03.xlsx`,
	RunE:    runExportXLSX,
}

var exportSheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "Replace the ledger worksheets of the configured Google Sheet",
	Long: `Write all transactions and per-firm balances to the Google Sheet named by
GOOGLE_SHEET_URL. The transaction worksheet defaults to GOOGLE_SHEET_WORKSHEET.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_SHEET_URL - Google Sheets URL`,
	RunE: runExportSheets,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportXLSXCmd, exportSheetsCmd)

	exportXLSXCmd.Flags().StringP("output", "o", "", "Output file (default: cari-YYYY-MM-DD.xlsx)")
	exportSheetsCmd.Flags().String("worksheet", "", "Transaction worksheet name")
}

func (a *app) exportData(ctx context.Context) (export.Data, error) {
	firms, err := a.store.ListFirms(ctx)
	if err != nil {
		return export.Data{}, err
	}
	txns, err := a.store.ListTransactions(ctx)
	if err != nil {
		return export.Data{}, err
	}
	settings, err := a.store.GetGlobalSettings(ctx)
	if err != nil {
		return export.Data{}, err
	}
	return export.Data{Firms: firms, Transactions: txns, Settings: settings, AsOf: time.Now()}, nil
}

func runExportXLSX(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, "export")
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := a.exportData(cmd.Context())
	if err != nil {
		return handleError(err, a.log)
	}

	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		path = fmt.Sprintf("cari-%s.xlsx", data.AsOf.Format("2006-01-02"))
	}
	if err := export.SaveXLSX(data, path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Excel dosyası yazıldı: %s\n", path)
	return nil
}

func runExportSheets(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, "export")
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL environment variable is required")
	}
	worksheet, _ := cmd.Flags().GetString("worksheet")
	if worksheet == "" {
		worksheet = a.cfg.GoogleSheetWorksheet
	}

	ctx, cancel := newCommandContext(cmd.Context(), a.log)
	defer cancel()

	data, err := a.exportData(ctx)
	if err != nil {
		return handleError(err, a.log)
	}

	svc, err := sheets.NewSheetsService(ctx, a.cfg.GoogleSheetURL)
	if err != nil {
		return fmt.Errorf("failed to initialize Google Sheets service: %w", err)
	}
	if err := svc.WriteLedger(ctx, data, worksheet); err != nil {
		return handleError(err, a.log)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Google Sheet güncellendi: %d hareket.\n", len(data.Transactions))
	return nil
}
