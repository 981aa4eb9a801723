package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"osgb/internal/logger"
	"osgb/internal/money"
	"osgb/internal/reconciliation"
	"osgb/internal/sheets"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Import payments from a Google Sheet and record them per firm",
	Long: `Read incoming payments from the payment worksheet of the configured Google
Sheet, attribute each to a firm by tax number or name, and record them as
approved payments. Payments already present in the ledger with the same firm,
date and amount are skipped.

Expected columns: A=Tarih, B=Firma, C=Vergi No, D=Tutar, E=Açıklama

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_SHEET_URL - Google Sheets URL containing the payment worksheet`,
	Example: `  # Show what would be recorded
  osgb reconcile --dry-run

  # Record payments from a different worksheet
  osgb reconcile --sheet "Banka Mart"`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().Bool("dry-run", false, "Match payments but don't record them")
	reconcileCmd.Flags().String("sheet", "", "Payment worksheet (default: OSGB_PAYMENT_SHEET)")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	sheetName, _ := cmd.Flags().GetString("sheet")

	a, err := openApp(cmd, "reconcile")
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL environment variable is required")
	}
	if sheetName == "" {
		sheetName = a.cfg.PaymentSheet
	}

	a.log.Info().
		Bool("dry_run", dryRun).
		Str("sheet", sheetName).
		Msg("Starting payment reconciliation")

	ctx, cancel := newCommandContext(cmd.Context(), a.log)
	defer cancel()

	sheetsService, err := sheets.NewSheetsService(ctx, a.cfg.GoogleSheetURL)
	if err != nil {
		return fmt.Errorf("failed to initialize Google Sheets service: %w", err)
	}

	if err := validateSheetExists(cmd, sheetsService, sheetName); err != nil {
		return err
	}

	firms, err := a.store.ListFirms(ctx)
	if err != nil {
		return handleError(err, a.log)
	}
	txns, err := a.store.ListTransactions(ctx)
	if err != nil {
		return handleError(err, a.log)
	}

	reconciler := reconciliation.NewReconciler(reconciliation.NewDataReader(sheetsService), a.svc)
	report, err := reconciler.Run(ctx, sheetName, firms, txns, dryRun)
	if report != nil {
		printReconcileReport(cmd.OutOrStdout(), report, dryRun)
	}
	if err != nil {
		return handleError(fmt.Errorf("reconciliation failed: %w", err), a.log)
	}
	return nil
}

// validateSheetExists checks that the payment worksheet is readable
func validateSheetExists(cmd *cobra.Command, sheetsService *sheets.Service, sheetName string) error {
	log := logger.WithComponent("reconcile-validation")
	log.Debug().Str("sheet", sheetName).Msg("Checking sheet existence")

	if _, err := sheetsService.ReadRange(cmd.Context(), sheetName+"!A1:A1"); err != nil {
		return fmt.Errorf("sheet '%s' does not exist or is not accessible: %w", sheetName, err)
	}
	return nil
}

func printReconcileReport(out io.Writer, report *reconciliation.Report, dryRun bool) {
	matched, duplicates := 0, 0
	for _, m := range report.Results {
		switch {
		case m.Duplicate:
			duplicates++
		case m.Matched():
			matched++
			verb := "kaydedildi"
			if dryRun {
				verb = "kaydedilecek"
			}
			fmt.Fprintf(out, "  satır %d: %s -> %s (%s) %s\n", m.Payment.Row,
				money.Format(m.Payment.Amount), m.FirmName, m.MatchedBy, verb)
		}
	}

	unmatched := report.Unmatched()
	for _, m := range unmatched {
		fmt.Fprintf(out, "  satır %d: %s %s eşleşmedi", m.Payment.Row, m.Payment.Payer, money.Format(m.Payment.Amount))
		if len(m.Candidates) > 0 {
			fmt.Fprintf(out, " (%d aday firma)", len(m.Candidates))
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "%d ödeme eşleşti, %d zaten kayıtlı, %d eşleşmedi, %d kaydedildi.\n",
		matched, duplicates, len(unmatched), report.Recorded)
}
