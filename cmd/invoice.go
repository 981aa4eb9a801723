package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"osgb/internal/invoice"
	"osgb/internal/money"
	"osgb/internal/pricing"
	"osgb/pkg/models"
)

var invoiceCmd = &cobra.Command{
	Use:   "invoice [firm-id]",
	Short: "Create pending invoice drafts from the current billing inputs",
	Long: `Create a PENDING invoice draft for one firm, or for every firm with --all.

A single firm is invoiced on its own total even when it belongs to a pool.
With --all, pool roots receive one merged invoice covering their members and
members are not invoiced separately. Firms whose total is zero or negative
are skipped.`,
	Example: `  # Invoice one firm
  osgb invoice 7f3c...

  # Preview the bulk run without writing anything
  osgb invoice --all --preview

  # Bulk run
  osgb invoice --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInvoice,
}

func init() {
	rootCmd.AddCommand(invoiceCmd)

	invoiceCmd.Flags().Bool("all", false, "Invoice every firm, merging pools")
	invoiceCmd.Flags().Bool("preview", false, "Show what --all would create without writing")
}

func runInvoice(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	preview, _ := cmd.Flags().GetBool("preview")

	a, err := openApp(cmd, "invoice")
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := newCommandContext(cmd.Context(), a.log)
	defer cancel()
	out := cmd.OutOrStdout()

	switch {
	case preview:
		invoices, err := a.svc.Preview(ctx)
		if err != nil {
			return handleError(err, a.log)
		}
		printPreview(out, invoices)
		return nil

	case all:
		res, err := a.svc.InvoiceAll(ctx)
		if err != nil {
			return handleError(err, a.log)
		}
		printBulkResult(out, res, a.cfg.RetireSubsumed)
		return nil
	}

	firmID := ""
	if len(args) == 1 {
		firmID = args[0]
	}
	txn, err := a.svc.InvoiceFirm(ctx, firmID)
	if err != nil {
		if notice(cmd, err) {
			return nil
		}
		return handleError(err, a.log)
	}
	fmt.Fprintf(out, "Taslak oluşturuldu: %s  %s  %s\n", txn.ID, money.Format(txn.Debt), txn.Description)
	return nil
}

func printPreview(out io.Writer, invoices []pricing.PoolInvoice) {
	fmt.Fprintln(out, strings.Repeat("=", 72))
	fmt.Fprintln(out, "                     TOPLU FATURA ÖN İZLEME")
	fmt.Fprintln(out, strings.Repeat("=", 72))

	for _, inv := range invoices {
		total := money.Round2(inv.Merged.GrandTotal)
		marker := ""
		if !total.IsPositive() {
			marker = "  (atlanacak)"
		}
		fmt.Fprintf(out, "%-40s %20s%s\n", inv.Root.Name, money.Format(total), marker)
		if inv.IsPool() {
			fmt.Fprintf(out, "  havuz: %s\n", inv.MemberLabel)
		}
		if len(inv.SubsumedDraftIDs) > 0 {
			fmt.Fprintf(out, "  üyelerin %d bekleyen taslağı kapsanıyor\n", len(inv.SubsumedDraftIDs))
		}
	}
}

func printBulkResult(out io.Writer, res *invoice.BulkResult, retire bool) {
	total := money.Round2(sumDebt(res.Created))
	fmt.Fprintf(out, "%d taslak oluşturuldu, toplam %s\n", len(res.Created), money.Format(total))
	for _, t := range res.Created {
		fmt.Fprintf(out, "  %s  %15s  %s\n", t.ID, money.FormatPlain(t.Debt), t.Description)
	}

	if len(res.Skipped) > 0 {
		fmt.Fprintf(out, "%d firma sıfır veya negatif toplam nedeniyle atlandı:\n", len(res.Skipped))
		for _, s := range res.Skipped {
			fmt.Fprintf(out, "  %s (%s)\n", s.Name, money.Format(s.Total))
		}
	}

	switch {
	case len(res.Retired) > 0:
		fmt.Fprintf(out, "Havuz üyelerinin %d bekleyen taslağı silindi.\n", len(res.Retired))
	case len(res.Subsumed) > 0 && !retire:
		fmt.Fprintf(out, "Uyarı: havuz üyelerinin %d bekleyen taslağı birleşik faturada da yer alıyor: %s\n",
			len(res.Subsumed), strings.Join(res.Subsumed, ", "))
	}
}

func sumDebt(txns []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txns {
		total = total.Add(t.Debt)
	}
	return total
}
