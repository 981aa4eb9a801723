package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"osgb/internal/invoice"
	"osgb/internal/ledger"
	"osgb/internal/money"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Balances, statements and manual ledger entries",
	Long:  `Ledger views only include APPROVED transactions. Pending drafts never affect balances.`,
}

var ledgerBalanceCmd = &cobra.Command{
	Use:   "balance [firm-id]",
	Short: "Show debt, credit and balance per firm",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLedgerBalance,
}

var ledgerStatementCmd = &cobra.Command{
	Use:   "statement <firm-id>",
	Short: "Show a firm's account statement with running balance",
	Args:  cobra.ExactArgs(1),
	RunE:  runLedgerStatement,
}

var ledgerAgingCmd = &cobra.Command{
	Use:   "aging",
	Short: "Show open debt by age (0-30, 31-60, 61-90, 90+ days)",
	RunE:  runLedgerAging,
}

var ledgerMonthlyCmd = &cobra.Command{
	Use:   "monthly <year>",
	Short: "Show monthly debt and credit totals",
	Args:  cobra.ExactArgs(1),
	RunE:  runLedgerMonthly,
}

var ledgerPaymentCmd = &cobra.Command{
	Use:     "payment <firm-id> <amount>",
	Short:   "Record a received payment",
	Example: `  osgb ledger payment 7f3c... "1.250,00" --date 15.03.2026`,
	Args:    cobra.ExactArgs(2),
	RunE:    runLedgerEntry,
}

var ledgerDebtCmd = &cobra.Command{
	Use:   "debt <firm-id> <amount>",
	Short: "Record a manual debt such as an opening balance",
	Args:  cobra.ExactArgs(2),
	RunE:  runLedgerEntry,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerBalanceCmd, ledgerStatementCmd, ledgerAgingCmd, ledgerMonthlyCmd, ledgerPaymentCmd, ledgerDebtCmd)

	ledgerStatementCmd.Flags().String("from", "", "Start date (DD.MM.YYYY)")
	ledgerStatementCmd.Flags().String("to", "", "End date (DD.MM.YYYY)")
	ledgerAgingCmd.Flags().String("as-of", "", "Reference date (default: today)")
	ledgerMonthlyCmd.Flags().String("firm", "", "Limit to one firm")
	for _, c := range []*cobra.Command{ledgerPaymentCmd, ledgerDebtCmd} {
		c.Flags().String("date", "", "Entry date (default: today)")
		c.Flags().String("desc", "", "Description")
	}
}

func dateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := money.ParseDate(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return t, nil
}

func runLedgerBalance(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, "ledger")
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	firms, err := a.store.ListFirms(ctx)
	if err != nil {
		return handleError(err, a.log)
	}
	txns, err := a.store.ListTransactions(ctx)
	if err != nil {
		return handleError(err, a.log)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FİRMA\tBORÇ\tALACAK\tBAKİYE\t")
	for _, b := range ledger.Balances(firms, txns) {
		if len(args) == 1 && b.FirmID != args[0] {
			continue
		}
		name := b.FirmName
		if b.Orphaned {
			name = b.FirmID + " (silinmiş)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", name,
			money.FormatPlain(b.Debt), money.FormatPlain(b.Credit), money.FormatPlain(b.Balance))
	}
	return w.Flush()
}

func runLedgerStatement(cmd *cobra.Command, args []string) error {
	from, err := dateFlag(cmd, "from")
	if err != nil {
		return err
	}
	to, err := dateFlag(cmd, "to")
	if err != nil {
		return err
	}
	if !to.IsZero() {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	a, err := openApp(cmd, "ledger")
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	idx, _, err := a.firmIndex(ctx)
	if err != nil {
		return handleError(err, a.log)
	}
	txns, err := a.store.ListTransactions(ctx)
	if err != nil {
		return handleError(err, a.log)
	}

	st := ledger.BuildStatement(args[0], txns, from, to)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Hesap ekstresi: %s\n", firmName(idx, args[0]))
	fmt.Fprintf(out, "Devir: %s\n\n", money.Format(st.Opening))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TARİH\tAÇIKLAMA\tBORÇ\tALACAK\tBAKİYE\t")
	for _, l := range st.Lines {
		t := l.Transaction
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n", money.FormatDate(t.Date), t.Description,
			money.FormatPlain(t.Debt), money.FormatPlain(t.Credit), money.FormatPlain(l.Balance))
	}
	fmt.Fprintf(w, "\tTOPLAM\t%s\t%s\t%s\t\n",
		money.FormatPlain(st.Debt), money.FormatPlain(st.Credit), money.FormatPlain(st.Closing))
	return w.Flush()
}

func runLedgerAging(cmd *cobra.Command, args []string) error {
	asOf, err := dateFlag(cmd, "as-of")
	if err != nil {
		return err
	}
	if asOf.IsZero() {
		asOf = time.Now()
	}

	a, err := openApp(cmd, "ledger")
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	idx, firms, err := a.firmIndex(ctx)
	if err != nil {
		return handleError(err, a.log)
	}
	txns, err := a.store.ListTransactions(ctx)
	if err != nil {
		return handleError(err, a.log)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "FİRMA\t%s\t%s\t%s\t%s\tAÇIK\t\n",
		ledger.BucketLabels[0], ledger.BucketLabels[1], ledger.BucketLabels[2], ledger.BucketLabels[3])
	for _, ag := range ledger.AgeAll(firms, txns, asOf) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n", firmName(idx, ag.FirmID),
			money.FormatPlain(ag.Buckets[0]), money.FormatPlain(ag.Buckets[1]),
			money.FormatPlain(ag.Buckets[2]), money.FormatPlain(ag.Buckets[3]),
			money.FormatPlain(ag.Open))
	}
	return w.Flush()
}

func runLedgerMonthly(cmd *cobra.Command, args []string) error {
	year, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid year %q", args[0])
	}
	firmID, _ := cmd.Flags().GetString("firm")

	a, err := openApp(cmd, "ledger")
	if err != nil {
		return err
	}
	defer a.Close()

	txns, err := a.store.ListTransactions(cmd.Context())
	if err != nil {
		return handleError(err, a.log)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DÖNEM\tBORÇ\tALACAK\t")
	for _, m := range ledger.MonthlyTotals(txns, year, firmID) {
		fmt.Fprintf(w, "%02d/%d\t%s\t%s\t\n", m.Month, m.Year, money.FormatPlain(m.Debt), money.FormatPlain(m.Credit))
	}
	return w.Flush()
}

func runLedgerEntry(cmd *cobra.Command, args []string) error {
	amount, err := money.Parse(args[1])
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	date, err := dateFlag(cmd, "date")
	if err != nil {
		return err
	}
	desc, _ := cmd.Flags().GetString("desc")

	a, err := openApp(cmd, "ledger")
	if err != nil {
		return err
	}
	defer a.Close()

	entry := invoice.LedgerEntry{FirmID: args[0], Amount: amount, Date: date, Description: desc}
	record := a.svc.RecordPayment
	if cmd.Name() == "debt" {
		record = a.svc.RecordDebt
	}
	txn, err := record(cmd.Context(), entry)
	if err != nil {
		return handleError(err, a.log)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Kaydedildi: %s  %s  %s\n", txn.ID, money.Format(txn.Net().Abs()), txn.Description)
	return nil
}
