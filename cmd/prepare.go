package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"osgb/internal/money"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Edit the billing inputs of the current cycle",
}

var prepareSetCmd = &cobra.Command{
	Use:   "set <firm-id>",
	Short: "Set headcount, extra item and yearly fee flag for a firm",
	Example: `  osgb prepare set 7f3c... --employees 42
  osgb prepare set 7f3c... --extra "1.250,00" --yearly-fee`,
	Args: cobra.ExactArgs(1),
	RunE: runPrepareSet,
}

var prepareListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every firm's billing inputs and computed total",
	RunE:  runPrepareList,
}

func init() {
	rootCmd.AddCommand(prepareCmd)
	prepareCmd.AddCommand(prepareSetCmd, prepareListCmd)

	prepareSetCmd.Flags().Int("employees", 0, "Current employee count")
	prepareSetCmd.Flags().String("extra", "", "Extra item amount (health share)")
	prepareSetCmd.Flags().Bool("yearly-fee", false, "Bill the yearly fee in place of the service base")
	prepareSetCmd.Flags().Bool("reset", false, "Reset to the firm's defaults first")
}

func runPrepareSet(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, "prepare")
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()
	flags := cmd.Flags()

	firm, err := a.store.GetFirm(ctx, args[0])
	if err != nil {
		return handleError(fmt.Errorf("%s: %w", args[0], err), a.log)
	}

	item, err := a.store.GetPreparationItem(ctx, firm.ID)
	if err != nil {
		return handleError(err, a.log)
	}
	if reset, _ := flags.GetBool("reset"); reset {
		item.CurrentEmployeeCount = firm.DefaultEmployeeCount
		item.ExtraItemAmount = decimal.Zero
		item.AddYearlyFee = false
	}

	if flags.Changed("employees") {
		n, _ := flags.GetInt("employees")
		if n < 0 {
			return fmt.Errorf("employee count must not be negative")
		}
		item.CurrentEmployeeCount = n
	}
	if flags.Changed("extra") {
		v, _ := flags.GetString("extra")
		amount, err := money.Parse(v)
		if err != nil {
			return fmt.Errorf("invalid --extra: %w", err)
		}
		item.ExtraItemAmount = amount
	}
	if flags.Changed("yearly-fee") {
		item.AddYearlyFee, _ = flags.GetBool("yearly-fee")
	}

	if err := a.store.SavePreparationItem(ctx, item); err != nil {
		return handleError(err, a.log)
	}

	_, total, err := a.svc.Compute(ctx, firm.ID)
	if err != nil {
		return handleError(err, a.log)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d çalışan, toplam %s\n",
		firm.Name, item.CurrentEmployeeCount, money.Format(total.GrandTotal))
	return nil
}

func runPrepareList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, "prepare")
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	firms, err := a.store.ListFirms(ctx)
	if err != nil {
		return handleError(err, a.log)
	}
	items, err := a.store.ListPreparationItems(ctx)
	if err != nil {
		return handleError(err, a.log)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "FİRMA\tÇALIŞAN\tEK KALEM\tYILLIK\tUZMAN\tHEKİM\tSAĞLIK\tTOPLAM\t")
	for _, f := range firms {
		_, total, err := a.svc.Compute(ctx, f.ID)
		if err != nil {
			return handleError(err, a.log)
		}
		item := items[f.ID]
		yearly := "-"
		if total.YearlyFeeApplied {
			yearly = "evet"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			f.Name, total.EmployeeCount, money.FormatPlain(item.ExtraItemAmount), yearly,
			money.FormatPlain(total.Expert), money.FormatPlain(total.Doctor),
			money.FormatPlain(total.Health), money.FormatPlain(total.GrandTotal))
	}
	return w.Flush()
}
