package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"osgb/internal/invoice"
	"osgb/internal/money"
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Review, approve or reject pending invoice drafts",
}

var draftsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending drafts with their share breakdown",
	RunE:  runDraftsList,
}

var draftsApproveCmd = &cobra.Command{
	Use:   "approve [transaction-id...]",
	Short: "Approve drafts; approval is final",
	RunE:  runDraftsApprove,
}

var draftsDeleteCmd = &cobra.Command{
	Use:   "delete <transaction-id>...",
	Short: "Reject pending drafts by deleting them",
	Long: `Delete pending drafts. Rejection is deletion: there is no rejected state.

With --force, approved transactions can be deleted as well. This changes
historical balances and is logged as a correction.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDraftsDelete,
}

func init() {
	rootCmd.AddCommand(draftsCmd)
	draftsCmd.AddCommand(draftsListCmd, draftsApproveCmd, draftsDeleteCmd)

	draftsApproveCmd.Flags().Bool("all", false, "Approve every pending draft")
	draftsDeleteCmd.Flags().Bool("force", false, "Allow deleting approved transactions")
}

func runDraftsList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, "drafts")
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	drafts, err := a.svc.PendingDrafts(ctx)
	if err != nil {
		return handleError(err, a.log)
	}
	out := cmd.OutOrStdout()
	if len(drafts) == 0 {
		fmt.Fprintln(out, "Bekleyen taslak yok.")
		return nil
	}

	idx, _, err := a.firmIndex(ctx)
	if err != nil {
		return handleError(err, a.log)
	}
	settings, err := a.store.GetGlobalSettings(ctx)
	if err != nil {
		return handleError(err, a.log)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTARİH\tFİRMA\tUZMAN\tHEKİM\tSAĞLIK\tTUTAR\tKDV HARİÇ\tAÇIKLAMA")
	for i := range drafts {
		t := &drafts[i]
		det, approx := invoice.DetailsFor(t, idx[t.FirmID], settings)
		mark := ""
		if approx {
			mark = "~"
		}
		net := "-"
		if f := idx[t.FirmID]; f != nil && f.IsKdvExcluded {
			net = mark + money.FormatPlain(invoice.NetFromGross(det, f, settings).Total)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s%s\t%s%s\t%s%s\t%s\t%s\t%s\n",
			t.ID, money.FormatDate(t.Date), firmName(idx, t.FirmID),
			mark, money.FormatPlain(det.ExpertShare),
			mark, money.FormatPlain(det.DoctorShare),
			mark, money.FormatPlain(det.HealthShare),
			money.FormatPlain(t.Debt), net, t.Description)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, r := range invoice.NewDraftValidation().ValidateAll(drafts) {
		for _, warning := range r.Warnings {
			fmt.Fprintf(out, "Uyarı %s: %s\n", r.TransactionID, warning)
		}
	}
	return nil
}

func runDraftsApprove(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	if !all && len(args) == 0 {
		return fmt.Errorf("pass transaction ids or --all")
	}

	a, err := openApp(cmd, "drafts")
	if err != nil {
		return err
	}
	defer a.Close()

	var n int
	if all {
		n, err = a.svc.ApproveAllPending(cmd.Context())
	} else {
		n, err = a.svc.Approve(cmd.Context(), args...)
	}
	if err != nil {
		return handleError(err, a.log)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d taslak onaylandı.\n", n)
	return nil
}

func runDraftsDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, "drafts")
	if err != nil {
		return err
	}
	defer a.Close()

	if force, _ := cmd.Flags().GetBool("force"); force {
		err = a.svc.Delete(cmd.Context(), args...)
	} else {
		err = a.svc.DeletePending(cmd.Context(), args...)
	}
	if err != nil {
		return handleError(err, a.log)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d kayıt silindi.\n", len(args))
	return nil
}
