package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"osgb/internal/invoice"
	"osgb/internal/money"
)

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Build a merged invoice for a root firm and its branches",
}

var poolShowCmd = &cobra.Command{
	Use:   "show <root-id>",
	Short: "Show the pool lines as they would be committed",
	Args:  cobra.ExactArgs(1),
	RunE:  runPool,
}

var poolCommitCmd = &cobra.Command{
	Use:   "commit <root-id>",
	Short: "Commit the merged pool invoice as a pending draft",
	Long: `Open the pool of a root firm, apply overrides and commit one merged draft.

Lines start from the member's existing pending draft when there is one, and
from the computed total otherwise. Overriding a line with --amount or --count
detaches it from its draft, so that draft is kept. Drafts still attached to a
line are deleted when the merged draft is created.`,
	Example: `  # Commit using the saved pool members
  osgb pool commit root-id

  # Choose members, override one line and remember the members
  osgb pool commit root-id --members b1,b2 --amount b2=1500 --count b1=12 --save-default`,
	Args: cobra.ExactArgs(1),
	RunE: runPool,
}

func init() {
	rootCmd.AddCommand(poolCmd)
	poolCmd.AddCommand(poolShowCmd, poolCommitCmd)

	for _, c := range []*cobra.Command{poolShowCmd, poolCommitCmd} {
		c.Flags().StringSlice("members", nil, "Member firm ids (default: saved pool)")
		c.Flags().StringArray("amount", nil, "Override a line total as FIRM=AMOUNT (repeatable)")
		c.Flags().StringArray("count", nil, "Override a line headcount as FIRM=COUNT (repeatable)")
	}
	poolCommitCmd.Flags().Bool("save-default", false, "Save the member list as the root's pool")
}

func runPool(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, "pool")
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()
	flags := cmd.Flags()

	var members []string
	if flags.Changed("members") {
		members, _ = flags.GetStringSlice("members")
		if members == nil {
			members = []string{}
		}
	}

	session, err := a.svc.OpenPool(ctx, args[0], members)
	if err != nil {
		return handleError(err, a.log)
	}

	counts, _ := flags.GetStringArray("count")
	for _, raw := range counts {
		id, v, err := splitOverride(raw)
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid headcount in %q", raw)
		}
		if err := session.SetEmployeeCount(ctx, id, n); err != nil {
			return handleError(err, a.log)
		}
	}

	amounts, _ := flags.GetStringArray("amount")
	for _, raw := range amounts {
		id, v, err := splitOverride(raw)
		if err != nil {
			return err
		}
		amount, err := money.Parse(v)
		if err != nil {
			return fmt.Errorf("invalid amount in %q: %w", raw, err)
		}
		if err := session.SetAmount(id, amount); err != nil {
			return handleError(err, a.log)
		}
	}

	out := cmd.OutOrStdout()
	printPoolSession(out, session)

	if cmd.Name() != "commit" {
		return nil
	}

	if save, _ := flags.GetBool("save-default"); save {
		if err := session.SaveAsDefault(ctx); err != nil {
			return handleError(err, a.log)
		}
		fmt.Fprintln(out, "Üye listesi varsayılan havuz olarak kaydedildi.")
	}

	txn, err := session.Commit(ctx)
	if err != nil {
		if notice(cmd, err) {
			return nil
		}
		return handleError(err, a.log)
	}
	fmt.Fprintf(out, "Havuz taslağı oluşturuldu: %s  %s\n", txn.ID, money.Format(txn.Debt))
	return nil
}

func splitOverride(raw string) (string, string, error) {
	id, v, ok := strings.Cut(raw, "=")
	if !ok || id == "" {
		return "", "", fmt.Errorf("invalid override %q, expected FIRM=VALUE", raw)
	}
	return strings.TrimSpace(id), strings.TrimSpace(v), nil
}

func printPoolSession(out io.Writer, ps *invoice.PoolSession) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FİRMA\tÇALIŞAN\tKAYNAK\tUZMAN\tHEKİM\tSAĞLIK\tTOPLAM")
	for _, l := range ps.Lines {
		source := "hesaplandı"
		if l.HasDraft {
			source = "taslak " + l.DraftID
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			l.Firm.Name, l.EmployeeCount, source,
			money.FormatPlain(l.Shares.Expert), money.FormatPlain(l.Shares.Doctor),
			money.FormatPlain(l.Shares.Health), money.FormatPlain(l.Total()))
	}
	total := ps.Total()
	fmt.Fprintf(w, "TOPLAM\t\t\t%s\t%s\t%s\t%s\n",
		money.FormatPlain(total.Expert), money.FormatPlain(total.Doctor),
		money.FormatPlain(total.Health), money.FormatPlain(total.GrandTotal))
	w.Flush()
	if ps.Replaces != "" {
		fmt.Fprintf(out, "Önceki havuz taslağı %s yeniden hesaplandı, commit ile silinecek.\n", ps.Replaces)
	}
}
