package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"osgb/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Snapshot and restore the record store",
}

var storeSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Write a JSON snapshot of all records",
	RunE:  runStoreSnapshot,
}

var storeRestoreCmd = &cobra.Command{
	Use:   "restore <snapshot.json>",
	Short: "Replace all records with the contents of a snapshot",
	Long: `Replace every record in the store with the snapshot's contents. Transactions
without a status are restored as APPROVED.`,
	Args: cobra.ExactArgs(1),
	RunE: runStoreRestore,
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeSnapshotCmd, storeRestoreCmd)

	storeSnapshotCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	storeRestoreCmd.Flags().Bool("yes", false, "Confirm replacing the current records")
}

func runStoreSnapshot(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, "store")
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.store.Export(cmd.Context())
	if err != nil {
		return handleError(err, a.log)
	}
	data, err := snap.Marshal()
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		_, err = cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	a.log.Info().
		Str("output_file", outputPath).
		Int("bytes", len(data)).
		Msg("Snapshot written to file")
	return nil
}

func runStoreRestore(cmd *cobra.Command, args []string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return fmt.Errorf("restore replaces every record, pass --yes to confirm")
	}

	snap, err := store.ReadSnapshotFile(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(cmd, "store")
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.Restore(cmd.Context(), snap); err != nil {
		return handleError(err, a.log)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Geri yüklendi: %d firma, %d hareket.\n", len(snap.Firms), len(snap.Transactions))
	return nil
}
