package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"osgb/internal/money"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the expert/doctor split and VAT rates",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the global settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:     "set",
	Short:   "Change global settings; only passed flags are updated",
	Example: `  osgb settings set --expert 60 --doctor 40 --vat-health 10`,
	RunE:    runSettingsSet,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)

	f := settingsSetCmd.Flags()
	f.String("expert", "", "Expert share percentage")
	f.String("doctor", "", "Doctor share percentage")
	f.String("vat-expert", "", "VAT rate on the expert share")
	f.String("vat-doctor", "", "VAT rate on the doctor share")
	f.String("vat-health", "", "VAT rate on the health share")
	f.String("bank-info", "", "Bank details printed on statements")
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, "settings")
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.store.GetGlobalSettings(cmd.Context())
	if err != nil {
		return handleError(err, a.log)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Uzman payı:      %%%s\n", s.ExpertPercentage.String())
	fmt.Fprintf(out, "Hekim payı:      %%%s\n", s.DoctorPercentage.String())
	fmt.Fprintf(out, "KDV uzman:       %%%s\n", s.VatRateExpert.String())
	fmt.Fprintf(out, "KDV hekim:       %%%s\n", s.VatRateDoctor.String())
	fmt.Fprintf(out, "KDV sağlık:      %%%s\n", s.VatRateHealth.String())
	if s.BankInfo != "" {
		fmt.Fprintf(out, "Banka bilgileri: %s\n", s.BankInfo)
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, "settings")
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()
	flags := cmd.Flags()

	s, err := a.store.GetGlobalSettings(ctx)
	if err != nil {
		return handleError(err, a.log)
	}

	for name, dst := range map[string]*decimal.Decimal{
		"expert":     &s.ExpertPercentage,
		"doctor":     &s.DoctorPercentage,
		"vat-expert": &s.VatRateExpert,
		"vat-doctor": &s.VatRateDoctor,
		"vat-health": &s.VatRateHealth,
	} {
		if !flags.Changed(name) {
			continue
		}
		v, _ := flags.GetString(name)
		d, err := money.Parse(v)
		if err != nil {
			return fmt.Errorf("invalid --%s: %w", name, err)
		}
		*dst = d
	}
	if flags.Changed("bank-info") {
		s.BankInfo, _ = flags.GetString("bank-info")
	}

	if sum := s.ExpertPercentage.Add(s.DoctorPercentage); !sum.Equal(money.Hundred) {
		a.log.Warn().Str("sum", sum.String()).Msg("Expert and doctor percentages do not add up to 100")
	}

	if err := a.store.SaveGlobalSettings(ctx, s); err != nil {
		return handleError(err, a.log)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Ayarlar kaydedildi.")
	return nil
}
