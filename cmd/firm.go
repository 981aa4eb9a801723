package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"osgb/internal/money"
	"osgb/pkg/models"
)

var firmCmd = &cobra.Command{
	Use:   "firm",
	Short: "Manage client firms and their pricing",
}

var firmAddCmd = &cobra.Command{
	Use:     "add",
	Aliases: []string{"set"},
	Short:   "Create a firm or update the given fields of an existing one",
	Long: `Create a firm, or update an existing firm when --id names one. Only the
flags passed on the command line are changed on an existing firm.

Tiers are written as MIN-MAX:PRICE and may be repeated. A full firm record can
also be loaded from JSON with --file.`,
	Example: `  # Standard pricing: 1500 TL up to 10 people, 100 TL per extra person
  osgb firm add --name "Acar Tekstil" --base-limit 10 --base-fee 1500 --extra-fee 100

  # Tiered pricing
  osgb firm add --name "Birlik Gıda" --model TIERED --tier 1-10:1000 --tier 11-20:1800 --extra-fee 90

  # Change only the tax number of an existing firm
  osgb firm set --id 7f3c... --tax-number 1234567890`,
	RunE: runFirmAdd,
}

var firmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List firms with their pool relations",
	RunE:  runFirmList,
}

var firmShowCmd = &cobra.Command{
	Use:   "show <firm-id>",
	Short: "Show a firm record and its current computed fee",
	Args:  cobra.ExactArgs(1),
	RunE:  runFirmShow,
}

var firmDeleteCmd = &cobra.Command{
	Use:   "delete <firm-id>...",
	Short: "Delete firms; their transactions are kept",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFirmDelete,
}

var firmPoolConfigCmd = &cobra.Command{
	Use:   "pool-config <root-id> [member-id...]",
	Short: "Save the default pool members of a root firm",
	Long:  `Save the member firms folded into the root's pool invoice. Pass no members to clear the pool.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFirmPoolConfig,
}

func init() {
	rootCmd.AddCommand(firmCmd)
	firmCmd.AddCommand(firmAddCmd, firmListCmd, firmShowCmd, firmDeleteCmd, firmPoolConfigCmd)

	f := firmAddCmd.Flags()
	f.String("file", "", "Load the firm record from a JSON file")
	f.String("id", "", "Firm id (generated when empty)")
	f.String("name", "", "Firm name")
	f.String("parent", "", "Parent firm id for branches")
	f.String("service-type", "", "BOTH, EXPERT_ONLY or DOCTOR_ONLY")
	f.Bool("kdv-excluded", false, "Prices are configured net of VAT")
	f.String("invoice-type", "", "E_FATURA or E_ARSIV")
	f.Int("employees", 0, "Default employee count")
	f.String("yearly-fee", "", "Yearly fee that replaces the service base when added")
	f.String("tax-number", "", "Tax number")
	f.String("tax-office", "", "Tax office")
	f.String("address", "", "Address")
	addPricingFlags(f, "")
	addPricingFlags(f, "secondary-")
	f.Bool("secondary", false, "Enable the secondary pricing model")
}

func addPricingFlags(f *pflag.FlagSet, prefix string) {
	f.String(prefix+"model", "", "STANDARD, TOLERANCE or TIERED")
	f.Int(prefix+"base-limit", 0, "Headcount covered by the base fee")
	f.String(prefix+"base-fee", "", "Base fee")
	f.String(prefix+"extra-fee", "", "Fee per person above the limit")
	f.StringArray(prefix+"tier", nil, "Tier as MIN-MAX:PRICE (repeatable)")
	if prefix == "" {
		f.String("tolerance", "", "Tolerance percentage (TOLERANCE model)")
	}
}

func runFirmAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, "firm")
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()
	flags := cmd.Flags()

	var firm models.Firm
	if path, _ := flags.GetString("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read firm file: %w", err)
		}
		if err := json.Unmarshal(data, &firm); err != nil {
			return fmt.Errorf("failed to parse firm file: %w", err)
		}
	}

	id, _ := flags.GetString("id")
	if id == "" {
		id = firm.ID
	}
	if id != "" {
		if existing, err := a.store.GetFirm(ctx, id); err == nil && firm.Name == "" {
			firm = *existing
		}
	} else {
		id = uuid.NewString()
	}
	firm.ID = id

	if err := applyFirmFlags(flags, &firm); err != nil {
		return err
	}

	pool := firm.SavedPoolConfig
	firm.SavedPoolConfig = nil
	if err := a.store.SaveFirm(ctx, &firm); err != nil {
		return handleError(err, a.log)
	}
	if len(pool) > 0 {
		if err := a.svc.SavePoolConfig(ctx, firm.ID, pool); err != nil {
			return handleError(err, a.log)
		}
	}

	a.log.Info().Str("firm_id", firm.ID).Str("name", firm.Name).Msg("Firm saved")
	fmt.Fprintf(cmd.OutOrStdout(), "Firma kaydedildi: %s (%s)\n", firm.Name, firm.ID)
	return nil
}

func applyFirmFlags(flags *pflag.FlagSet, firm *models.Firm) error {
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	str("name", &firm.Name)
	str("parent", &firm.ParentFirmID)
	str("tax-number", &firm.TaxNumber)
	str("tax-office", &firm.TaxOffice)
	str("address", &firm.Address)

	if flags.Changed("service-type") {
		v, _ := flags.GetString("service-type")
		firm.ServiceType = models.ServiceType(strings.ToUpper(v))
	}
	if flags.Changed("invoice-type") {
		v, _ := flags.GetString("invoice-type")
		firm.DefaultInvoiceType = models.InvoiceType(strings.ToUpper(v))
	}
	if flags.Changed("kdv-excluded") {
		firm.IsKdvExcluded, _ = flags.GetBool("kdv-excluded")
	}
	if flags.Changed("employees") {
		firm.DefaultEmployeeCount, _ = flags.GetInt("employees")
	}
	if flags.Changed("yearly-fee") {
		v, _ := flags.GetString("yearly-fee")
		fee, err := money.Parse(v)
		if err != nil {
			return fmt.Errorf("invalid --yearly-fee: %w", err)
		}
		firm.YearlyFee = fee
	}
	if flags.Changed("secondary") {
		firm.HasSecondaryModel, _ = flags.GetBool("secondary")
	}

	if err := applyPricingFlags(flags, "", &firm.Pricing); err != nil {
		return err
	}
	return applyPricingFlags(flags, "secondary-", &firm.Secondary)
}

func applyPricingFlags(flags *pflag.FlagSet, prefix string, p *models.PricingConfig) error {
	if flags.Changed(prefix + "model") {
		v, _ := flags.GetString(prefix + "model")
		p.Model = models.PricingModel(strings.ToUpper(v))
	}
	if flags.Changed(prefix + "base-limit") {
		p.BasePersonLimit, _ = flags.GetInt(prefix + "base-limit")
	}

	amounts := []struct {
		flag string
		dst  *decimal.Decimal
	}{
		{prefix + "base-fee", &p.BaseFee},
		{prefix + "extra-fee", &p.ExtraPersonFee},
	}
	if prefix == "" {
		amounts = append(amounts, struct {
			flag string
			dst  *decimal.Decimal
		}{"tolerance", &p.TolerancePercentage})
	}
	for _, af := range amounts {
		if !flags.Changed(af.flag) {
			continue
		}
		v, _ := flags.GetString(af.flag)
		d, err := money.Parse(v)
		if err != nil {
			return fmt.Errorf("invalid --%s: %w", af.flag, err)
		}
		*af.dst = d
	}

	if flags.Changed(prefix + "tier") {
		parts, _ := flags.GetStringArray(prefix + "tier")
		tiers, err := parseTiers(parts)
		if err != nil {
			return err
		}
		p.Tiers = tiers
		if p.Model == "" {
			p.Model = models.PricingTiered
		}
	}
	return nil
}

// parseTiers reads MIN-MAX:PRICE parts.
func parseTiers(parts []string) ([]models.Tier, error) {
	tiers := make([]models.Tier, 0, len(parts))
	for _, part := range parts {
		rng, price, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid tier %q, expected MIN-MAX:PRICE", part)
		}
		lo, hi, ok := strings.Cut(rng, "-")
		if !ok {
			return nil, fmt.Errorf("invalid tier range %q, expected MIN-MAX", rng)
		}
		min, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid tier minimum in %q: %w", part, err)
		}
		max, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("invalid tier maximum in %q: %w", part, err)
		}
		p, err := money.Parse(price)
		if err != nil {
			return nil, fmt.Errorf("invalid tier price in %q: %w", part, err)
		}
		tiers = append(tiers, models.Tier{Min: min, Max: max, Price: p})
	}
	return tiers, nil
}

func runFirmList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, "firm")
	if err != nil {
		return err
	}
	defer a.Close()

	idx, firms, err := a.firmIndex(cmd.Context())
	if err != nil {
		return handleError(err, a.log)
	}
	if len(firms) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Kayıtlı firma yok.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFİRMA\tMODEL\tHİZMET\tKDV HARİÇ\tHAVUZ")
	for _, f := range firms {
		model := string(f.Pricing.Model)
		if model == "" {
			model = string(models.PricingStandard)
		}
		if f.HasSecondaryModel {
			model += "+" + string(f.Secondary.Model)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n",
			f.ID, f.Name, model, f.EffectiveServiceType(), f.IsKdvExcluded, poolLabel(idx, &f))
	}
	return w.Flush()
}

func poolLabel(idx map[string]*models.Firm, f *models.Firm) string {
	switch {
	case f.IsPoolRoot():
		names := make([]string, 0, len(f.SavedPoolConfig))
		for _, id := range f.SavedPoolConfig {
			names = append(names, firmName(idx, id))
		}
		return "kök: " + strings.Join(names, ", ")
	case f.ParentFirmID != "":
		return "şube: " + firmName(idx, f.ParentFirmID)
	default:
		return "-"
	}
}

func runFirmShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, "firm")
	if err != nil {
		return err
	}
	defer a.Close()

	firm, total, err := a.svc.Compute(cmd.Context(), args[0])
	if err != nil {
		return handleError(err, a.log)
	}

	data, err := json.MarshalIndent(firm, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, string(data))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Çalışan sayısı: %d\n", total.EmployeeCount)
	fmt.Fprintf(out, "Hizmet bazı:    %s\n", money.Format(total.ServiceBase))
	fmt.Fprintf(out, "Uzman payı:     %s\n", money.Format(total.Expert))
	fmt.Fprintf(out, "Hekim payı:     %s\n", money.Format(total.Doctor))
	fmt.Fprintf(out, "Sağlık payı:    %s\n", money.Format(total.Health))
	fmt.Fprintf(out, "Genel toplam:   %s\n", money.Format(total.GrandTotal))
	return nil
}

func runFirmDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, "firm")
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.DeleteFirms(cmd.Context(), args...); err != nil {
		return handleError(err, a.log)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d firma silindi. Cari hareketleri korunur.\n", len(args))
	return nil
}

func runFirmPoolConfig(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, "firm")
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.svc.SavePoolConfig(cmd.Context(), args[0], args[1:]); err != nil {
		return handleError(err, a.log)
	}
	if len(args) == 1 {
		fmt.Fprintln(cmd.OutOrStdout(), "Havuz yapılandırması temizlendi.")
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Havuz yapılandırması kaydedildi: %d üye.\n", len(args)-1)
	}
	return nil
}
