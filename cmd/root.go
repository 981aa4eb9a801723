package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"osgb/internal/config"
	"osgb/internal/invoice"
	"osgb/internal/logger"
	"osgb/internal/store"
	"osgb/pkg/models"
	"osgb/pkg/services"
)

var version = "1.0.0"

var (
	appConfig    *config.Config
	appConfigErr error
)

var rootCmd = &cobra.Command{
	Use:   "osgb",
	Short: "Invoicing and receivables tracker for occupational health service firms",
	Long: `osgb keeps the client firms of an occupational health and safety provider,
computes monthly service fees from each firm's pricing rules, stages draft
invoices for approval and tracks debts and payments per firm.

Pool billing merges a root firm and its branches into one invoice.

Configuration is read from the environment (or a .env file):
  OSGB_DB_DRIVER / OSGB_DB_DSN       - record store (sqlite or postgres)
  OSGB_MIRROR_FILE / OSGB_MIRROR_URL - snapshot mirrors written after each change
  OSGB_TIER_FALLBACK                 - base_fee, lowest_tier or extrapolate
  OSGB_POOL_IMPLICIT_BRANCHES        - also pool parent-firm branches of roots without a
                                       saved pool (default false: only saved pools merge)
  OSGB_RETIRE_SUBSUMED_DRAFTS        - delete members' own drafts in bulk runs
  GOOGLE_SHEET_URL                   - spreadsheet for export and reconciliation`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI with the configuration loaded by main. A configuration
// error is only reported when a command needs the record store.
func Execute(cfg *config.Config, cfgErr error) {
	appConfig, appConfigErr = cfg, cfgErr
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Debug().Err(err).Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("dsn", "", "Override OSGB_DB_DSN")
}

// app bundles what a command needs to touch the records.
type app struct {
	cfg   *config.Config
	store *store.Store
	svc   *invoice.Service
	log   zerolog.Logger
}

func openApp(cmd *cobra.Command, component string) (*app, error) {
	log := logger.WithComponent(component)

	if appConfigErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", appConfigErr)
	}
	cfg := appConfig
	if cfg == nil {
		var err error
		if cfg, err = config.Load(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}

	dsn := cfg.DBDSN
	if override, _ := cmd.Flags().GetString("dsn"); override != "" {
		dsn = override
	}

	var mirrors []services.Mirror
	if cfg.MirrorFile != "" {
		mirrors = append(mirrors, store.NewFileMirror(cfg.MirrorFile))
	}
	if cfg.MirrorURL != "" {
		mirrors = append(mirrors, store.NewHTTPMirror(cfg.MirrorURL, cfg.MirrorToken))
	}

	st, err := store.Open(cmd.Context(), cfg.DBDriver, dsn, cfg.DBDebug, mirrors...)
	if err != nil {
		if errors.Is(err, store.ErrUnsupportedDriver) {
			return nil, fmt.Errorf("unsupported OSGB_DB_DRIVER %q, use sqlite or postgres", cfg.DBDriver)
		}
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	log.Debug().
		Str("driver", cfg.DBDriver).
		Int("mirrors", len(mirrors)).
		Msg("Record store opened")

	return &app{
		cfg:   cfg,
		store: st,
		svc: invoice.NewService(st, invoice.Options{
			Pricing:        cfg.PricingOptions(),
			RetireSubsumed: cfg.RetireSubsumed,
		}),
		log: log,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to close record store")
	}
}

// firmIndex maps firm ids to records for display lookups.
func (a *app) firmIndex(ctx context.Context) (map[string]*models.Firm, []models.Firm, error) {
	firms, err := a.store.ListFirms(ctx)
	if err != nil {
		return nil, nil, err
	}
	idx := make(map[string]*models.Firm, len(firms))
	for i := range firms {
		idx[firms[i].ID] = &firms[i]
	}
	return idx, firms, nil
}

func firmName(idx map[string]*models.Firm, id string) string {
	if f, ok := idx[id]; ok {
		return f.Name
	}
	return id + " (silinmiş)"
}

// newCommandContext cancels on interrupt so long store or Sheets calls stop.
// The command logger travels with the context.
func newCommandContext(parent context.Context, log zerolog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(log.WithContext(parent))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// handleError turns domain errors into operator-facing messages.
func handleError(err error, log zerolog.Logger) error {
	if err == nil {
		return nil
	}
	log.Debug().Err(err).Msg("Command failed")

	var verrs models.ValidationErrors
	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("operation was canceled")
	case errors.As(err, &verrs):
		return fmt.Errorf("invalid record: %v", verrs)
	case errors.Is(err, invoice.ErrNoFirmSelected):
		return fmt.Errorf("no firm selected, pass a firm id or use --all")
	case errors.Is(err, invoice.ErrFirmNotFound):
		return fmt.Errorf("firm not found: %w", err)
	case errors.Is(err, invoice.ErrTransactionNotFound):
		return fmt.Errorf("transaction not found: %w", err)
	case errors.Is(err, invoice.ErrNotPending):
		return fmt.Errorf("only pending drafts can be removed this way, use --force to delete approved entries")
	case errors.Is(err, invoice.ErrSelfPoolMember):
		return fmt.Errorf("a firm cannot be a member of its own pool")
	case errors.Is(err, invoice.ErrNestedPool), errors.Is(err, invoice.ErrPoolMemberTaken):
		return fmt.Errorf("pool configuration rejected: %w", errors.Unwrap(err))
	case errors.Is(err, invoice.ErrInvalidAmount):
		return fmt.Errorf("amount must be greater than zero")
	case errors.Is(err, invoice.ErrNotPoolLine):
		return fmt.Errorf("firm is not part of this pool: %w", err)
	case errors.Is(err, store.ErrStatusReversal):
		return fmt.Errorf("approved transactions cannot return to pending")
	default:
		return err
	}
}

// notice reports a non-positive total, which is not a failure.
func notice(cmd *cobra.Command, err error) bool {
	if errors.Is(err, invoice.ErrNonPositiveTotal) {
		fmt.Fprintf(cmd.OutOrStdout(), "Toplam tutar sıfır veya negatif, taslak oluşturulmadı.\n")
		return true
	}
	return false
}
