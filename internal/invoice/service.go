// Package invoice drives the draft invoice lifecycle: computing firm and pool
// totals, staging PENDING drafts, approving and deleting them, and recording
// manual ledger entries.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"osgb/internal/logger"
	"osgb/internal/money"
	"osgb/internal/pricing"
	"osgb/pkg/models"
	"osgb/pkg/services"
)

// Options configures the invoicing service.
type Options struct {
	Pricing pricing.Options

	// RetireSubsumed deletes pool members' own pending drafts during bulk
	// invoicing. When false they are left in place and reported.
	RetireSubsumed bool
}

// Service implements invoicing on top of a RecordStore.
type Service struct {
	store services.RecordStore
	opts  Options
	log   zerolog.Logger
	now   func() time.Time
}

// NewService creates an invoicing service.
func NewService(store services.RecordStore, opts Options) *Service {
	if opts.Pricing.TierFallback == "" {
		opts.Pricing.TierFallback = pricing.FallbackBaseFee
	}
	return &Service{
		store: store,
		opts:  opts,
		log:   logger.WithComponent("invoice"),
		now:   time.Now,
	}
}

// DraftRequest describes a PENDING invoice to be created.
type DraftRequest struct {
	FirmID        string
	Date          time.Time
	Total         decimal.Decimal
	Details       models.CalculatedDetails
	Description   string
	InvoiceType   models.InvoiceType
	PoolMemberIDs []string
}

// CreateDraft stores a PENDING invoice whose debt is the total rounded to
// kuruş. The check runs on the rounded amount: a total of zero or less, and
// also a positive total under half a kuruş (it rounds to 0,00), creates
// nothing and returns ErrNonPositiveTotal.
func (s *Service) CreateDraft(ctx context.Context, req DraftRequest) (*models.Transaction, error) {
	const op = "CreateDraft"

	if req.FirmID == "" {
		return nil, WrapInvoiceError(op, "", ErrNoFirmSelected)
	}
	debt := money.Round2(req.Total)
	if !debt.IsPositive() {
		return nil, WrapInvoiceError(op, req.FirmID, ErrNonPositiveTotal)
	}

	date := req.Date
	if date.IsZero() {
		date = s.now()
	}
	details := req.Details

	txn, err := s.store.CreateTransaction(ctx, models.Transaction{
		FirmID:            req.FirmID,
		Date:              date,
		Type:              models.TransactionInvoice,
		Debt:              debt,
		Credit:            decimal.Zero,
		Status:            models.StatusPending,
		InvoiceType:       req.InvoiceType,
		Description:       req.Description,
		CalculatedDetails: &details,
		PoolMemberIDs:     req.PoolMemberIDs,
	})
	if err != nil {
		return nil, WrapInvoiceError(op, req.FirmID, err)
	}

	s.log.Info().
		Str("firm_id", txn.FirmID).
		Str("transaction_id", txn.ID).
		Str("debt", txn.Debt.StringFixed(2)).
		Int("pool_members", len(req.PoolMemberIDs)).
		Msg("Draft invoice created")
	return txn, nil
}

// Compute returns a firm's current total from its stored preparation item.
func (s *Service) Compute(ctx context.Context, firmID string) (*models.Firm, pricing.FirmTotal, error) {
	const op = "Compute"

	firm, err := s.firm(ctx, op, firmID)
	if err != nil {
		return nil, pricing.FirmTotal{}, err
	}
	item, err := s.store.GetPreparationItem(ctx, firmID)
	if err != nil {
		return nil, pricing.FirmTotal{}, WrapInvoiceError(op, firmID, err)
	}
	settings, err := s.store.GetGlobalSettings(ctx)
	if err != nil {
		return nil, pricing.FirmTotal{}, WrapInvoiceError(op, firmID, err)
	}
	return firm, pricing.ComputeFirmTotal(firm, item, settings, s.opts.Pricing), nil
}

// InvoiceFirm emits a standalone draft for one firm, ignoring pool
// membership, and clears the firm's yearly-fee flag once consumed.
func (s *Service) InvoiceFirm(ctx context.Context, firmID string) (*models.Transaction, error) {
	const op = "InvoiceFirm"

	firm, total, err := s.Compute(ctx, firmID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	txn, err := s.CreateDraft(ctx, DraftRequest{
		FirmID:      firm.ID,
		Date:        now,
		Total:       total.GrandTotal,
		Details:     total.Details(),
		Description: pricing.Describe(firm, nil, now),
		InvoiceType: firm.DefaultInvoiceType,
	})
	if err != nil {
		return nil, err
	}

	if total.YearlyFeeApplied {
		if err := s.resetYearlyFee(ctx, firm.ID); err != nil {
			return txn, WrapInvoiceError(op, firm.ID, err)
		}
	}
	return txn, nil
}

// SkippedFirm is a root whose merged total was not positive.
type SkippedFirm struct {
	FirmID string
	Name   string
	Total  decimal.Decimal
}

// BulkResult summarises an invoice-all run.
type BulkResult struct {
	Created []models.Transaction
	Skipped []SkippedFirm

	// Subsumed lists member drafts covered by a merged invoice; Retired is the
	// subset that was deleted.
	Subsumed []string
	Retired  []string
}

// InvoiceAll emits one draft per pool root or standalone firm. Pool members
// are only invoiced through their root. Roots with a non-positive merged
// total are skipped. Yearly-fee flags are cleared on every invoiced firm and
// member that used them.
func (s *Service) InvoiceAll(ctx context.Context) (*BulkResult, error) {
	const op = "InvoiceAll"

	in, err := s.poolInput(ctx)
	if err != nil {
		return nil, WrapInvoiceError(op, "", err)
	}
	pools := pricing.ResolvePools(in, s.opts.Pricing)

	result := &BulkResult{}
	for i := range pools {
		p := &pools[i]
		if !money.Round2(p.Merged.GrandTotal).IsPositive() {
			result.Skipped = append(result.Skipped, SkippedFirm{FirmID: p.Root.ID, Name: p.Root.Name, Total: p.Merged.GrandTotal})
			s.log.Info().
				Str("firm_id", p.Root.ID).
				Str("total", p.Merged.GrandTotal.StringFixed(2)).
				Msg("Skipping firm with non-positive total")
			continue
		}

		if len(p.SubsumedDraftIDs) > 0 {
			result.Subsumed = append(result.Subsumed, p.SubsumedDraftIDs...)
			if s.opts.RetireSubsumed {
				if err := s.store.DeleteTransactions(ctx, p.SubsumedDraftIDs...); err != nil {
					return result, WrapInvoiceError(op, p.Root.ID, err)
				}
				result.Retired = append(result.Retired, p.SubsumedDraftIDs...)
			} else {
				s.log.Warn().
					Str("firm_id", p.Root.ID).
					Strs("draft_ids", p.SubsumedDraftIDs).
					Msg("Pool members still have their own pending drafts")
			}
		}

		txn, err := s.CreateDraft(ctx, DraftRequest{
			FirmID:        p.Root.ID,
			Date:          in.Period,
			Total:         p.Merged.GrandTotal,
			Details:       p.Details(),
			Description:   p.Description,
			InvoiceType:   p.Root.DefaultInvoiceType,
			PoolMemberIDs: memberIDs(p.Members),
		})
		if err != nil {
			return result, err
		}
		result.Created = append(result.Created, *txn)

		for _, id := range p.YearlyFeeFirmIDs {
			if err := s.resetYearlyFee(ctx, id); err != nil {
				return result, WrapInvoiceError(op, id, err)
			}
		}
	}

	s.log.Info().
		Int("created", len(result.Created)).
		Int("skipped", len(result.Skipped)).
		Int("subsumed", len(result.Subsumed)).
		Int("retired", len(result.Retired)).
		Msg("Bulk invoicing completed")
	return result, nil
}

// Preview resolves pools without writing anything.
func (s *Service) Preview(ctx context.Context) ([]pricing.PoolInvoice, error) {
	in, err := s.poolInput(ctx)
	if err != nil {
		return nil, WrapInvoiceError("Preview", "", err)
	}
	return pricing.ResolvePools(in, s.opts.Pricing), nil
}

func (s *Service) poolInput(ctx context.Context) (pricing.PoolInput, error) {
	firms, err := s.store.ListFirms(ctx)
	if err != nil {
		return pricing.PoolInput{}, err
	}
	settings, err := s.store.GetGlobalSettings(ctx)
	if err != nil {
		return pricing.PoolInput{}, err
	}
	txns, err := s.store.ListTransactions(ctx)
	if err != nil {
		return pricing.PoolInput{}, err
	}

	items := make(map[string]models.PreparationItem, len(firms))
	for _, f := range firms {
		item, err := s.store.GetPreparationItem(ctx, f.ID)
		if err != nil {
			return pricing.PoolInput{}, err
		}
		items[f.ID] = item
	}

	var pending []models.Transaction
	for _, t := range txns {
		if t.IsPendingInvoice() {
			pending = append(pending, t)
		}
	}

	return pricing.PoolInput{
		Firms:    firms,
		Items:    items,
		Settings: settings,
		Pending:  pending,
		Period:   s.now(),
	}, nil
}

func (s *Service) resetYearlyFee(ctx context.Context, firmID string) error {
	item, err := s.store.GetPreparationItem(ctx, firmID)
	if err != nil {
		return err
	}
	if !item.AddYearlyFee {
		return nil
	}
	item.AddYearlyFee = false
	if err := s.store.SavePreparationItem(ctx, item); err != nil {
		return err
	}
	s.log.Debug().Str("firm_id", firmID).Msg("Yearly fee flag reset")
	return nil
}

func (s *Service) firm(ctx context.Context, op, firmID string) (*models.Firm, error) {
	if firmID == "" {
		return nil, WrapInvoiceError(op, "", ErrNoFirmSelected)
	}
	firm, err := s.store.GetFirm(ctx, firmID)
	if errors.Is(err, services.ErrNotFound) {
		return nil, WrapInvoiceError(op, firmID, ErrFirmNotFound)
	}
	if err != nil {
		return nil, WrapInvoiceError(op, firmID, err)
	}
	return firm, nil
}

func memberIDs(members []models.Firm) []string {
	if len(members) == 0 {
		return nil
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	return ids
}

func (s *Service) transaction(ctx context.Context, op, id string) (*models.Transaction, error) {
	txn, err := s.store.GetTransaction(ctx, id)
	if errors.Is(err, services.ErrNotFound) {
		return nil, WrapInvoiceError(op, "", fmt.Errorf("%w: %s", ErrTransactionNotFound, id))
	}
	if err != nil {
		return nil, WrapInvoiceError(op, "", err)
	}
	return txn, nil
}
