package invoice

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"osgb/internal/logger"
	"osgb/internal/money"
	"osgb/internal/pricing"
	"osgb/pkg/models"
	"osgb/pkg/services"
)

// PoolLine is one firm's contribution to an interactively built pool invoice.
type PoolLine struct {
	Firm          models.Firm
	EmployeeCount int
	Shares        pricing.Shares

	// HasDraft marks lines whose amount came from the firm's existing PENDING
	// draft. Only those drafts are retired on commit.
	HasDraft bool
	DraftID  string

	yearlyFee bool
}

// Total returns the line's gross amount.
func (l *PoolLine) Total() decimal.Decimal {
	return l.Shares.GrandTotal
}

// Details returns the snapshot contributed by this line.
func (l *PoolLine) Details() models.CalculatedDetails {
	d := models.CalculatedDetails{
		EmployeeCount:   l.EmployeeCount,
		ServiceAmount:   money.Round2(l.Shares.Service()),
		ExtraItemAmount: money.Round2(l.Shares.Health),
		ExpertShare:     money.Round2(l.Shares.Expert),
		DoctorShare:     money.Round2(l.Shares.Doctor),
		HealthShare:     money.Round2(l.Shares.Health),
	}
	if l.yearlyFee {
		d.YearlyFeeAmount = d.ServiceAmount
	}
	return d
}

// PoolSession is an operator-built pool for a single root. The root is
// always the first line.
type PoolSession struct {
	svc      *Service
	settings models.GlobalSettings
	log      zerolog.Logger

	Root  models.Firm
	Lines []*PoolLine

	// Replaces is the root's PENDING merged draft from an earlier commit.
	// Re-opening a pool recomputes every line and the old draft is retired on
	// commit, so members are never folded in twice.
	Replaces string
}

// OpenPool builds a pool session for root with the given members, or with
// the root's saved pool configuration when memberIDs is nil. Each line is
// populated from the firm's latest PENDING draft when one exists, otherwise
// computed from its preparation item. Merged pool drafts are never reused as a
// line amount; a member that roots a pending pool draft is rejected. Unknown,
// duplicate and self ids are dropped.
func (s *Service) OpenPool(ctx context.Context, rootID string, memberIDs []string) (*PoolSession, error) {
	const op = "OpenPool"

	root, err := s.firm(ctx, op, rootID)
	if err != nil {
		return nil, err
	}
	if memberIDs == nil {
		memberIDs = root.SavedPoolConfig
	}
	settings, err := s.store.GetGlobalSettings(ctx)
	if err != nil {
		return nil, WrapInvoiceError(op, rootID, err)
	}
	txns, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, WrapInvoiceError(op, rootID, err)
	}

	latestDraft := make(map[string]*models.Transaction)
	for i := range txns {
		t := &txns[i]
		if t.IsPendingInvoice() {
			latestDraft[t.FirmID] = t // ledger order, so the last one wins
		}
	}

	ps := &PoolSession{
		svc:      s,
		settings: settings,
		log:      logger.WithFirm("pool", rootID),
		Root:     *root,
	}

	seen := map[string]bool{root.ID: true}
	firms := []*models.Firm{root}
	for _, id := range memberIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		f, err := s.store.GetFirm(ctx, id)
		if errors.Is(err, services.ErrNotFound) {
			ps.log.Warn().Str("member_id", id).Msg("Skipping unknown pool member")
			continue
		}
		if err != nil {
			return nil, WrapInvoiceError(op, rootID, err)
		}
		firms = append(firms, f)
	}

	for _, f := range firms {
		line := &PoolLine{Firm: *f}
		draft, ok := latestDraft[f.ID]
		if ok && len(draft.PoolMemberIDs) > 0 {
			if f.ID != root.ID {
				return nil, WrapInvoiceError(op, rootID, fmt.Errorf("%w: %s has a pending pool draft", ErrNestedPool, f.ID))
			}
			ps.Replaces = draft.ID
			ok = false
		}
		if ok {
			line.HasDraft = true
			line.DraftID = draft.ID
			line.Shares = sharesFromDraft(draft, f, settings)
			if draft.CalculatedDetails != nil {
				line.EmployeeCount = draft.CalculatedDetails.EmployeeCount
			}
		} else {
			item, err := s.store.GetPreparationItem(ctx, f.ID)
			if err != nil {
				return nil, WrapInvoiceError(op, f.ID, err)
			}
			total := pricing.ComputeFirmTotal(f, item, settings, s.opts.Pricing)
			line.EmployeeCount = item.CurrentEmployeeCount
			line.Shares = total.Shares
			line.yearlyFee = total.YearlyFeeApplied
		}
		ps.Lines = append(ps.Lines, line)
	}

	ps.log.Debug().Int("lines", len(ps.Lines)).Msg("Pool session opened")
	return ps, nil
}

func sharesFromDraft(t *models.Transaction, f *models.Firm, settings models.GlobalSettings) pricing.Shares {
	d, _ := DetailsFor(t, f, settings)
	return pricing.Shares{
		Expert:     d.ExpertShare,
		Doctor:     d.DoctorShare,
		Health:     d.HealthShare,
		GrandTotal: t.Debt,
	}
}

// Line returns the line for a firm.
func (ps *PoolSession) Line(firmID string) (*PoolLine, error) {
	for _, l := range ps.Lines {
		if l.Firm.ID == firmID {
			return l, nil
		}
	}
	return nil, WrapInvoiceError("Line", firmID, ErrNotPoolLine)
}

// SetAmount overrides a line with a manually typed gross amount. The line no
// longer retires its source draft.
func (ps *PoolSession) SetAmount(firmID string, amount decimal.Decimal) error {
	line, err := ps.Line(firmID)
	if err != nil {
		return err
	}
	if amount.IsNegative() {
		return WrapInvoiceError("SetAmount", firmID, ErrInvalidAmount)
	}

	if cur := line.Shares.GrandTotal; cur.IsPositive() {
		ratio := amount.Div(cur)
		line.Shares = pricing.Shares{
			Expert: line.Shares.Expert.Mul(ratio),
			Doctor: line.Shares.Doctor.Mul(ratio),
			Health: line.Shares.Health.Mul(ratio),
		}
	} else {
		line.Shares = pricing.Split(amount, decimal.Zero, line.Firm.EffectiveServiceType(), false, ps.settings)
	}
	line.Shares.GrandTotal = amount
	line.HasDraft = false
	line.DraftID = ""
	line.yearlyFee = false
	return nil
}

// SetEmployeeCount recomputes a line from a headcount override, keeping the
// firm's stored extra item and yearly-fee choice. The line no longer retires
// its source draft.
func (ps *PoolSession) SetEmployeeCount(ctx context.Context, firmID string, count int) error {
	line, err := ps.Line(firmID)
	if err != nil {
		return err
	}
	if count < 0 {
		return WrapInvoiceError("SetEmployeeCount", firmID, ErrInvalidAmount)
	}
	item, err := ps.svc.store.GetPreparationItem(ctx, firmID)
	if err != nil {
		return WrapInvoiceError("SetEmployeeCount", firmID, err)
	}
	item.CurrentEmployeeCount = count

	total := pricing.ComputeFirmTotal(&line.Firm, item, ps.settings, ps.svc.opts.Pricing)
	line.EmployeeCount = count
	line.Shares = total.Shares
	line.yearlyFee = total.YearlyFeeApplied
	line.HasDraft = false
	line.DraftID = ""
	return nil
}

// Total returns the merged shares of all lines.
func (ps *PoolSession) Total() pricing.Shares {
	var sum pricing.Shares
	for _, l := range ps.Lines {
		sum = sum.Add(l.Shares)
	}
	return sum
}

// Members returns the non-root firms in line order.
func (ps *PoolSession) Members() []models.Firm {
	var out []models.Firm
	for _, l := range ps.Lines[1:] {
		out = append(out, l.Firm)
	}
	return out
}

// Commit computes the merged total, deletes the PENDING drafts of HasDraft
// lines and the replaced merged draft, then inserts the merged draft against
// the root, in that order.
func (ps *PoolSession) Commit(ctx context.Context) (*models.Transaction, error) {
	const op = "CommitPool"
	s := ps.svc

	total := ps.Total()
	if !money.Round2(total.GrandTotal).IsPositive() {
		return nil, WrapInvoiceError(op, ps.Root.ID, ErrNonPositiveTotal)
	}
	var details models.CalculatedDetails
	for _, l := range ps.Lines {
		details = details.Add(l.Details())
	}

	var candidates []string
	if ps.Replaces != "" {
		candidates = append(candidates, ps.Replaces)
	}
	for _, l := range ps.Lines {
		if l.HasDraft {
			candidates = append(candidates, l.DraftID)
		}
	}

	var retire []string
	for _, id := range candidates {
		draft, err := s.store.GetTransaction(ctx, id)
		if errors.Is(err, services.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, WrapInvoiceError(op, ps.Root.ID, err)
		}
		if draft.IsPending() {
			retire = append(retire, draft.ID)
		}
	}
	if err := s.store.DeleteTransactions(ctx, retire...); err != nil {
		return nil, WrapInvoiceError(op, ps.Root.ID, err)
	}

	now := s.now()
	members := ps.Members()
	txn, err := s.CreateDraft(ctx, DraftRequest{
		FirmID:        ps.Root.ID,
		Date:          now,
		Total:         total.GrandTotal,
		Details:       details,
		Description:   pricing.Describe(&ps.Root, members, now),
		InvoiceType:   ps.Root.DefaultInvoiceType,
		PoolMemberIDs: memberIDs(members),
	})
	if err != nil {
		return nil, err
	}

	for _, l := range ps.Lines {
		if l.yearlyFee {
			if err := s.resetYearlyFee(ctx, l.Firm.ID); err != nil {
				return txn, WrapInvoiceError(op, l.Firm.ID, err)
			}
		}
	}

	ps.log.Info().
		Str("transaction_id", txn.ID).
		Strs("retired_drafts", retire).
		Str("debt", txn.Debt.StringFixed(2)).
		Msg("Pool committed")
	return txn, nil
}

// SaveAsDefault stores the session's member list on the root firm.
func (ps *PoolSession) SaveAsDefault(ctx context.Context) error {
	return ps.svc.SavePoolConfig(ctx, ps.Root.ID, memberIDs(ps.Members()))
}

// SavePoolConfig persists a member list onto a root firm as its default pool.
// Pools do not nest or overlap: the root must not be a member elsewhere, a
// member must not belong to another root's pool, and a member must not
// declare a pool of its own. An empty list clears the configuration.
func (s *Service) SavePoolConfig(ctx context.Context, rootID string, memberIDs []string) error {
	const op = "SavePoolConfig"

	root, err := s.firm(ctx, op, rootID)
	if err != nil {
		return err
	}

	if len(memberIDs) > 0 {
		firms, err := s.store.ListFirms(ctx)
		if err != nil {
			return WrapInvoiceError(op, rootID, err)
		}
		owner := make(map[string]string)
		for _, f := range firms {
			if f.ID == rootID {
				continue
			}
			for _, id := range f.SavedPoolConfig {
				owner[id] = f.ID
			}
		}
		if other, ok := owner[rootID]; ok {
			return WrapInvoiceError(op, rootID, fmt.Errorf("%w: member of %s", ErrNestedPool, other))
		}

		for _, id := range memberIDs {
			if id == rootID {
				return WrapInvoiceError(op, rootID, ErrSelfPoolMember)
			}
			member, err := s.firm(ctx, op, id)
			if err != nil {
				return err
			}
			if member.IsPoolRoot() {
				return WrapInvoiceError(op, rootID, fmt.Errorf("%w: %s has its own pool", ErrNestedPool, id))
			}
			if other, ok := owner[id]; ok {
				return WrapInvoiceError(op, rootID, fmt.Errorf("%w: %s belongs to %s", ErrPoolMemberTaken, id, other))
			}
		}
	}

	root.SavedPoolConfig = append([]string(nil), memberIDs...)
	if err := s.store.SaveFirm(ctx, root); err != nil {
		return WrapInvoiceError(op, rootID, err)
	}
	s.log.Info().Str("firm_id", rootID).Strs("members", memberIDs).Msg("Pool configuration saved")
	return nil
}
