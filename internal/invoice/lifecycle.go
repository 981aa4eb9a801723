package invoice

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"osgb/pkg/models"
)

// PendingDrafts returns all PENDING transactions in ledger order.
func (s *Service) PendingDrafts(ctx context.Context) ([]models.Transaction, error) {
	txns, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, WrapInvoiceError("PendingDrafts", "", err)
	}
	var out []models.Transaction
	for _, t := range txns {
		if t.IsPending() {
			out = append(out, t)
		}
	}
	return out, nil
}

// Approve moves drafts to APPROVED. Already-approved ids are left as they
// are. It returns the number of transactions that changed state.
func (s *Service) Approve(ctx context.Context, ids ...string) (int, error) {
	const op = "Approve"

	approved := 0
	for _, id := range ids {
		txn, err := s.transaction(ctx, op, id)
		if err != nil {
			return approved, err
		}
		if txn.IsApproved() {
			continue
		}
		if err := s.store.SetTransactionStatus(ctx, id, models.StatusApproved); err != nil {
			return approved, WrapInvoiceError(op, txn.FirmID, err)
		}
		approved++
		s.log.Info().
			Str("transaction_id", id).
			Str("firm_id", txn.FirmID).
			Str("debt", txn.Debt.StringFixed(2)).
			Msg("Transaction approved")
	}
	return approved, nil
}

// ApproveAllPending approves every PENDING transaction.
func (s *Service) ApproveAllPending(ctx context.Context) (int, error) {
	drafts, err := s.PendingDrafts(ctx)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(drafts))
	for _, d := range drafts {
		ids = append(ids, d.ID)
	}
	return s.Approve(ctx, ids...)
}

// Delete removes transactions in any status. Removing an approved
// transaction changes historical balances and is logged as a correction.
func (s *Service) Delete(ctx context.Context, ids ...string) error {
	const op = "Delete"

	for _, id := range ids {
		txn, err := s.transaction(ctx, op, id)
		if err != nil {
			return err
		}
		if txn.IsApproved() {
			s.log.Warn().
				Str("transaction_id", id).
				Str("firm_id", txn.FirmID).
				Str("debt", txn.Debt.StringFixed(2)).
				Str("credit", txn.Credit.StringFixed(2)).
				Msg("Deleting approved transaction as a ledger correction")
		}
	}
	if err := s.store.DeleteTransactions(ctx, ids...); err != nil {
		return WrapInvoiceError(op, "", err)
	}
	return nil
}

// DeletePending removes drafts only. If any id is not a PENDING transaction
// nothing is deleted and ErrNotPending is returned.
func (s *Service) DeletePending(ctx context.Context, ids ...string) error {
	const op = "DeletePending"

	for _, id := range ids {
		txn, err := s.transaction(ctx, op, id)
		if err != nil {
			return err
		}
		if !txn.IsPending() {
			return WrapInvoiceError(op, txn.FirmID, ErrNotPending)
		}
	}
	if err := s.store.DeleteTransactions(ctx, ids...); err != nil {
		return WrapInvoiceError(op, "", err)
	}
	s.log.Info().Int("count", len(ids)).Msg("Pending drafts deleted")
	return nil
}

// LedgerEntry is a manual payment or debt line.
type LedgerEntry struct {
	FirmID      string
	Amount      decimal.Decimal
	Date        time.Time
	Description string
}

// RecordPayment stores an APPROVED payment received from a firm.
func (s *Service) RecordPayment(ctx context.Context, e LedgerEntry) (*models.Transaction, error) {
	return s.recordEntry(ctx, "RecordPayment", e, models.TransactionPayment)
}

// RecordDebt stores an APPROVED manual debt, such as an opening balance.
func (s *Service) RecordDebt(ctx context.Context, e LedgerEntry) (*models.Transaction, error) {
	return s.recordEntry(ctx, "RecordDebt", e, models.TransactionInvoice)
}

func (s *Service) recordEntry(ctx context.Context, op string, e LedgerEntry, typ models.TransactionType) (*models.Transaction, error) {
	if _, err := s.firm(ctx, op, e.FirmID); err != nil {
		return nil, err
	}
	amount := e.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, WrapInvoiceError(op, e.FirmID, ErrInvalidAmount)
	}

	txn := models.Transaction{
		FirmID:      e.FirmID,
		Date:        e.Date,
		Type:        typ,
		Status:      models.StatusApproved,
		Description: e.Description,
	}
	if typ == models.TransactionPayment {
		txn.Credit = amount
		if txn.Description == "" {
			txn.Description = "Tahsilat"
		}
	} else {
		txn.Debt = amount
		if txn.Description == "" {
			txn.Description = "Borç kaydı"
		}
	}

	created, err := s.store.CreateTransaction(ctx, txn)
	if err != nil {
		return nil, WrapInvoiceError(op, e.FirmID, err)
	}
	return created, nil
}
