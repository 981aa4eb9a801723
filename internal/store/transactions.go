package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"osgb/pkg/models"
)

// ListTransactions returns all transactions ordered by date, then creation time.
func (s *Store) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	recs, err := s.list(ctx, CollectionTransactions)
	if err != nil {
		return nil, err
	}
	txns, err := decodeAll[models.Transaction](recs)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.Before(txns[j].Date)
		}
		if !txns[i].CreatedAt.Equal(txns[j].CreatedAt) {
			return txns[i].CreatedAt.Before(txns[j].CreatedAt)
		}
		return txns[i].ID < txns[j].ID
	})
	return txns, nil
}

// GetTransaction returns a transaction by id or ErrNotFound.
func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var t models.Transaction
	if err := s.get(ctx, CollectionTransactions, id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTransaction assigns an id, derives month and year from the date and
// stores the record. A missing status is stored as APPROVED.
func (s *Store) CreateTransaction(ctx context.Context, txn models.Transaction) (*models.Transaction, error) {
	const op = "create"

	if txn.Debt.IsNegative() || txn.Credit.IsNegative() {
		return nil, wrap(op, CollectionTransactions, "", ErrNegativeAmount)
	}

	now := s.now()
	txn.ID = uuid.NewString()
	if txn.Date.IsZero() {
		txn.Date = now
	}
	txn.Month = int(txn.Date.Month())
	txn.Year = txn.Date.Year()
	if txn.Status == "" {
		txn.Status = models.StatusApproved
	}
	txn.CreatedAt = now

	if err := s.put(ctx, CollectionTransactions, txn.ID, &txn); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("transaction_id", txn.ID).
		Str("firm_id", txn.FirmID).
		Str("type", string(txn.Type)).
		Str("status", string(txn.Status)).
		Str("debt", txn.Debt.StringFixed(2)).
		Str("credit", txn.Credit.StringFixed(2)).
		Msg("Transaction created")
	s.afterWrite(ctx)
	return &txn, nil
}

// SetTransactionStatus changes a transaction's status. Approving an approved
// transaction is a no-op; moving an approved transaction back to pending fails.
func (s *Store) SetTransactionStatus(ctx context.Context, id string, status models.TransactionStatus) error {
	const op = "set-status"

	txn, err := s.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if txn.Status == status {
		return nil
	}
	if txn.IsApproved() && status == models.StatusPending {
		return wrap(op, CollectionTransactions, id, ErrStatusReversal)
	}
	if status != models.StatusApproved && status != models.StatusPending {
		return wrap(op, CollectionTransactions, id, fmt.Errorf("unknown status %q", status))
	}

	txn.Status = status
	if err := s.put(ctx, CollectionTransactions, id, txn); err != nil {
		return err
	}
	s.log.Debug().Str("transaction_id", id).Str("status", string(status)).Msg("Transaction status updated")
	s.afterWrite(ctx)
	return nil
}

// DeleteTransactions removes transactions in any status. Unknown ids are ignored.
func (s *Store) DeleteTransactions(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.delete(ctx, CollectionTransactions, ids...); err != nil {
		return err
	}
	s.log.Info().Strs("transaction_ids", ids).Msg("Transactions deleted")
	s.afterWrite(ctx)
	return nil
}

// backfillStatus marks legacy transactions without a status as APPROVED.
// It runs once per database, guarded by a meta record.
func (s *Store) backfillStatus(ctx context.Context) error {
	var done bool
	err := s.get(ctx, CollectionMeta, statusBackfillFlag, &done)
	if err == nil && done {
		return nil
	}
	if err != nil && !isNotFound(err) {
		return err
	}

	recs, err := s.list(ctx, CollectionTransactions)
	if err != nil {
		return err
	}
	txns, err := decodeAll[models.Transaction](recs)
	if err != nil {
		return err
	}

	updated := 0
	for i := range txns {
		if txns[i].Status != "" {
			continue
		}
		txns[i].Status = models.StatusApproved
		if err := s.put(ctx, CollectionTransactions, txns[i].ID, &txns[i]); err != nil {
			return err
		}
		updated++
	}

	if err := s.put(ctx, CollectionMeta, statusBackfillFlag, true); err != nil {
		return err
	}
	if updated > 0 {
		s.log.Info().Int("transactions", updated).Msg("Backfilled missing transaction status as APPROVED")
	}
	return nil
}
