package services

import (
	"context"
	"errors"

	"osgb/pkg/models"
)

// ErrNotFound is returned by RecordStore getters for unknown keys.
var ErrNotFound = errors.New("record not found")

// RecordStore defines the persistence port used by the invoicing engine.
// Implementations provide last-write-wins semantics with no transactional
// guarantees; callers order their writes accordingly.
type RecordStore interface {
	// Firms
	ListFirms(ctx context.Context) ([]models.Firm, error)
	GetFirm(ctx context.Context, id string) (*models.Firm, error)
	SaveFirm(ctx context.Context, firm *models.Firm) error
	DeleteFirms(ctx context.Context, ids ...string) error

	// Transactions
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)

	// CreateTransaction assigns an id and derives month/year from the date,
	// then returns the stored record.
	CreateTransaction(ctx context.Context, txn models.Transaction) (*models.Transaction, error)
	SetTransactionStatus(ctx context.Context, id string, status models.TransactionStatus) error
	DeleteTransactions(ctx context.Context, ids ...string) error

	// Preparation items are initialised from firm defaults when absent.
	GetPreparationItem(ctx context.Context, firmID string) (models.PreparationItem, error)
	SavePreparationItem(ctx context.Context, item models.PreparationItem) error

	// Settings fall back to defaults until saved.
	GetGlobalSettings(ctx context.Context) (models.GlobalSettings, error)
	SaveGlobalSettings(ctx context.Context, settings models.GlobalSettings) error
}

// Mirror receives a full snapshot of the store after each write.
type Mirror interface {
	Name() string
	Push(ctx context.Context, snapshot []byte) error
}
