package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"osgb/pkg/models"
)

// SnapshotVersion is the format version written into snapshots.
const SnapshotVersion = 1

// Snapshot is the serialisable state of the whole store.
type Snapshot struct {
	Version      int                      `json:"version"`
	ExportedAt   time.Time                `json:"exported_at"`
	Firms        []models.Firm            `json:"firms"`
	Transactions []models.Transaction     `json:"transactions"`
	Preparation  []models.PreparationItem `json:"preparation_items"`
	Settings     *models.GlobalSettings   `json:"settings,omitempty"`
}

// Marshal encodes the snapshot as indented JSON.
func (s Snapshot) Marshal() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// ReadSnapshotFile loads a snapshot written by a file mirror or export.
func ReadSnapshotFile(path string) (Snapshot, error) {
	const op = "ReadSnapshotFile"

	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%s: invalid snapshot %s: %w", op, path, err)
	}
	return snap, nil
}

// Export captures the current state.
func (s *Store) Export(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Version: SnapshotVersion, ExportedAt: s.now()}

	var err error
	if snap.Firms, err = s.ListFirms(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Transactions, err = s.ListTransactions(ctx); err != nil {
		return Snapshot{}, err
	}
	items, err := s.ListPreparationItems(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	for _, f := range snap.Firms {
		if it, ok := items[f.ID]; ok {
			snap.Preparation = append(snap.Preparation, it)
			delete(items, f.ID)
		}
	}
	for _, it := range items {
		snap.Preparation = append(snap.Preparation, it)
	}

	var gs models.GlobalSettings
	err = s.get(ctx, CollectionSettings, settingsKey, &gs)
	switch {
	case err == nil:
		snap.Settings = &gs
	case !isNotFound(err):
		return Snapshot{}, err
	}
	return snap, nil
}

// Restore replaces all stored data with the snapshot in a single database
// transaction. Transactions without a status are restored as APPROVED.
func (s *Store) Restore(ctx context.Context, snap Snapshot) error {
	const op = "Restore"

	recs := make([]Record, 0, len(snap.Firms)+len(snap.Transactions)+len(snap.Preparation)+2)
	add := func(collection, key string, v interface{}) error {
		rec, err := encode(collection, key, v)
		if err != nil {
			return err
		}
		recs = append(recs, rec)
		return nil
	}

	for i := range snap.Firms {
		if err := add(CollectionFirms, snap.Firms[i].ID, &snap.Firms[i]); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	for i := range snap.Transactions {
		t := &snap.Transactions[i]
		if t.Status == "" {
			t.Status = models.StatusApproved
		}
		if err := add(CollectionTransactions, t.ID, t); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	for i := range snap.Preparation {
		if err := add(CollectionPreparation, snap.Preparation[i].FirmID, &snap.Preparation[i]); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if snap.Settings != nil {
		if err := add(CollectionSettings, settingsKey, snap.Settings); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := add(CollectionMeta, statusBackfillFlag, true); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&Record{}).Error; err != nil {
			return err
		}
		if len(recs) == 0 {
			return nil
		}
		return tx.CreateInBatches(recs, 200).Error
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info().
		Int("firms", len(snap.Firms)).
		Int("transactions", len(snap.Transactions)).
		Int("preparation_items", len(snap.Preparation)).
		Msg("Store restored from snapshot")
	s.afterWrite(ctx)
	return nil
}
