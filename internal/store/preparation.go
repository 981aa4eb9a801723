package store

import (
	"context"
	"errors"

	"osgb/pkg/models"
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// GetPreparationItem returns the stored item for a firm, or one initialised
// from the firm's defaults when none exists yet.
func (s *Store) GetPreparationItem(ctx context.Context, firmID string) (models.PreparationItem, error) {
	var item models.PreparationItem
	err := s.get(ctx, CollectionPreparation, firmID, &item)
	if err == nil {
		return item, nil
	}
	if !isNotFound(err) {
		return models.PreparationItem{}, err
	}

	firm, err := s.GetFirm(ctx, firmID)
	if isNotFound(err) {
		return models.PreparationItem{FirmID: firmID}, nil
	}
	if err != nil {
		return models.PreparationItem{}, err
	}
	return models.NewPreparationItem(firm), nil
}

// ListPreparationItems returns every stored preparation item keyed by firm id.
func (s *Store) ListPreparationItems(ctx context.Context) (map[string]models.PreparationItem, error) {
	recs, err := s.list(ctx, CollectionPreparation)
	if err != nil {
		return nil, err
	}
	items, err := decodeAll[models.PreparationItem](recs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.PreparationItem, len(items))
	for _, it := range items {
		out[it.FirmID] = it
	}
	return out, nil
}

// SavePreparationItem upserts the item keyed by its firm id.
func (s *Store) SavePreparationItem(ctx context.Context, item models.PreparationItem) error {
	if err := s.put(ctx, CollectionPreparation, item.FirmID, &item); err != nil {
		return err
	}
	s.afterWrite(ctx)
	return nil
}

// GetGlobalSettings returns the saved settings or the defaults.
func (s *Store) GetGlobalSettings(ctx context.Context) (models.GlobalSettings, error) {
	var gs models.GlobalSettings
	err := s.get(ctx, CollectionSettings, settingsKey, &gs)
	if isNotFound(err) {
		return models.DefaultGlobalSettings(), nil
	}
	if err != nil {
		return models.GlobalSettings{}, err
	}
	return gs, nil
}

// SaveGlobalSettings validates and replaces the settings.
func (s *Store) SaveGlobalSettings(ctx context.Context, settings models.GlobalSettings) error {
	if err := models.ValidateSettings(&settings); err != nil {
		return wrap("save", CollectionSettings, settingsKey, err)
	}
	if err := s.put(ctx, CollectionSettings, settingsKey, &settings); err != nil {
		return err
	}
	s.log.Info().Msg("Global settings saved")
	s.afterWrite(ctx)
	return nil
}
