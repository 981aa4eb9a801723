package store

import (
	"context"
	"sort"

	"osgb/pkg/models"
)

// ListFirms returns all firms ordered by creation time, then id.
func (s *Store) ListFirms(ctx context.Context) ([]models.Firm, error) {
	recs, err := s.list(ctx, CollectionFirms)
	if err != nil {
		return nil, err
	}
	firms, err := decodeAll[models.Firm](recs)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(firms, func(i, j int) bool {
		if !firms[i].CreatedAt.Equal(firms[j].CreatedAt) {
			return firms[i].CreatedAt.Before(firms[j].CreatedAt)
		}
		return firms[i].ID < firms[j].ID
	})
	return firms, nil
}

// GetFirm returns a firm by id or ErrNotFound.
func (s *Store) GetFirm(ctx context.Context, id string) (*models.Firm, error) {
	var f models.Firm
	if err := s.get(ctx, CollectionFirms, id, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// SaveFirm validates and upserts a firm, stamping its timestamps.
func (s *Store) SaveFirm(ctx context.Context, firm *models.Firm) error {
	if err := models.ValidateFirm(firm); err != nil {
		return wrap("save", CollectionFirms, firm.ID, err)
	}

	now := s.now()
	if firm.CreatedAt.IsZero() {
		firm.CreatedAt = now
	}
	firm.UpdatedAt = now

	if err := s.put(ctx, CollectionFirms, firm.ID, firm); err != nil {
		return err
	}
	s.log.Debug().Str("firm_id", firm.ID).Msg("Firm saved")
	s.afterWrite(ctx)
	return nil
}

// DeleteFirms removes firms. Their transactions are left in place.
func (s *Store) DeleteFirms(ctx context.Context, ids ...string) error {
	if err := s.delete(ctx, CollectionFirms, ids...); err != nil {
		return err
	}
	s.log.Info().Strs("firm_ids", ids).Msg("Firms deleted")
	s.afterWrite(ctx)
	return nil
}
