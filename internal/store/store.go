// Package store persists firms, transactions, preparation items and settings
// as JSON documents in a single gorm-managed key-value table, and mirrors a
// full snapshot to configured targets after every write.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"osgb/internal/logger"
	"osgb/pkg/services"
)

// Store implements services.RecordStore on top of gorm.
type Store struct {
	db      *gorm.DB
	mirrors []services.Mirror
	log     zerolog.Logger
	now     func() time.Time
}

var _ services.RecordStore = (*Store)(nil)

// Open connects to the configured database and prepares the records table.
// Supported drivers are "sqlite" and "postgres".
func Open(ctx context.Context, driver, dsn string, debug bool, mirrors ...services.Mirror) (*Store, error) {
	const op = "Open"

	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "sqlite", "":
		dialector = sqlite.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%s: %w: %s", op, ErrUnsupportedDriver, driver)
	}

	logLevel := gormlogger.Silent
	if debug {
		logLevel = gormlogger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(logLevel)})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect database: %w", op, err)
	}
	return New(ctx, db, mirrors...)
}

// New wraps an open gorm connection, migrates the schema and runs the
// one-time legacy status backfill.
func New(ctx context.Context, db *gorm.DB, mirrors ...services.Mirror) (*Store, error) {
	const op = "New"

	if err := db.WithContext(ctx).AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("%s: automigrate records: %w", op, err)
	}

	s := &Store{
		db:      db,
		mirrors: mirrors,
		log:     logger.WithComponent("store"),
		now:     time.Now,
	}
	if err := s.backfillStatus(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) list(ctx context.Context, collection string) ([]Record, error) {
	var recs []Record
	if err := s.db.WithContext(ctx).Where("collection = ?", collection).Find(&recs).Error; err != nil {
		return nil, wrap("list", collection, "", err)
	}
	return recs, nil
}

func (s *Store) get(ctx context.Context, collection, key string, out interface{}) error {
	var rec Record
	err := s.db.WithContext(ctx).Where("collection = ? AND record_key = ?", collection, key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return wrap("get", collection, key, ErrNotFound)
	}
	if err != nil {
		return wrap("get", collection, key, err)
	}
	if err := json.Unmarshal([]byte(rec.Data), out); err != nil {
		return wrap("decode", collection, key, err)
	}
	return nil
}

func (s *Store) put(ctx context.Context, collection, key string, v interface{}) error {
	rec, err := encode(collection, key, v)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
	return wrap("put", collection, key, err)
}

func (s *Store) delete(ctx context.Context, collection string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Where("collection = ? AND record_key IN ?", collection, keys).Delete(&Record{}).Error
	return wrap("delete", collection, strings.Join(keys, ","), err)
}

func encode(collection, key string, v interface{}) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Record{}, wrap("encode", collection, key, err)
	}
	return Record{Collection: collection, Key: key, Data: string(data)}, nil
}

func decodeAll[T any](recs []Record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		var v T
		if err := json.Unmarshal([]byte(r.Data), &v); err != nil {
			return nil, wrap("decode", r.Collection, r.Key, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// afterWrite pushes a fresh snapshot to every mirror. Mirror failures are
// logged and do not fail the write.
func (s *Store) afterWrite(ctx context.Context) {
	if len(s.mirrors) == 0 {
		return
	}
	snap, err := s.Export(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to build snapshot for mirrors")
		return
	}
	data, err := snap.Marshal()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to encode snapshot for mirrors")
		return
	}
	for _, m := range s.mirrors {
		if err := m.Push(ctx, data); err != nil {
			s.log.Warn().Err(err).Str("mirror", m.Name()).Msg("Mirror push failed")
			continue
		}
		s.log.Debug().Str("mirror", m.Name()).Int("bytes", len(data)).Msg("Snapshot mirrored")
	}
}
