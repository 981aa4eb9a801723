package store

import (
	"time"
)

// Collections held in the records table.
const (
	CollectionFirms        = "firms"
	CollectionTransactions = "transactions"
	CollectionPreparation  = "preparation"
	CollectionSettings     = "settings"
	CollectionMeta         = "meta"
)

const (
	settingsKey        = "global"
	statusBackfillFlag = "status_backfill_v1"
)

// Record is one JSON document keyed by collection and key.
type Record struct {
	Collection string    `gorm:"primaryKey;size:32"`
	Key        string    `gorm:"column:record_key;primaryKey;size:128"`
	Data       string    `gorm:"type:text;not null"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// TableName pins the table name independent of naming strategy.
func (Record) TableName() string {
	return "records"
}
