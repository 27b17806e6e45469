// Package properties persists the flattened attributes of model elements,
// one record per (model, express id).
package properties

import (
	"context"
	"errors"
	"fmt"

	"ifcserver/config"
	"ifcserver/models"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("properties: record not found")

// Store is safe for concurrent use. Writes are upserts on (model, express id).
type Store interface {
	Put(ctx context.Context, modelID uint64, expressID int64, attrs models.Attributes) error
	// PutBatch has the same effect as calling Put for every record in order
	PutBatch(ctx context.Context, records []models.PropertyRecord) error
	// Get returns ErrNotFound for missing records
	Get(ctx context.Context, modelID uint64, expressID int64) (*models.PropertyRecord, error)
	// ListByModel returns the records of a model sorted by express id
	ListByModel(ctx context.Context, modelID uint64) ([]models.PropertyRecord, error)
	// DeleteByModel removes every record of a model, deleting nothing is not an error
	DeleteByModel(ctx context.Context, modelID uint64) error
}

// New returns the store configured by PROPERTY_STORE
func New(kind string, db *gorm.DB) (Store, error) {
	switch kind {
	case config.PropertyStoreDB, "":
		if db == nil {
			return nil, errors.New("properties: database store needs a database")
		}
		return NewDBStore(db), nil
	case config.PropertyStoreMemory:
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("properties: unknown store %q", kind)
}

// dedupe keeps the last record of every key, in order of first appearance
func dedupe(records []models.PropertyRecord) []models.PropertyRecord {
	pos := make(map[string]int, len(records))
	result := make([]models.PropertyRecord, 0, len(records))
	for _, rec := range records {
		key := rec.Key()
		if i, ok := pos[key]; ok {
			result[i] = rec
			continue
		}
		pos[key] = len(result)
		result = append(result, rec)
	}
	return result
}
