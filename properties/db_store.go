package properties

import (
	"context"
	"errors"
	"time"

	"ifcserver/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	batchSize = 500
	// SQLite builds limit a statement to 999 variables, a row binds 4
	sqliteMaxVariables = 999
	recordColumns      = 4
)

// DBStore keeps records in the property_records table
type DBStore struct {
	db *gorm.DB
}

func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db}
}

// chunkSize is the number of rows per INSERT the database accepts
func (s *DBStore) chunkSize() int {
	if s.db.Dialector != nil && s.db.Dialector.Name() == "sqlite" {
		return sqliteMaxVariables / recordColumns
	}
	return batchSize
}

func (s *DBStore) Put(ctx context.Context, modelID uint64, expressID int64, attrs models.Attributes) error {
	return s.PutBatch(ctx, []models.PropertyRecord{{ModelID: modelID, ExpressID: expressID, Properties: attrs}})
}

// PutBatch upserts in chunks of chunkSize rows. Chunks are not wrapped in a
// transaction, a failed call may leave earlier chunks written; repeating the
// call converges.
func (s *DBStore) PutBatch(ctx context.Context, records []models.PropertyRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := dedupe(records)
	now := time.Now().Unix()
	for i := range rows {
		rows[i].ID = 0
		rows[i].CreatedAt = now
		if rows[i].Properties == nil {
			rows[i].Properties = models.Attributes{}
		}
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "model_id"}, {Name: "express_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"properties", "created_at"}),
		}).
		CreateInBatches(rows, s.chunkSize()).Error
}

func (s *DBStore) Get(ctx context.Context, modelID uint64, expressID int64) (*models.PropertyRecord, error) {
	var rec models.PropertyRecord
	err := s.db.WithContext(ctx).
		Where("model_id = ? AND express_id = ?", modelID, expressID).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *DBStore) ListByModel(ctx context.Context, modelID uint64) (result []models.PropertyRecord, err error) {
	err = s.db.WithContext(ctx).
		Where("model_id = ?", modelID).
		Order("express_id").
		Find(&result).Error
	return
}

func (s *DBStore) DeleteByModel(ctx context.Context, modelID uint64) error {
	return s.db.WithContext(ctx).
		Where("model_id = ?", modelID).
		Delete(&models.PropertyRecord{}).Error
}
