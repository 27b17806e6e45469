package properties

import (
	"context"
	"maps"
	"sort"
	"sync/atomic"
	"time"

	"ifcserver/models"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// MemoryStore keeps records in a concurrent map keyed "<model>-<express>".
// Contents are lost on restart.
type MemoryStore struct {
	records cmap.ConcurrentMap[string, models.PropertyRecord]
	lastID  atomic.Uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: cmap.New[models.PropertyRecord]()}
}

func (s *MemoryStore) Put(ctx context.Context, modelID uint64, expressID int64, attrs models.Attributes) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.put(models.PropertyRecord{ModelID: modelID, ExpressID: expressID, Properties: attrs}, time.Now().Unix())
	return nil
}

func (s *MemoryStore) PutBatch(ctx context.Context, records []models.PropertyRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := time.Now().Unix()
	for _, rec := range records {
		s.put(rec, now)
	}
	return nil
}

func (s *MemoryStore) put(rec models.PropertyRecord, now int64) {
	rec.Properties = maps.Clone(rec.Properties)
	if rec.Properties == nil {
		rec.Properties = models.Attributes{}
	}
	rec.CreatedAt = now
	s.records.Upsert(rec.Key(), rec, func(exists bool, old, rec models.PropertyRecord) models.PropertyRecord {
		if exists {
			rec.ID = old.ID
		} else {
			rec.ID = s.lastID.Add(1)
		}
		return rec
	})
}

func (s *MemoryStore) Get(ctx context.Context, modelID uint64, expressID int64) (*models.PropertyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, ok := s.records.Get(models.PropertyKey(modelID, expressID))
	if !ok {
		return nil, ErrNotFound
	}
	rec.Properties = maps.Clone(rec.Properties)
	return &rec, nil
}

func (s *MemoryStore) ListByModel(ctx context.Context, modelID uint64) ([]models.PropertyRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := []models.PropertyRecord{}
	s.records.IterCb(func(_ string, rec models.PropertyRecord) {
		if rec.ModelID == modelID {
			rec.Properties = maps.Clone(rec.Properties)
			result = append(result, rec)
		}
	})
	sort.Slice(result, func(i, j int) bool { return result[i].ExpressID < result[j].ExpressID })
	return result, nil
}

func (s *MemoryStore) DeleteByModel(ctx context.Context, modelID uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, key := range s.records.Keys() {
		s.records.RemoveCb(key, func(_ string, rec models.PropertyRecord, exists bool) bool {
			return exists && rec.ModelID == modelID
		})
	}
	return nil
}
