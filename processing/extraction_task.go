package processing

import (
	"context"
	"errors"
	"strconv"
	"unicode/utf8"

	cmap "github.com/orcaman/concurrent-map/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

var ErrTaskNotFound = errors.New("processing: no extraction task for model")

// ExtractionTask is the state of the latest extraction run of a model
type ExtractionTask struct {
	ModelID    uint64 `gorm:"primaryKey;autoIncrement:false" json:"modelId"`
	Status     Status `gorm:"type:varchar(16);not null" json:"status"`
	Schema     string `gorm:"type:varchar(64)" json:"schema"`
	Elements   int    `json:"elements"` // stored property records
	Failed     int    `json:"failed"`   // elements that could not be parsed
	QueuedAt   int64  `json:"queuedAt"`
	StartedAt  int64  `json:"startedAt"`
	FinishedAt int64  `json:"finishedAt"`
	Error      string `gorm:"type:varchar(1024)" json:"error,omitempty"`
}

type TaskStore interface {
	Save(ctx context.Context, task *ExtractionTask) error
	// Get returns ErrTaskNotFound for models that were never submitted
	Get(ctx context.Context, modelID uint64) (*ExtractionTask, error)
	Delete(ctx context.Context, modelID uint64) error
}

type DBTaskStore struct {
	db *gorm.DB
}

func NewDBTaskStore(db *gorm.DB) *DBTaskStore {
	return &DBTaskStore{db: db}
}

const maxErrorLength = 1024

// Save stores a copy of task with Error cut to maxErrorLength bytes
func (s *DBTaskStore) Save(ctx context.Context, task *ExtractionTask) error {
	row := *task
	row.Error = truncateUTF8(row.Error, maxErrorLength)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func (s *DBTaskStore) Get(ctx context.Context, modelID uint64) (*ExtractionTask, error) {
	var task ExtractionTask
	err := s.db.WithContext(ctx).Where("model_id = ?", modelID).Take(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *DBTaskStore) Delete(ctx context.Context, modelID uint64) error {
	return s.db.WithContext(ctx).Where("model_id = ?", modelID).Delete(&ExtractionTask{}).Error
}

// MemoryTaskStore is used with the in-memory property store and by the extract command
type MemoryTaskStore struct {
	tasks cmap.ConcurrentMap[string, ExtractionTask]
}

func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: cmap.New[ExtractionTask]()}
}

func (s *MemoryTaskStore) Save(ctx context.Context, task *ExtractionTask) error {
	s.tasks.Set(strconv.FormatUint(task.ModelID, 10), *task)
	return nil
}

func (s *MemoryTaskStore) Get(ctx context.Context, modelID uint64) (*ExtractionTask, error) {
	task, ok := s.tasks.Get(strconv.FormatUint(modelID, 10))
	if !ok {
		return nil, ErrTaskNotFound
	}
	return &task, nil
}

func (s *MemoryTaskStore) Delete(ctx context.Context, modelID uint64) error {
	s.tasks.Remove(strconv.FormatUint(modelID, 10))
	return nil
}
