package processing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"ifcserver/db"
	"ifcserver/ifc"
	"ifcserver/metrics"
	"ifcserver/models"
	"ifcserver/properties"
	"ifcserver/storage"

	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/sync/errgroup"
)

var (
	ErrQueueFull     = errors.New("processing: extraction queue is full")
	ErrAlreadyQueued = errors.New("processing: extraction already queued or running")
	ErrStopped       = errors.New("processing: pipeline stopped")
	// ErrModelDeleted ends a run whose model was deleted meanwhile, its records are removed again
	ErrModelDeleted = errors.New("processing: model deleted during extraction")
)

// Event is published after every extraction run
type Event struct {
	ModelID  uint64 `json:"modelId"`
	Status   Status `json:"status"`
	Elements int    `json:"elements"`
	Failed   int    `json:"failed"`
	Error    string `json:"error,omitempty"`
}

type job struct {
	modelID uint64
	path    string // inside the storage
}

// Pipeline extracts the properties of uploaded models on a pool of workers.
// Submit never blocks the caller.
type Pipeline struct {
	storage     storage.StorageAPI
	store       properties.Store
	tasks       TaskStore
	modelExists func(modelID uint64) bool

	queue    chan job
	inFlight cmap.ConcurrentMap[string, struct{}]

	mu          sync.RWMutex
	stopped     bool
	subscribers []func(Event)

	group    *errgroup.Group
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func New(st storage.StorageAPI, store properties.Store, tasks TaskStore, modelExists func(uint64) bool, queueSize int) *Pipeline {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pipeline{
		storage:     st,
		store:       store,
		tasks:       tasks,
		modelExists: modelExists,
		queue:       make(chan job, queueSize),
		inFlight:    cmap.New[struct{}](),
	}
}

func Init() {
	if err := db.Instance.AutoMigrate(&ExtractionTask{}); err != nil {
		log.Printf("Auto-migrate error: %v", err)
	}
}

// Subscribe registers fn to be called with every event, from the worker goroutine
func (p *Pipeline) Subscribe(fn func(Event)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}

func (p *Pipeline) publish(e Event) {
	p.mu.RLock()
	subscribers := p.subscribers
	p.mu.RUnlock()
	for _, fn := range subscribers {
		fn(e)
	}
}

// Submit queues an extraction run for the model stored at path
func (p *Pipeline) Submit(modelID uint64, path string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	key := strconv.FormatUint(modelID, 10)
	if !p.inFlight.SetIfAbsent(key, struct{}{}) {
		return ErrAlreadyQueued
	}
	task := &ExtractionTask{ModelID: modelID, Status: StatusPending, QueuedAt: time.Now().Unix()}
	p.saveTask(context.Background(), task)
	select {
	case p.queue <- job{modelID: modelID, path: path}:
		metrics.QueueDepth.Set(float64(len(p.queue)))
		return nil
	default:
		p.inFlight.Remove(key)
		task.Status = StatusFailed
		task.Error = ErrQueueFull.Error()
		p.saveTask(context.Background(), task)
		return ErrQueueFull
	}
}

// Start runs workers until ctx is cancelled or Stop is called
func (p *Pipeline) Start(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}
	ctx, p.cancel = context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		group.Go(func() error {
			p.work(ctx)
			return nil
		})
	}
	p.group = group
	log.Printf("Extraction pipeline started with %d workers", workers)
}

func (p *Pipeline) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-p.queue:
			if !ok {
				return
			}
			metrics.QueueDepth.Set(float64(len(p.queue)))
			_, _ = p.Extract(ctx, j.modelID, j.path)
			p.inFlight.Remove(strconv.FormatUint(j.modelID, 10))
		}
	}
}

// Stop refuses new submissions, lets the workers finish the queued runs and waits for them
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.queue)
		p.mu.Unlock()
		if p.group != nil {
			_ = p.group.Wait()
			p.cancel()
		}
		log.Println("Extraction pipeline stopped")
	})
}

// Status returns the latest extraction task of a model
func (p *Pipeline) Status(ctx context.Context, modelID uint64) (*ExtractionTask, error) {
	return p.tasks.Get(ctx, modelID)
}

// Forget removes everything extraction produced for a deleted model
func (p *Pipeline) Forget(ctx context.Context, modelID uint64) error {
	if err := p.store.DeleteByModel(ctx, modelID); err != nil {
		return err
	}
	return p.tasks.Delete(ctx, modelID)
}

// Extract runs one extraction synchronously. Its outcome is recorded as the
// model's extraction task and published as an Event.
func (p *Pipeline) Extract(ctx context.Context, modelID uint64, path string) (*ExtractionTask, error) {
	start := time.Now()
	task := &ExtractionTask{ModelID: modelID, Status: StatusRunning, StartedAt: start.Unix()}
	if previous, err := p.tasks.Get(ctx, modelID); err == nil {
		task.QueuedAt = previous.QueuedAt
	}
	p.saveTask(ctx, task)

	result, err := p.extract(ctx, modelID, path)
	task.FinishedAt = time.Now().Unix()
	metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		task.Status = StatusFailed
		task.Error = err.Error()
		log.Printf("Extraction of model %d failed: %v", modelID, err)
	} else {
		task.Status = StatusDone
		task.Schema = result.Schema
		task.Elements = len(result.Elements)
		task.Failed = len(result.Failed) + result.Skipped
		log.Printf("Extraction of model %d done: %d elements stored, %d failed, %v", modelID, task.Elements, task.Failed, time.Since(start))
	}
	metrics.ExtractionRuns.WithLabelValues(string(task.Status)).Inc()

	// The outcome is recorded even when the run was cancelled
	ctx = context.WithoutCancel(ctx)
	if errors.Is(err, ErrModelDeleted) {
		if delErr := p.tasks.Delete(ctx, modelID); delErr != nil {
			log.Printf("Cannot delete extraction task of model %d: %v", modelID, delErr)
		}
	} else {
		p.saveTask(ctx, task)
		// A deletion that raced the save would leave the row behind
		if !p.modelExists(modelID) {
			log.Printf("Model %d was deleted while its extraction finished", modelID)
			if delErr := p.Forget(ctx, modelID); delErr != nil {
				log.Printf("Cannot forget extraction of model %d: %v", modelID, delErr)
			}
		}
	}
	p.publish(Event{
		ModelID:  modelID,
		Status:   task.Status,
		Elements: task.Elements,
		Failed:   task.Failed,
		Error:    task.Error,
	})
	return task, err
}

func (p *Pipeline) extract(ctx context.Context, modelID uint64, path string) (*ifc.WalkResult, error) {
	if err := p.storage.EnsureLocalFile(path); err != nil {
		return nil, fmt.Errorf("cannot fetch %s: %w", path, err)
	}
	defer p.storage.ReleaseLocalFile(path)

	result, err := ifc.Walk(ctx, p.storage.GetFullPath(path))
	if err != nil {
		return nil, err
	}
	records := make([]models.PropertyRecord, len(result.Elements))
	for i, elem := range result.Elements {
		records[i] = models.PropertyRecord{ModelID: modelID, ExpressID: elem.ExpressID, Properties: elem.Attributes}
	}
	if err = p.store.PutBatch(ctx, records); err != nil {
		return nil, fmt.Errorf("cannot store properties: %w", err)
	}
	metrics.ExtractedElements.Add(float64(len(result.Elements)))
	metrics.FailedElements.Add(float64(len(result.Failed) + result.Skipped))

	// The model may have been deleted while the batch was being written
	if !p.modelExists(modelID) {
		log.Printf("Model %d was deleted during extraction, removing its properties", modelID)
		if err = p.store.DeleteByModel(ctx, modelID); err != nil {
			return nil, fmt.Errorf("cannot remove properties of deleted model: %w", err)
		}
		return nil, ErrModelDeleted
	}
	return result, nil
}

func (p *Pipeline) saveTask(ctx context.Context, task *ExtractionTask) {
	if err := p.tasks.Save(ctx, task); err != nil {
		log.Printf("Cannot save extraction task of model %d: %v", task.ModelID, err)
	}
}
