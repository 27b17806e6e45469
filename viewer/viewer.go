// Package viewer keeps the correlation indexes of the models currently
// shown in browsers and answers picks against them.
package viewer

import (
	"context"
	"errors"
	"time"

	"ifcserver/correlation"
	"ifcserver/metrics"
	"ifcserver/models"
	"ifcserver/properties"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

var ErrViewNotFound = errors.New("viewer: view not found or expired")

type View struct {
	ID       string
	ModelID  uint64
	Index    *correlation.Index
	OpenedAt time.Time
}

// Pick is the answer to a click on a rendered fragment. Properties is nil
// when the element is unknown or its properties are not (yet) extracted.
type Pick struct {
	ModelID    uint64                 `json:"modelId"`
	Fragment   string                 `json:"fragment"`
	Hit        int64                  `json:"hit"`
	ExpressID  int64                  `json:"expressId"`
	Confidence correlation.Confidence `json:"confidence"`
	Properties *models.Attributes     `json:"properties"`
	Highlight  []string               `json:"highlight"` // all fragments of the element
}

// Pick resolves the hit and loads the element's properties
func (v *View) Pick(ctx context.Context, store properties.Store, fragment string, hit int64) (*Pick, error) {
	res := v.Index.Resolve(fragment, hit)
	metrics.Resolutions.WithLabelValues(res.Confidence.String()).Inc()
	pick := &Pick{
		ModelID:    v.ModelID,
		Fragment:   fragment,
		Hit:        hit,
		ExpressID:  res.ElementID,
		Confidence: res.Confidence,
		Highlight:  []string{},
	}
	if !res.Found() {
		return pick, nil
	}
	pick.Highlight = v.Index.Fragments(res.ElementID)
	rec, err := store.Get(ctx, v.ModelID, res.ElementID)
	if errors.Is(err, properties.ErrNotFound) {
		metrics.PropertyLookups.WithLabelValues("missing").Inc()
		return pick, nil
	}
	if err != nil {
		metrics.PropertyLookups.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.PropertyLookups.WithLabelValues("found").Inc()
	pick.Properties = &rec.Properties
	return pick, nil
}

// Registry holds open views until they are closed or unused for the TTL
type Registry struct {
	views *cache.Cache
}

func NewRegistry(ttl time.Duration) *Registry {
	views := cache.New(ttl, ttl)
	views.OnEvicted(func(string, any) {
		metrics.OpenViews.Dec()
	})
	return &Registry{views: views}
}

// Open builds the correlation index of a model view. Invalid fragment lists
// give an error matching correlation.ErrInvalidFragment.
func (r *Registry) Open(modelID uint64, fragments []correlation.Fragment) (*View, error) {
	index, err := correlation.New(fragments)
	if err != nil {
		return nil, err
	}
	view := &View{
		ID:       uuid.NewString(),
		ModelID:  modelID,
		Index:    index,
		OpenedAt: time.Now(),
	}
	r.views.Set(view.ID, view, cache.DefaultExpiration)
	metrics.OpenViews.Inc()
	return view, nil
}

// Get returns the view and extends its lifetime
func (r *Registry) Get(id string) (*View, error) {
	item, found := r.views.Get(id)
	if !found {
		return nil, ErrViewNotFound
	}
	r.views.Set(id, item, cache.DefaultExpiration)
	return item.(*View), nil
}

func (r *Registry) Close(id string) {
	r.views.Delete(id)
}

// CloseModel closes every view of a model, e.g. after it was deleted
func (r *Registry) CloseModel(modelID uint64) {
	for id, item := range r.views.Items() {
		if item.Object.(*View).ModelID == modelID {
			r.views.Delete(id)
		}
	}
}

func (r *Registry) Len() int {
	return r.views.ItemCount()
}
