package handlers

import (
	"context"
	"net/http"

	"ifcserver/config"
	"ifcserver/processing"
	"ifcserver/properties"
	"ifcserver/storage"
	"ifcserver/utils"
	"ifcserver/viewer"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Error string `json:"error"`
}

var (
	// Predefined errors
	BadRequestResponse     = Response{"bad request"}
	NotFoundResponse       = Response{"not found"}
	DBErrorResponse        = Response{"DB error"}
	StorageErrorResponse   = Response{"storage error"}
	PropertiesUnavailable  = Response{"properties unavailable"}
	NoViewResponse         = Response{"no view open"}
	ExtractionBusyResponse = Response{"extraction already queued or running"}
)

// Extractor is the part of the extraction pipeline the handlers use
type Extractor interface {
	Submit(modelID uint64, path string) error
	Status(ctx context.Context, modelID uint64) (*processing.ExtractionTask, error)
	Forget(ctx context.Context, modelID uint64) error
	Subscribe(fn func(processing.Event))
}

type Handlers struct {
	Storage   storage.StorageAPI
	Store     properties.Store
	Extractor Extractor
	Views     *viewer.Registry
	Events    *EventHub

	MaxUploadSize int64
	MinFreeSpace  int64
}

func New(st storage.StorageAPI, store properties.Store, extractor Extractor, views *viewer.Registry) *Handlers {
	h := &Handlers{
		Storage:       st,
		Store:         store,
		Extractor:     extractor,
		Views:         views,
		Events:        NewEventHub(),
		MaxUploadSize: config.MAX_UPLOAD_SIZE,
		MinFreeSpace:  config.MIN_FREE_SPACE,
	}
	extractor.Subscribe(h.Events.Publish)
	return h
}

// Register adds all API routes. Sessions middleware must already be installed.
func (h *Handlers) Register(router gin.IRouter) {
	api := router.Group("/api")
	// Models
	api.GET("/models", h.ModelList)
	api.POST("/models", h.ModelUpload)
	api.GET("/models/:id", h.ModelGet)
	api.DELETE("/models/:id", h.ModelDelete)
	api.GET("/models/:id/file", h.ModelFile)
	// Properties and extraction
	api.GET("/models/:id/properties", h.PropertiesList)
	api.GET("/models/:id/properties/:expressId", h.PropertiesGet)
	api.GET("/models/:id/extraction", h.ExtractionStatus)
	api.POST("/models/:id/extract", h.ExtractionStart)
	// Viewer
	api.POST("/models/:id/view", h.ViewOpen)
	api.POST("/view/pick", h.ViewPick)
	api.DELETE("/view", h.ViewClose)
	// Extraction events
	api.GET("/events", h.Events.Serve)
}

// modelID reads the :id parameter, answering 400 itself when it is invalid
func modelID(c *gin.Context) (uint64, bool) {
	id, ok := utils.StringToUInt64(c.Param("id"))
	if !ok || id == 0 {
		c.JSON(http.StatusBadRequest, BadRequestResponse)
		return 0, false
	}
	return id, true
}
