package handlers

import (
	"errors"
	"log"
	"net/http"

	"ifcserver/models"
	"ifcserver/processing"
	"ifcserver/properties"
	"ifcserver/utils"

	"github.com/gin-gonic/gin"
)

// PropertiesGet returns the attribute map of one element. Missing records are
// expected while extraction runs or after it failed for the element.
func (h *Handlers) PropertiesGet(c *gin.Context) {
	id, ok := modelID(c)
	if !ok {
		return
	}
	expressID, ok := utils.StringToInt64(c.Param("expressId"))
	if !ok {
		c.JSON(http.StatusBadRequest, BadRequestResponse)
		return
	}
	rec, err := h.Store.Get(c.Request.Context(), id, expressID)
	if errors.Is(err, properties.ErrNotFound) {
		c.JSON(http.StatusNotFound, PropertiesUnavailable)
		return
	}
	if err != nil {
		log.Printf("Cannot load properties %d/%d: %v", id, expressID, err)
		c.JSON(http.StatusInternalServerError, DBErrorResponse)
		return
	}
	c.JSON(http.StatusOK, rec.Properties)
}

func (h *Handlers) PropertiesList(c *gin.Context) {
	id, ok := modelID(c)
	if !ok {
		return
	}
	if !models.ModelExists(id) {
		c.JSON(http.StatusNotFound, NotFoundResponse)
		return
	}
	records, err := h.Store.ListByModel(c.Request.Context(), id)
	if err != nil {
		log.Printf("Cannot list properties of model %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, DBErrorResponse)
		return
	}
	if records == nil {
		records = []models.PropertyRecord{}
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handlers) ExtractionStatus(c *gin.Context) {
	id, ok := modelID(c)
	if !ok {
		return
	}
	task, err := h.Extractor.Status(c.Request.Context(), id)
	if errors.Is(err, processing.ErrTaskNotFound) {
		c.JSON(http.StatusNotFound, NotFoundResponse)
		return
	}
	if err != nil {
		log.Printf("Cannot load extraction status of model %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, DBErrorResponse)
		return
	}
	c.JSON(http.StatusOK, task)
}

// ExtractionStart queues a new extraction run for an existing model
func (h *Handlers) ExtractionStart(c *gin.Context) {
	model, ok := loadModel(c)
	if !ok {
		return
	}
	err := h.Extractor.Submit(model.ID, model.Filename)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"modelId": model.ID, "status": processing.StatusPending})
	case errors.Is(err, processing.ErrAlreadyQueued):
		c.JSON(http.StatusConflict, ExtractionBusyResponse)
	case errors.Is(err, processing.ErrQueueFull), errors.Is(err, processing.ErrStopped):
		c.JSON(http.StatusServiceUnavailable, Response{err.Error()})
	default:
		log.Printf("Cannot queue extraction of model %d: %v", model.ID, err)
		c.JSON(http.StatusInternalServerError, Response{err.Error()})
	}
}
