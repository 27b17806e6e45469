package handlers

import (
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"ifcserver/models"
	"ifcserver/storage"
	"ifcserver/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultMimeType   = "application/x-step"
	multipartOverhead = 1 << 20
)

// loadModel answers 404/500 itself when the model cannot be loaded
func loadModel(c *gin.Context) (*models.Model, bool) {
	id, ok := modelID(c)
	if !ok {
		return nil, false
	}
	model, err := models.GetModel(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, NotFoundResponse)
		return nil, false
	}
	if err != nil {
		log.Printf("Cannot load model %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, DBErrorResponse)
		return nil, false
	}
	return &model, true
}

func (h *Handlers) ModelList(c *gin.Context) {
	list, err := models.ListModels()
	if err != nil {
		log.Printf("Cannot list models: %v", err)
		c.JSON(http.StatusInternalServerError, DBErrorResponse)
		return
	}
	if list == nil {
		list = []models.Model{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handlers) ModelGet(c *gin.Context) {
	if model, ok := loadModel(c); ok {
		c.JSON(http.StatusOK, model)
	}
}

// ModelUpload stores a multipart "file" and queues its extraction. The
// response does not wait for the extraction.
func (h *Handlers) ModelUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadSize+multipartOverhead)
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			c.JSON(http.StatusRequestEntityTooLarge, Response{"file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, Response{"missing file"})
		return
	}
	if file.Size > h.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, Response{"file too large"})
		return
	}
	if free := h.Storage.GetFreeSpace(); free < uint64(h.MinFreeSpace)+uint64(file.Size) {
		log.Printf("Refusing upload of %d bytes, %d bytes free", file.Size, free)
		c.JSON(http.StatusInsufficientStorage, Response{"not enough storage space"})
		return
	}
	original := utils.SafeFilename(file.Filename)
	model := models.Model{
		Name:             strings.TrimSpace(c.PostForm("name")),
		Filename:         uuid.NewString() + strings.ToLower(filepath.Ext(original)),
		OriginalFilename: original,
		MimeType:         file.Header.Get("Content-Type"),
		CreatedAt:        time.Now().Unix(),
	}
	if model.Name == "" {
		model.Name = utils.DisplayName(file.Filename)
	}
	if model.MimeType == "" || model.MimeType == "application/octet-stream" {
		model.MimeType = defaultMimeType
	}

	reader, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{"cannot read file"})
		return
	}
	defer reader.Close()
	if model.Size, err = h.Storage.Save(model.Filename, reader); err != nil {
		log.Printf("Cannot save upload %s: %v", model.Filename, err)
		_ = h.Storage.Delete(model.Filename)
		c.JSON(http.StatusInternalServerError, StorageErrorResponse)
		return
	}
	err = h.Storage.UpdateRemoteFile(model.Filename, model.MimeType)
	h.Storage.ReleaseLocalFile(model.Filename)
	if err != nil {
		log.Printf("Cannot upload %s: %v", model.Filename, err)
		c.JSON(http.StatusInternalServerError, StorageErrorResponse)
		return
	}
	if err = model.Create(); err != nil {
		log.Printf("Cannot create model for %s: %v", model.Filename, err)
		if err := storage.Remove(h.Storage, model.Filename); err != nil {
			log.Printf("Cannot remove %s: %v", model.Filename, err)
		}
		c.JSON(http.StatusInternalServerError, DBErrorResponse)
		return
	}
	if err = h.Extractor.Submit(model.ID, model.Filename); err != nil {
		log.Printf("Extraction of model %d not queued: %v", model.ID, err)
	}
	c.JSON(http.StatusCreated, model)
}

// ModelDelete removes the model row first, so an extraction still running
// for it cleans up its own records afterwards
func (h *Handlers) ModelDelete(c *gin.Context) {
	model, ok := loadModel(c)
	if !ok {
		return
	}
	if err := model.Delete(); err != nil {
		log.Printf("Cannot delete model %d: %v", model.ID, err)
		c.JSON(http.StatusInternalServerError, DBErrorResponse)
		return
	}
	h.Views.CloseModel(model.ID)
	if err := h.Extractor.Forget(c.Request.Context(), model.ID); err != nil {
		log.Printf("Cannot delete properties of model %d: %v", model.ID, err)
	}
	if err := storage.Remove(h.Storage, model.Filename); err != nil {
		log.Printf("Cannot delete file of model %d: %v", model.ID, err)
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) ModelFile(c *gin.Context) {
	if model, ok := loadModel(c); ok {
		h.Storage.Serve(model.Filename, model.OriginalFilename, c.Request, c.Writer)
	}
}
