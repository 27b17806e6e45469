package handlers

import (
	"errors"
	"log"
	"net/http"

	"ifcserver/correlation"
	"ifcserver/viewer"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const viewSessionKey = "view"

type viewOpenRequest struct {
	Fragments []correlation.Fragment `json:"fragments" binding:"required"`
}

type viewPickRequest struct {
	Fragment string `json:"fragment" binding:"required"`
	Hit      *int64 `json:"hit" binding:"required"`
}

// ViewOpen builds the correlation index from the fragment lists the browser
// rendered and remembers the view in the session
func (h *Handlers) ViewOpen(c *gin.Context) {
	model, ok := loadModel(c)
	if !ok {
		return
	}
	var req viewOpenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, BadRequestResponse)
		return
	}
	view, err := h.Views.Open(model.ID, req.Fragments)
	if errors.Is(err, correlation.ErrInvalidFragment) {
		c.JSON(http.StatusBadRequest, Response{err.Error()})
		return
	}
	if err != nil {
		log.Printf("Cannot open view of model %d: %v", model.ID, err)
		c.JSON(http.StatusInternalServerError, Response{err.Error()})
		return
	}
	session := sessions.Default(c)
	if previous, ok := session.Get(viewSessionKey).(string); ok {
		h.Views.Close(previous)
	}
	session.Set(viewSessionKey, view.ID)
	if err = session.Save(); err != nil {
		log.Printf("Cannot save session: %v", err)
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":        view.ID,
		"modelId":   view.ModelID,
		"fragments": view.Index.Len(),
	})
}

// ViewPick answers a click on a fragment. Unknown elements and missing
// properties still give 200, with null properties.
func (h *Handlers) ViewPick(c *gin.Context) {
	var req viewPickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, BadRequestResponse)
		return
	}
	id, _ := sessions.Default(c).Get(viewSessionKey).(string)
	view, err := h.Views.Get(id)
	if errors.Is(err, viewer.ErrViewNotFound) {
		c.JSON(http.StatusNotFound, NoViewResponse)
		return
	}
	pick, err := view.Pick(c.Request.Context(), h.Store, req.Fragment, *req.Hit)
	if err != nil {
		log.Printf("Cannot pick %s/%d: %v", req.Fragment, *req.Hit, err)
		c.JSON(http.StatusInternalServerError, DBErrorResponse)
		return
	}
	c.JSON(http.StatusOK, pick)
}

func (h *Handlers) ViewClose(c *gin.Context) {
	session := sessions.Default(c)
	if id, ok := session.Get(viewSessionKey).(string); ok {
		h.Views.Close(id)
	}
	session.Delete(viewSessionKey)
	if err := session.Save(); err != nil {
		log.Printf("Cannot save session: %v", err)
	}
	c.Status(http.StatusNoContent)
}
