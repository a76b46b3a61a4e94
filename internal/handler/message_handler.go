package handler

import (
	"net/http"

	"kelabpetani/internal/service"
	"kelabpetani/pkg/response"

	"github.com/gin-gonic/gin"
)

// threadHandler serves the message thread attached to an order or a pawah
// project. The context type is fixed per route group.
type threadHandler struct {
	messages    service.MessageService
	contextType string
}

func (t threadHandler) list(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := paramID(c)
	if !ok {
		return
	}
	items, err := t.messages.List(c.Request.Context(), a, t.contextType, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

func (t threadHandler) post(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req service.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	msg, err := t.messages.Post(c.Request.Context(), a, t.contextType, id, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, msg))
}
