package handler

import (
	"context"
	"net/http"

	"kelabpetani/internal/lifecycle"
	"kelabpetani/internal/model"
	"kelabpetani/internal/repository"
	"kelabpetani/internal/service"
	"kelabpetani/pkg/pagination"
	"kelabpetani/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PawahHandler struct {
	pawahService service.PawahService
	thread       threadHandler
}

func NewPawahHandler(pawahService service.PawahService, messages service.MessageService) *PawahHandler {
	return &PawahHandler{
		pawahService: pawahService,
		thread:       threadHandler{messages: messages, contextType: model.ContextPawah},
	}
}

func (h *PawahHandler) RegisterRoutes(router *gin.RouterGroup, g Guards) {
	pawah := router.Group("/api/pawah")
	{
		pawah.GET("", h.Browse)
		pawah.GET("/:id", g.Optional, h.GetProject)
		pawah.POST("", g.Auth, h.CreateProject)
		pawah.POST("/:id/accept", g.Auth, g.limit("pawah_accept", limitAccept), h.Accept)
		pawah.POST("/:id/status", g.Auth, g.limit("pawah_status", limitStatus), h.Advance)
		pawah.GET("/:id/messages", g.Auth, h.ListMessages)
		pawah.POST("/:id/messages", g.Auth, g.limit("messages", limitMessages), h.PostMessage)
	}
}

// Browse lists approved projects
// @Summary      Browse pawah projects
// @Tags         pawah
// @Produce      json
// @Param        q          query     string  false  "Search text"
// @Param        crop_type  query     string  false  "Crop type"
// @Param        location   query     string  false  "Location"
// @Param        status     query     string  false  "Status"
// @Param        page       query     int     false  "Page"
// @Param        limit      query     int     false  "Page size"
// @Success      200        {object}  response.Response
// @Router       /api/pawah [get]
func (h *PawahHandler) Browse(c *gin.Context) {
	p := pagination.ParseWithDefault(c, browseLimit)
	filter := repository.PawahFilter{
		Query:    c.Query("q"),
		CropType: c.Query("crop_type"),
		Location: c.Query("location"),
		Status:   c.Query("status"),
		Page:     p.Page,
		Limit:    p.Limit,
	}
	items, total, err := h.pawahService.Browse(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, paged(items, total, p)))
}

// GetProject returns one project visible to the caller
// @Summary      Get pawah project
// @Tags         pawah
// @Produce      json
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  response.Response{data=model.PawahProject}
// @Failure      404  {object}  response.Response
// @Router       /api/pawah/{id} [get]
func (h *PawahHandler) GetProject(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	project, err := h.pawahService.GetProject(c.Request.Context(), optionalActor(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, project))
}

// CreateProject submits a project for review
// @Summary      Create pawah project
// @Tags         pawah
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.CreateProjectRequest  true  "Project"
// @Success      201      {object}  response.Response{data=model.PawahProject}
// @Failure      400      {object}  response.Response
// @Router       /api/pawah [post]
func (h *PawahHandler) CreateProject(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req service.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	project, err := h.pawahService.CreateProject(c.Request.Context(), a, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, project))
}

// Accept takes an open project as its farmer
// @Summary      Accept pawah project
// @Tags         pawah
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  response.Response{data=model.PawahProject}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/pawah/{id}/accept [post]
func (h *PawahHandler) Accept(c *gin.Context) {
	h.run(c, h.pawahService.Accept)
}

// Advance moves an accepted project to in_progress, completed or cancelled
// @Summary      Advance pawah project
// @Tags         pawah
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Project ID"
// @Param        request  body      service.AdvanceProjectRequest  true  "Target status"
// @Success      200      {object}  response.Response{data=model.PawahProject}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/pawah/{id}/status [post]
func (h *PawahHandler) Advance(c *gin.Context) {
	var req service.AdvanceProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	target := lifecycle.PawahStatus(req.Status)
	h.run(c, func(ctx context.Context, a service.Actor, id uuid.UUID) (*model.PawahProject, error) {
		return h.pawahService.Advance(ctx, a, id, target)
	})
}

func (h *PawahHandler) run(c *gin.Context, op projectOp) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := paramID(c)
	if !ok {
		return
	}
	project, err := op(c.Request.Context(), a, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, project))
}

// ListMessages returns the project's message thread
// @Summary      Pawah messages
// @Tags         pawah
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  response.Response{data=[]model.Message}
// @Router       /api/pawah/{id}/messages [get]
func (h *PawahHandler) ListMessages(c *gin.Context) { h.thread.list(c) }

// PostMessage adds a message to the project's thread
// @Summary      Post pawah message
// @Tags         pawah
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Project ID"
// @Param        request  body      service.PostMessageRequest  true  "Message"
// @Success      201      {object}  response.Response{data=model.Message}
// @Router       /api/pawah/{id}/messages [post]
func (h *PawahHandler) PostMessage(c *gin.Context) { h.thread.post(c) }
