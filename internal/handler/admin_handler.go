package handler

import (
	"net/http"

	"kelabpetani/internal/repository"
	"kelabpetani/internal/service"
	"kelabpetani/pkg/pagination"
	"kelabpetani/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdminHandler struct {
	moderation   service.ModerationService
	auditService service.AuditService
}

func NewAdminHandler(moderation service.ModerationService, auditService service.AuditService) *AdminHandler {
	return &AdminHandler{moderation: moderation, auditService: auditService}
}

func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup, g Guards) {
	admin := router.Group("/api/admin", g.Auth, g.Admin)
	{
		admin.GET("/pending", h.Pending)
		admin.GET("/products", h.AllProducts)
		admin.GET("/pawah", h.AllProjects)
		admin.POST("/products/:id/review", h.ReviewProduct)
		admin.POST("/pawah/:id/review", h.ReviewProject)
		admin.GET("/audit-logs", h.GetAuditLogs)
	}
}

// Pending returns the moderation queue
// @Summary      Pending review queue
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/admin/pending [get]
func (h *AdminHandler) Pending(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	products, err := h.moderation.PendingProducts(ctx, a)
	if err != nil {
		writeError(c, err)
		return
	}
	projects, err := h.moderation.PendingProjects(ctx, a)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"products": products,
		"pawah":    projects,
	}))
}

// AllProducts returns every product regardless of moderation state
// @Summary      All products
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Product}
// @Router       /api/admin/products [get]
func (h *AdminHandler) AllProducts(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	items, err := h.moderation.AllProducts(c.Request.Context(), a)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// AllProjects returns every pawah project regardless of moderation state
// @Summary      All pawah projects
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.PawahProject}
// @Router       /api/admin/pawah [get]
func (h *AdminHandler) AllProjects(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	items, err := h.moderation.AllProjects(c.Request.Context(), a)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// ReviewProduct approves or rejects a product
// @Summary      Review product
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Product ID"
// @Param        request  body      service.ReviewRequest  true  "Decision"
// @Success      200      {object}  response.Response{data=model.Product}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/admin/products/{id}/review [post]
func (h *AdminHandler) ReviewProduct(c *gin.Context) {
	a, id, req, ok := h.decision(c)
	if !ok {
		return
	}
	product, err := h.moderation.ReviewProduct(c.Request.Context(), a, id, req.Approve, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// ReviewProject approves or rejects a pawah project
// @Summary      Review pawah project
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Project ID"
// @Param        request  body      service.ReviewRequest  true  "Decision"
// @Success      200      {object}  response.Response{data=model.PawahProject}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/admin/pawah/{id}/review [post]
func (h *AdminHandler) ReviewProject(c *gin.Context) {
	a, id, req, ok := h.decision(c)
	if !ok {
		return
	}
	project, err := h.moderation.ReviewProject(c.Request.Context(), a, id, req.Approve, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, project))
}

func (h *AdminHandler) decision(c *gin.Context) (service.Actor, uuid.UUID, service.ReviewRequest, bool) {
	var req service.ReviewRequest
	a, ok := actor(c)
	if !ok {
		return a, uuid.Nil, req, false
	}
	id, ok := paramID(c)
	if !ok {
		return a, uuid.Nil, req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return a, uuid.Nil, req, false
	}
	return a, id, req, true
}

// GetAuditLogs lists audit entries
// @Summary      Get audit logs
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        entity_type  query     string  false  "Entity type (product, order, pawah)"
// @Param        entity_id    query     string  false  "Entity ID"
// @Param        action       query     string  false  "Action"
// @Param        actor_id     query     string  false  "Actor ID"
// @Param        page         query     int     false  "Page"
// @Param        limit        query     int     false  "Page size"
// @Success      200          {object}  response.Response
// @Failure      400          {object}  response.Response
// @Router       /api/admin/audit-logs [get]
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	filter := repository.AuditFilter{
		EntityType: c.Query("entity_type"),
		Action:     c.Query("action"),
		Page:       p.Page,
		Limit:      p.Limit,
	}
	if filter.EntityID, ok = uuidQuery(c, "entity_id"); !ok {
		return
	}
	if filter.ActorID, ok = uuidQuery(c, "actor_id"); !ok {
		return
	}

	logs, total, err := h.auditService.List(c.Request.Context(), a, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, paged(logs, total, p)))
}

func uuidQuery(c *gin.Context, key string) (*uuid.UUID, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(c, "Invalid "+key)
		return nil, false
	}
	return &id, true
}
