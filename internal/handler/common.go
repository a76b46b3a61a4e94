package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"kelabpetani/internal/middleware"
	"kelabpetani/internal/model"
	"kelabpetani/internal/service"
	"kelabpetani/pkg/pagination"
	"kelabpetani/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Guards bundles the middleware the route groups are built from.
type Guards struct {
	Auth     gin.HandlerFunc
	Optional gin.HandlerFunc
	Admin    gin.HandlerFunc
	Limiter  *middleware.RateLimiter
}

// Per-actor limits on mutation routes.
const (
	limitStatus   = 20
	limitAccept   = 10
	limitMessages = 30
	limitPurchase = 10
)

func (g Guards) limit(route string, n int) gin.HandlerFunc {
	return g.Limiter.Limit(route, n, time.Minute)
}

// statusFor maps a service failure to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidAction),
		errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInsufficientStock):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrPersistence):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Internal server error"
	}
	c.JSON(status, response.Error(status, msg))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, msg))
}

func paramID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// actor returns the authenticated actor; routes using it sit behind
// RequireAuth, so a missing actor means a wiring error.
func actor(c *gin.Context) (service.Actor, bool) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
	}
	return a, ok
}

// optionalActor returns the anonymous zero Actor when nobody is signed in.
func optionalActor(c *gin.Context) service.Actor {
	a, _ := middleware.ActorFrom(c)
	return a
}

func paged(items interface{}, total int64, p pagination.Params) map[string]interface{} {
	return map[string]interface{}{
		"items": items,
		"total": total,
		"page":  p.Page,
		"limit": p.Limit,
	}
}

type productOp func(ctx context.Context, a service.Actor, id uuid.UUID) (*model.Product, error)

type projectOp func(ctx context.Context, a service.Actor, id uuid.UUID) (*model.PawahProject, error)
