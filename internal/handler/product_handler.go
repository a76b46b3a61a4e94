package handler

import (
	"net/http"

	"kelabpetani/internal/repository"
	"kelabpetani/internal/service"
	"kelabpetani/pkg/pagination"
	"kelabpetani/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const browseLimit = 12

type ProductHandler struct {
	marketplace service.MarketplaceService
}

func NewProductHandler(marketplace service.MarketplaceService) *ProductHandler {
	return &ProductHandler{marketplace: marketplace}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup, g Guards) {
	products := router.Group("/api/products")
	{
		products.GET("", h.Browse)
		products.GET("/:id", g.Optional, h.GetProduct)
		products.POST("", g.Auth, h.CreateProduct)
		products.PUT("/:id", g.Auth, h.UpdateProduct)
		products.POST("/:id/archive", g.Auth, h.Archive)
		products.POST("/:id/unarchive", g.Auth, h.Unarchive)
	}
	router.GET("/api/me/products", g.Auth, h.MyListings)
}

// Browse lists approved, active products
// @Summary      Browse marketplace
// @Tags         products
// @Produce      json
// @Param        q          query     string  false  "Search text"
// @Param        category   query     string  false  "Category"
// @Param        location   query     string  false  "Location"
// @Param        min_price  query     string  false  "Minimum price"
// @Param        max_price  query     string  false  "Maximum price"
// @Param        page       query     int     false  "Page"
// @Param        limit      query     int     false  "Page size"
// @Success      200        {object}  response.Response
// @Failure      400        {object}  response.Response
// @Router       /api/products [get]
func (h *ProductHandler) Browse(c *gin.Context) {
	p := pagination.ParseWithDefault(c, browseLimit)
	filter := repository.ProductFilter{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Location: c.Query("location"),
		Page:     p.Page,
		Limit:    p.Limit,
	}

	var ok bool
	if filter.MinPrice, ok = priceQuery(c, "min_price"); !ok {
		return
	}
	if filter.MaxPrice, ok = priceQuery(c, "max_price"); !ok {
		return
	}

	items, total, err := h.marketplace.Browse(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, paged(items, total, p)))
}

func priceQuery(c *gin.Context, key string) (*decimal.Decimal, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		badRequest(c, "Invalid "+key)
		return nil, false
	}
	return &d, true
}

// GetProduct returns one product visible to the caller
// @Summary      Get product
// @Tags         products
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=model.Product}
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	product, err := h.marketplace.GetProduct(c.Request.Context(), optionalActor(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// CreateProduct submits a listing for review
// @Summary      Create product
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.ProductRequest  true  "Listing"
// @Success      201      {object}  response.Response{data=model.Product}
// @Failure      400      {object}  response.Response
// @Router       /api/products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	product, err := h.marketplace.CreateProduct(c.Request.Context(), a, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// UpdateProduct edits a listing and sends it back to review
// @Summary      Update product
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Product ID"
// @Param        request  body      service.ProductRequest  true  "Listing"
// @Success      200      {object}  response.Response{data=model.Product}
// @Failure      403      {object}  response.Response
// @Router       /api/products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	product, err := h.marketplace.UpdateProduct(c.Request.Context(), a, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// Archive hides a listing from the marketplace
// @Summary      Archive product
// @Tags         products
// @Security     BearerAuth
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=model.Product}
// @Router       /api/products/{id}/archive [post]
func (h *ProductHandler) Archive(c *gin.Context) {
	h.toggle(c, h.marketplace.Archive)
}

// Unarchive restores an archived listing
// @Summary      Unarchive product
// @Tags         products
// @Security     BearerAuth
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=model.Product}
// @Router       /api/products/{id}/unarchive [post]
func (h *ProductHandler) Unarchive(c *gin.Context) {
	h.toggle(c, h.marketplace.Unarchive)
}

func (h *ProductHandler) toggle(c *gin.Context, op productOp) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := paramID(c)
	if !ok {
		return
	}
	product, err := op(c.Request.Context(), a, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// MyListings returns every listing owned by the caller
// @Summary      My listings
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Product}
// @Router       /api/me/products [get]
func (h *ProductHandler) MyListings(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	items, err := h.marketplace.MyListings(c.Request.Context(), a)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}
