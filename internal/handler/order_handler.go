package handler

import (
	"net/http"

	"kelabpetani/internal/model"
	"kelabpetani/internal/service"
	"kelabpetani/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OrderHandler struct {
	orderService service.OrderService
	thread       threadHandler
}

func NewOrderHandler(orderService service.OrderService, messages service.MessageService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		thread:       threadHandler{messages: messages, contextType: model.ContextOrder},
	}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup, g Guards) {
	orders := router.Group("/api/orders", g.Auth)
	{
		orders.POST("", g.limit("purchase", limitPurchase), h.PlaceOrder)
		orders.GET("/purchases", h.ListPurchases)
		orders.GET("/sales", h.ListSales)
		orders.GET("/:id", h.GetOrder)
		orders.POST("/:id/status", g.limit("order_status", limitStatus), h.ChangeStatus)
		orders.GET("/:id/messages", h.ListMessages)
		orders.POST("/:id/messages", g.limit("messages", limitMessages), h.PostMessage)
	}
}

// PlaceOrder purchases a product
// @Summary      Place order
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.PlaceOrderRequest  true  "Purchase"
// @Success      201      {object}  response.Response{data=model.Order}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req service.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		badRequest(c, "Invalid product_id")
		return
	}

	order, err := h.orderService.PlaceOrder(c.Request.Context(), a, productID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// ChangeStatus applies an action (mark_paid, mark_shipped, mark_completed, cancel) to an order
// @Summary      Change order status
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                            true  "Order ID"
// @Param        request  body      service.ChangeOrderStatusRequest  true  "Action"
// @Success      200      {object}  response.Response{data=model.Order}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/orders/{id}/status [post]
func (h *OrderHandler) ChangeStatus(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req service.ChangeOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	order, err := h.orderService.ChangeStatus(c.Request.Context(), a, id, req.Action)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// GetOrder returns an order the caller is a party to
// @Summary      Get order
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=model.Order}
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := paramID(c)
	if !ok {
		return
	}
	order, err := h.orderService.GetOrder(c.Request.Context(), a, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// ListPurchases returns orders where the caller is the buyer
// @Summary      My purchases
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Order}
// @Router       /api/orders/purchases [get]
func (h *OrderHandler) ListPurchases(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	items, err := h.orderService.ListPurchases(c.Request.Context(), a)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// ListSales returns orders where the caller is the seller
// @Summary      My sales
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Order}
// @Router       /api/orders/sales [get]
func (h *OrderHandler) ListSales(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	items, err := h.orderService.ListSales(c.Request.Context(), a)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// ListMessages returns the order's message thread
// @Summary      Order messages
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=[]model.Message}
// @Router       /api/orders/{id}/messages [get]
func (h *OrderHandler) ListMessages(c *gin.Context) { h.thread.list(c) }

// PostMessage adds a message to the order's thread
// @Summary      Post order message
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Order ID"
// @Param        request  body      service.PostMessageRequest  true  "Message"
// @Success      201      {object}  response.Response{data=model.Message}
// @Router       /api/orders/{id}/messages [post]
func (h *OrderHandler) PostMessage(c *gin.Context) { h.thread.post(c) }
