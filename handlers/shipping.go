package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"storefront/internal/shipping"
	"storefront/internal/stores"
	"storefront/pkg/ctxmanage"
	"storefront/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateShipping(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var newShipping shipping.NewShipping
	if err := c.ShouldBindJSON(&newShipping); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}
	if err := h.validate.Struct(newShipping); err != nil {
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}

	info, err := h.sh.Create(c.Request.Context(), newShipping)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("error in creating shipping", slog.String(logkey.TraceID, traceId), slog.String("OrderID", newShipping.OrderID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create shipping"})
		return
	}

	c.JSON(http.StatusOK, info)
}

func (h *Handler) GetShipping(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	user, ok := currentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": http.StatusText(http.StatusUnauthorized)})
		return
	}

	orderID := c.Param("orderId")
	info, err := h.sh.Get(c.Request.Context(), orderID, user)
	if err != nil {
		switch {
		case errors.Is(err, shipping.ErrForbidden):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		case errors.Is(err, shipping.ErrOrderNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.Is(err, stores.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Shipping info not found"})
		default:
			slog.Error("error in fetching shipping", slog.String(logkey.TraceID, traceId), slog.String("OrderID", orderID), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch shipping"})
		}
		return
	}

	c.JSON(http.StatusOK, info)
}

// TrackShipment is public; it exposes only the synthesized timeline, never
// the order or its owner.
func (h *Handler) TrackShipment(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	trackingNumber := c.Param("trackingNumber")
	tracking, err := h.sh.Track(c.Request.Context(), trackingNumber)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Tracking number not found"})
			return
		}
		slog.Error("error in tracking shipment", slog.String(logkey.TraceID, traceId), slog.String("TrackingNumber", trackingNumber), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to track shipment"})
		return
	}

	c.JSON(http.StatusOK, tracking)
}

func (h *Handler) UpdateShippingStatus(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	orderID := c.Param("orderId")
	status := c.Query("status")
	if status == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "status parameter is required"})
		return
	}

	info, err := h.sh.UpdateStatus(c.Request.Context(), orderID, status)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Shipping info not found"})
			return
		}
		slog.Error("error in updating shipping status", slog.String(logkey.TraceID, traceId), slog.String("OrderID", orderID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update shipping status"})
		return
	}

	c.JSON(http.StatusOK, info)
}

func (h *Handler) CreateReturn(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	user, ok := currentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": http.StatusText(http.StatusUnauthorized)})
		return
	}

	var newReturn shipping.NewReturn
	if err := c.ShouldBindJSON(&newReturn); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}
	if err := h.validate.Struct(newReturn); err != nil {
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}

	ret, err := h.sh.CreateReturn(c.Request.Context(), user.ID, newReturn)
	if err != nil {
		switch {
		case errors.Is(err, shipping.ErrNotDelivered):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Order must be delivered to request return"})
		case errors.Is(err, stores.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		default:
			slog.Error("error in creating return", slog.String(logkey.TraceID, traceId), slog.String("OrderID", newReturn.OrderID), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create return request"})
		}
		return
	}

	c.JSON(http.StatusOK, ret)
}

func (h *Handler) ListReturns(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	user, ok := currentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": http.StatusText(http.StatusUnauthorized)})
		return
	}

	list, err := h.sh.ReturnsForUser(c.Request.Context(), user.ID)
	if err != nil {
		slog.Error("error in fetching returns", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch returns"})
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *Handler) AdminListReturns(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	list, err := h.sh.AdminReturns(c.Request.Context())
	if err != nil {
		slog.Error("error in fetching all returns", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch returns"})
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *Handler) AdminUpdateReturnStatus(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	returnID := c.Param("id")
	status := c.Query("status")
	if status == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "status parameter is required"})
		return
	}

	ret, err := h.sh.UpdateReturnStatus(c.Request.Context(), returnID, status)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Return request not found"})
			return
		}
		slog.Error("error in updating return status", slog.String(logkey.TraceID, traceId), slog.String("ReturnID", returnID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update return status"})
		return
	}

	c.JSON(http.StatusOK, ret)
}
