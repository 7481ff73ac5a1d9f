package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"storefront/internal/payment"
	"storefront/internal/stores"
	"storefront/pkg/ctxmanage"
	"storefront/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// ProcessPayment charges the order synchronously. A gateway decline comes
// back as 200 with success=false so the storefront can show the card error;
// only adapter faults surface as 500.
func (h *Handler) ProcessPayment(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	user, ok := currentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": http.StatusText(http.StatusUnauthorized)})
		return
	}

	var req payment.NewPayment
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}

	res, err := h.pay.Process(c.Request.Context(), user, req)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		slog.Error("payment processing error", slog.String(logkey.TraceID, traceId),
			slog.String("OrderID", req.OrderID), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Payment processing failed"})
		return
	}

	if !res.Success {
		c.JSON(http.StatusOK, gin.H{
			"success":    false,
			"message":    res.Message,
			"error_code": res.ErrorCode,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"payment_id": res.PaymentID,
		"message":    "Payment processed successfully",
	})
}
