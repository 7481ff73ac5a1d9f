// Package ctxmanage carries per-request values, currently just the trace id
// that the logging middleware assigns to every incoming request.
package ctxmanage

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const TraceIDKey = "trace-id"

// SetTraceIdOfRequest assigns a fresh trace id to the request and returns it.
func SetTraceIdOfRequest(c *gin.Context) string {
	traceId := uuid.NewString()
	c.Set(TraceIDKey, traceId)
	return traceId
}

// GetTraceIdOfRequest returns the trace id set by the logging middleware.
// Requests that bypass the middleware (tests hitting a bare engine) get a
// fresh id so log lines are still correlatable.
func GetTraceIdOfRequest(c *gin.Context) string {
	if traceId, ok := c.Get(TraceIDKey); ok {
		if s, ok := traceId.(string); ok {
			return s
		}
	}
	return SetTraceIdOfRequest(c)
}
