// Package logkey holds the attribute keys used across structured logs so
// the same field name shows up for every service.
package logkey

const (
	TraceID = "TRACE ID"
	ERROR   = "ERROR"
)
