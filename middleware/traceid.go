package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	TraceIDKey         = "trace_id"
	TraceIDHeader      = "X-Trace-ID"
	TraceParentHeader  = "traceparent"
	maxTraceIDLen      = 64
	traceParentIDLen   = 32
	traceParentMinimum = 55
)

// TraceID tags every request with a trace ID, echoed in X-Trace-ID. The
// caller's X-Trace-ID wins when it is a short token of letters, digits,
// '-', '_' or '.'; next comes the trace-id of a W3C traceparent header;
// otherwise a time-ordered UUID is generated.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if !validTraceID(traceID) {
			traceID = fromTraceParent(c.GetHeader(TraceParentHeader))
		}
		if traceID == "" {
			traceID = newTraceID()
		}
		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)
		c.Next()
	}
}

func newTraceID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

func validTraceID(s string) bool {
	if s == "" || len(s) > maxTraceIDLen {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// fromTraceParent returns the trace-id field of a version-00 traceparent,
// or "" when the header is absent or malformed.
func fromTraceParent(h string) string {
	if len(h) < traceParentMinimum {
		return ""
	}
	parts := strings.Split(h, "-")
	if len(parts) != 4 || parts[0] != "00" || len(parts[1]) != traceParentIDLen {
		return ""
	}
	id := strings.ToLower(parts[1])
	if strings.Trim(id, "0") == "" {
		return ""
	}
	for _, r := range id {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return ""
		}
	}
	return id
}

// GetTraceID retrieves the trace ID from the Gin context.
func GetTraceID(c *gin.Context) string {
	if v, exists := c.Get(TraceIDKey); exists {
		return v.(string)
	}
	return ""
}
