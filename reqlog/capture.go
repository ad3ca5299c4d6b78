package reqlog

import (
	"bytes"
	"encoding/json"

	"github.com/gin-gonic/gin"
)

const (
	contextKey = "reqlog.context"
	captureKey = "reqlog.capture"
)

// CaptureWriter decorates a gin.ResponseWriter and keeps a copy of the
// bytes written, up to a limit. The bytes forwarded to the client are
// never altered.
type CaptureWriter struct {
	gin.ResponseWriter
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (w *CaptureWriter) keep(p []byte) {
	if w.truncated {
		return
	}
	if room := w.limit - w.buf.Len(); len(p) > room {
		w.buf.Write(p[:room])
		w.truncated = true
		return
	}
	w.buf.Write(p)
}

func (w *CaptureWriter) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.keep(p[:n])
	return n, err
}

func (w *CaptureWriter) WriteString(s string) (int, error) {
	n, err := w.ResponseWriter.WriteString(s)
	w.keep([]byte(s[:n]))
	return n, err
}

// Bytes returns the captured copy of the response body.
func (w *CaptureWriter) Bytes() []byte { return w.buf.Bytes() }

// Truncated reports whether the body exceeded the capture limit.
func (w *CaptureWriter) Truncated() bool { return w.truncated }

// Body returns the captured payload parsed as JSON when it is valid JSON,
// otherwise as a raw string. An empty body is nil.
func (w *CaptureWriter) Body() any {
	raw := w.buf.Bytes()
	if len(raw) == 0 {
		return nil
	}
	if !w.truncated && json.Valid(raw) {
		if v, err := decode(raw); err == nil {
			return v
		}
	}
	return string(raw)
}

// Install wraps c.Writer in a CaptureWriter. Calling it again on the same
// request returns the existing writer without wrapping twice.
func Install(c *gin.Context, limit int) *CaptureWriter {
	if v, ok := c.Get(captureKey); ok {
		return v.(*CaptureWriter)
	}
	if limit <= 0 {
		limit = 64 << 10
	}
	cw := &CaptureWriter{ResponseWriter: c.Writer, limit: limit}
	c.Writer = cw
	c.Set(captureKey, cw)
	return cw
}

// Captured returns the request's CaptureWriter, if installed.
func Captured(c *gin.Context) (*CaptureWriter, bool) {
	v, ok := c.Get(captureKey)
	if !ok {
		return nil, false
	}
	return v.(*CaptureWriter), true
}

// Attach stores the audit context on the request.
func Attach(c *gin.Context, ctx *Context) {
	c.Set(contextKey, ctx)
}

// From returns the request's audit context, if the audit stage ran.
func From(c *gin.Context) (*Context, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil, false
	}
	ctx, ok := v.(*Context)
	return ctx, ok
}
