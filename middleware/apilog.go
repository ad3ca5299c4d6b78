package middleware

import (
	"github.com/dentscan/dentclaim/apperr"
	"github.com/dentscan/dentclaim/reqlog"
	"github.com/gin-gonic/gin"
)

// Audit stamps the request with its audit context before any handler runs.
// A body that cannot be normalised fails the request.
func Audit(rec *reqlog.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := rec.Record(c.Request, c.ClientIP(), GetTraceID(c))
		if err != nil {
			Fail(c, apperr.Processing(err))
			return
		}
		reqlog.Attach(c, ctx)
		c.Next()
	}
}

// Capture installs the response body interceptor. Installing it more than
// once on a request has no further effect.
func Capture(limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqlog.Install(c, limit)
		c.Next()
	}
}

// APILog emits one API log record after the rest of the chain, including
// the Errors boundary, has written the response. Requests that never
// passed the Audit stage are skipped.
func APILog(w *reqlog.Writer, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		cw := reqlog.Install(c, limit)
		c.Next()

		ctx, ok := reqlog.From(c)
		if !ok {
			return
		}
		w.Emit(ctx, c.Writer.Status(), cw.Body(), cw.Truncated())
	}
}
