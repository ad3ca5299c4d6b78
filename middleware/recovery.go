package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dentscan/dentclaim/apperr"
	"github.com/dentscan/dentclaim/reqlog"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into an internal error for the Errors
// middleware. http.ErrAbortHandler is re-raised so net/http drops the
// connection.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r)
			}
			fields := []zap.Field{
				zap.Any("error", r),
				zap.String("trace_id", GetTraceID(c)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Stack("stack"),
			}
			if ctx, ok := reqlog.From(c); ok {
				fields = append(fields, zap.String("request_id", ctx.RequestID))
			}
			log.Error("panic recovered", fields...)
			Fail(c, apperr.Internal(fmt.Errorf("panic: %v", r)))
		}()
		c.Next()
	}
}
