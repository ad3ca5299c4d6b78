package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dentscan/dentclaim/apperr"
	"github.com/dentscan/dentclaim/store"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	gomysql "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errorBody is the error envelope. Stack is null in production.
type errorBody struct {
	Result string            `json:"result"`
	Code   int               `json:"code"`
	Desc   string            `json:"desc"`
	Fields map[string]string `json:"fields,omitempty"`
	Stack  *string           `json:"stack"`
}

// Fail records err on the request and stops the handler chain. The Errors
// middleware renders it.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Errors is the single boundary that turns errors recorded with c.Error
// into the error envelope. Handlers never write error responses.
func Errors(log *zap.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		e := Classify(c.Errors.Last().Err)
		if e.Kind == apperr.KindInternal {
			log.Error("request failed",
				zap.Error(e),
				zap.String("trace_id", GetTraceID(c)),
				zap.String("path", c.Request.URL.Path))
		}
		if c.Writer.Written() {
			return
		}
		body := errorBody{
			Result: e.Result(),
			Code:   e.Status(),
			Desc:   e.Message,
			Fields: e.Detail,
		}
		if !production {
			stack := e.Stack()
			body.Stack = &stack
		}
		c.AbortWithStatusJSON(e.Status(), body)
	}
}

// Classify maps any error to an *apperr.Error.
func Classify(err error) *apperr.Error {
	if e, ok := apperr.As(err); ok {
		return e
	}

	var verrs validator.ValidationErrors
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var numErr *strconv.NumError
	switch {
	case errors.As(err, &verrs):
		return validationError(verrs)
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return apperr.Validation("request body must be valid JSON")
	case errors.As(err, &typeErr):
		return apperr.ValidationFields(
			fmt.Sprintf("%q must be %s", typeErr.Field, typeErr.Type),
			map[string]string{typeErr.Field: "must be " + typeErr.Type.String()})
	case errors.As(err, &numErr):
		return apperr.Validation(fmt.Sprintf("%q is not a valid number", numErr.Num))
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("Record not found")
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return apperr.Conflict("Duplicate key")
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Timeout("Request timed out")
	default:
		return apperr.Internal(err)
	}
}

func validationError(verrs validator.ValidationErrors) *apperr.Error {
	detail := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		detail[fe.Field()] = describe(fe)
	}
	first := verrs[0]
	return apperr.ValidationFields(fmt.Sprintf("%q %s", first.Field(), describe(first)), detail)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "len":
		return "length must be " + fe.Param()
	case "oneof":
		return "must be one of [" + fe.Param() + "]"
	case "eqfield":
		return "must match " + fe.Param()
	case "numeric":
		return "must be numeric"
	case "alphanum":
		return "must contain only letters and digits"
	case "strongpwd":
		return "must be at least 8 characters with an uppercase letter, a number and a special character"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isUniqueViolation matches a MySQL duplicate-entry error that reached us
// without gorm's error translation. SQLite errors always arrive translated
// to gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	var myErr *gomysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
