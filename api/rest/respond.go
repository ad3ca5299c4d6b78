package rest

import (
	"net/http"
	"strings"

	"github.com/dentscan/dentclaim/apperr"
	mw "github.com/dentscan/dentclaim/middleware"
	"github.com/dentscan/dentclaim/model"
	"github.com/dentscan/dentclaim/reqlog"
	"github.com/gin-gonic/gin"
)

// envelope is the success body of every JSON route.
type envelope struct {
	Data    any    `json:"data"`
	Message string `json:"message"`
}

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, envelope{Data: data, Message: message})
}

func ok(c *gin.Context, data any, message string) {
	respond(c, http.StatusOK, data, message)
}

// bindJSON decodes the body into dst and records a failure on c. Bodies
// declared as anything but JSON are refused, since the audit stage only
// normalises JSON.
func bindJSON(c *gin.Context, dst any) bool {
	if !reqlog.IsJSONContent(c.GetHeader("Content-Type")) {
		mw.Fail(c, apperr.UnsupportedMedia("Content-Type must be application/json"))
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		mw.Fail(c, err)
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		mw.Fail(c, err)
		return false
	}
	return true
}

// idParam returns the :id path parameter if it is a well-formed entity ID.
func idParam(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if !model.IsValidID(id) {
		mw.Fail(c, apperr.ValidationFields("invalid id", map[string]string{"id": "must be a valid id"}))
		return "", false
	}
	return id, true
}

// rejectUnknownQuery fails the request if it carries a query key outside
// allowed.
func rejectUnknownQuery(c *gin.Context, allowed ...string) bool {
	for key := range c.Request.URL.Query() {
		found := false
		for _, a := range allowed {
			if key == a {
				found = true
				break
			}
		}
		if !found {
			mw.Fail(c, apperr.ValidationFields("unknown query parameter "+key,
				map[string]string{key: "is not allowed"}))
			return false
		}
	}
	return true
}
