package httputil

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/carelink-api/pkg/errors"
)

// ErrorBody is the shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// MessageBody acknowledges actions that return no entity.
type MessageBody struct {
	Message string `json:"message"`
}

// RespondWithError sends an error response. Errors that are not an
// AppError are logged and hidden behind a generic 500.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.Internal(err)
	}

	event := log.Warn()
	if appErr.StatusCode() >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Str("request_id", c.GetString("request_id")).
		Str("kind", appErr.Kind.String()).
		Int("status", appErr.StatusCode()).
		Msg("Request failed")

	c.AbortWithStatusJSON(appErr.StatusCode(), ErrorBody{Error: appErr.Message})
}

// RespondWithSuccess sends data as the response body.
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

func RespondWithMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, MessageBody{Message: message})
}

// ParseID reads an integer path parameter. A malformed value is reported
// as entity not existing, the same answer as an unknown id.
func ParseID(c *gin.Context, param, entity string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		RespondWithError(c, errors.NotFound(entity))
		return 0, false
	}
	return id, true
}

// DateLayout is the calendar date format accepted in "after" routes.
const DateLayout = "2006-01-02"

// ParseDate reads a YYYY-MM-DD path parameter as midnight UTC.
func ParseDate(c *gin.Context, param string) (time.Time, bool) {
	day, err := time.Parse(DateLayout, c.Param(param))
	if err != nil {
		RespondWithError(c, errors.Validation("Invalid date format. Please use YYYY-MM-DD"))
		return time.Time{}, false
	}
	return day, true
}
