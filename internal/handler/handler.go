// Package handler holds helpers shared by the resource handlers.
package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/carelink-api/pkg/errors"
	"github.com/jwalitptl/carelink-api/pkg/httputil"
	"github.com/jwalitptl/carelink-api/pkg/validator"
)

// Handler is a resource handler the router mounts under a group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// BindJSON decodes and validates the request body into dst. On failure it
// answers 400. missingMessage, when set, replaces the description of
// absent required fields.
func BindJSON(c *gin.Context, dst interface{}, missingMessage string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		message := validator.Message(err)
		if missingMessage != "" && validator.Missing(err) {
			message = missingMessage
		}
		httputil.RespondWithError(c, errors.Validation(message))
		return false
	}
	return true
}
