package handler

import (
	"errors"
	"net/http"

	"orderdesk/internal/service"
	"orderdesk/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeError translates service errors into the response envelope.
// Validation failures carry their field so forms can highlight the input;
// unexpected persistence errors surface as internal errors, unmasked.
func writeError(c *gin.Context, err error) {
	if field, message, ok := service.FieldMessage(err); ok {
		c.JSON(http.StatusBadRequest, response.FieldError(http.StatusBadRequest, field, message))
		return
	}
	switch {
	case errors.Is(err, service.ErrOrderInactive):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.Is(err, service.ErrProtectedReference):
		c.JSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
	}
}
