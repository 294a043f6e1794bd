package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/drak905/replit-kara/internal/service"
)

// HandleServiceError maps business errors onto HTTP status codes. Every
// handler funnels service failures through here so the taxonomy stays in
// one place.
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRoomNotFound), errors.Is(err, service.ErrSongNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSearchUnavailable):
		ErrorResponse(c, http.StatusInternalServerError, service.ErrSearchUnavailable.Error())
	default:
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
