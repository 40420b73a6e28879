package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"formgate-go/internal/form"
	"formgate-go/internal/service"
)

// UploadHandler accepts multipart/form-data uploads and returns the
// collected fields and stored files as JSON.
type UploadHandler struct {
	service *service.UploadService
	logger  *slog.Logger
}

// NewUploadHandler creates an UploadHandler.
func NewUploadHandler(svc *service.UploadService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		service: svc,
		logger:  logger.With("component", "upload_handler"),
	}
}

// Handle streams the request body through the form collector and responds
// with the upload result. The body is consumed incrementally; nothing is
// buffered beyond the engine's own limits.
func (h *UploadHandler) Handle(c echo.Context) error {
	mr, err := c.Request().MultipartReader()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "multipart/form-data request body required",
		})
	}

	result, err := h.service.Process(c.Request().Context(), mr)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *UploadHandler) mapError(c echo.Context, err error) error {
	h.logger.Error("upload error",
		"err", err,
		"path", c.Request().URL.Path,
	)

	if errors.Is(err, form.ErrMalformedForm) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "malformed multipart form",
		})
	}

	if errors.Is(err, form.ErrBadEncoding) {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{
			"error": "file content does not match its declared encoding",
		})
	}

	if errors.Is(err, form.ErrContentTooLarge) {
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
			"error": "decompressed file exceeds the file size limit",
		})
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return c.JSON(http.StatusRequestTimeout, map[string]string{
			"error": "request timed out",
		})
	}

	if errors.Is(err, context.Canceled) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "client disconnected",
		})
	}

	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error": "failed to process upload",
	})
}
