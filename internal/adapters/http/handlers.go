package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/assetmanager/core/internal/domain/entities"
	"github.com/assetmanager/core/internal/infrastructure/logger"
	"github.com/assetmanager/core/internal/ports"
)

// DocumentHandler handles the /api/data persistence endpoint
type DocumentHandler struct {
	documentService ports.DocumentService
	logger          *logger.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documentService ports.DocumentService, logger *logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		logger:          logger,
	}
}

// GetData returns the stored document, or {} when there is none
func (h *DocumentHandler) GetData(c echo.Context) error {
	doc := h.documentService.Load(c.Request().Context())
	return c.JSONBlob(http.StatusOK, doc.Bytes())
}

// SaveData overwrites the stored document with the request body
func (h *DocumentHandler) SaveData(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		// BodyLimit reports an oversized body through the reader
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read request body: "+err.Error()).SetInternal(err)
	}

	if err := h.documentService.Save(c.Request().Context(), body); err != nil {
		if !errors.Is(err, entities.ErrInvalidDocument) {
			h.logger.WithRequestID(requestID(c)).WithError(err).Error("Save document failed")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
	}

	return c.JSON(http.StatusOK, SaveResponse{
		Success: true,
		Message: "Data saved successfully",
	})
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// Request/Response types
type SaveResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
