// Package api exposes the broker operations over HTTP. The route table,
// response shapes and error statuses form a compatibility contract with
// earlier deployments and their clients, including a legacy generation of
// path aliases.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dmitrijs2005/filebroker/internal/common"
	"github.com/dmitrijs2005/filebroker/internal/server/config"
	"github.com/dmitrijs2005/filebroker/internal/server/files"
)

// Handler contains the HTTP handlers for the broker API.
type Handler struct {
	svc *files.Service
	cfg *config.Config
}

// NewHandler creates a handler backed by the given service.
func NewHandler(svc *files.Service, cfg *config.Config) *Handler {
	return &Handler{svc: svc, cfg: cfg}
}

type uploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type uploadResponse struct {
	Success   bool              `json:"success"`
	UploadURL string            `json:"uploadUrl"`
	FileID    string            `json:"fileId"`
	Filename  string            `json:"filename"`
	ExpiresIn int               `json:"expiresIn"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
}

type downloadResponse struct {
	DownloadURL string `json:"downloadUrl"`
	Filename    string `json:"filename"`
	FileID      string `json:"fileId"`
	ExpiresIn   int    `json:"expiresIn"`
}

type listEntry struct {
	FileID      string `json:"fileId"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	UploadedAt  string `json:"uploadedAt"`
	Status      string `json:"status"`
}

type listResponse struct {
	Files []listEntry `json:"files"`
	Count int         `json:"count"`
}

type deleteResponse struct {
	Message string `json:"message"`
	FileID  string `json:"fileId"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// uploadErrorResponse mirrors the upload handler's historical 400 body,
// which carries a success flag next to the error label.
type uploadErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type notFoundResponse struct {
	Error   string `json:"error"`
	Path    string `json:"path"`
	Method  string `json:"method"`
	Message string `json:"message"`
}

type configResponse struct {
	CloudFront cdnConfig        `json:"cloudfront"`
	S3         bucketConfig     `json:"s3"`
	DynamoDB   tableConfig      `json:"dynamodb"`
	Expiration expirationConfig `json:"expiration"`
}

type cdnConfig struct {
	Domain    string `json:"domain"`
	KeyPairID string `json:"keyPairId"`
}

type bucketConfig struct {
	Bucket string `json:"bucket"`
}

type tableConfig struct {
	Table string `json:"table"`
}

type expirationConfig struct {
	Upload   int `json:"upload"`
	Download int `json:"download"`
}

// HandleUpload handles POST /api/files/upload (and its legacy alias).
// An unreadable body is treated as an empty request, which then fails the
// filename check with a 400.
func (h *Handler) HandleUpload(c echo.Context) error {
	var req uploadRequest
	if err := c.Bind(&req); err != nil {
		req = uploadRequest{}
	}

	grant, err := h.svc.IssueUploadURL(c.Request().Context(), req.Filename, req.ContentType)
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			return c.JSON(http.StatusBadRequest, uploadErrorResponse{Success: false, Error: "Missing filename"})
		}
		return h.mapServiceError(c, err, errLabels{internal: "Failed to generate upload URL"})
	}

	return c.JSON(http.StatusOK, uploadResponse{
		Success:   true,
		UploadURL: grant.UploadURL,
		FileID:    grant.FileID,
		Filename:  grant.Filename,
		ExpiresIn: grant.ExpiresIn,
		Method:    grant.Method,
		Headers:   map[string]string{"Content-Type": grant.ContentType},
	})
}

// HandleDownload handles GET /api/files/download/:id (and its legacy alias).
func (h *Handler) HandleDownload(c echo.Context) error {
	grant, err := h.svc.IssueDownloadURL(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.mapServiceError(c, err, errLabels{badRequest: "Missing file ID", internal: "Failed to generate download URL"})
	}

	return c.JSON(http.StatusOK, downloadResponse{
		DownloadURL: grant.DownloadURL,
		Filename:    grant.Filename,
		FileID:      grant.FileID,
		ExpiresIn:   grant.ExpiresIn,
	})
}

// HandleList handles GET /api/files (and its legacy alias).
func (h *Handler) HandleList(c echo.Context) error {
	infos, err := h.svc.List(c.Request().Context())
	if err != nil {
		return h.mapServiceError(c, err, errLabels{internal: "Failed to list files"})
	}

	entries := make([]listEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, listEntry{
			FileID:      info.FileID,
			Filename:    info.Filename,
			ContentType: info.ContentType,
			UploadedAt:  info.UploadedAt.UTC().Format(time.RFC3339),
			Status:      info.Status,
		})
	}

	return c.JSON(http.StatusOK, listResponse{Files: entries, Count: len(entries)})
}

// HandleDelete handles DELETE /api/files/:id (and its legacy alias).
func (h *Handler) HandleDelete(c echo.Context) error {
	result, err := h.svc.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.mapServiceError(c, err, errLabels{badRequest: "Missing file ID", internal: "Failed to delete file"})
	}

	return c.JSON(http.StatusOK, deleteResponse{
		Message: "File deleted successfully",
		FileID:  result.FileID,
	})
}

// HandleConfig handles GET /api/files/config.
func (h *Handler) HandleConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, configResponse{
		CloudFront: cdnConfig{Domain: h.cfg.CloudFrontDomain, KeyPairID: h.cfg.CloudFrontKeyPairID},
		S3:         bucketConfig{Bucket: h.cfg.BucketName},
		DynamoDB:   tableConfig{Table: h.cfg.TableName},
		Expiration: expirationConfig{
			Upload:   int(h.cfg.UploadExpiration.Seconds()),
			Download: int(h.cfg.DownloadExpiration.Seconds()),
		},
	})
}

// errLabels carries the per-operation wording of the error contract.
type errLabels struct {
	badRequest string
	internal   string
}

// mapServiceError translates service-layer errors into the structured error
// response. Nothing crosses the request boundary unhandled.
func (h *Handler) mapServiceError(c echo.Context, err error, labels errLabels) error {
	switch {
	case errors.Is(err, common.ErrValidation):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: labels.badRequest})
	case errors.Is(err, common.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "File not found"})
	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: labels.internal, Message: err.Error()})
	}
}
