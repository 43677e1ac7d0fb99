package handlers

import (
  "fmt"
  "io"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/ndstyle/mindflow-backend/internal/logger"
  "github.com/ndstyle/mindflow-backend/internal/services"
)

// Uploads above this size are rejected before extraction even starts.
const maxUploadBytes = 20 << 20

type DocumentHandler struct {
  log    *logger.Logger
  docSvc services.DocumentService
}

func NewDocumentHandler(log *logger.Logger, docSvc services.DocumentService) *DocumentHandler {
  return &DocumentHandler{
    log:    log.With("handler", "DocumentHandler"),
    docSvc: docSvc,
  }
}

// POST /api/documents
// Multipart form: file=<upload>, owner_id=<uuid>.
// Returns 202 with the document id; the caller polls status from there.
func (h *DocumentHandler) Upload(c *gin.Context) {
  ownerID, err := uuid.Parse(c.PostForm("owner_id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_owner", fmt.Errorf("owner_id must be a uuid"))
    return
  }

  fileHeader, err := c.FormFile("file")
  if err != nil {
    RespondError(c, http.StatusBadRequest, "missing_file", err)
    return
  }
  if fileHeader.Size > maxUploadBytes {
    RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", fmt.Errorf("file exceeds %d bytes", maxUploadBytes))
    return
  }
  f, err := fileHeader.Open()
  if err != nil {
    RespondError(c, http.StatusBadRequest, "unreadable_file", err)
    return
  }
  defer f.Close()
  data, err := io.ReadAll(f)
  if err != nil {
    RespondError(c, http.StatusBadRequest, "unreadable_file", err)
    return
  }

  doc, err := h.docSvc.SubmitDocument(c.Request.Context(), data, fileHeader.Filename, ownerID)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  c.JSON(http.StatusAccepted, gin.H{"document_id": doc.ID, "status": doc.Status})
}

// GET /api/documents/:id/status
func (h *DocumentHandler) GetStatus(c *gin.Context) {
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("document id must be a uuid"))
    return
  }
  status, err := h.docSvc.GetStatus(c.Request.Context(), id)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"status": status})
}

// GET /api/documents/:id/nodes
func (h *DocumentHandler) GetNodes(c *gin.Context) {
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("document id must be a uuid"))
    return
  }
  nodes, err := h.docSvc.GetNodes(c.Request.Context(), id)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"nodes": nodes})
}
