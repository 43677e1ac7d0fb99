package handlers

import (
  "errors"
  "net/http"

  "github.com/gin-gonic/gin"

  apperrors "github.com/ndstyle/mindflow-backend/internal/pkg/errors"
)

type APIError struct {
  Message string `json:"message"`
  Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
  Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
  msg := "unknown error"
  if err != nil {
    msg = err.Error()
  }
  c.JSON(status, ErrorEnvelope{
    Error: APIError{
      Message: msg,
      Code:    code,
    },
  })
}

func RespondOK(c *gin.Context, payload any) {
  c.JSON(http.StatusOK, payload)
}

// RespondServiceError maps the service error taxonomy onto HTTP codes.
func RespondServiceError(c *gin.Context, err error) {
  switch {
  case errors.Is(err, apperrors.ErrUnsupportedType):
    RespondError(c, http.StatusUnprocessableEntity, "unsupported_type", err)
  case errors.Is(err, apperrors.ErrPageLimit):
    RespondError(c, http.StatusRequestEntityTooLarge, "page_limit", err)
  case errors.Is(err, apperrors.ErrExtraction):
    RespondError(c, http.StatusBadRequest, "extraction_failed", err)
  case errors.Is(err, apperrors.ErrContentTooLong):
    RespondError(c, http.StatusUnprocessableEntity, "content_too_long", err)
  case errors.Is(err, apperrors.ErrUnsupportedLanguage):
    RespondError(c, http.StatusUnprocessableEntity, "unsupported_language", err)
  case errors.Is(err, apperrors.ErrContentPolicy):
    RespondError(c, http.StatusUnprocessableEntity, "content_policy", err)
  case errors.Is(err, apperrors.ErrNotFound):
    RespondError(c, http.StatusNotFound, "not_found", err)
  case errors.Is(err, apperrors.ErrInvalidArgument):
    RespondError(c, http.StatusBadRequest, "invalid_argument", err)
  default:
    RespondError(c, http.StatusInternalServerError, "internal", err)
  }
}
