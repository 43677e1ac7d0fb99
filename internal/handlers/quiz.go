package handlers

import (
  "fmt"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/ndstyle/mindflow-backend/internal/logger"
  "github.com/ndstyle/mindflow-backend/internal/services"
)

type QuizHandler struct {
  log    *logger.Logger
  docSvc services.DocumentService
}

func NewQuizHandler(log *logger.Logger, docSvc services.DocumentService) *QuizHandler {
  return &QuizHandler{
    log:    log.With("handler", "QuizHandler"),
    docSvc: docSvc,
  }
}

// GET /api/nodes/:id/questions
func (h *QuizHandler) GetQuestions(c *gin.Context) {
  id, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("node id must be a uuid"))
    return
  }
  questions, err := h.docSvc.GetQuestions(c.Request.Context(), id)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, gin.H{"questions": questions})
}

type submitAttemptRequest struct {
  QuestionID  uuid.UUID `json:"question_id" binding:"required"`
  UserID      uuid.UUID `json:"user_id" binding:"required"`
  Answer      string    `json:"answer"`
  TimeSpentMS int64     `json:"time_spent_ms"`
  SessionTag  string    `json:"session_tag"`
}

// POST /api/attempts
// Grades the answer, records the attempt and updates the review schedule.
func (h *QuizHandler) SubmitAttempt(c *gin.Context) {
  var req submitAttemptRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", err)
    return
  }
  result, err := h.docSvc.SubmitAttempt(c.Request.Context(), req.QuestionID, req.UserID, req.Answer, req.TimeSpentMS, req.SessionTag)
  if err != nil {
    RespondServiceError(c, err)
    return
  }
  RespondOK(c, result)
}
