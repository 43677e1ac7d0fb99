package handlers

import (
  "bytes"
  "context"
  "encoding/json"
  "mime/multipart"
  "net/http"
  "net/http/httptest"
  "strings"
  "testing"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/ndstyle/mindflow-backend/internal/logger"
  apperrors "github.com/ndstyle/mindflow-backend/internal/pkg/errors"
  "github.com/ndstyle/mindflow-backend/internal/services"
  "github.com/ndstyle/mindflow-backend/internal/types"
)

type fakeDocumentService struct {
  submitDoc     *types.Document
  submitErr     error
  status        string
  statusErr     error
  nodes         []*types.Node
  nodesErr      error
  questions     []*types.Question
  questionsErr  error
  attemptResult *services.AttemptResult
  attemptErr    error

  gotFilename string
  gotOwnerID  uuid.UUID
  gotAnswer   string
}

func (f *fakeDocumentService) SubmitDocument(ctx context.Context, data []byte, filename string, ownerID uuid.UUID) (*types.Document, error) {
  f.gotFilename = filename
  f.gotOwnerID = ownerID
  return f.submitDoc, f.submitErr
}

func (f *fakeDocumentService) GetStatus(ctx context.Context, documentID uuid.UUID) (string, error) {
  return f.status, f.statusErr
}

func (f *fakeDocumentService) GetNodes(ctx context.Context, documentID uuid.UUID) ([]*types.Node, error) {
  return f.nodes, f.nodesErr
}

func (f *fakeDocumentService) GetQuestions(ctx context.Context, nodeID uuid.UUID) ([]*types.Question, error) {
  return f.questions, f.questionsErr
}

func (f *fakeDocumentService) SubmitAttempt(ctx context.Context, questionID uuid.UUID, userID uuid.UUID, answer string, timeSpentMS int64, sessionTag string) (*services.AttemptResult, error) {
  f.gotAnswer = answer
  return f.attemptResult, f.attemptErr
}

func newTestRouter(svc services.DocumentService) *gin.Engine {
  gin.SetMode(gin.TestMode)
  log := logger.NewNop()
  docHandler := NewDocumentHandler(log, svc)
  quizHandler := NewQuizHandler(log, svc)

  r := gin.New()
  api := r.Group("/api")
  api.POST("/documents", docHandler.Upload)
  api.GET("/documents/:id/status", docHandler.GetStatus)
  api.GET("/documents/:id/nodes", docHandler.GetNodes)
  api.GET("/nodes/:id/questions", quizHandler.GetQuestions)
  api.POST("/attempts", quizHandler.SubmitAttempt)
  return r
}

func multipartUpload(t *testing.T, ownerID string, filename string, content []byte) (*bytes.Buffer, string) {
  t.Helper()
  body := &bytes.Buffer{}
  w := multipart.NewWriter(body)
  if ownerID != "" {
    if err := w.WriteField("owner_id", ownerID); err != nil {
      t.Fatalf("write owner field: %v", err)
    }
  }
  if filename != "" {
    fw, err := w.CreateFormFile("file", filename)
    if err != nil {
      t.Fatalf("create form file: %v", err)
    }
    if _, err := fw.Write(content); err != nil {
      t.Fatalf("write file: %v", err)
    }
  }
  if err := w.Close(); err != nil {
    t.Fatalf("close writer: %v", err)
  }
  return body, w.FormDataContentType()
}

func TestUpload_Accepted(t *testing.T) {
  docID := uuid.New()
  svc := &fakeDocumentService{submitDoc: &types.Document{ID: docID, Status: types.DocumentStatusProcessing}}
  r := newTestRouter(svc)

  ownerID := uuid.New()
  body, contentType := multipartUpload(t, ownerID.String(), "notes.txt", []byte("some text"))
  req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
  req.Header.Set("Content-Type", contentType)
  rec := httptest.NewRecorder()
  r.ServeHTTP(rec, req)

  if rec.Code != http.StatusAccepted {
    t.Fatalf("code=%d body=%s", rec.Code, rec.Body.String())
  }
  var resp map[string]string
  if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
    t.Fatalf("decode: %v", err)
  }
  if resp["document_id"] != docID.String() || resp["status"] != types.DocumentStatusProcessing {
    t.Fatalf("resp=%v", resp)
  }
  if svc.gotFilename != "notes.txt" || svc.gotOwnerID != ownerID {
    t.Fatalf("service got filename=%q owner=%s", svc.gotFilename, svc.gotOwnerID)
  }
}

func TestUpload_BadOwner(t *testing.T) {
  r := newTestRouter(&fakeDocumentService{})
  body, contentType := multipartUpload(t, "not-a-uuid", "notes.txt", []byte("x"))
  req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
  req.Header.Set("Content-Type", contentType)
  rec := httptest.NewRecorder()
  r.ServeHTTP(rec, req)

  if rec.Code != http.StatusBadRequest {
    t.Fatalf("code=%d", rec.Code)
  }
}

func TestUpload_MissingFile(t *testing.T) {
  r := newTestRouter(&fakeDocumentService{})
  body, contentType := multipartUpload(t, uuid.New().String(), "", nil)
  req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
  req.Header.Set("Content-Type", contentType)
  rec := httptest.NewRecorder()
  r.ServeHTTP(rec, req)

  if rec.Code != http.StatusBadRequest {
    t.Fatalf("code=%d", rec.Code)
  }
}

func TestUpload_ServiceErrorMapping(t *testing.T) {
  cases := []struct {
    name     string
    err      error
    wantCode int
  }{
    {name: "unsupported_type", err: apperrors.ErrUnsupportedType, wantCode: http.StatusUnprocessableEntity},
    {name: "page_limit", err: apperrors.ErrPageLimit, wantCode: http.StatusRequestEntityTooLarge},
    {name: "extraction", err: apperrors.ErrExtraction, wantCode: http.StatusBadRequest},
    {name: "too_long", err: apperrors.ErrContentTooLong, wantCode: http.StatusUnprocessableEntity},
    {name: "language", err: apperrors.ErrUnsupportedLanguage, wantCode: http.StatusUnprocessableEntity},
    {name: "policy", err: apperrors.ErrContentPolicy, wantCode: http.StatusUnprocessableEntity},
  }
  for _, tc := range cases {
    t.Run(tc.name, func(t *testing.T) {
      r := newTestRouter(&fakeDocumentService{submitErr: tc.err})
      body, contentType := multipartUpload(t, uuid.New().String(), "notes.txt", []byte("x"))
      req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
      req.Header.Set("Content-Type", contentType)
      rec := httptest.NewRecorder()
      r.ServeHTTP(rec, req)

      if rec.Code != tc.wantCode {
        t.Fatalf("code=%d, want %d (body=%s)", rec.Code, tc.wantCode, rec.Body.String())
      }
      var envelope ErrorEnvelope
      if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
        t.Fatalf("decode: %v", err)
      }
      if envelope.Error.Code == "" {
        t.Fatalf("error code missing in %s", rec.Body.String())
      }
    })
  }
}

func TestGetStatus(t *testing.T) {
  r := newTestRouter(&fakeDocumentService{status: types.DocumentStatusCompleted})
  req := httptest.NewRequest(http.MethodGet, "/api/documents/"+uuid.New().String()+"/status", nil)
  rec := httptest.NewRecorder()
  r.ServeHTTP(rec, req)

  if rec.Code != http.StatusOK {
    t.Fatalf("code=%d", rec.Code)
  }
  if !strings.Contains(rec.Body.String(), types.DocumentStatusCompleted) {
    t.Fatalf("body=%s", rec.Body.String())
  }
}

func TestGetStatus_NotFound(t *testing.T) {
  r := newTestRouter(&fakeDocumentService{statusErr: apperrors.ErrNotFound})
  req := httptest.NewRequest(http.MethodGet, "/api/documents/"+uuid.New().String()+"/status", nil)
  rec := httptest.NewRecorder()
  r.ServeHTTP(rec, req)

  if rec.Code != http.StatusNotFound {
    t.Fatalf("code=%d", rec.Code)
  }
}

func TestGetStatus_BadID(t *testing.T) {
  r := newTestRouter(&fakeDocumentService{})
  req := httptest.NewRequest(http.MethodGet, "/api/documents/nope/status", nil)
  rec := httptest.NewRecorder()
  r.ServeHTTP(rec, req)

  if rec.Code != http.StatusBadRequest {
    t.Fatalf("code=%d", rec.Code)
  }
}

func TestGetNodes(t *testing.T) {
  nodes := []*types.Node{{ID: uuid.New(), Title: "Root", Level: 0}}
  r := newTestRouter(&fakeDocumentService{nodes: nodes})
  req := httptest.NewRequest(http.MethodGet, "/api/documents/"+uuid.New().String()+"/nodes", nil)
  rec := httptest.NewRecorder()
  r.ServeHTTP(rec, req)

  if rec.Code != http.StatusOK {
    t.Fatalf("code=%d", rec.Code)
  }
  if !strings.Contains(rec.Body.String(), "Root") {
    t.Fatalf("body=%s", rec.Body.String())
  }
}

func TestSubmitAttempt(t *testing.T) {
  svc := &fakeDocumentService{attemptResult: &services.AttemptResult{Correct: true, Explanation: "because"}}
  r := newTestRouter(svc)

  payload, _ := json.Marshal(map[string]any{
    "question_id": uuid.New(),
    "user_id":     uuid.New(),
    "answer":      "Paris",
  })
  req := httptest.NewRequest(http.MethodPost, "/api/attempts", bytes.NewReader(payload))
  req.Header.Set("Content-Type", "application/json")
  rec := httptest.NewRecorder()
  r.ServeHTTP(rec, req)

  if rec.Code != http.StatusOK {
    t.Fatalf("code=%d body=%s", rec.Code, rec.Body.String())
  }
  var res services.AttemptResult
  if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
    t.Fatalf("decode: %v", err)
  }
  if !res.Correct || res.Explanation != "because" {
    t.Fatalf("res=%+v", res)
  }
  if svc.gotAnswer != "Paris" {
    t.Fatalf("service got answer=%q", svc.gotAnswer)
  }
}

func TestSubmitAttempt_BadBody(t *testing.T) {
  r := newTestRouter(&fakeDocumentService{})
  req := httptest.NewRequest(http.MethodPost, "/api/attempts", strings.NewReader(`{"answer":"x"}`))
  req.Header.Set("Content-Type", "application/json")
  rec := httptest.NewRecorder()
  r.ServeHTTP(rec, req)

  if rec.Code != http.StatusBadRequest {
    t.Fatalf("code=%d", rec.Code)
  }
}
