package services

import (
  "context"
  "encoding/json"
  "fmt"
  "strings"

  "github.com/google/uuid"
  "gorm.io/datatypes"
  "gorm.io/gorm"

  "github.com/ndstyle/mindflow-backend/internal/logger"
  apperrors "github.com/ndstyle/mindflow-backend/internal/pkg/errors"
  "github.com/ndstyle/mindflow-backend/internal/repos"
  "github.com/ndstyle/mindflow-backend/internal/types"
)

// JobTypeDocumentProcess drives the async structuring/assessment sequence.
const JobTypeDocumentProcess = "document_process"

type AttemptResult struct {
  Correct     bool   `json:"correct"`
  Explanation string `json:"explanation"`
}

// DocumentService is the caller-facing surface of the pipeline: upload
// intake, status polling, knowledge/assessment reads and attempt submission.
type DocumentService interface {
  SubmitDocument(ctx context.Context, data []byte, filename string, ownerID uuid.UUID) (*types.Document, error)
  GetStatus(ctx context.Context, documentID uuid.UUID) (string, error)
  GetNodes(ctx context.Context, documentID uuid.UUID) ([]*types.Node, error)
  GetQuestions(ctx context.Context, nodeID uuid.UUID) ([]*types.Question, error)
  SubmitAttempt(ctx context.Context, questionID uuid.UUID, userID uuid.UUID, answer string, timeSpentMS int64, sessionTag string) (*AttemptResult, error)
}

type documentService struct {
  log          *logger.Logger
  db           *gorm.DB
  validator    ContentValidator
  docRepo      repos.DocumentRepo
  chunkRepo    repos.DocumentChunkRepo
  nodeRepo     repos.NodeRepo
  questionRepo repos.QuestionRepo
  attemptRepo  repos.AttemptRepo
  jobRepo      repos.JobRunRepo
  mastery      MasteryService
}

func NewDocumentService(
  log *logger.Logger,
  db *gorm.DB,
  validator ContentValidator,
  docRepo repos.DocumentRepo,
  chunkRepo repos.DocumentChunkRepo,
  nodeRepo repos.NodeRepo,
  questionRepo repos.QuestionRepo,
  attemptRepo repos.AttemptRepo,
  jobRepo repos.JobRunRepo,
  mastery MasteryService,
) DocumentService {
  return &documentService{
    log:          log.With("service", "DocumentService"),
    db:           db,
    validator:    validator,
    docRepo:      docRepo,
    chunkRepo:    chunkRepo,
    nodeRepo:     nodeRepo,
    questionRepo: questionRepo,
    attemptRepo:  attemptRepo,
    jobRepo:      jobRepo,
    mastery:      mastery,
  }
}

// SubmitDocument runs extraction and validation synchronously; a rejection
// surfaces to the caller and no document row is created. On success the
// document lands in processing state with its chunks and a queued job, all
// in one transaction, and the worker takes it from there.
func (s *documentService) SubmitDocument(ctx context.Context, data []byte, filename string, ownerID uuid.UUID) (*types.Document, error) {
  if ownerID == uuid.Nil {
    return nil, fmt.Errorf("%w: owner required", apperrors.ErrInvalidArgument)
  }

  extracted, err := ExtractText(filename, data)
  if err != nil {
    return nil, err
  }
  if err := s.validator.Validate(ctx, extracted.Text); err != nil {
    return nil, err
  }

  doc := &types.Document{
    OwnerID:       ownerID,
    OriginalName:  filename,
    DocType:       extracted.DocType,
    Status:        types.DocumentStatusProcessing,
    ExtractedText: extracted.Text,
    PageCount:     extracted.PageCount,
    SizeBytes:     extracted.SizeBytes,
  }

  err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    if _, err := s.docRepo.Create(ctx, tx, doc); err != nil {
      return err
    }
    chunks := make([]*types.DocumentChunk, 0)
    for i, text := range splitIntoChunks(extracted.Text) {
      chunks = append(chunks, &types.DocumentChunk{
        DocumentID: doc.ID,
        Index:      i,
        Text:       text,
      })
    }
    if _, err := s.chunkRepo.Create(ctx, tx, chunks); err != nil {
      return err
    }
    payload, _ := json.Marshal(map[string]string{"document_id": doc.ID.String()})
    job := &types.JobRun{
      JobType:  JobTypeDocumentProcess,
      EntityID: &doc.ID,
      Status:   types.JobStatusQueued,
      Payload:  datatypes.JSON(payload),
    }
    _, err := s.jobRepo.Create(ctx, tx, []*types.JobRun{job})
    return err
  })
  if err != nil {
    return nil, fmt.Errorf("persist document: %w", err)
  }

  s.log.Info("Document accepted", "document_id", doc.ID, "doc_type", doc.DocType, "size_bytes", doc.SizeBytes)
  return doc, nil
}

func (s *documentService) GetStatus(ctx context.Context, documentID uuid.UUID) (string, error) {
  doc, err := s.docRepo.GetByID(ctx, nil, documentID)
  if err != nil {
    return "", err
  }
  if doc == nil {
    return "", apperrors.ErrNotFound
  }
  return doc.Status, nil
}

func (s *documentService) GetNodes(ctx context.Context, documentID uuid.UUID) ([]*types.Node, error) {
  doc, err := s.docRepo.GetByID(ctx, nil, documentID)
  if err != nil {
    return nil, err
  }
  if doc == nil {
    return nil, apperrors.ErrNotFound
  }
  return s.nodeRepo.GetByDocumentID(ctx, nil, documentID)
}

func (s *documentService) GetQuestions(ctx context.Context, nodeID uuid.UUID) ([]*types.Question, error) {
  node, err := s.nodeRepo.GetByID(ctx, nil, nodeID)
  if err != nil {
    return nil, err
  }
  if node == nil {
    return nil, apperrors.ErrNotFound
  }
  return s.questionRepo.GetByNodeID(ctx, nil, nodeID)
}

// SubmitAttempt grades the answer, appends the attempt and feeds the
// mastery scheduler. The evidence anchor doubles as the explanation.
func (s *documentService) SubmitAttempt(ctx context.Context, questionID uuid.UUID, userID uuid.UUID, answer string, timeSpentMS int64, sessionTag string) (*AttemptResult, error) {
  if strings.TrimSpace(answer) == "" {
    return nil, fmt.Errorf("%w: answer required", apperrors.ErrInvalidArgument)
  }
  if userID == uuid.Nil {
    return nil, fmt.Errorf("%w: user required", apperrors.ErrInvalidArgument)
  }

  question, err := s.questionRepo.GetByID(ctx, nil, questionID)
  if err != nil {
    return nil, err
  }
  if question == nil {
    return nil, apperrors.ErrNotFound
  }

  correct := GradeAnswer(answer, question.CorrectAnswer)

  attempt := &types.Attempt{
    QuestionID:  question.ID,
    UserID:      userID,
    Answer:      answer,
    Correct:     correct,
    TimeSpentMS: timeSpentMS,
    SessionTag:  sessionTag,
  }
  if _, err := s.attemptRepo.Create(ctx, nil, attempt); err != nil {
    return nil, fmt.Errorf("persist attempt: %w", err)
  }

  if _, err := s.mastery.RecordAttempt(ctx, userID, question.NodeID, correct); err != nil {
    return nil, fmt.Errorf("update mastery: %w", err)
  }

  return &AttemptResult{Correct: correct, Explanation: question.Evidence}, nil
}
