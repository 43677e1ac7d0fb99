package services

import (
  "context"
  "fmt"

  "github.com/google/uuid"

  "github.com/ndstyle/mindflow-backend/internal/logger"
  "github.com/ndstyle/mindflow-backend/internal/repos"
  "github.com/ndstyle/mindflow-backend/internal/types"
)

// PipelineService runs the async half of the document lifecycle:
// structuring then assessment, ending in a terminal status. It is invoked
// from the jobs worker, once per document, and is idempotent against
// re-delivery: a document already out of processing is left alone.
type PipelineService interface {
  ProcessDocument(ctx context.Context, documentID uuid.UUID) error
}

type pipelineService struct {
  log         *logger.Logger
  docRepo     repos.DocumentRepo
  chunkRepo   repos.DocumentChunkRepo
  nodeRepo    repos.NodeRepo
  structuring StructuringService
  assessment  AssessmentService
}

func NewPipelineService(
  log *logger.Logger,
  docRepo repos.DocumentRepo,
  chunkRepo repos.DocumentChunkRepo,
  nodeRepo repos.NodeRepo,
  structuring StructuringService,
  assessment AssessmentService,
) PipelineService {
  return &pipelineService{
    log:         log.With("service", "PipelineService"),
    docRepo:     docRepo,
    chunkRepo:   chunkRepo,
    nodeRepo:    nodeRepo,
    structuring: structuring,
    assessment:  assessment,
  }
}

func (s *pipelineService) ProcessDocument(ctx context.Context, documentID uuid.UUID) error {
  doc, err := s.docRepo.GetByID(ctx, nil, documentID)
  if err != nil {
    return fmt.Errorf("load document: %w", err)
  }
  if doc == nil {
    return fmt.Errorf("document %s not found", documentID)
  }
  if doc.Status != types.DocumentStatusProcessing {
    s.log.Info("Document already terminal, skipping", "document_id", documentID, "status", doc.Status)
    return nil
  }

  // A concurrent delivery of the same job may have already structured the
  // document. Re-running would persist a second tree with a second root, so
  // an existing tree is reused as-is.
  nodes, err := s.nodeRepo.GetByDocumentID(ctx, nil, documentID)
  if err != nil {
    return s.fail(ctx, documentID, fmt.Errorf("load nodes: %w", err))
  }
  if len(nodes) > 0 {
    s.log.Info("Nodes already exist, skipping structuring", "document_id", documentID, "node_count", len(nodes))
  } else {
    chunks, err := s.chunkRepo.GetByDocumentID(ctx, nil, documentID)
    if err != nil {
      return s.fail(ctx, documentID, fmt.Errorf("load chunks: %w", err))
    }
    nodes, err = s.structuring.BuildMindMap(ctx, doc, chunks)
    if err != nil {
      return s.fail(ctx, documentID, fmt.Errorf("structuring: %w", err))
    }
  }

  for _, node := range nodes {
    siblings := make([]*types.Node, 0, len(nodes)-1)
    for _, other := range nodes {
      if other.ID != node.ID {
        siblings = append(siblings, other)
      }
    }
    if _, err := s.assessment.GenerateForNode(ctx, node, siblings); err != nil {
      return s.fail(ctx, documentID, fmt.Errorf("assessment for node %s: %w", node.ID, err))
    }
  }

  moved, err := s.docRepo.MarkTerminal(ctx, nil, documentID, types.DocumentStatusCompleted)
  if err != nil {
    return s.fail(ctx, documentID, fmt.Errorf("mark completed: %w", err))
  }
  if !moved {
    s.log.Warn("Document was already terminal when completing", "document_id", documentID)
    return nil
  }
  s.log.Info("Document pipeline completed", "document_id", documentID, "node_count", len(nodes))
  return nil
}

// fail moves the document to failed and returns the original error for the
// job record. A document already terminal stays untouched.
func (s *pipelineService) fail(ctx context.Context, documentID uuid.UUID, cause error) error {
  moved, err := s.docRepo.MarkTerminal(ctx, nil, documentID, types.DocumentStatusFailed)
  if err != nil {
    s.log.Error("Failed to mark document failed", "document_id", documentID, "error", err, "cause", cause)
    return cause
  }
  if moved {
    s.log.Error("Document pipeline failed", "document_id", documentID, "error", cause)
  }
  return cause
}
