package services

import (
  "context"
  "encoding/json"
  "fmt"
  "strings"

  "gorm.io/datatypes"

  "github.com/ndstyle/mindflow-backend/internal/logger"
  "github.com/ndstyle/mindflow-backend/internal/repos"
  "github.com/ndstyle/mindflow-backend/internal/types"
)

const (
  distractorCount = 3
  siblingPoolSize = 10
)

// AssessmentService produces validated multiple choice questions for a node
// and grades submitted answers. Generation failures degrade to a trivial
// fallback question so every node stays assessable.
type AssessmentService interface {
  GenerateForNode(ctx context.Context, node *types.Node, siblings []*types.Node) ([]*types.Question, error)
}

type assessmentService struct {
  log          *logger.Logger
  ai           AIClient
  questionRepo repos.QuestionRepo
  dupDetector  DuplicateDetector
}

func NewAssessmentService(log *logger.Logger, ai AIClient, questionRepo repos.QuestionRepo, dupDetector DuplicateDetector) AssessmentService {
  return &assessmentService{
    log:          log.With("service", "AssessmentService"),
    ai:           ai,
    questionRepo: questionRepo,
    dupDetector:  dupDetector,
  }
}

// questionEntry is the untrusted question shape from the model.
type questionEntry struct {
  Question      string   `json:"question"`
  CorrectAnswer string   `json:"correct_answer"`
  Distractors   []string `json:"distractors"`
  Evidence      string   `json:"evidence"`
}

type questionPayload struct {
  Questions []questionEntry `json:"questions"`
}

const questionSystemPrompt = `You write multiple choice quiz questions for one concept from a mind map.
Respond with JSON only: {"questions":[{"question":"...","correct_answer":"...","distractors":["...","...","..."],"evidence":"..."}]}.
Rules: 3 to 5 questions; exactly three distractors each, all plausible but wrong; evidence quotes a short verbatim excerpt supporting the correct answer.`

func (s *assessmentService) GenerateForNode(ctx context.Context, node *types.Node, siblings []*types.Node) ([]*types.Question, error) {
  existing, err := s.questionRepo.GetByNodeID(ctx, nil, node.ID)
  if err != nil {
    return nil, fmt.Errorf("load existing questions: %w", err)
  }

  candidates := s.generateCandidates(ctx, node, siblings)
  accepted := s.filterCandidates(node, candidates, existing)

  if len(accepted) == 0 {
    if len(existing) > 0 {
      // node is already assessable; re-delivery must not stack fallbacks
      return existing, nil
    }
    s.log.Warn("No usable generated questions, using fallback", "node_id", node.ID)
    accepted = []*types.Question{fallbackQuestion(node)}
  }

  created, err := s.questionRepo.Create(ctx, nil, accepted)
  if err != nil {
    return nil, fmt.Errorf("persist questions: %w", err)
  }
  return created, nil
}

func (s *assessmentService) generateCandidates(ctx context.Context, node *types.Node, siblings []*types.Node) []questionEntry {
  pool := siblings
  if len(pool) > siblingPoolSize {
    pool = pool[:siblingPoolSize]
  }
  var related strings.Builder
  for _, sib := range pool {
    fmt.Fprintf(&related, "- %s: %s\n", sib.Title, sib.Summary)
  }

  user := fmt.Sprintf(
    "Concept: %s\nSummary: %s\n\nRelated concepts from the same document (use for distractor plausibility, do not copy verbatim):\n%s",
    node.Title, node.Summary, related.String(),
  )
  raw, err := s.ai.Complete(ctx, questionSystemPrompt, user)
  if err != nil {
    s.log.Warn("Question generation call failed", "node_id", node.ID, "error", err)
    return nil
  }
  var payload questionPayload
  if err := json.Unmarshal([]byte(stripCodeFences(raw)), &payload); err != nil {
    s.log.Warn("Question response parse failed", "node_id", node.ID, "error", err)
    return nil
  }
  return payload.Questions
}

// filterCandidates applies structural validation then duplicate detection.
// A bad candidate is skipped, never fatal to the batch.
func (s *assessmentService) filterCandidates(node *types.Node, candidates []questionEntry, existing []*types.Question) []*types.Question {
  existingPrompts := make([]string, 0, len(existing))
  for _, q := range existing {
    existingPrompts = append(existingPrompts, q.Prompt)
  }

  var accepted []*types.Question
  for _, cand := range candidates {
    q, ok := validateCandidate(node, cand)
    if !ok {
      s.log.Debug("Rejected structurally invalid question", "node_id", node.ID)
      continue
    }
    if s.isDuplicateOfAny(q.Prompt, existingPrompts) {
      s.log.Debug("Rejected near-duplicate question", "node_id", node.ID)
      continue
    }
    accepted = append(accepted, q)
    existingPrompts = append(existingPrompts, q.Prompt)
  }
  return accepted
}

func (s *assessmentService) isDuplicateOfAny(prompt string, existing []string) bool {
  for _, e := range existing {
    if s.dupDetector.IsDuplicate(prompt, e) {
      return true
    }
  }
  return false
}

func validateCandidate(node *types.Node, cand questionEntry) (*types.Question, bool) {
  prompt := strings.TrimSpace(cand.Question)
  answer := strings.TrimSpace(cand.CorrectAnswer)
  evidence := strings.TrimSpace(cand.Evidence)
  if prompt == "" || answer == "" || evidence == "" {
    return nil, false
  }
  if len(cand.Distractors) != distractorCount {
    return nil, false
  }
  distractors := make([]string, 0, distractorCount)
  for _, d := range cand.Distractors {
    d = strings.TrimSpace(d)
    if d == "" || strings.EqualFold(d, answer) {
      return nil, false
    }
    distractors = append(distractors, d)
  }
  raw, err := json.Marshal(distractors)
  if err != nil {
    return nil, false
  }
  return &types.Question{
    NodeID:        node.ID,
    Prompt:        prompt,
    CorrectAnswer: answer,
    Distractors:   datatypes.JSON(raw),
    Evidence:      evidence,
    QType:         types.QuestionTypeMultipleChoice,
  }, true
}

// fallbackQuestion is the deterministic floor: a trivial recognition question
// built from the node itself.
func fallbackQuestion(node *types.Node) *types.Question {
  distractors, _ := json.Marshal([]string{
    "An unrelated concept",
    "None of the above",
    "A different topic entirely",
  })
  return &types.Question{
    NodeID:        node.ID,
    Prompt:        fmt.Sprintf("What is the main concept related to %s?", node.Title),
    CorrectAnswer: node.Title,
    Distractors:   datatypes.JSON(distractors),
    Evidence:      node.Summary,
    QType:         types.QuestionTypeFallback,
  }
}

// GradeAnswer compares a submitted answer to the stored correct answer:
// case-insensitive, whitespace-trimmed, full-string. No partial credit.
func GradeAnswer(submitted string, correct string) bool {
  return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(correct))
}
