package services

import (
  "context"
  "fmt"
  "time"

  "github.com/google/uuid"

  "github.com/ndstyle/mindflow-backend/internal/logger"
  "github.com/ndstyle/mindflow-backend/internal/repos"
  "github.com/ndstyle/mindflow-backend/internal/types"
)

// Spaced-repetition policy constants. Deliberately a coarse approximation,
// not SM-2: the exact numbers are product policy and tests pin them.
const (
  masteryGainCorrect  = 15
  masteryLossIncorrect = 10
  masteryMin          = 0
  masteryMax          = 100
  masteryIntervalStep = 20
)

// MasteryService maintains the (node, user) mastery score and review
// schedule from quiz attempts.
type MasteryService interface {
  RecordAttempt(ctx context.Context, userID uuid.UUID, nodeID uuid.UUID, correct bool) (*types.Review, error)
}

type masteryService struct {
  log        *logger.Logger
  reviewRepo repos.ReviewRepo
  now        func() time.Time
}

func NewMasteryService(log *logger.Logger, reviewRepo repos.ReviewRepo) MasteryService {
  return &masteryService{
    log:        log.With("service", "MasteryService"),
    reviewRepo: reviewRepo,
    now:        time.Now,
  }
}

// NextScore applies the attempt delta and clamps to [0,100]. A missing
// review counts as score 0.
func NextScore(oldScore int, correct bool) int {
  score := oldScore
  if correct {
    score += masteryGainCorrect
  } else {
    score -= masteryLossIncorrect
  }
  if score < masteryMin {
    score = masteryMin
  }
  if score > masteryMax {
    score = masteryMax
  }
  return score
}

// ReviewIntervalDays doubles the interval for every 20 points of mastery,
// with a one day floor: score 0..19 -> 1d, 20..39 -> 2d, ... 100 -> 32d.
func ReviewIntervalDays(score int) int {
  multiplier := score / masteryIntervalStep
  interval := 1 << multiplier
  if interval < 1 {
    interval = 1
  }
  return interval
}

// RecordAttempt upserts the review row for (user, node). The update is an
// optimistic read-modify-write keyed on the previous score; a lost race or
// a transient write failure gets one retry before surfacing, since silently
// losing a mastery update is a correctness problem.
func (s *masteryService) RecordAttempt(ctx context.Context, userID uuid.UUID, nodeID uuid.UUID, correct bool) (*types.Review, error) {
  if userID == uuid.Nil || nodeID == uuid.Nil {
    return nil, fmt.Errorf("mastery: user and node required")
  }

  var lastErr error
  for attempt := 0; attempt < 2; attempt++ {
    review, err := s.apply(ctx, userID, nodeID, correct)
    if err != nil {
      lastErr = err
      s.log.Warn("Review upsert failed", "user_id", userID, "node_id", nodeID, "attempt", attempt, "error", err)
      continue
    }
    if review == nil {
      // optimistic check lost; re-read and reapply
      lastErr = fmt.Errorf("mastery: concurrent update for user=%s node=%s", userID, nodeID)
      continue
    }
    return review, nil
  }
  return nil, lastErr
}

func (s *masteryService) apply(ctx context.Context, userID uuid.UUID, nodeID uuid.UUID, correct bool) (*types.Review, error) {
  existing, err := s.reviewRepo.Get(ctx, nil, userID, nodeID)
  if err != nil {
    return nil, err
  }

  oldScore := 0
  if existing != nil {
    oldScore = existing.Score
  }
  newScore := NextScore(oldScore, correct)
  intervalDays := ReviewIntervalDays(newScore)
  now := s.now()
  nextReview := now.AddDate(0, 0, intervalDays)

  if existing == nil {
    review := &types.Review{
      UserID:         userID,
      NodeID:         nodeID,
      Score:          newScore,
      IntervalDays:   intervalDays,
      LastReviewedAt: now,
      NextReviewAt:   nextReview,
    }
    created, err := s.reviewRepo.Create(ctx, nil, review)
    if err != nil {
      // likely a concurrent first attempt hit the unique index; retry path
      // will re-read the winner's row
      return nil, err
    }
    return created, nil
  }

  ok, err := s.reviewRepo.UpdateIfScore(ctx, nil, existing.ID, oldScore, newScore, intervalDays, now, nextReview)
  if err != nil {
    return nil, err
  }
  if !ok {
    return nil, nil
  }
  existing.Score = newScore
  existing.IntervalDays = intervalDays
  existing.LastReviewedAt = now
  existing.NextReviewAt = nextReview
  return existing, nil
}
