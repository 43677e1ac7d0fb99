package services

import (
  "context"
  "fmt"
  "regexp"
  "strings"

  "github.com/ndstyle/mindflow-backend/internal/logger"
  apperrors "github.com/ndstyle/mindflow-backend/internal/pkg/errors"
)

const (
  maxContentChars       = 50000
  moderationSampleChars = 4000
  minStopwordHits       = 3
)

// englishStopwords is a crude language gate: extracted text must contain at
// least minStopwordHits of these as whole words to pass.
var englishStopwords = []string{
  "the", "and", "is", "of", "to", "in", "that", "it", "for", "with",
}

type ContentValidator interface {
  Validate(ctx context.Context, text string) error
}

type contentValidator struct {
  log        *logger.Logger
  moderation ModerationClient
}

func NewContentValidator(log *logger.Logger, moderation ModerationClient) ContentValidator {
  return &contentValidator{
    log:        log.With("service", "ContentValidator"),
    moderation: moderation,
  }
}

// Validate enforces length, language and moderation constraints, in that
// order. Length and language are hard failures; a moderation *outage* is
// logged and ignored so a degraded dependency cannot stall every upload.
// A moderation *flag* is still a hard failure.
func (v *contentValidator) Validate(ctx context.Context, text string) error {
  if len(text) > maxContentChars {
    return fmt.Errorf("%w: %d chars (max %d)", apperrors.ErrContentTooLong, len(text), maxContentChars)
  }

  if countStopwordHits(text) < minStopwordHits {
    return fmt.Errorf("%w: text does not look like English", apperrors.ErrUnsupportedLanguage)
  }

  sample := text
  if len(sample) > moderationSampleChars {
    sample = sample[:moderationSampleChars]
  }
  flagged, err := v.moderation.Moderate(ctx, sample)
  if err != nil {
    v.log.Warn("Moderation call failed, continuing without it", "error", err)
    return nil
  }
  if flagged {
    return apperrors.ErrContentPolicy
  }
  return nil
}

var wordSplitRe = regexp.MustCompile(`[^a-zA-Z]+`)

// countStopwordHits counts how many distinct stopwords appear as whole words.
func countStopwordHits(text string) int {
  words := map[string]struct{}{}
  for _, w := range wordSplitRe.Split(strings.ToLower(text), -1) {
    if w != "" {
      words[w] = struct{}{}
    }
  }
  hits := 0
  for _, sw := range englishStopwords {
    if _, ok := words[sw]; ok {
      hits++
    }
  }
  return hits
}
