package services

import (
  "regexp"
  "strings"
)

// DuplicateDetector decides whether a candidate question is close enough to
// an existing one to be rejected. Kept as an interface so a semantic
// (embedding based) detector can replace the lexical one without touching
// the assessment flow.
type DuplicateDetector interface {
  IsDuplicate(candidate string, existing string) bool
}

const jaccardDuplicateThreshold = 0.8

type jaccardDetector struct {
  threshold float64
}

// NewJaccardDetector returns the default detector: case-folded bag-of-words
// Jaccard similarity. A cheap syntactic proxy, not semantic equivalence.
func NewJaccardDetector() DuplicateDetector {
  return &jaccardDetector{threshold: jaccardDuplicateThreshold}
}

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// dedupeStopwords are filler tokens that carry no signal for similarity;
// without dropping them, "What causes X?" and "What is the cause of X?"
// would not register as near-duplicates.
var dedupeStopwords = map[string]struct{}{
  "a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
  "of": {}, "to": {}, "in": {}, "on": {}, "for": {}, "with": {},
  "and": {}, "or": {}, "it": {}, "its": {}, "do": {}, "does": {}, "did": {},
}

func tokenSet(s string) map[string]struct{} {
  out := map[string]struct{}{}
  for _, tok := range tokenRe.FindAllString(strings.ToLower(s), -1) {
    if _, ok := dedupeStopwords[tok]; ok {
      continue
    }
    // crude plural fold so "causes" and "cause" compare equal
    if len(tok) > 3 && strings.HasSuffix(tok, "s") {
      tok = strings.TrimSuffix(tok, "s")
    }
    out[tok] = struct{}{}
  }
  return out
}

func (d *jaccardDetector) IsDuplicate(candidate string, existing string) bool {
  a := tokenSet(candidate)
  b := tokenSet(existing)
  if len(a) == 0 || len(b) == 0 {
    return false
  }
  intersection := 0
  for tok := range a {
    if _, ok := b[tok]; ok {
      intersection++
    }
  }
  union := len(a) + len(b) - intersection
  return float64(intersection)/float64(union) > d.threshold
}
