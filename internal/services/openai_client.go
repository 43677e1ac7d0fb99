package services

import (
  "bytes"
  "context"
  "encoding/json"
  "fmt"
  "io"
  "net/http"
  "os"
  "strconv"
  "strings"
  "time"

  "github.com/ndstyle/mindflow-backend/internal/logger"
)

// AIClient is the single generative-text dependency of the pipeline.
// Calls get exactly one attempt with a bounded timeout; every failure is
// handled by a deterministic fallback in the caller, never by retrying here.
type AIClient interface {
  Complete(ctx context.Context, system string, user string) (string, error)
}

// ModerationClient flags policy-violating text. Failures from it are
// non-fatal to the pipeline (see ContentValidator).
type ModerationClient interface {
  Moderate(ctx context.Context, text string) (bool, error)
}

type openAIClient struct {
  log             *logger.Logger
  baseURL         string
  apiKey          string
  model           string
  moderationModel string
  httpClient      *http.Client
}

// NewOpenAIClient builds a client implementing both AIClient and
// ModerationClient against the OpenAI HTTP API.
func NewOpenAIClient(log *logger.Logger) (*openAIClient, error) {
  apiKey := os.Getenv("OPENAI_API_KEY")
  if apiKey == "" {
    return nil, fmt.Errorf("missing OPENAI_API_KEY")
  }

  baseURL := os.Getenv("OPENAI_BASE_URL")
  if baseURL == "" {
    baseURL = "https://api.openai.com"
  }

  model := os.Getenv("OPENAI_MODEL")
  if model == "" {
    model = "gpt-4o-mini"
  }

  moderationModel := os.Getenv("OPENAI_MODERATION_MODEL")
  if moderationModel == "" {
    moderationModel = "omni-moderation-latest"
  }

  timeoutSec := 60
  if v := os.Getenv("OPENAI_TIMEOUT_SECONDS"); v != "" {
    if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
      timeoutSec = parsed
    }
  }

  return &openAIClient{
    log:             log.With("service", "OpenAIClient"),
    baseURL:         baseURL,
    apiKey:          apiKey,
    model:           model,
    moderationModel: moderationModel,
    httpClient:      &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
  }, nil
}

type openAIHTTPError struct {
  StatusCode int
  Body       string
}

func (e *openAIHTTPError) Error() string {
  return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (c *openAIClient) post(ctx context.Context, path string, payload any, out any) error {
  body, err := json.Marshal(payload)
  if err != nil {
    return fmt.Errorf("marshal request: %w", err)
  }
  req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
  if err != nil {
    return fmt.Errorf("build request: %w", err)
  }
  req.Header.Set("Authorization", "Bearer "+c.apiKey)
  req.Header.Set("Content-Type", "application/json")

  resp, err := c.httpClient.Do(req)
  if err != nil {
    return err
  }
  defer resp.Body.Close()
  respBody, err := io.ReadAll(resp.Body)
  if err != nil {
    return fmt.Errorf("read response: %w", err)
  }
  if resp.StatusCode < 200 || resp.StatusCode > 299 {
    return &openAIHTTPError{StatusCode: resp.StatusCode, Body: truncateForLog(string(respBody), 512)}
  }
  if err := json.Unmarshal(respBody, out); err != nil {
    return fmt.Errorf("decode response: %w", err)
  }
  return nil
}

func (c *openAIClient) Complete(ctx context.Context, system string, user string) (string, error) {
  reqPayload := map[string]any{
    "model": c.model,
    "messages": []map[string]string{
      {"role": "system", "content": system},
      {"role": "user", "content": user},
    },
  }
  var parsed struct {
    Choices []struct {
      Message struct {
        Content string `json:"content"`
      } `json:"message"`
    } `json:"choices"`
  }
  if err := c.post(ctx, "/v1/chat/completions", reqPayload, &parsed); err != nil {
    c.log.Warn("Chat completion failed", "error", err)
    return "", err
  }
  if len(parsed.Choices) == 0 {
    return "", fmt.Errorf("openai returned no choices")
  }
  return parsed.Choices[0].Message.Content, nil
}

func (c *openAIClient) Moderate(ctx context.Context, text string) (bool, error) {
  reqPayload := map[string]any{
    "model": c.moderationModel,
    "input": text,
  }
  var parsed struct {
    Results []struct {
      Flagged bool `json:"flagged"`
    } `json:"results"`
  }
  if err := c.post(ctx, "/v1/moderations", reqPayload, &parsed); err != nil {
    return false, err
  }
  if len(parsed.Results) == 0 {
    return false, fmt.Errorf("openai moderation returned no results")
  }
  return parsed.Results[0].Flagged, nil
}

func truncateForLog(s string, n int) string {
  if len(s) <= n {
    return s
  }
  return s[:n]
}
