package services

import (
  "bytes"
  "context"
  "encoding/json"
  "fmt"
  "io"
  "net/http"
  "sort"
  "strings"
  "time"
  "github.com/pramod/validator-backend/internal/apierr"
  "github.com/pramod/validator-backend/internal/logger"
  "github.com/pramod/validator-backend/internal/types"
  "github.com/pramod/validator-backend/internal/utils"
)

// QA pairs a question's text with the recorded answer.
type QA struct {
  Text   string
  Answer string
}

type NarrativeClient interface {
  GenerateSummary(ctx context.Context, domainName, subDomainName, assessmentName string, qa map[string]QA) (string, error)
  // Model names the configured chat model, for audit rows.
  Model() string
}

type narrativeClient struct {
  httpClient  *http.Client
  log         *logger.Logger
  apiKey      string
  baseURL     string
  model       string
}

func NewNarrativeClient(log *logger.Logger) (NarrativeClient, error) {
  serviceLog := log.With("service", "NarrativeClient")
  apiKey := utils.GetEnv("OPENAI_API_KEY", "", log)
  if apiKey == "" {
    return nil, fmt.Errorf("OPENAI_API_KEY is not set")
  }
  baseURL := utils.GetEnv("OPENAI_BASE_URL", "https://api.openai.com/v1", log)
  model := utils.GetEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini", log)
  return &narrativeClient{
    httpClient: &http.Client{
      Timeout: 30 * time.Second,
    },
    log:     serviceLog,
    apiKey:  apiKey,
    baseURL: baseURL,
    model:   model,
  }, nil
}

func (c *narrativeClient) Model() string { return c.model }

type chatMessage struct {
  Role    string `json:"role"`
  Content string `json:"content"`
}

type chatRequest struct {
  Model          string        `json:"model"`
  Messages       []chatMessage `json:"messages"`
  ResponseFormat struct {
    Type string `json:"type"`
  } `json:"response_format"`
  Temperature float64 `json:"temperature"`
  MaxTokens   int     `json:"max_tokens"`
}

type chatResponse struct {
  Choices []struct {
    Message struct {
      Content string `json:"content"`
    } `json:"message"`
  } `json:"choices"`
}

func (c *narrativeClient) GenerateSummary(ctx context.Context, domainName, subDomainName, assessmentName string, qa map[string]QA) (string, error) {
  prompt := buildSummaryPrompt(domainName, subDomainName, assessmentName, qa)

  reqBody := chatRequest{
    Model: c.model,
    Messages: []chatMessage{
      {
        Role:    "system",
        Content: "You are a GxPrime compliance expert. Always address the organization as 'your company'. Be concise and actionable.",
      },
      {
        Role:    "user",
        Content: prompt,
      },
    },
    Temperature: 0.4,
    MaxTokens:   600,
  }
  reqBody.ResponseFormat.Type = "json_object"

  raw, err := json.Marshal(reqBody)
  if err != nil {
    return "", apierr.ExternalServiceFailure(fmt.Errorf("marshal chat request: %w", err))
  }

  req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(raw))
  if err != nil {
    return "", apierr.ExternalServiceFailure(err)
  }
  req.Header.Set("Authorization", "Bearer "+c.apiKey)
  req.Header.Set("Content-Type", "application/json")

  resp, err := c.httpClient.Do(req)
  if err != nil {
    if ctx.Err() != nil {
      return "", apierr.Timeout(err)
    }
    return "", apierr.ExternalServiceFailure(err)
  }
  defer resp.Body.Close()

  body, err := io.ReadAll(resp.Body)
  if err != nil {
    return "", apierr.ExternalServiceFailure(err)
  }
  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    c.log.Warn("Narrative service returned non-2xx", "status", resp.StatusCode)
    return "", apierr.ExternalServiceFailure(fmt.Errorf("narrative service status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
  }

  var parsed chatResponse
  if err := json.Unmarshal(body, &parsed); err != nil {
    return "", apierr.ExternalServiceFailure(fmt.Errorf("parse chat response: %w", err))
  }
  if len(parsed.Choices) == 0 {
    return "", apierr.ExternalServiceFailure(fmt.Errorf("no choices in narrative response"))
  }
  summary := strings.TrimSpace(parsed.Choices[0].Message.Content)
  if summary == "" {
    return "", apierr.ExternalServiceFailure(fmt.Errorf("empty narrative content"))
  }
  return summary, nil
}

func buildSummaryPrompt(domainName, subDomainName, assessmentName string, qa map[string]QA) string {
  var compliant, nonCompliant, notApplicable int
  for _, pair := range qa {
    switch pair.Answer {
    case types.AnswerCompliant:
      compliant++
    case types.AnswerNonCompliant:
      nonCompliant++
    case types.AnswerNotApplicable:
      notApplicable++
    }
  }

  // Stable question order keeps prompts reproducible
  ids := make([]string, 0, len(qa))
  for id := range qa {
    ids = append(ids, id)
  }
  sort.Strings(ids)

  var qaLines []string
  for _, id := range ids {
    pair := qa[id]
    qaLines = append(qaLines, fmt.Sprintf("Q: %s\nA: %s", pair.Text, formatAnswer(pair.Answer)))
  }

  return fmt.Sprintf(`Return a concise JSON with exactly these keys:
{
  "strengths": string[],  // 2-4 short bullet points
  "issues": [             // focus on non-compliance; 2-5 items
    {
      "area": string,     // where the problem is
      "problem": string,  // what is wrong
      "improvement": string, // how to fix (actionable)
      "where": string,    // process/location/system
      "how": string       // concrete steps/tools/standards
    }
  ],
  "next_steps": string[]  // 3-5 immediate prioritized actions
}
Constraints: Address as "your company" (not "the company"). 120-180 words total. Be direct and practical. Use plain text only - no markdown, no asterisks, no emojis, no special characters.

Assessment:
- Name: %s
- Domain: %s
- Sub-Domain: %s
- Totals: compliant=%d, non_compliant=%d, not_applicable=%d

Questions and Responses (summarized):
%s`,
    assessmentName, domainName, subDomainName,
    compliant, nonCompliant, notApplicable,
    strings.Join(qaLines, "\n\n"))
}

func formatAnswer(answer string) string {
  switch answer {
  case types.AnswerCompliant:
    return "Compliant"
  case types.AnswerNonCompliant:
    return "Non-Compliant"
  case types.AnswerNotApplicable:
    return "Not Applicable"
  default:
    return answer
  }
}
