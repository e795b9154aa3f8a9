package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pramod/validator-backend/internal/apierr"
	"github.com/pramod/validator-backend/internal/types"
)

func newTestNarrativeClient(t *testing.T, handler http.HandlerFunc) (NarrativeClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := &narrativeClient{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		log:        testLogger(t),
		apiKey:     "test-key",
		baseURL:    srv.URL,
		model:      "gpt-4o-mini",
	}
	return client, srv
}

func sampleQA() map[string]QA {
	return map[string]QA{
		"q2": {Text: "Are deviations closed on time?", Answer: types.AnswerNonCompliant},
		"q1": {Text: "Is training documented?", Answer: types.AnswerCompliant},
		"q3": {Text: "Is the cold chain monitored?", Answer: types.AnswerNotApplicable},
	}
}

func chatOK(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		})
	}
}

func TestGenerateSummaryRequestShape(t *testing.T) {
	var captured chatRequest
	var path, auth string
	client, _ := newTestNarrativeClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		chatOK(`{"strengths":[]}`)(w, r)
	})

	summary, err := client.GenerateSummary(context.Background(), "Quality Unit", "Documentation", "Batch Review", sampleQA())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if summary != `{"strengths":[]}` {
		t.Fatalf("unexpected summary %q", summary)
	}
	if path != "/chat/completions" {
		t.Fatalf("unexpected path %q", path)
	}
	if auth != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if captured.Model != "gpt-4o-mini" {
		t.Fatalf("model = %q", captured.Model)
	}
	if captured.Temperature != 0.4 || captured.MaxTokens != 600 {
		t.Fatalf("sampling params off: temp=%v max=%d", captured.Temperature, captured.MaxTokens)
	}
	if captured.ResponseFormat.Type != "json_object" {
		t.Fatalf("response format = %q", captured.ResponseFormat.Type)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Role != "user" {
		t.Fatalf("unexpected message layout: %+v", captured.Messages)
	}
	if !strings.Contains(captured.Messages[0].Content, "your company") {
		t.Fatalf("system message lost its address rule: %q", captured.Messages[0].Content)
	}
}

func TestGenerateSummaryNon2xx(t *testing.T) {
	client, _ := newTestNarrativeClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})
	_, err := client.GenerateSummary(context.Background(), "d", "s", "a", sampleQA())
	if !apierr.HasCode(err, apierr.CodeExternalServiceFailure) {
		t.Fatalf("expected external service failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error should carry the status: %v", err)
	}
}

func TestGenerateSummaryNoChoices(t *testing.T) {
	client, _ := newTestNarrativeClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err := client.GenerateSummary(context.Background(), "d", "s", "a", sampleQA())
	if !apierr.HasCode(err, apierr.CodeExternalServiceFailure) {
		t.Fatalf("expected external service failure, got %v", err)
	}
}

func TestGenerateSummaryEmptyContent(t *testing.T) {
	client, _ := newTestNarrativeClient(t, chatOK("   "))
	_, err := client.GenerateSummary(context.Background(), "d", "s", "a", sampleQA())
	if !apierr.HasCode(err, apierr.CodeExternalServiceFailure) {
		t.Fatalf("expected external service failure, got %v", err)
	}
}

func TestGenerateSummaryCanceledContext(t *testing.T) {
	client, _ := newTestNarrativeClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		chatOK("late")(w, r)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.GenerateSummary(ctx, "d", "s", "a", sampleQA())
	if !apierr.HasCode(err, apierr.CodeTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestBuildSummaryPrompt(t *testing.T) {
	prompt := buildSummaryPrompt("Quality Unit", "Documentation", "Batch Review", sampleQA())

	if !strings.Contains(prompt, "compliant=1, non_compliant=1, not_applicable=1") {
		t.Fatalf("totals line missing or wrong:\n%s", prompt)
	}
	if !strings.Contains(prompt, "- Name: Batch Review") ||
		!strings.Contains(prompt, "- Domain: Quality Unit") ||
		!strings.Contains(prompt, "- Sub-Domain: Documentation") {
		t.Fatalf("assessment header missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Q: Is training documented?\nA: Compliant") {
		t.Fatalf("answer not rendered for display:\n%s", prompt)
	}
	if !strings.Contains(prompt, "A: Non-Compliant") || !strings.Contains(prompt, "A: Not Applicable") {
		t.Fatalf("answer display mapping incomplete:\n%s", prompt)
	}

	// Question order follows the sorted ids
	q1 := strings.Index(prompt, "Is training documented?")
	q2 := strings.Index(prompt, "Are deviations closed on time?")
	q3 := strings.Index(prompt, "Is the cold chain monitored?")
	if q1 < 0 || q2 < 0 || q3 < 0 || !(q1 < q2 && q2 < q3) {
		t.Fatalf("questions not in id order: %d %d %d", q1, q2, q3)
	}
}

func TestFormatAnswerPassthrough(t *testing.T) {
	if got := formatAnswer("SOMETHING_ELSE"); got != "SOMETHING_ELSE" {
		t.Fatalf("unknown answers pass through, got %q", got)
	}
}
