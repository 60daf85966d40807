package matcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"
)

// GeminiClient calls the Gemini generateContent endpoint and validates its
// JSON answer.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	retry      RetryConfig
}

type GeminiOption func(*GeminiClient)

func WithBaseURL(baseURL string) GeminiOption {
	return func(c *GeminiClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithModel(model string) GeminiOption {
	return func(c *GeminiClient) {
		if model != "" {
			c.model = model
		}
	}
}

func WithTimeout(timeout time.Duration) GeminiOption {
	return func(c *GeminiClient) { c.httpClient.Timeout = timeout }
}

func WithHTTPClient(client *http.Client) GeminiOption {
	return func(c *GeminiClient) { c.httpClient = client }
}

func WithRetryConfig(cfg RetryConfig) GeminiOption {
	return func(c *GeminiClient) { c.retry = cfg }
}

// NewGeminiClient creates a client. An empty apiKey yields a client whose
// Match always fails with ErrNotConfigured.
func NewGeminiClient(apiKey string, opts ...GeminiOption) *GeminiClient {
	c := &GeminiClient{
		apiKey:     apiKey,
		model:      DefaultModel,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 90 * time.Second},
		retry:      DefaultRetryConfig,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type (
	geminiPart struct {
		Text string `json:"text"`
	}

	geminiContent struct {
		Parts []geminiPart `json:"parts"`
	}

	geminiRequest struct {
		Contents         []geminiContent `json:"contents"`
		GenerationConfig map[string]any  `json:"generationConfig"`
	}

	geminiResponse struct {
		Candidates []struct {
			Content      geminiContent `json:"content"`
			FinishReason string        `json:"finishReason"`
		} `json:"candidates"`
	}
)

// Match implements Matcher.
func (c *GeminiClient) Match(ctx context.Context, req Request) (Result, error) {
	if c.apiKey == "" {
		return Result{}, newError(ErrNotConfigured, false, nil, "Gemini API key not configured")
	}

	prompt, err := buildPrompt(req)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	text, err := WithRetry(ctx, c.retry, func(ctx context.Context) (string, error) {
		return c.callGemini(ctx, prompt, req)
	})
	if err != nil {
		slog.ErrorContext(ctx, "Matcher call failed", "model", c.model, "error", err)
		return Result{}, err
	}

	suggestions, report, err := ParseSuggestions(ctx, []byte(stripCodeFences(text)))
	if err != nil {
		return Result{}, err
	}

	slog.InfoContext(ctx, "Matcher returned suggestions",
		"model", c.model,
		"suggestions", report.Suggestions,
		"cells", report.Cells,
		"quarantined_suggestions", report.QuarantinedSuggestions,
		"quarantined_cells", report.QuarantinedCells,
		"duration_ms", time.Since(start).Milliseconds())

	return Result{Suggestions: suggestions, Report: report}, nil
}

// callGemini performs one generateContent call and returns the first
// candidate's text.
func (c *GeminiClient) callGemini(ctx context.Context, prompt string, req Request) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))

	body := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{Text: prompt},
				{Text: "BILLING:\n" + req.BillingText},
				{Text: "BANK STATEMENT:\n" + req.BankText},
			},
		}},
		GenerationConfig: map[string]any{
			"temperature":      0.1,
			"responseMimeType": "application/json",
			"responseSchema":   responseSchema,
		},
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", newError(ErrUnavailable, false, ctxErr, "Gemini API call cancelled")
		}
		// the url error would carry the api key
		var uErr *url.Error
		if errors.As(err, &uErr) {
			err = uErr.Err
		}
		return "", newError(ErrUnavailable, true, err, "Gemini API call failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", newError(ErrUnavailable, true, err, "read response")
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		mErr := newError(ErrRateLimited, true, nil, "Gemini API rate limited")
		mErr.RetryAfter = retryAfter(resp.Header.Get("Retry-After"))
		return "", mErr
	case resp.StatusCode >= 500:
		return "", newError(ErrUnavailable, true, nil, "Gemini API error %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", newError(ErrRejected, false, nil, "Gemini API error %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return "", newError(ErrInvalidResponse, false, err, "parse Gemini response")
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", newError(ErrEmptyResponse, true, nil, "empty Gemini response")
	}

	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}

// retryAfter reads a Retry-After header given in seconds. Dates and bad
// values yield 0.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
