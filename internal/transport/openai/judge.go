package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

const judgeSystemPrompt = `You judge how relevant a passage is to a search query.
Reply with JSON only, no prose.`

// Judge scores passage relevance via an OpenAI-compatible chat model.
type Judge struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// JudgeConfig holds the relevance judge settings.
type JudgeConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewJudge creates an OpenAI-compatible relevance judge.
func NewJudge(cfg *JudgeConfig) *Judge {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Judge{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Score judges one passage. The score is clamped to [0, 1].
func (j *Judge) Score(ctx context.Context, query, passage string) (float64, error) {
	prompt := fmt.Sprintf(
		"Query: %s\n\nPassage: %s\n\nReply as {\"score\": <0.0-1.0>}.",
		query, passage)

	content, err := j.complete(ctx, prompt)
	if err != nil {
		return 0, err
	}

	var parsed struct {
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return 0, fmt.Errorf("%w: %s", domain.ErrRerankParse, truncate(content, 120))
	}
	return clamp01(parsed.Score), nil
}

// ScoreBatch judges all passages in one call, expecting one score per
// passage in input order. Length validation is left to the caller, which
// owns the fallback policy.
func (j *Judge) ScoreBatch(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %s\n\n", query)
	for i, p := range passages {
		fmt.Fprintf(&sb, "Passage %d: %s\n\n", i+1, p)
	}
	fmt.Fprintf(&sb,
		"Reply as {\"scores\": [<0.0-1.0>, ...]} with exactly %d scores in passage order.",
		len(passages))

	content, err := j.complete(ctx, sb.String())
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRerankParse, truncate(content, 120))
	}
	for i := range parsed.Scores {
		parsed.Scores[i] = clamp01(parsed.Scores[i])
	}
	return parsed.Scores, nil
}

func (j *Judge) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := j.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: j.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: judgeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", parseJudgeError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", domain.ErrRerankParse)
	}
	return resp.Choices[0].Message.Content, nil
}

// parseJudgeError maps rate limits to ErrRateLimited so the pointwise
// strategy can degrade to sequential execution.
func parseJudgeError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("judge API: %w", domain.ErrRateLimited)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("judge API: %w", domain.ErrRateLimited)
	}
	return fmt.Errorf("judge request failed: %w", err)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
