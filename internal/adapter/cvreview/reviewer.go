// Package cvreview scores a CV against a job specification using OpenAI
// chat completions, streaming the review as it is generated.
package cvreview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/catchment-service/internal/domain"
	"github.com/couchcryptid/catchment-service/internal/observability"
	openai "github.com/sashabaranov/go-openai"
)

const (
	service = "openai"

	maxTokens = 2056
)

// ChunkSink receives each piece of generated text as it arrives. Returning an
// error aborts the review.
type ChunkSink func(chunk string) error

// Reviewer implements CV review over the OpenAI chat completions API.
type Reviewer struct {
	client  *openai.Client
	model   string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewReviewer creates a Reviewer. An empty baseURL uses the OpenAI default.
func NewReviewer(apiKey, baseURL, model string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Reviewer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Reviewer{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		metrics: metrics,
		logger:  logger,
	}
}

// Review streams a review of cv against jobSpec to sink and returns the full text.
func (r *Reviewer) Review(ctx context.Context, cv, jobSpec string, sink ChunkSink) (string, error) {
	if strings.TrimSpace(cv) == "" || strings.TrimSpace(jobSpec) == "" {
		return "", fmt.Errorf("%w: both a CV and a job specification are required", domain.ErrInvalidRequest)
	}

	start := time.Now()
	text, err := r.stream(ctx, r.request(cv, jobSpec), sink)
	r.metrics.ObserveUpstream(service, observability.Outcome(err), start)
	if err != nil {
		r.logger.Error("cv review failed", "model", r.model, "error", err)
		return text, err
	}
	r.logger.Info("cv review complete", "model", r.model, "chars", len(text), "duration", time.Since(start))
	return text, nil
}

func (r *Reviewer) request(cv, jobSpec string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(cv, jobSpec)},
		},
		Temperature: 1,
		MaxTokens:   maxTokens, //nolint:staticcheck // gpt-4-turbo takes max_tokens
		TopP:        1,
		Stream:      true,
	}
}

func (r *Reviewer) stream(ctx context.Context, req openai.ChatCompletionRequest, sink ChunkSink) (string, error) {
	stream, err := r.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", upstreamError(err)
	}
	defer stream.Close()

	var b strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return b.String(), upstreamError(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		chunk := resp.Choices[0].Delta.Content
		if chunk == "" {
			continue
		}
		b.WriteString(chunk)
		if sink != nil {
			if err := sink(chunk); err != nil {
				return b.String(), fmt.Errorf("write review chunk: %w", err)
			}
		}
	}
}

// upstreamError converts OpenAI SDK errors carrying an HTTP status into
// *domain.UpstreamError.
func upstreamError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &domain.UpstreamError{Service: service, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &domain.UpstreamError{Service: service, StatusCode: reqErr.HTTPStatusCode, Body: string(reqErr.Body)}
	}
	return fmt.Errorf("openai request: %w", err)
}
