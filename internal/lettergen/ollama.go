package lettergen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/jwalitptl/scribe-api/internal/config"
	"github.com/jwalitptl/scribe-api/pkg/logger"
)

var ErrEmptyCompletion = errors.New("language model returned an empty letter")

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// OllamaGenerator asks an Ollama server to write the letter. Repeated
// failures open a circuit breaker so requests fail fast for a while.
type OllamaGenerator struct {
	client  *resty.Client
	model   string
	breaker *gobreaker.CircuitBreaker
	logger  *logger.Logger
}

func NewOllamaGenerator(cfg config.LLMConfig, log *logger.Logger) *OllamaGenerator {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= 500)
		})

	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ollama",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &OllamaGenerator{
		client:  client,
		model:   cfg.Model,
		breaker: breaker,
		logger:  log,
	}
}

func (g *OllamaGenerator) Generate(ctx context.Context, in *Input) (string, error) {
	prompt, err := BuildPrompt(in)
	if err != nil {
		return "", err
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.complete(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (g *OllamaGenerator) complete(ctx context.Context, prompt string) (string, error) {
	var result, apiErr generateResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(generateRequest{Model: g.model, Prompt: prompt}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/api/generate")
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode(), apiErr.Error)
	}

	text := strings.TrimSpace(result.Response)
	if text == "" {
		return "", ErrEmptyCompletion
	}

	g.logger.Debug("letter generated by language model", "model", g.model, "chars", len(text))
	return text, nil
}
