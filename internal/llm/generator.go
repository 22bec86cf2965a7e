package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sevigo/goframe/llms"
	"github.com/sevigo/goframe/llms/gemini"
	"github.com/sevigo/goframe/llms/ollama"

	"github.com/sevigo/code-reviser/internal/config"
)

// Generator turns a prompt into free text.
//
//go:generate mockgen -destination=../../mocks/mock_generator.go -package=mocks . Generator
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelGenerator adapts a goframe model to Generator.
type ModelGenerator struct {
	model   llms.Model
	timeout time.Duration
	logger  *slog.Logger
}

// NewModelGenerator wraps model. A zero timeout leaves calls bounded only by ctx.
func NewModelGenerator(model llms.Model, timeout time.Duration, logger *slog.Logger) *ModelGenerator {
	return &ModelGenerator{model: model, timeout: timeout, logger: logger}
}

func (g *ModelGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := generateWithTimeout(ctx, g.timeout, func(ctx context.Context) (string, error) {
		return g.model.Call(ctx, prompt)
	})
	if err != nil {
		return "", fmt.Errorf("LLM generation failed: %w", err)
	}
	g.logger.InfoContext(ctx, "LLM response generated successfully", "chars", len(resp), "duration", time.Since(start))
	return resp, nil
}

// generateWithTimeout runs call with a hard timeout. The call goroutine never
// blocks once the caller has given up.
func generateWithTimeout(ctx context.Context, timeout time.Duration, call func(context.Context) (string, error)) (string, error) {
	if timeout <= 0 {
		return call(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		resp string
		err  error
	}
	resultCh := make(chan result, 1)

	go func() {
		resp, err := call(ctx)
		resultCh <- result{resp, err}
	}()

	select {
	case res := <-resultCh:
		return res.resp, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// NewGeneratorLLM builds the configured model client.
func NewGeneratorLLM(ctx context.Context, cfg config.AIConfig, logger *slog.Logger) (llms.Model, error) {
	switch cfg.LLMProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini_api_key is not set for gemini provider")
		}
		return gemini.New(ctx,
			gemini.WithModel(cfg.GeneratorModel),
			gemini.WithAPIKey(cfg.GeminiAPIKey),
		)
	case "ollama":
		return ollama.New(
			ollama.WithServerURL(cfg.OllamaHost),
			ollama.WithHTTPClient(newOllamaHTTPClient()),
			ollama.WithModel(cfg.GeneratorModel),
			ollama.WithLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}

func newOllamaHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	// No client timeout: generation_timeout bounds each call.
	return &http.Client{Transport: transport}
}
