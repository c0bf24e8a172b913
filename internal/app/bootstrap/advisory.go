package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/meesalavenugopal/novacare247/internal/advisory"
	appconfig "github.com/meesalavenugopal/novacare247/internal/config"
	"github.com/meesalavenugopal/novacare247/internal/observability/metrics"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

// BuildAdvisor wires the AI advisory collaborator. Bedrock is the primary
// provider when a model id is configured and Gemini is the fallback when an
// API key is set. With neither, the advisor reports advisory.ErrUnavailable
// and reviewers proceed manually. The returned closer releases provider
// connections and is never nil.
func BuildAdvisor(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, m *metrics.AdvisoryMetrics, logger *logging.Logger) (*advisory.Advisor, io.Closer, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		primary advisory.LLMClient
		backup  advisory.LLMClient
		closer  io.Closer = nopCloser{}
	)
	if model := strings.TrimSpace(cfg.BedrockModelID); model != "" && awsCfg != nil {
		primary = advisory.NewBedrockClient(bedrockruntime.NewFromConfig(*awsCfg), model)
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		gemini, err := advisory.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: gemini: %w", err)
		}
		backup, closer = gemini, gemini
	}

	var client advisory.LLMClient
	switch {
	case primary != nil:
		client = advisory.NewFallbackClient(primary, backup, logger)
	case backup != nil:
		client = backup
	default:
		logger.Warn("no LLM provider configured; AI advisory disabled")
	}

	opts := []advisory.Option{
		advisory.WithTimeout(cfg.AdvisoryTimeout),
		advisory.WithLogger(logger.Component("advisory")),
		advisory.WithMetrics(m),
	}
	if model := strings.TrimSpace(cfg.BedrockModelID); model != "" {
		opts = append(opts, advisory.WithModel(model))
	}
	if client != nil {
		logger.Info("AI advisory enabled", "bedrock", primary != nil, "gemini", backup != nil)
	}
	return advisory.NewAdvisor(client, opts...), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
