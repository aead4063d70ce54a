// Package factory constructs llm.Client instances with the full middleware
// chain for a configured model.
package factory

import (
	"fmt"

	"assistant/pkg/config"
	"assistant/pkg/llm"
	"assistant/pkg/llm/internal/anthropicclient"
	"assistant/pkg/llm/internal/googleclient"
	"assistant/pkg/llm/internal/ollamaclient"
	"assistant/pkg/llm/internal/openaiclient"
	"assistant/pkg/llm/middleware/logging"
	"assistant/pkg/llm/middleware/metrics"
	"assistant/pkg/llm/resilience"
	"assistant/pkg/logx"
)

// Options customizes client construction. Zero value gives a client with
// logging, retry, and timeout but no metrics.
type Options struct {
	Recorder metrics.Recorder
	Labels   metrics.LabelProvider
	Logger   *logx.Logger
}

// NewClient builds a client for cfg.LLM.Model. The provider is inferred from
// the model name and the API key is resolved from decrypted secrets or the
// environment. The middleware chain is, outermost first: logging, metrics,
// retry, per-attempt timeout.
func NewClient(cfg config.Config, opts Options) (llm.Client, error) {
	if cfg.LLM == nil || cfg.LLM.Model == "" {
		return nil, fmt.Errorf("no model configured")
	}

	provider, err := config.GetModelProvider(cfg.LLM.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to determine provider for model %s: %w", cfg.LLM.Model, err)
	}

	raw, err := rawClient(provider, cfg)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logx.NewLogger("llm")
	}

	middlewares := []llm.Middleware{
		logging.Middleware(logger),
	}
	if opts.Recorder != nil {
		middlewares = append(middlewares, metrics.Middleware(opts.Recorder, nil, opts.Labels))
	}
	middlewares = append(middlewares,
		resilience.RetryMiddleware(logger),
		resilience.TimeoutMiddleware(cfg.LLM.Timeout),
	)

	return llm.Chain(raw, middlewares...), nil
}

func rawClient(provider string, cfg config.Config) (llm.Client, error) {
	model := cfg.LLM.Model
	maxTokens := cfg.LLM.MaxTokens

	switch provider {
	case config.ProviderAnthropic:
		key, err := apiKey(config.SecretAnthropicKey, provider)
		if err != nil {
			return nil, err
		}
		return anthropicclient.New(key, model, maxTokens), nil
	case config.ProviderOpenAI:
		key, err := apiKey(config.SecretOpenAIKey, provider)
		if err != nil {
			return nil, err
		}
		return openaiclient.New(key, model, maxTokens), nil
	case config.ProviderGoogle:
		key, err := apiKey(config.SecretGoogleKey, provider)
		if err != nil {
			return nil, err
		}
		return googleclient.New(key, model, maxTokens), nil
	case config.ProviderOllama:
		// Local runtime, no API key.
		return ollamaclient.New(cfg.LLM.Endpoint, model, maxTokens), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q for model %s", provider, model)
	}
}

func apiKey(secretName, provider string) (string, error) {
	key, err := config.GetSecret(secretName)
	if err != nil {
		return "", fmt.Errorf("no API key for provider %s: %w", provider, err)
	}
	return key, nil
}
