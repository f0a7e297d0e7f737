package perception

import (
	"context"
	"fmt"
	"sync"
	"time"

	"codemedic/internal/config"
	"codemedic/internal/logging"
)

// probePrompt is the lightweight call used to verify a candidate model
// before committing to it. Selecting a model over a stateless REST API is
// only observable through an actual call.
const probePrompt = "Reply with the single word: ok"

// Gateway produces backend text for a prompt while hiding backend
// instability behind a fixed escalation policy: local backend first when
// configured, then the hosted backend with model fallback and bounded
// retries, and finally the deterministic stub responder. Generate therefore
// always returns usable text; callers never see provider failure classes.
//
// A single Gateway is constructed per process and shared by all sessions.
// Its only mutable state is the currently-active provider/model pair and the
// hosted-model selection, both guarded below.
type Gateway struct {
	cfg    config.Config
	hosted LLMClient // nil when no credentials are configured
	local  LLMClient // nil unless the local provider is configured
	stub   LLMClient

	// sleep is swapped out in tests so backoff does not wall-clock wait.
	sleep func(ctx context.Context, d time.Duration) bool

	// initMu serializes the hosted-model fallback search so exactly one
	// caller probes; later callers observe the selected model as readers.
	initMu sync.Mutex

	mu          sync.Mutex
	hostedReady bool
	triedModels map[string]bool
	provider    config.Provider
	model       string
}

// Option customizes gateway construction, primarily for tests.
type Option func(*Gateway)

// WithHostedClient injects the hosted backend.
func WithHostedClient(c LLMClient) Option {
	return func(g *Gateway) { g.hosted = c }
}

// WithLocalClient injects the local backend.
func WithLocalClient(c LLMClient) Option {
	return func(g *Gateway) { g.local = c }
}

// WithStubClient replaces the built-in stub responder.
func WithStubClient(c LLMClient) Option {
	return func(g *Gateway) { g.stub = c }
}

// WithSleep replaces the backoff sleeper.
func WithSleep(fn func(ctx context.Context, d time.Duration) bool) Option {
	return func(g *Gateway) { g.sleep = fn }
}

// NewGateway builds the gateway from resolved configuration. Backends that
// the configuration does not enable stay nil and the escalation policy skips
// over them.
func NewGateway(cfg config.Config, opts ...Option) *Gateway {
	g := &Gateway{
		cfg:         cfg,
		stub:        NewStubClient(),
		sleep:       sleepContext,
		triedModels: make(map[string]bool),
		provider:    cfg.Provider,
		model:       "stub",
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.hosted == nil && cfg.APIKey != "" {
		g.hosted = NewGeminiClientWithConfig(GeminiConfig{
			APIKey:          cfg.APIKey,
			Model:           cfg.Model,
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
			Timeout:         cfg.CallTimeout,
		})
	}
	if g.local == nil && cfg.Provider == config.ProviderOllama {
		g.local = NewOllamaClientWithConfig(OllamaConfig{
			BaseURL:     cfg.OllamaHost,
			Model:       cfg.OllamaModel,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxOutputTokens,
			Timeout:     cfg.CallTimeout,
		})
	}

	switch cfg.Provider {
	case config.ProviderOllama:
		g.model = cfg.OllamaModel
	case config.ProviderGemini:
		g.model = cfg.Model
	}

	return g
}

// CurrentProvider reports the provider that served (or would serve) the most
// recent call. Diagnostic only.
func (g *Gateway) CurrentProvider() config.Provider {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.provider
}

// CurrentModel reports the currently selected model. Diagnostic only.
func (g *Gateway) CurrentModel() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.model
}

func (g *Gateway) setActive(p config.Provider, model string) {
	g.mu.Lock()
	g.provider = p
	g.model = model
	g.mu.Unlock()
}

// Generate resolves a backend for the prompt and returns its raw text.
// The escalation order is fixed: configured local backend, then the hosted
// backend if credentials exist, then the stub. Generate fails only if the
// stub itself fails, which the built-in stub never does.
func (g *Gateway) Generate(ctx context.Context, prompt string) (string, error) {
	switch g.cfg.Provider {
	case config.ProviderOllama:
		if g.local == nil {
			return g.degrade(ctx, prompt, "local provider configured without a client")
		}
		out, err := g.local.Complete(ctx, prompt)
		if err == nil {
			g.setActive(config.ProviderOllama, g.localModel())
			return out, nil
		}
		logging.GatewayWarn("local backend failed (%s): %v", Classify(err), err)
		if g.hosted != nil {
			return g.generateHosted(ctx, prompt)
		}
		return g.degrade(ctx, prompt, "local backend unreachable and no hosted credentials")

	case config.ProviderGemini:
		if g.hosted == nil {
			return g.degrade(ctx, prompt, "no hosted credentials configured")
		}
		return g.generateHosted(ctx, prompt)

	default:
		return g.degrade(ctx, prompt, "stub provider configured")
	}
}

func (g *Gateway) localModel() string {
	if s, ok := g.local.(ModelSelector); ok {
		return s.GetModel()
	}
	return g.cfg.OllamaModel
}

// generateHosted drives the hosted path: ensure a working model, call it,
// classify failures and react per class. modelUnavailable restarts the
// fallback search excluding models already tried this session; network and
// server errors retry the same model with exponential backoff; auth, quota
// and unclassified errors degrade immediately.
func (g *Gateway) generateHosted(ctx context.Context, prompt string) (string, error) {
search:
	for {
		if !g.ensureModel(ctx) {
			return g.degrade(ctx, prompt, "no hosted model available")
		}

		delay := g.cfg.InitialRetryDelay
		for attempt := 0; ; attempt++ {
			out, err := g.hosted.Complete(ctx, prompt)
			if err == nil {
				g.setActive(config.ProviderGemini, g.hostedModel())
				return out, nil
			}

			class := Classify(err)
			logging.GatewayWarn("hosted call failed (model=%s class=%s attempt=%d): %v",
				g.hostedModel(), class, attempt+1, err)

			switch class {
			case FailureNetwork, FailureServer:
				if attempt >= g.cfg.MaxAPIRetries {
					return g.degrade(ctx, prompt,
						fmt.Sprintf("%s error persisted after %d retries", class, g.cfg.MaxAPIRetries))
				}
				if !g.sleep(ctx, delay) {
					return g.degrade(ctx, prompt, "context cancelled during backoff")
				}
				delay = time.Duration(float64(delay) * g.cfg.BackoffMultiplier)

			case FailureModelUnavailable:
				g.markModelUnavailable()
				// Restart the fallback search with this model excluded.
				continue search

			case FailureAuth:
				return g.degrade(ctx, prompt, "credentials rejected")

			case FailureQuota:
				return g.degrade(ctx, prompt, "quota exhausted")

			default:
				return g.degrade(ctx, prompt, "unclassified backend error")
			}
		}
	}
}

func (g *Gateway) hostedModel() string {
	if s, ok := g.hosted.(ModelSelector); ok {
		return s.GetModel()
	}
	return g.cfg.Model
}

func (g *Gateway) markModelUnavailable() {
	g.mu.Lock()
	g.hostedReady = false
	g.triedModels[g.model] = true
	g.mu.Unlock()
}

// ensureModel makes sure the hosted backend has a working model selected,
// probing the primary and then each fallback in configured order. The first
// model that survives a probe is reused for the rest of the session without
// re-probing. Returns false when every candidate has failed.
func (g *Gateway) ensureModel(ctx context.Context) bool {
	g.initMu.Lock()
	defer g.initMu.Unlock()

	g.mu.Lock()
	if g.hostedReady {
		g.mu.Unlock()
		return true
	}
	tried := make(map[string]bool, len(g.triedModels))
	for m := range g.triedModels {
		tried[m] = true
	}
	g.mu.Unlock()

	selector, selectable := g.hosted.(ModelSelector)

	candidates := append([]string{g.cfg.Model}, g.cfg.FallbackModels...)
	for _, candidate := range candidates {
		if candidate == "" || tried[candidate] {
			continue
		}
		if !selectable && candidate != g.cfg.Model {
			// Backend cannot switch models; only the primary is reachable.
			break
		}
		if selectable {
			selector.SetModel(candidate)
		}

		logging.GatewayDebug("probing hosted model %s", candidate)
		if _, err := g.hosted.Complete(ctx, probePrompt); err != nil {
			logging.GatewayWarn("model %s failed probe (%s): %v", candidate, Classify(err), err)
			g.mu.Lock()
			g.triedModels[candidate] = true
			g.mu.Unlock()
			continue
		}

		g.mu.Lock()
		g.hostedReady = true
		g.provider = config.ProviderGemini
		g.model = candidate
		g.mu.Unlock()
		logging.Gateway("hosted model selected: %s", candidate)
		return true
	}

	return false
}

// degrade routes the prompt to the stub responder. This is the terminal
// step of every failure path, trading correctness for availability.
func (g *Gateway) degrade(ctx context.Context, prompt, reason string) (string, error) {
	logging.Gateway("degrading to stub responder: %s", reason)
	g.setActive(config.ProviderStub, "stub")
	return g.stub.Complete(ctx, prompt)
}

// sleepContext waits for d or until the context is done. Returns false when
// the wait was cut short. An expired context abandons the retry sequence;
// the in-flight call itself is never force-interrupted.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
