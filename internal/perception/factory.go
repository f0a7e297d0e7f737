package perception

import (
	"codemedic/internal/config"
)

// NewGatewayFromConfig wires the gateway from a resolved configuration.
// This is the production constructor; tests use NewGateway with injected
// clients instead.
func NewGatewayFromConfig(cfg config.Config) *Gateway {
	return NewGateway(cfg)
}

// DescribeBackends summarizes the backends a configuration enables, for the
// doctor command and startup logging.
func DescribeBackends(cfg config.Config) string {
	switch cfg.Provider {
	case config.ProviderOllama:
		if cfg.APIKey != "" {
			return "local (" + cfg.OllamaHost + ") with hosted fallback, stub terminal"
		}
		return "local (" + cfg.OllamaHost + "), stub terminal"
	case config.ProviderGemini:
		return "hosted (" + cfg.Model + "), stub terminal"
	default:
		return "stub only"
	}
}
