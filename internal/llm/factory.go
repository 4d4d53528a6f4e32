package llm

import (
	"github.com/ovrelid/rpchat-backend/internal/domain"
	"github.com/ovrelid/rpchat-backend/internal/pkg/errors"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
)

// NewClient selects the adapter variant from the provider's protocol
// discriminator. No other component branches on the protocol.
func NewClient(p *domain.Provider, cfg Config, log *logger.Logger) (Client, error) {
	switch p.Protocol {
	case domain.ProtocolOpenAICompatible:
		return newOpenAIClient(p, cfg, log), nil
	case domain.ProtocolInferenceEndpoint:
		return newInferenceClient(p, cfg, log), nil
	default:
		return nil, errors.Newf(errors.KindProviderProtocol, "unknown provider protocol %q", p.Protocol)
	}
}
