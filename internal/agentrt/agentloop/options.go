package agentloop

import (
	"log/slog"
	"time"

	"github.com/relaycore/agentrt/internal/agentrt/provider"
)

// Options configures a Loop's behavior: the system prompt, tool-loop
// bound, and default model parameters.
type Options struct {
	SystemPrompt      string
	MaxToolIterations int
	Model             string
	Temperature       float64
	MaxTokens         int
	Workspace         string
	Logger            *slog.Logger
}

// DefaultOptions returns the runtime's conservative defaults: a
// five-iteration tool loop bound and a 30s per-cooldown-lookup clock.
func DefaultOptions() Options {
	return Options{
		MaxToolIterations: 5,
		MaxTokens:         4096,
		Logger:            slog.Default(),
	}
}

func mergeOptions(base, override Options) Options {
	out := base
	if override.SystemPrompt != "" {
		out.SystemPrompt = override.SystemPrompt
	}
	// Zero means "use the default"; a negative value disables the tool
	// loop entirely (the first response is returned as-is, tool calls
	// and all).
	if override.MaxToolIterations > 0 {
		out.MaxToolIterations = override.MaxToolIterations
	} else if override.MaxToolIterations < 0 {
		out.MaxToolIterations = 0
	}
	if override.Model != "" {
		out.Model = override.Model
	}
	if override.Temperature != 0 {
		out.Temperature = override.Temperature
	}
	if override.MaxTokens != 0 {
		out.MaxTokens = override.MaxTokens
	}
	if override.Workspace != "" {
		out.Workspace = override.Workspace
	}
	if override.Logger != nil {
		out.Logger = override.Logger
	}
	return out
}

func (o Options) providerOptions() provider.Options {
	return provider.Options{Model: o.Model, Temperature: o.Temperature, MaxTokens: o.MaxTokens}
}

// clockNow exists so tests can stub time if ever necessary; production
// code always uses time.Now directly.
var clockNow = time.Now
