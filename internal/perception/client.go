// Package perception contains the generation backends and the recovery
// gateway that makes them reliable. Backends turn an opaque prompt into raw
// text; everything that deals with their instability (classification, retry,
// model fallback, stub degradation) lives in the Gateway.
package perception

import "context"

// LLMClient is the minimal capability the gateway requires from a backend.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ModelSelector is implemented by backends that can switch between candidate
// models at runtime. The gateway uses it for the fallback-model search; a
// backend without it is pinned to its configured model.
type ModelSelector interface {
	SetModel(model string)
	GetModel() string
}
