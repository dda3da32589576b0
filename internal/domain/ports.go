package domain

import (
	"context"
	"time"
)

// ModelRegistry is the external model-size lookup collaborator: given a
// model name, it returns the model's total parameter count in billions.
// It may fail for an unknown model. The core never holds any index lock
// while calling this — it is expected to cross the network.
type ModelRegistry interface {
	ParameterCount(ctx context.Context, modelName string) (billions float64, err error)
}

// Clock abstracts time.Now so janitors and tests can control the flow
// of time deterministically.
type Clock interface {
	Now() time.Time
}
