// internal/retrieval/config.go
package retrieval

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig marks configuration rejected at construction time.
var ErrInvalidConfig = errors.New("invalid orchestrator configuration")

// Config controls the fallback chain. Immutable after New.
type Config struct {
	SimilarityThreshold   float64
	EnableDynamicPrompt   bool
	FallbackToPassthrough bool
	MaxParallelRequests   int
}

// Validate checks construction-time constraints.
func (c Config) Validate() error {
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity threshold %v outside [0,1]", ErrInvalidConfig, c.SimilarityThreshold)
	}
	if c.MaxParallelRequests <= 0 {
		return fmt.Errorf("%w: max parallel requests must be positive, got %d", ErrInvalidConfig, c.MaxParallelRequests)
	}
	return nil
}
