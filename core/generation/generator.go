package generation

import (
	"context"
	"iter"

	"github.com/yf-river/LifeOS/model"
)

// Generator produces chat answers from role tagged messages.
type Generator interface {
	// Generate returns the complete answer. Failures are *model.GenerationError.
	Generate(ctx context.Context, messages []model.Message) (string, error)
	// GenerateStream returns the answer as a lazy sequence of fragments.
	// A failure is yielded once as the last element.
	GenerateStream(ctx context.Context, messages []model.Message) iter.Seq2[string, error]
	// Offline reports whether answers are placeholders.
	Offline() bool
}

// NewGenerator selects the generator variant for config.
// Without credentials the offline generator is used.
func NewGenerator(config model.ChatConfiguration) (Generator, error) {
	if config.Offline() {
		return NewOfflineGenerator(), nil
	}
	return NewOpenAIGenerator(config)
}
