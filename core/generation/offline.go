package generation

import (
	"context"
	"iter"

	"github.com/yf-river/LifeOS/model"
)

// OfflineAnswer is returned instead of a model answer when no chat provider is configured.
const OfflineAnswer = "[AI offline reply] No chat provider is configured, this is a placeholder answer."

// OfflineGenerator answers every request with OfflineAnswer.
type OfflineGenerator struct{}

func NewOfflineGenerator() *OfflineGenerator {
	return &OfflineGenerator{}
}

func (g *OfflineGenerator) Generate(ctx context.Context, messages []model.Message) (string, error) {
	return OfflineAnswer, nil
}

// GenerateStream yields OfflineAnswer one character at a time.
func (g *OfflineGenerator) GenerateStream(ctx context.Context, messages []model.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, r := range OfflineAnswer {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			if !yield(string(r), nil) {
				return
			}
		}
	}
}

func (g *OfflineGenerator) Offline() bool { return true }
