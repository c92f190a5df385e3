package generation

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/yf-river/LifeOS/model"
)

var errStreamStopped = errors.New("stream stopped by consumer")

// OpenAIGenerator calls an OpenAI compatible chat completion endpoint.
type OpenAIGenerator struct {
	llm    *openai.LLM
	config model.ChatConfiguration
}

// NewOpenAIGenerator creates a generator for config.
func NewOpenAIGenerator(config model.ChatConfiguration) (*OpenAIGenerator, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("%w: chat api key", model.ErrConfigurationAbsent)
	}

	defaults := model.DefaultChatConfiguration()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.StreamTimeout <= 0 {
		config.StreamTimeout = defaults.StreamTimeout
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaults.MaxTokens
	}

	// Timeouts are applied per call through the context.
	llm, err := openai.New(
		openai.WithToken(strings.TrimPrefix(config.APIKey, "Bearer ")),
		openai.WithBaseURL(strings.TrimRight(config.BaseURL, "/")),
		openai.WithModel(config.Model),
		openai.WithHTTPClient(&http.Client{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	return &OpenAIGenerator{
		llm:    llm,
		config: config,
	}, nil
}

// Generate sends one buffered completion request.
func (g *OpenAIGenerator) Generate(ctx context.Context, messages []model.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	resp, err := g.llm.GenerateContent(ctx, toMessageContent(messages), g.callOptions()...)
	if err != nil {
		return "", &model.GenerationError{Err: classify(err)}
	}
	if len(resp.Choices) == 0 {
		return "", &model.GenerationError{Err: fmt.Errorf("%w: no choices in response", model.ErrProviderResponseInvalid)}
	}

	return resp.Choices[0].Content, nil
}

// GenerateStream sends one streaming completion request and yields the
// content deltas as they arrive.
func (g *OpenAIGenerator) GenerateStream(ctx context.Context, messages []model.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithTimeout(ctx, g.config.StreamTimeout)
		defer cancel()

		stopped := false
		options := append(g.callOptions(), llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			if !yield(string(chunk), nil) {
				stopped = true
				return errStreamStopped
			}
			return nil
		}))

		_, err := g.llm.GenerateContent(ctx, toMessageContent(messages), options...)
		if stopped {
			return
		}
		if err != nil {
			yield("", classify(err))
		}
	}
}

func (g *OpenAIGenerator) Offline() bool { return false }

func (g *OpenAIGenerator) callOptions() []llms.CallOption {
	return []llms.CallOption{
		llms.WithMaxTokens(g.config.MaxTokens),
		llms.WithTemperature(g.config.Temperature),
	}
}

func toMessageContent(messages []model.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, len(messages))
	for i, m := range messages {
		content[i] = llms.TextParts(messageType(m.Role), m.Content)
	}
	return content
}

func messageType(role model.Role) llms.ChatMessageType {
	switch role {
	case model.RoleSystem:
		return llms.ChatMessageTypeSystem
	case model.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func classify(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, openai.ErrEmptyResponse):
		return fmt.Errorf("%w: %v", model.ErrProviderResponseInvalid, err)
	default:
		return fmt.Errorf("%w: %v", model.ErrProviderTransport, err)
	}
}
