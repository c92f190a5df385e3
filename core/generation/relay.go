package generation

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/yf-river/LifeOS/core/prompt"
	"github.com/yf-river/LifeOS/helper"
	"github.com/yf-river/LifeOS/metrics"
	"github.com/yf-river/LifeOS/model"
)

// Retriever selects note contexts for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, userID uuid.UUID, topK int) []model.RetrievedContext
}

// Relay answers chat requests from retrieved note context, buffered or as
// a typed event stream.
type Relay struct {
	retriever Retriever
	generator Generator
	topK      int
	logger    *slog.Logger
}

// NewRelay creates a relay. topK is used for requests without top_k.
func NewRelay(retriever Retriever, generator Generator, topK int, logger *slog.Logger) *Relay {
	if topK <= 0 {
		topK = model.DefaultRAGConfiguration().ChatTopK
	}
	return &Relay{
		retriever: retriever,
		generator: generator,
		topK:      topK,
		logger:    logger,
	}
}

// Answer retrieves context and returns the buffered answer.
func (r *Relay) Answer(ctx context.Context, userID uuid.UUID, request model.ChatRequest) (*model.ChatAnswer, error) {
	if err := validate(request); err != nil {
		return nil, err
	}

	contexts := r.contexts(ctx, userID, request)
	answer, err := r.generator.Generate(ctx, prompt.Compose(request.Query, contexts, request.History))
	if err != nil {
		return nil, helper.NewError("generate answer", err)
	}

	return &model.ChatAnswer{
		Answer:     answer,
		Contexts:   contexts,
		HasContext: len(contexts) > 0,
	}, nil
}

// Simple returns a buffered answer without note context.
func (r *Relay) Simple(ctx context.Context, request model.ChatRequest) (string, error) {
	if err := validate(request); err != nil {
		return "", err
	}

	answer, err := r.generator.Generate(ctx, prompt.ComposeSimple(request.Query, request.History))
	if err != nil {
		return "", helper.NewError("generate answer", err)
	}
	return answer, nil
}

// Stream answers request as a sequence of events: one context event, the
// content fragments, then exactly one done or error event. Nothing follows
// the terminal event. A generator panic ends the stream with an error event.
// Once the client canceled ctx no further event is emitted.
func (r *Relay) Stream(ctx context.Context, userID uuid.UUID, request model.ChatRequest) iter.Seq[model.StreamEvent] {
	return func(yield func(model.StreamEvent) bool) {
		s := &eventStream{yield: yield}
		defer func() {
			if p := recover(); p != nil {
				// Panics of the consumer loop body belong to the consumer
				if s.yielding {
					panic(p)
				}
				r.logger.Error("Answer stream panicked", slog.String("user_id", userID.String()), slog.Any("panic", p))
				s.fail(errStreamPanicked)
			}
		}()

		if err := validate(request); err != nil {
			s.fail(err)
			return
		}

		contexts := r.contexts(ctx, userID, request)
		if !s.emit(model.StreamEvent{
			Type: model.EventContext,
			Data: model.ContextPayload{Contexts: contexts, HasContext: len(contexts) > 0},
		}) {
			return
		}

		messages := prompt.Compose(request.Query, contexts, request.History)
		for fragment, err := range r.generator.GenerateStream(ctx, messages) {
			if err != nil {
				if clientGone(ctx) {
					return
				}
				r.logger.Warn("Answer stream failed", slog.String("user_id", userID.String()), slog.Any("error", err))
				s.fail(err)
				return
			}
			if !s.emit(model.StreamEvent{Type: model.EventContent, Data: fragment}) {
				return
			}
		}

		if err := ctx.Err(); err != nil {
			if !clientGone(ctx) {
				s.fail(err)
			}
			return
		}
		s.emit(model.StreamEvent{Type: model.EventDone})
	}
}

var errStreamPanicked = errors.New("answer generation failed unexpectedly")

// clientGone reports whether ctx was canceled by the caller rather than timed out.
func clientGone(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}

func (r *Relay) contexts(ctx context.Context, userID uuid.UUID, request model.ChatRequest) []model.RetrievedContext {
	if !request.UseRAG {
		return []model.RetrievedContext{}
	}
	topK := request.TopK
	if topK <= 0 {
		topK = r.topK
	}
	return r.retriever.Retrieve(ctx, request.Query, userID, topK)
}

func validate(request model.ChatRequest) error {
	if strings.TrimSpace(request.Query) == "" {
		return fmt.Errorf("%w: query must not be empty", model.ErrInvalidInput)
	}
	for _, m := range request.History {
		if !m.Role.Valid() {
			return fmt.Errorf("%w: unknown history role %q", model.ErrInvalidInput, m.Role)
		}
	}
	return nil
}

type streamState int

const (
	awaitingContext streamState = iota
	streaming
	terminated
)

// eventStream enforces the event order of Relay.Stream.
type eventStream struct {
	state    streamState
	yield    func(model.StreamEvent) bool
	yielding bool
}

// emit forwards event and reports whether more events may follow.
func (s *eventStream) emit(event model.StreamEvent) bool {
	if s.state == terminated {
		return false
	}
	if event.Type == model.EventContent && s.state != streaming {
		return false
	}

	switch {
	case event.Terminal():
		s.state = terminated
	case event.Type == model.EventContext:
		s.state = streaming
	}

	metrics.StreamEvents.WithLabelValues(string(event.Type)).Inc()
	s.yielding = true
	more := s.yield(event)
	s.yielding = false
	if !more {
		s.state = terminated
		return false
	}
	return s.state != terminated
}

func (s *eventStream) fail(err error) {
	s.emit(model.StreamEvent{Type: model.EventError, Data: err.Error()})
}
