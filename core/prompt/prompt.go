package prompt

import (
	"strings"

	"github.com/yf-river/LifeOS/model"
)

// DefaultContextTitle labels contexts whose note has no title.
const DefaultContextTitle = "Note"

const ragInstructions = `You are an intelligent note assistant. Answer the user's question based on the content of their notes.

The following excerpts were retrieved from the user's notes:

%CONTEXT%

Answer from these excerpts. If they are not sufficient to answer the question, tell the user so explicitly and add what you know about the topic.
Keep the answer concise, accurate and helpful. Answer in the language of the user's question.`

const noContextInstructions = `You are an intelligent note assistant. No matching content was found in the user's notes for this question.
Answer from your general knowledge, and state clearly that the answer does not come from the user's notes.
Keep the answer concise, accurate and helpful. Answer in the language of the user's question.`

const simpleInstructions = `You are a helpful assistant. Answer in the language of the user's question.`

// Compose builds the chat messages of a retrieval augmented answer:
// one system message, at most the last model.HistoryWindow history turns
// and the query as final user message.
func Compose(query string, contexts []model.RetrievedContext, history []model.Message) []model.Message {
	system := noContextInstructions
	if len(contexts) > 0 {
		system = strings.Replace(ragInstructions, "%CONTEXT%", RenderContexts(contexts), 1)
	}
	return assemble(system, query, history)
}

// ComposeSimple builds the messages of a plain assistant answer without note context.
func ComposeSimple(query string, history []model.Message) []model.Message {
	return assemble(simpleInstructions, query, history)
}

// RenderContexts renders each context as its bracketed title followed by
// its text, separated by blank lines.
func RenderContexts(contexts []model.RetrievedContext) string {
	parts := make([]string, len(contexts))
	for i, c := range contexts {
		title := c.Title
		if strings.TrimSpace(title) == "" {
			title = DefaultContextTitle
		}
		parts[i] = "【" + title + "】\n" + c.Text
	}
	return strings.Join(parts, "\n\n")
}

// RecentHistory returns the last model.HistoryWindow turns in original order.
func RecentHistory(history []model.Message) []model.Message {
	if len(history) > model.HistoryWindow {
		return history[len(history)-model.HistoryWindow:]
	}
	return history
}

func assemble(system string, query string, history []model.Message) []model.Message {
	recent := RecentHistory(history)

	messages := make([]model.Message, 0, len(recent)+2)
	messages = append(messages, model.Message{Role: model.RoleSystem, Content: system})
	messages = append(messages, recent...)
	messages = append(messages, model.Message{Role: model.RoleUser, Content: query})

	return messages
}
