package prompt

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yf-river/LifeOS/model"
)

func TestCompose(t *testing.T) {
	t.Run("Without contexts the system message discloses no matching notes", func(t *testing.T) {
		messages := Compose("What is X?", nil, nil)

		require.Len(t, messages, 2)
		assert.Equal(t, model.RoleSystem, messages[0].Role)
		assert.Contains(t, messages[0].Content, "No matching content was found in the user's notes")
		assert.Equal(t, model.Message{Role: model.RoleUser, Content: "What is X?"}, messages[1])
	})

	t.Run("Contexts are rendered into the system message", func(t *testing.T) {
		contexts := []model.RetrievedContext{
			{Text: "Tomatoes need sun.", Title: "Garden", Score: 0.9},
			{Text: "Water daily.", Title: "", Score: 0.7},
		}

		messages := Compose("How do I grow tomatoes?", contexts, nil)

		require.Len(t, messages, 2)
		system := messages[0].Content
		assert.Contains(t, system, "【Garden】\nTomatoes need sun.\n\n【Note】\nWater daily.")
		assert.Contains(t, system, "not sufficient")
		assert.NotContains(t, system, "%CONTEXT%")
	})

	t.Run("Only the last six history turns are kept in order", func(t *testing.T) {
		var history []model.Message
		for i := 0; i < 8; i++ {
			role := model.RoleUser
			if i%2 == 1 {
				role = model.RoleAssistant
			}
			history = append(history, model.Message{Role: role, Content: fmt.Sprintf("turn %d", i)})
		}

		messages := Compose("next", nil, history)

		require.Len(t, messages, 8)
		assert.Equal(t, model.RoleSystem, messages[0].Role)
		assert.Equal(t, history[2:], messages[1:7])
		assert.Equal(t, "next", messages[7].Content)
	})

	t.Run("Composing does not modify the caller's history", func(t *testing.T) {
		history := []model.Message{{Role: model.RoleUser, Content: "hi"}}

		Compose("q", nil, history)

		assert.Equal(t, []model.Message{{Role: model.RoleUser, Content: "hi"}}, history)
	})
}

func TestComposeSimple(t *testing.T) {
	t.Run("Simple prompt has a generic system message", func(t *testing.T) {
		history := []model.Message{{Role: model.RoleAssistant, Content: "hello"}}

		messages := ComposeSimple("q", history)

		require.Len(t, messages, 3)
		assert.Equal(t, simpleInstructions, messages[0].Content)
		assert.Equal(t, history[0], messages[1])
		assert.Equal(t, "q", messages[2].Content)
	})
}
