package model

type EventType string

const (
	EventContext EventType = "context"
	EventContent EventType = "content"
	EventDone    EventType = "done"
	EventError   EventType = "error"
)

// StreamEvent is one frame of an incremental answer.
type StreamEvent struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

// ContextPayload is the data of the context event.
type ContextPayload struct {
	Contexts   []RetrievedContext `json:"contexts"`
	HasContext bool               `json:"has_context"`
}

// Terminal reports whether no event may follow e.
func (e StreamEvent) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}
