package event

import (
	"github.com/viant/sagaflow/internal/clock"
	"time"
)

// Event wraps a payload with its type and origin
type Event[T any] struct {
	Type      string                 `json:"type"`
	Source    string                 `json:"source,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Data      T                      `json:"data"`
}

// NewEvent creates an event
func NewEvent[T any](eventType string, data T) *Event[T] {
	return &Event[T]{
		Type:      eventType,
		CreatedAt: clock.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
