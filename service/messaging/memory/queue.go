package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/viant/sagaflow/internal/idgen"
	"github.com/viant/sagaflow/service/messaging"
)

// ErrProcessed is returned when a message is acknowledged twice
var ErrProcessed = errors.New("message already processed")

// Config for memory queue
type Config struct {
	MaxRetries  int
	RetryDelay  time.Duration
	DeadLetter  bool
	QueueBuffer int
}

// DefaultConfig returns the default memory queue configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 100,
	}
}

// Message is an in-memory queue entry
type Message[T any] struct {
	id        string
	payload   T
	queue     *Queue[T]
	attempt   int
	processed bool
	mu        sync.Mutex
}

// ID returns the message id
func (m *Message[T]) ID() string {
	return m.id
}

// T returns the payload
func (m *Message[T]) T() *T {
	return &m.payload
}

// Ack marks the message processed
func (m *Message[T]) Ack() error {
	return m.settle()
}

// Nack redelivers the message after RetryDelay until MaxRetries is
// exhausted, then moves it to the dead letter list when enabled.
func (m *Message[T]) Nack(err error) error {
	if settleErr := m.settle(); settleErr != nil {
		return settleErr
	}
	q := m.queue
	if m.attempt < q.config.MaxRetries {
		retry := &Message[T]{id: m.id, payload: m.payload, queue: q, attempt: m.attempt + 1}
		time.AfterFunc(q.config.RetryDelay, func() {
			q.messages <- retry
		})
		return nil
	}
	if q.config.DeadLetter {
		q.mu.Lock()
		q.dlq = append(q.dlq, m)
		q.mu.Unlock()
	}
	return nil
}

func (m *Message[T]) settle() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return ErrProcessed
	}
	m.processed = true
	return nil
}

// Queue is a buffered, channel backed messaging.Queue
type Queue[T any] struct {
	messages chan *Message[T]
	dlq      []*Message[T]
	config   Config
	mu       sync.Mutex
}

// NewQueue creates a memory queue
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.QueueBuffer),
		config:   config,
	}
}

// Publish enqueues a copy of t, blocking while the buffer is full
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &Message[T]{id: idgen.Sortable(), payload: *t, queue: q}
	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns the next message
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the number of buffered messages
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// DeadLetters returns the number of dead lettered messages
func (q *Queue[T]) DeadLetters() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.dlq)
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
