package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/sagaflow/service/messaging"
)

type statusChange struct {
	ID     string
	Status string
}

func TestService_PublisherOf(t *testing.T) {
	srv, err := New(messaging.VendorMemory)
	require.NoError(t, err)
	defer srv.Close()

	received := make(chan *Event[statusChange], 2)
	require.NoError(t, SetListenerOf[statusChange](srv, func(e *Event[statusChange]) {
		received <- e
	}))
	all := make(chan *Event[any], 2)
	srv.SetListener(func(e *Event[any]) {
		all <- e
	})

	publisher, err := PublisherOf[statusChange](srv)
	require.NoError(t, err)
	same, err := PublisherOf[statusChange](srv)
	require.NoError(t, err)
	assert.Same(t, publisher, same)

	require.NoError(t, publisher.Publish(context.Background(), NewEvent("committed", statusChange{ID: "tx1", Status: "committed"})))

	select {
	case e := <-received:
		assert.Equal(t, "committed", e.Type)
		assert.Equal(t, "tx1", e.Data.ID)
	case <-time.After(time.Second):
		t.Fatal("typed event not received")
	}
	select {
	case e := <-all:
		assert.Equal(t, statusChange{ID: "tx1", Status: "committed"}, e.Data)
	case <-time.After(time.Second):
		t.Fatal("untyped event not received")
	}
}

func TestNew_UnsupportedVendor(t *testing.T) {
	_, err := New("kafka")
	assert.Error(t, err)
}
