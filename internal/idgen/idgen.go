package idgen

import (
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// NewFunc returns a new globally unique identifier as string.
var NewFunc = func() string { return uuid.New().String() }

// SortableFunc returns a new time-ordered identifier.
var SortableFunc = func() string { return ksuid.New().String() }

func New() string { return NewFunc() }

// Sortable returns an identifier whose lexical order follows creation time.
func Sortable() string { return SortableFunc() }
