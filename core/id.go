package core

import "github.com/google/uuid"

// NewID returns a new unique identifier for runs, tool calls and checkpoints.
func NewID() string { return uuid.NewString() }
