package utils

import (
	"context"
	"time"
)

const (
	// DefaultTimeout bounds repository calls made from request handlers
	DefaultTimeout = 10 * time.Second

	// LongTimeout is for operations that may take longer (file uploads, chat turns)
	LongTimeout = 60 * time.Second
)

// WithTimeout creates a context with default timeout
func WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultTimeout)
}

// WithLongTimeout creates a context with long timeout for operations that may take longer
func WithLongTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, LongTimeout)
}
