// Package pipeline provides the pipeline infrastructure for mediaplay:
// long-running stages and the queues that connect them.
package pipeline

import (
	"context"
)

// Stage represents a long-running worker in the pipeline.
// Run blocks until the stage's input is exhausted, the session is stopped or
// ctx is cancelled. A stage releases the resources it owns before returning.
type Stage interface {
	// Run executes the stage loop.
	Run(ctx context.Context) error
}

// StageFunc is a function adapter for Stage interface.
type StageFunc func(ctx context.Context) error

// Run implements Stage interface.
func (f StageFunc) Run(ctx context.Context) error {
	return f(ctx)
}
