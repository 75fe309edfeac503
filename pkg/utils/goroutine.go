package utils

import (
	"context"
	"log"
	"runtime/debug"

	"news-sentiment-api/pkg/logger"
)

// GoSafe runs fn in a new goroutine and recovers from panics so a single
// failing unit of work cannot take the whole process down.
func GoSafe(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("recovered from panic: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

// ShouldContinue reports whether the context is still alive, logging once
// when it is not.
func ShouldContinue(ctx context.Context, log *logger.Logger) bool {
	select {
	case <-ctx.Done():
		log.Info("context canceled, stopping work", logger.ErrorField(ctx.Err()))
		return false
	default:
		return true
	}
}
