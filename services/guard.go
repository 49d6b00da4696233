package services

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// guard must be deferred directly. It logs a panic with its stack, runs the
// compensating rollback if one was registered and re-panics.
func guard(logger *slog.Logger, op string, rollback func()) {
	r := recover()
	if r == nil {
		return
	}
	logger.Error("panic in structural operation",
		slog.String("op", op),
		slog.String("panic", fmt.Sprint(r)),
		slog.String("stack", string(debug.Stack())),
	)
	if rollback != nil {
		func() {
			defer func() {
				if r2 := recover(); r2 != nil {
					logger.Error("rollback panicked", slog.String("op", op), slog.String("panic", fmt.Sprint(r2)))
				}
			}()
			rollback()
		}()
	}
	panic(r)
}
