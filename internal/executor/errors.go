// File: internal/executor/errors.go
package executor

import (
	"context"
	"errors"
	"strings"
)

// codedError carries an explicit error code decided at the failure site.
type codedError struct {
	code string
	msg  string
}

func (e *codedError) Error() string { return e.msg }

// classifyError maps a step failure onto a standardized code. Errors raised
// by our own handlers carry their code; driver errors are classified by
// message heuristics, the same way browser errors are triaged elsewhere.
func classifyError(err error) string {
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrCodeTimeoutError
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not found") || strings.Contains(msg, "no such element"):
		return ErrCodeElementNotFound
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return ErrCodeTimeoutError
	case strings.Contains(msg, "disabled"):
		return ErrCodeElementDisabled
	case strings.Contains(msg, "not supported") || strings.Contains(msg, "unsupported"):
		return ErrCodeUnsupportedOperation
	default:
		return ErrCodeExecutionFailure
	}
}
