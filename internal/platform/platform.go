// File: internal/platform/platform.go

// Package platform selects the host accessibility and input backend. A
// backend bundles everything the loop needs from the OS: tree discovery,
// input injection, and screen capture. Backends register themselves from
// platform-tagged files, the same way database drivers do.
package platform

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/axdriver/axdriver-cli/internal/executor"
	"github.com/axdriver/axdriver-cli/internal/perception"
	"github.com/axdriver/axdriver-cli/internal/vision"
)

// ErrUnsupported is returned when no backend is registered for the host.
var ErrUnsupported = errors.New("no accessibility backend for this platform")

// Backend is the full OS surface the agent drives.
type Backend interface {
	perception.AccessibilityProvider
	executor.InputDriver
	vision.ScreenCapturer
	// Power reports battery level and power source, best-effort.
	Power() (level int, source string)
	Close() error
}

var (
	mu      sync.Mutex
	factory func(logger *zap.Logger) (Backend, error)
)

// Register installs the host backend factory. Called from an init in a
// platform-tagged file; last registration wins.
func Register(f func(logger *zap.Logger) (Backend, error)) {
	mu.Lock()
	defer mu.Unlock()
	factory = f
}

// New builds the registered backend, or fails with ErrUnsupported.
func New(logger *zap.Logger) (Backend, error) {
	mu.Lock()
	f := factory
	mu.Unlock()
	if f == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnsupported, runtime.GOOS, runtime.GOARCH)
	}
	return f(logger)
}
