//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"sync"
)

// Invocation is a single call captured by RecordingRunner.
type Invocation struct {
	// Dir is the working directory the command was run in.
	Dir string
	// Command is the command line.
	Command string
}

// RecordingRunner is a Runner that records calls instead of spawning processes.
// Handlers registered per command line decide the exit code and may produce side effects.
type RecordingRunner struct {
	mu          sync.Mutex
	handlers    map[string]func(dir string) (int, error)
	invocations []Invocation
}

// NewRecordingRunner returns a runner where every command succeeds unless handled otherwise.
func NewRecordingRunner() *RecordingRunner {
	return &RecordingRunner{
		handlers: make(map[string]func(dir string) (int, error)),
	}
}

// Handle registers fn as the behaviour of command.
func (r *RecordingRunner) Handle(command string, fn func(dir string) (int, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[command] = fn
}

// Run records the invocation and applies the registered handler.
func (r *RecordingRunner) Run(_ context.Context, dir, command string) (int, error) {
	r.mu.Lock()
	r.invocations = append(r.invocations, Invocation{Dir: dir, Command: command})
	fn := r.handlers[command]
	r.mu.Unlock()

	if fn == nil {
		return 0, nil
	}

	return fn(dir)
}

// Invocations returns a copy of the recorded calls in order.
func (r *RecordingRunner) Invocations() []Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Invocation(nil), r.invocations...)
}
