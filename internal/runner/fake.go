package runner

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
)

// Fake is a scripted Runner. Handlers are matched by command name; the
// first handler whose Match returns true answers the call.
type Fake struct {
	mu       sync.Mutex
	Handlers []Handler
	// Paths maps executable names to LookPath results.
	Paths map[string]string
	Calls []Command
}

// Handler answers a matching command.
type Handler struct {
	Match func(Command) bool
	Reply func(Command) (Result, error)
}

var _ Runner = (*Fake)(nil)

// On registers a reply for every command named name.
func (f *Fake) On(name string, reply func(Command) (Result, error)) {
	f.Handlers = append(f.Handlers, Handler{
		Match: func(c Command) bool { return c.Name == name },
		Reply: reply,
	})
}

func (f *Fake) Run(_ context.Context, c Command) (Result, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, c)
	handlers := f.Handlers
	f.mu.Unlock()

	for _, h := range handlers {
		if h.Match(c) {
			return h.Reply(c)
		}
	}
	return Result{}, fmt.Errorf("fake runner: no handler for %q", c.String())
}

func (f *Fake) LookPath(name string) (string, error) {
	if p, ok := f.Paths[name]; ok {
		return p, nil
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

// Ran reports whether a command named name was run.
func (f *Fake) Ran(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Calls {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Exit returns a reply function that exits with code and output.
func Exit(code int, output string) func(Command) (Result, error) {
	return func(c Command) (Result, error) {
		res := Result{ExitCode: code, Output: output}
		if code != 0 {
			return res, &ExitError{Command: c.String(), Code: code, Output: output}
		}
		return res, nil
	}
}
