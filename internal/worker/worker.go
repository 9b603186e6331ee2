// Package worker implements the environment workflows behind each CLI command.
//
// Every workflow reports its outcome as a Result. Failures are printed once,
// by the workflow itself, and carried back to the caller in Result.Err.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/drape-io/virtphp/internal/config"
	"github.com/drape-io/virtphp/internal/output"
	"github.com/drape-io/virtphp/internal/prompt"
	"github.com/drape-io/virtphp/internal/registry"
	"github.com/drape-io/virtphp/internal/runner"
)

// Result is the outcome of a workflow.
type Result struct {
	OK  bool
	Err error
}

func succeeded() Result {
	return Result{OK: true}
}

func failed(err error) Result {
	return Result{Err: err}
}

// Workflow is one runnable command.
type Workflow interface {
	Execute(ctx context.Context) Result
}

// Fetcher returns a local copy of a remote installer.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (string, error)
}

// Deps are the collaborators shared by every workflow.
type Deps struct {
	Registry registry.Registry
	Runner   runner.Runner
	Fetcher  Fetcher
	Printer  *output.Printer
	Logger   *slog.Logger
	Confirm  prompt.Confirmer
	Config   *config.Config
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

func (d Deps) withDefaults() Deps {
	if d.Printer == nil {
		d.Printer = output.New(nil, nil)
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Config == nil {
		cfg := config.Default("")
		cfg.InstallPath = ""
		d.Config = cfg
	}
	if d.Confirm == nil {
		d.Confirm = prompt.NewConsole()
	}
	if d.Getenv == nil {
		d.Getenv = os.Getenv
	}
	return d
}

// Command names a workflow.
type Command string

const (
	Create   Command = "create"
	Clone    Command = "clone"
	Destroy  Command = "destroy"
	Show     Command = "show"
	Activate Command = "activate"
)

// Request carries the arguments of every command. Each workflow reads the
// fields it needs.
type Request struct {
	// Name is the environment to create, clone into, or activate.
	Name string
	// BasePath is the parent directory of a new environment.
	BasePath string

	PhpBinDir      string
	CustomPhpIni   string
	CustomPearConf string

	// Source is the environment root a clone copies from.
	Source string
	// Target is the environment root destroy removes.
	Target string

	// ResyncName and ResyncPath repair a registry record in show.
	ResyncName string
	ResyncPath string
	Format     output.Format
}

type constructor func(Deps, Request) Workflow

var workflows = map[Command]constructor{
	Create:   func(d Deps, r Request) Workflow { return NewCreator(d, r) },
	Clone:    func(d Deps, r Request) Workflow { return NewCloner(d, r) },
	Destroy:  func(d Deps, r Request) Workflow { return NewDestroyer(d, r) },
	Show:     func(d Deps, r Request) Workflow { return NewShower(d, r) },
	Activate: func(d Deps, r Request) Workflow { return NewActivator(d, r) },
}

// New returns the workflow registered for cmd.
func New(cmd Command, deps Deps, req Request) (Workflow, error) {
	ctor, ok := workflows[cmd]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
	return ctor(deps, req), nil
}

// Commands lists the registered command names in order.
func Commands() []Command {
	names := make([]Command, 0, len(workflows))
	for name := range workflows {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
