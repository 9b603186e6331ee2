package worker

import (
	"context"
	"path/filepath"

	"github.com/atotto/clipboard"

	"github.com/drape-io/virtphp/internal/errs"
)

// Activator prints the command that activates a registered environment.
type Activator struct {
	deps Deps

	Name string
	// Clipboard receives the command when set. Defaults to the system clipboard.
	Clipboard func(string) error
}

// NewActivator returns an Activator for req.Name.
func NewActivator(deps Deps, req Request) *Activator {
	return &Activator{deps: deps.withDefaults(), Name: req.Name, Clipboard: clipboard.WriteAll}
}

func (a *Activator) Execute(_ context.Context) Result {
	p := a.deps.Printer

	rec, ok, err := a.deps.Registry.Lookup(a.Name)
	if err != nil {
		p.Error("%s", err)
		return failed(err)
	}
	if !ok {
		err := errs.New(errs.NotFound, "Could not find the environment you asked for.")
		p.Error("%s", err)
		return failed(err)
	}

	line := "source " + filepath.Join(rec.Path, rec.Name, "bin", "activate")

	p.Info("Copy and paste this code to activate your environment.")
	p.Code(line)

	if a.Clipboard != nil {
		if err := a.Clipboard(line); err != nil {
			a.deps.Logger.Debug("clipboard unavailable", "err", err)
		} else {
			p.Comment("The command has also been copied to your clipboard.")
		}
	}
	return succeeded()
}
