package worker

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/drape-io/virtphp/internal/errs"
	"github.com/drape-io/virtphp/internal/fsutil"
	"github.com/drape-io/virtphp/internal/output"
)

// Shower lists registered environments, or repairs the path of one.
type Shower struct {
	deps Deps

	ResyncName string
	ResyncPath string
	Format     output.Format
}

// NewShower returns a Shower. Setting both req.ResyncName and req.ResyncPath
// turns the listing into a path update.
func NewShower(deps Deps, req Request) *Shower {
	return &Shower{
		deps:       deps.withDefaults(),
		ResyncName: req.ResyncName,
		ResyncPath: req.ResyncPath,
		Format:     req.Format,
	}
}

func (s *Shower) Execute(_ context.Context) Result {
	p := s.deps.Printer

	if (s.ResyncName == "") != (s.ResyncPath == "") {
		err := errs.New(errs.InvalidArgument, "Both --env and --path are required to update an environment's path.")
		p.Error("%s", err)
		return failed(err)
	}

	if s.ResyncName != "" {
		rec, err := s.deps.Registry.ResyncPath(s.ResyncName, s.ResyncPath)
		if err != nil {
			if errs.IsKind(err, errs.NotFound) {
				err = errs.Wrap(errs.NotFound, err, "%s was not found as a valid virtPHP environment", s.ResyncName)
			}
			p.Error("%s", err)
			return failed(err)
		}
		p.Success("%s now has the path of %s", rec.Name, rec.Path)
		return succeeded()
	}

	envs, err := s.list()
	if err != nil {
		p.Error("%s", err)
		return failed(err)
	}
	if err := p.Environments(envs, s.Format); err != nil {
		p.Error("%s", err)
		return failed(err)
	}
	return succeeded()
}

func (s *Shower) list() ([]output.Environment, error) {
	records, err := s.deps.Registry.Load()
	if err != nil {
		return nil, err
	}

	envs := make([]output.Environment, 0, len(records))
	for _, rec := range records {
		full := filepath.Join(rec.Path, rec.Name)
		row := output.Environment{
			Name:     rec.Name,
			Path:     rec.Path,
			FullPath: full,
			Exists:   fsutil.IsDir(full),
		}
		if row.Exists {
			row.Size = humanize.Bytes(uint64(fsutil.DirSize(full)))
		}
		envs = append(envs, row)
	}
	sort.Slice(envs, func(i, j int) bool { return envs[i].Name < envs[j].Name })
	return envs, nil
}
