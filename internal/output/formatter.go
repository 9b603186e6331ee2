package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Format represents the listing format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a --output value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTable, FormatJSON, FormatYAML:
		return Format(s), nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (table|json|yaml)", s)
	}
}

// Printer writes user-facing progress lines.
type Printer struct {
	Out io.Writer
	Err io.Writer

	green   func(a ...any) string
	yellow  func(a ...any) string
	red     func(a ...any) string
	success func(a ...any) string
	cyan    func(a ...any) string
}

// New returns a Printer. Nil writers default to stdout and stderr.
func New(out, errOut io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Printer{
		Out:     out,
		Err:     errOut,
		green:   color.New(color.FgGreen).SprintFunc(),
		yellow:  color.New(color.FgYellow).SprintFunc(),
		red:     color.New(color.FgRed).SprintFunc(),
		success: color.New(color.FgGreen, color.Bold).SprintFunc(),
		cyan:    color.New(color.FgCyan).SprintFunc(),
	}
}

// Info prints a step line.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintln(p.Out, p.green(fmt.Sprintf(format, args...)))
}

// Comment prints a warning or aside.
func (p *Printer) Comment(format string, args ...any) {
	fmt.Fprintln(p.Out, p.yellow(fmt.Sprintf(format, args...)))
}

// Error prints a failure line to the error writer.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.Err, p.red(fmt.Sprintf(format, args...)))
}

// Success prints a completion line.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.Out, p.success(fmt.Sprintf(format, args...)))
}

// Line prints an unstyled line.
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.Out, format+"\n", args...)
}

// Code prints a command the user is expected to copy.
func (p *Printer) Code(s string) {
	fmt.Fprintln(p.Out, p.cyan(s))
}

var bannerStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("2")).
	Padding(0, 1)

// Banner prints text inside a rounded box.
func (p *Printer) Banner(text string) {
	fmt.Fprintln(p.Out, bannerStyle.Render(text))
}

// Environment is one row of the `show` listing.
type Environment struct {
	Name     string `json:"name" yaml:"name"`
	Path     string `json:"path" yaml:"path"`
	FullPath string `json:"fullPath" yaml:"fullPath"`
	Exists   bool   `json:"exists" yaml:"exists"`
	Size     string `json:"size,omitempty" yaml:"size,omitempty"`
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)
var missingStyle = cellStyle.Foreground(lipgloss.Color("1"))

// Environments prints the registry listing in the given format.
func (p *Printer) Environments(envs []Environment, format Format) error {
	switch format {
	case FormatJSON:
		return p.printJSON(envs)
	case FormatYAML:
		return p.printYAML(envs)
	default:
		p.printTable(envs)
		return nil
	}
}

func (p *Printer) printTable(envs []Environment) {
	if len(envs) == 0 {
		p.Comment("No virtual environments registered.")
		return
	}

	rows := make([][]string, 0, len(envs))
	for _, e := range envs {
		status := "ok"
		if !e.Exists {
			status = "missing"
		}
		rows = append(rows, []string{e.Name, e.Path, e.Size, status})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "PATH", "SIZE", "STATUS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if !envs[row].Exists {
				return missingStyle
			}
			return cellStyle
		})

	fmt.Fprintln(p.Out, t.Render())
}

func (p *Printer) printJSON(envs []Environment) error {
	if envs == nil {
		envs = []Environment{}
	}
	encoder := json.NewEncoder(p.Out)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(envs); err != nil {
		return fmt.Errorf("error encoding JSON: %w", err)
	}
	return nil
}

func (p *Printer) printYAML(envs []Environment) error {
	if envs == nil {
		envs = []Environment{}
	}
	encoder := yaml.NewEncoder(p.Out)
	encoder.SetIndent(2)
	defer func() {
		_ = encoder.Close()
	}()
	if err := encoder.Encode(envs); err != nil {
		return fmt.Errorf("error encoding YAML: %w", err)
	}
	return nil
}
