// Package prompt asks the user to confirm destructive operations.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// Confirmer asks a yes/no question. The answer defaults to no.
type Confirmer interface {
	Confirm(title, description string) (bool, error)
}

// IsTerminal returns true if stdin is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(syscall.Stdin))
}

// Console confirms with a huh form on a terminal and falls back to reading
// a line from In otherwise.
type Console struct {
	In  io.Reader
	Out io.Writer
	// Interactive decides whether the huh form is used.
	Interactive func() bool
}

// NewConsole returns a Console bound to the process stdin and stdout.
func NewConsole() *Console {
	return &Console{In: os.Stdin, Out: os.Stdout, Interactive: IsTerminal}
}

func (c *Console) Confirm(title, description string) (bool, error) {
	if c.Interactive != nil && c.Interactive() {
		return confirmForm(title, description)
	}
	return c.confirmLine(title, description)
}

func confirmForm(title, description string) (bool, error) {
	var confirmed bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed).
		WithTheme(huh.ThemeBase()).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	return confirmed, nil
}

func (c *Console) confirmLine(title, description string) (bool, error) {
	if description != "" {
		fmt.Fprintln(c.Out, description)
	}
	fmt.Fprintf(c.Out, "%s [y/N]: ", title)

	input, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read input: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Fixed answers every question the same way.
type Fixed struct {
	Answer bool
	Asked  int
}

func (f *Fixed) Confirm(string, string) (bool, error) {
	f.Asked++
	return f.Answer, nil
}
