package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/aisuara/marketing-tracker/internal/ui"
)

var errAborted = errors.New("aborted")

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func renderOK() string       { return ui.RenderPass("✓") }
func renderWarnMark() string { return ui.RenderWarn("⚠") }
func renderFailMark() string { return ui.RenderFail("✗") }

// confirm asks a yes/no question. Without a terminal it refuses, so
// destructive commands need --yes in scripts.
func confirm(title, description string) error {
	if !stdinIsTerminal() {
		return fmt.Errorf("%s: refusing without confirmation (use --yes)", title)
	}
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return errAborted
	}
	if err != nil {
		return err
	}
	if !ok {
		return errAborted
	}
	return nil
}

// readPassword prompts with hidden input on a terminal and reads one line
// from in otherwise.
func readPassword(title string, in io.Reader) (string, error) {
	if !stdinIsTerminal() {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	var pw string
	err := huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Value(&pw).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return "", errAborted
	}
	return pw, err
}
