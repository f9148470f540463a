package main

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

const (
	prompt          = "idea> "
	historyFileName = ".ideacli_history"
	historySize     = 500
)

// lineSource yields one command line at a time. ReadLine returns io.EOF
// when input ends or the user interrupts.
type lineSource interface {
	ReadLine() (string, error)
	Close() error
}

// newLineSource returns a line editor with history when stdin is a
// terminal, and a plain scanner for piped input.
func newLineSource() lineSource {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return &scannerSource{scanner: bufio.NewScanner(os.Stdin)}
	}

	cfg := &readline.Config{
		Prompt:                 prompt,
		HistoryLimit:           historySize,
		DisableAutoSaveHistory: true,
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.HistoryFile = filepath.Join(home, historyFileName)
	}
	rl, err := readline.NewFromConfig(cfg)
	if err != nil {
		return &scannerSource{scanner: bufio.NewScanner(os.Stdin)}
	}
	return &editorSource{rl: rl}
}

type editorSource struct {
	rl *readline.Instance
}

func (e *editorSource) ReadLine() (string, error) {
	line, err := e.rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt {
			return "", io.EOF
		}
		return "", err
	}
	if trimmed := strings.TrimSpace(line); trimmed != "" {
		e.rl.SaveToHistory(trimmed)
	}
	return line, nil
}

func (e *editorSource) Close() error {
	return e.rl.Close()
}

type scannerSource struct {
	scanner *bufio.Scanner
}

func (s *scannerSource) ReadLine() (string, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

func (s *scannerSource) Close() error {
	return nil
}
