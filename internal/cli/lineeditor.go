package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

const (
	historyFileName = ".redisfifo_history"
	historySize     = 500
)

// lineEditor reads commands either with readline (when stdin is a terminal)
// or line by line from plain reader.
type lineEditor struct {
	rl      *readline.Instance
	scanner *bufio.Scanner
	out     io.Writer
}

func newLineEditor(in io.Reader, out io.Writer) *lineEditor {
	f, isFile := in.(*os.File)
	if !isFile || !term.IsTerminal(int(f.Fd())) {
		return plainEditor(in, out)
	}

	rl, err := readline.NewFromConfig(&readline.Config{
		HistoryFile:            historyPath(),
		HistoryLimit:           historySize,
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline init failed (%v), using basic input\n", err)
		return plainEditor(in, out)
	}
	return &lineEditor{rl: rl, out: out}
}

func plainEditor(in io.Reader, out io.Writer) *lineEditor {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
	return &lineEditor{scanner: sc, out: out}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, historyFileName)
}

// getLine returns io.EOF on Ctrl-D, Ctrl-C or end of input.
func (le *lineEditor) getLine(prompt string) (string, error) {
	if le.rl == nil {
		fmt.Fprint(le.out, prompt)
		if !le.scanner.Scan() {
			if err := le.scanner.Err(); err != nil {
				return "", err
			}
			return "", io.EOF
		}
		return le.scanner.Text(), nil
	}

	le.rl.SetPrompt(prompt)
	line, err := le.rl.Readline()
	if err != nil {
		if err == readline.ErrInterrupt {
			return "", io.EOF
		}
		return "", err
	}
	if trimmed := strings.TrimSpace(line); trimmed != "" {
		le.rl.SaveToHistory(trimmed)
	}
	return line, nil
}

func (le *lineEditor) close() {
	if le.rl != nil {
		le.rl.Close()
		le.rl = nil
	}
}
