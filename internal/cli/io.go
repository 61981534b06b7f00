package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// IO is the terminal surface used by commands.
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
}

// Stdio reads from stdin and writes to stdout.
type Stdio struct {
	in  *bufio.Reader
	out io.Writer
}

// NewStdio returns an IO bound to the process terminal.
func NewStdio() *Stdio {
	return &Stdio{in: bufio.NewReader(os.Stdin), out: os.Stdout}
}

func (s *Stdio) Println(a ...any) {
	fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	s.Printf("%s", prompt)
	input, err := s.in.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// ReadPassword reads without echo when stdin is a terminal.
func (s *Stdio) ReadPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return s.ReadInput(prompt)
	}
	s.Printf("%s", prompt)
	pw, err := term.ReadPassword(fd)
	s.Println()
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
