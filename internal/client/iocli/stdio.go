package iocli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Stdio реализация IO поверх произвольных reader/writer
type Stdio struct {
	in  *bufio.Reader
	out io.Writer
	fd  int // дескриптор терминала для скрытого ввода, -1 если не терминал
}

// NewStdio создает IO для os.Stdin / os.Stdout
func NewStdio() IO {
	s := New(os.Stdin, os.Stdout)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		s.fd = int(os.Stdin.Fd())
	}
	return s
}

// New создает IO поверх in/out. Пароли читаются как обычные строки.
func New(in io.Reader, out io.Writer) *Stdio {
	return &Stdio{in: bufio.NewReader(in), out: out, fd: -1}
}

func (s *Stdio) Println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	s.Printf("%s", prompt)
	input, err := s.in.ReadString('\n')
	if err != nil {
		// Последняя строка без перевода строки тоже считается вводом
		if errors.Is(err, io.EOF) && input != "" {
			return strings.TrimSpace(input), nil
		}
		return "", err
	}
	return strings.TrimSpace(input), nil
}

func (s *Stdio) ReadPassword(prompt string) (string, error) {
	if s.fd < 0 {
		return s.ReadInput(prompt)
	}

	s.Printf("%s", prompt)
	pwBytes, err := term.ReadPassword(s.fd)
	s.Println("")
	if err != nil {
		return "", err
	}
	return string(pwBytes), nil
}
