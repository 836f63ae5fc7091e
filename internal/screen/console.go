// Package screen renders mockhire's pages on an interactive terminal.
//
// Each page is a [Screen]: it draws itself on a [Console], reads commands
// until the user leaves, and returns the [Route] to show next. The [Router]
// runs that loop, enforces sign-in for protected pages and forwards
// navigation requested by the interview session controller.
package screen

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/mockhire/mockhire/pkg/microphone"
)

// Console is a line-oriented terminal. A single goroutine reads the input so
// that screens and prompts can share it; every line goes to exactly one
// reader. Output is serialised.
type Console struct {
	outMu sync.Mutex
	out   io.Writer

	lines       chan string
	interactive bool
}

// NewConsole starts reading lines from in. The reading goroutine exits at
// end of input, after which [Console.Lines] is closed.
func NewConsole(in io.Reader, out io.Writer) *Console {
	c := &Console{
		out:   out,
		lines: make(chan string),
	}
	if f, ok := in.(*os.File); ok {
		c.interactive = IsTerminal(f)
	}
	go c.read(in)
	return c
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func (c *Console) read(in io.Reader) {
	defer close(c.lines)
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		c.lines <- strings.TrimRight(sc.Text(), "\r")
	}
}

// Lines returns the input channel. It is closed at end of input.
func (c *Console) Lines() <-chan string { return c.lines }

// Interactive reports whether the input is a terminal.
func (c *Console) Interactive() bool { return c.interactive }

// ReadLine returns the next input line, or io.EOF once input has ended.
func (c *Console) ReadLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

// Prompt prints label and returns the trimmed answer.
func (c *Console) Prompt(ctx context.Context, label string) (string, error) {
	c.Printf("%s ", label)
	line, err := c.ReadLine(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Ask implements microphone.Asker.
func (c *Console) Ask(ctx context.Context, question string) (string, error) {
	return c.Prompt(ctx, question)
}

var _ microphone.Asker = (*Console)(nil)

// Printf writes formatted output.
func (c *Console) Printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Println writes the arguments followed by a newline.
func (c *Console) Println(args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintln(c.out, args...)
}

// Heading writes title underlined.
func (c *Console) Heading(title string) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, "\n%s\n%s\n", title, strings.Repeat("=", len([]rune(title))))
}

// command splits a line into its lower-cased first word and the rest.
func command(line string) (string, string) {
	line = strings.TrimSpace(line)
	name, rest, _ := strings.Cut(line, " ")
	return strings.ToLower(name), strings.TrimSpace(rest)
}
