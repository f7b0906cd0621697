package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"k8s.io/klog/v2"
)

// Confirmer asks a yes/no question
type Confirmer interface {
	Confirm(question string) bool
}

// Terminal asks on stderr and reads the answer from stdin
type Terminal struct {
	in  io.Reader
	out io.Writer

	isTerminal func() bool
}

// NewTerminal creates a confirmer bound to the process stdin and stderr
func NewTerminal() *Terminal {
	return &Terminal{
		in:  os.Stdin,
		out: os.Stderr,
		isTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// Confirm returns true only for an affirmative answer. A non-interactive
// stdin counts as "no" without prompting.
func (t *Terminal) Confirm(question string) bool {
	if t.isTerminal != nil && !t.isTerminal() {
		klog.V(1).Infof(" Stdin is not a terminal, answering no to %q", question)
		return false
	}
	return AskYesNo(t.in, t.out, question)
}

// AskYesNo writes the question with a [y/N] hint and reads one line
func AskYesNo(in io.Reader, out io.Writer, question string) bool {
	_, _ = fmt.Fprintf(out, "%s [y/N]: ", question)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		if err != io.EOF {
			klog.Warningf("Failed to read answer: %v", err)
		}
		return false
	}
	return IsYes(line)
}

// IsYes reports whether the input is an affirmative answer. The Spanish
// "s" and "si" are accepted as well.
func IsYes(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes", "s", "si", "sí":
		return true
	default:
		return false
	}
}

// Always answers every question with a fixed value
type Always bool

// Confirm returns the fixed answer
func (a Always) Confirm(string) bool {
	return bool(a)
}
