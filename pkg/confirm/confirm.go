// Package confirm provides the yes/no prompt policy for destructive steps.
package confirm

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirmer decides whether a destructive step may proceed.
type Confirmer interface {
	// Confirm presents the prompt and reports the decision. Only an explicit
	// yes answer returns true.
	Confirm(prompt string) (bool, error)
}

// Func adapts a plain function to the Confirmer interface.
type Func func(prompt string) (bool, error)

// Confirm implements the Confirmer interface for Func.
func (f Func) Confirm(prompt string) (bool, error) {
	return f(prompt)
}

// AssumeYes answers every prompt with yes. Used for the -yes flag and for
// unattended runs.
var AssumeYes Confirmer = Func(func(prompt string) (bool, error) {
	return true, nil
})

// Interactive reads answers line by line from in and writes prompts to out.
// Anything other than "y" or "yes" (case insensitive) is a no.
type Interactive struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewInteractive creates an Interactive confirmer reading from in and
// prompting on out.
func NewInteractive(in io.Reader, out io.Writer) *Interactive {
	return &Interactive{
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

// Compile time interface check.
var _ Confirmer = (*Interactive)(nil)

// Confirm implements the Confirmer interface for Interactive.
func (c *Interactive) Confirm(prompt string) (bool, error) {
	if _, err := fmt.Fprintf(c.out, "%s [y/N]: ", prompt); err != nil {
		return false, err
	}
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return false, fmt.Errorf("failed to read answer: %w", err)
		}
		// EOF on stdin counts as a no, not as an error. Piped input simply
		// ran out of answers.
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(c.scanner.Text()))
	return answer == "y" || answer == "yes", nil
}
