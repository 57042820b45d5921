package directive

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Console reads directives line by line from an operator terminal.
type Console struct {
	In     io.Reader
	Out    io.Writer
	Target Target
	Prompt string
}

// Run prompts until exit is entered, input ends or ctx is done. Invalid
// lines print an error and prompt again.
func (c *Console) Run(ctx context.Context) error {
	prompt := c.Prompt
	if prompt == "" {
		prompt = "> "
	}

	sc := bufio.NewScanner(c.In)
	fmt.Fprint(c.Out, prompt)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
		case line == "help" || line == "?":
			fmt.Fprintln(c.Out, Usage)
		default:
			d, err := ParseLine(line)
			if err == nil {
				err = Apply(d, c.Target)
			}
			if err != nil {
				fmt.Fprintf(c.Out, "error: %v\n", err)
			} else if d.Command == CmdExit {
				fmt.Fprintln(c.Out, "exit queued")
				return nil
			}
		}
		fmt.Fprint(c.Out, prompt)
	}
	return sc.Err()
}
