package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/furrdb/furr"
	"github.com/furrdb/furr/wire"
)

const prompt = "furr> "

const helpText = `Commands:
  SET <key> <value>   Store a value (may contain spaces)
  GET <key>           Fetch a value, (nil) when missing
  EXISTS <key>        1 if the key exists, 0 otherwise
  DEL <key>           Delete a key, 1 if it existed
  KEYS                List every key
  EXIT                Close the session and quit
  HELP                Show this help`

type lineSource interface {
	GetLine(prompt string) (string, error)
}

type shell struct {
	session *furr.Session
	out     io.Writer
}

// run reads lines from src until EOF or EXIT.
func (sh *shell) run(ctx context.Context, src lineSource) error {
	for {
		line, err := src.GetLine(prompt)
		if errors.Is(err, io.EOF) {
			if sh.session.State() == furr.StateConnected {
				_ = sh.session.Exit(ctx)
			}
			return nil
		}
		if err != nil {
			return err
		}
		if quit := sh.execute(ctx, line); quit {
			return nil
		}
	}
}

// runScript executes every non-blank, non-comment line of r, echoing each
// request before its response.
func (sh *shell) runScript(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fmt.Fprintf(sh.out, "> %s\n", line)
		if quit := sh.execute(ctx, line); quit {
			return nil
		}
	}
	return scanner.Err()
}

// execute runs one input line and reports whether the shell must stop.
func (sh *shell) execute(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if strings.EqualFold(line, "help") {
		fmt.Fprintln(sh.out, helpText)
		return false
	}

	cmd, err := wire.ParseCommand([]byte(line))
	if err != nil {
		fmt.Fprintf(sh.out, "error: %v\n", err)
		return false
	}

	resp, err := sh.session.Call(ctx, cmd)
	if err != nil {
		fmt.Fprintf(sh.out, "error: %v\n", err)
		return sh.session.State() == furr.StateClosed
	}

	fmt.Fprintln(sh.out, format(cmd.Verb, resp))
	return cmd.Verb == wire.VerbExit
}

func format(verb wire.Verb, resp wire.Response) string {
	switch {
	case resp.IsError():
		return resp.String()
	case verb == wire.VerbGet && resp.IsEmpty():
		return "(nil)"
	case verb == wire.VerbKeys && resp.IsEmpty():
		return "(empty)"
	default:
		return resp.String()
	}
}
