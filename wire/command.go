package wire

import (
	"bytes"
	"strings"
)

// Command is one request: a verb and its arguments.
//
// For SET, Args is {key, value}; the value is sent verbatim and may contain
// spaces. Encoding never modifies a Command.
type Command struct {
	Verb Verb
	Args []string
}

// NewCommand returns a command with the given verb and arguments.
// The arguments are validated when the command is encoded.
func NewCommand(verb Verb, args ...string) Command {
	return Command{Verb: verb, Args: args}
}

func NewSet(key, value string) Command { return NewCommand(VerbSet, key, value) }
func NewGet(key string) Command        { return NewCommand(VerbGet, key) }
func NewExists(key string) Command     { return NewCommand(VerbExists, key) }
func NewDel(key string) Command        { return NewCommand(VerbDel, key) }
func NewKeys() Command                 { return NewCommand(VerbKeys) }
func NewExit() Command                 { return NewCommand(VerbExit) }

// Valid reports whether v belongs to the protocol's verb set.
func (v Verb) Valid() bool {
	switch v {
	case VerbSet, VerbGet, VerbExists, VerbDel, VerbKeys, VerbExit:
		return true
	default:
		return false
	}
}

// ParseVerb returns the verb named by s, ignoring case.
func ParseVerb(s string) (Verb, bool) {
	v := Verb(strings.ToUpper(s))
	return v, v.Valid()
}

// arity returns the number of arguments the verb takes.
func (v Verb) arity() int {
	switch v {
	case VerbSet:
		return 2
	case VerbGet, VerbExists, VerbDel:
		return 1
	default:
		return 0
	}
}

// ValidateKey checks that key can be sent as a single protocol token.
func ValidateKey(key string) error {
	if key == "" {
		return invalidArgument("key is empty")
	}
	if strings.ContainsAny(key, " \t\r\n") {
		return invalidArgument("key %q contains whitespace", key)
	}
	return nil
}

// Validate checks the verb, its arity and every argument.
func (c Command) Validate() error {
	if !c.Verb.Valid() {
		return invalidArgument("unknown verb %q", string(c.Verb))
	}
	if len(c.Args) != c.Verb.arity() {
		return invalidArgument("%s takes %d argument(s), got %d", c.Verb, c.Verb.arity(), len(c.Args))
	}
	for _, arg := range c.Args {
		if strings.IndexByte(arg, Delimiter) >= 0 {
			return invalidArgument("%s argument contains a newline", c.Verb)
		}
	}
	if len(c.Args) > 0 {
		if err := ValidateKey(c.Args[0]); err != nil {
			return err
		}
	}
	return nil
}

// String returns the encoded form, or a placeholder for an invalid command.
func (c Command) String() string {
	line, err := Encode(c)
	if err != nil {
		return "<invalid " + string(c.Verb) + " command>"
	}
	return string(line)
}

// Encode returns the wire form of cmd without the trailing delimiter.
func Encode(cmd Command) ([]byte, error) {
	return AppendCommand(nil, cmd)
}

// AppendCommand appends the wire form of cmd (no delimiter) to dst.
// Format: <VERB>[ <arg>]*
func AppendCommand(dst []byte, cmd Command) ([]byte, error) {
	if err := cmd.Validate(); err != nil {
		return dst, err
	}

	dst = append(dst, cmd.Verb...)
	for _, arg := range cmd.Args {
		dst = append(dst, Space...)
		dst = append(dst, arg...)
	}
	return dst, nil
}

// ParseCommand is the inverse of Encode, used by servers.
//
// The verb is matched case-insensitively. For SET, the value is everything
// after the single space following the key, verbatim. For the other verbs
// arguments are split on runs of spaces.
//
// A blank line returns ErrEmptyCommand. Unknown verbs and arity mismatches
// return a *CodecError.
func ParseCommand(msg []byte) (Command, error) {
	line := bytes.TrimLeft(msg, " \t")
	if len(bytes.TrimSpace(line)) == 0 {
		return Command{}, ErrEmptyCommand
	}

	verbToken, rest, _ := bytes.Cut(line, []byte(Space))
	verb, ok := ParseVerb(string(verbToken))
	if !ok {
		return Command{}, invalidArgument("unknown verb %q", string(verbToken))
	}

	var args []string
	if verb == VerbSet {
		rest = bytes.TrimLeft(rest, Space)
		key, value, found := bytes.Cut(rest, []byte(Space))
		if len(key) > 0 {
			args = append(args, string(key))
		}
		if found {
			args = append(args, string(value))
		}
	} else {
		args = strings.Fields(string(rest))
	}

	cmd := Command{Verb: verb, Args: args}
	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	return cmd, nil
}
