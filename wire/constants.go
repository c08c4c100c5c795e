package wire

// Framing
const (
	// Delimiter terminates every message in both directions.
	Delimiter byte = '\n'

	// Space separates the verb and its arguments.
	Space = " "

	// DefaultMaxMessageSize bounds a single inbound line (delimiter excluded).
	DefaultMaxMessageSize = 1 << 20

	// defaultReadBufferSize is the initial size of a Reader's buffer.
	defaultReadBufferSize = 4096
)

// Verb is the command name token at the start of a request.
type Verb string

// The verb set is closed.
const (
	// VerbSet stores a value: SET <key> <value...>
	// The value is everything after the key, verbatim (it may contain spaces).
	VerbSet Verb = "SET"

	// VerbGet fetches a value: GET <key>
	VerbGet Verb = "GET"

	// VerbExists tests a key: EXISTS <key>
	VerbExists Verb = "EXISTS"

	// VerbDel removes a key: DEL <key>
	VerbDel Verb = "DEL"

	// VerbKeys lists every key: KEYS
	VerbKeys Verb = "KEYS"

	// VerbExit ends the session. The server acknowledges and closes the connection.
	VerbExit Verb = "EXIT"
)

// Payload conventions shared by the client helpers and the reference server.
const (
	PayloadOK    = "OK"
	PayloadBye   = "BYE"
	PayloadTrue  = "1"
	PayloadFalse = "0"

	// ErrorPrefix starts a failure payload: "ERR <reason>".
	ErrorPrefix = "ERR"

	// KeysSeparator joins the keys of a KEYS payload.
	KeysSeparator = ","
)
