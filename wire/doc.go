// Package wire implements the FurrDB line protocol: message framing over a
// byte stream and the textual command codec.
//
// # Framing
//
// Every message, in both directions, is a sequence of bytes terminated by a
// single '\n'. The delimiter is never part of the message. TCP gives no
// guarantee that one write maps to one read, so Reader buffers across reads
// and splits several messages delivered together:
//
//	r := wire.NewReader(conn)
//	msg, err := r.ReadMessage() // "SET a 1"
//	msg, err = r.ReadMessage()  // "GET a", possibly already buffered
//
// If the peer closes the stream in the middle of a message, ReadMessage fails
// with a *TransportError of kind KindConnectionClosed; the partial message is
// never returned.
//
// # Commands
//
//	VERB [ARG ...]\n
//
// The verb set is closed: SET, GET, EXISTS, DEL, KEYS, EXIT. Arguments are
// separated by one space. There is no escaping: arguments containing a newline
// are rejected before anything is written, and keys may not contain
// whitespace. The SET value is everything after the key and may contain spaces.
//
// # Responses
//
//	PAYLOAD\n
//
// Exactly one line per request, in request order. DecodeResponse does not
// interpret the payload; see Response for the server's conventions.
//
// # Errors
//
// TransportError is always fatal to the connection. CodecError and
// ServerError are not. ShouldCloseConnection classifies any error.
package wire
