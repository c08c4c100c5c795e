package furr

import (
	"context"
	"fmt"

	"github.com/furrdb/furr/wire"
)

// Item is the result of a GET.
type Item struct {
	Key   string
	Value string
	Found bool // false when the server answered with an empty line
}

// Querier is the typed command set shared by Session and Client.
type Querier interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (Item, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context) ([]string, error)
}

var (
	_ Querier = (*Session)(nil)
	_ Querier = (*Client)(nil)
)

// Set stores value under key. The value may contain spaces.
// Empty values are rejected with ErrEmptyValue.
func (s *Session) Set(ctx context.Context, key, value string) error {
	cmd, err := newSetCommand(key, value)
	if err != nil {
		return err
	}
	resp, err := s.Call(ctx, cmd)
	if err != nil {
		return err
	}
	return decodeSet(resp)
}

// Get fetches key. A missing key returns Item{Found: false} and no error.
func (s *Session) Get(ctx context.Context, key string) (Item, error) {
	resp, err := s.Call(ctx, wire.NewGet(key))
	if err != nil {
		return Item{}, err
	}
	return decodeGet(key, resp)
}

// Exists reports whether key is present.
func (s *Session) Exists(ctx context.Context, key string) (bool, error) {
	resp, err := s.Call(ctx, wire.NewExists(key))
	if err != nil {
		return false, err
	}
	return decodeBool(wire.VerbExists, resp)
}

// Del removes key and reports whether it existed.
func (s *Session) Del(ctx context.Context, key string) (bool, error) {
	resp, err := s.Call(ctx, wire.NewDel(key))
	if err != nil {
		return false, err
	}
	return decodeBool(wire.VerbDel, resp)
}

// Keys lists every key, sorted.
func (s *Session) Keys(ctx context.Context) ([]string, error) {
	resp, err := s.Call(ctx, wire.NewKeys())
	if err != nil {
		return nil, err
	}
	return decodeKeys(resp)
}

// Exit asks the server to end the session. The session is closed on return,
// whatever the outcome.
func (s *Session) Exit(ctx context.Context) error {
	resp, err := s.Call(ctx, wire.NewExit())
	if err != nil {
		_ = s.Close()
		return err
	}
	if err := resp.Err(); err != nil {
		_ = s.Close()
		return err
	}
	return nil
}

func newSetCommand(key, value string) (wire.Command, error) {
	if value == "" {
		return wire.Command{}, ErrEmptyValue
	}
	cmd := wire.NewSet(key, value)
	return cmd, cmd.Validate()
}

func decodeSet(resp wire.Response) error {
	if err := resp.Err(); err != nil {
		return err
	}
	if !resp.IsOK() {
		return unexpected(wire.VerbSet, resp)
	}
	return nil
}

func decodeGet(key string, resp wire.Response) (Item, error) {
	if err := resp.Err(); err != nil {
		return Item{}, err
	}
	if resp.IsEmpty() {
		return Item{Key: key, Found: false}, nil
	}
	return Item{Key: key, Value: resp.String(), Found: true}, nil
}

func decodeBool(verb wire.Verb, resp wire.Response) (bool, error) {
	if err := resp.Err(); err != nil {
		return false, err
	}
	v, ok := resp.Bool()
	if !ok {
		return false, unexpected(verb, resp)
	}
	return v, nil
}

func decodeKeys(resp wire.Response) ([]string, error) {
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.List(), nil
}

func unexpected(verb wire.Verb, resp wire.Response) error {
	return fmt.Errorf("%w: %s answered %q", ErrUnexpectedResponse, verb, resp.String())
}
