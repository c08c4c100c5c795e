package furr

import "github.com/furrdb/furr/internal"

// ServerSelector picks the index of the server that owns key, in [0, serverCount).
type ServerSelector func(key string, serverCount int) int

// DefaultServerSelector uses Jump consistent hashing over xxh3, so adding a
// server moves few keys.
func DefaultServerSelector(key string, serverCount int) int {
	return internal.Bucket(key, serverCount)
}
