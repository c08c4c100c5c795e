package server

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	s := NewStore()

	_, ok := s.Get("name")
	assert.False(t, ok)
	assert.False(t, s.Exists("name"))

	s.Set("name", "Alice Smith")
	v, ok := s.Get("name")
	require.True(t, ok)
	assert.Equal(t, "Alice Smith", v)
	assert.True(t, s.Exists("name"))

	s.Set("name", "Bob")
	v, _ = s.Get("name")
	assert.Equal(t, "Bob", v)
	assert.Equal(t, 1, s.Len())

	assert.True(t, s.Del("name"))
	assert.False(t, s.Del("name"))
	assert.Equal(t, 0, s.Len())
}

func TestStore_KeysSorted(t *testing.T) {
	s := NewStore()
	assert.Empty(t, s.Keys())

	for _, k := range []string{"user:2", "age", "user:10", "name"} {
		s.Set(k, "x")
	}
	assert.Equal(t, []string{"age", "name", "user:10", "user:2"}, s.Keys())
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				key := fmt.Sprintf("w%d:k%d", w, i)
				s.Set(key, "v")
				assert.True(t, s.Exists(key))
				_ = s.Keys()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, s.Len())
}
