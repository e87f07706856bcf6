package lstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAbsentKey(t *testing.T) {
	s := NewLocalStore()

	val, ok := s.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestApply(t *testing.T) {
	s := NewLocalStore()

	s.Apply(map[string][]byte{"a": []byte("1"), "b": []byte("2")})
	s.Apply(map[string][]byte{"b": []byte("3"), "c": nil})

	val, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), val)

	val, ok = s.Get("b")
	require.True(t, ok)
	assert.Equal(t, []byte("3"), val)

	// an explicit empty value is not the same as an absent key
	val, ok = s.Get("c")
	require.True(t, ok)
	assert.Empty(t, val)

	assert.Equal(t, 3, s.Len())
}

func TestNoAliasing(t *testing.T) {
	s := NewLocalStore()

	input := []byte("value")
	s.Apply(map[string][]byte{"k": input})
	input[0] = 'X'

	val, _ := s.Get("k")
	assert.Equal(t, []byte("value"), val)

	val[0] = 'Y'
	again, _ := s.Get("k")
	assert.Equal(t, []byte("value"), again)

	all := s.GetAll()
	all["k"][0] = 'Z'
	all["new"] = []byte("x")
	again, _ = s.Get("k")
	assert.Equal(t, []byte("value"), again)
	_, ok := s.Get("new")
	assert.False(t, ok)
}

func TestReplace(t *testing.T) {
	s := NewLocalStore()
	s.Apply(map[string][]byte{"old": []byte("1")})

	s.Replace(map[string][]byte{"new": []byte("2")})

	_, ok := s.Get("old")
	assert.False(t, ok)
	assert.Equal(t, map[string][]byte{"new": []byte("2")}, s.GetAll())
}
