package persist

import (
	"errors"
	"testing"

	"github.com/ValentinKolb/txkv/lib/store"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPath = "data/txkv.snapshot"

func TestSaveLoadRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		mapping map[string][]byte
	}{
		{
			name:    "Empty mapping",
			mapping: map[string][]byte{},
		},
		{
			name:    "Single entry",
			mapping: map[string][]byte{"a": []byte("1")},
		},
		{
			name: "Empty value and binary value",
			mapping: map[string][]byte{
				"empty":  {},
				"binary": {0, 1, 2, 254, 255},
			},
		},
		{
			name: "Unicode keys",
			mapping: map[string][]byte{
				"你好世界": []byte("hello world"),
				"ключ":  []byte("значение"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewFsPersistence(afero.NewMemMapFs(), testPath)

			require.NoError(t, p.Save(tt.mapping))

			loaded, err := p.Load()
			require.NoError(t, err)
			assert.Equal(t, tt.mapping, loaded)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	p := NewFsPersistence(afero.NewMemMapFs(), testPath)

	loaded, err := p.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
	assert.NotNil(t, loaded)
}

func TestSaveReplacesPreviousState(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := NewFsPersistence(fs, testPath)

	require.NoError(t, p.Save(map[string][]byte{"a": []byte("1"), "b": []byte("2")}))
	require.NoError(t, p.Save(map[string][]byte{"b": []byte("3")}))

	loaded, err := p.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"b": []byte("3")}, loaded)

	// the temporary file must not be left behind
	exists, err := afero.Exists(fs, testPath+tmpSuffix)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLoadCorruptSnapshot(t *testing.T) {
	valid := encodeSnapshot(map[string][]byte{"a": []byte("1"), "b": []byte("2")})

	flipped := append([]byte{}, valid...)
	flipped[len(magicNum)+12] ^= 0xFF

	tests := []struct {
		name string
		data []byte
	}{
		{name: "Empty file", data: []byte{}},
		{name: "Garbage", data: []byte("this is not a snapshot at all")},
		{name: "Truncated", data: valid[:len(valid)-3]},
		{name: "Flipped byte", data: flipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, testPath, tt.data, 0o644))

			loaded, err := NewFsPersistence(fs, testPath).Load()
			require.Error(t, err)
			assert.True(t, errors.Is(err, store.ErrPersistenceFailure))
			assert.Empty(t, loaded)
		})
	}
}

func TestSaveFailureKeepsPreviousState(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, NewFsPersistence(fs, testPath).Save(map[string][]byte{"a": []byte("1")}))

	// a read only view of the same filesystem makes every write fail
	readOnly := NewFsPersistence(afero.NewReadOnlyFs(fs), testPath)
	err := readOnly.Save(map[string][]byte{"a": []byte("2")})
	require.Error(t, err)
	assert.Equal(t, store.RetCPersistenceFailure, store.CodeOf(err))

	loaded, err := readOnly.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1")}, loaded)
}

func TestMemoryPersistence(t *testing.T) {
	p := NewMemoryPersistence()

	loaded, err := p.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)

	input := map[string][]byte{"a": []byte("1")}
	require.NoError(t, p.Save(input))
	input["a"][0] = 'X'

	loaded, err = p.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1")}, loaded)
}
