package persist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/ValentinKolb/txkv/lib/store"
	"github.com/cespare/xxhash/v2"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var Logger = logger.GetLogger("persist")

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	magicNum        = "TXKVSNAP" // File format identifier
	snapshotVersion = 1          // Snapshot format version
	checksumSize    = 8          // Trailing xxhash64 of everything before it
	tmpSuffix       = ".tmp"     // Suffix of the file written before the rename
)

// --------------------------------------------------------------------------
// File based persistence
// --------------------------------------------------------------------------

type filePersistence struct {
	fs   afero.Fs
	path string
}

// NewFilePersistence creates a persistence that stores snapshots in a single file on the
// local filesystem.
func NewFilePersistence(path string) IPersistence {
	return NewFsPersistence(afero.NewOsFs(), path)
}

// NewFsPersistence creates a persistence that stores snapshots at path on the given afero.Fs.
func NewFsPersistence(fs afero.Fs, path string) IPersistence {
	return &filePersistence{
		fs:   fs,
		path: path,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see persist/interface.go)
// --------------------------------------------------------------------------

func (p *filePersistence) Save(mapping map[string][]byte) error {
	data := encodeSnapshot(mapping)

	// make sure the directory exists
	if dir := filepath.Dir(p.path); dir != "" && dir != "." {
		if err := p.fs.MkdirAll(dir, 0o755); err != nil {
			return persistenceError(errors.Wrapf(err, "failed to create directory %s", dir))
		}
	}

	// write the snapshot to a temporary file first and replace the old one
	// with a rename, so that a crash never leaves a half written snapshot behind
	tmpPath := p.path + tmpSuffix
	if err := p.writeFile(tmpPath, data); err != nil {
		_ = p.fs.Remove(tmpPath)
		return persistenceError(err)
	}

	if err := p.fs.Rename(tmpPath, p.path); err != nil {
		_ = p.fs.Remove(tmpPath)
		return persistenceError(errors.Wrapf(err, "failed to replace snapshot %s", p.path))
	}

	Logger.Debugf("saved snapshot with %d entries (%d bytes) to %s", len(mapping), len(data), p.path)
	return nil
}

func (p *filePersistence) Load() (map[string][]byte, error) {
	data, err := afero.ReadFile(p.fs, p.path)
	if errors.Is(err, os.ErrNotExist) {
		Logger.Infof("no snapshot found at %s, starting empty", p.path)
		return map[string][]byte{}, nil
	}
	if err != nil {
		return map[string][]byte{}, persistenceError(errors.Wrapf(err, "failed to read snapshot %s", p.path))
	}

	mapping, err := decodeSnapshot(data)
	if err != nil {
		return map[string][]byte{}, persistenceError(errors.Wrapf(err, "corrupt snapshot %s", p.path))
	}

	Logger.Debugf("loaded snapshot with %d entries from %s", len(mapping), p.path)
	return mapping, nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// writeFile writes data to path and syncs the file before closing it.
func (p *filePersistence) writeFile(path string, data []byte) error {
	f, err := p.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to write %s", path)
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to sync %s", path)
	}

	return errors.Wrapf(f.Close(), "failed to close %s", path)
}

// persistenceError converts any error into a store error of kind RetCPersistenceFailure.
func persistenceError(err error) *store.Error {
	return store.NewError(store.RetCPersistenceFailure, err.Error())
}

// encodeSnapshot serializes a mapping with the format:
// - 8 bytes: magic number
// - 1 byte: version
// - 8 bytes: number of entries (uint64, big endian)
// - per entry (sorted by key):
//   - 4 bytes key length, N bytes key
//   - 4 bytes value length, N bytes value
//
// - 8 bytes: xxhash64 of all preceding bytes
func encodeSnapshot(mapping map[string][]byte) []byte {
	var buf bytes.Buffer
	lenBuf := make([]byte, 8)

	buf.WriteString(magicNum)
	buf.WriteByte(snapshotVersion)

	binary.BigEndian.PutUint64(lenBuf, uint64(len(mapping)))
	buf.Write(lenBuf)

	for _, key := range slices.Sorted(maps.Keys(mapping)) {
		value := mapping[key]

		binary.BigEndian.PutUint32(lenBuf[:4], uint32(len(key)))
		buf.Write(lenBuf[:4])
		buf.WriteString(key)

		binary.BigEndian.PutUint32(lenBuf[:4], uint32(len(value)))
		buf.Write(lenBuf[:4])
		buf.Write(value)
	}

	binary.BigEndian.PutUint64(lenBuf, xxhash.Sum64(buf.Bytes()))
	buf.Write(lenBuf)

	return buf.Bytes()
}

// decodeSnapshot is the inverse of encodeSnapshot.
// It verifies the magic number, the version and the checksum before parsing.
func decodeSnapshot(data []byte) (map[string][]byte, error) {
	headerSize := len(magicNum) + 1 + 8
	if len(data) < headerSize+checksumSize {
		return nil, fmt.Errorf("snapshot too short (%d bytes)", len(data))
	}

	// verify checksum first, everything after relies on it
	body := data[:len(data)-checksumSize]
	expected := binary.BigEndian.Uint64(data[len(data)-checksumSize:])
	if actual := xxhash.Sum64(body); actual != expected {
		return nil, fmt.Errorf("checksum mismatch: expected %x, got %x", expected, actual)
	}

	if string(body[:len(magicNum)]) != magicNum {
		return nil, fmt.Errorf("invalid file format: magic number mismatch")
	}
	if version := body[len(magicNum)]; version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", version)
	}

	count := binary.BigEndian.Uint64(body[len(magicNum)+1 : headerSize])
	pos := headerSize

	// readChunk reads a length prefixed chunk
	readChunk := func() ([]byte, error) {
		if pos+4 > len(body) {
			return nil, fmt.Errorf("unexpected end of snapshot at offset %d", pos)
		}
		n := int(binary.BigEndian.Uint32(body[pos : pos+4]))
		pos += 4
		if pos+n > len(body) {
			return nil, fmt.Errorf("chunk of length %d exceeds snapshot at offset %d", n, pos)
		}
		chunk := body[pos : pos+n]
		pos += n
		return chunk, nil
	}

	mapping := make(map[string][]byte)
	for i := uint64(0); i < count; i++ {
		key, err := readChunk()
		if err != nil {
			return nil, err
		}
		value, err := readChunk()
		if err != nil {
			return nil, err
		}
		valueCopy := make([]byte, len(value))
		copy(valueCopy, value)
		mapping[string(key)] = valueCopy
	}

	if pos != len(body) {
		return nil, fmt.Errorf("%d trailing bytes after %d entries", len(body)-pos, count)
	}

	return mapping, nil
}
