package serializer

import (
	"encoding/binary"
	"fmt"
	"maps"
	"slices"

	"github.com/ValentinKolb/txkv/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey      byte = 1 << 0
	hasValue    byte = 1 << 1
	hasTxID     byte = 1 << 2
	hasSuccess  byte = 1 << 3
	hasFound    byte = 1 << 4
	hasMsg      byte = 1 << 5
	hasEntries  byte = 1 << 6
	headerBytes      = 2 // MsgType + flags
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

// Serialize writes the message with the format:
// 1 byte message type, 1 byte flags, followed by the present fields in flag order.
// Strings and byte slices are prefixed with a 4 byte length (big endian),
// Success and Found are encoded in the flags only,
// Entries are a 4 byte count followed by length prefixed key/value pairs (sorted by key).
func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	result := make([]byte, b.sizeBytes(msg))

	result[0] = byte(msg.MsgType)

	var flags byte = 0
	pos := headerBytes

	if msg.Key != "" {
		flags |= hasKey
		pos = putChunk(result, pos, []byte(msg.Key))
	}

	// a non-nil but empty value is kept, it is a valid (empty) value
	if msg.Value != nil {
		flags |= hasValue
		pos = putChunk(result, pos, msg.Value)
	}

	if msg.TransactionID != "" {
		flags |= hasTxID
		pos = putChunk(result, pos, []byte(msg.TransactionID))
	}

	if msg.Success {
		flags |= hasSuccess
	}

	if msg.Found {
		flags |= hasFound
	}

	if msg.Msg != "" {
		flags |= hasMsg
		pos = putChunk(result, pos, []byte(msg.Msg))
	}

	if msg.Entries != nil {
		flags |= hasEntries
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(msg.Entries)))
		pos += 4
		for _, key := range slices.Sorted(maps.Keys(msg.Entries)) {
			pos = putChunk(result, pos, []byte(key))
			pos = putChunk(result, pos, msg.Entries[key])
		}
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < headerBytes {
		return fmt.Errorf("data too short for message header")
	}

	msg.MsgType = common.MessageType(data[0])
	flags := data[1]
	r := chunkReader{data: data, pos: headerBytes}

	msg.Key = ""
	if flags&hasKey != 0 {
		key, err := r.next("key")
		if err != nil {
			return err
		}
		msg.Key = string(key)
	}

	msg.Value = nil
	if flags&hasValue != 0 {
		value, err := r.next("value")
		if err != nil {
			return err
		}
		// create an empty slice (not nil) if the length is 0
		msg.Value = make([]byte, len(value))
		copy(msg.Value, value)
	}

	msg.TransactionID = ""
	if flags&hasTxID != 0 {
		id, err := r.next("transaction id")
		if err != nil {
			return err
		}
		msg.TransactionID = string(id)
	}

	msg.Success = flags&hasSuccess != 0
	msg.Found = flags&hasFound != 0

	msg.Msg = ""
	if flags&hasMsg != 0 {
		text, err := r.next("message")
		if err != nil {
			return err
		}
		msg.Msg = string(text)
	}

	msg.Entries = nil
	if flags&hasEntries != 0 {
		if r.pos+4 > len(data) {
			return fmt.Errorf("data too short for entry count")
		}
		count := binary.BigEndian.Uint32(data[r.pos : r.pos+4])
		r.pos += 4

		// every entry needs at least 8 bytes, reject counts that cannot fit
		if uint64(count)*8 > uint64(len(data)-r.pos) {
			return fmt.Errorf("data too short for %d entries", count)
		}

		msg.Entries = make(map[string][]byte, count)
		for i := uint32(0); i < count; i++ {
			key, err := r.next("entry key")
			if err != nil {
				return err
			}
			value, err := r.next("entry value")
			if err != nil {
				return err
			}
			valueCopy := make([]byte, len(value))
			copy(valueCopy, value)
			msg.Entries[string(key)] = valueCopy
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := headerBytes

	// Add sizes for fields that require length encoding
	if msg.Key != "" {
		size += 4 + len(msg.Key)
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.TransactionID != "" {
		size += 4 + len(msg.TransactionID)
	}
	if msg.Msg != "" {
		size += 4 + len(msg.Msg)
	}
	if msg.Entries != nil {
		size += 4 // entry count
		for key, value := range msg.Entries {
			size += 4 + len(key) + 4 + len(value)
		}
	}

	return size
}

// putChunk writes a length prefixed chunk to buf at pos and returns the new position
func putChunk(buf []byte, pos int, chunk []byte) int {
	binary.BigEndian.PutUint32(buf[pos:pos+4], uint32(len(chunk)))
	pos += 4
	copy(buf[pos:pos+len(chunk)], chunk)
	return pos + len(chunk)
}

// chunkReader reads length prefixed chunks from data
type chunkReader struct {
	data []byte
	pos  int
}

// next returns the next chunk. The returned slice aliases the underlying data.
func (r *chunkReader) next(field string) ([]byte, error) {
	if r.pos+4 > len(r.data) {
		return nil, fmt.Errorf("data too short for %s length", field)
	}
	n := int(binary.BigEndian.Uint32(r.data[r.pos : r.pos+4]))
	r.pos += 4

	if n > len(r.data)-r.pos {
		return nil, fmt.Errorf("data too short for %s data", field)
	}
	chunk := r.data[r.pos : r.pos+n]
	r.pos += n
	return chunk, nil
}
