package base

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

const (
	frameHeaderBytes = 12               // 8 bytes requestID + 4 bytes length
	MaxFrameBytes    = 64 * 1024 * 1024 // 64 MiB
)

// writeFrame writes a frame to the connection with the format:
// - 8 bytes: requestID (uint64, big endian)
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
func writeFrame(conn io.Writer, requestID uint64, data []byte) error {
	if len(data) > MaxFrameBytes {
		return fmt.Errorf("frame of %d bytes exceeds limit of %d bytes", len(data), MaxFrameBytes)
	}

	header := make([]byte, frameHeaderBytes)
	binary.BigEndian.PutUint64(header[:8], requestID)
	binary.BigEndian.PutUint32(header[8:12], uint32(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads a frame from the connection using the provided buffer.
// If the buffer is too small, it will allocate a new temporary buffer for the data.
// The returned data may alias buf.
func readFrame(conn io.Reader, buf []byte) (uint64, []byte, error) {
	var header [frameHeaderBytes]byte

	// Read header
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return 0, nil, err
	}

	// Parse header
	requestID := binary.BigEndian.Uint64(header[:8])
	contentLength := binary.BigEndian.Uint32(header[8:12])

	if contentLength > MaxFrameBytes {
		return requestID, nil, fmt.Errorf("frame of %d bytes exceeds limit of %d bytes", contentLength, MaxFrameBytes)
	}

	// If no data, return empty slice
	if contentLength == 0 {
		return requestID, []byte{}, nil
	}

	// Check if buffer is large enough for data
	if len(buf) < int(contentLength) {
		buf = make([]byte, contentLength)
	}

	// Read data
	if _, err := io.ReadFull(conn, buf[:contentLength]); err != nil {
		return requestID, nil, err
	}

	return requestID, buf[:contentLength], nil
}
