package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message (the operation)
	MsgType MessageType `json:"operation"`

	// Request fields
	Key           string `json:"key,omitempty"`            // Used for: Read, Write
	Value         []byte `json:"value,omitempty"`          // Used for: Write (request), Read (response)
	TransactionID string `json:"transaction_id,omitempty"` // Used for: Read (optional), Commit, Rollback (optional), Write (response), Commit (response)

	// Response only fields
	Success bool              `json:"success,omitempty"` // Whether the operation succeeded
	Msg     string            `json:"message,omitempty"` // Human-readable result or error message
	Found   bool              `json:"found,omitempty"`   // Used for: Read responses (false = key absent)
	Entries map[string][]byte `json:"entries,omitempty"` // Used for: Snapshot responses
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewReadRequest creates a new Read request. An empty transactionID reads committed data only.
func NewReadRequest(key string, transactionID string) *Message {
	return &Message{
		MsgType:       MsgTRead,
		Key:           key,
		TransactionID: transactionID,
	}
}

// NewReadResponse creates a new Read response
func NewReadResponse(value []byte, found bool) *Message {
	return &Message{
		MsgType: MsgTRead,
		Success: true,
		Value:   value,
		Found:   found,
	}
}

// NewWriteRequest creates a new Write request
func NewWriteRequest(key string, value []byte) *Message {
	return &Message{
		MsgType: MsgTWrite,
		Key:     key,
		Value:   value,
	}
}

// NewWriteResponse creates a new Write response
func NewWriteResponse(transactionID string) *Message {
	return &Message{
		MsgType:       MsgTWrite,
		Success:       true,
		Msg:           "State is updated",
		TransactionID: transactionID,
	}
}

// NewCommitRequest creates a new Commit request
func NewCommitRequest(transactionID string) *Message {
	return &Message{
		MsgType:       MsgTCommit,
		TransactionID: transactionID,
	}
}

// NewCommitResponse creates a new Commit response
func NewCommitResponse(transactionID string) *Message {
	return &Message{
		MsgType:       MsgTCommit,
		Success:       true,
		Msg:           "Committed",
		TransactionID: transactionID,
	}
}

// NewRollbackRequest creates a new Rollback request. The transactionID is optional.
func NewRollbackRequest(transactionID string) *Message {
	return &Message{
		MsgType:       MsgTRollback,
		TransactionID: transactionID,
	}
}

// NewRollbackResponse creates a new Rollback response
func NewRollbackResponse() *Message {
	return &Message{
		MsgType: MsgTRollback,
		Success: true,
		Msg:     "Rolled back",
	}
}

// NewSnapshotRequest creates a new Snapshot request
func NewSnapshotRequest() *Message {
	return &Message{
		MsgType: MsgTSnapshot,
	}
}

// NewSnapshotResponse creates a new Snapshot response
func NewSnapshotResponse(entries map[string][]byte) *Message {
	return &Message{
		MsgType: MsgTSnapshot,
		Success: true,
		Entries: entries,
	}
}

// NewFailureResponse creates a response for a failed operation of the given type
func NewFailureResponse(msgType MessageType, err error) *Message {
	return &Message{
		MsgType: msgType,
		Success: false,
		Msg:     fmt.Sprintf("Error: %s", err),
	}
}

// NewErrorResponse creates a new Error response.
// Error responses are used if the request could not be interpreted at all.
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Msg:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTRead:
		return "read"
	case MsgTWrite:
		return "write"
	case MsgTCommit:
		return "commit"
	case MsgTRollback:
		return "rollback"
	case MsgTSnapshot:
		return "snapshot"
	case MsgTError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseMessageType converts the string representation of an operation to a MessageType.
func ParseMessageType(s string) (MessageType, error) {
	switch s {
	case "read":
		return MsgTRead, nil
	case "write":
		return MsgTWrite, nil
	case "commit":
		return MsgTCommit, nil
	case "rollback":
		return MsgTRollback, nil
	case "snapshot":
		return MsgTSnapshot, nil
	case "error":
		return MsgTError, nil
	case "unknown":
		return MsgTUnknown, nil
	default:
		return MsgTUnknown, fmt.Errorf("unknown message type: %s", s)
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseMessageType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	MsgTUnknown MessageType = iota
	MsgTError               // Indicates that a request could not be handled at all

	// Transaction operations

	MsgTRead     // Read a committed or pending value
	MsgTWrite    // Start a transaction and write a pending value
	MsgTCommit   // Commit a transaction
	MsgTRollback // Roll back a transaction
	MsgTSnapshot // Read the complete committed mapping
)
