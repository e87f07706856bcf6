package base

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/txkv/rpc/common"
	"github.com/ValentinKolb/txkv/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
)

var Logger = logger.GetLogger("transport/rpc")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.).
// It holds a single connection with at most one request in flight.
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	mu            sync.Mutex // Held for the whole write/read cycle of a request
	conn          net.Conn
	nextRequestID uint64
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if config.Endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Close an existing connection
	t.closeConnection()
	t.config = config

	conn, err := t.connector.Connect(config.Endpoint, t.timeout())
	if err != nil {
		return errors.Wrapf(err, "failed to connect to %s", config.Endpoint)
	}

	// Upgrade the connection with protocol-specific settings
	if err := t.connector.UpgradeConnection(conn, config); err != nil {
		_ = conn.Close()
		return errors.Wrapf(err, "failed to upgrade connection to %s", config.Endpoint)
	}

	t.conn = conn
	Logger.Infof("Connected to %s using %s transport", config.Endpoint, t.connector.GetName())
	return nil
}

func (t *clientTransport) Send(req []byte) (resp []byte, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil, fmt.Errorf("connection is closed")
	}

	t.nextRequestID++
	requestID := t.nextRequestID

	// A failed exchange leaves the stream in an unknown state, the connection is dropped
	defer func() {
		if err != nil {
			Logger.Debugf("Request %d failed, closing connection: %v", requestID, err)
			t.closeConnection()
		}
	}()

	if timeout := t.timeout(); timeout > 0 {
		if err := t.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, errors.Wrap(err, "failed to set deadline")
		}
	}

	if err := writeFrame(t.conn, requestID, req); err != nil {
		return nil, errors.Wrap(err, "error writing request")
	}

	// The response is read into a fresh buffer, it is handed to the caller
	responseID, data, err := readFrame(t.conn, nil)
	if err != nil {
		return nil, errors.Wrap(err, "error reading response")
	}
	if responseID != requestID {
		return nil, fmt.Errorf("received response for request %d while waiting for %d", responseID, requestID)
	}

	return data, nil
}

func (t *clientTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeConnection()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *clientTransport) timeout() time.Duration {
	return time.Duration(t.config.TimeoutSecond) * time.Second
}

// closeConnection closes the active connection (caller holds mu)
func (t *clientTransport) closeConnection() {
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
}
