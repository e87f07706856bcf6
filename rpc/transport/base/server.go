package base

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/txkv/rpc/common"
	"github.com/ValentinKolb/txkv/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector  IServerConnector
	handler    transport.ServerHandleFunc
	config     common.ServerConfig
	bufferPool *sync.Pool

	listenerMu sync.Mutex
	listener   net.Listener
	closed     bool

	nextConnID  atomic.Uint64
	connections *xsync.MapOf[uint64, net.Conn] // open connections, closed on shutdown
	wg          sync.WaitGroup
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport.
// bufferSize is the size of the pooled read buffers, larger requests allocate a temporary buffer.
func NewBaseServerTransport(connector IServerConnector, bufferSize int) transport.IRPCServerTransport {
	return &serverTransport{
		connector:   connector,
		connections: xsync.NewMapOf[uint64, net.Conn](),
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return make([]byte, bufferSize)
			},
		},
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}
	t.config = config

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}

	t.listenerMu.Lock()
	if t.closed {
		t.listenerMu.Unlock()
		return listener.Close()
	}
	t.listener = listener
	t.listenerMu.Unlock()

	Logger.Infof("Starting %s server on %s", t.connector.GetName(), config.Endpoint)

	// Accept connections
	for {
		conn, err := listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			t.wg.Wait()
			Logger.Infof("Stopped %s server on %s", t.connector.GetName(), config.Endpoint)
			return nil
		}
		if err != nil {
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		if err := t.connector.UpgradeConnection(conn, config); err != nil {
			Logger.Warningf("Failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
		}

		connID, ok := t.track(conn)
		if !ok {
			continue
		}
		t.wg.Add(1)

		// Handle the connection in a goroutine
		go func() {
			defer t.wg.Done()
			defer t.connections.Delete(connID)
			t.handleConnection(conn)
		}()
	}
}

func (t *serverTransport) Close() error {
	t.listenerMu.Lock()
	defer t.listenerMu.Unlock()

	t.closed = true
	if t.listener == nil {
		return nil
	}

	err := t.listener.Close()
	t.connections.Range(func(_ uint64, conn net.Conn) bool {
		_ = conn.Close()
		return true
	})
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// track registers an accepted connection so Close can reach it.
// If the transport was closed in the meantime the connection is closed instead.
func (t *serverTransport) track(conn net.Conn) (uint64, bool) {
	connID := t.nextConnID.Add(1)
	t.connections.Store(connID, conn)

	// Close holds listenerMu while closing the stored connections
	t.listenerMu.Lock()
	closed := t.closed
	t.listenerMu.Unlock()

	if closed {
		t.connections.Delete(connID)
		_ = conn.Close()
		return 0, false
	}
	return connID, true
}

// handleConnection serves one connection as a strict request/response loop:
// read a frame, hand it to the handler, write the response, repeat.
// A connection may stay idle between requests, the timeout applies to writing responses.
func (t *serverTransport) handleConnection(conn net.Conn) {
	defer conn.Close()

	Logger.Debugf("Accepted connection from %s", conn.RemoteAddr())

	// Timeout in seconds
	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	// Get a buffer from the pool, it is reused for every request of this connection
	buf := t.bufferPool.Get().([]byte)
	defer t.bufferPool.Put(buf)

	for {
		requestID, data, err := readFrame(conn, buf)

		// Case EOF: Connection closed by client
		if err == io.EOF || errors.Is(err, net.ErrClosed) {
			Logger.Debugf("Connection closed by client")
			return
		}

		// Case error: log and close connection
		if err != nil {
			Logger.Errorf("Error reading request: %v", err)
			return
		}

		// Process the request
		start := time.Now()
		resp := t.handler(data)
		Logger.Debugf("Processed request %d took %s", requestID, time.Since(start))

		if timeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Failed to set write deadline: %v", err)
				return
			}
		}

		// Write the response with the same requestID
		if err := writeFrame(conn, requestID, resp); err != nil {
			Logger.Errorf("Failed to write response: %v", err)
			return
		}
	}
}
