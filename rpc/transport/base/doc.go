// Package base provides the foundation for the stream socket transports of txKV
// (TCP, Unix sockets). It implements framing and the request/response cycle
// independent of the specific network protocol and is extended with protocol-specific
// connectors.
//
// Frame format (all integers big endian):
//
//	8 bytes  request id
//	4 bytes  payload length (at most MaxFrameBytes)
//	N bytes  payload (one serialized message)
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different network protocols.
//
//   - clientTransport: Holds a single connection. A request is written and its
//     response is read while holding a mutex, so there is never more than one request
//     in flight. The echoed request id is verified. There are no retries and no
//     reconnects: a failed exchange closes the connection and later sends fail until
//     Connect is called again.
//
//   - serverTransport: Accepts connections and serves each one as a strict loop of
//     read request, call handler, write response. Read buffers are pooled with a
//     sync.Pool. Close stops the listener and closes all open connections.
//
// Thread Safety:
//
//	All public methods are thread-safe. The server creates a dedicated goroutine
//	for each connection; serializing requests across connections is the job of the
//	registered handler.
package base
