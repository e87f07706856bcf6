// Package transport defines the interfaces and abstractions for RPC communication
// in txKV. It provides a common contract that all transport implementations must
// fulfill, enabling protocol-agnostic communication.
//
// Every transport follows a strict request/response discipline: each request
// produces exactly one response and a client never has more than one request
// in flight.
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transport implementations that
//     handles connection management and request sending.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     receives requests and hands them to the registered handler.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
//
// Implementations live in the sub packages base (shared framing for stream sockets),
// tcp, unix and http.
package transport
