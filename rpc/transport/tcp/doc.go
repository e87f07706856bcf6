// Package tcp implements the TCP socket based transport of the txKV RPC system.
// It provides the connectors the base package needs to open and accept TCP connections
// and applies the configured socket options (TCP_NODELAY, keep-alive) to every connection.
//
// Framing, request/response correlation and error handling are inherited from the
// base package.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector
//
// The default server buffer size is set to 512 KB, which provides good performance
// for typical workloads, but can be customized for specific use cases.
package tcp
