// Package unix implements the transport layer of the txKV RPC system using Unix
// domain sockets, for clients running on the same machine as the server.
//
// This package extends the base transport layer with Unix socket-specific connectors
// while inheriting framing and error handling from the base package.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners (an existing socket file is replaced)
//
// Performance Characteristics:
//
//   - Default buffer size: 64 KB, optimized for local communication patterns
//   - Reduced overhead: Eliminates TCP/IP stack processing for better performance
package unix
