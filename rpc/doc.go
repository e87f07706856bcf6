// Package rpc provides the remote procedure call layer of txKV. It connects
// clients with the transaction manager running inside the server.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets, HTTP).
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: The RPC client (ITxClient) for read, write, commit, rollback and snapshot.
//
//   - server: The RPC server and the Dispatcher that answers requests using the
//     transaction manager.
package rpc
