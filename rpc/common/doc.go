// Package common provides core data structures and utilities shared across
// txKV. It defines the wire protocol, the configuration structures and the
// logging setup used by the other packages.
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication, used for requests and
//     responses. Its json names (operation, key, value, transaction_id, success,
//     message, found, entries) are the field names of the protocol. Includes factory
//     methods for all requests and responses.
//
//   - MessageType: Enumeration of the operations (read, write, commit, rollback,
//     snapshot) plus the error type used for requests that could not be interpreted.
//
//   - ServerConfig / ClientConfig: Configuration of server and client, both with a
//     String method for printing the active configuration.
//
//   - Logger: Logger factory for dragonboat's logger package backed by zap. All packages
//     obtain their logger with logger.GetLogger(name), InitLoggers installs the factory
//     and sets the level.
package common
