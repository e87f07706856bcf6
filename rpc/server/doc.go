// Package server implements the RPC server of txKV.
//
// Key Components:
//
//   - Dispatcher: The protocol state machine. It answers read, write, commit,
//     rollback and snapshot requests using the transaction manager. Every request
//     produces exactly one response, errors (and panics) are converted into
//     {success: false, message} responses. A write always starts a new transaction,
//     a failed write or commit discards the transaction involved.
//
//   - IRPCServerAdapter: Interface implemented by the Dispatcher, decoupling request
//     handling from the transport and serialization layers.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms. On Serve the committed state is loaded from
//     the data file (or kept in memory if none is configured) before the transport
//     starts listening.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Endpoint:      "0.0.0.0:8080",
//	  TimeoutSecond: 5,
//	  DataFile:      "txkv.snap",
//	  LogLevel:      "info",
//	}
//
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPDefaultServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	Transports may serve many connections at once, the Dispatcher still handles
//	requests strictly one after another (including persisting a commit).
//
// Metrics:
//
//	txkv_requests_total{operation, outcome} counts handled requests, the transaction
//	manager adds transaction and commit metrics. The http transport exposes all of
//	them on GET /metrics.
package server
