// Package client implements the RPC client of txKV. It speaks the txKV protocol
// (read, write, commit, rollback, snapshot) with a remote server through the
// configured transport and serializer.
//
// Key Components:
//
//   - ITxClient: The typed client interface.
//
//   - NewRPCTxClient: Factory function that connects the transport and returns an
//     ITxClient.
//
//   - OperationError: Returned when the server answered a request with success=false
//     (e.g. an unknown transaction id). Transport and decoding problems are returned
//     as plain errors.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoint:      "localhost:8080",
//	  TimeoutSecond: 5,
//	}
//
//	c, _ := client.NewRPCTxClient(config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	defer c.Close()
//
//	// every write starts a new transaction
//	txID, _ := c.Write("mykey", []byte("myvalue"))
//	value, found, _ := c.Read("mykey", txID) // read-your-own-writes
//	_ = c.Commit(txID)
//
// Thread Safety:
//
//	The client is safe for concurrent use, requests are sent one at a time.
package client
