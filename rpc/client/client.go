package client

import (
	"github.com/ValentinKolb/txkv/rpc/common"
	"github.com/ValentinKolb/txkv/rpc/serializer"
	"github.com/ValentinKolb/txkv/rpc/transport"
)

// ITxClient is the client side of the txKV protocol
type ITxClient interface {
	// Read returns the value of key. If transactionID is not empty, a value written
	// by that transaction is returned in favor of the committed value.
	Read(key string, transactionID string) (value []byte, found bool, err error)
	// Write starts a new transaction that sets key to value and returns its id.
	// The value only becomes visible to others after Commit.
	Write(key string, value []byte) (transactionID string, err error)
	// Commit durably applies the transaction
	Commit(transactionID string) error
	// Rollback discards the transaction. An empty transactionID is only acknowledged.
	Rollback(transactionID string) error
	// Snapshot returns the complete committed mapping
	Snapshot() (map[string][]byte, error)
	// Close closes the underlying transport
	Close() error
}

// NewRPCTxClient creates a new RPC client
// The function takes a config, a transport and a serializer as parameters
// It connects the transport and returns the client
func NewRPCTxClient(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (ITxClient, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	return &rpcTxClient{
		rpcClientAdapter{
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

type rpcTxClient struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see client.ITxClient)
// --------------------------------------------------------------------------

func (c *rpcTxClient) Read(key string, transactionID string) (value []byte, found bool, err error) {
	resp, err := invokeRPCRequest(common.NewReadRequest(key, transactionID), c.transport, c.serializer)
	if err != nil {
		return nil, false, err
	}
	if !resp.Found {
		return nil, false, nil
	}
	// some encodings drop empty values
	if resp.Value == nil {
		return []byte{}, true, nil
	}
	return resp.Value, true, nil
}

func (c *rpcTxClient) Write(key string, value []byte) (transactionID string, err error) {
	resp, err := invokeRPCRequest(common.NewWriteRequest(key, value), c.transport, c.serializer)
	if err != nil {
		return "", err
	}
	return resp.TransactionID, nil
}

func (c *rpcTxClient) Commit(transactionID string) error {
	_, err := invokeRPCRequest(common.NewCommitRequest(transactionID), c.transport, c.serializer)
	return err
}

func (c *rpcTxClient) Rollback(transactionID string) error {
	_, err := invokeRPCRequest(common.NewRollbackRequest(transactionID), c.transport, c.serializer)
	return err
}

func (c *rpcTxClient) Snapshot() (map[string][]byte, error) {
	resp, err := invokeRPCRequest(common.NewSnapshotRequest(), c.transport, c.serializer)
	if err != nil {
		return nil, err
	}
	if resp.Entries == nil {
		return map[string][]byte{}, nil
	}
	return resp.Entries, nil
}

func (c *rpcTxClient) Close() error {
	return c.transport.Close()
}
