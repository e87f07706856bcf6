package client

import (
	"fmt"

	"github.com/ValentinKolb/txkv/rpc/common"
	"github.com/ValentinKolb/txkv/rpc/serializer"
	"github.com/ValentinKolb/txkv/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
type rpcClientAdapter struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest is a helper function used by the RPC client to send requests
// It takes a request message, a transport layer and a serializer as parameters
// It returns a response message and an error if any occurs
// This method also checks if the response is an error or failure response and if the type
// of the response is the expected type
func invokeRPCRequest(req *common.Message, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, err
	}

	// Send the request
	respBytes, err := transport.Send(reqBytes)
	if err != nil {
		return nil, err
	}

	// Deserialize the response
	resp := &common.Message{}
	err = serializer.Deserialize(respBytes, resp)
	if err != nil {
		return nil, fmt.Errorf("RPC client - failed to decode response: %s", err)
	}

	// Check if the response is an error response
	if resp.MsgType == common.MsgTError {
		return nil, fmt.Errorf("RPC client - server error: %s", resp.Msg)
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("RPC client - unexpected message type: %s, expected %s", resp.MsgType, req.MsgType)
	}

	// Check if the operation failed
	if !resp.Success {
		return nil, &OperationError{Operation: req.MsgType, Msg: resp.Msg}
	}

	// Return the response
	return resp, nil
}

// OperationError is returned if the server answered a request with {success: false}
type OperationError struct {
	Operation common.MessageType
	Msg       string // The message sent by the server
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Msg)
}
