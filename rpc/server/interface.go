package server

import (
	"github.com/ValentinKolb/txkv/rpc/common"
)

// IRPCServerAdapter is the interface for the component that answers decoded requests
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response.
	// It never fails, errors are reported inside the response.
	Handle(req *common.Message) (resp *common.Message)
}
