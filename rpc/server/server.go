package server

import (
	"fmt"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ValentinKolb/txkv/lib/persist"
	"github.com/ValentinKolb/txkv/lib/store"
	"github.com/ValentinKolb/txkv/lib/store/lstore"
	"github.com/ValentinKolb/txkv/lib/txn"
	"github.com/ValentinKolb/txkv/rpc/common"
	"github.com/ValentinKolb/txkv/rpc/serializer"
	"github.com/ValentinKolb/txkv/rpc/transport"
	"github.com/ValentinKolb/txkv/rpc/transport/base"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc")

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPDefaultServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	// Create the RPC server
	return rpcServer{
		config:           config,
		transport:        transport,
		serializer:       serializer,
		maxResponseBytes: base.MaxFrameBytes,
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	adapter    IRPCServerAdapter

	// responses above this size are replaced by a failure response (0 = no limit)
	maxResponseBytes int
}

// handle decodes a request, lets the adapter answer it and encodes the response.
// Requests that cannot be decoded are answered with an error message.
func (s *rpcServer) handle(req []byte) []byte {
	var msg common.Message
	var respMsg *common.Message

	// Decode the request
	if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		// Let the adapter handle the request
		respMsg = s.adapter.Handle(&msg)
	}

	// Return result
	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize %s response: %v", respMsg.MsgType, err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}

	// a response the transport cannot frame would leave the request unanswered
	if s.maxResponseBytes > 0 && len(val) > s.maxResponseBytes {
		Logger.Errorf("%s response of %d bytes exceeds the limit of %d bytes", respMsg.MsgType, len(val), s.maxResponseBytes)
		tooLarge := store.NewError(store.RetCInternalError, fmt.Sprintf("response of %d bytes exceeds the limit of %d bytes", len(val), s.maxResponseBytes))
		val, _ = s.serializer.Serialize(*common.NewFailureResponse(respMsg.MsgType, tooLarge))
	}
	return val
}

func (s *rpcServer) init() error {
	// Init logger
	if err := common.InitLoggers(s.config.LogLevel); err != nil {
		return err
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(s.config.String())

	// Choose where committed data is kept
	var persistence persist.IPersistence
	if s.config.DataFile != "" {
		persistence = persist.NewFilePersistence(s.config.DataFile)
		Logger.Infof("using snapshot file %s", s.config.DataFile)
	} else {
		persistence = persist.NewMemoryPersistence()
		Logger.Warningf("no data file configured, committed data is lost on restart")
	}

	// The manager loads the durable state before the transport starts listening
	manager := txn.NewManager(lstore.NewLocalStore(), persistence)
	s.adapter = NewDispatcher(manager)

	Logger.Infof("txKV setup completed successfully")

	// Configure the transport layer
	s.transport.RegisterHandler(s.handle)

	return nil
}

// Serve starts the RPC server
// This function will also initialize the store and transaction manager and start the transport layer.
// It blocks until the server is closed.
func (s *rpcServer) Serve() error {
	err := s.init()
	if err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}

// Close stops the transport layer, Serve returns afterward.
// Committed data is already durable, there is nothing to flush.
func (s *rpcServer) Close() error {
	return s.transport.Close()
}
