package server

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ValentinKolb/txkv/lib/store"
	"github.com/ValentinKolb/txkv/lib/txn"
	"github.com/ValentinKolb/txkv/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

// Dispatcher is the protocol state machine of txKV. It maps each request to the
// transaction manager and always produces exactly one response.
//
// Requests are handled strictly one after another, no matter how many connections
// the transport serves.
type Dispatcher struct {
	mu      sync.Mutex
	manager *txn.Manager
}

// NewDispatcher creates a dispatcher on top of the given transaction manager
func NewDispatcher(manager *txn.Manager) *Dispatcher {
	return &Dispatcher{manager: manager}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see server.IRPCServerAdapter)
// --------------------------------------------------------------------------

func (d *Dispatcher) Handle(req *common.Message) (resp *common.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("recovered from panic while handling %s request: %v", req.MsgType, r)
			resp = common.NewFailureResponse(req.MsgType, store.NewError(store.RetCInternalError, fmt.Sprint(r)))
		}
		countRequest(req.MsgType, resp)
		Logger.Debugf("handled %s request in %s (success=%t)", req.MsgType, time.Since(start), resp.Success)
	}()

	switch req.MsgType {
	case common.MsgTRead:
		return d.handleRead(req)
	case common.MsgTWrite:
		return d.handleWrite(req)
	case common.MsgTCommit:
		return d.handleCommit(req)
	case common.MsgTRollback:
		return d.handleRollback(req)
	case common.MsgTSnapshot:
		return common.NewSnapshotResponse(d.manager.Store().GetAll())
	default:
		return common.NewErrorResponse(fmt.Sprintf("unsupported operation: %s", req.MsgType))
	}
}

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

// handleRead returns the pending value of the transaction (if given) or the committed value.
// An absent key is a normal result.
func (d *Dispatcher) handleRead(req *common.Message) *common.Message {
	value, found, err := d.manager.Get(req.Key, req.TransactionID)
	if err != nil {
		return common.NewFailureResponse(common.MsgTRead, err)
	}
	return common.NewReadResponse(value, found)
}

// handleWrite opens a fresh transaction and sets the value in it.
// On failure the new transaction is discarded again.
func (d *Dispatcher) handleWrite(req *common.Message) *common.Message {
	id, err := d.manager.Start()
	if err != nil {
		return common.NewFailureResponse(common.MsgTWrite, err)
	}

	ok := false
	defer func() {
		if !ok {
			d.discard(id)
		}
	}()

	value := req.Value
	if value == nil {
		value = []byte{}
	}
	if err := d.manager.Set(req.Key, value, id); err != nil {
		return common.NewFailureResponse(common.MsgTWrite, err)
	}

	ok = true
	return common.NewWriteResponse(id)
}

// handleCommit commits the transaction. Any failure discards the transaction.
func (d *Dispatcher) handleCommit(req *common.Message) *common.Message {
	ok := false
	defer func() {
		if !ok {
			d.discard(req.TransactionID)
		}
	}()

	if err := d.manager.Commit(req.TransactionID); err != nil {
		return common.NewFailureResponse(common.MsgTCommit, err)
	}

	ok = true
	return common.NewCommitResponse(req.TransactionID)
}

// handleRollback acknowledges the request. If a transaction id is given that transaction is discarded.
func (d *Dispatcher) handleRollback(req *common.Message) *common.Message {
	if req.TransactionID == "" {
		return common.NewRollbackResponse()
	}
	if err := d.manager.Rollback(req.TransactionID); err != nil {
		return common.NewFailureResponse(common.MsgTRollback, err)
	}
	return common.NewRollbackResponse()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// discard rolls back a transaction after a failed operation.
// The transaction may already be gone (e.g. removed by a failed commit), that is not an error.
func (d *Dispatcher) discard(id string) {
	if id == "" {
		return
	}
	err := d.manager.Rollback(id)
	if err != nil && !errors.Is(err, store.ErrUnknownTransaction) {
		Logger.Warningf("failed to roll back transaction %s: %v", id, err)
	}
}

// countRequest increments the request counter for the operation and its outcome
func countRequest(op common.MessageType, resp *common.Message) {
	outcome := "failure"
	if resp != nil && resp.Success {
		outcome = "success"
	}
	metrics.GetOrCreateCounter(fmt.Sprintf(`txkv_requests_total{operation=%q,outcome=%q}`, op.String(), outcome)).Inc()
}
