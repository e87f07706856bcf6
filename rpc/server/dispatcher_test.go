package server

import (
	"errors"
	"strings"
	"testing"

	"github.com/ValentinKolb/txkv/lib/persist"
	"github.com/ValentinKolb/txkv/lib/store/lstore"
	"github.com/ValentinKolb/txkv/lib/txn"
	"github.com/ValentinKolb/txkv/rpc/common"
	"github.com/ValentinKolb/txkv/rpc/serializer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenPersistence fails every Save
type brokenPersistence struct {
	persist.IPersistence
}

func (b *brokenPersistence) Save(map[string][]byte) error {
	return errors.New("disk full")
}

// panickingPersistence panics on every Save
type panickingPersistence struct {
	persist.IPersistence
}

func (p *panickingPersistence) Save(map[string][]byte) error {
	panic("boom")
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *txn.Manager) {
	t.Helper()
	manager := txn.NewManager(lstore.NewLocalStore(), persist.NewMemoryPersistence())
	return NewDispatcher(manager), manager
}

// write sends a write request and returns the new transaction id
func write(t *testing.T, d *Dispatcher, key, value string) string {
	t.Helper()
	resp := d.Handle(common.NewWriteRequest(key, []byte(value)))
	require.True(t, resp.Success, resp.Msg)
	require.NotEmpty(t, resp.TransactionID)
	return resp.TransactionID
}

func TestDispatcherScenario(t *testing.T) {
	d, manager := newTestDispatcher(t)

	// read of an unknown key is absent, not an error
	resp := d.Handle(common.NewReadRequest("x", ""))
	assert.Equal(t, common.MsgTRead, resp.MsgType)
	assert.True(t, resp.Success)
	assert.False(t, resp.Found)

	// write opens a transaction
	txID := write(t, d, "x", "1")
	assert.Equal(t, "State is updated", d.Handle(common.NewWriteRequest("y", []byte("2"))).Msg)

	// the pending value is visible inside the transaction only
	resp = d.Handle(common.NewReadRequest("x", txID))
	assert.True(t, resp.Found)
	assert.Equal(t, []byte("1"), resp.Value)
	assert.False(t, d.Handle(common.NewReadRequest("x", "")).Found)

	// commit
	resp = d.Handle(common.NewCommitRequest(txID))
	assert.True(t, resp.Success)
	assert.Equal(t, txID, resp.TransactionID)

	resp = d.Handle(common.NewReadRequest("x", ""))
	assert.True(t, resp.Found)
	assert.Equal(t, []byte("1"), resp.Value)

	// the id is gone after commit
	resp = d.Handle(common.NewCommitRequest(txID))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Msg, "UnknownTransaction")

	// snapshot shows committed data only (y was never committed)
	resp = d.Handle(common.NewSnapshotRequest())
	assert.True(t, resp.Success)
	assert.Equal(t, map[string][]byte{"x": []byte("1")}, resp.Entries)

	// the uncommitted write of y is still open
	assert.Equal(t, 1, manager.Active())
}

func TestDispatcherWriteInvalidKeyRollsBack(t *testing.T) {
	d, manager := newTestDispatcher(t)

	resp := d.Handle(common.NewWriteRequest("", []byte("v")))
	assert.Equal(t, common.MsgTWrite, resp.MsgType)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Msg, "InvalidKey")
	assert.Empty(t, resp.TransactionID)

	// the transaction opened for the write was discarded
	assert.Equal(t, 0, manager.Active())
}

func TestDispatcherWriteWithoutValue(t *testing.T) {
	d, _ := newTestDispatcher(t)

	txID := write(t, d, "k", "")
	require.True(t, d.Handle(common.NewCommitRequest(txID)).Success)

	resp := d.Handle(common.NewReadRequest("k", ""))
	assert.True(t, resp.Found)
	assert.Empty(t, resp.Value)
}

func TestDispatcherCommitPersistenceFailure(t *testing.T) {
	manager := txn.NewManager(lstore.NewLocalStore(), &brokenPersistence{persist.NewMemoryPersistence()})
	d := NewDispatcher(manager)

	txID := write(t, d, "k", "v")
	resp := d.Handle(common.NewCommitRequest(txID))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Msg, "PersistenceFailure")

	// nothing was applied and the transaction is gone
	assert.False(t, d.Handle(common.NewReadRequest("k", "")).Found)
	assert.Equal(t, 0, manager.Active())
	assert.False(t, d.Handle(common.NewRollbackRequest(txID)).Success)
}

func TestDispatcherRecoversFromPanic(t *testing.T) {
	committed := lstore.NewLocalStore()
	manager := txn.NewManager(committed, &panickingPersistence{persist.NewMemoryPersistence()})
	committed.Apply(map[string][]byte{"k": []byte("old")})
	d := NewDispatcher(manager)

	txID := write(t, d, "k", "new")
	resp := d.Handle(common.NewCommitRequest(txID))
	assert.Equal(t, common.MsgTCommit, resp.MsgType)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Msg, "boom")

	// the transaction is gone and the store is unchanged
	assert.Equal(t, 0, manager.Active())
	assert.Equal(t, map[string][]byte{"k": []byte("old")}, committed.GetAll())

	// the dispatcher keeps answering
	resp = d.Handle(common.NewReadRequest("k", ""))
	assert.True(t, resp.Success)
	assert.Equal(t, []byte("old"), resp.Value)
}

func TestDispatcherRollback(t *testing.T) {
	d, manager := newTestDispatcher(t)

	committed := write(t, d, "a", "1")
	require.True(t, d.Handle(common.NewCommitRequest(committed)).Success)

	// a rollback without id is only acknowledged
	resp := d.Handle(common.NewRollbackRequest(""))
	assert.True(t, resp.Success)
	assert.Equal(t, "Rolled back", resp.Msg)

	// a rollback with id discards only that transaction
	txID := write(t, d, "a", "2")
	other := write(t, d, "b", "3")
	require.True(t, d.Handle(common.NewCommitRequest(other)).Success)

	resp = d.Handle(common.NewRollbackRequest(txID))
	assert.True(t, resp.Success)
	assert.Equal(t, 0, manager.Active())

	// commits made after txID was started survive its rollback
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("3")}, d.Handle(common.NewSnapshotRequest()).Entries)

	// the id is gone
	resp = d.Handle(common.NewRollbackRequest(txID))
	assert.False(t, resp.Success)
	assert.False(t, d.Handle(common.NewCommitRequest(txID)).Success)
}

func TestDispatcherReadUnknownTransaction(t *testing.T) {
	d, _ := newTestDispatcher(t)

	resp := d.Handle(common.NewReadRequest("k", "does-not-exist"))
	assert.Equal(t, common.MsgTRead, resp.MsgType)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Msg, "UnknownTransaction")
}

func TestDispatcherUnknownOperation(t *testing.T) {
	d, _ := newTestDispatcher(t)

	for _, msgType := range []common.MessageType{common.MsgTUnknown, common.MsgTError, common.MessageType(200)} {
		resp := d.Handle(&common.Message{MsgType: msgType})
		assert.Equal(t, common.MsgTError, resp.MsgType)
		assert.False(t, resp.Success)
		assert.Contains(t, resp.Msg, "unsupported operation")
	}
}

func TestRPCServerHandleUndecodableRequest(t *testing.T) {
	s := rpcServer{serializer: serializer.NewJSONSerializer()}
	s.adapter, _ = newTestDispatcher(t)

	var resp common.Message
	require.NoError(t, s.serializer.Deserialize(s.handle([]byte("not json")), &resp))
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.Contains(t, resp.Msg, "failed to deserialize request")
}

func TestRPCServerHandleOversizedResponse(t *testing.T) {
	s := rpcServer{serializer: serializer.NewBinarySerializer(), maxResponseBytes: 256}
	d, _ := newTestDispatcher(t)
	s.adapter = d

	txID := write(t, d, "big", strings.Repeat("x", 300))
	require.True(t, d.Handle(common.NewCommitRequest(txID)).Success)

	handle := func(req *common.Message) common.Message {
		data, err := s.serializer.Serialize(*req)
		require.NoError(t, err)
		var resp common.Message
		require.NoError(t, s.serializer.Deserialize(s.handle(data), &resp))
		return resp
	}

	// the snapshot does not fit, the client still gets an answer
	resp := handle(common.NewSnapshotRequest())
	assert.Equal(t, common.MsgTSnapshot, resp.MsgType)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Msg, "exceeds the limit")
	assert.Nil(t, resp.Entries)

	// small responses are unaffected
	resp = handle(common.NewReadRequest("missing", ""))
	assert.True(t, resp.Success)
	assert.False(t, resp.Found)
}
