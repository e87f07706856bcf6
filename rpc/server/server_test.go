package server

import (
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/txkv/rpc/client"
	"github.com/ValentinKolb/txkv/rpc/common"
	"github.com/ValentinKolb/txkv/rpc/serializer"
	"github.com/ValentinKolb/txkv/rpc/transport/unix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer starts a txKV server on a unix socket. The returned func stops the
// server and waits until it has shut down, it is also called when the test ends.
func startServer(t *testing.T, socket, dataFile string) (stop func()) {
	t.Helper()

	s := NewRPCServer(
		common.ServerConfig{
			Endpoint:      socket,
			TimeoutSecond: 5,
			DataFile:      dataFile,
			LogLevel:      "error",
		},
		unix.NewUnixDefaultServerTransport(),
		serializer.NewBinarySerializer(),
	)

	done := make(chan error, 1)
	go func() {
		done <- s.Serve()
	}()

	var once sync.Once
	stop = func() {
		once.Do(func() {
			require.NoError(t, s.Close())
			require.NoError(t, <-done)
		})
	}
	t.Cleanup(stop)

	require.Eventually(t, func() bool {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 5*time.Second, 10*time.Millisecond)

	return stop
}

func newClient(t *testing.T, socket string) client.ITxClient {
	t.Helper()
	c, err := client.NewRPCTxClient(
		common.ClientConfig{Endpoint: socket, TimeoutSecond: 5},
		unix.NewUnixClientTransport(),
		serializer.NewBinarySerializer(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestEndToEndOverUnixSocket(t *testing.T) {
	dir := t.TempDir()
	socket := filepath.Join(dir, "txkv.sock")
	startServer(t, socket, filepath.Join(dir, "txkv.snap"))

	c := newClient(t, socket)

	// absent key
	_, found, err := c.Read("x", "")
	require.NoError(t, err)
	assert.False(t, found)

	// write, read-your-own-writes and isolation
	txID, err := c.Write("x", []byte("1"))
	require.NoError(t, err)

	value, found, err := c.Read("x", txID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("1"), value)

	_, found, err = c.Read("x", "")
	require.NoError(t, err)
	assert.False(t, found)

	// commit makes the value visible and invalidates the id
	require.NoError(t, c.Commit(txID))

	value, found, err = c.Read("x", "")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("1"), value)

	err = c.Commit(txID)
	var opErr *client.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, common.MsgTCommit, opErr.Operation)

	// a rolled back write never becomes visible
	rolledBack, err := c.Write("y", []byte("2"))
	require.NoError(t, err)
	require.NoError(t, c.Rollback(rolledBack))
	require.NoError(t, c.Rollback(""))

	snapshot, err := c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"x": []byte("1")}, snapshot)

	// an empty key is rejected
	_, err = c.Write("", []byte("v"))
	assert.Error(t, err)
}

func TestCommittedDataSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "txkv.snap")

	firstSocket := filepath.Join(dir, "first.sock")
	stopFirst := startServer(t, firstSocket, dataFile)
	first := newClient(t, firstSocket)

	txID, err := first.Write("k", []byte("durable"))
	require.NoError(t, err)
	require.NoError(t, first.Commit(txID))

	_, err = first.Write("pending", []byte("lost"))
	require.NoError(t, err)

	// stop the first server, the pending transaction dies with it
	require.NoError(t, first.Close())
	stopFirst()

	// a new server on the same data file sees the committed state only
	secondSocket := filepath.Join(dir, "second.sock")
	startServer(t, secondSocket, dataFile)
	second := newClient(t, secondSocket)

	snapshot, err := second.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"k": []byte("durable")}, snapshot)
}
