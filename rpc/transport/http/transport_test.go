package http

import (
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/ValentinKolb/txkv/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// freeEndpoint returns a local address that was free a moment ago
func freeEndpoint(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func startEchoServer(t *testing.T) string {
	endpoint := freeEndpoint(t)

	server := NewHttpServerTransport()
	server.RegisterHandler(func(req []byte) []byte {
		return append([]byte("echo:"), req...)
	})

	done := make(chan error, 1)
	go func() {
		done <- server.Listen(common.ServerConfig{Endpoint: endpoint, TimeoutSecond: 5, LogLevel: "debug"})
	}()
	t.Cleanup(func() {
		require.NoError(t, server.Close())
		assert.NoError(t, <-done)
	})

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", endpoint)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 5*time.Second, 10*time.Millisecond)

	return endpoint
}

func TestHttpRoundTrip(t *testing.T) {
	endpoint := startEchoServer(t)

	client := NewHttpClientTransport()
	require.NoError(t, client.Connect(common.ClientConfig{Endpoint: endpoint, TimeoutSecond: 5}))
	defer client.Close()

	for _, req := range []string{"first", "second", ""} {
		resp, err := client.Send([]byte(req))
		require.NoError(t, err)
		assert.Equal(t, "echo:"+req, string(resp))
	}
}

func TestHttpMetricsEndpoint(t *testing.T) {
	endpoint := startEchoServer(t)

	resp, err := http.Get("http://" + endpoint + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestHttpClientErrors(t *testing.T) {
	client := NewHttpClientTransport()

	_, err := client.Send([]byte("x"))
	assert.Error(t, err, "send before connect")

	assert.Error(t, client.Connect(common.ClientConfig{}), "empty endpoint")

	// nothing listens on this endpoint
	require.NoError(t, client.Connect(common.ClientConfig{Endpoint: freeEndpoint(t), TimeoutSecond: 1}))
	_, err = client.Send([]byte("x"))
	assert.Error(t, err)
	require.NoError(t, client.Close())
}
