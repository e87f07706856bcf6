package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/txkv/rpc/common"
	"github.com/ValentinKolb/txkv/rpc/transport"
	"github.com/pkg/errors"
)

func NewHttpClientTransport() transport.IRPCClientTransport {
	return &httpClientTransport{}
}

// httpClientTransport sends every request as one POST to the server.
// The mutex keeps a single request in flight.
type httpClientTransport struct {
	mu        sync.Mutex
	serverURL string
	client    *http.Client
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *httpClientTransport) Connect(config common.ClientConfig) error {
	endpoint := config.Endpoint
	if endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}
	// Accept plain host:port endpoints like the socket transports do
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}

	parsedURL, err := url.Parse(endpoint)
	if err != nil {
		return errors.Wrapf(err, "invalid endpoint %s", config.Endpoint)
	}
	parsedURL.Path = "/"

	t.mu.Lock()
	defer t.mu.Unlock()

	t.client = &http.Client{
		Timeout: time.Duration(config.TimeoutSecond) * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        1,
			MaxIdleConnsPerHost: 1,
		},
	}
	t.serverURL = parsedURL.String()

	// No error
	return nil
}

func (t *httpClientTransport) Send(req []byte) (resp []byte, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Check if the transport is initialized
	if t.client == nil {
		return nil, fmt.Errorf("http transport not initialized")
	}

	httpResponse, err := t.client.Post(t.serverURL, "application/octet-stream", bytes.NewReader(req))
	if err != nil {
		return nil, errors.Wrap(err, "error sending request")
	}
	defer httpResponse.Body.Close()

	// Check if the response status code is OK
	if httpResponse.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http error: %s", httpResponse.Status)
	}

	// Read the response body
	return io.ReadAll(httpResponse.Body)
}

func (t *httpClientTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		t.client.CloseIdleConnections()
	}
	t.client = nil
	t.serverURL = ""

	return nil
}
