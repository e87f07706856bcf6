package common

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Shared transport configuration
// --------------------------------------------------------------------------

// TCPConf holds the socket options applied to tcp connections (ignored by other transports)
type TCPConf struct {
	TCPNoDelay      bool // Disable Nagle's algorithm
	TCPKeepAliveSec int  // Keep-alive period in seconds (0 = disabled)
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of the txKV server.
type ServerConfig struct {
	// Address the transport listens on (host:port for tcp and http, socket path for unix)
	Endpoint string

	// Timeout for writing a response in seconds (0 = no timeout), idle connections are kept open
	TimeoutSecond int64

	// Path of the snapshot file (empty = keep committed data in memory only)
	DataFile string

	// Logging configuration
	LogLevel string

	TCP TCPConf
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("TCP NoDelay", fmt.Sprintf("%t", c.TCP.TCPNoDelay))
	addField("TCP KeepAlive", fmt.Sprintf("%d sec", c.TCP.TCPKeepAliveSec))

	// Storage
	addSection("Storage")
	if c.DataFile == "" {
		addField("Data File", "(in memory)")
	} else {
		addField("Data File", c.DataFile)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	// Address of the server (a URL for http, host:port for tcp, socket path for unix)
	Endpoint      string
	TimeoutSecond int
	TCP           TCPConf
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("TCP NoDelay", fmt.Sprintf("%t", c.TCP.TCPNoDelay))

	return sb.String()
}
