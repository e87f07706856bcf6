package tcp

import (
	"net"
	"time"

	"github.com/ValentinKolb/txkv/rpc/common"
)

// applyTCPConf applies the socket options of conf to conn.
// Connections that are not tcp connections are left untouched.
func applyTCPConf(conn net.Conn, conf common.TCPConf) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	// Disable Nagle's algorithm (TCPNoDelay) if configured
	if err := tcpConn.SetNoDelay(conf.TCPNoDelay); err != nil {
		return err
	}

	// Enable TCP keep-alive if configured
	if conf.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		keepAlivePeriod := time.Duration(conf.TCPKeepAliveSec) * time.Second
		if err := tcpConn.SetKeepAlivePeriod(keepAlivePeriod); err != nil {
			return err
		}
	}

	return nil
}
