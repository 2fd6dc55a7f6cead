package webrtc

import (
	"net"
	"time"

	"github.com/pion/datachannel"
)

// Conn adapts a detached WebRTC data channel to net.Conn, so it can be fed
// into the same net/rpc/jsonrpc codec used by the TCP transport.
type Conn struct {
	dataChannel datachannel.ReadWriteCloser
}

// NewConn wraps dataChannel as a net.Conn.
func NewConn(dataChannel datachannel.ReadWriteCloser) *Conn {
	return &Conn{dataChannel: dataChannel}
}

// Read implements net.Conn.
func (c *Conn) Read(p []byte) (int, error) { return c.dataChannel.Read(p) }

// Write implements net.Conn.
func (c *Conn) Write(p []byte) (int, error) { return c.dataChannel.Write(p) }

// Close implements net.Conn.
func (c *Conn) Close() error { return c.dataChannel.Close() }

// LocalAddr implements net.Conn. WebRTC data channels have no meaningful
// local address.
func (c *Conn) LocalAddr() net.Addr { return nil }

// RemoteAddr implements net.Conn. WebRTC data channels have no meaningful
// remote address.
func (c *Conn) RemoteAddr() net.Addr { return nil }

// SetDeadline is a no-op; deadlines are enforced by rpcnet.Pool instead.
func (c *Conn) SetDeadline(t time.Time) error { return nil }

// SetReadDeadline is a no-op; deadlines are enforced by rpcnet.Pool instead.
func (c *Conn) SetReadDeadline(t time.Time) error { return nil }

// SetWriteDeadline is a no-op; deadlines are enforced by rpcnet.Pool instead.
func (c *Conn) SetWriteDeadline(t time.Time) error { return nil }
