// Copyright (c) 2026 The Uno Authors
// released under the MIT license

package connection

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/unobot/uno/irc/handle"
	"github.com/unobot/uno/irc/utils"
)

// State is the lifecycle state of a Connection. There is no terminal failure
// state: every failure returns the connection to Disconnected, and the
// manager's health check takes it from there.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "invalid"
	}
}

// Receiver is called with every chunk of bytes read from the transport,
// in the order they were read.
type Receiver func(conn *Connection, data []byte)

// OnConnectFunc is called each time the transport is (re)established,
// before any data is delivered to receivers.
type OnConnectFunc func(conn *Connection)

// Connection is a reconnectable byte stream to one host. All connect and
// receive completions run on the owning Manager's loop goroutine; Send may
// be called from any goroutine.
//
// Callbacks must not call Close on their own connection: Close waits for the
// in-flight dispatch to finish.
type Connection struct {
	manager *Manager

	// tier 0; held for the whole of each delivery, and by Close before teardown
	dispatchMutex sync.Mutex
	// tier 1
	sendMutex sync.Mutex
	// tier 2
	stateMutex sync.Mutex
	host       string
	port       int
	conn       net.Conn
	generation uint64
	cancelDial context.CancelFunc

	state       atomic.Int32
	closed      atomic.Bool
	registered  atomic.Bool
	lastReceive atomic.Int64 // unix nanoseconds
	reconnects  atomic.Int64

	receivers handle.Registry[Receiver]
	onConnect handle.Registry[OnConnectFunc]
}

// RegisterReceiver subscribes to raw inbound bytes until the handle is dropped.
func (c *Connection) RegisterReceiver(receiver Receiver) *handle.Handle {
	return c.receivers.Register(receiver)
}

// RegisterOnConnectCallback subscribes to connection establishment until the
// handle is dropped.
func (c *Connection) RegisterOnConnectCallback(callback OnConnectFunc) *handle.Handle {
	return c.onConnect.Register(callback)
}

// State returns the current lifecycle state.
func (c *Connection) State() State {
	return State(c.state.Load())
}

// IsConnected returns true if the transport is established.
func (c *Connection) IsConnected() bool {
	return c.State() == Connected
}

// IsTimedOut returns true once nothing has been received for longer than the
// manager's timeout window. It never acts on this itself.
func (c *Connection) IsTimedOut() bool {
	last := time.Unix(0, c.lastReceive.Load())
	return c.manager.config.Timeout < time.Since(last)
}

// Reconnects returns how many times Reconnect has been called.
func (c *Connection) Reconnects() int64 {
	return c.reconnects.Load()
}

// Addr returns the host:port this connection targets.
func (c *Connection) Addr() string {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()
	return utils.JoinHostPort(c.host, c.port)
}

// Connect starts establishing the transport to host:port in the background,
// abandoning any previous transport or dial in progress. The outcome is
// reported through on-connect callbacks and the logs, never returned.
func (c *Connection) Connect(host string, port int) {
	if c.closed.Load() {
		return
	}

	c.stateMutex.Lock()
	c.closeTransportLocked()
	c.host, c.port = host, port
	c.generation++
	generation := c.generation
	ctx, cancel := context.WithTimeout(context.Background(), c.manager.config.DialTimeout)
	c.cancelDial = cancel
	c.state.Store(int32(Connecting))
	c.stateMutex.Unlock()

	c.manager.register(c)
	go c.dial(ctx, cancel, generation, host, port)
}

// Reconnect tears down the transport and connects again to the stored
// host and port, keeping every live subscriber. A Send in progress finishes
// before the transport is closed.
func (c *Connection) Reconnect() {
	if c.closed.Load() {
		return
	}

	c.sendMutex.Lock()
	c.stateMutex.Lock()
	host, port := c.host, c.port
	c.closeTransportLocked()
	c.stateMutex.Unlock()
	c.sendMutex.Unlock()

	c.reconnects.Inc()
	c.Connect(host, port)
}

// Send writes data to the transport. Any failure is a *TransportError.
func (c *Connection) Send(data []byte) error {
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	c.stateMutex.Lock()
	conn := c.conn
	addr := utils.JoinHostPort(c.host, c.port)
	c.stateMutex.Unlock()

	if conn == nil || !c.IsConnected() {
		return &TransportError{Op: "send", Addr: addr, Err: ErrNotConnected}
	}

	if timeout := c.manager.config.WriteTimeout; 0 < timeout {
		conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	n, err := conn.Write(data)
	if err != nil {
		return &TransportError{Op: "send", Addr: addr, Err: err}
	} else if n < len(data) {
		return &TransportError{Op: "send", Addr: addr, Err: ErrShortWrite}
	}

	if c.manager.logger.IsLoggingRawIO() {
		c.manager.logger.Debug("wire-out", addr, strings.TrimRight(string(data), "\r\n"))
	}
	return nil
}

// Close permanently shuts the connection down. It waits for a delivery in
// progress to finish, so it must not be called from one of this connection's
// own callbacks.
func (c *Connection) Close() {
	c.dispatchMutex.Lock()
	defer c.dispatchMutex.Unlock()

	if c.closed.Swap(true) {
		return
	}

	c.stateMutex.Lock()
	c.closeTransportLocked()
	c.generation++
	c.stateMutex.Unlock()
}

func (c *Connection) closeTransportLocked() {
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.state.Store(int32(Disconnected))
}

func (c *Connection) isCurrent(generation uint64) bool {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()
	return generation == c.generation && !c.closed.Load()
}

// dispatch runs fn under the dispatch guard, unless the connection was
// closed in the meantime.
func (c *Connection) dispatch(fn func()) {
	c.dispatchMutex.Lock()
	defer c.dispatchMutex.Unlock()

	if c.closed.Load() {
		return
	}
	fn()
}

func (c *Connection) dial(ctx context.Context, cancel context.CancelFunc, generation uint64, host string, port int) {
	defer cancel()

	addr := utils.JoinHostPort(host, port)
	candidates, err := c.manager.resolver.LookupHost(ctx, host)
	if err == nil && len(candidates) == 0 {
		err = ErrNoAddresses
	}
	if err != nil {
		failure := &TransportError{Op: "resolve", Addr: addr, Err: err}
		c.manager.post(func() { c.connectFailed(generation, failure) })
		return
	}

	var lastErr error
	for _, candidate := range candidates {
		conn, err := c.manager.dialer.DialContext(ctx, "tcp", utils.JoinHostPort(candidate, port))
		if err != nil {
			c.manager.logger.Debug("connection", addr, "could not connect to candidate", candidate, err.Error())
			lastErr = err
			continue
		}
		if !c.manager.post(func() { c.connected(generation, conn) }) {
			conn.Close()
		}
		return
	}

	failure := &TransportError{Op: "connect", Addr: addr, Err: lastErr}
	c.manager.post(func() { c.connectFailed(generation, failure) })
}

// connected runs on the manager loop.
func (c *Connection) connected(generation uint64, conn net.Conn) {
	c.stateMutex.Lock()
	if generation != c.generation || c.closed.Load() {
		c.stateMutex.Unlock()
		conn.Close()
		return
	}
	c.cancelDial = nil
	c.conn = conn
	addr := utils.JoinHostPort(c.host, c.port)
	c.lastReceive.Store(time.Now().UnixNano())
	c.state.Store(int32(Connected))
	c.stateMutex.Unlock()

	c.manager.logger.Info("connection", addr, "connected", conn.RemoteAddr().String())

	c.dispatch(func() {
		c.onConnect.Each(func(callback OnConnectFunc) {
			callback(c)
		})
	})

	go c.readLoop(generation, conn, addr)
}

// connectFailed runs on the manager loop.
func (c *Connection) connectFailed(generation uint64, failure *TransportError) {
	c.stateMutex.Lock()
	current := generation == c.generation
	if current {
		c.cancelDial = nil
		c.state.Store(int32(Disconnected))
	}
	c.stateMutex.Unlock()

	if current {
		c.manager.logger.Warning("connection", failure.Addr, "could not connect", failure.Err.Error())
	}
}

func (c *Connection) readLoop(generation uint64, conn net.Conn, addr string) {
	buf := make([]byte, c.manager.config.ReceiveBufferSize)
	for {
		n, err := conn.Read(buf)
		if 0 < n {
			data := make([]byte, n)
			copy(data, buf[:n])
			if !c.manager.post(func() { c.deliver(generation, data) }) {
				return
			}
		}
		if err != nil {
			failure := &TransportError{Op: "receive", Addr: addr, Err: err}
			c.manager.post(func() { c.receiveFailed(generation, failure) })
			return
		}
	}
}

// deliver runs on the manager loop.
func (c *Connection) deliver(generation uint64, data []byte) {
	if !c.isCurrent(generation) {
		return
	}
	c.lastReceive.Store(time.Now().UnixNano())

	if c.manager.logger.IsLoggingRawIO() {
		c.manager.logger.Debug("wire-in", c.Addr(), strings.TrimRight(string(data), "\r\n"))
	}

	c.dispatch(func() {
		c.receivers.Each(func(receiver Receiver) {
			receiver(c, data)
		})
	})
}

// receiveFailed runs on the manager loop.
func (c *Connection) receiveFailed(generation uint64, failure *TransportError) {
	c.stateMutex.Lock()
	if generation != c.generation || c.closed.Load() {
		c.stateMutex.Unlock()
		return
	}
	c.closeTransportLocked()
	c.stateMutex.Unlock()

	if errors.Is(failure.Err, io.EOF) {
		c.manager.logger.Info("connection", failure.Addr, "connection closed by peer")
	} else {
		c.manager.logger.Warning("connection", failure.Addr, "receive failed", failure.Err.Error())
	}
}
