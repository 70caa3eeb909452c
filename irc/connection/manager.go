// Copyright (c) 2026 The Uno Authors
// released under the MIT license

package connection

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"sync"
	"time"
	"weak"

	"github.com/tidwall/tinyqueue"

	"github.com/unobot/uno/irc/logger"
)

const (
	DefaultTimeout           = 300 * time.Second
	DefaultCheckInterval     = 30 * time.Second
	DefaultDialTimeout       = 20 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultReceiveBufferSize = 1024

	eventQueueLength = 256
)

// Config controls the manager's health check and every connection it drives.
type Config struct {
	// a connected transport silent for longer than this is reconnected
	Timeout       time.Duration
	CheckInterval time.Duration
	DialTimeout   time.Duration
	WriteTimeout  time.Duration
	// maximum bytes per read, and so per delivery
	ReceiveBufferSize int
}

func (config *Config) setDefaults() {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultCheckInterval
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = DefaultDialTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if config.ReceiveBufferSize <= 0 {
		config.ReceiveBufferSize = DefaultReceiveBufferSize
	}
}

// Dialer opens transports; *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Resolver turns a host into candidate addresses; *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) (addrs []string, err error)
}

// Option customizes a Manager.
type Option func(*Manager)

// WithDialer replaces the default net.Dialer.
func WithDialer(dialer Dialer) Option {
	return func(m *Manager) {
		m.dialer = dialer
	}
}

// WithResolver replaces net.DefaultResolver.
func WithResolver(resolver Resolver) Option {
	return func(m *Manager) {
		m.resolver = resolver
	}
}

// Manager drives every Connection created from it on a single loop
// goroutine: I/O completions, the periodic health check that is the only
// place reconnects are decided, and one-shot timers.
//
// The manager does not keep connections alive; whoever created a Connection
// owns it.
type Manager struct {
	config   Config
	logger   *logger.Manager
	dialer   Dialer
	resolver Resolver

	connectionsMutex sync.Mutex
	connections      []weak.Pointer[Connection]

	events    chan func()
	wakeup    chan struct{}
	timerWake chan struct{}
	quit      chan struct{}
	done      chan struct{}
	quitOnce  sync.Once

	timersMutex sync.Mutex
	timers      *tinyqueue.Queue
	timerSeq    uint64
}

// NewManager returns a manager; call Run to start its loop.
func NewManager(config Config, logger *logger.Manager, options ...Option) *Manager {
	config.setDefaults()
	m := &Manager{
		config:    config,
		logger:    logger,
		dialer:    &net.Dialer{},
		resolver:  net.DefaultResolver,
		events:    make(chan func(), eventQueueLength),
		wakeup:    make(chan struct{}, 1),
		timerWake: make(chan struct{}, 1),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		timers:    tinyqueue.New(nil),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Config returns the effective configuration, with defaults applied.
func (m *Manager) Config() Config {
	return m.config
}

// NewConnection returns a disconnected Connection to host:port. It is
// registered with the manager on its first Connect.
func (m *Manager) NewConnection(host string, port int) *Connection {
	return &Connection{
		manager: m,
		host:    host,
		port:    port,
	}
}

// Run executes the manager loop until ctx is cancelled or Shutdown is called.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)

	m.logger.Debug("manager", "loop started")
	defer m.logger.Debug("manager", "loop stopped")

	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		m.armTimer(timer)

		select {
		case <-ctx.Done():
			return
		case <-m.quit:
			return
		case event := <-m.events:
			m.safely(event)
		case <-m.wakeup:
			m.checkConnections()
		case <-ticker.C:
			m.checkConnections()
		case <-timer.C:
			m.fireTimers()
		case <-m.timerWake:
			// re-arm for a new earliest timer
		}
	}
}

// Shutdown stops the loop. Pending completions and timers are discarded.
func (m *Manager) Shutdown() {
	m.quitOnce.Do(func() {
		close(m.quit)
	})
}

// Done is closed once Run has returned.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// post queues fn to run on the loop goroutine. It returns false if the loop
// has stopped, in which case fn will never run.
func (m *Manager) post(fn func()) bool {
	select {
	case m.events <- fn:
		return true
	case <-m.quit:
		return false
	case <-m.done:
		return false
	}
}

// register adds c to the health check and wakes the loop. Only the first
// call for a given connection has any effect.
func (m *Manager) register(c *Connection) {
	if !c.registered.CompareAndSwap(false, true) {
		return
	}

	m.connectionsMutex.Lock()
	m.connections = append(m.connections, weak.Make(c))
	m.connectionsMutex.Unlock()

	select {
	case m.wakeup <- struct{}{}:
	default:
	}
}

// liveConnections returns the connections still worth checking, forgetting
// the ones that were closed or collected.
func (m *Manager) liveConnections() (result []*Connection) {
	m.connectionsMutex.Lock()
	defer m.connectionsMutex.Unlock()

	kept := m.connections[:0]
	for _, wp := range m.connections {
		c := wp.Value()
		if c == nil || c.closed.Load() {
			continue
		}
		kept = append(kept, wp)
		result = append(result, c)
	}
	for i := len(kept); i < len(m.connections); i++ {
		m.connections[i] = weak.Pointer[Connection]{}
	}
	m.connections = kept
	return
}

// checkConnections reconnects every connection that is down or has gone
// silent. A failure on one connection never stops the scan.
func (m *Manager) checkConnections() {
	for _, c := range m.liveConnections() {
		m.safely(func() {
			m.checkConnection(c)
		})
	}
}

func (m *Manager) checkConnection(c *Connection) {
	switch c.State() {
	case Connecting:
		// a dial is already in flight, bounded by DialTimeout
		return
	case Connected:
		if !c.IsTimedOut() {
			return
		}
		m.logger.Warning("manager", c.Addr(), fmt.Sprintf("nothing received for over %v, reconnecting", m.config.Timeout))
	case Disconnected:
		m.logger.Info("manager", c.Addr(), "reconnecting")
	}
	c.Reconnect()
}

// safely runs fn, logging instead of propagating any panic.
func (m *Manager) safely(fn func()) {
	defer m.handlePanic()
	fn()
}

// handlePanic must be called directly with defer.
func (m *Manager) handlePanic() {
	if r := recover(); r != nil {
		m.logger.Error("internal", fmt.Sprintf("Panic encountered: %v\n%s", r, debug.Stack()))
	}
}
