// Copyright (c) 2026 The Uno Authors
// released under the MIT license

package connection

import (
	"context"
	"errors"
	"net"
	"reflect"
	"runtime"
	"sync"
	"testing"
	"time"
)

const testTimeout = 5 * time.Second

// pipeDialer hands out in-memory transports; the server ends are queued on servers.
type pipeDialer struct {
	sync.Mutex
	refuse  map[string]bool
	dialed  []string
	servers chan net.Conn
}

func newPipeDialer() *pipeDialer {
	return &pipeDialer{
		refuse:  make(map[string]bool),
		servers: make(chan net.Conn, 16),
	}
}

func (d *pipeDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	d.Lock()
	d.dialed = append(d.dialed, address)
	refused := d.refuse[address]
	d.Unlock()

	if refused {
		return nil, errors.New("connection refused")
	}
	client, server := net.Pipe()
	d.servers <- server
	return client, nil
}

func (d *pipeDialer) Dialed() []string {
	d.Lock()
	defer d.Unlock()
	return append([]string(nil), d.dialed...)
}

func (d *pipeDialer) nextServer(t *testing.T) net.Conn {
	t.Helper()
	select {
	case server := <-d.servers:
		t.Cleanup(func() { server.Close() })
		return server
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for a dial")
		return nil
	}
}

type staticResolver map[string][]string

func (r staticResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	addrs, ok := r[host]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	return addrs, nil
}

func newTestManager(t *testing.T, dialer Dialer, resolver Resolver) *Manager {
	t.Helper()
	manager := NewManager(Config{CheckInterval: time.Hour}, nil, WithDialer(dialer), WithResolver(resolver))
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-manager.Done()
	})
	return manager
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for callback")
	}
}

func waitUntil(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatal("condition was never met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func connectedSignal(conn *Connection) (chan struct{}, func()) {
	connected := make(chan struct{}, 4)
	h := conn.RegisterOnConnectCallback(func(*Connection) {
		connected <- struct{}{}
	})
	return connected, h.Close
}

func TestConnectFiresOnConnect(t *testing.T) {
	dialer := newPipeDialer()
	manager := newTestManager(t, dialer, staticResolver{"irc.example.net": {"192.0.2.1"}})

	conn := manager.NewConnection("irc.example.net", 6667)
	if conn.State() != Disconnected {
		t.Errorf("new connection should be disconnected, was %v", conn.State())
	}
	connected, closeHandle := connectedSignal(conn)
	defer closeHandle()

	conn.Connect("irc.example.net", 6667)
	dialer.nextServer(t)
	waitFor(t, connected)

	if !conn.IsConnected() || conn.IsTimedOut() {
		t.Errorf("expected a fresh live connection, got state %v timedOut %v", conn.State(), conn.IsTimedOut())
	}
	if !reflect.DeepEqual(dialer.Dialed(), []string{"192.0.2.1:6667"}) {
		t.Errorf("unexpected dials %v", dialer.Dialed())
	}
}

func TestConnectFallsBackToLaterCandidates(t *testing.T) {
	dialer := newPipeDialer()
	dialer.refuse["[2001:db8::1]:6697"] = true
	manager := newTestManager(t, dialer, staticResolver{"irc.example.net": {"2001:db8::1", "192.0.2.1"}})

	conn := manager.NewConnection("irc.example.net", 6697)
	connected, closeHandle := connectedSignal(conn)
	defer closeHandle()

	conn.Connect("irc.example.net", 6697)
	dialer.nextServer(t)
	waitFor(t, connected)

	expected := []string{"[2001:db8::1]:6697", "192.0.2.1:6697"}
	if !reflect.DeepEqual(dialer.Dialed(), expected) {
		t.Errorf("expected dials %v, got %v", expected, dialer.Dialed())
	}
}

func TestConnectFailureLeavesDisconnected(t *testing.T) {
	dialer := newPipeDialer()
	manager := newTestManager(t, dialer, staticResolver{})

	conn := manager.NewConnection("nowhere.example", 6667)
	conn.Connect("nowhere.example", 6667)
	waitUntil(t, func() bool { return conn.State() == Disconnected })

	if len(dialer.Dialed()) != 0 {
		t.Errorf("nothing should have been dialed, got %v", dialer.Dialed())
	}
}

func TestReceiveDeliversInOrder(t *testing.T) {
	dialer := newPipeDialer()
	manager := newTestManager(t, dialer, staticResolver{"irc.example.net": {"192.0.2.1"}})

	conn := manager.NewConnection("irc.example.net", 6667)
	connected, closeHandle := connectedSignal(conn)
	defer closeHandle()

	var mutex sync.Mutex
	var received []byte
	h := conn.RegisterReceiver(func(c *Connection, data []byte) {
		mutex.Lock()
		received = append(received, data...)
		mutex.Unlock()
	})
	defer h.Close()

	conn.Connect("irc.example.net", 6667)
	server := dialer.nextServer(t)
	waitFor(t, connected)

	expected := "PING :one\r\nPING :two\r\nPING :three\r\n"
	go func() {
		for _, chunk := range []string{"PING :one\r\n", "PING :two\r\n", "PING :three\r\n"} {
			server.Write([]byte(chunk))
		}
	}()

	waitUntil(t, func() bool {
		mutex.Lock()
		defer mutex.Unlock()
		return len(received) == len(expected)
	})
	if string(received) != expected {
		t.Errorf("expected %q, got %q", expected, received)
	}
}

func TestDroppedReceiverIsPruned(t *testing.T) {
	dialer := newPipeDialer()
	manager := newTestManager(t, dialer, staticResolver{"irc.example.net": {"192.0.2.1"}})

	conn := manager.NewConnection("irc.example.net", 6667)
	connected, closeHandle := connectedSignal(conn)
	defer closeHandle()

	dropped := make(chan struct{}, 4)
	kept := make(chan struct{}, 4)
	droppedHandle := conn.RegisterReceiver(func(*Connection, []byte) { dropped <- struct{}{} })
	keptHandle := conn.RegisterReceiver(func(*Connection, []byte) { kept <- struct{}{} })
	defer keptHandle.Close()

	conn.Connect("irc.example.net", 6667)
	server := dialer.nextServer(t)
	waitFor(t, connected)

	droppedHandle.Close()
	go server.Write([]byte("PING :x\r\n"))
	waitFor(t, kept)

	select {
	case <-dropped:
		t.Error("dropped receiver was invoked")
	default:
	}
	if n := conn.receivers.Len(); n != 1 {
		t.Errorf("expected the dead slot to be pruned, %d slots remain", n)
	}
}

func TestCollectedReceiverIsPruned(t *testing.T) {
	dialer := newPipeDialer()
	manager := newTestManager(t, dialer, staticResolver{"irc.example.net": {"192.0.2.1"}})

	conn := manager.NewConnection("irc.example.net", 6667)
	connected, closeHandle := connectedSignal(conn)
	defer closeHandle()

	kept := make(chan struct{}, 4)
	keptHandle := conn.RegisterReceiver(func(*Connection, []byte) { kept <- struct{}{} })
	defer keptHandle.Close()
	func() {
		// registered and immediately unreachable
		conn.RegisterReceiver(func(*Connection, []byte) {
			t.Error("collected receiver was invoked")
		})
	}()
	runtime.GC()
	runtime.GC()

	conn.Connect("irc.example.net", 6667)
	server := dialer.nextServer(t)
	waitFor(t, connected)

	go server.Write([]byte("PING :x\r\n"))
	waitFor(t, kept)

	if n := conn.receivers.Len(); n != 1 {
		t.Errorf("expected the collected slot to be pruned, %d slots remain", n)
	}
}

func TestSendRequiresConnection(t *testing.T) {
	manager := NewManager(Config{}, nil)
	conn := manager.NewConnection("irc.example.net", 6667)

	err := conn.Send([]byte("NICK uno\r\n"))
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected a TransportError, got %v", err)
	}
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", transportErr.Err)
	}
	if transportErr.Addr != "irc.example.net:6667" {
		t.Errorf("unexpected address %s", transportErr.Addr)
	}
}

func TestSendWritesToTransport(t *testing.T) {
	dialer := newPipeDialer()
	manager := newTestManager(t, dialer, staticResolver{"irc.example.net": {"192.0.2.1"}})

	conn := manager.NewConnection("irc.example.net", 6667)
	connected, closeHandle := connectedSignal(conn)
	defer closeHandle()

	conn.Connect("irc.example.net", 6667)
	server := dialer.nextServer(t)
	waitFor(t, connected)

	result := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := server.Read(buf)
		result <- string(buf[:n])
	}()

	if err := conn.Send([]byte("NICK uno\r\n")); err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if line := <-result; line != "NICK uno\r\n" {
		t.Errorf("server read %q", line)
	}
}

func TestReadFailureDisconnects(t *testing.T) {
	dialer := newPipeDialer()
	manager := newTestManager(t, dialer, staticResolver{"irc.example.net": {"192.0.2.1"}})

	conn := manager.NewConnection("irc.example.net", 6667)
	connected, closeHandle := connectedSignal(conn)
	defer closeHandle()

	conn.Connect("irc.example.net", 6667)
	server := dialer.nextServer(t)
	waitFor(t, connected)

	server.Close()
	waitUntil(t, func() bool { return conn.State() == Disconnected })

	// the connection never retries on its own
	time.Sleep(20 * time.Millisecond)
	if conn.Reconnects() != 0 || len(dialer.Dialed()) != 1 {
		t.Errorf("connection retried by itself: %d reconnects, dials %v", conn.Reconnects(), dialer.Dialed())
	}
}

func TestHealthCheckReconnectsTimedOutConnectionOnce(t *testing.T) {
	dialer := newPipeDialer()
	manager := newTestManager(t, dialer, staticResolver{"irc.example.net": {"192.0.2.1"}})

	conn := manager.NewConnection("irc.example.net", 6667)
	connected, closeHandle := connectedSignal(conn)
	defer closeHandle()

	conn.Connect("irc.example.net", 6667)
	dialer.nextServer(t)
	waitFor(t, connected)

	manager.checkConnections()
	if conn.Reconnects() != 0 {
		t.Fatalf("healthy connection was reconnected")
	}

	conn.lastReceive.Store(time.Now().Add(-2 * DefaultTimeout).UnixNano())
	if !conn.IsTimedOut() {
		t.Fatal("expected the connection to report a timeout")
	}

	manager.checkConnections()
	dialer.nextServer(t)
	waitFor(t, connected)

	manager.checkConnections()
	if conn.Reconnects() != 1 {
		t.Errorf("expected exactly one reconnect, got %d", conn.Reconnects())
	}
	if conn.IsTimedOut() {
		t.Error("reconnect should reset the receive clock")
	}
}

func TestHealthCheckReconnectsDisconnected(t *testing.T) {
	dialer := newPipeDialer()
	manager := newTestManager(t, dialer, staticResolver{"irc.example.net": {"192.0.2.1"}})

	conn := manager.NewConnection("irc.example.net", 6667)
	connected, closeHandle := connectedSignal(conn)
	defer closeHandle()

	conn.Connect("irc.example.net", 6667)
	server := dialer.nextServer(t)
	waitFor(t, connected)

	server.Close()
	waitUntil(t, func() bool { return conn.State() == Disconnected })

	manager.checkConnections()
	dialer.nextServer(t)
	waitFor(t, connected)
	if conn.Reconnects() != 1 {
		t.Errorf("expected one reconnect, got %d", conn.Reconnects())
	}
}

func TestClosedConnectionIsForgotten(t *testing.T) {
	dialer := newPipeDialer()
	manager := newTestManager(t, dialer, staticResolver{"irc.example.net": {"192.0.2.1"}})

	conn := manager.NewConnection("irc.example.net", 6667)
	connected, closeHandle := connectedSignal(conn)
	defer closeHandle()

	conn.Connect("irc.example.net", 6667)
	dialer.nextServer(t)
	waitFor(t, connected)

	conn.Close()
	if conn.IsConnected() {
		t.Error("closed connection still reports connected")
	}
	if live := manager.liveConnections(); len(live) != 0 {
		t.Errorf("closed connection still tracked: %d", len(live))
	}
	conn.Reconnect()
	if conn.Reconnects() != 0 {
		t.Error("closed connection accepted a reconnect")
	}
}
