// Copyright (c) 2026 The Uno Authors
// released under the MIT license

package connection

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrShortWrite   = errors.New("short write")
	ErrNoAddresses  = errors.New("host resolved to no addresses")
	ErrClosed       = errors.New("connection was closed")
)

// TransportError is a resolve, connect, receive or send failure. These are
// transient: the manager's health check retries the connection.
type TransportError struct {
	Op   string
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
