// Copyright (c) 2012-2014 Jeremy Latt
// Copyright (c) 2014-2015 Edmund Huber
// Copyright (c) 2016-2017 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package irc

import (
	"errors"
	"fmt"
)

// Runtime Errors
var (
	ErrInvalidChannelName = errors.New("Invalid channel name")
	ErrInvalidNickname    = errors.New("Invalid nickname")
	ErrNoSuchChannel      = errors.New("No membership listing recorded for channel")
	ErrSessionClosed      = errors.New("Session is closed")
)

// Config Errors
var (
	ErrChatlogDirectoryMissing = errors.New("Chat log directory missing")
	ErrInvalidEnvironmentKey   = errors.New("Environment override has an empty path component")
	ErrNetworkIDMissing        = errors.New("Network id missing")
	ErrNetworkIDDuplicate      = errors.New("Network id is used by more than one network")
	ErrNetworkHostInvalid      = errors.New("Network host must be a hostname or an IP address")
	ErrNetworkPortInvalid      = errors.New("Network port must be between 1 and 65535")
	ErrNetworkNickMissing      = errors.New("Network nick missing")
	ErrNetworkNickInvalid      = errors.New("Network nick contains a space or starts with ':'")
	ErrNoNetworksDefined       = errors.New("No networks defined")
)

// ProtocolStateError is returned by queries about session state the server
// has not told us about.
type ProtocolStateError struct {
	Network string
	Channel string
	Err     error
}

func (e *ProtocolStateError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Network, e.Channel, e.Err)
}

func (e *ProtocolStateError) Unwrap() error {
	return e.Err
}

// ConfigError describes a network definition that was rejected. The network
// is skipped; the rest of the configuration still loads.
type ConfigError struct {
	Network string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("network %s: %v", e.Network, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
