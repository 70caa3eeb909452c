// Copyright (c) 2026 The Uno Authors
// released under the MIT license

package irc

import (
	"github.com/unobot/uno/irc/connection"
	"github.com/unobot/uno/irc/logger"
)

// StartSessions creates and connects one session per configured network.
// Networks that failed validation are logged and left out; they never stop
// the others from starting.
func StartSessions(config *Config, manager *connection.Manager, logger *logger.Manager, logsFor func(host string) MessageLogger) (sessions []*Session) {
	for _, err := range config.NetworkErrors {
		logger.Error("config", "skipping network", err.Error())
	}

	for _, network := range config.Networks {
		var logs MessageLogger
		if logsFor != nil {
			logs = logsFor(network.Host)
		}
		session := NewSession(network, manager, logger, logs)
		session.Connect()
		sessions = append(sessions, session)
	}

	logger.Info("config", "started sessions", Ver)
	return sessions
}

// CloseSessions closes every session.
func CloseSessions(sessions []*Session) {
	for _, session := range sessions {
		session.Close()
	}
}
