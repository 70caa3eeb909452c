// Copyright (c) 2026 The Uno Authors
// released under the MIT license

// Package chatlog writes the per-network, per-target message logs.
package chatlog

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/unobot/uno/irc/flock"
	"github.com/unobot/uno/irc/logger"
	"github.com/unobot/uno/irc/utils"
)

const (
	lockFilename = ".lock"
	logSuffix    = ".log"

	minExpiryInterval = time.Second
)

var (
	ErrClosed = errors.New("chatlog manager is closed")
)

// Scheduler runs a callback once after a delay.
type Scheduler interface {
	RegisterTimer(delay time.Duration, callback func())
}

type openFile struct {
	file     *os.File
	lastUsed time.Time
}

// Manager owns the log directory. It holds a lock file in the directory for
// as long as it is open, and keeps recently used log files open.
type Manager struct {
	sync.Mutex // tier 1

	directory   string
	idleTimeout time.Duration
	logger      *logger.Manager
	lock        flock.Flocker
	files       map[string]*openFile
	closed      bool
}

// NewManager creates directory if needed and takes its lock.
func NewManager(directory string, idleTimeout time.Duration, logger *logger.Manager) (*Manager, error) {
	if err := os.MkdirAll(directory, 0700); err != nil {
		return nil, err
	}
	lock, err := flock.TryLock(filepath.Join(directory, lockFilename))
	if err != nil {
		return nil, err
	}
	return &Manager{
		directory:   directory,
		idleTimeout: idleTimeout,
		logger:      logger,
		lock:        lock,
		files:       make(map[string]*openFile),
	}, nil
}

// Network returns the logs for one network host.
func (m *Manager) Network(host string) *NetworkLog {
	return &NetworkLog{
		manager:   m,
		directory: filepath.Join(m.directory, sanitize(host)),
	}
}

// OpenFiles returns the number of log files currently held open.
func (m *Manager) OpenFiles() int {
	m.Lock()
	defer m.Unlock()
	return len(m.files)
}

// ExpireIdle closes files that have not been written since idleTimeout
// before now, and returns how many it closed.
func (m *Manager) ExpireIdle(now time.Time) (closed int) {
	m.Lock()
	defer m.Unlock()

	cutoff := now.Add(-m.idleTimeout)
	for path, f := range m.files {
		if f.lastUsed.Before(cutoff) {
			m.closeFile(path, f)
			closed++
		}
	}
	return
}

// ScheduleExpiry expires idle files periodically until the manager is closed.
func (m *Manager) ScheduleExpiry(scheduler Scheduler) {
	interval := m.idleTimeout / 2
	if interval < minExpiryInterval {
		interval = minExpiryInterval
	}

	var expire func()
	expire = func() {
		m.Lock()
		closed := m.closed
		m.Unlock()
		if closed {
			return
		}
		if count := m.ExpireIdle(time.Now()); count != 0 {
			m.logger.Debug("chatlog", "closed idle log files", strconv.Itoa(count))
		}
		scheduler.RegisterTimer(interval, expire)
	}
	scheduler.RegisterTimer(interval, expire)
}

// Close closes every open file and releases the directory lock.
func (m *Manager) Close() error {
	m.Lock()
	defer m.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	for path, f := range m.files {
		m.closeFile(path, f)
	}
	return m.lock.Unlock()
}

func (m *Manager) closeFile(path string, f *openFile) {
	if err := f.file.Close(); err != nil {
		m.logger.Warning("chatlog", "could not close", path, err.Error())
	}
	delete(m.files, path)
}

func (m *Manager) write(path, line string) (err error) {
	m.Lock()
	defer m.Unlock()

	if m.closed {
		return ErrClosed
	}

	f, ok := m.files[path]
	if !ok {
		if err = os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return err
		}
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			return err
		}
		f = &openFile{file: file}
		m.files[path] = f
	}
	f.lastUsed = time.Now()
	_, err = f.file.WriteString(line)
	return err
}

// NetworkLog is the set of logs for one network, one file per target.
type NetworkLog struct {
	manager   *Manager
	directory string
}

// LogMessage appends text as one line to the target's log.
func (n *NetworkLog) LogMessage(target, text string) {
	path := n.LogName(target)
	if err := n.manager.write(path, utils.TruncateAtLineEnd(text)+"\n"); err != nil {
		n.manager.logger.Error("chatlog", "could not write", path, err.Error())
	}
}

// LogName returns the path of the target's log.
func (n *NetworkLog) LogName(target string) string {
	return filepath.Join(n.directory, sanitize(target)+logSuffix)
}

// sanitize turns a host or target into a single safe path component. Names
// that only differ in case share a file.
func sanitize(name string) string {
	name = utils.CasefoldOrLower(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '\x00':
			return '_'
		}
		return r
	}, name)
	if strings.HasPrefix(name, ".") {
		name = "_" + name[1:]
	}
	if name == "" {
		return "_"
	}
	return name
}
