// Copyright (c) 2026 The Uno Authors
// released under the MIT license

package connection

import (
	"time"

	"github.com/tidwall/tinyqueue"
)

type timerItem struct {
	when     time.Time
	seq      uint64
	callback func()
}

func (t *timerItem) Less(other tinyqueue.Item) bool {
	o := other.(*timerItem)
	if t.when.Equal(o.when) {
		return t.seq < o.seq
	}
	return t.when.Before(o.when)
}

// RegisterTimer arranges for callback to run once on the loop goroutine
// after delay. Timers are independent of each other; ones that come due
// together fire in registration order.
func (m *Manager) RegisterTimer(delay time.Duration, callback func()) {
	m.timersMutex.Lock()
	m.timerSeq++
	m.timers.Push(&timerItem{
		when:     time.Now().Add(delay),
		seq:      m.timerSeq,
		callback: callback,
	})
	m.timersMutex.Unlock()

	select {
	case m.timerWake <- struct{}{}:
	default:
	}
}

// PendingTimers returns the number of timers that have not fired yet.
func (m *Manager) PendingTimers() int {
	m.timersMutex.Lock()
	defer m.timersMutex.Unlock()
	return m.timers.Len()
}

// armTimer points timer at the earliest pending deadline.
func (m *Manager) armTimer(timer *time.Timer) {
	m.timersMutex.Lock()
	defer m.timersMutex.Unlock()

	if m.timers.Len() == 0 {
		timer.Stop()
		return
	}
	next := m.timers.Peek().(*timerItem)
	timer.Reset(time.Until(next.when))
}

func (m *Manager) fireTimers() {
	now := time.Now()
	for {
		m.timersMutex.Lock()
		if m.timers.Len() == 0 || m.timers.Peek().(*timerItem).when.After(now) {
			m.timersMutex.Unlock()
			return
		}
		due := m.timers.Pop().(*timerItem)
		m.timersMutex.Unlock()

		m.safely(due.callback)
	}
}
