// Copyright (c) 2026 The Uno Authors
// released under the MIT license

package connection

import (
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestTimersFireInDeadlineOrder(t *testing.T) {
	manager := newTestManager(t, newPipeDialer(), staticResolver{})

	var mutex sync.Mutex
	var fired []int
	done := make(chan struct{})
	record := func(n int) func() {
		return func() {
			mutex.Lock()
			fired = append(fired, n)
			count := len(fired)
			mutex.Unlock()
			if count == 3 {
				close(done)
			}
		}
	}

	manager.RegisterTimer(60*time.Millisecond, record(3))
	manager.RegisterTimer(10*time.Millisecond, record(1))
	manager.RegisterTimer(30*time.Millisecond, record(2))

	waitFor(t, done)
	if !reflect.DeepEqual(fired, []int{1, 2, 3}) {
		t.Errorf("timers fired out of order: %v", fired)
	}
	if manager.PendingTimers() != 0 {
		t.Errorf("%d timers still pending", manager.PendingTimers())
	}
}

func TestLaterTimerDoesNotSupersedeEarlierOne(t *testing.T) {
	manager := newTestManager(t, newPipeDialer(), staticResolver{})

	first := make(chan struct{})
	second := make(chan struct{})
	manager.RegisterTimer(20*time.Millisecond, func() { close(first) })
	manager.RegisterTimer(40*time.Millisecond, func() { close(second) })

	waitFor(t, first)
	waitFor(t, second)
}

func TestTimerPanicDoesNotStopLoop(t *testing.T) {
	manager := newTestManager(t, newPipeDialer(), staticResolver{})

	fired := make(chan struct{})
	manager.RegisterTimer(0, func() { panic("timer exploded") })
	manager.RegisterTimer(10*time.Millisecond, func() { close(fired) })

	waitFor(t, fired)
}

func TestTimerOrderingTiesBreakByRegistration(t *testing.T) {
	when := time.Now()
	a := &timerItem{when: when, seq: 1}
	b := &timerItem{when: when, seq: 2}
	if !a.Less(b) || b.Less(a) {
		t.Error("equal deadlines should order by registration")
	}
	c := &timerItem{when: when.Add(-time.Second), seq: 3}
	if !c.Less(a) {
		t.Error("earlier deadline should come first")
	}
}
