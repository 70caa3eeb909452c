// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package utils

import (
	"sync"

	"go.uber.org/atomic"
)

// Once is sync.Once with a Done() method, so that a closed object can
// refuse further work without running the close function again.
type Once struct {
	done atomic.Bool
	m    sync.Mutex
}

func (o *Once) Do(f func()) {
	if !o.done.Load() {
		o.doSlow(f)
	}
}

func (o *Once) doSlow(f func()) {
	o.m.Lock()
	defer o.m.Unlock()
	if !o.done.Load() {
		defer o.done.Store(true)
		f()
	}
}

// Done returns true once f has returned (or panicked).
func (o *Once) Done() bool {
	return o.done.Load()
}
