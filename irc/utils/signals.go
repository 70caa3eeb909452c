//go:build !plan9
// +build !plan9

// Copyright (c) 2020 Shivaram Lingamneni
// released under the MIT license

package utils

import (
	"os"
	"syscall"
)

var (
	// ExitSignals shut uno down cleanly.
	ExitSignals = []os.Signal{
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	}

	// TracebackSignals dump every goroutine to stderr.
	TracebackSignals = []os.Signal{
		syscall.SIGUSR1,
	}
)
