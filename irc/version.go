// Copyright (c) 2020 Shivaram Lingamneni
// Released under the MIT license

package irc

import (
	"fmt"
	"runtime"
)

const (
	// SemVer is the semantic version of uno.
	SemVer = "0.3.0-unreleased"
)

var (
	// Ver is the full version of uno, used in CTCP VERSION replies.
	Ver = fmt.Sprintf("uno-%s", SemVer)
	// Commit is the full git hash, if available
	Commit string
)

// initialize version strings (these are set in package main via linker flags)
func SetVersionString(version, commit string) {
	Commit = commit
	if version != "" {
		Ver = fmt.Sprintf("uno-%s", version)
	} else if len(Commit) == 40 {
		Ver = fmt.Sprintf("uno-%s-%s", SemVer, Commit[:16])
	}
}

// versionReply is the payload of our answer to a CTCP VERSION request.
func versionReply() string {
	return fmt.Sprintf("VERSION %s running on %s/%s", Ver, runtime.GOOS, runtime.GOARCH)
}
