// Copyright (c) 2017 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package utils

import "strings"

// TruncateAtLineEnd cuts text at its first CR or LF, so that it can never
// be sent as more than one protocol line.
func TruncateAtLineEnd(text string) string {
	if idx := strings.IndexAny(text, "\r\n"); idx != -1 {
		return text[:idx]
	}
	return text
}

// ScrubParam truncates at the first line ending and removes NUL bytes.
func ScrubParam(text string) string {
	return strings.ReplaceAll(TruncateAtLineEnd(text), "\x00", "")
}
