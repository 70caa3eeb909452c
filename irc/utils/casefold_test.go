// Copyright (c) 2026 The Uno Authors
// released under the MIT license

package utils

import "testing"

func TestCasefold(t *testing.T) {
	testCases := map[string]string{
		"UnoBot":   "unobot",
		"#Chan":    "#chan",
		"ÅNGSTRÖM": "ångström",
	}
	for input, expected := range testCases {
		folded, err := Casefold(input)
		if err != nil {
			t.Errorf("unexpected error folding %q: %v", input, err)
		} else if folded != expected {
			t.Errorf("Casefold(%q) = %q, expected %q", input, folded, expected)
		}
	}

	if _, err := Casefold(""); err != ErrStringIsEmpty {
		t.Errorf("expected ErrStringIsEmpty, got %v", err)
	}
}

func TestNamesEqual(t *testing.T) {
	if !NamesEqual("UnoBot", "unobot") {
		t.Error("expected case-insensitive match")
	}
	if !NamesEqual("Bot With Space", "bot with space") {
		t.Error("expected the lowercase fallback to match")
	}
	if NamesEqual("alice", "alicia") {
		t.Error("distinct names compared equal")
	}
}
