// Copyright (c) 2012-2014 Jeremy Latt
// Copyright (c) 2014-2015 Edmund Huber
// Copyright (c) 2016-2017 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package utils

import (
	"errors"
	"strings"

	"golang.org/x/text/secure/precis"
)

var (
	ErrCouldNotStabilize = errors.New("Could not stabilize string while casefolding")
	ErrStringIsEmpty     = errors.New("String is empty")
)

// Each pass of PRECIS casefolding is a composition of idempotent operations,
// but not idempotent itself, so we repeat until the result converges.
func iterateFolding(profile *precis.Profile, oldStr string) (str string, err error) {
	str = oldStr
	for i := 0; i < 4; i++ {
		str, err = profile.CompareKey(str)
		if err != nil {
			return "", err
		}
		if oldStr == str {
			break
		}
		oldStr = str
	}
	if oldStr != str {
		return "", ErrCouldNotStabilize
	}
	return str, nil
}

// Casefold returns a casefolded string, without doing any name or channel character checks.
func Casefold(str string) (string, error) {
	if str == "" {
		return "", ErrStringIsEmpty
	}
	return iterateFolding(precis.UsernameCaseMapped, str)
}

// CasefoldOrLower casefolds `str`, falling back to ASCII lowercasing for
// names PRECIS rejects (which IRC servers happily accept, e.g. `[bot]`).
func CasefoldOrLower(str string) string {
	if folded, err := Casefold(str); err == nil {
		return folded
	}
	return strings.ToLower(str)
}

// NamesEqual compares two nicknames or channel names case-insensitively.
func NamesEqual(a, b string) bool {
	return a == b || CasefoldOrLower(a) == CasefoldOrLower(b)
}
