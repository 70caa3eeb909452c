// Copyright (c) 2016 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package utils

import "testing"

var (
	goodHostnames = []string{
		"services.",
		"irc.libera.chat",
		"irc.example.net",
		"localhost",
		"uno-test.example",
	}

	badHostnames = []string{
		"",
		"-lol-.net.",
		"lo_dot_com",
		"irc.example.net .",
		"a..b",
		"irc.example.net/path",
	}
)

func TestIsHostname(t *testing.T) {
	for _, name := range goodHostnames {
		if !IsHostname(name) {
			t.Error(
				"Expected to pass, but could not validate hostname",
				name,
			)
		}
	}

	for _, name := range badHostnames {
		if IsHostname(name) {
			t.Error(
				"Expected to fail, but successfully validated hostname",
				name,
			)
		}
	}
}

func TestIsDialableHost(t *testing.T) {
	for _, host := range []string{"127.0.0.1", "::1", "irc.example.net"} {
		if !IsDialableHost(host) {
			t.Errorf("expected %s to be dialable", host)
		}
	}
	if IsDialableHost("not a host") {
		t.Error("accepted a host with a space in it")
	}
}

func TestPorts(t *testing.T) {
	for port, valid := range map[int]bool{0: false, 1: true, 6667: true, 65535: true, 65536: false, -1: false} {
		if IsValidPort(port) != valid {
			t.Errorf("IsValidPort(%d) should be %v", port, valid)
		}
	}
	if addr := JoinHostPort("::1", 6697); addr != "[::1]:6697" {
		t.Errorf("unexpected address %s", addr)
	}
}
