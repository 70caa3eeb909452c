// Copyright (c) 2026 The Uno Authors
// released under the MIT license

package codec

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-test/deep"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		line     string
		expected Message
	}{
		{
			line: "PING :irc.example.net",
			expected: Message{
				Command: PING,
				Verb:    "PING",
				Params:  []string{"irc.example.net"},
			},
		},
		{
			line: ":alice!al@host.example PRIVMSG #uno :hello there world\r\n",
			expected: Message{
				Prefix:  Prefix{Raw: "alice!al@host.example", Nick: "alice", User: "al", Host: "host.example"},
				Command: PRIVMSG,
				Verb:    "PRIVMSG",
				Params:  []string{"#uno", "hello there world"},
			},
		},
		{
			line: ":irc.example.net 353 unobot = #x :@alice +bob carol",
			expected: Message{
				Prefix:  Prefix{Raw: "irc.example.net", Nick: "irc.example.net"},
				Command: RPL_NAMREPLY,
				Verb:    "353",
				Params:  []string{"unobot", "=", "#x", "@alice +bob carol"},
			},
		},
		{
			line: ":op KICK #x victim",
			expected: Message{
				Prefix:  Prefix{Raw: "op", Nick: "op"},
				Command: KICK,
				Verb:    "KICK",
				Params:  []string{"#x", "victim"},
			},
		},
		{
			line: ":bob@host QUIT",
			expected: Message{
				Prefix:  Prefix{Raw: "bob@host", Nick: "bob", Host: "host"},
				Command: QUIT,
				Verb:    "QUIT",
			},
		},
		{
			line: ":server.example FROBNICATE a b :c d",
			expected: Message{
				Prefix:  Prefix{Raw: "server.example", Nick: "server.example"},
				Command: Unknown,
				Verb:    "FROBNICATE",
				Params:  []string{"a", "b", "c d"},
			},
		},
		{
			line: "privmsg bob :lowercase verbs are normalized",
			expected: Message{
				Command: PRIVMSG,
				Verb:    "PRIVMSG",
				Params:  []string{"bob", "lowercase verbs are normalized"},
			},
		},
	}

	for i, tt := range testCases {
		t.Run(fmt.Sprintf("case %d", i), func(t *testing.T) {
			msg, err := Parse(tt.line)
			if err != nil {
				t.Fatalf("unexpected error parsing %q: %v", tt.line, err)
			}
			if diff := deep.Equal(msg, tt.expected); diff != nil {
				t.Errorf("parsing %q: %v", tt.line, diff)
			}
		})
	}
}

func TestPrefixIsServer(t *testing.T) {
	testCases := map[string]bool{
		"irc.example.net":       true,
		"alice!al@host.example": false,
		"bob@host.example":      false,
		"op":                    false,
		"":                      false,
	}
	for raw, expected := range testCases {
		if result := ParsePrefix(raw).IsServer(); result != expected {
			t.Errorf("%q: expected IsServer()=%v, got %v", raw, expected, result)
		}
	}
}

func TestParseCTCP(t *testing.T) {
	testCases := []struct {
		line    string
		ctcp    bool
		payload string
	}{
		{":alice!a@h PRIVMSG unobot :\x01VERSION\x01", true, "VERSION"},
		{":alice!a@h PRIVMSG #uno :\x01ACTION waves\x01", true, "ACTION waves"},
		// trailing delimiter is optional
		{":alice!a@h PRIVMSG #uno :\x01ACTION waves", true, "ACTION waves"},
		// only a final delimiter is stripped
		{":alice!a@h PRIVMSG #uno :\x01PING 1\x01 ", true, "PING 1\x01 "},
		{":alice!a@h NOTICE unobot :\x01VERSION other 1.0\x01", true, "VERSION other 1.0"},
		{":alice!a@h PRIVMSG #uno :not \x01ctcp\x01", false, "not \x01ctcp\x01"},
		// only message-delivery commands carry CTCP
		{":alice!a@h TOPIC #uno :\x01weird\x01", false, "\x01weird\x01"},
	}

	for _, tt := range testCases {
		msg, err := Parse(tt.line)
		if err != nil {
			t.Fatalf("unexpected error parsing %q: %v", tt.line, err)
		}
		if msg.CTCP != tt.ctcp {
			t.Errorf("%q: expected ctcp=%v, got %v", tt.line, tt.ctcp, msg.CTCP)
		}
		if msg.Trailing() != tt.payload {
			t.Errorf("%q: expected payload %q, got %q", tt.line, tt.payload, msg.Trailing())
		}
	}

	msg, _ := Parse(":alice!a@h PRIVMSG unobot :\x01version\x01")
	if verb, args := msg.CTCPCommand(); verb != "VERSION" || args != "" {
		t.Errorf("unexpected CTCP command %q %q", verb, args)
	}
}

func TestParseErrors(t *testing.T) {
	for _, line := range []string{"", "\r\n", "   ", ":prefixonly", "PRIVMSG #a :nul\x00byte", "PRIVMSG #a :cr\rinside"} {
		_, err := Parse(line)
		if err == nil {
			t.Errorf("expected an error parsing %q", line)
			continue
		}
		var codecErr *CodecError
		if !errors.As(err, &codecErr) {
			t.Errorf("expected a CodecError for %q, got %T", line, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	lines := []string{
		"PING :irc.example.net",
		"PING token",
		":alice!al@host PRIVMSG #uno :hello there",
		":alice!al@host PRIVMSG #uno :\x01ACTION waves\x01",
		":alice!al@host PRIVMSG #uno :\x01ACTION waves",
		":alice!al@host PRIVMSG #uno ::starts with a colon",
		":alice!al@host PRIVMSG #uno :",
		":irc.example.net 001 unobot :Welcome to the network",
		":irc.example.net 353 unobot = #x :@alice +bob carol",
		":irc.example.net 366 unobot #x :End of /NAMES list.",
		":op!o@h KICK #x victim :go away",
		":bob!b@h NICK :robert",
		":server.example FROBNICATE a b :c d",
		"JOIN #x,#y key1,key2",
		"QUIT",
	}

	for _, line := range lines {
		first, err := Parse(line)
		if err != nil {
			t.Fatalf("unexpected error parsing %q: %v", line, err)
		}
		serialized, err := first.Line()
		if err != nil {
			t.Fatalf("unexpected error serializing %q: %v", line, err)
		}
		second, err := Parse(string(serialized))
		if err != nil {
			t.Fatalf("unexpected error reparsing %q: %v", serialized, err)
		}
		if diff := deep.Equal(first, second); diff != nil {
			t.Errorf("round trip of %q changed the message: %v", line, diff)
		}
	}
}

func TestSerialize(t *testing.T) {
	testCases := []struct {
		command  Command
		params   []string
		expected string
	}{
		{NICK, []string{"unobot"}, "NICK unobot\r\n"},
		{JOIN, []string{"#x", "secret"}, "JOIN #x secret\r\n"},
		{PRIVMSG, []string{"#x", "hello world"}, "PRIVMSG #x :hello world\r\n"},
		{PRIVMSG, []string{"#x", ":)"}, "PRIVMSG #x ::)\r\n"},
		{PASS, []string{"with space"}, "PASS :with space\r\n"},
		{KICK, []string{"#x", "bob", ""}, "KICK #x bob :\r\n"},
		{USER, []string{"unobot", "localhost", "irc.example.net", "unobot"}, "USER unobot localhost irc.example.net unobot\r\n"},
		{QUIT, nil, "QUIT\r\n"},
	}

	for _, tt := range testCases {
		line, err := Serialize(tt.command, tt.params...)
		if err != nil {
			t.Errorf("unexpected error serializing %v %v: %v", tt.command, tt.params, err)
			continue
		}
		if string(line) != tt.expected {
			t.Errorf("expected %q, got %q", tt.expected, line)
		}
	}
}

func TestSerializeRejectsBadInput(t *testing.T) {
	testCases := []struct {
		command Command
		params  []string
	}{
		{PRIVMSG, []string{"#x", "two\r\nlines"}},
		{PRIVMSG, []string{"bad target", "text"}},
		{Unknown, []string{"x"}},
	}
	for _, tt := range testCases {
		_, err := Serialize(tt.command, tt.params...)
		var codecErr *CodecError
		if !errors.As(err, &codecErr) {
			t.Errorf("expected a CodecError serializing %v %q, got %v", tt.command, tt.params, err)
		}
	}
}

func TestReplyTo(t *testing.T) {
	channelMsg, _ := Parse(":alice!a@h PRIVMSG #uno :hi")
	if channelMsg.ReplyTo() != "#uno" {
		t.Errorf("expected channel reply target, got %q", channelMsg.ReplyTo())
	}
	privateMsg, _ := Parse(":alice!a@h PRIVMSG unobot :hi")
	if privateMsg.ReplyTo() != "alice" {
		t.Errorf("expected sender reply target, got %q", privateMsg.ReplyTo())
	}
}
