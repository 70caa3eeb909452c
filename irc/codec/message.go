// Copyright (c) 2026 The Uno Authors
// released under the MIT license

// Package codec turns protocol lines into structured messages and back.
package codec

import (
	"fmt"
	"strings"

	"github.com/ergochat/irc-go/ircmsg"
)

const (
	// CTCPDelimiter frames CTCP payloads inside PRIVMSG and NOTICE text.
	CTCPDelimiter = '\x01'
	// LineEnding terminates every line on the wire.
	LineEnding = "\r\n"
)

// CodecError reports a line that the parser could not make sense of, or a
// message that cannot be written to the wire. It is fatal only to that line.
type CodecError struct {
	Line string
	Err  error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("malformed line %q: %v", e.Line, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// Prefix identifies the originator of a line. All fields are empty when the
// line carried no prefix.
type Prefix struct {
	Raw  string
	Nick string
	User string
	Host string
}

// IsServer reports whether the prefix names a server rather than a user.
// Servers send a bare name with a dot in it and no user or host part.
func (p Prefix) IsServer() bool {
	return strings.IndexByte(p.Raw, '.') != -1 && !strings.ContainsAny(p.Raw, "!@")
}

// ParsePrefix decomposes "nick!user@host" or any partial form of it.
func ParsePrefix(raw string) (prefix Prefix) {
	nuh, err := ircmsg.ParseNUH(raw)
	if err != nil {
		return
	}
	return Prefix{Raw: raw, Nick: nuh.Name, User: nuh.User, Host: nuh.Host}
}

// Message is the immutable parse result of one protocol line.
type Message struct {
	Prefix  Prefix
	Command Command
	// Verb is the command as it appeared on the wire (uppercased), kept so
	// that Unknown commands can still be inspected and re-serialized.
	Verb   string
	Params []string
	// CTCP is set when the text of a PRIVMSG or NOTICE was framed with the
	// CTCP delimiter; the delimiters have been removed from the last param.
	CTCP bool
}

// Parse parses one line, with or without its line ending. Unrecognized
// commands produce Command == Unknown rather than an error.
func Parse(line string) (msg Message, err error) {
	raw, err := ircmsg.ParseLine(line)
	if err != nil {
		return msg, &CodecError{Line: line, Err: err}
	}

	msg.Prefix = ParsePrefix(raw.Source)
	msg.Verb = raw.Command
	msg.Command = LookupCommand(raw.Command)
	if len(raw.Params) != 0 {
		msg.Params = raw.Params
	}

	if msg.Command.IsMessageDelivery() && len(msg.Params) != 0 {
		last := len(msg.Params) - 1
		text := msg.Params[last]
		if len(text) != 0 && text[0] == CTCPDelimiter {
			text = text[1:]
			if len(text) != 0 && text[len(text)-1] == CTCPDelimiter {
				text = text[:len(text)-1]
			}
			msg.Params[last] = text
			msg.CTCP = true
		}
	}
	return msg, nil
}

// Param returns the i'th parameter, or "" if there are fewer parameters.
func (msg *Message) Param(i int) string {
	if i < len(msg.Params) {
		return msg.Params[i]
	}
	return ""
}

// Trailing returns the final parameter, or "".
func (msg *Message) Trailing() string {
	if len(msg.Params) == 0 {
		return ""
	}
	return msg.Params[len(msg.Params)-1]
}

// Target returns the recipient of a PRIVMSG or NOTICE.
func (msg *Message) Target() string {
	return msg.Param(0)
}

// Text returns the user text of a PRIVMSG or NOTICE, CTCP framing removed.
func (msg *Message) Text() string {
	if len(msg.Params) < 2 {
		return ""
	}
	return msg.Trailing()
}

// ReplyTo returns where a response to this message should go: the channel if
// it was sent to one, otherwise the sender.
func (msg *Message) ReplyTo() string {
	if IsChannelName(msg.Target()) {
		return msg.Target()
	}
	return msg.Prefix.Nick
}

// CTCPCommand splits a CTCP payload into its verb and arguments.
func (msg *Message) CTCPCommand() (verb, args string) {
	if !msg.CTCP {
		return
	}
	verb, args, _ = strings.Cut(msg.Trailing(), " ")
	return strings.ToUpper(verb), args
}

// Line serializes the message, prefix included, terminated with LineEnding.
// CTCP payloads are framed again.
func (msg *Message) Line() ([]byte, error) {
	verb := msg.Verb
	if verb == "" && msg.Command != Unknown {
		verb = msg.Command.String()
	}
	if verb == "" {
		return nil, &CodecError{Line: strings.Join(msg.Params, " "), Err: ircmsg.ErrorCommandMissing}
	}
	params := msg.Params
	if msg.CTCP && len(params) != 0 {
		params = append([]string(nil), params...)
		params[len(params)-1] = WrapCTCP(params[len(params)-1])
	}
	return serialize(msg.Prefix.Raw, verb, params)
}

// Serialize builds an outgoing line from a command and its parameters. The
// last parameter is written as a trailing parameter when it is empty,
// contains a space or starts with a colon. Callers must remove CR and LF from
// user text first; lines containing them are rejected.
func Serialize(command Command, params ...string) ([]byte, error) {
	if command == Unknown {
		return nil, &CodecError{Line: strings.Join(params, " "), Err: ircmsg.ErrorCommandMissing}
	}
	return serialize("", command.String(), params)
}

func serialize(source, verb string, params []string) ([]byte, error) {
	raw := ircmsg.MakeMessage(nil, source, verb, params...)
	line, err := raw.LineBytes()
	if err != nil {
		return nil, &CodecError{Line: verb + " " + strings.Join(params, " "), Err: err}
	}
	return line, nil
}

// WrapCTCP frames a CTCP payload with the delimiter.
func WrapCTCP(payload string) string {
	return string(CTCPDelimiter) + payload + string(CTCPDelimiter)
}

// IsChannelName reports whether name looks like a channel rather than a nick.
func IsChannelName(name string) bool {
	return len(name) != 0 && (name[0] == '#' || name[0] == '&')
}
