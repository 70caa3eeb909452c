// Copyright (c) 2026 The Uno Authors
// released under the MIT license

package irc

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ergochat/irc-go/ircfmt"

	"github.com/unobot/uno/irc/codec"
	"github.com/unobot/uno/irc/connection"
	"github.com/unobot/uno/irc/handle"
	"github.com/unobot/uno/irc/logger"
	"github.com/unobot/uno/irc/utils"
)

const (
	// a partial line longer than this is discarded
	maxReadBufferBytes = 16 * 1024
	// how many times we append '_' to a rejected nick before giving up
	maxNickRetries = 5
)

// MessageLogger stores the audit lines of a session, one file per target.
type MessageLogger interface {
	LogMessage(target, text string)
	LogName(target string) string
}

// Receiver is called with every PRIVMSG and NOTICE a session receives.
type Receiver func(session *Session, msg codec.Message)

type desiredChannel struct {
	name string
	key  string
}

// Session is the client state for one configured network. Identity and
// membership are rebuilt from server replies on every connection.
type Session struct {
	config  NetworkConfig
	logger  *logger.Manager
	logs    MessageLogger
	conn    *connection.Connection
	handles []*handle.Handle

	stateMutex    sync.RWMutex // tier 1
	nick          string
	confirmedNick string
	registered    bool
	nickRetries   int
	channels      map[string]desiredChannel     // casefolded channel -> what to join
	channelNicks  map[string]map[string]string // casefolded channel -> casefolded nick -> nick
	listing       map[string]bool              // casefolded channel -> mid membership listing

	// tier 0; held while a callback from the connection is running
	callbackMutex sync.Mutex
	readBuffer    []byte

	receivers handle.Registry[Receiver]
	closeOnce utils.Once
}

// NewSession creates the session for one network. It does not connect.
func NewSession(config NetworkConfig, manager *connection.Manager, logger *logger.Manager, logs MessageLogger) *Session {
	s := &Session{
		config:       config,
		logger:       logger,
		logs:         logs,
		nick:         config.Nick,
		channels:     make(map[string]desiredChannel),
		channelNicks: make(map[string]map[string]string),
		listing:      make(map[string]bool),
	}
	for _, channel := range config.Channels {
		s.channels[utils.CasefoldOrLower(channel.Name)] = desiredChannel{name: channel.Name, key: channel.Key}
	}

	s.conn = manager.NewConnection(config.Host, config.Port)
	s.handles = []*handle.Handle{
		s.conn.RegisterOnConnectCallback(s.onConnect),
		s.conn.RegisterReceiver(s.receive),
	}
	return s
}

// ID returns the configured network identifier.
func (s *Session) ID() string {
	return s.config.ID
}

// Host returns the network's host.
func (s *Session) Host() string {
	return s.config.Host
}

// Port returns the network's port.
func (s *Session) Port() int {
	return s.config.Port
}

// Nick returns the nick we are currently using, or trying to use.
func (s *Session) Nick() string {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.nick
}

// IsConnected returns true if the transport to the network is up.
func (s *Session) IsConnected() bool {
	return s.conn.IsConnected()
}

// Channels returns the names of the channels we want to be in, sorted.
func (s *Session) Channels() (result []string) {
	for _, channel := range s.desiredChannels() {
		result = append(result, channel.name)
	}
	return
}

// Connect starts connecting to the network; reconnection after that is the
// connection manager's job.
func (s *Session) Connect() {
	if s.closeOnce.Done() {
		return
	}
	s.logger.Info("session", s.config.ID, "connecting to", utils.JoinHostPort(s.config.Host, s.config.Port))
	s.conn.Connect(s.config.Host, s.config.Port)
}

// Close disconnects and stops all callbacks. It waits for a callback in
// progress, so it must not be called from a Receiver.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.conn.IsConnected() {
			s.send(codec.QUIT, Ver)
		}
		for _, h := range s.handles {
			h.Close()
		}
		s.conn.Close()

		s.callbackMutex.Lock()
		s.readBuffer = nil
		s.callbackMutex.Unlock()

		s.logger.Info("session", s.config.ID, "closed")
	})
}

// RegisterReceiver subscribes to incoming messages until the handle is dropped.
func (s *Session) RegisterReceiver(receiver Receiver) *handle.Handle {
	return s.receivers.Register(receiver)
}

// JoinChannel remembers the channel (and key) as one we want to be in, and
// joins it now if we're connected.
func (s *Session) JoinChannel(channel, key string) error {
	if !codec.IsChannelName(channel) {
		return ErrInvalidChannelName
	}

	s.stateMutex.Lock()
	s.channels[utils.CasefoldOrLower(channel)] = desiredChannel{name: channel, key: key}
	s.stateMutex.Unlock()

	if s.conn.IsConnected() {
		return s.sendJoin(channel, key)
	}
	return nil
}

// PartChannel forgets the channel and leaves it if we're connected.
func (s *Session) PartChannel(channel, reason string) error {
	if !codec.IsChannelName(channel) {
		return ErrInvalidChannelName
	}

	folded := utils.CasefoldOrLower(channel)
	s.stateMutex.Lock()
	delete(s.channels, folded)
	s.stateMutex.Unlock()

	if !s.conn.IsConnected() {
		return nil
	}
	if reason = utils.ScrubParam(reason); reason != "" {
		return s.send(codec.PART, channel, reason)
	}
	return s.send(codec.PART, channel)
}

// ChangeNick asks the server for a new nick. The new nick is used right
// away; if the server rejects it, we fall back to the last nick the server
// confirmed.
func (s *Session) ChangeNick(nick string) error {
	if nick == "" || strings.ContainsAny(nick, " \r\n\x00") || nick[0] == ':' {
		return ErrInvalidNickname
	}

	s.stateMutex.Lock()
	s.nick = nick
	s.stateMutex.Unlock()

	return s.send(codec.NICK, nick)
}

// SendMessage sends text to a channel or nick, cut at the first line ending,
// and records it in the target's audit log. Text that is empty after
// cutting is not sent.
func (s *Session) SendMessage(target, text string) error {
	text = utils.TruncateAtLineEnd(text)
	if text == "" {
		return nil
	}
	if err := s.send(codec.PRIVMSG, target, text); err != nil {
		return err
	}

	ctcp := false
	if 0 < len(text) && text[0] == codec.CTCPDelimiter {
		text = strings.TrimSuffix(text[1:], string(codec.CTCPDelimiter))
		ctcp = true
	}
	s.audit(target, s.Nick(), text, ctcp)
	return nil
}

// Kick removes user from channel.
func (s *Session) Kick(channel, user, reason string) error {
	return s.send(codec.KICK, channel, user, utils.ScrubParam(reason))
}

// GetChannelNicks returns the sorted nicks the server has listed for channel.
// It fails with a *ProtocolStateError if we have no listing for the channel.
func (s *Session) GetChannelNicks(channel string) ([]string, error) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	nicks, ok := s.channelNicks[utils.CasefoldOrLower(channel)]
	if !ok {
		return nil, &ProtocolStateError{Network: s.config.ID, Channel: channel, Err: ErrNoSuchChannel}
	}
	result := make([]string, 0, len(nicks))
	for _, nick := range nicks {
		result = append(result, nick)
	}
	sort.Strings(result)
	return result, nil
}

// GetLogName returns the audit log file for target.
func (s *Session) GetLogName(target string) string {
	if s.logs == nil {
		return ""
	}
	return s.logs.LogName(target)
}

func (s *Session) desiredChannels() (result []desiredChannel) {
	s.stateMutex.RLock()
	folded := make([]string, 0, len(s.channels))
	for name := range s.channels {
		folded = append(folded, name)
	}
	sort.Strings(folded)
	for _, name := range folded {
		result = append(result, s.channels[name])
	}
	s.stateMutex.RUnlock()
	return
}

func (s *Session) send(command codec.Command, params ...string) error {
	if s.closeOnce.Done() {
		return ErrSessionClosed
	}
	line, err := codec.Serialize(command, params...)
	if err != nil {
		s.logger.Warning("session", s.config.ID, "could not serialize outgoing line", err.Error())
		return err
	}
	if err = s.conn.Send(line); err != nil {
		s.logger.Error("session", s.config.ID, err.Error())
	}
	return err
}

func (s *Session) sendJoin(channel, key string) error {
	if key != "" {
		return s.send(codec.JOIN, channel, key)
	}
	return s.send(codec.JOIN, channel)
}

func (s *Session) joinAll() {
	for _, channel := range s.desiredChannels() {
		s.sendJoin(channel.name, channel.key)
	}
}

// onConnect registers with the network. It runs on the manager loop.
func (s *Session) onConnect(conn *connection.Connection) {
	s.callbackMutex.Lock()
	defer s.callbackMutex.Unlock()

	s.readBuffer = s.readBuffer[:0]

	s.stateMutex.Lock()
	s.channelNicks = make(map[string]map[string]string)
	s.listing = make(map[string]bool)
	s.registered = false
	s.confirmedNick = ""
	s.nickRetries = 0
	nick := s.nick
	s.stateMutex.Unlock()

	s.logger.Info("session", s.config.ID, "connected, registering as", nick)

	if s.config.Password != "" {
		s.send(codec.PASS, s.config.Password)
	}
	s.send(codec.NICK, nick)
	s.send(codec.USER, nick, "localhost", s.config.Host, nick)
	s.joinAll()
}

// receive splits incoming bytes into lines. It runs on the manager loop.
func (s *Session) receive(conn *connection.Connection, data []byte) {
	s.callbackMutex.Lock()
	defer s.callbackMutex.Unlock()

	s.readBuffer = append(s.readBuffer, data...)
	consumed := 0
	for {
		idx := bytes.IndexByte(s.readBuffer[consumed:], '\n')
		if idx == -1 {
			break
		}
		line := s.readBuffer[consumed : consumed+idx]
		consumed += idx + 1
		// some servers send bare \n, others stray \r
		s.onText(string(bytes.ReplaceAll(line, []byte{'\r'}, nil)))
	}
	s.readBuffer = s.readBuffer[:copy(s.readBuffer, s.readBuffer[consumed:])]

	if maxReadBufferBytes < len(s.readBuffer) {
		s.logger.Warning("session", s.config.ID, "discarding oversized partial line", fmt.Sprintf("%d bytes", len(s.readBuffer)))
		s.readBuffer = nil
	}
}

// onText handles one complete line.
func (s *Session) onText(line string) {
	if line == "" {
		return
	}
	msg, err := codec.Parse(line)
	if err != nil {
		s.logger.Warning("session", s.config.ID, "dropping unparseable line", err.Error())
		return
	}

	switch msg.Command {
	case codec.PING:
		s.send(codec.PONG, msg.Params...)
	case codec.RPL_WELCOME:
		s.onWelcome(msg)
	case codec.ERR_ERRONEUSNICKNAME, codec.ERR_NICKNAMEINUSE:
		s.onNickRejected(msg)
	case codec.PRIVMSG, codec.NOTICE:
		s.onMessage(msg)
	case codec.RPL_NAMREPLY:
		s.onNames(msg)
	case codec.RPL_ENDOFNAMES:
		s.stateMutex.Lock()
		delete(s.listing, utils.CasefoldOrLower(msg.Param(1)))
		s.stateMutex.Unlock()
	case codec.JOIN:
		s.onJoin(msg)
	case codec.PART:
		s.onPart(msg)
	case codec.QUIT:
		s.onQuit(msg)
	case codec.NICK:
		s.onNick(msg)
	case codec.KICK:
		s.onKick(msg)
	}
}

func (s *Session) onWelcome(msg codec.Message) {
	s.stateMutex.Lock()
	if nick := msg.Param(0); nick != "" {
		s.nick = nick
		s.confirmedNick = nick
	}
	s.registered = true
	nick := s.nick
	s.stateMutex.Unlock()

	s.logger.Info("session", s.config.ID, "registered as", nick)
	// some networks ignore JOIN before registration completes
	s.joinAll()
}

func (s *Session) onNickRejected(msg codec.Message) {
	rejected := msg.Param(1)

	s.stateMutex.Lock()
	if s.registered {
		s.nick = s.confirmedNick
		nick := s.nick
		s.stateMutex.Unlock()
		s.logger.Warning("session", s.config.ID, "nick change rejected, keeping", nick, msg.Trailing())
		return
	}
	if rejected == "" {
		rejected = s.nick
	}
	if maxNickRetries <= s.nickRetries {
		s.stateMutex.Unlock()
		s.logger.Error("session", s.config.ID, "giving up on nick registration", rejected, msg.Trailing())
		return
	}
	s.nickRetries++
	s.nick = rejected + "_"
	nick := s.nick
	s.stateMutex.Unlock()

	s.logger.Warning("session", s.config.ID, "nick rejected, trying", nick, msg.Trailing())
	s.send(codec.NICK, nick)
}

func (s *Session) onMessage(msg codec.Message) {
	if len(msg.Params) < 2 {
		return
	}

	if msg.CTCP && msg.Command == codec.PRIVMSG {
		if verb, _ := msg.CTCPCommand(); verb == "VERSION" {
			if msg.Prefix.Nick != "" {
				s.send(codec.NOTICE, msg.Prefix.Nick, codec.WrapCTCP(versionReply()))
			}
			return
		}
	}

	if from := msg.Prefix.Nick; from != "" && !msg.Prefix.IsServer() {
		s.audit(msg.ReplyTo(), from, msg.Text(), msg.CTCP)
	}

	s.receivers.Each(func(receiver Receiver) {
		receiver(s, msg)
	})
}

// audit writes one line to the target's log: "<unix time> <target>: <nick> text".
func (s *Session) audit(target, from, text string, ctcp bool) {
	if s.logs == nil {
		return
	}
	if ctcp {
		verb, args, _ := strings.Cut(text, " ")
		if strings.EqualFold(verb, "ACTION") {
			text = "* " + from
			if args != "" {
				text += " " + args
			}
		}
	}
	s.logs.LogMessage(target, fmt.Sprintf("%d %s: <%s> %s", time.Now().Unix(), target, from, ircfmt.Strip(text)))
}

func (s *Session) onNames(msg codec.Message) {
	if len(msg.Params) < 3 {
		return
	}
	// "353 me = #chan :names", or without the channel type on older servers
	channel := msg.Params[len(msg.Params)-2]
	if !codec.IsChannelName(channel) {
		return
	}
	folded := utils.CasefoldOrLower(channel)

	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()

	if !s.listing[folded] {
		s.channelNicks[folded] = make(map[string]string)
		s.listing[folded] = true
	}
	nicks := s.channelNicks[folded]
	for _, nick := range strings.Fields(msg.Trailing()) {
		if nick[0] == '@' || nick[0] == '+' {
			nick = nick[1:]
		}
		if nick != "" {
			nicks[utils.CasefoldOrLower(nick)] = nick
		}
	}
}

func (s *Session) onJoin(msg codec.Message) {
	channel, nick := msg.Param(0), msg.Prefix.Nick
	if channel == "" || nick == "" {
		return
	}

	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()
	// our own join is followed by a listing, which creates the set
	if nicks, ok := s.channelNicks[utils.CasefoldOrLower(channel)]; ok {
		nicks[utils.CasefoldOrLower(nick)] = nick
	}
}

func (s *Session) onPart(msg codec.Message) {
	channel, nick := msg.Param(0), msg.Prefix.Nick
	if channel == "" || nick == "" {
		return
	}
	folded := utils.CasefoldOrLower(channel)

	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()
	if s.isSelfLocked(nick) {
		delete(s.channelNicks, folded)
		delete(s.listing, folded)
	} else if nicks, ok := s.channelNicks[folded]; ok {
		delete(nicks, utils.CasefoldOrLower(nick))
	}
}

// isSelfLocked reports whether nick is us as far as the server knows. Before
// registration nothing is confirmed yet, so the nick we asked for counts.
func (s *Session) isSelfLocked(nick string) bool {
	if s.confirmedNick == "" {
		return utils.NamesEqual(nick, s.nick)
	}
	return utils.NamesEqual(nick, s.confirmedNick)
}

func (s *Session) onQuit(msg codec.Message) {
	nick := msg.Prefix.Nick
	if nick == "" {
		return
	}
	folded := utils.CasefoldOrLower(nick)

	s.stateMutex.Lock()
	defer s.stateMutex.Unlock()
	for _, nicks := range s.channelNicks {
		delete(nicks, folded)
	}
}

func (s *Session) onNick(msg codec.Message) {
	oldNick, newNick := msg.Prefix.Nick, msg.Param(0)
	if oldNick == "" || newNick == "" {
		return
	}
	oldFolded, newFolded := utils.CasefoldOrLower(oldNick), utils.CasefoldOrLower(newNick)

	s.stateMutex.Lock()
	for _, nicks := range s.channelNicks {
		if _, present := nicks[oldFolded]; present {
			delete(nicks, oldFolded)
			nicks[newFolded] = newNick
		}
	}
	// the server echoes our nick changes from the nick it knows us by, which
	// is not s.nick while a change is pending
	self := s.isSelfLocked(oldNick)
	if self {
		s.nick = newNick
		s.confirmedNick = newNick
	}
	s.stateMutex.Unlock()

	if self {
		s.logger.Info("session", s.config.ID, "nick changed to", newNick)
	}
}

func (s *Session) onKick(msg codec.Message) {
	channel, victim := msg.Param(0), msg.Param(1)
	if channel == "" || victim == "" {
		return
	}
	folded := utils.CasefoldOrLower(channel)

	s.stateMutex.Lock()
	if nicks, ok := s.channelNicks[folded]; ok {
		delete(nicks, utils.CasefoldOrLower(victim))
	}
	self := s.isSelfLocked(victim)
	var key string
	if self {
		// the listing we get after rejoining rebuilds the set
		delete(s.channelNicks, folded)
		delete(s.listing, folded)
		key = s.channels[folded].key
	}
	s.stateMutex.Unlock()

	if self {
		s.logger.Warning("session", s.config.ID, "kicked from", channel, msg.Param(2))
		s.JoinChannel(channel, key)
	}
}
