// Copyright (c) 2012-2014 Jeremy Latt
// Copyright (c) 2014-2015 Edmund Huber
// Copyright (c) 2016-2017 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package irc

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"gopkg.in/yaml.v2"

	"github.com/unobot/uno/irc/codec"
	"github.com/unobot/uno/irc/connection"
	"github.com/unobot/uno/irc/logger"
	"github.com/unobot/uno/irc/utils"
)

const (
	// environment variables of the form UNO__SECTION__KEY=value override
	// the corresponding config key after the file is read
	configEnvironmentPrefix = "UNO__"

	defaultChatlogIdleTimeout = 30 * time.Minute
)

// ChannelConfig is a channel to join automatically, with an optional key.
type ChannelConfig struct {
	Name string
	Key  string
}

// UnmarshalYAML accepts either a bare channel name or a {name, key} mapping.
func (cc *ChannelConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err == nil {
		cc.Name, cc.Key = name, ""
		return nil
	}

	var full struct {
		Name string
		Key  string
	}
	if err := unmarshal(&full); err != nil {
		return err
	}
	cc.Name, cc.Key = full.Name, full.Key
	return nil
}

// NetworkConfig defines one network to stay connected to.
type NetworkConfig struct {
	ID       string
	Host     string
	Port     int
	Nick     string
	Password string
	Channels []ChannelConfig
}

func (nc *NetworkConfig) validate() error {
	if nc.ID == "" {
		return ErrNetworkIDMissing
	}
	if !utils.IsDialableHost(nc.Host) {
		return ErrNetworkHostInvalid
	}
	if !utils.IsValidPort(nc.Port) {
		return ErrNetworkPortInvalid
	}
	if nc.Nick == "" {
		return ErrNetworkNickMissing
	}
	if strings.IndexByte(nc.Nick, ' ') != -1 || strings.HasPrefix(nc.Nick, ":") {
		return ErrNetworkNickInvalid
	}
	for _, channel := range nc.Channels {
		if !codec.IsChannelName(channel.Name) || strings.ContainsAny(channel.Name, " ,") {
			return fmt.Errorf("%w: %s", ErrInvalidChannelName, channel.Name)
		}
	}
	return nil
}

// ConnectionConfig holds the transport and health check settings shared by
// every network.
type ConnectionConfig struct {
	Timeout             time.Duration
	CheckInterval       time.Duration `yaml:"check-interval"`
	DialTimeout         time.Duration `yaml:"dial-timeout"`
	WriteTimeout        time.Duration `yaml:"write-timeout"`
	ReceiveBufferString string        `yaml:"receive-buffer"`
	ReceiveBufferSize   int           `yaml:"-"`
}

// ChatlogConfig controls where the per-target message logs are written.
type ChatlogConfig struct {
	Directory   string
	IdleTimeout time.Duration `yaml:"idle-timeout"`
}

// Config defines the overall configuration.
type Config struct {
	Logging []logger.LoggingConfig

	Chatlog ChatlogConfig

	Connection ConnectionConfig

	// networks as written; each entry is decoded on its own, so a type
	// error in one network doesn't stop the others from loading
	RawNetworks []interface{} `yaml:"networks"`

	Networks []NetworkConfig `yaml:"-"`

	// networks that failed to decode or validate; they are not in Networks
	NetworkErrors []error `yaml:"-"`

	Filename string `yaml:"-"`
}

// Manager returns the settings for the connection manager.
func (conf *Config) Manager() connection.Config {
	return connection.Config{
		Timeout:           conf.Connection.Timeout,
		CheckInterval:     conf.Connection.CheckInterval,
		DialTimeout:       conf.Connection.DialTimeout,
		WriteTimeout:      conf.Connection.WriteTimeout,
		ReceiveBufferSize: conf.Connection.ReceiveBufferSize,
	}
}

// LoadRawConfig reads and parses the config file, and applies environment
// overrides, without validating anything.
func LoadRawConfig(filename string) (config *Config, err error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config = new(Config)
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, err
	}

	for _, envPair := range os.Environ() {
		applied, name, err := mungeFromEnvironment(config, envPair)
		if err != nil {
			return nil, fmt.Errorf("Could not apply environment override %s: %s", name, err.Error())
		} else if applied {
			fmt.Fprintf(os.Stderr, "applied environment override: %s\n", name)
		}
	}

	return config, nil
}

// LoadConfig loads the given YAML configuration file and prepares it for use.
// Errors in an individual network definition do not fail the load; they are
// collected in NetworkErrors.
func LoadConfig(filename string) (config *Config, err error) {
	config, err = LoadRawConfig(filename)
	if err != nil {
		return nil, err
	}
	config.Filename = filename

	if err = config.prepare(); err != nil {
		return nil, err
	}
	return config, nil
}

func (config *Config) prepare() (err error) {
	for i := range config.Logging {
		if err = config.Logging[i].ParseMethods(); err != nil {
			return err
		}
	}

	if config.Chatlog.Directory == "" {
		return ErrChatlogDirectoryMissing
	}
	if config.Chatlog.IdleTimeout <= 0 {
		config.Chatlog.IdleTimeout = defaultChatlogIdleTimeout
	}

	if config.Connection.ReceiveBufferString != "" {
		receiveBufferBytes, err := bytefmt.ToBytes(config.Connection.ReceiveBufferString)
		if err != nil {
			return fmt.Errorf("Could not parse receive buffer size (make sure it only contains whole numbers): %s", err.Error())
		}
		config.Connection.ReceiveBufferSize = int(receiveBufferBytes)
	}

	if len(config.RawNetworks) == 0 {
		return ErrNoNetworksDefined
	}

	seen := make(map[string]bool)
	var validNetworks []NetworkConfig
	config.NetworkErrors = nil
	for i, raw := range config.RawNetworks {
		name := rawNetworkID(raw)
		if name == "" {
			name = "#" + strconv.Itoa(i+1)
		}
		var network NetworkConfig
		err := decodeNetwork(raw, &network)
		if err == nil {
			err = network.validate()
		}
		if err == nil && seen[network.ID] {
			err = ErrNetworkIDDuplicate
		}
		if err != nil {
			config.NetworkErrors = append(config.NetworkErrors, &ConfigError{Network: name, Err: err})
			continue
		}
		seen[network.ID] = true
		validNetworks = append(validNetworks, network)
	}
	config.Networks = validNetworks

	return nil
}

// decodeNetwork turns one entry of the networks list into a NetworkConfig.
func decodeNetwork(raw interface{}, network *NetworkConfig) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, network)
}

// rawNetworkID returns the id of an undecoded network entry, if it has one,
// so that errors can name the network.
func rawNetworkID(raw interface{}) string {
	entry, ok := raw.(map[interface{}]interface{})
	if !ok {
		return ""
	}
	id, _ := entry["id"].(string)
	return id
}

// mungeFromEnvironment applies a single UNO__SECTION__KEY=value override.
// Path components are lowercased, with underscores becoming hyphens, and the
// value is parsed as YAML.
func mungeFromEnvironment(config *Config, envPair string) (applied bool, name string, err error) {
	equalIdx := strings.IndexByte(envPair, '=')
	if equalIdx == -1 {
		return false, "", nil
	}
	name, value := envPair[:equalIdx], envPair[equalIdx+1:]
	if !strings.HasPrefix(name, configEnvironmentPrefix) {
		return false, "", nil
	}

	path := strings.Split(strings.TrimPrefix(name, configEnvironmentPrefix), "__")
	for i, component := range path {
		if component == "" {
			return false, name, ErrInvalidEnvironmentKey
		}
		path[i] = strings.ToLower(strings.ReplaceAll(component, "_", "-"))
	}

	var parsed interface{}
	if err = yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return false, name, err
	}
	tree := parsed
	for i := len(path) - 1; 0 <= i; i-- {
		tree = map[string]interface{}{path[i]: tree}
	}
	data, err := yaml.Marshal(tree)
	if err != nil {
		return false, name, err
	}
	if err = yaml.Unmarshal(data, config); err != nil {
		return false, name, err
	}
	return true, name, nil
}
