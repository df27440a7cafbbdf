package sshclient

import (
	"fmt"
	"net"
	"os"
	"os/user"
	"strconv"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DefaultSSHConfigPath is the client configuration file consulted by
// LoadSSHConfig when no path is given.
const DefaultSSHConfigPath = "~/.ssh/config"

const DefaultSSHPort = 22

// defaultIdentityFiles are probed, in order, when LookForKeys is enabled and
// no explicit key was configured.
var defaultIdentityFiles = []string{
	"~/.ssh/id_rsa",
	"~/.ssh/id_ecdsa",
	"~/.ssh/id_ed25519",
}

// ConnectConfig holds the supported connection parameters. Zero values are
// filled from DefaultConnectConfig; unsupported transport options are not
// representable here, which is what keeps the set closed.
type ConnectConfig struct {
	Hostname    string
	Port        int
	Username    string
	Password    string
	KeyFilename []string
	Passphrase  string
	Timeout     time.Duration

	// AllowAgent enables SSH agent authentication when SSH_AUTH_SOCK is
	// present. LookForKeys enables probing the default identity files.
	AllowAgent  bool
	LookForKeys bool

	// Compress is parsed from configuration files but not negotiated; the
	// transport library does not support compression.
	Compress bool

	// Sock, when set, carries the connection to the target host — for
	// example a tunneled channel through a jump host.
	Sock net.Conn

	// InsecureIgnoreHostKey disables host key verification. When unset,
	// host keys are checked against KnownHostsFile.
	InsecureIgnoreHostKey bool
	KnownHostsFile        string
}

// DefaultConnectConfig returns the immutable parameter defaults.
func DefaultConnectConfig() ConnectConfig {
	return ConnectConfig{
		Port:           DefaultSSHPort,
		AllowAgent:     true,
		LookForKeys:    true,
		KnownHostsFile: "~/.ssh/known_hosts",
	}
}

type coercionKind int

const (
	coerceString coercionKind = iota + 1
	coerceInteger
	coerceBoolean
	coerceSock
)

type configKeyMapping struct {
	directive string
	kind      coercionKind
	apply     func(cfg *ConnectConfig, value string) error
}

// configKeyMappings maps supported client-configuration directives onto
// ConnectConfig fields, with the coercion each requires. Static data; never
// mutated.
var configKeyMappings = []configKeyMapping{
	{"Hostname", coerceString, func(c *ConnectConfig, v string) error {
		c.Hostname = v
		return nil
	}},
	{"Port", coerceInteger, func(c *ConnectConfig, v string) error {
		port, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.Port = port
		return nil
	}},
	{"User", coerceString, func(c *ConnectConfig, v string) error {
		c.Username = v
		return nil
	}},
	{"IdentityFile", coerceString, func(c *ConnectConfig, v string) error {
		path, err := homedir.Expand(v)
		if err != nil {
			return err
		}
		c.KeyFilename = append(c.KeyFilename, path)
		return nil
	}},
	{"ConnectTimeout", coerceInteger, func(c *ConnectConfig, v string) error {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.Timeout = time.Duration(secs) * time.Second
		return nil
	}},
	{"ForwardAgent", coerceBoolean, func(c *ConnectConfig, v string) error {
		c.AllowAgent = parseConfigBool(v)
		return nil
	}},
	{"IdentitiesOnly", coerceBoolean, func(c *ConnectConfig, v string) error {
		c.LookForKeys = !parseConfigBool(v)
		return nil
	}},
	{"Compression", coerceBoolean, func(c *ConnectConfig, v string) error {
		c.Compress = parseConfigBool(v)
		return nil
	}},
	{"ProxyCommand", coerceSock, nil}, // handled in LoadSSHConfig: needs host/port context
}

func parseConfigBool(v string) bool {
	switch strings.ToLower(v) {
	case "yes", "true", "1", "on":
		return true
	}
	return false
}

// LoadSSHConfig builds a ConnectConfig for hostname from an OpenSSH client
// configuration file. An empty configFile means DefaultSSHConfigPath. Only
// the directives in configKeyMappings are honored; everything else in the
// file is ignored. A missing file is a ConfigurationError.
func LoadSSHConfig(hostname, configFile string) (*ConnectConfig, error) {
	if configFile == "" {
		configFile = DefaultSSHConfigPath
	}
	path, err := homedir.Expand(configFile)
	if err != nil {
		return nil, &ConfigurationError{Msg: "expanding configuration path", Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigurationError{
			Msg: fmt.Sprintf("SSH configuration file %q cannot be read", path),
			Err: err,
		}
	}
	defer f.Close()

	parsed, err := ssh_config.Decode(f)
	if err != nil {
		return nil, &ConfigurationError{
			Msg: fmt.Sprintf("SSH configuration file %q cannot be parsed", path),
			Err: err,
		}
	}

	cfg := DefaultConnectConfig()
	cfg.Hostname = hostname

	for _, mapping := range configKeyMappings {
		if mapping.kind == coerceSock {
			continue
		}

		if mapping.directive == "IdentityFile" {
			values, err := parsed.GetAll(hostname, mapping.directive)
			if err != nil {
				continue
			}
			for _, v := range values {
				if err := mapping.apply(&cfg, v); err != nil {
					return nil, badDirective(mapping.directive, v, err)
				}
			}
			continue
		}

		v, err := parsed.Get(hostname, mapping.directive)
		if err != nil || v == "" {
			continue
		}
		if err := mapping.apply(&cfg, v); err != nil {
			return nil, badDirective(mapping.directive, v, err)
		}
	}

	// ProxyCommand becomes the socket to the target, the same role a
	// tunneled channel fills.
	if proxy, err := parsed.Get(hostname, "ProxyCommand"); err == nil && proxy != "" && proxy != "none" {
		conn, err := dialProxyCommand(proxy, cfg.Hostname, cfg.Port)
		if err != nil {
			return nil, badDirective("ProxyCommand", proxy, err)
		}
		cfg.Sock = conn
	}

	return &cfg, nil
}

func badDirective(directive, value string, err error) error {
	return &ConfigurationError{
		Msg: fmt.Sprintf("invalid value %q for directive %s", value, directive),
		Err: err,
	}
}

// buildClientConfig translates a ConnectConfig into the transport client
// configuration, assembling auth methods in priority order: explicit keys,
// agent, default identities, password.
func buildClientConfig(cfg *ConnectConfig) (*ssh.ClientConfig, error) {
	if cfg.Hostname == "" {
		return nil, &ConfigurationError{Msg: "hostname cannot be empty"}
	}

	username := cfg.Username
	if username == "" {
		current, err := user.Current()
		if err != nil {
			return nil, &ConfigurationError{Msg: "no username configured and current user unknown", Err: err}
		}
		username = current.Username
	}

	var auth []ssh.AuthMethod

	for _, keyFile := range cfg.KeyFilename {
		signer, err := loadSigner(keyFile, cfg.Passphrase)
		if err != nil {
			return nil, &ConfigurationError{
				Msg: fmt.Sprintf("loading private key %q", keyFile),
				Err: err,
			}
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}

	if cfg.AllowAgent {
		if method := agentAuth(); method != nil {
			auth = append(auth, method)
		}
	}

	if cfg.LookForKeys && len(cfg.KeyFilename) == 0 {
		for _, candidate := range defaultIdentityFiles {
			path, err := homedir.Expand(candidate)
			if err != nil {
				continue
			}
			signer, err := loadSigner(path, cfg.Passphrase)
			if err != nil {
				continue
			}
			auth = append(auth, ssh.PublicKeys(signer))
		}
	}

	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}

	if len(auth) == 0 {
		return nil, &ConfigurationError{Msg: "no usable authentication method"}
	}

	hostKeyCallback, err := hostKeyPolicy(cfg)
	if err != nil {
		return nil, err
	}

	return &ssh.ClientConfig{
		User:            username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         cfg.Timeout,
	}, nil
}

func loadSigner(path, passphrase string) (ssh.Signer, error) {
	keyBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(passphrase))
	}
	return ssh.ParsePrivateKey(keyBytes)
}

func agentAuth() ssh.AuthMethod {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers)
}

func hostKeyPolicy(cfg *ConnectConfig) (ssh.HostKeyCallback, error) {
	if cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec
	}

	path, err := homedir.Expand(cfg.KnownHostsFile)
	if err != nil {
		return nil, &ConfigurationError{Msg: "expanding known_hosts path", Err: err}
	}
	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, &ConfigurationError{
			Msg: fmt.Sprintf("reading known_hosts file %q", path),
			Err: err,
		}
	}
	return callback, nil
}
