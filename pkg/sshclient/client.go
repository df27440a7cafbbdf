package sshclient

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cenkalti/backoff/v4"

	"github.com/degagne/gossh/pkg/logger"
)

// Client is a high-level handle on one SSH server. It owns at most one
// authenticated transport at a time; sessions for individual commands are
// opened and torn down per call. A Client may be reused for sequential
// executions but is not safe for concurrent in-flight executions.
type Client struct {
	// Stdout receives real-time execution output. Defaults to os.Stdout.
	Stdout io.Writer

	cfg    ConnectConfig
	dialer SSHDialer
	client SSHClienter
	log    *logger.Logger
}

// NewClient returns an unconnected client for cfg. Zero-valued fields keep
// the defaults from DefaultConnectConfig.
func NewClient(cfg ConnectConfig) *Client {
	defaults := DefaultConnectConfig()
	if cfg.Port == 0 {
		cfg.Port = defaults.Port
	}
	if cfg.KnownHostsFile == "" {
		cfg.KnownHostsFile = defaults.KnownHostsFile
	}
	return &Client{
		cfg:    cfg,
		dialer: newDialer(),
		log:    logger.Get(),
	}
}

// newDialer builds the transport dialer for fresh clients. Variable so tests
// can route WithClient and OpenTunnel through doubles.
var newDialer = NewSSHDialer

// SetDialer replaces the transport dialer. Exposed for tests.
func (c *Client) SetDialer(d SSHDialer) { c.dialer = d }

// Config returns the connection parameters the client was built with.
func (c *Client) Config() ConnectConfig { return c.cfg }

// Connect authenticates against the configured host, retrying transient dial
// failures a bounded number of times. Connecting an already-connected client
// replaces the old transport.
func (c *Client) Connect(ctx context.Context) error {
	clientConfig, err := buildClientConfig(&c.cfg)
	if err != nil {
		return err
	}
	if clientConfig.Timeout == 0 {
		clientConfig.Timeout = sshDialTimeout
	}

	addr := fmt.Sprintf("%s:%d", c.cfg.Hostname, c.cfg.Port)
	c.log.Debugf("connecting to %s as %s", addr, clientConfig.User)

	var conn SSHClienter
	operation := func() error {
		var dialErr error
		if c.cfg.Sock != nil {
			conn, dialErr = c.dialer.DialConn(c.cfg.Sock, addr, clientConfig)
		} else {
			conn, dialErr = c.dialer.Dial("tcp", addr, clientConfig)
		}
		return dialErr
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(sshRetryInterval), sshRetryAttempts-1),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return &ConnectionError{Host: c.cfg.Hostname, Err: err}
	}

	if c.client != nil {
		c.client.Close()
	}
	c.client = conn
	c.log.Infof("connected to %s", addr)
	return nil
}

// Disconnect closes the transport. Idempotent: a client with no active
// transport is left untouched and no error is reported.
func (c *Client) Disconnect() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	c.log.Debugf("disconnected from %s", c.cfg.Hostname)
	return err
}

// IsConnected reports whether the client currently holds a transport.
func (c *Client) IsConnected() bool { return c.client != nil }

// Execute runs command on the remote host and returns the combined
// stdout/stderr output in arrival order together with the exit status.
func (c *Client) Execute(command string) (string, int, error) {
	if c.client == nil {
		return "", 0, &ConnectionError{Host: c.cfg.Hostname, Err: ErrNotConnected}
	}
	return executeCaptured(c.client, c.cfg.Hostname, command, nil)
}

// ExecuteToFile behaves like Execute and additionally writes the full
// captured output to file.
func (c *Client) ExecuteToFile(command string, file io.Writer) (string, int, error) {
	if c.client == nil {
		return "", 0, &ConnectionError{Host: c.cfg.Hostname, Err: ErrNotConnected}
	}
	return executeCaptured(c.client, c.cfg.Hostname, command, file)
}

// ExecuteRealtime runs command with a pseudo-terminal, forwarding each output
// line to c.Stdout as it arrives, and returns the exit status.
func (c *Client) ExecuteRealtime(command string) (int, error) {
	if c.client == nil {
		return 0, &ConnectionError{Host: c.cfg.Hostname, Err: ErrNotConnected}
	}
	stdout := c.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	return executeRealtime(c.client, c.cfg.Hostname, command, stdout)
}
