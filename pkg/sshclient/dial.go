package sshclient

import (
	"net"
	"time"

	"golang.org/x/crypto/ssh"
)

var (
	sshRetryAttempts uint64 = 3
	sshRetryInterval        = 2 * time.Second
	sshDialTimeout          = 10 * time.Second
)

// SSHDialer abstracts transport establishment so connection logic can be
// exercised without a network.
type SSHDialer interface {
	Dial(network, addr string, config *ssh.ClientConfig) (SSHClienter, error)
	// DialConn runs the SSH handshake over an existing connection, e.g. a
	// tunneled channel or a ProxyCommand socket.
	DialConn(conn net.Conn, addr string, config *ssh.ClientConfig) (SSHClienter, error)
}

// NewSSHDialer returns the production dialer.
func NewSSHDialer() SSHDialer {
	return &sshDialer{}
}

type sshDialer struct{}

func (d *sshDialer) Dial(network, addr string, config *ssh.ClientConfig) (SSHClienter, error) {
	client, err := ssh.Dial(network, addr, config)
	if err != nil {
		return nil, err
	}
	return &SSHClientWrapper{Client: client}, nil
}

func (d *sshDialer) DialConn(conn net.Conn, addr string, config *ssh.ClientConfig) (SSHClienter, error) {
	ncc, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		return nil, err
	}
	return &SSHClientWrapper{Client: ssh.NewClient(ncc, chans, reqs)}, nil
}
