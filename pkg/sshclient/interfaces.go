package sshclient

import (
	"io"
	"net"

	"golang.org/x/crypto/ssh"
)

// SSHClienter is the subset of an authenticated SSH client the library needs.
type SSHClienter interface {
	NewSession() (SSHSessioner, error)
	// Dial opens a direct-tcpip connection through the client, used for
	// tunneling to hosts reachable only via this one.
	Dial(network, addr string) (net.Conn, error)
	// NativeClient exposes the underlying transport client for subsystems
	// (SFTP) that need the concrete type. May return nil for test doubles.
	NativeClient() *ssh.Client
	Close() error
}

// SSHSessioner is the subset of an SSH session used for command execution.
type SSHSessioner interface {
	RequestPty(term string, h, w int, modes ssh.TerminalModes) error
	StdinPipe() (io.WriteCloser, error)
	StdoutPipe() (io.Reader, error)
	StderrPipe() (io.Reader, error)
	Start(cmd string) error
	Wait() error
	Close() error
}

// SSHClientWrapper adapts *ssh.Client to SSHClienter.
type SSHClientWrapper struct {
	Client *ssh.Client
}

func (w *SSHClientWrapper) NewSession() (SSHSessioner, error) {
	session, err := w.Client.NewSession()
	if err != nil {
		return nil, err
	}
	return &SSHSessionWrapper{Session: session}, nil
}

func (w *SSHClientWrapper) Dial(network, addr string) (net.Conn, error) {
	return w.Client.Dial(network, addr)
}

func (w *SSHClientWrapper) NativeClient() *ssh.Client {
	return w.Client
}

func (w *SSHClientWrapper) Close() error {
	return w.Client.Close()
}

// SSHSessionWrapper adapts *ssh.Session to SSHSessioner.
type SSHSessionWrapper struct {
	Session *ssh.Session
}

func (s *SSHSessionWrapper) RequestPty(term string, h, w int, modes ssh.TerminalModes) error {
	return s.Session.RequestPty(term, h, w, modes)
}

func (s *SSHSessionWrapper) StdinPipe() (io.WriteCloser, error) {
	return s.Session.StdinPipe()
}

func (s *SSHSessionWrapper) StdoutPipe() (io.Reader, error) {
	return s.Session.StdoutPipe()
}

func (s *SSHSessionWrapper) StderrPipe() (io.Reader, error) {
	return s.Session.StderrPipe()
}

func (s *SSHSessionWrapper) Start(cmd string) error {
	return s.Session.Start(cmd)
}

func (s *SSHSessionWrapper) Wait() error {
	return s.Session.Wait()
}

func (s *SSHSessionWrapper) Close() error {
	return s.Session.Close()
}

var (
	_ SSHClienter  = (*SSHClientWrapper)(nil)
	_ SSHSessioner = (*SSHSessionWrapper)(nil)
)
