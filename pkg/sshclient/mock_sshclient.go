package sshclient

import (
	"io"
	"net"

	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/ssh"
)

// MockSSHClient is a mock implementation of SSHClienter.
type MockSSHClient struct {
	mock.Mock
}

func (m *MockSSHClient) NewSession() (SSHSessioner, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(SSHSessioner), args.Error(1)
}

func (m *MockSSHClient) Dial(network, addr string) (net.Conn, error) {
	args := m.Called(network, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(net.Conn), args.Error(1)
}

func (m *MockSSHClient) NativeClient() *ssh.Client {
	return nil
}

func (m *MockSSHClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockSSHSession is a mock implementation of SSHSessioner.
type MockSSHSession struct {
	mock.Mock
}

func (m *MockSSHSession) RequestPty(term string, h, w int, modes ssh.TerminalModes) error {
	args := m.Called(term, h, w, modes)
	return args.Error(0)
}

func (m *MockSSHSession) StdinPipe() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSSHSession) StdoutPipe() (io.Reader, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.Reader), args.Error(1)
}

func (m *MockSSHSession) StderrPipe() (io.Reader, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.Reader), args.Error(1)
}

func (m *MockSSHSession) Start(cmd string) error {
	args := m.Called(cmd)
	return args.Error(0)
}

func (m *MockSSHSession) Wait() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSSHSession) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockSSHDialer is a mock implementation of SSHDialer.
type MockSSHDialer struct {
	mock.Mock
}

func (m *MockSSHDialer) Dial(network, addr string, config *ssh.ClientConfig) (SSHClienter, error) {
	args := m.Called(network, addr, config)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(SSHClienter), args.Error(1)
}

func (m *MockSSHDialer) DialConn(conn net.Conn, addr string, config *ssh.ClientConfig) (SSHClienter, error) {
	args := m.Called(conn, addr, config)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(SSHClienter), args.Error(1)
}

var (
	_ SSHClienter  = (*MockSSHClient)(nil)
	_ SSHSessioner = (*MockSSHSession)(nil)
	_ SSHDialer    = (*MockSSHDialer)(nil)
)
