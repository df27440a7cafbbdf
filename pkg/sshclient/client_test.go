package sshclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/degagne/gossh/internal/testutil"
	"github.com/degagne/gossh/pkg/logger"
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func newCapturedSession(t *testing.T, command, stdout, stderr string) *MockSSHSession {
	t.Helper()
	session := &MockSSHSession{}
	session.On("StdinPipe").Return(nopWriteCloser{io.Discard}, nil)
	session.On("StdoutPipe").Return(io.Reader(strings.NewReader(stdout)), nil)
	session.On("StderrPipe").Return(io.Reader(strings.NewReader(stderr)), nil)
	session.On("Start", command).Return(nil)
	session.On("Wait").Return(nil)
	session.On("Close").Return(nil)
	return session
}

func newConnectedClient(mockClient *MockSSHClient) *Client {
	c := NewClient(ConnectConfig{Hostname: "example.com", Username: "testuser"})
	c.client = mockClient
	return c
}

func TestExecuteCapturesOutput(t *testing.T) {
	logger.NewTestLogger(t)
	session := newCapturedSession(t, "echo hello", "hello\n", "")
	mockClient := &MockSSHClient{}
	mockClient.On("NewSession").Return(session, nil)

	c := newConnectedClient(mockClient)
	output, status, err := c.Execute("echo hello")

	require.NoError(t, err)
	assert.Equal(t, "hello\n", output)
	assert.Equal(t, 0, status)
	mockClient.AssertExpectations(t)
	session.AssertExpectations(t)
}

func TestExecuteCapturesStderr(t *testing.T) {
	logger.NewTestLogger(t)
	session := newCapturedSession(t, "failing-command", "", "oops\n")
	mockClient := &MockSSHClient{}
	mockClient.On("NewSession").Return(session, nil)

	c := newConnectedClient(mockClient)
	output, status, err := c.Execute("failing-command")

	require.NoError(t, err)
	assert.Equal(t, "oops\n", output)
	assert.Equal(t, 0, status)
}

func TestExecuteNotConnected(t *testing.T) {
	c := NewClient(ConnectConfig{Hostname: "example.com"})

	_, _, err := c.Execute("ls -l")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConnected)
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "example.com", connErr.Host)
}

func TestExecuteToFileRoundTrip(t *testing.T) {
	logger.NewTestLogger(t)
	session := newCapturedSession(t, "cat /etc/hostname", "node-1\n", "")
	mockClient := &MockSSHClient{}
	mockClient.On("NewSession").Return(session, nil)

	file, err := os.CreateTemp(t.TempDir(), "output-*")
	require.NoError(t, err)

	c := newConnectedClient(mockClient)
	output, status, err := c.ExecuteToFile("cat /etc/hostname", file)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	assert.Equal(t, 0, status)

	written, err := os.ReadFile(file.Name())
	require.NoError(t, err)
	assert.Equal(t, output, string(written), "file contents must match the returned text byte-for-byte")
}

func TestExecuteRealtimeForwardsLines(t *testing.T) {
	logger.NewTestLogger(t)
	session := &MockSSHSession{}
	session.On("StdinPipe").Return(nopWriteCloser{io.Discard}, nil)
	session.On("StdoutPipe").Return(io.Reader(strings.NewReader("line1\nline2\n")), nil)
	session.On("StderrPipe").Return(io.Reader(strings.NewReader("")), nil)
	session.On("RequestPty", "xterm", 80, 40, mock.Anything).Return(nil)
	session.On("Start", "echo line1; echo line2").Return(nil)
	session.On("Wait").Return(nil)
	session.On("Close").Return(nil)

	mockClient := &MockSSHClient{}
	mockClient.On("NewSession").Return(session, nil)

	var stdout bytes.Buffer
	c := newConnectedClient(mockClient)
	c.Stdout = &stdout

	status, err := c.ExecuteRealtime("echo line1; echo line2")

	require.NoError(t, err)
	assert.Equal(t, 0, status)
	assert.Equal(t, "line1\nline2\n", stdout.String())
	session.AssertExpectations(t)
}

func TestExecuteSessionFailure(t *testing.T) {
	logger.NewTestLogger(t)
	mockClient := &MockSSHClient{}
	mockClient.On("NewSession").Return(nil, errors.New("channel rejected"))

	c := newConnectedClient(mockClient)
	_, _, err := c.Execute("ls")

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "example.com", connErr.Host)
}

func TestDisconnectIdempotent(t *testing.T) {
	mockClient := &MockSSHClient{}
	mockClient.On("Close").Return(nil).Once()

	c := newConnectedClient(mockClient)

	assert.NoError(t, c.Disconnect())
	assert.False(t, c.IsConnected())
	assert.NoError(t, c.Disconnect(), "second disconnect must be a no-op")
	mockClient.AssertExpectations(t)
}

func TestConnectSuccess(t *testing.T) {
	logger.NewTestLogger(t)
	_, privateKeyPath, cleanup, err := testutil.CreateSSHKeyPairOnDisk()
	require.NoError(t, err)
	defer cleanup()

	mockClient := &MockSSHClient{}
	mockDialer := &MockSSHDialer{}
	mockDialer.On("Dial", "tcp", "example.com:22", mock.AnythingOfType("*ssh.ClientConfig")).
		Return(mockClient, nil)

	c := NewClient(ConnectConfig{
		Hostname:              "example.com",
		Username:              "testuser",
		KeyFilename:           []string{privateKeyPath},
		AllowAgent:            false,
		LookForKeys:           false,
		InsecureIgnoreHostKey: true,
	})
	c.SetDialer(mockDialer)

	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.IsConnected())
	mockDialer.AssertExpectations(t)
}

func TestConnectFailure(t *testing.T) {
	logger.NewTestLogger(t)
	oldInterval := sshRetryInterval
	sshRetryInterval = time.Millisecond
	defer func() { sshRetryInterval = oldInterval }()

	_, privateKeyPath, cleanup, err := testutil.CreateSSHKeyPairOnDisk()
	require.NoError(t, err)
	defer cleanup()

	mockDialer := &MockSSHDialer{}
	mockDialer.On("Dial", "tcp", "example.com:22", mock.AnythingOfType("*ssh.ClientConfig")).
		Return(nil, errors.New("connection refused"))

	c := NewClient(ConnectConfig{
		Hostname:              "example.com",
		Username:              "testuser",
		KeyFilename:           []string{privateKeyPath},
		AllowAgent:            false,
		LookForKeys:           false,
		InsecureIgnoreHostKey: true,
	})
	c.SetDialer(mockDialer)

	err = c.Connect(context.Background())
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "example.com", connErr.Host)
	assert.False(t, c.IsConnected())
}

func TestConnectOverSock(t *testing.T) {
	logger.NewTestLogger(t)
	_, privateKeyPath, cleanup, err := testutil.CreateSSHKeyPairOnDisk()
	require.NoError(t, err)
	defer cleanup()

	local, remote := netPipe(t)
	defer remote.Close()

	mockClient := &MockSSHClient{}
	mockDialer := &MockSSHDialer{}
	mockDialer.On("DialConn", local, "target.internal:22", mock.AnythingOfType("*ssh.ClientConfig")).
		Return(mockClient, nil)

	c := NewClient(ConnectConfig{
		Hostname:              "target.internal",
		Username:              "testuser",
		KeyFilename:           []string{privateKeyPath},
		AllowAgent:            false,
		LookForKeys:           false,
		InsecureIgnoreHostKey: true,
		Sock:                  local,
	})
	c.SetDialer(mockDialer)

	require.NoError(t, c.Connect(context.Background()))
	mockDialer.AssertExpectations(t)
}

func TestOpenSFTPNotConnected(t *testing.T) {
	c := NewClient(ConnectConfig{Hostname: "example.com"})

	_, err := c.OpenSFTP()

	var sftpErr *SFTPError
	require.ErrorAs(t, err, &sftpErr)
	assert.ErrorIs(t, err, ErrNotConnected)
}
