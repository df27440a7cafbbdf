package sshclient

import (
	"fmt"
	"io"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// dialProxyCommand starts the configured ProxyCommand and returns its stdio
// as a net.Conn suitable for ConnectConfig.Sock. %h and %p tokens are
// substituted with the target host and port before the command runs.
func dialProxyCommand(command, host string, port int) (net.Conn, error) {
	expanded := strings.NewReplacer(
		"%h", host,
		"%p", strconv.Itoa(port),
		"%%", "%",
	).Replace(command)

	cmd := exec.Command("/bin/sh", "-c", expanded)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting proxy command %q: %w", expanded, err)
	}

	return &proxyCommandConn{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		addr:   proxyAddr(fmt.Sprintf("%s:%d", host, port)),
	}, nil
}

// proxyCommandConn adapts a running proxy process's stdio to net.Conn.
// Deadlines are not supported; the SSH handshake timeout bounds the dial.
type proxyCommandConn struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	addr   proxyAddr
}

func (c *proxyCommandConn) Read(p []byte) (int, error)  { return c.stdout.Read(p) }
func (c *proxyCommandConn) Write(p []byte) (int, error) { return c.stdin.Write(p) }

func (c *proxyCommandConn) Close() error {
	c.stdin.Close()
	c.stdout.Close()
	if c.cmd.Process != nil {
		c.cmd.Process.Kill()
	}
	return c.cmd.Wait()
}

func (c *proxyCommandConn) LocalAddr() net.Addr                { return proxyAddr("proxy-command") }
func (c *proxyCommandConn) RemoteAddr() net.Addr               { return c.addr }
func (c *proxyCommandConn) SetDeadline(t time.Time) error      { return nil }
func (c *proxyCommandConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *proxyCommandConn) SetWriteDeadline(t time.Time) error { return nil }

type proxyAddr string

func (a proxyAddr) Network() string { return "proxy" }
func (a proxyAddr) String() string  { return string(a) }
