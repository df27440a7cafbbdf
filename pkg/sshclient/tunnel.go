package sshclient

import (
	"context"
	"fmt"
	"net"

	"github.com/degagne/gossh/pkg/logger"
)

// OpenTunnel connects to an intermediary ("jump") host described by jumpCfg
// and opens a forwarded channel to destHostname:destPort through it. The
// returned connection can be placed in ConnectConfig.Sock to reach hosts that
// are not directly routable; closing it also tears down the intermediary
// connection. The command-execution protocol is indifferent to whether a
// transport rides a direct socket or a tunneled one.
func OpenTunnel(ctx context.Context, destHostname string, destPort int, jumpCfg ConnectConfig) (net.Conn, error) {
	if destPort == 0 {
		destPort = DefaultSSHPort
	}
	dest := fmt.Sprintf("%s:%d", destHostname, destPort)

	jump := NewClient(jumpCfg)
	if err := jump.Connect(ctx); err != nil {
		return nil, err
	}

	logger.Get().Debugf("opening tunnel to %s via %s", dest, jumpCfg.Hostname)
	conn, err := jump.client.Dial("tcp", dest)
	if err != nil {
		jump.Disconnect()
		return nil, &ChannelError{Dest: destHostname, Err: err}
	}

	return &tunnelConn{Conn: conn, jump: jump}, nil
}

// tunnelConn ties the lifetime of the intermediary transport to the
// forwarded connection.
type tunnelConn struct {
	net.Conn
	jump *Client
}

func (t *tunnelConn) Close() error {
	err := t.Conn.Close()
	if derr := t.jump.Disconnect(); err == nil {
		err = derr
	}
	return err
}
