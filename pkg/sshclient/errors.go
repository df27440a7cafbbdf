package sshclient

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned (wrapped) when an operation needs a live
// transport and the client has none.
var ErrNotConnected = errors.New("no active SSH connection")

// ConnectionError reports an authentication or transport-level failure for a
// target host. Failures are never retried past the dial phase; the error is
// propagated to the caller as-is.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %q failed: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ChannelError reports a failure while requesting a forwarded channel through
// an intermediary host. It is a specialization of a connection failure.
type ChannelError struct {
	Dest string
	Err  error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("transport channel for %q failed: %v", e.Dest, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// ConfigurationError reports an unsupported or malformed connection parameter,
// or an unreadable client configuration file.
type ConfigurationError struct {
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// SFTPError reports a failure to establish an SFTP session, including the
// attempt to open one on a client with no active transport.
type SFTPError struct {
	Err error
}

func (e *SFTPError) Error() string {
	return fmt.Sprintf("sftp session failed: %v", e.Err)
}

func (e *SFTPError) Unwrap() error { return e.Err }
