package sshclient

import (
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// sftpClientCreator builds an SFTP client over an authenticated transport.
// Variable so tests can substitute a fake.
var sftpClientCreator = func(client *ssh.Client) (*sftp.Client, error) {
	return sftp.NewClient(client)
}

// OpenSFTP opens an SFTP session on the connected host. Attempting this on a
// client with no active transport is an SFTPError.
func (c *Client) OpenSFTP() (*sftp.Client, error) {
	if c.client == nil {
		return nil, &SFTPError{Err: ErrNotConnected}
	}
	native := c.client.NativeClient()
	if native == nil {
		return nil, &SFTPError{Err: ErrNotConnected}
	}
	return sftpClientCreator(native)
}
