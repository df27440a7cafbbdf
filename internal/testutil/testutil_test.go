package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func TestWriteStringToTempFile(t *testing.T) {
	path, cleanup, err := WriteStringToTempFile("some content")
	require.NoError(t, err)
	defer cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "some content", string(data))
}

func TestCreateSSHKeyPairOnDisk(t *testing.T) {
	publicPath, privatePath, cleanup, err := CreateSSHKeyPairOnDisk()
	require.NoError(t, err)
	defer cleanup()

	privateBytes, err := os.ReadFile(privatePath)
	require.NoError(t, err)
	signer, err := ssh.ParsePrivateKey(privateBytes)
	require.NoError(t, err)

	publicBytes, err := os.ReadFile(publicPath)
	require.NoError(t, err)
	pub, _, _, _, err := ssh.ParseAuthorizedKey(publicBytes)
	require.NoError(t, err)

	assert.Equal(t, pub.Type(), signer.PublicKey().Type())
	assert.Equal(t, ssh.FingerprintSHA256(pub), ssh.FingerprintSHA256(signer.PublicKey()))
}
