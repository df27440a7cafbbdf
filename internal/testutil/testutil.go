package testutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"

	"golang.org/x/crypto/ssh"
)

// WriteStringToTempFile writes content to a fresh temp file and returns its
// path plus a cleanup func.
func WriteStringToTempFile(content string) (string, func(), error) {
	tempFile, err := os.CreateTemp("", "gossh-test-*")
	if err != nil {
		return "", nil, err
	}

	if _, err := tempFile.WriteString(content); err != nil {
		tempFile.Close()
		os.Remove(tempFile.Name())
		return "", nil, err
	}
	tempFile.Close()

	cleanup := func() {
		os.Remove(tempFile.Name())
	}
	return tempFile.Name(), cleanup, nil
}

// CreateSSHKeyPairOnDisk generates a throwaway ed25519 keypair and writes
// both halves to temp files: authorized_keys format for the public half,
// OpenSSH PEM for the private half.
func CreateSSHKeyPairOnDisk() (publicPath, privatePath string, cleanup func(), err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", nil, err
	}

	block, err := ssh.MarshalPrivateKey(priv, "gossh test key")
	if err != nil {
		return "", "", nil, err
	}
	privatePath, cleanupPrivate, err := WriteStringToTempFile(string(pem.EncodeToMemory(block)))
	if err != nil {
		return "", "", nil, err
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		cleanupPrivate()
		return "", "", nil, err
	}
	publicPath, cleanupPublic, err := WriteStringToTempFile(string(ssh.MarshalAuthorizedKey(sshPub)))
	if err != nil {
		cleanupPrivate()
		return "", "", nil, err
	}

	cleanup = func() {
		cleanupPublic()
		cleanupPrivate()
	}
	return publicPath, privatePath, cleanup, nil
}
