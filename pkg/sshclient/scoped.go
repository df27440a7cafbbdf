package sshclient

import "context"

// WithClient connects to the host described by cfg, invokes fn with the live
// client, and disconnects on every exit path, including when fn fails or
// panics.
func WithClient(ctx context.Context, cfg ConnectConfig, fn func(*Client) error) error {
	client := NewClient(cfg)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Disconnect()
	return fn(client)
}
