package sshclient

import (
	"errors"
	"io"
	"sync"

	"golang.org/x/crypto/ssh"
)

// ExecChannel is the capability surface of one remote command invocation.
// The drain loop in executor.go is written entirely against this interface;
// sessionChannel is the production implementation and the tests substitute
// scripted fakes.
type ExecChannel interface {
	// CloseStdin closes the channel's input immediately; no stdin
	// forwarding is supported.
	CloseStdin() error
	// ShutdownWrite signals the remote end that no more input is coming.
	ShutdownWrite() error
	// ShutdownRead stops the read direction ahead of Close.
	ShutdownRead()
	Close() error

	// Recv returns whatever stdout bytes are currently buffered, without
	// blocking. RecvStderr is the stderr equivalent.
	Recv() []byte
	RecvStderr() []byte
	RecvReady() bool
	RecvStderrReady() bool

	// PollRead is the zero-timeout readiness check: true when either
	// stream has buffered data right now.
	PollRead() bool

	Closed() bool
	ExitStatusReady() bool
	// RecvExitStatus blocks until the remote exit status is known.
	RecvExitStatus() int

	// Stdout exposes the raw output stream for line iteration. Only valid
	// on channels opened with a pty, where the remote merges stderr in.
	Stdout() io.Reader
}

// streamBuffer accumulates bytes from one pipe pump and answers the
// non-blocking readiness and read queries.
type streamBuffer struct {
	mu   sync.Mutex
	data []byte
}

func (b *streamBuffer) write(p []byte) {
	b.mu.Lock()
	b.data = append(b.data, p...)
	b.mu.Unlock()
}

func (b *streamBuffer) take() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.data) == 0 {
		return nil
	}
	out := b.data
	b.data = nil
	return out
}

func (b *streamBuffer) ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data) > 0
}

// sessionChannel implements ExecChannel over an SSH session. For captured
// execution it pumps the stdout and stderr pipes into buffers so the drain
// loop can poll readiness without blocking; for pty execution the stdout pipe
// is handed to the caller untouched for blocking line iteration.
type sessionChannel struct {
	session SSHSessioner
	stdin   io.WriteCloser
	stdout  io.Reader

	outBuf streamBuffer
	errBuf streamBuffer
	pumps  sync.WaitGroup

	stdinOnce sync.Once
	closeOnce sync.Once
	stdinErr  error
	closeErr  error

	mu         sync.Mutex
	exitStatus int
	exitReady  bool
	pumpsDone  bool
	closed     bool

	exitCh chan struct{}
}

// openExecChannel starts command on a fresh session and returns the channel
// ready for draining. With pty set, a pseudo-terminal is requested and the
// stream pumps are not started.
func openExecChannel(session SSHSessioner, command string, pty bool) (*sessionChannel, error) {
	ch := &sessionChannel{
		session: session,
		exitCh:  make(chan struct{}),
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		return nil, err
	}
	ch.stdin = stdin

	stdout, err := session.StdoutPipe()
	if err != nil {
		return nil, err
	}
	ch.stdout = stdout

	stderr, err := session.StderrPipe()
	if err != nil {
		return nil, err
	}

	if pty {
		modes := ssh.TerminalModes{
			ssh.ECHO:          0,
			ssh.TTY_OP_ISPEED: 14400,
			ssh.TTY_OP_OSPEED: 14400,
		}
		if err := session.RequestPty("xterm", 80, 40, modes); err != nil {
			return nil, err
		}
	}

	if err := session.Start(command); err != nil {
		return nil, err
	}

	if !pty {
		ch.pumps.Add(2)
		go ch.pump(stdout, &ch.outBuf)
		go ch.pump(stderr, &ch.errBuf)
		go func() {
			ch.pumps.Wait()
			ch.mu.Lock()
			ch.pumpsDone = true
			ch.mu.Unlock()
		}()
	}

	go ch.wait(pty)

	return ch, nil
}

func (c *sessionChannel) pump(r io.Reader, buf *streamBuffer) {
	defer c.pumps.Done()
	p := make([]byte, 32*1024)
	for {
		n, err := r.Read(p)
		if n > 0 {
			buf.write(p[:n])
		}
		if err != nil {
			return
		}
	}
}

func (c *sessionChannel) wait(pty bool) {
	err := c.session.Wait()

	status := 0
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			status = exitErr.ExitStatus()
		} else {
			status = -1
		}
	}

	c.mu.Lock()
	c.exitStatus = status
	c.exitReady = true
	if pty {
		// No pumps in pty mode; the stream ends with the command.
		c.pumpsDone = true
	}
	c.mu.Unlock()
	close(c.exitCh)
}

func (c *sessionChannel) CloseStdin() error {
	c.stdinOnce.Do(func() { c.stdinErr = c.stdin.Close() })
	return c.stdinErr
}

// ShutdownWrite sends the write-direction EOF. The transport signals EOF on
// the channel when stdin closes, so this shares the stdin close.
func (c *sessionChannel) ShutdownWrite() error {
	return c.CloseStdin()
}

func (c *sessionChannel) ShutdownRead() {
	// Nothing to tear down ahead of Close; the pumps stop at EOF.
}

func (c *sessionChannel) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.session.Close()
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
	})
	return c.closeErr
}

func (c *sessionChannel) Recv() []byte       { return c.outBuf.take() }
func (c *sessionChannel) RecvStderr() []byte { return c.errBuf.take() }

func (c *sessionChannel) RecvReady() bool       { return c.outBuf.ready() }
func (c *sessionChannel) RecvStderrReady() bool { return c.errBuf.ready() }

func (c *sessionChannel) PollRead() bool {
	return c.outBuf.ready() || c.errBuf.ready()
}

// Closed reports whether the channel is finished: explicitly closed, or the
// remote side has delivered EOF on both streams and the exit status.
func (c *sessionChannel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed || (c.pumpsDone && c.exitReady)
}

// ExitStatusReady holds only once the status is recorded AND both streams
// have reached EOF. Wait can return while pipe data is still in flight to the
// pumps; reporting ready before EOF would let the drain loop close the
// channel under buffered-but-undelivered output.
func (c *sessionChannel) ExitStatusReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitReady && c.pumpsDone
}

func (c *sessionChannel) RecvExitStatus() int {
	<-c.exitCh
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitStatus
}

func (c *sessionChannel) Stdout() io.Reader { return c.stdout }

var _ ExecChannel = (*sessionChannel)(nil)
