package sshclient

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/degagne/gossh/pkg/logger"
)

// drainPollInterval is slept when a zero-timeout poll finds nothing ready and
// the exit status is still pending, so an idle remote command does not spin a
// core. The completion predicate itself is unchanged by the sleep.
const drainPollInterval = 5 * time.Millisecond

// maxLineLength bounds a single forwarded line in real-time execution.
const maxLineLength = 1024 * 1024

// drainChannel runs the captured-execution protocol against an open channel:
// close the write side, pre-read whatever is already buffered, then poll both
// streams until the channel is done and no data is pending. The exit status
// is only final once exit-status-ready holds AND neither stream has pending
// data; closing earlier would truncate output still in flight.
func drainChannel(ch ExecChannel, out *strings.Builder) int {
	ch.CloseStdin()
	ch.ShutdownWrite()

	// Data may already be buffered before the loop's first readiness
	// check; read it unconditionally.
	out.Write(ch.Recv())

	for !ch.Closed() || ch.RecvReady() || ch.RecvStderrReady() {
		if ch.PollRead() {
			if ch.RecvReady() {
				out.Write(ch.Recv())
			}
			if ch.RecvStderrReady() {
				out.Write(ch.RecvStderr())
			}
		} else if !ch.ExitStatusReady() {
			time.Sleep(drainPollInterval)
		}
		if ch.ExitStatusReady() && !ch.RecvStderrReady() && !ch.RecvReady() {
			ch.ShutdownRead()
			ch.Close()
			break
		}
	}

	return ch.RecvExitStatus()
}

// executeCaptured opens an execution channel for command on the client,
// drains it, and returns the combined stdout/stderr text with the exit
// status. When file is non-nil the full captured text is also written to it.
func executeCaptured(client SSHClienter, host, command string, file io.Writer) (string, int, error) {
	l := logger.Get()
	l.Debugf("executing %q on %s", command, host)

	ch, err := openChannel(client, host, command, false)
	if err != nil {
		return "", 0, err
	}

	var out strings.Builder
	status := drainChannel(ch, &out)
	l.Debugf("command %q on %s exited with status %d", command, host, status)

	if file != nil {
		if _, err := io.WriteString(file, out.String()); err != nil {
			return "", 0, fmt.Errorf("writing command output: %w", err)
		}
	}

	return out.String(), status, nil
}

// executeRealtime runs command with a pseudo-terminal and forwards each
// output line to stdout as it arrives. The remote merges stderr into the pty
// stream, so a single line iteration covers both; it ends at end-of-stream,
// which is the natural completion signal here.
func executeRealtime(client SSHClienter, host, command string, stdout io.Writer) (int, error) {
	l := logger.Get()
	l.Debugf("executing %q on %s (realtime)", command, host)

	ch, err := openChannel(client, host, command, true)
	if err != nil {
		return 0, err
	}

	status, err := streamChannel(ch, stdout)
	l.Debugf("command %q on %s exited with status %d", command, host, status)
	if err != nil {
		return status, &ConnectionError{Host: host, Err: err}
	}
	return status, nil
}

// streamChannel forwards lines from the pty stream until end-of-stream, then
// shuts the channel down and collects the exit status.
func streamChannel(ch ExecChannel, stdout io.Writer) (int, error) {
	ch.CloseStdin()
	ch.ShutdownWrite()

	scanner := bufio.NewScanner(ch.Stdout())
	scanner.Buffer(make([]byte, 64*1024), maxLineLength)
	for scanner.Scan() {
		fmt.Fprintln(stdout, scanner.Text())
	}

	ch.ShutdownRead()
	ch.Close()

	return ch.RecvExitStatus(), scanner.Err()
}

func openChannel(client SSHClienter, host, command string, pty bool) (ExecChannel, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, &ConnectionError{Host: host, Err: err}
	}

	ch, err := openExecChannel(session, command, pty)
	if err != nil {
		session.Close()
		return nil, &ConnectionError{Host: host, Err: err}
	}
	return ch, nil
}
