package bridge

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// stdioPipe joins a subprocess's stdout and stdin into one stream.
type stdioPipe struct {
	io.Reader
	io.WriteCloser
}

// Worker is a running external loader process with its conduit attached.
type Worker struct {
	client *PipeClient
	cmd    *exec.Cmd
	stdin  io.WriteCloser
}

// Conduit returns the call channel to the worker.
func (w *Worker) Conduit() Conduit { return w.client }

// Close shuts the conduit, closes the worker's stdin so it observes EOF,
// and waits for it to exit.
func (w *Worker) Close() error {
	w.client.Close()
	_ = w.stdin.Close()
	return w.cmd.Wait()
}

// StartWorker launches the worker command and frames the conduit over its
// stdio. The worker's stderr passes through to ours.
func StartWorker(ctx context.Context, command string) (*Worker, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("bridge: empty worker command")
	}

	// #nosec G204 -- the worker command comes from the project manifest
	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("bridge: worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("bridge: worker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("bridge: start worker %q: %w", fields[0], err)
	}

	client := NewPipeClient(stdioPipe{Reader: stdout, WriteCloser: stdin})
	return &Worker{client: client, cmd: cmd, stdin: stdin}, nil
}
