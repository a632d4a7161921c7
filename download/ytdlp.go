package download

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// CommandRunner runs an external command. Every stdout line is passed to
// onLine as it arrives. A non-nil error means the command failed.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, onLine func(string)) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

var _ CommandRunner = ExecRunner{}

// Run implements CommandRunner. Cancelling ctx kills the process.
func (ExecRunner) Run(ctx context.Context, name string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("download: %s: %w", name, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("download: start %s: %w", name, err)
	}

	scanErr := scanLines(stdout, onLine)
	waitErr := cmd.Wait()

	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case waitErr != nil:
		if msg := lastError(stderr.String()); msg != "" {
			return errors.New(msg)
		}
		return fmt.Errorf("download: %s: %w", name, waitErr)
	case scanErr != nil:
		return fmt.Errorf("download: read %s output: %w", name, scanErr)
	}
	return nil
}

// scanLines feeds r to onLine one line at a time. Lines have no length
// cap: --dump-single-json prints the whole info dict, formats and
// captions included, on a single line.
func scanLines(r io.Reader, onLine func(string)) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadString('\n')
		if line != "" && onLine != nil {
			onLine(strings.TrimRight(line, "\r\n"))
		}
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			// Keep the pipe drained so the process never blocks on a full buffer.
			_, _ = io.Copy(io.Discard, r)
			return err
		}
	}
}

// lastError returns the message of the last "ERROR:" line yt-dlp printed,
// without the prefix.
func lastError(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if msg, ok := strings.CutPrefix(line, "ERROR:"); ok {
			return strings.TrimSpace(msg)
		}
	}
	if len(lines) > 0 {
		return strings.TrimSpace(lines[len(lines)-1])
	}
	return ""
}
