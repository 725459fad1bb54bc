// Package media wraps the external ffprobe/ffmpeg tools behind narrow
// interfaces so the pipeline can be exercised with doubles.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// AudioExt is the extension of extracted audio artifacts.
const AudioExt = ".mp3"

// Inspector reports whether a file carries a decodable audio stream.
type Inspector interface {
	HasAudioStream(ctx context.Context, path string) (bool, error)
}

// Extractor writes the best audio stream of videoPath to audioPath.
// Callers must confirm audio presence with an Inspector first.
type Extractor interface {
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error
}

// ToolError is returned when an external tool cannot be started or exits
// non-zero.
type ToolError struct {
	Tool   string
	Err    error
	Stderr string
}

func (e *ToolError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, e.Stderr)
}

func (e *ToolError) Unwrap() error { return e.Err }

// ExitCode returns the tool's exit status, or -1 if it never ran.
func (e *ToolError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

const maxStderr = 2048

func run(ctx context.Context, log *logrus.Entry, bin string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if log != nil {
		log.WithField("args", strings.Join(args, " ")).Debug("running " + bin)
	}
	if err := cmd.Run(); err != nil {
		return "", &ToolError{Tool: bin, Err: err, Stderr: tail(stderr.String(), maxStderr)}
	}
	return stdout.String(), nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
