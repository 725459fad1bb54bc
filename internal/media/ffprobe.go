package media

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

// FFprobe inspects files with the ffprobe binary.
type FFprobe struct {
	Bin string
	Log *logrus.Entry
}

var _ Inspector = (*FFprobe)(nil)

func NewFFprobe(bin string, log *logrus.Entry) *FFprobe {
	if bin == "" {
		bin = "ffprobe"
	}
	return &FFprobe{Bin: bin, Log: log}
}

// HasAudioStream asks ffprobe for the codec type of the first audio stream.
// A failed invocation is an error, never "no audio".
func (p *FFprobe) HasAudioStream(ctx context.Context, path string) (bool, error) {
	if strings.TrimSpace(path) == "" {
		return false, errors.New("ffprobe: empty path")
	}
	out, err := run(ctx, p.Log, p.Bin,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_type",
		"-of", "csv=p=0",
		path,
	)
	if err != nil {
		return false, err
	}
	return parseCodecType(out), nil
}

func parseCodecType(out string) bool {
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(strings.TrimSuffix(line, ",")) == "audio" {
			return true
		}
	}
	return false
}
