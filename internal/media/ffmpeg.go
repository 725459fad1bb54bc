package media

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// FFmpeg extracts audio with the ffmpeg binary.
type FFmpeg struct {
	Bin string
	Log *logrus.Entry
}

var _ Extractor = (*FFmpeg)(nil)

func NewFFmpeg(bin string, log *logrus.Entry) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{Bin: bin, Log: log}
}

// ExtractAudio maps the first audio stream into audioPath at the highest VBR
// quality, dropping video and overwriting any existing file.
func (f *FFmpeg) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	_, err := run(ctx, f.Log, f.Bin,
		"-y",
		"-i", videoPath,
		"-vn",
		"-map", "0:a:0",
		"-q:a", "0",
		audioPath,
	)
	if err != nil {
		return err
	}
	if _, err := os.Stat(audioPath); err != nil {
		return fmt.Errorf("ffmpeg produced no output: %w", err)
	}
	return nil
}
