// Package media provides local media processing helpers.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"
)

// FFmpegExtractor grabs video poster frames by shelling out to ffmpeg.
type FFmpegExtractor struct {
	binary string
	log    zerolog.Logger
}

func NewFFmpegExtractor(log zerolog.Logger) *FFmpegExtractor {
	return &FFmpegExtractor{binary: "ffmpeg", log: log}
}

// ExtractFrame returns the first frame of the video as a 320x240 JPEG.
func (e *FFmpegExtractor) ExtractFrame(ctx context.Context, videoPath string) ([]byte, error) {
	// -ss before -i seeks on the input, which is fast even on long files.
	cmd := exec.CommandContext(ctx, e.binary,
		"-ss", "00:00:00",
		"-i", videoPath,
		"-frames:v", "1",
		"-vf", "scale=320:240:force_original_aspect_ratio=increase,crop=320:240",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"pipe:1",
	)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		e.log.Debug().Str("stderr", stderr.String()).Msg("ffmpeg invocation failed")
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", videoPath)
	}
	return out.Bytes(), nil
}
