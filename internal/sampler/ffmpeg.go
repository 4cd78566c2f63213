package sampler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegDecoder decodes frames by invoking ffmpeg once per requested frame.
// Open verifies the stream through the configured prober.
type FFmpegDecoder struct {
	Binary string
	Prober Prober
}

// Open probes path so corrupt sources fail before any frame is requested.
func (d FFmpegDecoder) Open(ctx context.Context, path string) (Stream, error) {
	if d.Prober != nil {
		if _, err := d.Prober.Probe(ctx, path); err != nil {
			return nil, err
		}
	}
	binary := strings.TrimSpace(d.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &ffmpegStream{binary: binary, path: path}, nil
}

type ffmpegStream struct {
	binary string
	path   string
	closed bool
}

func (s *ffmpegStream) ReadFrame(ctx context.Context, frameIndex int) (image.Image, error) {
	if s.closed {
		return nil, errors.New("ffmpeg stream closed")
	}
	cmd := exec.CommandContext(ctx, s.binary, frameArgs(s.path, frameIndex)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg frame %d: %w: %s", frameIndex, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg frame %d: no image data", frameIndex)
	}
	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", frameIndex, err)
	}
	return img, nil
}

func (s *ffmpegStream) Close() error {
	s.closed = true
	return nil
}

// frameArgs selects a single frame by index and writes it to stdout as PNG.
func frameArgs(path string, frameIndex int) []string {
	return []string{
		"-v", "error",
		"-hide_banner",
		"-nostdin",
		"-i", path,
		"-vf", "select=eq(n\\," + strconv.Itoa(frameIndex) + ")",
		"-vsync", "0",
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	}
}
