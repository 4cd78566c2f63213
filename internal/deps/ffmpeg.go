package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 5 * time.Second

// MediaRequirements lists the binaries used to probe and decode videos.
func MediaRequirements(ffmpeg, ffprobe string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpeg,
			Description: "Required for frame extraction",
		},
		{
			Name:        "FFprobe",
			Command:     ffprobe,
			Description: "Required for video metadata",
		},
	}
}

// Version runs "<command> -version" and returns the first line of output,
// e.g. "ffmpeg version 7.1 Copyright ...". Failures yield an empty string.
func Version(ctx context.Context, command string) string {
	command = strings.TrimSpace(command)
	if command == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	output, err := exec.CommandContext(ctx, command, "-version").Output()
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	if head, _, found := strings.Cut(line, " Copyright"); found {
		line = head
	}
	return strings.TrimSpace(line)
}
