package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const maxLineBytes = 1024 * 1024

// TailOptions selects lines from a log file.
type TailOptions struct {
	// Limit keeps the last N matching lines; zero or less keeps none and only
	// positions the offset at end of file.
	Limit int
	// Match keeps only lines containing this substring, typically a run id.
	Match string
}

// TailResult holds the selected lines and the byte offset to follow from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail returns the last matching lines of path. A missing file yields an
// empty result.
func Tail(path string, opts TailOptions) (TailResult, error) {
	file, err := open(path)
	if err != nil || file == nil {
		return TailResult{}, err
	}
	defer file.Close()

	var ring []string
	if opts.Limit > 0 {
		ring = make([]string, 0, opts.Limit)
	}
	offset, err := scan(file, opts.Match, func(line string) {
		if opts.Limit <= 0 {
			return
		}
		if len(ring) == opts.Limit {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, line)
	})
	if err != nil {
		return TailResult{}, err
	}
	return TailResult{Lines: ring, Offset: offset}, nil
}

// Follow polls path from offset and calls emit for each new matching line
// until ctx is done. A file that shrinks is read again from the start.
func Follow(ctx context.Context, path string, offset int64, match string, interval time.Duration, emit func(string)) error {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, match, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, match string, emit func(string)) (int64, error) {
	file, err := open(path)
	if err != nil || file == nil {
		return 0, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}
	consumed, err := scan(file, match, emit)
	if err != nil {
		return offset, err
	}
	return offset + consumed, nil
}

func open(path string) (*os.File, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("log path %q is a directory", path)
	}
	return file, nil
}

// scan feeds complete lines to fn and returns the bytes consumed. A trailing
// partial line is left for the next read.
func scan(r io.Reader, match string, fn func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			return consumed, nil
		}
		if err != nil {
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		line = strings.TrimRight(line, "\r\n")
		if len(line) > maxLineBytes {
			line = line[:maxLineBytes]
		}
		if match == "" || strings.Contains(line, match) {
			fn(line)
		}
	}
}
