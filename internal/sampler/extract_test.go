package sampler_test

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"strings"
	"testing"

	"tacreview/internal/logging"
	"tacreview/internal/sampler"
	"tacreview/internal/services"
	"tacreview/internal/testsupport"
)

type fakeDecoder struct {
	openErr error
	stream  *fakeStream
}

func (d *fakeDecoder) Open(context.Context, string) (sampler.Stream, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.stream, nil
}

type fakeStream struct {
	width, height int
	failFrames    map[int]bool
	reads         []int
	closed        int
}

func (s *fakeStream) ReadFrame(_ context.Context, frameIndex int) (image.Image, error) {
	s.reads = append(s.reads, frameIndex)
	if s.failFrames[frameIndex] {
		return nil, errors.New("corrupt packet")
	}
	return image.NewRGBA(image.Rect(0, 0, s.width, s.height)), nil
}

func (s *fakeStream) Close() error {
	s.closed++
	return nil
}

func writeVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drill.mp4")
	testsupport.WriteFile(t, path, 1024)
	return path
}

func testPlan(t *testing.T) sampler.SamplePlan {
	t.Helper()
	plan, err := sampler.Plan(sampler.NewVideoMetadata("drill.mp4", 30, 900, 1920, 1080), []float64{0.25, 0.5, 0.75}, 3)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	return plan
}

func TestExtractResizesAndClosesStream(t *testing.T) {
	stream := &fakeStream{width: 1920, height: 1080}
	extractor := sampler.NewExtractor(&fakeDecoder{stream: stream}, 720, logging.NewNop())

	frames, err := extractor.Extract(context.Background(), writeVideo(t), testPlan(t))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for i, frame := range frames {
		if frame.Index != i {
			t.Fatalf("frame %d: unexpected index %d", i, frame.Index)
		}
		if frame.Width != 720 || frame.Height != 405 {
			t.Fatalf("frame %d: unexpected size %dx%d", i, frame.Width, frame.Height)
		}
	}
	if frames[1].TimestampSeconds != 15 {
		t.Fatalf("unexpected timestamp: %v", frames[1].TimestampSeconds)
	}
	if stream.closed != 1 {
		t.Fatalf("expected stream closed once, got %d", stream.closed)
	}
}

func TestExtractSkipsUnreadablePositions(t *testing.T) {
	stream := &fakeStream{width: 320, height: 240, failFrames: map[int]bool{450: true}}
	extractor := sampler.NewExtractor(&fakeDecoder{stream: stream}, 720, nil)

	frames, err := extractor.Extract(context.Background(), writeVideo(t), testPlan(t))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[0].Index != 0 || frames[1].Index != 2 {
		t.Fatalf("expected plan order to be kept with a gap, got %d and %d", frames[0].Index, frames[1].Index)
	}
	if len(stream.reads) != 3 {
		t.Fatalf("expected all positions attempted, got %v", stream.reads)
	}
}

func TestExtractNoFramesIsFatal(t *testing.T) {
	stream := &fakeStream{width: 320, height: 240, failFrames: map[int]bool{225: true, 450: true, 675: true}}
	extractor := sampler.NewExtractor(&fakeDecoder{stream: stream}, 720, nil)

	_, err := extractor.Extract(context.Background(), writeVideo(t), testPlan(t))
	if !errors.Is(err, services.ErrNoFramesExtracted) {
		t.Fatalf("expected ErrNoFramesExtracted, got %v", err)
	}
	if stream.closed != 1 {
		t.Fatalf("expected stream closed on error path, got %d", stream.closed)
	}
}

func TestExtractMissingFile(t *testing.T) {
	extractor := sampler.NewExtractor(&fakeDecoder{stream: &fakeStream{}}, 720, nil)
	_, err := extractor.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), testPlan(t))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing.mp4") {
		t.Fatalf("expected path in error, got %v", err)
	}
}

func TestExtractDecoderOpenFailure(t *testing.T) {
	extractor := sampler.NewExtractor(&fakeDecoder{openErr: errors.New("moov atom not found")}, 720, nil)
	_, err := extractor.Extract(context.Background(), writeVideo(t), testPlan(t))
	if !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestExtractHonoursCancellation(t *testing.T) {
	stream := &fakeStream{width: 10, height: 10}
	extractor := sampler.NewExtractor(&fakeDecoder{stream: stream}, 720, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := extractor.Extract(ctx, writeVideo(t), testPlan(t))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if stream.closed != 1 {
		t.Fatalf("expected stream closed after cancellation, got %d", stream.closed)
	}
}
