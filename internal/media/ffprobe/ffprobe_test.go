package ffprobe

import (
	"math"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio"},
			{CodecType: "video", Width: 1920, Height: 1080, AvgFrameRate: "30000/1001", NBFrames: "1798"},
		},
		Format: Format{
			Duration: "60.0",
			Size:     "1000",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	stream, ok := result.PrimaryVideo()
	if !ok || stream.Width != 1920 {
		t.Fatalf("unexpected primary video: %+v %v", stream, ok)
	}
	if fps := stream.FrameRate(); math.Abs(fps-29.97) > 0.01 {
		t.Fatalf("unexpected fps: %v", fps)
	}
	if result.FrameCount() != 1798 {
		t.Fatalf("unexpected frame count: %d", result.FrameCount())
	}
	if result.DurationSeconds() != 60 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
}

func TestFrameCountEstimatedFromDuration(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "video", AvgFrameRate: "0/0", RFrameRate: "25/1", Duration: "10.0"}},
	}
	if fps := result.Streams[0].FrameRate(); fps != 25 {
		t.Fatalf("expected r_frame_rate fallback, got %v", fps)
	}
	if result.DurationSeconds() != 10 {
		t.Fatalf("expected stream duration fallback, got %v", result.DurationSeconds())
	}
	if result.FrameCount() != 250 {
		t.Fatalf("expected 250 estimated frames, got %d", result.FrameCount())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "video", AvgFrameRate: "abc", NBFrames: "n/a"}},
		Format:  Format{Duration: "bad", Size: "-1"},
	}
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected duration 0, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.FrameCount() != 0 {
		t.Fatalf("expected frame count 0, got %d", result.FrameCount())
	}
}

func TestParse(t *testing.T) {
	payload := []byte(`{"streams":[{"index":0,"codec_type":"video","width":640,"height":360,"avg_frame_rate":"30/1","nb_frames":"90"}],"format":{"duration":"3.0","size":"2048"}}`)
	result, err := Parse(payload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.FrameCount() != 90 {
		t.Fatalf("unexpected frame count: %d", result.FrameCount())
	}
	if string(result.RawJSON()) != string(payload) {
		t.Fatal("expected raw JSON to be retained")
	}
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}
