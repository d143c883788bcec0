package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping test")
	}
}

// createTestImage creates a simple test image using ffmpeg.
func createTestImage(t *testing.T, path string, width, height int) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=red:s=%dx%d:d=1", width, height),
		"-frames:v", "1",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test image: %v\noutput: %s", err, output)
	}
}

// mockRunner implements Runner for testing.
type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, cmd Command, limits Limits) Outcome {
	args := m.Called(ctx, cmd, limits)
	return args.Get(0).(Outcome)
}

func TestNewFFmpegInvoker(t *testing.T) {
	t.Run("default path", func(t *testing.T) {
		p := NewFFmpegInvoker("")
		if p.ffmpegPath != "ffmpeg" {
			t.Errorf("expected default path 'ffmpeg', got %q", p.ffmpegPath)
		}
		if p.fps != 25 {
			t.Errorf("expected default fps 25, got %d", p.fps)
		}
		if p.preset != "veryfast" {
			t.Errorf("expected default preset veryfast, got %q", p.preset)
		}
		if _, ok := p.runner.(*ProcessRunner); !ok {
			t.Errorf("expected ProcessRunner by default, got %T", p.runner)
		}
	})

	t.Run("custom options", func(t *testing.T) {
		r := &mockRunner{}
		p := NewFFmpegInvoker("/usr/local/bin/ffmpeg", WithFPS(30), WithPreset("slow"), WithRunner(r))
		if p.ffmpegPath != "/usr/local/bin/ffmpeg" {
			t.Errorf("expected custom path, got %q", p.ffmpegPath)
		}
		if p.fps != 30 || p.preset != "slow" {
			t.Errorf("options not applied: fps=%d preset=%q", p.fps, p.preset)
		}
		if p.runner != r {
			t.Error("expected custom runner")
		}
	})

	t.Run("zero values keep defaults", func(t *testing.T) {
		p := NewFFmpegInvoker("", WithFPS(0), WithPreset(""), WithRunner(nil))
		if p.fps != 25 || p.preset != "veryfast" || p.runner == nil {
			t.Errorf("zero-value options should be ignored: %+v", p)
		}
	})
}

func TestFFmpegInvoker_Command(t *testing.T) {
	p := NewFFmpegInvoker("ffmpeg")

	cmd, err := p.Command(Request{
		SourcePath:      "/scratch/a.png",
		OutputPath:      "/out/video-1.mp4",
		DurationSeconds: 5,
	})
	require.NoError(t, err)

	want := []string{
		"-hide_banner", "-nostats", "-loglevel", "error", "-y",
		"-loop", "1", "-framerate", "25",
		"-i", "/scratch/a.png",
		"-t", "5",
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2,format=yuv420p",
		"-c:v", "libx264", "-preset", "veryfast", "-tune", "stillimage",
		"-pix_fmt", "yuv420p", "-r", "25", "-an", "-movflags", "+faststart",
		"/out/video-1.mp4",
	}
	if diff := cmp.Diff(want, cmd.Args); diff != "" {
		t.Errorf("Command() args mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "ffmpeg", cmd.Path)
}

func TestFFmpegInvoker_Command_NoShellInterpretation(t *testing.T) {
	p := NewFFmpegInvoker("")
	src := "/scratch/a; rm -rf $HOME.png"

	cmd, err := p.Command(Request{SourcePath: src, OutputPath: "/out/v.mp4", DurationSeconds: 1})
	require.NoError(t, err)
	assert.Contains(t, cmd.Args, src, "source path must be passed as a single argument")
}

func TestFFmpegInvoker_Command_Invalid(t *testing.T) {
	p := NewFFmpegInvoker("")

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"missing source", Request{OutputPath: "o.mp4", DurationSeconds: 1}, ErrMissingPath},
		{"missing output", Request{SourcePath: "a.png", DurationSeconds: 1}, ErrMissingPath},
		{"zero duration", Request{SourcePath: "a.png", OutputPath: "o.mp4"}, ErrInvalidDuration},
		{"negative duration", Request{SourcePath: "a.png", OutputPath: "o.mp4", DurationSeconds: -3}, ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Command(tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Command() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFFmpegInvoker_Run_UsesRunner(t *testing.T) {
	r := &mockRunner{}
	p := NewFFmpegInvoker("ffmpeg", WithRunner(r))
	req := Request{SourcePath: "a.png", OutputPath: "o.mp4", DurationSeconds: 3}
	limits := Limits{Timeout: time.Second, MaxOutputBytes: 64, KillGrace: time.Millisecond}

	expected := Outcome{ExitedCleanly: true, ExitCode: 0}
	r.On("Run", mock.Anything, mock.MatchedBy(func(c Command) bool {
		return c.Path == "ffmpeg" && c.Args[len(c.Args)-1] == "o.mp4"
	}), limits).Return(expected)

	got := p.Run(context.Background(), req, limits)

	assert.Equal(t, expected, got)
	r.AssertExpectations(t)
}

func TestFFmpegInvoker_Run_InvalidRequestSkipsRunner(t *testing.T) {
	r := &mockRunner{}
	p := NewFFmpegInvoker("ffmpeg", WithRunner(r))

	got := p.Run(context.Background(), Request{SourcePath: "a.png", OutputPath: "o.mp4"}, DefaultLimits())

	require.Error(t, got.LaunchErr)
	assert.ErrorIs(t, got.LaunchErr, ErrLaunch)
	assert.ErrorIs(t, got.LaunchErr, ErrInvalidDuration)
	assert.Equal(t, -1, got.ExitCode)
	r.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessError(t *testing.T) {
	inner := errors.New("exec: not found")
	err := &ProcessError{Path: "ffmpeg", Args: []string{"-y"}, Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "ffmpeg")
	assert.Contains(t, err.Error(), "not found")
}

func TestFFmpegInvoker_Run_RealEncoder(t *testing.T) {
	skipIfNoFFmpeg(t)
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH, skipping test")
	}

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "odd.png")
	dst := filepath.Join(tmpDir, "video.mp4")

	// Odd dimensions exercise the even-padding filter.
	createTestImage(t, src, 101, 75)

	p := NewFFmpegInvoker("", WithPreset("ultrafast"))
	out := p.Run(context.Background(), Request{SourcePath: src, OutputPath: dst, DurationSeconds: 2}, DefaultLimits())

	require.NoError(t, out.LaunchErr)
	require.Equal(t, "ok", out.Result(), "stderr: %s", out.Stderr)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	ffprobe := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height:format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		dst,
	)
	var stdout bytes.Buffer
	ffprobe.Stdout = &stdout
	require.NoError(t, ffprobe.Run())

	fields := strings.Fields(stdout.String())
	require.Len(t, fields, 3, "unexpected ffprobe output: %q", stdout.String())
	assert.Equal(t, "102", fields[0])
	assert.Equal(t, "76", fields[1])

	duration, err := strconv.ParseFloat(fields[2], 64)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, duration, 0.2)
}
