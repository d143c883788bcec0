package job

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/maauso/img2video-api/internal/media"
)

func TestClassify(t *testing.T) {
	launchErr := errors.New("exec: \"ffmpeg\": executable file not found in $PATH")

	tests := []struct {
		name       string
		outcome    media.Outcome
		ready      bool
		wantKind   Kind
		wantError  ErrorKind
		wantMsg    string
		wantDetail string
	}{
		{
			name:      "timeout wins over everything",
			outcome:   media.Outcome{KilledByTimeout: true, OutputTruncated: true, Canceled: true, ExitCode: -1},
			wantKind:  KindFailure,
			wantError: ErrorTimeout,
			wantMsg:   MsgTooHeavy,
		},
		{
			name:      "overflow before process error",
			outcome:   media.Outcome{OutputTruncated: true, ExitCode: -1},
			wantKind:  KindFailure,
			wantError: ErrorOutputOverflow,
			wantMsg:   MsgTooHeavy,
		},
		{
			name:      "canceled",
			outcome:   media.Outcome{Canceled: true, ExitCode: -1},
			wantKind:  KindFailure,
			wantError: ErrorCanceled,
			wantMsg:   MsgCanceled,
		},
		{
			name:       "launch failure",
			outcome:    media.Outcome{LaunchErr: launchErr, ExitCode: -1},
			wantKind:   KindFailure,
			wantError:  ErrorProcess,
			wantMsg:    MsgProcessFailed,
			wantDetail: launchErr.Error(),
		},
		{
			name:       "non-zero exit",
			outcome:    media.Outcome{ExitedCleanly: true, ExitCode: 1, Stderr: "Invalid data found"},
			wantKind:   KindFailure,
			wantError:  ErrorProcess,
			wantMsg:    MsgProcessFailed,
			wantDetail: "Invalid data found",
		},
		{
			name:       "killed by signal",
			outcome:    media.Outcome{ExitCode: -1, Stderr: "killed"},
			wantKind:   KindFailure,
			wantError:  ErrorProcess,
			wantMsg:    MsgProcessFailed,
			wantDetail: "killed",
		},
		{
			name:       "clean exit without output",
			outcome:    media.Outcome{ExitedCleanly: true, ExitCode: 0},
			ready:      false,
			wantKind:   KindFailure,
			wantError:  ErrorProcess,
			wantMsg:    MsgProcessFailed,
			wantDetail: MsgNoOutput,
		},
		{
			name:     "success",
			outcome:  media.Outcome{ExitedCleanly: true, ExitCode: 0},
			ready:    true,
			wantKind: KindSuccess,
			wantMsg:  MsgSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.outcome, "videos/video-1.mp4", tt.ready)

			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", got.Kind, tt.wantKind)
			}
			if got.ErrorKind != tt.wantError {
				t.Errorf("ErrorKind = %s, want %s", got.ErrorKind, tt.wantError)
			}
			if got.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMsg)
			}
			if got.Detail != tt.wantDetail {
				t.Errorf("Detail = %q, want %q", got.Detail, tt.wantDetail)
			}
			if got.OK() {
				if got.VideoPath != "videos/video-1.mp4" || got.FileName != "video-1.mp4" {
					t.Errorf("success paths = %q, %q", got.VideoPath, got.FileName)
				}
			} else if got.VideoPath != "" {
				t.Errorf("failure should carry no video path, got %q", got.VideoPath)
			}
		})
	}
}

func TestClassify_BoundsDetail(t *testing.T) {
	out := media.Outcome{ExitedCleanly: true, ExitCode: 1, Stderr: strings.Repeat("x", 10*MaxDetailBytes)}

	got := classify(out, "v.mp4", false)
	if len(got.Detail) != MaxDetailBytes {
		t.Errorf("Detail length = %d, want %d", len(got.Detail), MaxDetailBytes)
	}
}

func TestTruncateDetail_KeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("a", MaxDetailBytes-1) + "ş" + "tail"

	got := truncateDetail(s)
	if !utf8.ValidString(got) {
		t.Error("truncated detail is not valid UTF-8")
	}
	if len(got) > MaxDetailBytes {
		t.Errorf("length %d exceeds %d", len(got), MaxDetailBytes)
	}
	if truncateDetail("short") != "short" {
		t.Error("short detail should be unchanged")
	}
}

func TestResult_Status(t *testing.T) {
	tests := []struct {
		res  Result
		want Status
	}{
		{Result{Kind: KindSuccess}, StatusSucceeded},
		{Result{Kind: KindFailure, ErrorKind: ErrorTimeout}, StatusTimedOut},
		{Result{Kind: KindFailure, ErrorKind: ErrorOutputOverflow}, StatusOutputTooLarge},
		{Result{Kind: KindFailure, ErrorKind: ErrorCanceled}, StatusCanceled},
		{Result{Kind: KindFailure, ErrorKind: ErrorProcess}, StatusProcessFailed},
		{Result{Kind: KindFailure, ErrorKind: ErrorInvalidIntake}, StatusCleaned},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			if got := tt.res.Status(); got != tt.want {
				t.Errorf("Status() = %s, want %s", got, tt.want)
			}
		})
	}
}
