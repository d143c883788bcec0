package media

import (
	"errors"
	"testing"
	"time"
)

func TestLimits_WithDefaults(t *testing.T) {
	got := Limits{}.withDefaults()
	if got != DefaultLimits() {
		t.Errorf("withDefaults() = %+v, want %+v", got, DefaultLimits())
	}

	custom := Limits{Timeout: time.Second, MaxOutputBytes: 10, KillGrace: time.Millisecond}
	if got := custom.withDefaults(); got != custom {
		t.Errorf("withDefaults() changed explicit limits: %+v", got)
	}
}

func TestOutcome_Result(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		want    string
	}{
		{"clean exit", Outcome{ExitedCleanly: true, ExitCode: 0}, "ok"},
		{"non-zero exit", Outcome{ExitedCleanly: true, ExitCode: 1}, "exit_nonzero"},
		{"signaled", Outcome{ExitCode: -1}, "exit_nonzero"},
		{"launch failure", Outcome{ExitCode: -1, LaunchErr: errors.New("boom")}, "launch_failed"},
		{"timeout wins over exit code", Outcome{KilledByTimeout: true, ExitedCleanly: true}, "timeout"},
		{"overflow", Outcome{OutputTruncated: true, ExitCode: -1}, "overflow"},
		{"timeout wins over overflow", Outcome{KilledByTimeout: true, OutputTruncated: true}, "timeout"},
		{"canceled", Outcome{Canceled: true, ExitCode: -1}, "canceled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.outcome.Result(); got != tt.want {
				t.Errorf("Result() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutcome_Launched(t *testing.T) {
	if !(Outcome{}).Launched() {
		t.Error("expected outcome without launch error to be launched")
	}
	if (Outcome{LaunchErr: errors.New("x")}).Launched() {
		t.Error("expected outcome with launch error to not be launched")
	}
}

func TestCommand_String(t *testing.T) {
	c := Command{Path: "ffmpeg", Args: []string{"-i", "my image.png", "out.mp4"}}
	want := `ffmpeg -i "my image.png" out.mp4`
	if got := c.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
