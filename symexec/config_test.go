package symexec

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	hdl "github.com/speakeasy-api/hdlsym"
)

// TestLoadOptions tests YAML options layered over the defaults
func TestLoadOptions(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    func(*Options)
		wantErr bool
	}{
		{
			name:  "empty",
			input: "",
			want:  func(*Options) {},
		},
		{
			name: "overrides",
			input: `
path_width: 128
chunk_size: 5000
solver_timeout: 250ms
prune_completed: false
log_level: debug
`,
			want: func(o *Options) {
				o.PathWidth = 128
				o.ChunkSize = 5000
				o.SolverTimeout = 250 * time.Millisecond
				o.PruneCompleted = false
				o.LogLevel = "debug"
			},
		},
		{name: "unknown_key", input: "path_widht: 32\n", wantErr: true},
		{name: "bad_width", input: "path_width: 64\n", wantErr: true},
		{name: "zero_cycles", input: "cycles: 0\n", wantErr: true},
		{name: "bad_level", input: "log_level: loud\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadOptions(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadOptions: %v", err)
			}
			want := DefaultOptions()
			tt.want(&want)
			if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Options{}, "Logger", "LogOutput", "ResultSink")); diff != "" {
				t.Errorf("options mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestLoggerFormat tests levels, fields and the no-op logger
func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewPlainLogger(LevelInfo, &buf).With(map[string]any{"inst": "top.u1", "exec": "e1"})
	log.Debugf("hidden")
	log.Infof("visited %d items", 3)
	log.Warnf("unresolved %s", "ghost")

	want := "[INFO] visited 3 items exec=e1 inst=top.u1\n[WARN] unresolved ghost exec=e1 inst=top.u1\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("log output mismatch (-want +got):\n%s", diff)
	}

	buf.Reset()
	NewLogger(LevelOff, &buf).Errorf("dropped")
	if buf.Len() != 0 {
		t.Errorf("off logger wrote %q", buf.String())
	}

	level, err := ParseLogLevel("")
	if err != nil || level != LevelWarn {
		t.Errorf("ParseLogLevel(\"\") = %v, %v", level, err)
	}
}

// TestLogOutputOption tests that a run logs through the configured writer
func TestLogOutputOption(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.LogLevel = "info"
	opts.LogOutput = &buf

	d := sequentialIfs("top", 1)
	if _, err := Execute(context.Background(), "top", []*hdl.Module{d}, opts); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(buf.String(), "starting symbolic execution") {
		t.Errorf("missing start line in %q", buf.String())
	}
}
