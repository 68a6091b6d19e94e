package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/onnwee/telesis/internal/contrast"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("TELESIS_CONFIG", "")
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantFail bool
		wantOut  string
	}{
		{
			name:    "black on white passes",
			args:    []string{"check", "--fg", "rgb(0, 0, 0)", "--bg", "rgb(255, 255, 255)"},
			wantOut: "Ratio: 21.00:1 (required 4.5:1)",
		},
		{
			name:     "muted gray at 14px fails AAA",
			args:     []string{"check", "--fg", "rgb(107, 114, 128)", "--bg", "rgb(255, 255, 255)", "--size", "14", "--level", "AAA"},
			wantFail: true,
			wantOut:  "Result: FAIL",
		},
		{
			name:    "bold 14pt is large text",
			args:    []string{"check", "--fg", "rgb(118, 118, 118)", "--bg", "rgb(255, 255, 255)", "--size", "14", "--unit", "pt", "--weight", "bold"},
			wantOut: "Classification: large",
		},
		{
			name:     "unparseable color fails",
			args:     []string{"check", "--fg", "chartreuse", "--bg", "rgb(255, 255, 255)"},
			wantFail: true,
			wantOut:  "Ratio: unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, tt.args...)
			if tt.wantFail {
				if !errors.Is(err, errAuditFailed) {
					t.Fatalf("expected errAuditFailed, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(out, tt.wantOut) {
				t.Errorf("expected %q in output:\n%s", tt.wantOut, out)
			}
		})
	}
}

func TestCheck_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing bg", []string{"check", "--fg", "rgb(0, 0, 0)"}},
		{"bad level", []string{"check", "--fg", "rgb(0, 0, 0)", "--bg", "rgb(255, 255, 255)", "--level", "AAAA"}},
		{"bad weight", []string{"check", "--fg", "rgb(0, 0, 0)", "--bg", "rgb(255, 255, 255)", "--weight", "heavy"}},
		{"bad format", []string{"check", "--fg", "rgb(0, 0, 0)", "--bg", "rgb(255, 255, 255)", "--format", "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			if err == nil || errors.Is(err, errAuditFailed) {
				t.Fatalf("expected usage error, got %v", err)
			}
		})
	}
}

func TestCheck_JSON(t *testing.T) {
	out, _, err := run(t, "check", "--fg", "rgb(0, 0, 0)", "--bg", "rgb(255, 255, 255)", "--format", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var report contrast.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Total != 1 || report.Passing != 1 {
		t.Errorf("expected 1 passing pair, got %+v", report)
	}
}

func TestReport_ModernSage(t *testing.T) {
	out, _, err := run(t, "report", "--modern-sage")
	if !errors.Is(err, errAuditFailed) {
		t.Fatalf("expected errAuditFailed, got %v", err)
	}
	for _, want := range []string{"Modern Sage Contrast Audit", "Total: 8", "Failing: 1", `"Secondary caption"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestReport_SetFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "buttons.yaml")
	set := `title: Buttons
level: AA
pairs:
  - label: primary
    foreground: rgb(255, 255, 255)
    background: rgb(31, 41, 55)
`
	if err := os.WriteFile(path, []byte(set), 0o600); err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(dir, "report.cbor")

	stdout, _, err := run(t, "report", "--set", path, "--format", "cbor", "--out", outPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stdout != "" {
		t.Errorf("expected nothing on stdout, got %q", stdout)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	report, err := contrast.DecodeCBOR(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Title != "Buttons" || report.Total != 1 || report.Failing != 0 {
		t.Errorf("unexpected report: %+v", report)
	}
}

// failingCloser accepts writes and fails on Close, like a file on a full
// disk whose buffered data is flushed at close.
type failingCloser struct {
	bytes.Buffer
	closeErr error
}

func (f *failingCloser) Close() error { return f.closeErr }

func TestEmit_CloseError(t *testing.T) {
	diskFull := errors.New("no space left on device")
	passing := contrast.NewReport("Close", contrast.AA, nil)

	tests := []struct {
		name     string
		closeErr error
		wantErr  error
	}{
		{"close error returned", diskFull, diskFull},
		{"clean close", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := &failingCloser{closeErr: tt.closeErr}
			c := &cli{
				stdout: io.Discard,
				stderr: io.Discard,
				create: func(string) (io.WriteCloser, error) { return file, nil },
			}

			err := c.emit(passing, "json", "report.json")
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("emit() unexpected error: %v", err)
				}
			} else if !errors.Is(err, tt.wantErr) {
				t.Fatalf("emit() error = %v, want %v", err, tt.wantErr)
			}
			if file.Len() == 0 {
				t.Error("emit() wrote nothing before close")
			}
		})
	}
}

func TestReport_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no source", []string{"report"}},
		{"both sources", []string{"report", "--modern-sage", "--set", "x.yaml"}},
		{"missing file", []string{"report", "--set", "/nonexistent/set.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			if err == nil || errors.Is(err, errAuditFailed) {
				t.Fatalf("expected usage error, got %v", err)
			}
		})
	}
}

func TestScan_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing url", []string{"scan"}},
		{"invalid url", []string{"scan", "--url", "ftp://example.com"}},
		{"missing browser", []string{"scan", "--url", "https://example.com", "--browser-bin", "/nonexistent/chromium"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			if err == nil || errors.Is(err, errAuditFailed) {
				t.Fatalf("expected error, got %v", err)
			}
		})
	}
}

func TestVerboseLogsToStderr(t *testing.T) {
	out, stderr, err := run(t, "--verbose", "report", "--modern-sage", "--level", "AAA")
	if !errors.Is(err, errAuditFailed) {
		t.Fatalf("expected errAuditFailed, got %v", err)
	}
	if strings.Contains(out, "level=DEBUG") {
		t.Error("debug logs must not reach stdout")
	}
	if !strings.Contains(stderr, "evaluating audit set") {
		t.Errorf("expected debug log on stderr, got %q", stderr)
	}
}
