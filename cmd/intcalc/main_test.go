package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

func TestRun(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "intcalc.yaml")
	if err := os.WriteFile(configPath, []byte("overflow: saturate\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, tt := range []struct {
		name     string
		args     []string
		expected string
		code     int
	}{
		{name: "precedence", args: []string{"2+3*4"}, expected: "14\n"},
		{name: "spaces", args: []string{"1 + 1"}, expected: "2\n"},
		{name: "leading unary minus", args: []string{"-5+3"}, expected: "-2\n"},
		{name: "stacked unary minus", args: []string{"--5"}, expected: "5\n"},
		{name: "double dash", args: []string{"--", "-7/2"}, expected: "-3\n"},
		{name: "lone expression like help", args: []string{"-h1"}, expected: "-1\n"},
		{name: "lone expression like listen", args: []string{"-l5"}, expected: "-5\n"},
		{name: "lone expression like config", args: []string{"-c1"}, expected: "-1\n"},
		{name: "double dash after options", args: []string{"--overflow", "wrap", "--", "-l5"}, expected: "-5\n"},
		{name: "help", args: []string{"-h"}, expected: ""},
		{name: "division by zero", args: []string{"5/0"}, expected: "error\n", code: 1},
		{name: "malformed", args: []string{"5 5"}, expected: "error\n", code: 1},
		{name: "no arguments", args: nil, expected: "error\n", code: 1},
		{name: "too many arguments", args: []string{"1", "2"}, expected: "error\n", code: 1},
		{name: "overflow", args: []string{"9223372036854775807+1"}, expected: "error\n", code: 1},
		{name: "overflow flag", args: []string{"--overflow", "wrap", "9223372036854775807+1"}, expected: "-9223372036854775808\n"},
		{name: "config file", args: []string{"-c", configPath, "9223372036854775807+1"}, expected: "9223372036854775807\n"},
		{name: "missing config file", args: []string{"-c", configPath + ".missing", "1"}, expected: "error\n", code: 1},
		{name: "invalid overflow flag", args: []string{"--overflow", "clamp", "1"}, expected: "error\n", code: 1},
	} {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var stdout bytes.Buffer
			code := run(tt.args, &stdout)
			if code != tt.code {
				t.Errorf("expect exit code %d but got %d", tt.code, code)
			}
			if diff := cmp.Diff(tt.expected, stdout.String()); diff != "" {
				t.Errorf("unexpected output (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunJSON(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	if code := run([]string{"--json", "10-3-2"}, &stdout); code != 0 {
		t.Fatalf("unexpected exit code: %d", code)
	}

	var got map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"expression": "10-3-2", "result": float64(5)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected output (-want +got):\n%s", diff)
	}

	stdout.Reset()
	if code := run([]string{"--json", "5/0"}, &stdout); code != 1 {
		t.Fatalf("unexpected exit code: %d", code)
	}

	var failed struct {
		Expression string `json:"expression"`
		Error      struct {
			Tags []string `json:"tags"`
		} `json:"error"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &failed); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"ZeroDivisionError"}, failed.Error.Tags); diff != "" {
		t.Errorf("unexpected tags (-want +got):\n%s", diff)
	}
}
