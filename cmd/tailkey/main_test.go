package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonny/logtail/internal/domain/model"
)

func TestRun(t *testing.T) {
	clock := model.FixedClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"encode", []string{"encode", "2024-01-01T00:00:00Z"}, "2516982335999999999\n"},
		{"decode", []string{"decode", "2516851007999999999"}, "2024-06-01T00:00:00Z\n"},
		{"now", []string{"now"}, "2516851007999999999\n"},
		{"verbose encode", []string{"-v", "encode", "2024-01-01T00:00:00Z"},
			"2516982335999999999\t2024-01-01T00:00:00Z\t638396640000000000\n"},
		{"verbose decode", []string{"-v", "decode", "2516982335999999999"},
			"2516982335999999999\t2024-01-01T00:00:00Z\t638396640000000000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(tt.args, &out, clock); err != nil {
				t.Fatalf("run(%v): %v", tt.args, err)
			}
			if out.String() != tt.want {
				t.Errorf("run(%v) = %q, want %q", tt.args, out.String(), tt.want)
			}
		})
	}
}

func TestRun_Errors(t *testing.T) {
	clock := model.FixedClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name   string
		args   []string
		target error
	}{
		{"no command", nil, errUsage},
		{"unknown command", []string{"shuffle"}, errUsage},
		{"encode without arg", []string{"encode"}, errUsage},
		{"non-utc instant", []string{"encode", "2024-01-01T02:00:00+02:00"}, model.ErrInvalidInput},
		{"short key", []string{"decode", "123"}, model.ErrInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(tt.args, &bytes.Buffer{}, clock)
			if !errors.Is(err, tt.target) {
				t.Errorf("run(%v) error = %v, want %v", tt.args, err, tt.target)
			}
		})
	}
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"version"}, &out, model.SystemClock{}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "dev") {
		t.Errorf("version output = %q", out.String())
	}
}
