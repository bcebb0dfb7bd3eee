package main

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/morezero/webf/internal/demo"
	"github.com/morezero/webf/pkg/dispatcher"
)

const mainTestPrefix = "cmd/webf:main_test"

func TestUsage_ContainsCommands(t *testing.T) {
	required := []string{"serve", "migrate", "ensure-db", "clear", "calls", "apikey", "call", "DATABASE_URL"}
	for _, word := range required {
		if !strings.Contains(usage, word) {
			t.Errorf("%s - usage should contain %q", mainTestPrefix, word)
		}
	}
}

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"help"}, &out); err != nil {
		t.Fatalf("%s - run(help) error: %v", mainTestPrefix, err)
	}
	if out.String() != usage {
		t.Errorf("%s - help output differs from usage", mainTestPrefix)
	}
}

func TestRun_UsageErrors(t *testing.T) {
	tests := [][]string{
		{"bogus"},
		{"migrate"},
		{"migrate", "sideways"},
		{"apikey"},
		{"apikey", "add"},
		{"apikey", "revoke"},
		{"apikey", "rotate"},
		{"clear", "-before", "yesterday"},
		{"clear", "-nope"},
		{"calls", "-limit", "many"},
		{"call"},
		{"call", "-format", "xml", "fn"},
	}
	for _, args := range tests {
		err := run(args, &bytes.Buffer{})
		if !errors.Is(err, errUsage) {
			t.Errorf("%s - run(%q) = %v, want usage error", mainTestPrefix, args, err)
		}
	}
}

func TestRun_DBCommandsRequireDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	for _, args := range [][]string{
		{"migrate", "up"},
		{"migrate", "status"},
		{"ensure-db"},
		{"clear"},
		{"calls"},
		{"apikey", "add", "alice"},
	} {
		err := run(args, &bytes.Buffer{})
		if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
			t.Errorf("%s - run(%q) = %v, want DATABASE_URL error", mainTestPrefix, args, err)
		}
	}
}

func TestParseCutoff(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"", time.Time{}, false},
		{"24h", now.Add(-24 * time.Hour), false},
		{"2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), false},
		{"2024-05-01T08:30:00Z", time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC), false},
		{"-5m", time.Time{}, true},
		{"last week", time.Time{}, true},
	}
	for _, tt := range tests {
		got, err := parseCutoff(tt.in, now)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s - parseCutoff(%q) error = %v, wantErr %v", mainTestPrefix, tt.in, err, tt.wantErr)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("%s - parseCutoff(%q) = %v, want %v", mainTestPrefix, tt.in, got, tt.want)
		}
	}
}

func TestNewAPIKey(t *testing.T) {
	a, b := newAPIKey(), newAPIKey()
	if len(a) != 64 || strings.Contains(a, "-") {
		t.Errorf("%s - key %q is not 64 hex characters", mainTestPrefix, a)
	}
	if a == b {
		t.Errorf("%s - two generated keys are equal", mainTestPrefix)
	}
}

func TestRun_Call(t *testing.T) {
	d, err := dispatcher.New(dispatcher.Options{})
	if err != nil {
		t.Fatalf("%s - dispatcher.New: %v", mainTestPrefix, err)
	}
	if err := demo.Register(d, demo.Options{}); err != nil {
		t.Fatalf("%s - demo.Register: %v", mainTestPrefix, err)
	}
	srv := httptest.NewServer(d)
	defer srv.Close()

	var out bytes.Buffer
	if err := run([]string{"call", "-url", srv.URL, "-format", "json", "echo", `{"a":1}`}, &out); err != nil {
		t.Fatalf("%s - run(call) error: %v", mainTestPrefix, err)
	}
	if got, want := out.String(), `{"method":"GET","args":{"a":1}}`+"\n"; got != want {
		t.Errorf("%s - output = %q, want %q", mainTestPrefix, got, want)
	}

	out.Reset()
	err = run([]string{"call", "-url", srv.URL, "snacks"}, &out)
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("%s - run(call snacks) = %v, want 400 error", mainTestPrefix, err)
	}
	if !strings.Contains(out.String(), `"errcode"`) {
		t.Errorf("%s - error document not printed: %q", mainTestPrefix, out.String())
	}
}
