package policy

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("policy:loader_test - write: %v", err)
	}
	return path
}

func TestLoad_File(t *testing.T) {
	path := writePolicy(t, `{"matchHeader": {"User-Agent": ["^curl", "^webf"]}, "cors": "*", "allowHelp": false}`)

	pol, err := Load(path)
	if err != nil {
		t.Fatalf("policy:loader_test - Load() error: %v", err)
	}
	if got := pol.MatchHeader["User-Agent"]; len(got) != 2 || got[0] != "^curl" {
		t.Errorf("policy:loader_test - matchHeader = %v", pol.MatchHeader)
	}
	if pol.CORS == nil || *pol.CORS != "*" {
		t.Errorf("policy:loader_test - cors = %v", pol.CORS)
	}
	if pol.AllowHelp == nil || *pol.AllowHelp {
		t.Errorf("policy:loader_test - allowHelp = %v", pol.AllowHelp)
	}
	if pol.RateLimit != nil {
		t.Errorf("policy:loader_test - rateLimit should be unset")
	}
}

func TestLoad_MissingConfiguredFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("policy:loader_test - err = %v, want not-exist", err)
	}
}

func TestLoad_NoPathNoDefaults(t *testing.T) {
	wd, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("policy:loader_test - chdir: %v", err)
	}
	defer func() { _ = os.Chdir(wd) }()

	pol, err := Load("")
	if err != nil {
		t.Fatalf("policy:loader_test - Load() error: %v", err)
	}
	if len(pol.MatchHeader) != 0 || pol.CORS != nil || pol.AllowHelp != nil {
		t.Errorf("policy:loader_test - expected empty policy, got %+v", pol)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"matchHeader":`},
		{"bad regex", `{"matchHeader": {"User-Agent": ["("]}}`},
		{"no expressions", `{"matchHeader": {"User-Agent": []}}`},
		{"empty header", `{"matchHeader": {"": ["x"]}}`},
		{"negative rate", `{"rateLimit": -1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("policy:loader_test - expected error")
			}
		})
	}
}

func TestApply(t *testing.T) {
	base := Settings{
		CORSOrigin:   "https://a.example",
		AllowHelp:    true,
		RateLimit:    10,
		HeaderPolicy: map[string][]string{"X-Env": {"^prod$"}, "User-Agent": {"^old"}},
	}

	if got := (*Policy)(nil).Apply(base); got.CORSOrigin != base.CORSOrigin || !got.AllowHelp {
		t.Errorf("policy:loader_test - nil policy changed settings: %+v", got)
	}

	pol, err := Parse([]byte(`{"matchHeader": {"User-Agent": ["^curl"]}, "allowHelp": false, "rateLimit": 2.5}`))
	if err != nil {
		t.Fatalf("policy:loader_test - Parse() error: %v", err)
	}
	got := pol.Apply(base)

	if got.CORSOrigin != "https://a.example" {
		t.Errorf("policy:loader_test - CORS overridden without a value: %q", got.CORSOrigin)
	}
	if got.AllowHelp {
		t.Error("policy:loader_test - allowHelp should be false")
	}
	if got.RateLimit != 2.5 {
		t.Errorf("policy:loader_test - rate = %v, want 2.5", got.RateLimit)
	}
	if ua := got.HeaderPolicy["User-Agent"]; len(ua) != 1 || ua[0] != "^curl" {
		t.Errorf("policy:loader_test - User-Agent rules = %v", ua)
	}
	if env := got.HeaderPolicy["X-Env"]; len(env) != 1 {
		t.Errorf("policy:loader_test - X-Env rule lost: %v", got.HeaderPolicy)
	}
	if len(base.HeaderPolicy["User-Agent"]) != 1 || base.HeaderPolicy["User-Agent"][0] != "^old" {
		t.Error("policy:loader_test - Apply mutated the base settings")
	}
}
