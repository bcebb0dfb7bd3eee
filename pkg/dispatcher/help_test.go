package dispatcher

import (
	"net/http"
	"strings"
	"testing"

	"github.com/morezero/webf/pkg/handler"
	"github.com/morezero/webf/pkg/registry"
)

func TestResolveHelpAlias(t *testing.T) {
	tests := []struct {
		name  string
		allow bool
		want  string
	}{
		{"help", true, registry.HelpFunction},
		{"help", false, "help"},
		{registry.HelpFunction, true, registry.HelpFunction},
		{registry.HelpFunction, false, "help"},
		{"other", true, "other"},
		{"help/x", true, registry.HelpFunction + "/x"},
		{registry.HelpFunction + "/x", false, "help/x"},
		{"helpful", true, "helpful"},
	}
	for _, tt := range tests {
		if got := strings.Join(resolveHelpAlias(strings.Split(tt.name, "/"), tt.allow), "/"); got != tt.want {
			t.Errorf("dispatcher:help_test - resolveHelpAlias(%q, %v) = %q, want %q", tt.name, tt.allow, got, tt.want)
		}
	}
}

func versioned(version string) handler.Constructor {
	return func(interface{}) handler.Handler {
		return &argsHandler{help: &handler.Help{
			Type:    "query",
			Desc:    "v" + version,
			Version: version,
			Args:    []handler.ArgSpec{{Name: "q", Type: "string", Required: true, Desc: "query"}},
		}}
	}
}

func TestHelp_ListsFunctions(t *testing.T) {
	d := newTestDispatcher(t, Options{})
	_ = d.Register("zeta", versioned("2.0.0"), nil)
	_ = d.Register("alpha", versioned("1.4.0"), nil)

	rec := serve(d, http.MethodGet, "/help", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dispatcher:help_test - status = %d, want 200", rec.Code)
	}
	want := "[" +
		`{"type":"query","desc":"v1.4.0","version":"1.4.0","args":[{"name":"q","type":"string","req":"Y","desc":"query"}],"funcname":"alpha"},` +
		`{"type":"query","desc":"v2.0.0","version":"2.0.0","args":[{"name":"q","type":"string","req":"Y","desc":"query"}],"funcname":"zeta"}` +
		"]\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("dispatcher:help_test - body = %s\nwant %s", got, want)
	}
}

func TestHelp_VersionFilter(t *testing.T) {
	d := newTestDispatcher(t, Options{})
	_ = d.Register("old", versioned("1.4.0"), nil)
	_ = d.Register("new", versioned("2.1.0"), nil)
	_ = d.Register("unversioned", newArgs, nil)

	rec := serve(d, http.MethodGet, "/help?"+argsQuery(`{"ver":"^2.0.0"}`), map[string]string{"Accept": "application/json; boundary=LF"})
	want := `{"type":"query","desc":"v2.1.0","version":"2.1.0","args":[{"name":"q","type":"string","req":"Y","desc":"query"}],"funcname":"new"}` + "\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("dispatcher:help_test - body = %q, want %q", got, want)
	}

	rec = serve(d, http.MethodGet, "/help?"+argsQuery(`{"ver":"not a range"}`), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("dispatcher:help_test - status = %d, want 400", rec.Code)
	}
	want = "[{\"errcode\":2,\"msg\":\"invalid version range\",\"data\":{\"arg\":\"ver\",\"value\":\"not a range\"}}]\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("dispatcher:help_test - body = %q, want %q", got, want)
	}
}

func TestHelp_Disabled(t *testing.T) {
	d := newTestDispatcher(t, Options{DisableHelp: true})
	_ = d.Register("alpha", versioned("1.0.0"), nil)

	for _, path := range []string{"/help", "/" + registry.HelpFunction} {
		rec := serve(d, http.MethodGet, path, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("dispatcher:help_test - %s status = %d, want 404", path, rec.Code)
		}
		want := "[{\"errcode\":5,\"msg\":\"no such function\",\"data\":\"help\"}]\n"
		if got := rec.Body.String(); got != want {
			t.Errorf("dispatcher:help_test - %s body = %q", path, got)
		}
	}
}

func TestHelp_ReservedNameCannotBeRegistered(t *testing.T) {
	d := newTestDispatcher(t, Options{})
	if err := d.Register(registry.HelpFunction, newArgs, nil); err == nil {
		t.Error("dispatcher:help_test - expected error registering the reserved name")
	}
}

func TestHelp_ExcludesItself(t *testing.T) {
	d := newTestDispatcher(t, Options{})

	rec := serve(d, http.MethodGet, "/help", nil)
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("dispatcher:help_test - body = %q, want empty list", got)
	}
}

func TestHelp_IgnoresUnknownArgs(t *testing.T) {
	d := newTestDispatcher(t, Options{})

	rec := serve(d, http.MethodGet, "/help?"+argsQuery(`{"x":1}`), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("dispatcher:help_test - status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("dispatcher:help_test - body = %q, want empty list", got)
	}
}
