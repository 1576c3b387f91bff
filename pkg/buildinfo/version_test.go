package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	stamped := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Version: "v0.3.1"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "abc123"},
				{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			},
		}, true
	}
	devel := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true
	}
	missing := func() (*debug.BuildInfo, bool) { return nil, false }

	tests := []struct {
		name                  string
		version, commit, date string
		read                  func() (*debug.BuildInfo, bool)
		want                  Info
	}{
		{
			name: "toolchain fallback", version: "dev", commit: "none", date: "unknown", read: stamped,
			want: Info{Version: "v0.3.1", Commit: "abc123", Date: "2026-01-02T03:04:05Z"},
		},
		{
			name: "ldflags win", version: "v1.0.0", commit: "f00", date: "today", read: stamped,
			want: Info{Version: "v1.0.0", Commit: "f00", Date: "today"},
		},
		{
			name: "devel build", version: "dev", commit: "none", date: "unknown", read: devel,
			want: Info{Version: "dev", Commit: "none", Date: "unknown"},
		},
		{
			name: "no build info", version: "dev", commit: "none", date: "unknown", read: missing,
			want: Info{Version: "dev", Commit: "none", Date: "unknown"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolve(tt.version, tt.commit, tt.date, tt.read)
			if got.GoVersion == "" {
				t.Error("GoVersion is empty")
			}
			got.GoVersion = ""
			if got != tt.want {
				t.Errorf("resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTemplate(t *testing.T) {
	tmpl := Template()
	if !strings.HasPrefix(tmpl, "{{.Name}} version ") {
		t.Errorf("Template() = %q", tmpl)
	}
	if !strings.Contains(String(), "go: go") {
		t.Errorf("String() = %q, want a go version line", String())
	}
}
