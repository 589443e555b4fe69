package main

import (
	"testing"
	"time"
)

func TestResolveVars(t *testing.T) {
	now := time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)
	env := map[string]string{"TERMINAL": "foot"}
	vars := []VarDef{
		{Name: "term", Type: varEnv, Params: VarParams{Env: "TERMINAL"}},
		{Name: "dir", Type: varString, Params: VarParams{Value: "/tmp/{{term}}"}},
		{Name: "day", Type: varDate, Params: VarParams{Format: "%Y-%m-%d"}},
		{Name: "tomorrow", Type: varDate, Params: VarParams{Format: "%a %d", Offset: 86400}},
		{Name: "file", Type: varDate, Params: VarParams{Format: "{{dir}}/%H%M%S.png"}},
	}
	got := ResolveVars(vars, now, func(k string) string { return env[k] })
	want := map[string]string{
		"term":     "foot",
		"dir":      "/tmp/foot",
		"day":      "2024-03-05",
		"tomorrow": "Wed 06",
		"file":     "/tmp/foot/140709.png",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestCommandExpander(t *testing.T) {
	if commandExpander(nil) != nil {
		t.Error("no vars, no expander")
	}
	t.Setenv("HKD_TEST_TERM", "xterm")
	expand := commandExpander([]VarDef{{Name: "term", Type: varEnv, Params: VarParams{Env: "HKD_TEST_TERM"}}})
	if got := expand("{{term}} -e top"); got != "xterm -e top" {
		t.Errorf("expand = %q", got)
	}
	if got := expand("{{unknown}}"); got != "{{unknown}}" {
		t.Errorf("unknown refs stay literal, got %q", got)
	}
}

func TestCheckVars(t *testing.T) {
	ok := []VarDef{
		{Name: "a", Type: varString},
		{Name: "b", Type: varEnv, Params: VarParams{Env: "HOME"}},
		{Name: "c", Type: varDate, Params: VarParams{Format: "%Y"}},
	}
	if err := checkVars(ok); err != nil {
		t.Fatalf("checkVars() error = %v", err)
	}

	bad := []VarDef{
		{Name: "", Type: varString},
		{Name: "x y", Type: varString},
		{Name: "a", Type: varString},
		{Name: "a", Type: varString},
		{Name: "e", Type: varEnv},
		{Name: "f", Type: "shell"},
	}
	err := checkVars(bad)
	if err == nil {
		t.Fatal("checkVars() succeeded")
	}
	if n := len(err.(interface{ Unwrap() []error }).Unwrap()); n != 5 {
		t.Errorf("got %d errors, want 5: %v", n, err)
	}
}

func TestResolveDate(t *testing.T) {
	tm := time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC)
	tests := map[string]string{
		"plain text":  "plain text",
		"%Y/%m/%d":    "2024/01/02",
		"%y %j":       "24 002",
		"%I:%M %p":    "03:04 AM",
		"%A, %B %e":   "Tuesday, January  2",
		"100%% at %H": "100% at 03",
		"%%Y":         "%Y",
		"%s":          "1704164645",
		"%Z":          "UTC",
	}
	for in, want := range tests {
		if got := resolveDate(in, tm); got != want {
			t.Errorf("resolveDate(%q) = %q, want %q", in, got, want)
		}
	}
}
