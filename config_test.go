package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/andresousadotpt/hkd/internal/binding"
	"github.com/andresousadotpt/hkd/internal/keys"
)

const sampleConfig = `
config_version: 1
shell: "bash --norc"
timeout: 250
autorepeat_delay: 200
autorepeat_interval: 30
backend: uinput
lock_policy: strict
bindings:
  super + Return: alacritty
  super + {1-3}: ws
  super + Return: kitty
remaps:
  Caps_Lock: Escape
tap_hold:
  Control_L: Escape
vars:
  - name: term
    type: string
    params:
      value: kitty
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Shell != "bash --norc" || cfg.Timeout != 250*time.Millisecond {
		t.Errorf("shell/timeout = %q/%v", cfg.Shell, cfg.Timeout)
	}
	if cfg.AutorepeatDelay != 200*time.Millisecond || cfg.AutorepeatInterval != 30*time.Millisecond {
		t.Errorf("autorepeat = %v/%v", cfg.AutorepeatDelay, cfg.AutorepeatInterval)
	}
	if cfg.Backend != backendUinput || cfg.LockPolicy != binding.LockStrict {
		t.Errorf("backend/policy = %q/%v", cfg.Backend, cfg.LockPolicy)
	}
	if !cfg.LogToFile {
		t.Error("log_to_file defaults to true")
	}

	if len(cfg.Bindings) != 3 {
		t.Fatalf("got %d binding lines, want 3", len(cfg.Bindings))
	}
	// Document order and positions are kept.
	want := []binding.Line{
		{Keys: "super + Return", Action: "alacritty", Line: 10, Column: 3},
		{Keys: "super + {1-3}", Action: "ws", Line: 11, Column: 3},
		{Keys: "super + Return", Action: "kitty", Line: 12, Column: 3},
	}
	for i, w := range want {
		if cfg.Bindings[i] != w {
			t.Errorf("binding %d = %+v, want %+v", i, cfg.Bindings[i], w)
		}
	}
	if len(cfg.Remaps) != 1 || cfg.Remaps[0].From != "Caps_Lock" || cfg.Remaps[0].Line != 14 {
		t.Errorf("remaps = %+v", cfg.Remaps)
	}
	if len(cfg.TapHold) != 1 || cfg.TapHold[0].Key != "Control_L" {
		t.Errorf("tap_hold = %+v", cfg.TapHold)
	}
}

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("SHELL", "")
	t.Setenv("DISPLAY", "")
	cfg, err := ParseConfig([]byte("bindings:\n  super + a: x\n"))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Timeout != defaultTimeout || cfg.Shell != "/bin/sh" || cfg.QueueSize != 64 {
		t.Errorf("defaults = %v %q %d", cfg.Timeout, cfg.Shell, cfg.QueueSize)
	}
	if cfg.Backend != backendUinput || cfg.LockPolicy != binding.LockIgnore {
		t.Errorf("backend/policy = %q/%v", cfg.Backend, cfg.LockPolicy)
	}
	if cfg.PidFile == "" || cfg.LogDir == "" {
		t.Error("pid file and log dir need defaults")
	}
	if cfg.Remaps != nil || cfg.TapHold != nil {
		t.Error("absent sections must be empty")
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := map[string]string{
		"backend":        "backend: wayland\n",
		"lock policy":    "lock_policy: sometimes\n",
		"negative":       "timeout: -5\n",
		"bindings list":  "bindings:\n  - super + a\n",
		"nested binding": "bindings:\n  super + a:\n    cmd: x\n",
		"bad yaml":       "bindings: [\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(doc)); err == nil {
				t.Errorf("ParseConfig(%q) succeeded", doc)
			}
		})
	}
}

func TestCompileTables(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	tables, err := cfg.Compile()
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	ret, _ := keys.Resolve("Return")
	b, ok := tables.Bindings.Lookup(keys.Super, ret, keys.Press)
	if !ok || b.Action != "kitty" {
		t.Errorf("super + Return = %+v, %v, want kitty", b, ok)
	}
	if tables.Bindings.Len() != 4 {
		t.Errorf("Len() = %d, want 4", tables.Bindings.Len())
	}
	ctrl, _ := keys.Resolve("Control_L")
	esc, _ := keys.Resolve("Escape")
	if tables.TapHold[ctrl] != esc {
		t.Errorf("tap_hold = %v", tables.TapHold)
	}
}

func TestCompileReportsEverySection(t *testing.T) {
	doc := `
bindings:
  supr + a: x
remaps:
  Nope: Escape
tap_hold:
  Control_L: AlsoNope
  a: Escape
vars:
  - name: v
    type: weird
`
	cfg, err := ParseConfig([]byte(doc))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	_, err = cfg.Compile()
	if err == nil {
		t.Fatal("Compile() succeeded")
	}
	var ce *binding.CompileError
	if !errors.As(err, &ce) || ce.Errs[0].Line != 3 {
		t.Errorf("binding error not located: %v", err)
	}
	if !errors.Is(err, keys.ErrUnknownModifier) || !errors.Is(err, keys.ErrUnknownKeysym) {
		t.Errorf("missing error kinds: %v", err)
	}
	if !strings.Contains(err.Error(), "tap_hold: line 8: a is not a modifier key") {
		t.Errorf("tap_hold key not checked: %v", err)
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok || len(joined.Unwrap()) != 5 {
		t.Errorf("want every problem reported, got %v", err)
	}
}

func TestLoadConfigAndInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hkd", configFileName)
	if _, err := LoadConfig(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("LoadConfig() error = %v, want not exist", err)
	}
	if err := initConfig(path); err != nil {
		t.Fatalf("initConfig() error = %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Path != path || cfg.Version != latestConfigVersion {
		t.Errorf("path/version = %q/%d", cfg.Path, cfg.Version)
	}
	if _, err := cfg.Compile(); err != nil {
		t.Fatalf("default config does not compile: %v", err)
	}

	// A second init keeps the user's file.
	if err := os.WriteFile(path, []byte("grab: true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := initConfig(path); err != nil {
		t.Fatalf("initConfig() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "grab: true\n" {
		t.Errorf("init overwrote the config: %q", data)
	}
}
