package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/andresousadotpt/hkd/internal/binding"
	"github.com/andresousadotpt/hkd/internal/engine"
	"github.com/andresousadotpt/hkd/internal/keys"
	"github.com/andresousadotpt/hkd/internal/remap"
)

const configFileName = "hkd.yml"

const (
	defaultTimeout = 300 * time.Millisecond
	backendX11     = "x11"
	backendUinput  = "uinput"
)

// configFile is the raw YAML document. The three key tables are kept as
// nodes so their order and positions survive decoding.
type configFile struct {
	ConfigVersion      int       `yaml:"config_version"`
	Shell              string    `yaml:"shell"`
	Timeout            *int      `yaml:"timeout"`
	AutorepeatDelay    int       `yaml:"autorepeat_delay"`
	AutorepeatInterval int       `yaml:"autorepeat_interval"`
	PidFile            string    `yaml:"pid_file"`
	LogToFile          *bool     `yaml:"log_to_file"`
	LogDir             string    `yaml:"log_dir"`
	LogLevel           string    `yaml:"log_level"`
	Backend            string    `yaml:"backend"`
	Grab               bool      `yaml:"grab"`
	LockPolicy         string    `yaml:"lock_policy"`
	QueueSize          int       `yaml:"queue_size"`
	Bindings           yaml.Node `yaml:"bindings"`
	Remaps             yaml.Node `yaml:"remaps"`
	TapHold            yaml.Node `yaml:"tap_hold"`
	Vars               []VarDef  `yaml:"vars"`
}

// TapHoldDef is one `tap_hold` entry: Key acts as itself when held and as
// Tap when tapped.
type TapHoldDef struct {
	Key  string
	Tap  string
	Line int
}

// Config holds the decoded settings with defaults applied.
type Config struct {
	Path string

	Version            int
	Shell              string
	Timeout            time.Duration
	AutorepeatDelay    time.Duration
	AutorepeatInterval time.Duration
	PidFile            string
	LogToFile          bool
	LogDir             string
	LogLevel           string
	Backend            string
	Grab               bool
	LockPolicy         binding.LockPolicy
	QueueSize          int

	Bindings []binding.Line
	Remaps   []remap.Pair
	TapHold  []TapHoldDef
	Vars     []VarDef
}

// Tables are the immutable lookup structures built from a Config.
type Tables struct {
	Bindings *binding.Table
	Remaps   *remap.Table
	TapHold  map[keys.Identity]keys.Identity
}

func configDir() string {
	if d := os.Getenv("XDG_CONFIG_HOME"); d != "" {
		return filepath.Join(d, "hkd")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "hkd")
}

func defaultConfigPath() string {
	return filepath.Join(configDir(), configFileName)
}

// LoadConfig reads and decodes the config file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// ParseConfig decodes a config document and fills in defaults.
func ParseConfig(data []byte) (*Config, error) {
	var cf configFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	policy, err := binding.ParseLockPolicy(cf.LockPolicy)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Version:            cf.ConfigVersion,
		Shell:              cf.Shell,
		Timeout:            defaultTimeout,
		AutorepeatDelay:    time.Duration(cf.AutorepeatDelay) * time.Millisecond,
		AutorepeatInterval: time.Duration(cf.AutorepeatInterval) * time.Millisecond,
		PidFile:            cf.PidFile,
		LogToFile:          true,
		LogDir:             cf.LogDir,
		LogLevel:           cf.LogLevel,
		Backend:            strings.ToLower(cf.Backend),
		Grab:               cf.Grab,
		LockPolicy:         policy,
		QueueSize:          cf.QueueSize,
		Vars:               cf.Vars,
	}
	if cf.Timeout != nil {
		if *cf.Timeout < 0 {
			return nil, fmt.Errorf("timeout must not be negative: %d", *cf.Timeout)
		}
		cfg.Timeout = time.Duration(*cf.Timeout) * time.Millisecond
	}
	if cf.LogToFile != nil {
		cfg.LogToFile = *cf.LogToFile
	}
	if cfg.Shell == "" {
		cfg.Shell = os.Getenv("SHELL")
	}
	if cfg.Shell == "" {
		cfg.Shell = engine.DefaultShell
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = engine.DefaultQueueSize
	}
	if cfg.PidFile == "" {
		cfg.PidFile = defaultPidFile()
	}
	if cfg.LogDir == "" {
		cfg.LogDir = defaultLogDir()
	}
	switch cfg.Backend {
	case "":
		cfg.Backend = backendUinput
		if os.Getenv("DISPLAY") != "" {
			cfg.Backend = backendX11
		}
	case backendX11, backendUinput:
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", cf.Backend, backendX11, backendUinput)
	}

	bindings, err := mappingPairs(&cf.Bindings, "bindings")
	if err != nil {
		return nil, err
	}
	for _, p := range bindings {
		cfg.Bindings = append(cfg.Bindings, binding.Line{Keys: p.key, Action: p.value, Line: p.line, Column: p.column})
	}

	remaps, err := mappingPairs(&cf.Remaps, "remaps")
	if err != nil {
		return nil, err
	}
	for _, p := range remaps {
		cfg.Remaps = append(cfg.Remaps, remap.Pair{From: p.key, To: p.value, Line: p.line})
	}

	taps, err := mappingPairs(&cf.TapHold, "tap_hold")
	if err != nil {
		return nil, err
	}
	for _, p := range taps {
		cfg.TapHold = append(cfg.TapHold, TapHoldDef{Key: p.key, Tap: p.value, Line: p.line})
	}

	return cfg, nil
}

type pair struct {
	key, value   string
	line, column int
}

// mappingPairs returns the entries of a mapping node in document order. An
// absent or null section is empty.
func mappingPairs(n *yaml.Node, section string) ([]pair, error) {
	if n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.Tag == "!!null") {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: %s must be a mapping", n.Line, section)
	}
	out := make([]pair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: %s entries must be plain strings", k.Line, section)
		}
		out = append(out, pair{key: k.Value, value: v.Value, line: k.Line, column: k.Column})
	}
	return out, nil
}

// Compile builds the lookup tables. Errors from every section are reported
// together.
func (c *Config) Compile() (*Tables, error) {
	var errs []error

	bt, err := binding.Compile(c.Bindings)
	if err != nil {
		errs = append(errs, fmt.Errorf("bindings: %w", err))
	}
	rt, err := remap.New(c.Remaps)
	if err != nil {
		errs = append(errs, fmt.Errorf("remaps: %w", err))
	}

	taps := make(map[keys.Identity]keys.Identity, len(c.TapHold))
	for _, th := range c.TapHold {
		k, err := keys.Resolve(th.Key)
		if err != nil {
			errs = append(errs, fmt.Errorf("tap_hold: line %d: %w", th.Line, err))
		} else if keys.ModifierOf(k) == 0 && keys.LockOf(k) == 0 {
			err = fmt.Errorf("tap_hold: line %d: %s is not a modifier key", th.Line, th.Key)
			errs = append(errs, err)
		}
		tap, err2 := keys.Resolve(th.Tap)
		if err2 != nil {
			errs = append(errs, fmt.Errorf("tap_hold: line %d: %w", th.Line, err2))
		}
		if err == nil && err2 == nil {
			taps[k] = tap
		}
	}

	if err := checkVars(c.Vars); err != nil {
		errs = append(errs, fmt.Errorf("vars: %w", err))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &Tables{Bindings: bt, Remaps: rt, TapHold: taps}, nil
}

func defaultPidFile() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "hkd.pid")
}

func defaultLogDir() string {
	if d := os.Getenv("XDG_STATE_HOME"); d != "" {
		return filepath.Join(d, "hkd")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "hkd")
}
