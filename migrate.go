package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const latestConfigVersion = 1

// migration is a named config migration step. run edits the document root
// in place and reports how many changes it made.
type migration struct {
	version int
	name    string
	run     func(root *yaml.Node) int
}

var migrations = []migration{
	{version: 1, name: "rename_legacy_keys", run: renameLegacyKeys},
}

// legacyKeys are spellings accepted by older configs.
var legacyKeys = map[string]string{
	"xcape":               "tap_hold",
	"autorepeat-delay":    "autorepeat_delay",
	"autorepeat-interval": "autorepeat_interval",
	"pid-file":            "pid_file",
	"log-to-file":         "log_to_file",
	"log-dir":             "log_dir",
	"log-level":           "log_level",
	"lock-policy":         "lock_policy",
	"queue-size":          "queue_size",
}

// migrateConfig runs all pending migrations on the config file at path,
// keeping comments, and leaves the original next to it as .bak.
func migrateConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return fmt.Errorf("%s is empty", filepath.Base(path))
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("%s root is not a mapping", filepath.Base(path))
	}

	current := configVersion(root)
	if current >= latestConfigVersion {
		fmt.Println("hkd: config already up to date")
		return nil
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		n := m.run(root)
		fmt.Printf("hkd: migration %d (%s): %d change(s)\n", m.version, m.name, n)
	}
	setConfigVersion(root, latestConfigVersion)

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(path+".bak", data, 0644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	fmt.Println("hkd: migration complete")
	return nil
}

func configVersion(root *yaml.Node) int {
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "config_version" {
			var v int
			if err := root.Content[i+1].Decode(&v); err == nil {
				return v
			}
		}
	}
	return 0
}

// setConfigVersion updates or prepends config_version.
func setConfigVersion(root *yaml.Node, version int) {
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "config_version" {
			root.Content[i+1].Value = fmt.Sprintf("%d", version)
			root.Content[i+1].Tag = "!!int"
			return
		}
	}
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: "config_version", Tag: "!!str"}
	valNode := &yaml.Node{Kind: yaml.ScalarNode, Value: fmt.Sprintf("%d", version), Tag: "!!int"}
	root.Content = append([]*yaml.Node{keyNode, valNode}, root.Content...)
}

// renameLegacyKeys renames top-level keys in place. When both the old and
// the new spelling are present, the old entry is dropped.
func renameLegacyKeys(root *yaml.Node) int {
	present := make(map[string]bool, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		present[root.Content[i].Value] = true
	}

	changed := 0
	filtered := make([]*yaml.Node, 0, len(root.Content))
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if to, ok := legacyKeys[key.Value]; ok {
			changed++
			if present[to] {
				continue
			}
			key.Value = to
		}
		filtered = append(filtered, key, val)
	}
	root.Content = filtered
	return changed
}
