package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// VarDef defines a variable usable as {{name}} in binding commands.
type VarDef struct {
	Name   string    `yaml:"name"`
	Type   string    `yaml:"type"`
	Params VarParams `yaml:"params"`
}

// VarParams holds parameters for a variable definition. Which fields apply
// depends on the variable type.
type VarParams struct {
	Value  string `yaml:"value"`
	Env    string `yaml:"env"`
	Format string `yaml:"format"`
	Offset int    `yaml:"offset"`
}

const (
	varString = "string"
	varEnv    = "env"
	varDate   = "date"
)

// checkVars reports every malformed definition.
func checkVars(vars []VarDef) error {
	var errs []error
	seen := make(map[string]bool, len(vars))
	for i, v := range vars {
		switch {
		case v.Name == "":
			errs = append(errs, fmt.Errorf("var %d: missing name", i+1))
		case strings.ContainsAny(v.Name, "{} "):
			errs = append(errs, fmt.Errorf("var %q: invalid name", v.Name))
		case seen[v.Name]:
			errs = append(errs, fmt.Errorf("var %q: defined twice", v.Name))
		}
		seen[v.Name] = true

		switch v.Type {
		case varString, varDate:
		case varEnv:
			if v.Params.Env == "" {
				errs = append(errs, fmt.Errorf("var %q: env needs params.env", v.Name))
			}
		default:
			errs = append(errs, fmt.Errorf("var %q: unknown type %q", v.Name, v.Type))
		}
	}
	return errors.Join(errs...)
}

// ResolveVars resolves variables in order so later variables can reference
// earlier ones via {{name}}.
func ResolveVars(vars []VarDef, now time.Time, getenv func(string) string) map[string]string {
	resolved := make(map[string]string, len(vars))
	for _, v := range vars {
		switch v.Type {
		case varString:
			resolved[v.Name] = expandRefs(v.Params.Value, resolved)
		case varEnv:
			resolved[v.Name] = getenv(v.Params.Env)
		case varDate:
			t := now.Add(time.Duration(v.Params.Offset) * time.Second)
			// First expand {{refs}} to already-resolved values
			format := expandRefs(v.Params.Format, resolved)
			// Then replace strftime tokens with actual date values
			resolved[v.Name] = resolveDate(format, t)
		}
	}
	return resolved
}

// expandRefs replaces {{name}} placeholders with resolved values.
func expandRefs(s string, vars map[string]string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	for name, val := range vars {
		s = strings.ReplaceAll(s, "{{"+name+"}}", val)
	}
	return s
}

// commandExpander returns the function the executor applies to a command
// right before it is spawned. Variables are resolved on every call so date
// and env values are current.
func commandExpander(vars []VarDef) func(string) string {
	if len(vars) == 0 {
		return nil
	}
	return func(cmd string) string {
		if !strings.Contains(cmd, "{{") {
			return cmd
		}
		return expandRefs(cmd, ResolveVars(vars, time.Now(), os.Getenv))
	}
}
