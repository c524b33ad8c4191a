// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
)

// TemplateExpander handles Go text/template variable expansion in config values.
type TemplateExpander struct {
	funcMap template.FuncMap
}

// NewTemplateExpander creates a new template expander with built-in functions.
func NewTemplateExpander() *TemplateExpander {
	return &TemplateExpander{
		funcMap: template.FuncMap{
			"slugify": Slugify,
			"replace": Replace,
			"upper":   strings.ToUpper,
			"lower":   strings.ToLower,
			"default": Default,
		},
	}
}

// Expand expands template variables in a string value.
func (e *TemplateExpander) Expand(value string, ctx *TemplateContext) (string, error) {
	if !strings.Contains(value, "{{") {
		return value, nil
	}

	tmpl, err := template.New("").Funcs(e.funcMap).Parse(value)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// ExpandConfig expands template variables in every path and command of
// the config and resolves relative paths against the project root. It
// returns a copy; cfg is not modified.
func (e *TemplateExpander) ExpandConfig(cfg *Config, ctx *TemplateContext) (*Config, error) {
	expanded := *cfg

	paths := []struct {
		field string
		value *string
	}{
		{"diagnostics.db_path", &expanded.Diagnostics.DBPath},
		{"diagnostics.seed_file", &expanded.Diagnostics.SeedFile},
		{"diagnostics.status_file", &expanded.Diagnostics.StatusFile},
		{"build.work_dir", &expanded.Build.WorkDir},
		{"build.watch_dir", &expanded.Build.WatchDir},
		{"monitor.work_dir", &expanded.Monitor.WorkDir},
		{"monitor.log_dir", &expanded.Monitor.LogDir},
		{"crashes.reports_dir", &expanded.Crashes.ReportsDir},
		{"server.tls_cert", &expanded.Server.TLSCert},
		{"server.tls_key", &expanded.Server.TLSKey},
	}
	for _, p := range paths {
		v, err := e.Expand(*p.value, ctx)
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", p.field, err)
		}
		if v != "" && !strings.HasPrefix(v, "~") {
			if !filepath.IsAbs(v) {
				v = filepath.Join(ctx.Project.Root, v)
			}
			v = filepath.Clean(v)
		}
		*p.value = v
	}

	var err error
	if expanded.Build.Command, err = e.expandCommand(cfg.Build.GetCommand(), ctx); err != nil {
		return nil, fmt.Errorf("expand build.command: %w", err)
	}
	if expanded.Monitor.Command, err = e.expandCommand(cfg.Monitor.GetCommand(), ctx); err != nil {
		return nil, fmt.Errorf("expand monitor.command: %w", err)
	}

	expanded.Build.Env = expandEnv(e, cfg.Build.Env, ctx)
	expanded.Monitor.Env = expandEnv(e, cfg.Monitor.Env, ctx)

	return &expanded, nil
}

func (e *TemplateExpander) expandCommand(cmd []string, ctx *TemplateContext) (interface{}, error) {
	if cmd == nil {
		return nil, nil
	}
	out := make([]string, len(cmd))
	for i, arg := range cmd {
		v, err := e.Expand(arg, ctx)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func expandEnv(e *TemplateExpander, env map[string]string, ctx *TemplateContext) map[string]string {
	if env == nil {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		if expanded, err := e.Expand(v, ctx); err == nil {
			v = expanded
		}
		out[k] = v
	}
	return out
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a string to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = slugPattern.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Replace replaces all occurrences of old with new in s.
func Replace(old, new, s string) string {
	return strings.ReplaceAll(s, old, new)
}

// Default returns defaultVal if value is empty.
func Default(defaultVal, value string) string {
	if value == "" {
		return defaultVal
	}
	return value
}
