// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/wingedpig/buildwatch/internal/logs"
)

// OutputFormat specifies the output format for runtime log entries.
type OutputFormat string

const (
	FormatPlain    OutputFormat = "plain"
	FormatJSON     OutputFormat = "json"
	FormatJSONL    OutputFormat = "jsonl"
	FormatRaw      OutputFormat = "raw"
	FormatTemplate OutputFormat = "template"
)

// ParseFormat validates a --format value. An empty value is plain.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case "":
		return FormatPlain, nil
	case FormatPlain, FormatJSON, FormatJSONL, FormatRaw, FormatTemplate:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (use plain, json, jsonl, raw or template)", s)
	}
}

// Formatter formats runtime log entries for output.
type Formatter struct {
	format   OutputFormat
	template *template.Template
	writer   io.Writer
}

// NewFormatter creates a Formatter. tmpl is required for FormatTemplate.
func NewFormatter(w io.Writer, format OutputFormat, tmpl string) (*Formatter, error) {
	f := &Formatter{format: format, writer: w}

	if format == FormatTemplate {
		if tmpl == "" {
			return nil, fmt.Errorf("--template is required with --format template")
		}
		t, err := template.New("log").Parse(tmpl)
		if err != nil {
			return nil, fmt.Errorf("invalid template: %w", err)
		}
		f.template = t
	}

	return f, nil
}

// FormatEntries formats entries in order.
func (f *Formatter) FormatEntries(entries []logs.LogEntry) error {
	if f.format == FormatJSON {
		if entries == nil {
			entries = []logs.LogEntry{}
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(f.writer, "%s\n", data)
		return err
	}

	for i := range entries {
		if err := f.FormatEntry(&entries[i]); err != nil {
			return err
		}
	}
	return nil
}

// FormatEntry formats a single entry. FormatJSON writes one JSON line.
func (f *Formatter) FormatEntry(entry *logs.LogEntry) error {
	switch f.format {
	case FormatJSON, FormatJSONL:
		return f.formatJSONL(entry)
	case FormatRaw:
		_, err := fmt.Fprintln(f.writer, entry.Raw)
		return err
	case FormatTemplate:
		return f.formatTemplate(entry)
	default:
		return f.formatPlain(entry)
	}
}

func (f *Formatter) formatPlain(entry *logs.LogEntry) error {
	// Format: TIME LEVEL [kind] RAW
	ts := entry.Timestamp.Local().Format("15:04:05.000")
	level := strings.ToUpper(string(entry.Level))
	if level == "" {
		level = "INFO"
	}
	level = fmt.Sprintf("%-5s", level)

	line := entry.Raw
	if entry.IsError {
		level = red(level)
		line = fmt.Sprintf("%s %s", yellow("["+string(entry.ErrorKind)+"]"), line)
	}
	_, err := fmt.Fprintf(f.writer, "%s %s %s\n", gray(ts), level, line)
	return err
}

func (f *Formatter) formatJSONL(entry *logs.LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(f.writer, "%s\n", data)
	return err
}

func (f *Formatter) formatTemplate(entry *logs.LogEntry) error {
	data := map[string]interface{}{
		"timestamp": entry.Timestamp.Local().Format("2006-01-02 15:04:05.000"),
		"level":     string(entry.Level),
		"raw":       entry.Raw,
		"is_error":  entry.IsError,
		"kind":      string(entry.ErrorKind),
		"sequence":  entry.Sequence,
	}

	var buf bytes.Buffer
	if err := f.template.Execute(&buf, data); err != nil {
		return err
	}
	_, err := fmt.Fprintln(f.writer, buf.String())
	return err
}
