// Package config loads the optional YAML run file.
//
// The run file holds the same settings as the command-line flags, so a
// recurring run can be described once:
//
//	file_path: ./plugins
//	lang: zh
//	backend: auto
//	jobs: 4
//	delay: 3s
//	timeout: 30s
//	proxy: http://127.0.0.1:7890
//
// It is only read when named explicitly; nothing is auto-discovered.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/obsidian-l10n/translate"
)

// File is the run file schema. Zero values mean "not set".
type File struct {
	// FilePath is the root directory searched for bundles.
	FilePath string `yaml:"file_path,omitempty"`
	// Lang is the target locale.
	Lang string `yaml:"lang,omitempty"`
	// SourceLang is the locale the bundles are written in.
	SourceLang string `yaml:"source_lang,omitempty"`
	// Backend is one of translate.Backends.
	Backend string `yaml:"backend,omitempty"`
	// Endpoint overrides the Volcengine URL.
	Endpoint string `yaml:"endpoint,omitempty"`
	// Proxy is an HTTP/HTTPS proxy URL for backend requests.
	Proxy string `yaml:"proxy,omitempty"`
	// Jobs is the worker pool size.
	Jobs int `yaml:"jobs,omitempty"`
	// Delay is the pre-batch delay; an explicit 0s disables it.
	Delay *time.Duration `yaml:"delay,omitempty"`
	// Timeout bounds each backend request.
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// Progress shows a progress bar.
	Progress bool `yaml:"progress,omitempty"`
}

// Load reads and validates the run file at path. Unknown keys are errors.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

// Validate checks the values that can be checked without building a
// backend. Locales are validated later by translate.New.
func (f *File) Validate() error {
	if f.Backend != "" && !slices.Contains(translate.Backends, strings.ToLower(f.Backend)) {
		return fmt.Errorf("unknown backend %q (valid: %s)", f.Backend, strings.Join(translate.Backends, ", "))
	}
	if f.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", f.Jobs)
	}
	if f.Delay != nil && *f.Delay < 0 {
		return fmt.Errorf("delay must not be negative, got %s", *f.Delay)
	}
	if f.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", f.Timeout)
	}
	return nil
}
