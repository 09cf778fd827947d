package main

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/minios-linux/obsidian-l10n/config"
	"github.com/minios-linux/obsidian-l10n/translate"
)

func TestRootFlagDefaults(t *testing.T) {
	cmd := newRootCmd()
	flags := cmd.Flags()

	tests := []struct {
		name string
		want string
	}{
		{name: "file_path", want: "./plugins"},
		{name: "lang", want: "zh"},
		{name: "source-lang", want: "en"},
		{name: "backend", want: "google"},
		{name: "endpoint", want: translate.DefaultVolcEndpoint},
		{name: "delay", want: "3s"},
		{name: "timeout", want: "0s"},
		{name: "dry-run", want: "false"},
	}
	for _, tc := range tests {
		f := flags.Lookup(tc.name)
		if f == nil {
			t.Fatalf("flag --%s not defined", tc.name)
		}
		if f.DefValue != tc.want {
			t.Errorf("--%s default = %q, want %q", tc.name, f.DefValue, tc.want)
		}
	}

	if f := flags.ShorthandLookup("f"); f == nil || f.Name != "file_path" {
		t.Errorf("-f does not alias --file_path")
	}
	if got, _ := flags.GetInt("jobs"); got != runtime.NumCPU() {
		t.Errorf("--jobs default = %d, want %d", got, runtime.NumCPU())
	}
}

func TestApplyFileRespectsExplicitFlags(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--lang", "ja", "--delay", "0s", "-f", "/vault/plugins"}); err != nil {
		t.Fatalf("ParseFlags() error: %v", err)
	}

	a := runArgs{filePath: "/vault/plugins", lang: "ja", backend: "google", jobs: 2, delay: 0}
	fileDelay := 5 * time.Second
	applyFile(cmd, &a, &config.File{
		FilePath: "./from-file",
		Lang:     "fr",
		Backend:  "volc",
		Proxy:    "http://127.0.0.1:7890",
		Jobs:     8,
		Delay:    &fileDelay,
		Timeout:  30 * time.Second,
	})

	if a.filePath != "/vault/plugins" || a.lang != "ja" || a.delay != 0 {
		t.Errorf("explicit flags overridden: %+v", a)
	}
	if a.backend != "volc" || a.proxy != "http://127.0.0.1:7890" || a.jobs != 8 || a.timeout != 30*time.Second {
		t.Errorf("file values not applied: %+v", a)
	}
}

func TestTranslatorConfig(t *testing.T) {
	a := runArgs{lang: "zh", sourceLang: "en", backend: "volc", jobs: 1, delay: 0, timeout: time.Second}
	cfg, err := translatorConfig(&a)
	if err != nil {
		t.Fatalf("translatorConfig() error: %v", err)
	}
	if cfg.Delay >= 0 {
		t.Errorf("Delay = %v, want negative so the backend default is disabled", cfg.Delay)
	}
	if cfg.Timeout != time.Second || cfg.Backend != "volc" || cfg.TargetLang != "zh" {
		t.Errorf("cfg = %+v", cfg)
	}

	bad := []runArgs{
		{lang: "zh", jobs: 0},
		{lang: "zh", jobs: 1, delay: -time.Second},
		{lang: "zh", jobs: 1, timeout: -time.Second},
	}
	for _, b := range bad {
		if _, err := translatorConfig(&b); err == nil {
			t.Errorf("translatorConfig(%+v) error = nil, want error", b)
		}
	}
}

func TestRunRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{name: "unknown backend", args: []string{"--backend", "deepl"}, wantMsg: "unknown backend"},
		{name: "bad locale", args: []string{"--lang", "not a locale!"}, wantMsg: "target language"},
		{name: "positional args", args: []string{"extra"}, wantMsg: "unknown command"},
		{name: "missing config", args: []string{"--config", "/nonexistent/run.yaml"}, wantMsg: "reading"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetArgs(append(tc.args, "-f", t.TempDir()))
			err := cmd.Execute()
			if err == nil {
				t.Fatal("Execute() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("error %q does not contain %q", err, tc.wantMsg)
			}
		})
	}
}

func TestDryRunExitsCleanly(t *testing.T) {
	root := t.TempDir()
	bundlePath := filepath.Join(root, "p", "main.js")
	if err := os.MkdirAll(filepath.Dir(bundlePath), 0755); err != nil {
		t.Fatalf("MkdirAll() error: %v", err)
	}
	const content = `setName("Font size").setDesc("Size of the editor font")`
	if err := os.WriteFile(bundlePath, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--dry-run", "-f", root})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	data, err := os.ReadFile(bundlePath)
	if err != nil || string(data) != content {
		t.Fatalf("bundle changed by dry run: %q, %v", data, err)
	}
}

func TestMissingRootExitsCleanly(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--dry-run", "-f", filepath.Join(t.TempDir(), "missing")})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
}
