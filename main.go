// obsidian-l10n: localizes the settings labels of installed Obsidian plugins.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/minios-linux/obsidian-l10n/bundle"
	"github.com/minios-linux/obsidian-l10n/config"
	"github.com/minios-linux/obsidian-l10n/i18n"
	"github.com/minios-linux/obsidian-l10n/localize"
	"github.com/minios-linux/obsidian-l10n/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	infoTag    = color.New(color.FgBlue).Sprint("[INFO]")
	successTag = color.New(color.FgGreen).Sprint("[OK]")
	warningTag = color.New(color.FgYellow, color.Bold).Sprint("[WARN]")
	errorTag   = color.New(color.FgRed).Sprint("[ERROR]")
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(color.Error, infoTag+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(color.Error, successTag+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(color.Error, warningTag+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(color.Error, errorTag+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

// runArgs holds the resolved settings of a run.
type runArgs struct {
	filePath   string
	lang       string
	sourceLang string
	backend    string
	endpoint   string
	proxy      string
	jobs       int
	delay      time.Duration
	timeout    time.Duration
	dryRun     bool
	progress   bool
	configPath string
}

func newRootCmd() *cobra.Command {
	var a runArgs

	root := &cobra.Command{
		Use:   "obsidian-l10n",
		Short: "Translate the settings labels of Obsidian plugins",
		Long: `obsidian-l10n localizes Obsidian plugins in place.

It searches a directory tree for plugin bundles (main.js), backs each one up
to main.js.bak, and translates the string literals passed to setName(...)
and setDesc(...) in the plugin's settings tab.

Backends:
  google   Google Translate (default)
  volc     Volcengine translation endpoint, with a pause before each file
  auto     Google, falling back to Volcengine on failure`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.configPath != "" {
				f, err := config.Load(a.configPath)
				if err != nil {
					return err
				}
				applyFile(cmd, &a, f)
			}
			return runLocalize(&a)
		},
	}

	root.Flags().StringVarP(&a.filePath, "file_path", "f", "./plugins", "Root directory to search for plugin bundles")
	root.Flags().StringVar(&a.lang, "lang", "zh", "Target language")
	root.Flags().StringVar(&a.sourceLang, "source-lang", "en", "Source language of the plugins")
	root.Flags().StringVar(&a.backend, "backend", translate.BackendGoogle, "Translation backend: "+strings.Join(translate.Backends, ", "))
	root.Flags().StringVar(&a.endpoint, "endpoint", translate.DefaultVolcEndpoint, "Volcengine endpoint URL")
	root.Flags().StringVar(&a.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	root.Flags().IntVarP(&a.jobs, "jobs", "j", runtime.NumCPU(), "Number of bundles processed in parallel")
	root.Flags().DurationVar(&a.delay, "delay", translate.DefaultVolcDelay, "Pause before each bundle's requests (volc backend, 0 = none)")
	root.Flags().DurationVar(&a.timeout, "timeout", 0, "Request timeout (0 = none)")
	root.Flags().BoolVar(&a.dryRun, "dry-run", false, "Show what would be translated without changing anything")
	root.Flags().BoolVar(&a.progress, "progress", false, "Show a progress bar")
	root.Flags().StringVar(&a.configPath, "config", "", "YAML run file with default settings")

	root.AddCommand(newVersionCmd())

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// applyFile copies run file values into a for every flag the user did not
// set on the command line.
func applyFile(cmd *cobra.Command, a *runArgs, f *config.File) {
	changed := cmd.Flags().Changed
	setString := func(flag string, dst *string, v string) {
		if v != "" && !changed(flag) {
			*dst = v
		}
	}

	setString("file_path", &a.filePath, f.FilePath)
	setString("lang", &a.lang, f.Lang)
	setString("source-lang", &a.sourceLang, f.SourceLang)
	setString("backend", &a.backend, f.Backend)
	setString("endpoint", &a.endpoint, f.Endpoint)
	setString("proxy", &a.proxy, f.Proxy)

	if f.Jobs > 0 && !changed("jobs") {
		a.jobs = f.Jobs
	}
	if f.Delay != nil && !changed("delay") {
		a.delay = *f.Delay
	}
	if f.Timeout > 0 && !changed("timeout") {
		a.timeout = f.Timeout
	}
	if f.Progress && !changed("progress") {
		a.progress = true
	}
}

// translatorConfig validates a and maps it onto a backend configuration.
func translatorConfig(a *runArgs) (translate.Config, error) {
	if a.jobs < 1 {
		return translate.Config{}, fmt.Errorf("--jobs must be at least 1, got %d", a.jobs)
	}
	if a.delay < 0 {
		return translate.Config{}, fmt.Errorf("--delay must not be negative, got %s", a.delay)
	}
	if a.timeout < 0 {
		return translate.Config{}, fmt.Errorf("--timeout must not be negative, got %s", a.timeout)
	}

	cfg := translate.Config{
		Backend:    a.backend,
		SourceLang: a.sourceLang,
		TargetLang: a.lang,
		Endpoint:   a.endpoint,
		Delay:      a.delay,
		Timeout:    a.timeout,
		Proxy:      a.proxy,
	}
	// translate.Config treats 0 as "use the backend default".
	if a.delay == 0 {
		cfg.Delay = -1
	}
	return cfg, nil
}

// ---------------------------------------------------------------------------
// Localization run
// ---------------------------------------------------------------------------

// runLocalize returns an error only for invalid settings. Problems met
// during the run are reported and the process still exits 0.
func runLocalize(a *runArgs) error {
	cfg, err := translatorConfig(a)
	if err != nil {
		return err
	}
	tr, err := translate.New(cfg)
	if err != nil {
		return err
	}
	tr = translate.WithAudit(tr, func(original, translated string) {
		logInfo(i18n.T("Translated: %q -> %q"), original, translated)
	})

	// Setup signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logWarning(i18n.T("Interrupted, finishing current requests..."))
			cancel()
		case <-ctx.Done():
		}
	}()

	opts := localize.Options{
		Translator:   tr,
		FileName:     bundle.DefaultName,
		BackupSuffix: bundle.DefaultBackupSuffix,
		Jobs:         a.jobs,
		DryRun:       a.dryRun,
		OnLog:        logInfo,
		OnWarn:       logWarning,
		OnError:      logError,
	}
	if a.progress {
		opts.Progress = color.Error
	}

	if !a.dryRun {
		logInfo(i18n.T("Translating %s -> %s with %s"), cfg.SourceLang, cfg.TargetLang, translate.Name(tr))
	}

	sum, err := localize.Run(ctx, a.filePath, opts)
	reportRun(a, sum, err)
	return nil
}

func reportRun(a *runArgs, sum localize.Summary, err error) {
	switch {
	case errors.Is(err, localize.ErrNoBundles):
		logWarning(i18n.T("No %s found under %s"), bundle.DefaultName, a.filePath)
		return
	case errors.Is(err, context.Canceled):
		logWarning(i18n.T("Run interrupted"))
	case err != nil && sum.Files == 0:
		logError("%v", err)
		return
	}

	if a.dryRun {
		logSuccess(i18n.N("Dry run: %d string would be translated (%d pairs skipped)",
			"Dry run: %d strings would be translated (%d pairs skipped)", sum.Pending),
			sum.Pending, sum.Skipped)
		return
	}

	logSuccess(i18n.T("Done: %d/%d bundles rewritten, %d strings translated, %d pairs skipped"),
		sum.Rewritten, sum.Files, sum.Translated, sum.Skipped)
	if sum.EntryErrors > 0 || sum.FileErrors > 0 {
		logWarning(i18n.T("%d strings and %d bundles failed; backups are next to each bundle"),
			sum.EntryErrors, sum.FileErrors)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("obsidian-l10n version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}
