// Package localize drives a localization run: it finds plugin bundles,
// backs each one up, translates the literals of its setName/setDesc pairs,
// and writes the translated bundle back in place.
//
// Files are independent. Each is handled end-to-end by one worker of a
// bounded pool, and a failure is contained to the entry or file it happened
// in.
package localize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/obsidian-l10n/bundle"
	"github.com/minios-linux/obsidian-l10n/extract"
	"github.com/minios-linux/obsidian-l10n/i18n"
	"github.com/minios-linux/obsidian-l10n/rewrite"
	"github.com/minios-linux/obsidian-l10n/translate"
)

// ErrNoBundles is returned by Run when the root holds no matching bundle.
var ErrNoBundles = errors.New("no plugin bundles found")

// ExtractionError reports an entry that could not be processed for reasons
// other than the translation backend, such as an unusable translation.
type ExtractionError struct {
	Path string
	Key  string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: key %q: %v", e.Path, e.Key, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options controls a run.
type Options struct {
	// Translator performs the translations. Required unless DryRun is set.
	Translator translate.Translator
	// FileName is the bundle file name to look for (default "main.js").
	FileName string
	// BackupSuffix is appended to a bundle path for its backup (default ".bak").
	BackupSuffix string
	// Jobs is the worker pool size (default runtime.NumCPU()).
	Jobs int
	// DryRun reports what would be translated without backing up, calling
	// the translator, or writing.
	DryRun bool
	// Progress, if set, receives a progress bar counting finished files.
	Progress io.Writer

	// OnLog emits informational messages.
	OnLog func(format string, args ...any)
	// OnWarn emits skipped entries and other non-fatal conditions.
	OnWarn func(format string, args ...any)
	// OnError emits per-entry and per-file failures.
	OnError func(format string, args ...any)

	// sleep waits out the translator's pre-batch delay; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) warn(format string, args ...any) {
	if o.OnWarn != nil {
		o.OnWarn(format, args...)
	} else {
		o.log(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else {
		o.log(format, args...)
	}
}

func (o *Options) fileName() string {
	if o.FileName != "" {
		return o.FileName
	}
	return bundle.DefaultName
}

func (o *Options) jobs() int {
	if o.Jobs > 0 {
		return o.Jobs
	}
	return runtime.NumCPU()
}

func (o *Options) wait(ctx context.Context, d time.Duration) error {
	if o.sleep != nil {
		return o.sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ---------------------------------------------------------------------------
// Summary
// ---------------------------------------------------------------------------

// Summary counts what a run did.
type Summary struct {
	// Files is the number of bundles found.
	Files int
	// Rewritten is the number of bundles whose content changed.
	Rewritten int
	// Translated is the number of distinct literals translated.
	Translated int
	// Pending is the number of literals a dry run would translate.
	Pending int
	// Skipped is the number of pairs left alone by the eligibility policy.
	Skipped int
	// EntryErrors is the number of literals whose translation failed.
	EntryErrors int
	// FileErrors is the number of bundles that could not be processed.
	FileErrors int
}

type tally struct {
	rewritten, translated, pending, skipped, entryErrors, fileErrors atomic.Int64
}

func (t *tally) summary(files int) Summary {
	return Summary{
		Files:       files,
		Rewritten:   int(t.rewritten.Load()),
		Translated:  int(t.translated.Load()),
		Pending:     int(t.pending.Load()),
		Skipped:     int(t.skipped.Load()),
		EntryErrors: int(t.entryErrors.Load()),
		FileErrors:  int(t.fileErrors.Load()),
	}
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

// Run localizes every bundle under root. It returns ErrNoBundles when there
// is nothing to do. Per-file failures do not stop the run; they are
// collected into the returned error alongside a complete Summary.
func Run(ctx context.Context, root string, opts Options) (Summary, error) {
	if opts.Translator == nil && !opts.DryRun {
		return Summary{}, errors.New("no translator configured")
	}

	files, err := bundle.Locate(root, opts.fileName())
	if err != nil {
		return Summary{}, err
	}
	if len(files) == 0 {
		return Summary{}, ErrNoBundles
	}
	opts.log(i18n.N("Found %d plugin bundle under %s", "Found %d plugin bundles under %s", len(files)), len(files), root)

	r := &runner{opts: opts}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = newProgressBar(opts.Progress, len(files), opts.fileName())
	}

	var (
		mu   sync.Mutex
		merr *multierror.Error
		g    errgroup.Group
	)
	g.SetLimit(opts.jobs())

	for _, path := range files {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if err := r.processFile(ctx, path); err != nil {
				r.tally.fileErrors.Add(1)
				opts.logError(i18n.T("Failed: %s: %v"), path, err)
				mu.Lock()
				merr = multierror.Append(merr, fmt.Errorf("%s: %w", path, err))
				mu.Unlock()
			}
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	if bar != nil {
		_ = bar.Finish()
	}
	if err := ctx.Err(); err != nil {
		merr = multierror.Append(merr, err)
	}
	return r.tally.summary(len(files)), merr.ErrorOrNil()
}

func newProgressBar(w io.Writer, total int, name string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", name)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

// ---------------------------------------------------------------------------
// Per-file pipeline
// ---------------------------------------------------------------------------

type runner struct {
	opts  Options
	tally tally
}

// processFile runs backup → extract → translate → rewrite for one bundle.
// The backup is made before anything else; if it fails the bundle is left
// untouched.
func (r *runner) processFile(ctx context.Context, path string) error {
	if r.opts.DryRun {
		return r.report(path)
	}

	if _, err := bundle.Backup(path, r.opts.BackupSuffix); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	text := string(data)

	pairs := r.eligiblePairs(path, extract.Pairs(text))
	if len(pairs) == 0 {
		r.opts.log(i18n.T("Nothing to translate: %s"), path)
		return nil
	}

	if d := translate.BatchDelay(r.opts.Translator); d > 0 {
		if err := r.opts.wait(ctx, d); err != nil {
			return err
		}
	}

	mapping := r.translatePairs(ctx, path, pairs)
	out := rewrite.Apply(text, mapping)
	if out == text {
		r.opts.log(i18n.T("Unchanged: %s"), path)
		return nil
	}

	if err := writeInPlace(path, out); err != nil {
		return err
	}
	r.tally.rewritten.Add(1)
	r.opts.log(i18n.T("Modified and saved: %s"), path)
	return nil
}

// report is the dry-run variant of processFile.
func (r *runner) report(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	seen := make(map[string]bool)
	for _, p := range r.eligiblePairs(path, extract.Pairs(string(data))) {
		for _, lit := range []string{p.Name, p.Desc} {
			if seen[lit] {
				continue
			}
			seen[lit] = true
			r.tally.pending.Add(1)
		}
	}
	r.opts.log(i18n.N("%s: %d string to translate", "%s: %d strings to translate", len(seen)), path, len(seen))
	return nil
}

// eligiblePairs drops, and logs, pairs the eligibility policy rejects.
func (r *runner) eligiblePairs(path string, pairs []extract.Pair) []extract.Pair {
	var keep []extract.Pair
	for _, p := range pairs {
		switch v, lit := p.Check(); v {
		case extract.Translate:
			keep = append(keep, p)
		case extract.SkipTooShort:
			r.tally.skipped.Add(1)
			r.opts.warn(i18n.T("Skip translation: %s: text too short: %q"), path, lit)
		default:
			r.tally.skipped.Add(1)
			r.opts.warn(i18n.T("Pause translation: %s: contains non-English text %q"), path, lit)
		}
	}
	return keep
}

// translatePairs builds the file's translation mapping. Each distinct
// literal is requested once; a failed literal is logged and left out, and
// the remaining entries are still processed.
func (r *runner) translatePairs(ctx context.Context, path string, pairs []extract.Pair) rewrite.Mapping {
	mapping := make(rewrite.Mapping)
	failed := make(map[string]bool)

	for _, p := range pairs {
		for _, lit := range []string{p.Name, p.Desc} {
			if _, done := mapping[lit]; done || failed[lit] {
				continue
			}
			if ctx.Err() != nil {
				return mapping
			}
			out, err := r.translateEntry(ctx, path, lit)
			if err != nil {
				failed[lit] = true
				r.tally.entryErrors.Add(1)
				r.opts.logError(i18n.T("Bad key %q in %s: %v"), lit, path, err)
				continue
			}
			mapping[lit] = out
			r.tally.translated.Add(1)
		}
	}
	return mapping
}

func (r *runner) translateEntry(ctx context.Context, path, lit string) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &ExtractionError{Path: path, Key: lit, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	out, err = r.opts.Translator.Translate(ctx, extract.Unescape(lit))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", &ExtractionError{Path: path, Key: lit, Err: errors.New("empty translation")}
	}
	return out, nil
}

// writeInPlace overwrites path, keeping its permission bits.
func writeInPlace(path, content string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
