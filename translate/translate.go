// Package translate turns source-language UI strings into the target
// language through interchangeable remote backends: Google Translate via the
// gtranslate library, and the Volcengine browser-extension endpoint.
//
// Backends satisfy Translator and can be chained so a throttled backend
// falls through to the next one.
package translate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/text/language"
)

// ---------------------------------------------------------------------------
// Backend IDs
// ---------------------------------------------------------------------------

const (
	BackendGoogle = "google"
	BackendVolc   = "volc"
	// BackendAuto tries Google first and falls back to Volcengine.
	BackendAuto = "auto"
)

// Backends lists the accepted backend IDs in display order.
var Backends = []string{BackendGoogle, BackendVolc, BackendAuto}

// Translator translates a single piece of text into a fixed target locale.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// BatchDelayer is implemented by backends that want the caller to pause
// before each file's batch of requests.
type BatchDelayer interface {
	BatchDelay() time.Duration
}

// BatchDelay returns t's pre-batch delay, or 0 if it has none.
func BatchDelay(t Translator) time.Duration {
	if d, ok := t.(BatchDelayer); ok {
		return d.BatchDelay()
	}
	return 0
}

// Namer is implemented by backends that have a display name.
type Namer interface {
	Name() string
}

// Name returns t's display name, falling back to its Go type.
func Name(t Translator) string {
	if n, ok := t.(Namer); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", t)
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// Error reports a failed translation: a transport failure, a rejected
// request, or a response without a usable translation.
type Error struct {
	Backend string
	Text    string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: translating %q: %v", e.Backend, truncate(e.Text, 60), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config selects and configures a backend.
type Config struct {
	// Backend is one of Backends.
	Backend string
	// SourceLang is the language the bundles are written in (Google only).
	SourceLang string
	// TargetLang is the locale to translate into, e.g. "zh".
	TargetLang string
	// Endpoint overrides the Volcengine URL.
	Endpoint string
	// Delay is the Volcengine pre-batch delay; negative disables it.
	Delay time.Duration
	// Timeout bounds each HTTP request; 0 means no timeout.
	Timeout time.Duration
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
}

// ParseLocale validates a locale and returns its canonical BCP 47 form.
func ParseLocale(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty locale")
	}
	tag, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
	if err != nil {
		return "", fmt.Errorf("invalid locale %q: %w", s, err)
	}
	return tag.String(), nil
}

// New builds the Translator described by cfg.
func New(cfg Config) (Translator, error) {
	target, err := ParseLocale(cfg.TargetLang)
	if err != nil {
		return nil, fmt.Errorf("target language: %w", err)
	}
	source := "en"
	if cfg.SourceLang != "" {
		if source, err = ParseLocale(cfg.SourceLang); err != nil {
			return nil, fmt.Errorf("source language: %w", err)
		}
	}

	newVolc := func() *Volc {
		v := NewVolc(target)
		if cfg.Endpoint != "" {
			v.Endpoint = cfg.Endpoint
		}
		switch {
		case cfg.Delay < 0:
			v.Delay = 0
		case cfg.Delay > 0:
			v.Delay = cfg.Delay
		}
		v.Client = makeHTTPClient(cfg.Proxy, cfg.Timeout)
		return v
	}

	switch strings.ToLower(cfg.Backend) {
	case "", BackendGoogle:
		return NewGoogle(source, target), nil
	case BackendVolc:
		return newVolc(), nil
	case BackendAuto:
		return Chain(NewGoogle(source, target), newVolc()), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want one of: %s)", cfg.Backend, strings.Join(Backends, ", "))
	}
}

// ---------------------------------------------------------------------------
// Chain
// ---------------------------------------------------------------------------

type chain []Translator

// Chain returns a Translator that tries primary and then each fallback in
// order, returning the first successful translation.
func Chain(primary Translator, fallbacks ...Translator) Translator {
	return append(chain{primary}, fallbacks...)
}

func (c chain) Translate(ctx context.Context, text string) (string, error) {
	var errs *multierror.Error
	for _, t := range c {
		out, err := t.Translate(ctx, text)
		if err == nil {
			return out, nil
		}
		errs = multierror.Append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return "", &Error{Backend: c.Name(), Text: text, Err: errs.ErrorOrNil()}
}

// BatchDelay is the largest delay of the chained backends.
func (c chain) BatchDelay() time.Duration {
	var d time.Duration
	for _, t := range c {
		d = max(d, BatchDelay(t))
	}
	return d
}

func (c chain) Name() string {
	names := make([]string, len(c))
	for i, t := range c {
		names[i] = Name(t)
	}
	return strings.Join(names, "+")
}

// ---------------------------------------------------------------------------
// Audit
// ---------------------------------------------------------------------------

type audited struct {
	Translator
	report func(original, translated string)
}

// WithAudit wraps t so that report is called with every successful
// translation.
func WithAudit(t Translator, report func(original, translated string)) Translator {
	if report == nil {
		return t
	}
	return &audited{Translator: t, report: report}
}

func (a *audited) Translate(ctx context.Context, text string) (string, error) {
	out, err := a.Translator.Translate(ctx, text)
	if err == nil {
		a.report(text, out)
	}
	return out, err
}

func (a *audited) BatchDelay() time.Duration { return BatchDelay(a.Translator) }

func (a *audited) Name() string { return Name(a.Translator) }

// ---------------------------------------------------------------------------
// HTTP client with proxy support
// ---------------------------------------------------------------------------

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	// Only an explicitly configured proxy is used; HTTP_PROXY and friends
	// are ignored.
	transport.Proxy = nil
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
