package translate

import (
	"context"
	"errors"
	"strings"

	"github.com/bregydoc/gtranslate"
)

// Google translates through the public Google Translate web endpoint using
// the gtranslate library. It has no built-in delay; under sustained use the
// service may start throttling, which surfaces as translation errors.
type Google struct {
	From string
	To   string

	call func(text string, params gtranslate.TranslationParams) (string, error)
}

// NewGoogle returns a Google backend translating from one locale to another.
func NewGoogle(from, to string) *Google {
	return &Google{From: from, To: to, call: gtranslate.TranslateWithParams}
}

func (g *Google) Name() string { return BackendGoogle }

func (g *Google) Translate(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &Error{Backend: g.Name(), Text: text, Err: err}
	}

	type result struct {
		out string
		err error
	}
	// gtranslate has no context support; abandon the call on cancellation.
	done := make(chan result, 1)
	go func() {
		out, err := g.call(text, gtranslate.TranslationParams{From: g.From, To: g.To})
		done <- result{out, err}
	}()

	select {
	case <-ctx.Done():
		return "", &Error{Backend: g.Name(), Text: text, Err: ctx.Err()}
	case r := <-done:
		if r.err != nil {
			return "", &Error{Backend: g.Name(), Text: text, Err: r.err}
		}
		if strings.TrimSpace(r.out) == "" {
			return "", &Error{Backend: g.Name(), Text: text, Err: errors.New("empty translation")}
		}
		return r.out, nil
	}
}
