// Package extract finds the literal arguments of the setName/setDesc calls
// that Obsidian plugins use to label their settings, and decides which of
// them are worth sending to a translator.
//
// Bundles are treated as opaque text. Calls are recognized by pattern only;
// nothing here parses JavaScript.
package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

// Marker is a call whose single string-literal argument is user-facing text.
type Marker struct {
	// Func is the called method name, e.g. "setName".
	Func string
	re   *regexp.Regexp
}

// NewMarker builds the pattern for Func("..."), Func('...'), and the same
// forms with the `u` string-literal token before the quote.
//
// Submatches: 1 = prefix token, 2 = double-quoted body, 3 = single-quoted body.
func NewMarker(fn string) *Marker {
	expr := regexp.QuoteMeta(fn) +
		`\((u?)(?:"((?:[^"\\\n]|\\.)*)"|'((?:[^'\\\n]|\\.)*)')\)`
	return &Marker{Func: fn, re: regexp.MustCompile(expr)}
}

// The two markers a plugin settings tab uses.
var (
	SetName = NewMarker("setName")
	SetDesc = NewMarker("setDesc")
)

// Call is one matched marker call.
type Call struct {
	Func    string
	Prefix  string // "u" or ""
	Quote   byte   // '"' or '\''
	Literal string // raw source text between the quotes, escapes intact

	// Start and End are byte offsets of the whole call in the scanned text.
	Start, End int
}

// String renders the call back into source form.
func (c Call) String() string {
	return c.With(c.Literal)
}

// With renders the call with a different (already escaped) literal, keeping
// the function name, prefix token, and quote character.
func (c Call) With(literal string) string {
	var b strings.Builder
	b.Grow(len(c.Func) + len(c.Prefix) + len(literal) + 4)
	b.WriteString(c.Func)
	b.WriteByte('(')
	b.WriteString(c.Prefix)
	b.WriteByte(c.Quote)
	b.WriteString(literal)
	b.WriteByte(c.Quote)
	b.WriteByte(')')
	return b.String()
}

// Calls returns every call of m in text, in order of appearance.
func (m *Marker) Calls(text string) []Call {
	locs := m.re.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	calls := make([]Call, 0, len(locs))
	for _, loc := range locs {
		c := Call{
			Func:   m.Func,
			Prefix: text[loc[2]:loc[3]],
			Start:  loc[0],
			End:    loc[1],
		}
		if loc[4] >= 0 {
			c.Quote = '"'
			c.Literal = text[loc[4]:loc[5]]
		} else {
			c.Quote = '\''
			c.Literal = text[loc[6]:loc[7]]
		}
		calls = append(calls, c)
	}
	return calls
}

// Literals returns the literal of every call of m in text.
func (m *Marker) Literals(text string) []string {
	calls := m.Calls(text)
	if len(calls) == 0 {
		return nil
	}
	lits := make([]string, len(calls))
	for i, c := range calls {
		lits[i] = c.Literal
	}
	return lits
}

// CodeCalls returns the calls of all markers in text, ordered by position.
// A call that lies inside the literal of an earlier call is part of that
// literal and is left out.
func CodeCalls(text string, markers ...*Marker) []Call {
	var calls []Call
	for _, m := range markers {
		calls = append(calls, m.Calls(text)...)
	}
	if len(calls) == 0 {
		return nil
	}
	sort.SliceStable(calls, func(i, j int) bool { return calls[i].Start < calls[j].Start })

	kept := calls[:0]
	covered := 0
	for _, c := range calls {
		if c.Start < covered {
			continue
		}
		covered = c.End
		kept = append(kept, c)
	}
	return kept
}

// Scan returns all setName literals and all setDesc literals, each in order
// of appearance. Calls nested in another call's literal are not counted.
func Scan(text string) (names, descs []string) {
	for _, c := range CodeCalls(text, SetName, SetDesc) {
		switch c.Func {
		case SetName.Func:
			names = append(names, c.Literal)
		case SetDesc.Func:
			descs = append(descs, c.Literal)
		}
	}
	return names, descs
}

// Pair is a setName literal and the setDesc literal at the same index.
type Pair struct {
	Name string
	Desc string
}

// Pairs zips the name and description sequences of text by position.
// When the counts differ the extra entries on the longer side are dropped.
func Pairs(text string) []Pair {
	names, descs := Scan(text)
	n := min(len(names), len(descs))
	if n == 0 {
		return nil
	}
	pairs := make([]Pair, n)
	for i := range n {
		pairs[i] = Pair{Name: names[i], Desc: descs[i]}
	}
	return pairs
}

// Check applies Check to both unescaped literals and returns the first
// failing verdict together with the raw literal that caused it. A pair is
// only worth translating when both literals are.
func (p Pair) Check() (Verdict, string) {
	for _, lit := range []string{p.Name, p.Desc} {
		if v := Check(Unescape(lit)); v != Translate {
			return v, lit
		}
	}
	return Translate, ""
}

// ---------------------------------------------------------------------------
// Eligibility
// ---------------------------------------------------------------------------

// Verdict says whether a literal should be translated.
type Verdict int

const (
	// Translate means the literal looks like source-language UI text.
	Translate Verdict = iota
	// SkipTooShort is used for empty and single-character literals.
	SkipTooShort
	// SkipNotSource is used for literals containing anything outside
	// printable ASCII and ASCII whitespace, i.e. already localized text.
	SkipNotSource
)

func (v Verdict) String() string {
	switch v {
	case Translate:
		return "translate"
	case SkipTooShort:
		return "too short"
	case SkipNotSource:
		return "not source-language text"
	default:
		return "unknown"
	}
}

// Check decides whether a single literal should be translated.
func Check(literal string) Verdict {
	if utf8.RuneCountInString(literal) <= 1 {
		return SkipTooShort
	}
	if !IsSourceText(literal) {
		return SkipNotSource
	}
	return Translate
}

// IsSourceText reports whether s consists only of ASCII letters, digits,
// ASCII whitespace, and ASCII punctuation.
func IsSourceText(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 0x21 && c <= 0x7e:
		case c == ' ', c == '\t', c == '\n', c == '\v', c == '\f', c == '\r':
		default:
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Escapes
// ---------------------------------------------------------------------------

// Unescape turns the raw literal into the text a reader sees. It resolves
// the single-character escapes, \0, \xHH, \uXXXX (joining surrogate pairs)
// and \u{X...}. A backslash before any other character is dropped. Malformed
// hex escapes are kept verbatim.
func Unescape(literal string) string {
	if !strings.Contains(literal, `\`) {
		return literal
	}
	var b strings.Builder
	b.Grow(len(literal))
	for i := 0; i < len(literal); i++ {
		c := literal[i]
		if c != '\\' || i+1 == len(literal) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := literal[i]; e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case 'x':
			if r, ok := parseHex(literal[i+1:], 2); ok {
				b.WriteRune(r)
				i += 2
			} else {
				b.WriteString(`\x`)
			}
		case 'u':
			r, n := unescapeUnicode(literal[i+1:])
			if n == 0 {
				b.WriteString(`\u`)
				continue
			}
			b.WriteRune(r)
			i += n
		default:
			b.WriteByte(e)
		}
	}
	return b.String()
}

// unescapeUnicode decodes what follows a `\u` and reports how many bytes it
// consumed, or 0 if the escape is malformed.
func unescapeUnicode(s string) (rune, int) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 2 || end > 7 {
			return 0, 0
		}
		r, ok := parseHex(s[1:end], end-1)
		if !ok || r > unicode.MaxRune {
			return 0, 0
		}
		return r, end + 1
	}

	r, ok := parseHex(s, 4)
	if !ok {
		return 0, 0
	}
	if !utf16.IsSurrogate(r) {
		return r, 4
	}
	if len(s) >= 10 && s[4] == '\\' && s[5] == 'u' {
		if lo, ok := parseHex(s[6:], 4); ok {
			if pair := utf16.DecodeRune(r, lo); pair != utf8.RuneError {
				return pair, 10
			}
		}
	}
	return utf8.RuneError, 4
}

// parseHex parses exactly n hex digits from the start of s.
func parseHex(s string, n int) (rune, bool) {
	if len(s) < n {
		return 0, false
	}
	v, err := strconv.ParseUint(s[:n], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}

// Escape makes text safe to place between quote characters of the given
// kind: backslashes, that quote, and line breaks are escaped, and other
// control characters are written as \xHH.
func Escape(text string, quote byte) string {
	var b strings.Builder
	b.Grow(len(text) + 8)
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == quote:
			b.WriteByte('\\')
			b.WriteByte(c)
		case c < 0x20 && c != '\t', c == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
