// Package rewrite writes translations back into a plugin bundle.
//
// Only the string literals of setName/setDesc calls are touched.
// Replacement is keyed by literal value, so calls that share a literal get
// the same translation.
package rewrite

import (
	"strings"

	"github.com/minios-linux/obsidian-l10n/extract"
)

// Mapping maps a raw source literal (as it appears between the quotes) to
// its translated, unescaped text.
type Mapping map[string]string

// Markers are the calls whose literals Apply replaces.
var Markers = []*extract.Marker{extract.SetName, extract.SetDesc}

// Apply returns text with every marker literal found in m replaced by its
// translation. The quote character and the `u` prefix token of each call are
// preserved, and the translation is escaped for that quote character.
// Everything outside the matched calls is returned unchanged.
//
// Calls are located on the original text for all markers before anything is
// replaced, so a translation can never create a new match.
func Apply(text string, m Mapping) string {
	if len(m) == 0 {
		return text
	}

	calls := extract.CodeCalls(text, Markers...)
	if len(calls) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, c := range calls {
		translated, ok := m[c.Literal]
		if !ok {
			continue
		}
		b.WriteString(text[last:c.Start])
		b.WriteString(c.With(extract.Escape(translated, c.Quote)))
		last = c.End
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}
