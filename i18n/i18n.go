// Package i18n translates obsidian-l10n's own user-facing messages.
//
// It wraps the gotext library to provide simple T() and N() functions.
// Catalogs are embedded in the binary via //go:embed and loaded at startup
// via Init().
//
// Usage:
//
//	i18n.Init("")  // auto-detect from LANGUAGE/LC_ALL/LC_MESSAGES/LANG
//	logInfo(i18n.T("Modified and saved: %s"), path)
//	logInfo(i18n.N("Found %d plugin bundle", "Found %d plugin bundles", n), n)
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// locales embeds the translation catalogs.
// Directory structure: locales/{lang}/LC_MESSAGES/obsidian-l10n.po
//
//go:embed all:locales
var locales embed.FS

// domain is the gettext domain name.
const domain = "obsidian-l10n"

var po *gotext.Locale

// Init loads the catalog for lang. If lang is empty, it auto-detects from
// LANGUAGE, LC_ALL, LC_MESSAGES, LANG (in that order, matching GNU gettext).
//
// Init should be called once at program startup, before any T() or N() calls.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// T translates a string. Without a translation the msgid is returned.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a string with plural forms.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// detectLanguage follows GNU gettext: LANGUAGE > LC_ALL > LC_MESSAGES > LANG.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		// LANGUAGE can be a colon-separated list; take the first.
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		// "zh_CN.UTF-8" -> "zh_CN", "de_DE@euro" -> "de_DE"
		if idx := strings.IndexAny(val, ".@"); idx >= 0 {
			val = val[:idx]
		}
		if val == "C" || val == "POSIX" || val == "" {
			continue
		}
		return val
	}
	return "en"
}
