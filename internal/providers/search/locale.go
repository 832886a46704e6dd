package search

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// locale carries the per-language parameters of the web search providers.
type locale struct {
	Country    string
	SearchLang string
	UILang     string
	DDGRegion  string
}

var (
	localeEnglish = locale{Country: "US", SearchLang: "en", UILang: "en-US", DDGRegion: "us-en"}
	localeRussian = locale{Country: "RU", SearchLang: "ru", UILang: "ru-RU", DDGRegion: "ru-ru"}
	// DuckDuckGo has no Kazakh index; the Kazakhstan/Russian region is the closest.
	localeKazakh = locale{Country: "KZ", SearchLang: "kk", UILang: "kk-KZ", DDGRegion: "kz-ru"}
)

var localized = []struct {
	tag    language.Tag
	locale locale
}{
	{language.Russian, localeRussian},
	{language.Kazakh, localeKazakh},
}

// localeFor maps a free-form language ("Russian", "русский", "ru-RU",
// "Kazakh", "қазақ", "kk") to search parameters. Anything else is English.
func localeFor(lang string) locale {
	norm := cases.Lower(language.Und).String(strings.TrimSpace(lang))
	if norm == "" {
		return localeEnglish
	}
	for _, l := range localized {
		base, _ := l.tag.Base()
		if strings.HasPrefix(norm, base.String()) {
			return l.locale
		}
		english := strings.ToLower(display.English.Languages().Name(l.tag))
		if english != "" && strings.Contains(norm, english) {
			return l.locale
		}
		if stem := selfStem(l.tag); stem != "" && strings.Contains(norm, stem) {
			return l.locale
		}
	}
	return localeEnglish
}

// selfStem returns the first three letters of the language's own name,
// e.g. "рус" for Russian and "қаз" for Kazakh.
func selfStem(tag language.Tag) string {
	name := []rune(cases.Lower(tag).String(display.Self.Name(tag)))
	if len(name) < 3 {
		return string(name)
	}
	return string(name[:3])
}
