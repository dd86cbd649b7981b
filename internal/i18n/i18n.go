// Package i18n resolves user languages and exposes message printers backed by
// the catalogs registered in this package.
package i18n

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// LangParam is the query parameter used to select a language.
const LangParam = "lang"

var supportedTags = []language.Tag{
	language.English,
	language.Korean,
}

var tagMatcher = language.NewMatcher(supportedTags)

// Supported returns the list of supported language tags.
func Supported() []language.Tag {
	tags := make([]language.Tag, len(supportedTags))
	copy(tags, supportedTags)
	return tags
}

// Default returns the default language tag.
func Default() language.Tag {
	return language.English
}

// Printer returns a message printer for the supplied tag.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// Parse maps a user supplied value such as "ko", "ko-KR" or "en-US" onto a
// supported tag.
func Parse(value string) (language.Tag, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return language.Tag{}, false
	}
	parsed, err := language.Parse(value)
	if err != nil {
		return language.Tag{}, false
	}
	_, idx, confidence := tagMatcher.Match(parsed)
	if confidence == language.No {
		return language.Tag{}, false
	}
	return supportedTags[idx], true
}

// ParseOrDefault is Parse with a fallback to Default.
func ParseOrDefault(value string) language.Tag {
	if tag, ok := Parse(value); ok {
		return tag
	}
	return Default()
}

// ResolveTag determines the best language tag for the request: the lang
// query parameter first, then Accept-Language.
func ResolveTag(r *http.Request) language.Tag {
	if r == nil {
		return Default()
	}
	if tag, ok := Parse(r.URL.Query().Get(LangParam)); ok {
		return tag
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			_, idx, confidence := tagMatcher.Match(tags...)
			if confidence != language.No {
				return supportedTags[idx]
			}
		}
	}
	return Default()
}

// StatusName returns the display name of a card status key such as
// "ready_for_qa". Unknown statuses are returned unchanged.
func StatusName(p *message.Printer, status string) string {
	return p.Sprintf(message.Key("status."+status, status))
}
