package appstate

import (
	"encoding/json"

	"golang.org/x/text/language"
)

// Languages matches Accept-Language headers against the supported locales.
type Languages struct {
	codes   []string
	matcher language.Matcher
}

// NewLanguages builds a matcher. The first code is the fallback.
func NewLanguages(codes []string) *Languages {
	if len(codes) == 0 {
		codes = []string{"en"}
	}
	tags := make([]language.Tag, 0, len(codes))
	kept := make([]string, 0, len(codes))
	for _, code := range codes {
		tag, err := language.Parse(code)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		kept = append(kept, code)
	}
	if len(tags) == 0 {
		tags = []language.Tag{language.English}
		kept = []string{"en"}
	}
	return &Languages{codes: kept, matcher: language.NewMatcher(tags)}
}

// Default returns the fallback language code.
func (l *Languages) Default() string {
	return l.codes[0]
}

// Supported lists the configured codes.
func (l *Languages) Supported() []string {
	return append([]string(nil), l.codes...)
}

// Match picks the best supported code for an Accept-Language header value.
func (l *Languages) Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return l.Default()
	}
	_, index, confidence := l.matcher.Match(tags...)
	if confidence == language.No || index < 0 || index >= len(l.codes) {
		return l.Default()
	}
	return l.codes[index]
}

func remarshal(src, dest any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
