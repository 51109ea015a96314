// Package language detects the language of query text to route corpus
// lookups to the right edition.
package language

import (
	"log"
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Detector maps free text to a lowercase ISO 639-1 code drawn from a
// configured language set.
type Detector struct {
	detector lingua.LanguageDetector
	fallback string
}

// New builds a detector restricted to the named languages ("english",
// "german", ...). Unknown names are logged and skipped. When fewer than
// two usable languages remain, detection is disabled and Detect always
// returns the fallback code.
func New(names []string, fallbackISO string) *Detector {
	fallback := strings.ToLower(strings.TrimSpace(fallbackISO))
	if fallback == "" {
		fallback = "en"
	}

	var langs []lingua.Language
	for _, name := range names {
		lang, ok := languageByName(name)
		if !ok {
			log.Printf("[language] language %q not supported", name)
			continue
		}
		langs = append(langs, lang)
	}

	d := &Detector{fallback: fallback}
	if len(langs) >= 2 {
		d.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(langs...).
			Build()
	}
	return d
}

// Detect returns the ISO 639-1 code of text's language, or the fallback
// when detection is disabled or inconclusive.
func (d *Detector) Detect(text string) string {
	if d.detector == nil {
		return d.fallback
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return d.fallback
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

func languageByName(name string) (lingua.Language, bool) {
	name = strings.TrimSpace(name)
	for _, lang := range lingua.AllLanguages() {
		if strings.EqualFold(lang.String(), name) {
			return lang, true
		}
	}
	return lingua.Unknown, false
}
