package delta

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Option configures a Formatter.
type Option func(*Formatter)

// WithLanguage sets the locale used for integer grouping.
func WithLanguage(tag language.Tag) Option {
	return func(f *Formatter) {
		f.printer = message.NewPrinter(tag)
	}
}

// WithLocale parses a BCP 47 tag such as "en" or "de-DE".
// An unparseable tag leaves the default in place.
func WithLocale(locale string) Option {
	return func(f *Formatter) {
		tag, err := language.Parse(locale)
		if err != nil {
			return
		}
		f.printer = message.NewPrinter(tag)
	}
}
