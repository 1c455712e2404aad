package main

import (
	"github.com/jeandeaual/go-locale"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"jqs/internal/jqslog"
)

// numberPrinter returns a message.Printer for the user's detected OS
// locale, falling back to English, so `q`/`nodes` render resource
// counts with the grouping the operator's own locale expects (e.g.
// "16,384" vs "16.384").
func numberPrinter() *message.Printer {
	tag := language.English
	if userLocale, err := locale.GetLocale(); err == nil && userLocale != "" {
		if parsed, err := language.Parse(userLocale); err == nil {
			tag = parsed
		} else {
			jqslog.Warnf("parse detected locale %q: %v", userLocale, err)
		}
	}
	return message.NewPrinter(tag)
}
